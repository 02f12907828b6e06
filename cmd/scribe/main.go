// Command scribe is the CLI tool for the annotation pack service.
// It provides commands for decoding and converting packs, mutating
// entries, managing project archives, and running the REST API server.
package main

import (
	"archive/tar"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/openscribe/scribe/core/ontology"
	"github.com/openscribe/scribe/core/pack"
	"github.com/openscribe/scribe/core/wire"
	"github.com/openscribe/scribe/internal/api"
	"github.com/openscribe/scribe/internal/archive"
	"github.com/openscribe/scribe/internal/logging"
	"github.com/openscribe/scribe/internal/store"
	"github.com/openscribe/scribe/internal/validation"
)

const version = "0.3.0"

// CLI defines the command-line interface for scribe.
var CLI struct {
	// Global flags
	LogLevel  string `name:"log-level" help:"Log level (debug, info, warn, error)" default:"info" enum:"debug,info,warn,error"`
	LogFormat string `name:"log-format" help:"Log format (json, text)" default:"text" enum:"json,text"`

	// Command groups (noun-first organization)
	Pack    PackGroup    `cmd:"" help:"Pack decode, convert, and hash operations"`
	Entry   EntryGroup   `cmd:"" help:"Entry mutations on a pack file"`
	Project ProjectGroup `cmd:"" help:"Project database and archive operations"`
	Serve   ServeCmd     `cmd:"" help:"Start REST API server"`
	Version VersionCmd   `cmd:"" help:"Print version information"`
}

// PackGroup contains pack-level operations.
type PackGroup struct {
	Decode  DecodeCmd  `cmd:"" help:"Decode a pack into its normalized form"`
	Convert ConvertCmd `cmd:"" help:"Convert a pack between wire formats"`
	Hash    HashCmd    `cmd:"" help:"Print the revision hash of a pack"`
}

// EntryGroup contains entry mutation operations.
type EntryGroup struct {
	Add    AddEntryCmd    `cmd:"" help:"Add an entry to a pack"`
	Edit   EditEntryCmd   `cmd:"" help:"Edit an existing entry in a pack"`
	Delete DeleteEntryCmd `cmd:"" help:"Delete an entry from a pack"`
}

// ProjectGroup contains project database operations.
type ProjectGroup struct {
	List   ProjectListCmd   `cmd:"" help:"List projects in the database"`
	Export ProjectExportCmd `cmd:"" help:"Export a project to a tar.xz archive"`
	Import ProjectImportCmd `cmd:"" help:"Import a project from a tar.xz archive"`
}

// loadOntology reads and builds an ontology index from a schema file.
func loadOntology(path string) (*ontology.Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ontology: %w", err)
	}
	if err := validation.ValidateOntologyPayload(data); err != nil {
		return nil, fmt.Errorf("invalid ontology: %w", err)
	}
	idx, err := ontology.Build(string(data))
	if err != nil {
		return nil, fmt.Errorf("build ontology: %w", err)
	}
	return idx, nil
}

// loadPack reads a pack file and validates it is JSON within limits.
func loadPack(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read pack: %w", err)
	}
	if err := validation.ValidatePackPayload(data); err != nil {
		return "", fmt.Errorf("invalid pack: %w", err)
	}
	return string(data), nil
}

// writeOutput writes text to a file, or stdout when path is empty.
func writeOutput(path, text string) error {
	if path == "" {
		fmt.Println(text)
		return nil
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// DecodeCmd decodes a pack to its normalized form.
type DecodeCmd struct {
	Path     string `arg:"" help:"Path to pack file" type:"existingfile"`
	Ontology string `required:"" help:"Path to ontology schema file" type:"existingfile"`
	Out      string `help:"Output path (default stdout)" type:"path"`
}

func (c *DecodeCmd) Run() error {
	idx, err := loadOntology(c.Ontology)
	if err != nil {
		return err
	}
	rawText, err := loadPack(c.Path)
	if err != nil {
		return err
	}

	decoded, err := wire.Decode(rawText, idx)
	if err != nil {
		return fmt.Errorf("decode pack: %w", err)
	}

	out, err := json.MarshalIndent(decoded, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize pack: %w", err)
	}
	return writeOutput(c.Out, string(out))
}

// ConvertCmd converts a pack between the legacy and compact wire formats.
type ConvertCmd struct {
	Path     string `arg:"" help:"Path to pack file" type:"existingfile"`
	Ontology string `required:"" help:"Path to ontology schema file" type:"existingfile"`
	To       string `required:"" help:"Target format" enum:"legacy,compact"`
	Out      string `help:"Output path (default stdout)" type:"path"`
}

func (c *ConvertCmd) Run() error {
	idx, err := loadOntology(c.Ontology)
	if err != nil {
		return err
	}
	rawText, err := loadPack(c.Path)
	if err != nil {
		return err
	}

	decoded, err := wire.Decode(rawText, idx)
	if err != nil {
		return fmt.Errorf("decode pack: %w", err)
	}

	var out string
	switch c.To {
	case "legacy":
		out, err = wire.EncodeLegacy(decoded)
	case "compact":
		out, err = wire.EncodeCompact(decoded, idx)
	}
	if err != nil {
		return fmt.Errorf("encode pack: %w", err)
	}

	return writeOutput(c.Out, out)
}

// HashCmd prints the revision hash of a pack file.
type HashCmd struct {
	Path string `arg:"" help:"Path to pack file" type:"existingfile"`
}

func (c *HashCmd) Run() error {
	rawText, err := loadPack(c.Path)
	if err != nil {
		return err
	}
	fmt.Println(pack.HashString(rawText))
	return nil
}

// entryMutation holds the flags shared by add and edit.
type entryMutation struct {
	Path     string `arg:"" help:"Path to pack file" type:"existingfile"`
	Ontology string `required:"" help:"Path to ontology schema file" type:"existingfile"`
	Entry    string `required:"" help:"Entry JSON, or @path to read from a file"`
	Out      string `help:"Output path (default overwrite input)" type:"path"`
}

// resolveEntry parses the --entry flag, following @path indirection.
func (m *entryMutation) resolveEntry() (*wire.Entry, error) {
	text := m.Entry
	if strings.HasPrefix(text, "@") {
		data, err := os.ReadFile(strings.TrimPrefix(text, "@"))
		if err != nil {
			return nil, fmt.Errorf("read entry file: %w", err)
		}
		text = string(data)
	}
	if err := validation.ValidateEntryPayload([]byte(text)); err != nil {
		return nil, fmt.Errorf("invalid entry: %w", err)
	}
	entry, err := wire.ParseEntry(text)
	if err != nil {
		return nil, fmt.Errorf("parse entry: %w", err)
	}
	return entry, nil
}

func (m *entryMutation) outPath() string {
	if m.Out != "" {
		return m.Out
	}
	return m.Path
}

// AddEntryCmd adds an entry to a pack file.
type AddEntryCmd struct {
	entryMutation
}

func (c *AddEntryCmd) Run() error {
	idx, err := loadOntology(c.Ontology)
	if err != nil {
		return err
	}
	rawText, err := loadPack(c.Path)
	if err != nil {
		return err
	}
	entry, err := c.resolveEntry()
	if err != nil {
		return err
	}

	out, err := wire.Add(rawText, entry, idx)
	if err != nil {
		return fmt.Errorf("add entry: %w", err)
	}

	if err := writeOutput(c.outPath(), out); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Added %s entry (revision %s)\n", entry.Type, pack.HashString(out))
	return nil
}

// EditEntryCmd edits an existing entry in a pack file.
type EditEntryCmd struct {
	entryMutation
}

func (c *EditEntryCmd) Run() error {
	idx, err := loadOntology(c.Ontology)
	if err != nil {
		return err
	}
	rawText, err := loadPack(c.Path)
	if err != nil {
		return err
	}
	entry, err := c.resolveEntry()
	if err != nil {
		return err
	}

	out, changed, err := wire.Edit(rawText, entry, idx)
	if err != nil {
		return fmt.Errorf("edit entry: %w", err)
	}
	if !changed {
		return fmt.Errorf("no entry with id %q found", entry.ID())
	}

	if err := writeOutput(c.outPath(), out); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Edited %s entry (revision %s)\n", entry.Type, pack.HashString(out))
	return nil
}

// DeleteEntryCmd deletes an entry from a pack file.
type DeleteEntryCmd struct {
	Path     string `arg:"" help:"Path to pack file" type:"existingfile"`
	Ontology string `required:"" help:"Path to ontology schema file" type:"existingfile"`
	ID       string `required:"" help:"Entry identifier"`
	Kind     string `required:"" help:"Entry kind" enum:"annotation,link"`
	Out      string `help:"Output path (default overwrite input)" type:"path"`
}

func (c *DeleteEntryCmd) Run() error {
	idx, err := loadOntology(c.Ontology)
	if err != nil {
		return err
	}
	rawText, err := loadPack(c.Path)
	if err != nil {
		return err
	}

	out, changed, err := wire.Delete(rawText, c.ID, pack.Kind(c.Kind), idx)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if !changed {
		return fmt.Errorf("no %s with id %q found", c.Kind, c.ID)
	}

	outPath := c.Out
	if outPath == "" {
		outPath = c.Path
	}
	if err := writeOutput(outPath, out); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Deleted %s %s (revision %s)\n", c.Kind, c.ID, pack.HashString(out))
	return nil
}

// ProjectListCmd lists projects in the database.
type ProjectListCmd struct {
	DB string `help:"Path to SQLite database" default:"./scribe.db" type:"path"`
}

func (c *ProjectListCmd) Run() error {
	st, err := store.OpenReadOnly(c.DB)
	if err != nil {
		return err
	}
	defer st.Close()

	projects, err := st.ListProjects(context.Background())
	if err != nil {
		return err
	}

	if len(projects) == 0 {
		fmt.Println("No projects.")
		return nil
	}
	for _, proj := range projects {
		docs, err := st.ListDocuments(context.Background(), proj.ID)
		if err != nil {
			return err
		}
		fmt.Printf("%s  %s  (%d documents)\n", proj.ID, proj.Name, len(docs))
	}
	return nil
}

// ProjectExportCmd exports a project to a tar.xz archive.
type ProjectExportCmd struct {
	Project string `arg:"" help:"Project ID or name"`
	DB      string `help:"Path to SQLite database" default:"./scribe.db" type:"path"`
	Out     string `help:"Output directory" default:"." type:"path"`
}

func (c *ProjectExportCmd) Run() error {
	st, err := store.Open(c.DB)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	proj, err := st.GetProject(ctx, c.Project)
	if err != nil {
		// Fall back to name lookup so either identifier works.
		proj, err = st.GetProjectByName(ctx, c.Project)
		if err != nil {
			return err
		}
	}

	archivePath, err := api.ExportProject(ctx, st, proj.ID, c.Out)
	if err != nil {
		return err
	}
	fmt.Printf("Exported %s to %s\n", proj.Name, archivePath)
	return nil
}

// ProjectImportCmd imports a project from a tar.xz archive.
type ProjectImportCmd struct {
	Path  string `arg:"" help:"Path to tar.xz archive" type:"existingfile"`
	Name  string `help:"Project name (default archive base name)"`
	Owner string `help:"Project owner (empty = unrestricted)"`
	DB    string `help:"Path to SQLite database" default:"./scribe.db" type:"path"`
}

func (c *ProjectImportCmd) Run() error {
	name := c.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(c.Path), ".tar.xz")
	}

	f, err := os.Open(c.Path)
	if err != nil {
		return err
	}
	_, err = validation.ValidateFileType(f, c.Path)
	f.Close()
	if err != nil {
		return fmt.Errorf("not a valid archive: %w", err)
	}

	ontologyData, err := archive.ReadFile(c.Path, "ontology.json")
	if err != nil {
		return fmt.Errorf("archive has no ontology.json: %w", err)
	}

	st, err := store.Open(c.DB)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	proj, err := st.CreateProject(ctx, name, string(ontologyData), c.Owner)
	if err != nil {
		return err
	}

	imported := 0
	err = archive.IterateArchive(c.Path, func(header *tar.Header, r io.Reader) (bool, error) {
		docName, ok := documentArchiveName(header.Name)
		if !ok {
			return false, nil
		}
		// Document names double as archive member paths on re-export,
		// so members whose name escapes the documents directory are skipped.
		if !validation.IsPathSafe(".", docName) {
			logging.Warn("skipping unsafe archive member", "name", header.Name)
			return false, nil
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return true, err
		}
		if _, err := st.CreateDocument(ctx, proj.ID, docName, string(data)); err != nil {
			return true, err
		}
		imported++
		return false, nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("Imported project %s (%s) with %d documents\n", proj.Name, proj.ID, imported)
	return nil
}

// documentArchiveName extracts the document name from an archive member
// path like <base>/documents/<name>.json.
func documentArchiveName(member string) (string, bool) {
	parts := strings.Split(member, "/")
	for i, part := range parts {
		if part == "documents" && i+1 < len(parts) {
			name := strings.Join(parts[i+1:], "/")
			return strings.TrimSuffix(name, ".json"), true
		}
	}
	return "", false
}

// ServeCmd starts the REST API server.
type ServeCmd struct {
	Port           int      `help:"HTTP server port" default:"8081"`
	DB             string   `help:"Path to SQLite database" default:"./scribe.db" type:"path"`
	ExportsDir     string   `help:"Directory for export archives" default:"./exports" type:"path"`
	RateLimit      int      `help:"Requests per minute per IP (0 = disabled)" default:"0"`
	RateBurst      int      `help:"Rate limit burst size" default:"10"`
	AuthKey        string   `help:"API key (enables authentication)" env:"SCRIBE_API_KEY"`
	TLSCert        string   `help:"Path to TLS certificate" type:"path"`
	TLSKey         string   `help:"Path to TLS private key" type:"path"`
	AllowedOrigins []string `help:"CORS allowed origins (empty = allow all)"`
}

func (c *ServeCmd) Run() error {
	cfg := api.Config{
		Port:              c.Port,
		DBPath:            c.DB,
		ExportsDir:        c.ExportsDir,
		RateLimitRequests: c.RateLimit,
		RateLimitBurst:    c.RateBurst,
		Auth: api.AuthConfig{
			Enabled: c.AuthKey != "",
			APIKey:  c.AuthKey,
		},
		TLS: api.TLSConfig{
			Enabled:  c.TLSCert != "" && c.TLSKey != "",
			CertFile: c.TLSCert,
			KeyFile:  c.TLSKey,
		},
		AllowedOrigins: c.AllowedOrigins,
	}
	return api.Start(cfg)
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("scribe version %s\n", version)
	return nil
}

// initLogging applies the global log flags.
func initLogging() {
	level := logging.LevelInfo
	switch CLI.LogLevel {
	case "debug":
		level = logging.LevelDebug
	case "warn":
		level = logging.LevelWarn
	case "error":
		level = logging.LevelError
	}

	format := logging.FormatText
	if CLI.LogFormat == "json" {
		format = logging.FormatJSON
	}

	logging.InitLogger(level, format)
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("scribe"),
		kong.Description("Annotation pack transcoder and project service"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	initLogging()
	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}

package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openscribe/scribe/internal/api"
	"github.com/openscribe/scribe/internal/archive"
	"github.com/openscribe/scribe/internal/store"
)

const testOntology = `{
  "definitions": [
    {"entry_name": "scribe.ontology.base.Annotation"},
    {"entry_name": "corpus.Token", "parent_entry": "scribe.ontology.base.Annotation",
     "attributes": [{"name": "pos"}, {"name": "lemma"}]}
  ]
}`

const testPack = `{
  "pack_version": "0.0.1",
  "text": "The quick brown fox.",
  "annotations": [
    {"type": "corpus.Token", "state": {"_span": {"begin": 0, "end": 3}, "_tid": 1, "pos": "DT", "lemma": "the"}}
  ],
  "links": [], "groups": [], "meta": {}
}`

// Test helper functions

func createTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	return path
}

func createFixtures(t *testing.T) (dir, packPath, ontologyPath string) {
	t.Helper()
	dir = t.TempDir()
	packPath = createTestFile(t, dir, "pack.json", testPack)
	ontologyPath = createTestFile(t, dir, "ontology.json", testOntology)
	return dir, packPath, ontologyPath
}

// Tests for DecodeCmd

func TestDecodeCmd_Run(t *testing.T) {
	dir, packPath, ontologyPath := createFixtures(t)
	outPath := filepath.Join(dir, "decoded.json")

	cmd := &DecodeCmd{Path: packPath, Ontology: ontologyPath, Out: outPath}
	if err := cmd.Run(); err != nil {
		t.Fatalf("DecodeCmd.Run() error: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var decoded struct {
		Text        string            `json:"text"`
		Annotations []json.RawMessage `json:"annotations"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if decoded.Text != "The quick brown fox." {
		t.Errorf("text = %q", decoded.Text)
	}
	if len(decoded.Annotations) != 1 {
		t.Errorf("annotations = %d, want 1", len(decoded.Annotations))
	}
}

func TestDecodeCmd_BadOntology(t *testing.T) {
	dir, packPath, _ := createFixtures(t)
	badOntology := createTestFile(t, dir, "bad.json", "{not json")

	cmd := &DecodeCmd{Path: packPath, Ontology: badOntology}
	if err := cmd.Run(); err == nil {
		t.Error("expected error for malformed ontology")
	}
}

// Tests for ConvertCmd

func TestConvertCmd_RoundTrip(t *testing.T) {
	dir, packPath, ontologyPath := createFixtures(t)

	compactPath := filepath.Join(dir, "compact.json")
	toCompact := &ConvertCmd{Path: packPath, Ontology: ontologyPath, To: "compact", Out: compactPath}
	if err := toCompact.Run(); err != nil {
		t.Fatalf("convert to compact: %v", err)
	}

	compact, err := os.ReadFile(compactPath)
	if err != nil {
		t.Fatalf("read compact output: %v", err)
	}
	if !strings.Contains(string(compact), "data_store") {
		t.Error("compact output should contain a data_store section")
	}

	legacyPath := filepath.Join(dir, "legacy.json")
	toLegacy := &ConvertCmd{Path: compactPath, Ontology: ontologyPath, To: "legacy", Out: legacyPath}
	if err := toLegacy.Run(); err != nil {
		t.Fatalf("convert back to legacy: %v", err)
	}

	legacy, err := os.ReadFile(legacyPath)
	if err != nil {
		t.Fatalf("read legacy output: %v", err)
	}
	var tree map[string]interface{}
	if err := json.Unmarshal(legacy, &tree); err != nil {
		t.Fatalf("decode legacy output: %v", err)
	}
	if _, ok := tree["annotations"]; !ok {
		t.Error("legacy output should contain an annotations list")
	}
}

// Tests for HashCmd

func TestHashCmd_Run(t *testing.T) {
	_, packPath, _ := createFixtures(t)

	cmd := &HashCmd{Path: packPath}
	if err := cmd.Run(); err != nil {
		t.Errorf("HashCmd.Run() error: %v", err)
	}
}

// Tests for entry mutation commands

func TestEntryCommands_AddEditDelete(t *testing.T) {
	_, packPath, ontologyPath := createFixtures(t)

	add := &AddEntryCmd{entryMutation{
		Path:     packPath,
		Ontology: ontologyPath,
		Entry:    `{"type": "corpus.Token", "state": {"_span": {"begin": 4, "end": 9}, "_tid": 2, "pos": "JJ", "lemma": "quick"}}`,
	}}
	if err := add.Run(); err != nil {
		t.Fatalf("add entry: %v", err)
	}

	data, _ := os.ReadFile(packPath)
	if !strings.Contains(string(data), "quick") {
		t.Error("pack should contain the added entry")
	}

	edit := &EditEntryCmd{entryMutation{
		Path:     packPath,
		Ontology: ontologyPath,
		Entry:    `{"type": "corpus.Token", "state": {"_span": {"begin": 4, "end": 9}, "_tid": 2, "pos": "ADJ", "lemma": "quick"}}`,
	}}
	if err := edit.Run(); err != nil {
		t.Fatalf("edit entry: %v", err)
	}

	data, _ = os.ReadFile(packPath)
	if !strings.Contains(string(data), "ADJ") {
		t.Error("pack should contain the edited attribute value")
	}

	del := &DeleteEntryCmd{
		Path:     packPath,
		Ontology: ontologyPath,
		ID:       "2",
		Kind:     "annotation",
	}
	if err := del.Run(); err != nil {
		t.Fatalf("delete entry: %v", err)
	}

	data, _ = os.ReadFile(packPath)
	if strings.Contains(string(data), "quick") {
		t.Error("pack should no longer contain the deleted entry")
	}
}

func TestEntryCommands_EntryFromFile(t *testing.T) {
	dir, packPath, ontologyPath := createFixtures(t)
	entryPath := createTestFile(t, dir, "entry.json",
		`{"type": "corpus.Token", "state": {"_span": {"begin": 10, "end": 15}, "_tid": 3, "pos": "NN"}}`)

	add := &AddEntryCmd{entryMutation{
		Path:     packPath,
		Ontology: ontologyPath,
		Entry:    "@" + entryPath,
	}}
	if err := add.Run(); err != nil {
		t.Fatalf("add entry from file: %v", err)
	}
}

func TestEditEntryCmd_MissingEntry(t *testing.T) {
	_, packPath, ontologyPath := createFixtures(t)

	edit := &EditEntryCmd{entryMutation{
		Path:     packPath,
		Ontology: ontologyPath,
		Entry:    `{"type": "corpus.Token", "state": {"_tid": 99, "pos": "X"}}`,
	}}
	if err := edit.Run(); err == nil {
		t.Error("expected error editing a missing entry")
	}
}

func TestDeleteEntryCmd_MissingEntry(t *testing.T) {
	_, packPath, ontologyPath := createFixtures(t)

	del := &DeleteEntryCmd{
		Path:     packPath,
		Ontology: ontologyPath,
		ID:       "99",
		Kind:     "annotation",
	}
	if err := del.Run(); err == nil {
		t.Error("expected error deleting a missing entry")
	}
}

// Tests for project commands

func TestProjectExportImport_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "scribe.db")

	st, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	ctx := context.Background()
	proj, err := st.CreateProject(ctx, "corpus", testOntology, "")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if _, err := st.CreateDocument(ctx, proj.ID, "chapter-1", testPack); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	st.Close()

	export := &ProjectExportCmd{Project: "corpus", DB: dbPath, Out: dir}
	if err := export.Run(); err != nil {
		t.Fatalf("export: %v", err)
	}

	archivePath := filepath.Join(dir, "corpus.tar.xz")
	if _, err := os.Stat(archivePath); err != nil {
		t.Fatalf("expected archive at %s: %v", archivePath, err)
	}

	// Import into a fresh database.
	dbPath2 := filepath.Join(dir, "scribe2.db")
	imp := &ProjectImportCmd{Path: archivePath, DB: dbPath2}
	if err := imp.Run(); err != nil {
		t.Fatalf("import: %v", err)
	}

	st2, err := store.Open(dbPath2)
	if err != nil {
		t.Fatalf("store.Open imported: %v", err)
	}
	defer st2.Close()

	imported, err := st2.GetProjectByName(ctx, "corpus")
	if err != nil {
		t.Fatalf("imported project missing: %v", err)
	}
	docs, err := st2.ListDocuments(ctx, imported.ID)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 1 || docs[0].Name != "chapter-1" {
		t.Errorf("imported documents = %+v", docs)
	}
}

func TestProjectImportCmd_SkipsTraversalMembers(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "corpus.tar.xz")

	names := []string{
		"ontology.json",
		"documents/chapter-1.json",
		"documents/../../evil.json",
	}
	files := map[string][]byte{
		"ontology.json":             []byte(testOntology),
		"documents/chapter-1.json":  []byte(testPack),
		"documents/../../evil.json": []byte(testPack),
	}
	if err := archive.WriteTarXZ(archivePath, "corpus", names, files); err != nil {
		t.Fatalf("WriteTarXZ: %v", err)
	}

	dbPath := filepath.Join(dir, "scribe.db")
	imp := &ProjectImportCmd{Path: archivePath, DB: dbPath}
	if err := imp.Run(); err != nil {
		t.Fatalf("import: %v", err)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	proj, err := st.GetProjectByName(ctx, "corpus")
	if err != nil {
		t.Fatalf("imported project missing: %v", err)
	}
	docs, err := st.ListDocuments(ctx, proj.ID)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 1 || docs[0].Name != "chapter-1" {
		t.Errorf("imported documents = %+v, want only chapter-1", docs)
	}
}

func TestProjectListCmd_Run(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "scribe.db")

	st, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	if _, err := st.CreateProject(context.Background(), "corpus", testOntology, ""); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	st.Close()

	cmd := &ProjectListCmd{DB: dbPath}
	if err := cmd.Run(); err != nil {
		t.Errorf("ProjectListCmd.Run() error: %v", err)
	}
}

// Tests for ServeCmd configuration

func TestServeCmd_BuildsConfig(t *testing.T) {
	cmd := &ServeCmd{
		Port:      9090,
		DB:        "./db.sqlite",
		AuthKey:   "0123456789abcdef",
		RateLimit: 120,
		RateBurst: 20,
	}

	cfg := api.Config{
		Port:              cmd.Port,
		DBPath:            cmd.DB,
		RateLimitRequests: cmd.RateLimit,
		RateLimitBurst:    cmd.RateBurst,
		Auth: api.AuthConfig{
			Enabled: cmd.AuthKey != "",
			APIKey:  cmd.AuthKey,
		},
	}
	if !cfg.Auth.Enabled {
		t.Error("auth should be enabled when a key is set")
	}
	if err := api.ValidateAuthConfig(cfg.Auth); err != nil {
		t.Errorf("auth config should validate: %v", err)
	}
}

func TestVersionCmd_Run(t *testing.T) {
	cmd := &VersionCmd{}
	if err := cmd.Run(); err != nil {
		t.Errorf("VersionCmd.Run() error: %v", err)
	}
}

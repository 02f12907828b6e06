package api

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/openscribe/scribe/core/errors"
	"github.com/openscribe/scribe/internal/archive"
	"github.com/openscribe/scribe/internal/store"
	"github.com/openscribe/scribe/internal/validation"
)

// ExportProject writes a tar.xz archive containing the project ontology and
// one pack file per document, and returns the archive path. The archive
// contents are ordered so identical projects produce identical archives.
func ExportProject(ctx context.Context, st *store.Store, projectID, exportsDir string) (string, error) {
	proj, err := st.GetProject(ctx, projectID)
	if err != nil {
		return "", err
	}

	docs, err := st.ListDocuments(ctx, projectID)
	if err != nil {
		return "", err
	}

	names := []string{"ontology.json"}
	files := map[string][]byte{
		"ontology.json": []byte(proj.Ontology),
	}
	for _, doc := range docs {
		safeName, err := validation.SanitizeFilename(doc.Name)
		if err != nil {
			return "", fmt.Errorf("%w: document name %q: %v", errors.ErrInvalidInput, doc.Name, err)
		}
		name := "documents/" + safeName + ".json"
		names = append(names, name)
		files[name] = []byte(doc.Pack)
	}

	baseDir, err := validation.SanitizeFilename(proj.Name)
	if err != nil {
		return "", fmt.Errorf("%w: project name %q: %v", errors.ErrInvalidInput, proj.Name, err)
	}
	archivePath := filepath.Join(exportsDir, baseDir+".tar.xz")
	if err := archive.WriteTarXZ(archivePath, baseDir, names, files); err != nil {
		return "", err
	}
	return archivePath, nil
}

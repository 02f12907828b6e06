package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ulikunitz/xz"
)

// Writer builds a tar.xz archive file by file.
type Writer struct {
	file    *os.File
	xzw     *xz.Writer
	tw      *tar.Writer
	baseDir string
	modTime time.Time
}

// NewWriter creates a tar.xz archive at dstPath. All entries are placed under
// baseDir inside the archive. Parent directories of dstPath are created.
func NewWriter(dstPath, baseDir string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return nil, fmt.Errorf("create parent directory: %w", err)
	}

	f, err := os.Create(dstPath)
	if err != nil {
		return nil, fmt.Errorf("create archive file: %w", err)
	}

	xzw, err := xz.NewWriter(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("xz writer: %w", err)
	}

	return &Writer{
		file:    f,
		xzw:     xzw,
		tw:      tar.NewWriter(xzw),
		baseDir: baseDir,
		// One timestamp for the whole archive keeps output reproducible.
		modTime: time.Now(),
	}, nil
}

// AddFile writes a file entry with the given content into the archive.
func (w *Writer) AddFile(name string, data []byte) error {
	header := &tar.Header{
		Name:    w.baseDir + "/" + name,
		Mode:    0644,
		Size:    int64(len(data)),
		ModTime: w.modTime,
	}
	if err := w.tw.WriteHeader(header); err != nil {
		return fmt.Errorf("write header for %s: %w", name, err)
	}
	if _, err := w.tw.Write(data); err != nil {
		return fmt.Errorf("write content for %s: %w", name, err)
	}
	return nil
}

// AddFileFrom streams a file entry from a reader into the archive.
func (w *Writer) AddFileFrom(name string, size int64, r io.Reader) error {
	header := &tar.Header{
		Name:    w.baseDir + "/" + name,
		Mode:    0644,
		Size:    size,
		ModTime: w.modTime,
	}
	if err := w.tw.WriteHeader(header); err != nil {
		return fmt.Errorf("write header for %s: %w", name, err)
	}
	if _, err := io.Copy(w.tw, r); err != nil {
		return fmt.Errorf("write content for %s: %w", name, err)
	}
	return nil
}

// Close finalizes the archive. It must be called for the archive to be valid.
func (w *Writer) Close() error {
	if err := w.tw.Close(); err != nil {
		w.xzw.Close()
		w.file.Close()
		return fmt.Errorf("close tar writer: %w", err)
	}
	if err := w.xzw.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("close xz writer: %w", err)
	}
	return w.file.Close()
}

// WriteTarXZ creates a tar.xz archive at dstPath containing the given files
// under baseDir. Map iteration order does not matter for correctness, but
// entries are written in the order produced by the names slice to keep the
// archive deterministic.
func WriteTarXZ(dstPath, baseDir string, names []string, files map[string][]byte) error {
	w, err := NewWriter(dstPath, baseDir)
	if err != nil {
		return err
	}
	for _, name := range names {
		data, ok := files[name]
		if !ok {
			w.Close()
			return fmt.Errorf("missing content for %s", name)
		}
		if err := w.AddFile(name, data); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

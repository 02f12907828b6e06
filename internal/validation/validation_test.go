package validation

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestValidatePackPayload(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{name: "valid object", data: []byte(`{"text": "hello", "annotations": []}`)},
		{name: "valid number fidelity", data: []byte(`{"id": 9007199254740993}`)},
		{name: "empty payload", data: nil, wantErr: ErrNotJSON},
		{name: "broken JSON", data: []byte(`{"text": `), wantErr: ErrNotJSON},
		{name: "oversized", data: bytes.Repeat([]byte("a"), MaxPackSize+1), wantErr: ErrPayloadTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePackPayload(tt.data)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateEntryPayload(t *testing.T) {
	if err := ValidateEntryPayload([]byte(`{"type": "corpus.Token", "state": {}}`)); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	big := append([]byte(`{"pad": "`), bytes.Repeat([]byte("x"), MaxEntryStateSize)...)
	big = append(big, []byte(`"}`)...)
	if err := ValidateEntryPayload(big); !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		name     string
		baseDir  string
		userPath string
		wantErr  error
	}{
		{name: "simple relative path", baseDir: "/data", userPath: "exports/proj.tar.xz"},
		{name: "empty path", baseDir: "/data", userPath: "", wantErr: ErrEmptyPath},
		{name: "parent escape", baseDir: "/data", userPath: "../etc/passwd", wantErr: ErrPathTraversal},
		{name: "nested escape", baseDir: "/data", userPath: "a/../../etc", wantErr: ErrPathTraversal},
		{name: "absolute path", baseDir: "/data", userPath: "/etc/passwd", wantErr: ErrPathTraversal},
		{name: "too long", baseDir: "/data", userPath: strings.Repeat("a", MaxPathLength+1), wantErr: ErrPathTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SanitizePath(tt.baseDir, tt.userPath)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		wantErr  bool
	}{
		{name: "valid", filename: "document.json"},
		{name: "empty", filename: "", wantErr: true},
		{name: "dot", filename: ".", wantErr: true},
		{name: "dotdot", filename: "..", wantErr: true},
		{name: "slash", filename: "a/b", wantErr: true},
		{name: "backslash", filename: `a\b`, wantErr: true},
		{name: "null byte", filename: "a\x00b", wantErr: true},
		{name: "control char", filename: "a\x01b", wantErr: true},
		{name: "leading hyphen", filename: "-rf", wantErr: true},
		{name: "too long", filename: strings.Repeat("a", MaxFilenameLength+1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilename(tt.filename)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFilename(%q) error = %v, wantErr %v", tt.filename, err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "clean name passes through", input: "notes.json", want: "notes.json"},
		{name: "separators replaced", input: "a/b\\c", want: "a_b_c"},
		{name: "whitespace trimmed", input: "  doc.json  ", want: "doc.json"},
		{name: "hyphens stripped", input: "--doc", want: "doc"},
		{name: "only invalid chars", input: "\x00\x01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeFilename(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SanitizeFilename(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateFileType(t *testing.T) {
	xzHeader := []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00, 0x00}

	tests := []struct {
		name     string
		content  []byte
		filename string
		want     FileType
		wantErr  bool
	}{
		{name: "xz content with tar.xz name", content: xzHeader, filename: "export.tar.xz", want: FileTypeTarXZ},
		{name: "xz content with xz name", content: xzHeader, filename: "pack.xz", want: FileTypeXZ},
		{name: "sqlite content", content: []byte("SQLite format 3\x00"), filename: "scribe.db", want: FileTypeSQLite},
		{name: "json content", content: []byte(`{"text": "hi"}`), filename: "pack.json", want: FileTypeJSON},
		{name: "binary claiming json", content: append([]byte{0x00, 0x01, 0x02}, bytes.Repeat([]byte{0xff}, 16)...), filename: "pack.json", want: FileTypeJSON},
		{name: "xz content claiming sqlite", content: xzHeader, filename: "scribe.db", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateFileType(bytes.NewReader(tt.content), tt.filename)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got type %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestIsPathSafe(t *testing.T) {
	if !IsPathSafe("/data", "exports/out.tar.xz") {
		t.Error("expected relative path to be safe")
	}
	if IsPathSafe("/data", "../escape") {
		t.Error("expected traversal to be unsafe")
	}
}

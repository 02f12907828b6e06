// Package validation provides input validation and sanitization functions
// to prevent common security vulnerabilities like path traversal, injection attacks,
// and resource exhaustion.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"
)

// Security limits to prevent resource exhaustion (CWE-400).
const (
	// MaxPackSize is the maximum allowed serialized pack size (64 MB).
	MaxPackSize = 64 << 20
	// MaxOntologySize is the maximum allowed ontology document size (8 MB).
	MaxOntologySize = 8 << 20
	// MaxEntryStateSize is the maximum allowed size of a single entry payload (1 MB).
	MaxEntryStateSize = 1 << 20
	// MaxFilenameLength is the maximum allowed filename length.
	MaxFilenameLength = 255
	// MaxPathLength is the maximum allowed path length.
	MaxPathLength = 4096
)

// Common validation errors.
var (
	ErrPathTraversal    = errors.New("path traversal detected")
	ErrInvalidFilename  = errors.New("invalid filename")
	ErrPathTooLong      = errors.New("path too long")
	ErrFilenameTooLong  = errors.New("filename too long")
	ErrInvalidCharacter = errors.New("invalid character in path")
	ErrEmptyPath        = errors.New("path cannot be empty")
	ErrPayloadTooLarge  = errors.New("payload too large")
	ErrNotJSON          = errors.New("payload is not valid JSON")
)

// ValidatePackPayload checks a serialized pack against size and encoding limits.
func ValidatePackPayload(data []byte) error {
	return validateJSONPayload(data, MaxPackSize, "pack")
}

// ValidateOntologyPayload checks a serialized ontology against size and encoding limits.
func ValidateOntologyPayload(data []byte) error {
	return validateJSONPayload(data, MaxOntologySize, "ontology")
}

// ValidateEntryPayload checks a serialized entry against size and encoding limits.
func ValidateEntryPayload(data []byte) error {
	return validateJSONPayload(data, MaxEntryStateSize, "entry")
}

func validateJSONPayload(data []byte, limit int, label string) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty %s payload", ErrNotJSON, label)
	}
	if len(data) > limit {
		return fmt.Errorf("%w: %s exceeds %d bytes", ErrPayloadTooLarge, label, limit)
	}
	if !json.Valid(data) {
		return fmt.Errorf("%w: %s", ErrNotJSON, label)
	}
	return nil
}

// SanitizePath validates and sanitizes a user-supplied path to prevent path traversal attacks.
// It ensures the path does not escape the provided base directory.
// Returns the cleaned path relative to the base directory, or an error if invalid.
func SanitizePath(baseDir, userPath string) (string, error) {
	if userPath == "" {
		return "", ErrEmptyPath
	}

	if len(userPath) > MaxPathLength {
		return "", ErrPathTooLong
	}

	cleanPath := filepath.Clean(userPath)

	if strings.Contains(cleanPath, "..") {
		return "", ErrPathTraversal
	}

	if filepath.IsAbs(cleanPath) {
		return "", fmt.Errorf("%w: absolute path not allowed", ErrPathTraversal)
	}

	fullPath := filepath.Join(baseDir, cleanPath)
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base directory: %w", err)
	}

	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	relPath, err := filepath.Rel(absBase, absPath)
	if err != nil || strings.HasPrefix(relPath, "..") {
		return "", ErrPathTraversal
	}

	return cleanPath, nil
}

// ValidateFilename checks if a filename is safe and does not contain malicious characters.
// It rejects filenames with path separators, control characters, and dangerous patterns.
func ValidateFilename(filename string) error {
	if filename == "" {
		return ErrInvalidFilename
	}

	if len(filename) > MaxFilenameLength {
		return ErrFilenameTooLong
	}

	if filename == "." || filename == ".." {
		return fmt.Errorf("%w: reserved name", ErrInvalidFilename)
	}

	if strings.ContainsAny(filename, "/\\") {
		return fmt.Errorf("%w: path separator not allowed", ErrInvalidFilename)
	}

	if strings.Contains(filename, "\x00") {
		return fmt.Errorf("%w: null byte not allowed", ErrInvalidFilename)
	}

	for _, r := range filename {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidFilename)
		}
	}

	// Leading hyphens can be confused with command flags.
	if strings.HasPrefix(filename, "-") {
		return fmt.Errorf("%w: filename cannot start with hyphen", ErrInvalidFilename)
	}

	return nil
}

// IsPathSafe checks if a path is safe by validating it against common attack patterns.
// This is a convenience wrapper around SanitizePath that returns a boolean.
func IsPathSafe(baseDir, userPath string) bool {
	_, err := SanitizePath(baseDir, userPath)
	return err == nil
}

// SanitizeFilename sanitizes a filename by removing or replacing invalid characters.
// This is useful when generating filenames from user input, e.g. document names
// used as archive member paths.
// Returns a safe filename or an error if the filename cannot be sanitized.
func SanitizeFilename(filename string) (string, error) {
	if filename == "" {
		return "", ErrInvalidFilename
	}

	filename = strings.TrimSpace(filename)
	filename = strings.ReplaceAll(filename, "/", "_")
	filename = strings.ReplaceAll(filename, "\\", "_")
	filename = strings.ReplaceAll(filename, "\x00", "")

	var cleaned strings.Builder
	for _, r := range filename {
		if !unicode.IsControl(r) {
			cleaned.WriteRune(r)
		}
	}
	filename = cleaned.String()
	filename = strings.TrimLeft(filename, "-")

	if err := ValidateFilename(filename); err != nil {
		return "", err
	}

	return filename, nil
}

// FileType represents a validated file type.
type FileType string

const (
	FileTypeTarXZ FileType = "tar.xz"
	FileTypeTar   FileType = "tar"
	FileTypeXZ    FileType = "xz"

	FileTypeSQLite FileType = "sqlite"

	FileTypeJSON FileType = "json"
	FileTypeText FileType = "text"

	FileTypeUnknown FileType = "unknown"
)

// magicBytes defines magic byte signatures for file type detection.
var magicBytes = []struct {
	fileType FileType
	magic    []byte
	offset   int
}{
	{FileTypeTar, []byte("ustar"), 257},
	{FileTypeXZ, []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}, 0},
	{FileTypeSQLite, []byte("SQLite format 3"), 0},
}

// ValidateFileType validates that a file's content matches its claimed type based
// on filename extension. It reads the file's magic bytes to verify the actual type.
func ValidateFileType(reader io.Reader, filename string) (FileType, error) {
	// 512 bytes is enough for the tar ustar signature at offset 257.
	buf := make([]byte, 512)
	n, err := io.ReadFull(reader, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return FileTypeUnknown, fmt.Errorf("failed to read file header: %w", err)
	}
	buf = buf[:n]

	detectedType := detectFileTypeFromMagic(buf)
	expectedType := detectFileTypeFromExtension(filename)

	// XZ is a compression wrapper, so tar inside cannot be detected
	// until decompressed.
	if expectedType == FileTypeTarXZ && detectedType == FileTypeXZ {
		return FileTypeTarXZ, nil
	}
	if expectedType == FileTypeXZ && detectedType == FileTypeXZ {
		return FileTypeXZ, nil
	}

	if detectedType == expectedType {
		return detectedType, nil
	}

	// JSON and text files are hard to distinguish by magic bytes.
	if detectedType == FileTypeUnknown && (expectedType == FileTypeJSON || expectedType == FileTypeText) {
		if isLikelyText(buf) {
			return expectedType, nil
		}
	}

	if detectedType != FileTypeUnknown && expectedType != FileTypeUnknown {
		return FileTypeUnknown, fmt.Errorf("file type mismatch: extension suggests %s but content is %s", expectedType, detectedType)
	}

	if detectedType == FileTypeUnknown {
		return expectedType, nil
	}

	return detectedType, nil
}

// detectFileTypeFromMagic detects file type from magic bytes.
func detectFileTypeFromMagic(buf []byte) FileType {
	for _, sig := range magicBytes {
		if sig.offset+len(sig.magic) <= len(buf) {
			if bytes.Equal(buf[sig.offset:sig.offset+len(sig.magic)], sig.magic) {
				return sig.fileType
			}
		}
	}
	return FileTypeUnknown
}

// detectFileTypeFromExtension determines expected file type from filename extension.
func detectFileTypeFromExtension(filename string) FileType {
	lower := strings.ToLower(filename)

	if strings.HasSuffix(lower, ".tar.xz") {
		return FileTypeTarXZ
	}

	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".tar":
		return FileTypeTar
	case ".xz":
		return FileTypeXZ
	case ".sqlite", ".db", ".sqlite3":
		return FileTypeSQLite
	case ".json":
		return FileTypeJSON
	case ".txt", ".md":
		return FileTypeText
	default:
		return FileTypeUnknown
	}
}

// isLikelyText checks if the buffer contains likely text content.
func isLikelyText(buf []byte) bool {
	if len(buf) == 0 {
		return false
	}

	if bytes.IndexByte(buf, 0) != -1 {
		return false
	}

	printable := 0
	control := 0
	for _, b := range buf {
		if b >= 0x20 && b <= 0x7e || b == '\t' || b == '\n' || b == '\r' {
			printable++
		} else if b < 0x20 && b != '\t' && b != '\n' && b != '\r' {
			control++
		}
	}

	if printable > 0 && float64(printable)/float64(printable+control) > 0.95 {
		return true
	}

	return false
}

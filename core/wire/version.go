package wire

import (
	"golang.org/x/mod/semver"

	"github.com/openscribe/scribe/core/errors"
)

// Version constants for format dispatch.
const (
	// defaultVersion is assumed when a payload carries no pack_version key.
	defaultVersion = "0.0.0"

	// compactCutoff is the first version encoded in the compact columnar
	// format. Everything below it is the legacy tagged-object format.
	compactCutoff = "0.0.2"

	// LegacyVersion is the version written when encoding the legacy format.
	LegacyVersion = "0.0.1"

	// CompactVersion is the version written when encoding the compact format.
	CompactVersion = compactCutoff
)

// packVersion reads the pack_version key from a raw tree, applying the
// default when absent. A non-string version value is a format error.
func packVersion(tree map[string]interface{}) (string, error) {
	raw, ok := tree[keyVersion]
	if !ok {
		return defaultVersion, nil
	}
	ver, ok := raw.(string)
	if !ok {
		return "", errors.NewParse("pack", "", "pack_version is not a string")
	}
	return ver, nil
}

// isLegacy reports whether a version string predates the compact cutoff.
// Comparison is semantic-version ordering, not string ordering: "0.0.10"
// is compact even though it sorts before "0.0.2" lexically. An invalid
// version encoding is a format error.
func isLegacy(version string) (bool, error) {
	canonical := "v" + version
	if !semver.IsValid(canonical) {
		return false, errors.NewParse("pack", "", "unsupported pack_version "+version)
	}
	return semver.Compare(canonical, "v"+compactCutoff) < 0, nil
}

// treeIsLegacy combines version read and comparison for a parsed tree.
func treeIsLegacy(tree map[string]interface{}) (bool, error) {
	ver, err := packVersion(tree)
	if err != nil {
		return false, err
	}
	return isLegacy(ver)
}

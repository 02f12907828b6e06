// Package wire decodes and mutates the two wire formats of an annotation
// pack: the legacy tagged-object format and the compact columnar format.
//
// Decoding produces the normalized model in core/pack. Mutation operates on
// the raw JSON tree instead, so unknown keys survive a write untouched, and
// re-serializes the entire document. Numeric values are carried as
// json.Number end to end so identifiers keep their exact wire form.
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openscribe/scribe/core/errors"
)

// Structural keys shared by both wire formats.
const (
	keyVersion     = "pack_version"
	keyText        = "text"
	keyMeta        = "meta"
	keyMetaLegacy  = "_meta"
	keyType        = "type"
	keyState       = "state"
	keyAnnotations = "annotations"
	keyLinks       = "links"
	keyGroups      = "groups"
	keyDataStore   = "data_store"
	keyFields      = "fields"
	keyEntries     = "entries"
	keyAttributes  = "attributes"
)

// State record keys carried by legacy entries.
const (
	keySpan    = "_span"
	keyBegin   = "begin"
	keyEnd     = "end"
	keyTID     = "_tid"
	keyParent  = "_parent"
	keyChild   = "_child"
	keyMembers = "_members"
)

// parseTree decodes a raw payload into a generic JSON tree, labeling parse
// failures with the payload kind ("pack", "entry"). Numbers are kept as
// json.Number so re-serialization does not lose precision.
func parseTree(rawText, format string) (map[string]interface{}, error) {
	dec := json.NewDecoder(strings.NewReader(rawText))
	dec.UseNumber()

	var tree map[string]interface{}
	if err := dec.Decode(&tree); err != nil {
		return nil, &errors.ParseError{Format: format, Message: "payload is not a JSON object", Err: err}
	}
	return tree, nil
}

// serializeTree re-serializes the whole tree. encoding/json sorts object
// keys, so output is byte-for-byte deterministic for a given tree.
func serializeTree(tree map[string]interface{}) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(tree); err != nil {
		return "", errors.Wrap(err, "serializing pack")
	}
	// Encoder appends a trailing newline; the stored form has none.
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// asMap returns v as a JSON object, if it is one.
func asMap(v interface{}) (map[string]interface{}, bool) {
	m, ok := v.(map[string]interface{})
	return m, ok
}

// asList returns v as a JSON array, if it is one.
func asList(v interface{}) ([]interface{}, bool) {
	l, ok := v.([]interface{})
	return l, ok
}

// idString renders an identifier value in its canonical string form.
// Identifiers appear on the wire as numbers or strings depending on which
// writer produced the document; comparisons are always on the string form.
func idString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// asInt coerces a JSON scalar to an int. Span offsets and slot indices are
// the only callers; both are small non-negative integers on the wire.
func asInt(v interface{}) (int, bool) {
	switch val := v.(type) {
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case float64:
		return int(val), true
	case int:
		return val, true
	default:
		return 0, false
	}
}

// idList renders a wire array of identifiers as strings.
func idList(v interface{}) []string {
	list, ok := asList(v)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		out = append(out, idString(item))
	}
	return out
}

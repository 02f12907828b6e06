package wire

import (
	"reflect"
	"testing"

	"github.com/openscribe/scribe/core/errors"
	"github.com/openscribe/scribe/core/ontology"
	"github.com/openscribe/scribe/core/pack"
)

// testSchema mirrors the small corpus hierarchy used across the wire tests.
const testSchema = `{
  "definitions": [
    {"entry_name": "scribe.ontology.base.Annotation"},
    {"entry_name": "scribe.ontology.base.Link"},
    {"entry_name": "scribe.ontology.base.Group"},
    {"entry_name": "corpus.Span", "parent_entry": "scribe.ontology.base.Annotation",
     "attributes": [{"name": "label"}]},
    {"entry_name": "corpus.Token", "parent_entry": "corpus.Span",
     "attributes": [{"name": "pos"}, {"name": "lemma"}]},
    {"entry_name": "corpus.Relation", "parent_entry": "scribe.ontology.base.Link",
     "attributes": [{"name": "rel_type"}]},
    {"entry_name": "corpus.Coref", "parent_entry": "scribe.ontology.base.Group",
     "member_type": "corpus.Token"}
  ]
}`

const legacyFixture = `{
  "pack_version": "0.0.1",
  "text": "The quick brown fox jumps",
  "annotations": [
    {"type": "corpus.Token", "state": {"_span": {"begin": 0, "end": 3}, "_tid": 1, "pos": "DT", "lemma": "the", "debug": true}},
    {"type": "corpus.Token", "state": {"_span": {"begin": 4, "end": 9}, "_tid": 2, "pos": "JJ", "lemma": "quick"}},
    {"type": "corpus.Token"}
  ],
  "links": [
    {"type": "corpus.Relation", "state": {"_tid": 3, "_parent": 1, "_child": 2, "rel_type": "amod"}}
  ],
  "groups": [
    {"type": "corpus.Coref", "state": {"_tid": 4, "_members": [1, 2]}}
  ],
  "_meta": {"lang": "en"}
}`

const compactFixture = `{
  "pack_version": "0.0.2",
  "text": "The quick brown fox jumps",
  "data_store": {
    "fields": {
      "corpus.Token": {"attributes": {"pos": 4, "lemma": 5}},
      "corpus.Relation": {"attributes": {"rel_type": 4}},
      "corpus.Coref": {"attributes": {}}
    },
    "entries": {
      "corpus.Token": [
        [0, 3, 1, "corpus.Token", "DT", "the"],
        [4, 9, 2, "corpus.Token", "JJ"]
      ],
      "corpus.Relation": [[1, 2, 3, "corpus.Relation", "amod"]],
      "corpus.Coref": [[null, [1, 2], 4, "corpus.Coref"]],
      "internal.Index": [[0, 0, 99, "internal.Index"]]
    }
  },
  "meta": {"lang": "en"}
}`

func testIndex(t *testing.T) *ontology.Index {
	t.Helper()
	idx, err := ontology.Build(testSchema)
	if err != nil {
		t.Fatalf("ontology.Build() error: %v", err)
	}
	return idx
}

func mustDecode(t *testing.T, raw string) *pack.Pack {
	t.Helper()
	p, err := Decode(raw, testIndex(t))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	return p
}

func TestDecodeLegacy(t *testing.T) {
	p := mustDecode(t, legacyFixture)

	if p.Text != "The quick brown fox jumps" {
		t.Errorf("Text = %q", p.Text)
	}

	// The third annotation has no state record and is skipped, not errored.
	if len(p.Annotations) != 2 {
		t.Fatalf("len(Annotations) = %d, want 2", len(p.Annotations))
	}
	first := p.Annotations[0]
	if first.ID != "1" || first.Span.Begin != 0 || first.Span.End != 3 {
		t.Errorf("first annotation = %+v", first)
	}
	if first.LegendID != "corpus.Token" {
		t.Errorf("LegendID = %q", first.LegendID)
	}
	// Attribute projection keeps declared attributes and drops the rest.
	if _, ok := first.Attributes["debug"]; ok {
		t.Errorf("undeclared attribute leaked into projection: %v", first.Attributes)
	}
	if first.Attributes["pos"] != "DT" || first.Attributes["lemma"] != "the" {
		t.Errorf("Attributes = %v", first.Attributes)
	}

	if len(p.Links) != 1 {
		t.Fatalf("len(Links) = %d, want 1", len(p.Links))
	}
	link := p.Links[0]
	if link.ID != "3" || link.FromEntryID != "1" || link.ToEntryID != "2" {
		t.Errorf("link = %+v", link)
	}
	if link.Attributes["rel_type"] != "amod" {
		t.Errorf("link attributes = %v", link.Attributes)
	}

	if len(p.Groups) != 1 {
		t.Fatalf("len(Groups) = %d, want 1", len(p.Groups))
	}
	group := p.Groups[0]
	if group.ID != "4" || group.MemberType != pack.KindAnnotation {
		t.Errorf("group = %+v", group)
	}
	if !reflect.DeepEqual(group.Members, []string{"1", "2"}) {
		t.Errorf("group members = %v", group.Members)
	}

	// Global attributes fall back to the _meta key.
	if p.Attributes["lang"] != "en" {
		t.Errorf("global attributes = %v", p.Attributes)
	}
}

func TestDecodeCompact(t *testing.T) {
	p := mustDecode(t, compactFixture)

	if len(p.Annotations) != 2 {
		t.Fatalf("len(Annotations) = %d, want 2", len(p.Annotations))
	}
	first := p.Annotations[0]
	if first.ID != "1" || first.Span.Begin != 0 || first.Span.End != 3 {
		t.Errorf("first annotation = %+v", first)
	}
	if first.Attributes["pos"] != "DT" {
		t.Errorf("Attributes = %v", first.Attributes)
	}

	// The second token row is one column short: its lemma slot reads null.
	second := p.Annotations[1]
	if second.Attributes["pos"] != "JJ" {
		t.Errorf("second token attributes = %v", second.Attributes)
	}
	if val, ok := second.Attributes["lemma"]; !ok || val != nil {
		t.Errorf("short row should read lemma as null, got %v (present=%v)", val, ok)
	}

	if len(p.Links) != 1 || p.Links[0].FromEntryID != "1" || p.Links[0].ToEntryID != "2" {
		t.Errorf("links = %+v", p.Links)
	}

	if len(p.Groups) != 1 {
		t.Fatalf("len(Groups) = %d, want 1", len(p.Groups))
	}
	if !reflect.DeepEqual(p.Groups[0].Members, []string{"1", "2"}) {
		t.Errorf("group members = %v", p.Groups[0].Members)
	}

	// internal.Index classifies as Unknown and is skipped entirely.
	if p.EntryCount() != 4 {
		t.Errorf("EntryCount() = %d, want 4", p.EntryCount())
	}

	if p.Attributes["lang"] != "en" {
		t.Errorf("global attributes = %v", p.Attributes)
	}
}

func TestVersionDispatchThreshold(t *testing.T) {
	tests := []struct {
		name       string
		version    string // empty = omit the key
		wantLegacy bool
	}{
		{"absent defaults to 0.0.0 legacy", "", true},
		{"0.0.1 is legacy", "0.0.1", true},
		{"0.0.2 is compact", "0.0.2", false},
		{"0.1.0 is compact", "0.1.0", false},
		{"0.0.10 is compact despite string order", "0.0.10", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := map[string]interface{}{}
			if tt.version != "" {
				tree[keyVersion] = tt.version
			}
			got, err := treeIsLegacy(tree)
			if err != nil {
				t.Fatalf("treeIsLegacy() error: %v", err)
			}
			if got != tt.wantLegacy {
				t.Errorf("treeIsLegacy(%q) = %v, want %v", tt.version, got, tt.wantLegacy)
			}
		})
	}
}

func TestDecodeInvalidVersion(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"non-semver string", `{"pack_version": "two point oh"}`},
		{"non-string version", `{"pack_version": 2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.raw, testIndex(t))
			if err == nil {
				t.Fatalf("Decode() should fail")
			}
			var parseErr *errors.ParseError
			if !errors.As(err, &parseErr) {
				t.Errorf("error type = %T, want *errors.ParseError", err)
			}
		})
	}
}

func TestDecodeUnparseablePayload(t *testing.T) {
	_, err := Decode("{truncated", testIndex(t))
	if err == nil {
		t.Fatalf("Decode() should fail on malformed JSON")
	}
	var parseErr *errors.ParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("error type = %T, want *errors.ParseError", err)
	}
}

func TestDecodeCompactMissingDataStore(t *testing.T) {
	_, err := Decode(`{"pack_version": "0.0.2", "text": ""}`, testIndex(t))
	if err == nil {
		t.Fatalf("Decode() should fail without data_store")
	}
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("error should unwrap to ErrInvalidInput, got %v", err)
	}
}

func TestDecodeMetaPrecedence(t *testing.T) {
	// When both keys are present, meta wins over _meta.
	raw := `{"pack_version": "0.0.1", "text": "", "meta": {"src": "new"}, "_meta": {"src": "old"}}`
	p := mustDecode(t, raw)
	if p.Attributes["src"] != "new" {
		t.Errorf("meta should take precedence over _meta, got %v", p.Attributes)
	}

	// Neither present: empty, non-nil map.
	p = mustDecode(t, `{"pack_version": "0.0.1", "text": ""}`)
	if p.Attributes == nil || len(p.Attributes) != 0 {
		t.Errorf("absent meta should decode to empty map, got %v", p.Attributes)
	}
}

func TestDecodeGroupWithBadMemberType(t *testing.T) {
	schema := `{
	  "definitions": [
	    {"entry_name": "scribe.ontology.base.Group"},
	    {"entry_name": "corpus.Odd", "parent_entry": "scribe.ontology.base.Group",
	     "member_type": "corpus.Missing"}
	  ]
	}`
	idx, err := ontology.Build(schema)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	raw := `{"pack_version": "0.0.1", "text": "",
	  "groups": [{"type": "corpus.Odd", "state": {"_tid": 1, "_members": []}}]}`
	_, err = Decode(raw, idx)
	if err == nil {
		t.Fatalf("Decode() should fail on unresolvable group member type")
	}
	var schemaErr *errors.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Errorf("error type = %T, want *errors.SchemaError", err)
	}
}

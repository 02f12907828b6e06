// Package ontology parses per-project ontology schemas and resolves the
// entry-type inheritance hierarchy. An Index classifies concrete entry types
// against the three fixed root types and projects attribute maps down to the
// attributes a type declares.
//
// Indexes are cheap to build and carry no cross-call state; callers rebuild
// them from the authoritative schema text on every operation.
package ontology

import (
	"encoding/json"

	"github.com/openscribe/scribe/core/errors"
	"github.com/openscribe/scribe/core/pack"
)

// Root type names. Classification walks the parent chain until it reaches
// one of these or runs out of definitions.
const (
	RootAnnotation = "scribe.ontology.base.Annotation"
	RootLink       = "scribe.ontology.base.Link"
	RootGroup      = "scribe.ontology.base.Group"
)

// Attribute is a single attribute declaration within a definition.
type Attribute struct {
	// Name is the attribute name as it appears in entry state records.
	Name string `json:"name"`
}

// Definition describes one entry type in the ontology schema.
type Definition struct {
	// EntryName is the fully qualified type name.
	EntryName string `json:"entry_name"`

	// ParentEntry is the parent type name, empty for roots.
	ParentEntry string `json:"parent_entry,omitempty"`

	// Attributes lists the declared attributes in schema order.
	Attributes []Attribute `json:"attributes,omitempty"`

	// MemberType is the member entry type for group definitions.
	MemberType string `json:"member_type,omitempty"`
}

// schemaDoc is the top-level shape of an ontology schema document.
type schemaDoc struct {
	Definitions []Definition `json:"definitions"`
}

// Index is an immutable registry of entry-type definitions built from one
// ontology schema document.
type Index struct {
	defs map[string]*Definition
}

// Build parses an ontology schema into an Index. A schema with no
// definitions key yields an empty index; malformed JSON is a SchemaError.
func Build(schemaText string) (*Index, error) {
	var doc schemaDoc
	if err := json.Unmarshal([]byte(schemaText), &doc); err != nil {
		return nil, &errors.SchemaError{Message: "malformed ontology schema", Err: err}
	}

	idx := &Index{defs: make(map[string]*Definition, len(doc.Definitions))}
	for i := range doc.Definitions {
		def := &doc.Definitions[i]
		idx.defs[def.EntryName] = def
	}
	return idx, nil
}

// Definition returns the definition for an entry type, if declared.
func (x *Index) Definition(entryName string) (*Definition, bool) {
	def, ok := x.defs[entryName]
	return def, ok
}

// Classify resolves an entry type to its kind by walking the parent chain
// until it hits one of the root types. Unknown types, broken chains, and
// cyclic chains all classify as Unknown; the visited set guarantees
// termination on malformed schemas.
func (x *Index) Classify(entryName string) pack.Kind {
	visited := make(map[string]bool)
	for name := entryName; name != "" && !visited[name]; {
		visited[name] = true

		switch name {
		case RootAnnotation:
			return pack.KindAnnotation
		case RootLink:
			return pack.KindLink
		case RootGroup:
			return pack.KindGroup
		}

		def, ok := x.defs[name]
		if !ok {
			return pack.KindUnknown
		}
		name = def.ParentEntry
	}
	return pack.KindUnknown
}

// AttributeNames returns the attribute names declared for an entry type in
// schema declaration order, or nil if the type declares none. The order is
// load-bearing: the compact-format field registry assigns slots in exactly
// this order, and reassigning slots would corrupt existing documents.
func (x *Index) AttributeNames(entryName string) []string {
	def, ok := x.defs[entryName]
	if !ok || len(def.Attributes) == 0 {
		return nil
	}
	names := make([]string, 0, len(def.Attributes))
	for _, attr := range def.Attributes {
		names = append(names, attr.Name)
	}
	return names
}

// HasAttribute reports whether an entry type declares the named attribute.
func (x *Index) HasAttribute(entryName, attrName string) bool {
	def, ok := x.defs[entryName]
	if !ok {
		return false
	}
	for _, attr := range def.Attributes {
		if attr.Name == attrName {
			return true
		}
	}
	return false
}

// ProjectAttributes filters kv down to the keys the entry type declares as
// attributes. The result is always non-nil.
func (x *Index) ProjectAttributes(entryName string, kv map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	for key, val := range kv {
		if x.HasAttribute(entryName, key) {
			out[key] = val
		}
	}
	return out
}

// GroupMemberType resolves a group type's declared member type to a kind.
// A member type that classifies as neither annotation nor link is a
// SchemaError, as is a group type with no definition.
func (x *Index) GroupMemberType(entryName string) (pack.Kind, error) {
	def, ok := x.defs[entryName]
	if !ok {
		return pack.KindUnknown, errors.NewSchema(entryName, "no definition for group type")
	}

	switch kind := x.Classify(def.MemberType); kind {
	case pack.KindAnnotation, pack.KindLink:
		return kind, nil
	default:
		return pack.KindUnknown, errors.NewSchema(entryName, "group member type resolves to neither annotation nor link")
	}
}

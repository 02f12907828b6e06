// Package pack defines the normalized, version-independent model of an
// annotation pack: source text plus typed annotation, link, and group entries.
// Format handlers in core/wire decode either wire format into these types;
// the normalized form is never itself persisted.
package pack

// Kind classifies an entry type against the three ontology roots.
type Kind string

// Entry kind constants.
const (
	KindAnnotation Kind = "annotation"
	KindLink       Kind = "link"
	KindGroup      Kind = "group"
	KindUnknown    Kind = "unknown"
)

// validKinds is the set of concrete entry kinds.
var validKinds = map[Kind]bool{
	KindAnnotation: true,
	KindLink:       true,
	KindGroup:      true,
}

// IsValid returns true if the kind is a concrete entry kind (not Unknown).
func (k Kind) IsValid() bool {
	return validKinds[k]
}

// Span is a half-open byte range [Begin, End) into the pack text.
type Span struct {
	// Begin is the offset where the annotated region starts.
	Begin int `json:"begin"`

	// End is the offset one past the last byte of the region.
	End int `json:"end"`
}

// Annotation is a typed span over the pack text.
type Annotation struct {
	// Span is the annotated region.
	Span Span `json:"span"`

	// ID is the entry identifier, unique within the annotation bucket.
	ID string `json:"id"`

	// LegendID is the concrete ontology type name of this entry.
	LegendID string `json:"legendId"`

	// Attributes holds the ontology-declared attribute values.
	Attributes map[string]interface{} `json:"attributes"`
}

// Link is a typed, directed relation between two entries.
type Link struct {
	// ID is the entry identifier, unique within the link bucket.
	ID string `json:"id"`

	// FromEntryID is the source entry of the relation.
	FromEntryID string `json:"fromEntryId"`

	// ToEntryID is the target entry of the relation.
	ToEntryID string `json:"toEntryId"`

	// LegendID is the concrete ontology type name of this entry.
	LegendID string `json:"legendId"`

	// Attributes holds the ontology-declared attribute values.
	Attributes map[string]interface{} `json:"attributes"`
}

// Group is a typed collection of member entries.
type Group struct {
	// ID is the entry identifier, unique within the group bucket.
	ID string `json:"id"`

	// Members lists the member entry IDs in wire order.
	Members []string `json:"members"`

	// MemberType is the kind of the members (annotation or link).
	MemberType Kind `json:"memberType"`

	// LegendID is the concrete ontology type name of this entry.
	LegendID string `json:"legendId"`

	// Attributes holds the ontology-declared attribute values.
	Attributes map[string]interface{} `json:"attributes"`
}

// Pack is the normalized form of an annotation document. It is produced by
// decoding a raw wire payload and consumed by readers; writes go through the
// wire mutator against the raw tree instead.
type Pack struct {
	// Text is the source text the entries annotate.
	Text string `json:"text"`

	// Annotations contains all span entries.
	Annotations []*Annotation `json:"annotations"`

	// Links contains all relation entries.
	Links []*Link `json:"links"`

	// Groups contains all collection entries.
	Groups []*Group `json:"groups"`

	// Attributes contains document-global attributes.
	Attributes map[string]interface{} `json:"attributes"`
}

// EntryCount returns the total number of entries across all buckets.
func (p *Pack) EntryCount() int {
	return len(p.Annotations) + len(p.Links) + len(p.Groups)
}

// FindAnnotation returns the annotation with the given id, or nil.
func (p *Pack) FindAnnotation(id string) *Annotation {
	for _, a := range p.Annotations {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// FindLink returns the link with the given id, or nil.
func (p *Pack) FindLink(id string) *Link {
	for _, l := range p.Links {
		if l.ID == id {
			return l
		}
	}
	return nil
}

// FindGroup returns the group with the given id, or nil.
func (p *Pack) FindGroup(id string) *Group {
	for _, g := range p.Groups {
		if g.ID == id {
			return g
		}
	}
	return nil
}

package wire

import (
	"encoding/json"
	"strconv"

	"github.com/openscribe/scribe/core/ontology"
)

// attrSlotOffset is the first attribute column in a compact-format row.
// Columns 0-3 are the kind-specific positional prefix (span/endpoint data,
// entry id, type tag).
const attrSlotOffset = 4

// fieldRegistry wraps the compact format's inline "fields" structure: the
// per-type mapping from attribute name to positional slot index. It is not
// a separate persisted object; it lives inside the document's data_store
// and mutates in place.
//
// Slot assignment is append-only for the lifetime of a document. Once a
// type's slots are persisted they are never reassigned, even if the
// ontology later declares more attributes: new names get no slot unless
// the registry entry is rebuilt. Reassigning would silently re-address
// every existing row of that type.
type fieldRegistry struct {
	fields map[string]interface{}
}

// registryFrom returns the registry backed by the data_store's fields
// mapping, creating the mapping if absent.
func registryFrom(dataStore map[string]interface{}) *fieldRegistry {
	fields, ok := asMap(dataStore[keyFields])
	if !ok {
		fields = make(map[string]interface{})
		dataStore[keyFields] = fields
	}
	return &fieldRegistry{fields: fields}
}

// slotMap returns the attribute-name to slot-index mapping for an entry
// type, or false if the type has no registry entry yet.
func (r *fieldRegistry) slotMap(entryType string) (map[string]int, bool) {
	typeFields, ok := asMap(r.fields[entryType])
	if !ok {
		return nil, false
	}
	rawAttrs, ok := asMap(typeFields[keyAttributes])
	if !ok {
		return nil, false
	}

	slots := make(map[string]int, len(rawAttrs))
	for name, rawIdx := range rawAttrs {
		if idx, ok := asInt(rawIdx); ok {
			slots[name] = idx
		}
	}
	return slots, true
}

// ensure returns the slot map for an entry type, creating the registry
// entry on first encounter. New entries assign slots in the exact order
// the ontology enumerates the type's attributes, starting at
// attrSlotOffset. The enumeration order is the schema declaration order,
// which is deterministic, so two writers building the same type from the
// same schema produce the same layout.
func (r *fieldRegistry) ensure(entryType string, idx *ontology.Index) map[string]int {
	if slots, ok := r.slotMap(entryType); ok {
		return slots
	}

	names := idx.AttributeNames(entryType)
	rawAttrs := make(map[string]interface{}, len(names))
	slots := make(map[string]int, len(names))
	for i, name := range names {
		slot := attrSlotOffset + i
		rawAttrs[name] = json.Number(strconv.Itoa(slot))
		slots[name] = slot
	}
	r.fields[entryType] = map[string]interface{}{keyAttributes: rawAttrs}
	return slots
}

// rowWidth returns the full row length for a slot map: the positional
// prefix plus the highest assigned slot.
func rowWidth(slots map[string]int) int {
	width := attrSlotOffset
	for _, slot := range slots {
		if slot+1 > width {
			width = slot + 1
		}
	}
	return width
}

package wire

import (
	"github.com/openscribe/scribe/core/ontology"
	"github.com/openscribe/scribe/core/pack"
)

// EncodeLegacy serializes a normalized pack into the legacy tagged-object
// format, stamped with the newest legacy version.
func EncodeLegacy(p *pack.Pack) (string, error) {
	annotations := make([]interface{}, 0, len(p.Annotations))
	for _, ann := range p.Annotations {
		annotations = append(annotations, legacyEnvelope(ann.LegendID, ann.Attributes, map[string]interface{}{
			keySpan: map[string]interface{}{keyBegin: ann.Span.Begin, keyEnd: ann.Span.End},
			keyTID:  ann.ID,
		}))
	}

	links := make([]interface{}, 0, len(p.Links))
	for _, link := range p.Links {
		links = append(links, legacyEnvelope(link.LegendID, link.Attributes, map[string]interface{}{
			keyTID:    link.ID,
			keyParent: link.FromEntryID,
			keyChild:  link.ToEntryID,
		}))
	}

	groups := make([]interface{}, 0, len(p.Groups))
	for _, group := range p.Groups {
		groups = append(groups, legacyEnvelope(group.LegendID, group.Attributes, map[string]interface{}{
			keyTID:     group.ID,
			keyMembers: memberList(group.Members),
		}))
	}

	return serializeTree(map[string]interface{}{
		keyVersion:     LegacyVersion,
		keyText:        p.Text,
		keyAnnotations: annotations,
		keyLinks:       links,
		keyGroups:      groups,
		keyMeta:        globalOrEmpty(p.Attributes),
	})
}

// EncodeCompact serializes a normalized pack into the compact columnar
// format. Field layouts are allocated fresh from the ontology, so the
// output is the canonical layout for the given schema.
func EncodeCompact(p *pack.Pack, idx *ontology.Index) (string, error) {
	dataStore := map[string]interface{}{
		keyFields:  map[string]interface{}{},
		keyEntries: map[string]interface{}{},
	}
	registry := registryFrom(dataStore)
	entries, _ := asMap(dataStore[keyEntries])

	appendRow := func(entryType string, kind pack.Kind, state map[string]interface{}) error {
		slots := registry.ensure(entryType, idx)
		row, err := buildRow(&Entry{Type: entryType, State: state}, kind, slots)
		if err != nil {
			return err
		}
		bucket, _ := asList(entries[entryType])
		entries[entryType] = append(bucket, row)
		return nil
	}

	for _, ann := range p.Annotations {
		state := stateWithAttrs(ann.Attributes, map[string]interface{}{
			keySpan: map[string]interface{}{keyBegin: ann.Span.Begin, keyEnd: ann.Span.End},
			keyTID:  ann.ID,
		})
		if err := appendRow(ann.LegendID, pack.KindAnnotation, state); err != nil {
			return "", err
		}
	}

	for _, link := range p.Links {
		state := stateWithAttrs(link.Attributes, map[string]interface{}{
			keyTID:    link.ID,
			keyParent: link.FromEntryID,
			keyChild:  link.ToEntryID,
		})
		if err := appendRow(link.LegendID, pack.KindLink, state); err != nil {
			return "", err
		}
	}

	for _, group := range p.Groups {
		state := stateWithAttrs(group.Attributes, map[string]interface{}{
			keyTID:     group.ID,
			keyMembers: memberList(group.Members),
		})
		if err := appendRow(group.LegendID, pack.KindGroup, state); err != nil {
			return "", err
		}
	}

	return serializeTree(map[string]interface{}{
		keyVersion:   CompactVersion,
		keyText:      p.Text,
		keyDataStore: dataStore,
		keyMeta:      globalOrEmpty(p.Attributes),
	})
}

// legacyEnvelope builds a {type, state} object from positional fields and
// attribute values.
func legacyEnvelope(typeTag string, attrs, positional map[string]interface{}) map[string]interface{} {
	state := stateWithAttrs(attrs, positional)
	return map[string]interface{}{keyType: typeTag, keyState: state}
}

// stateWithAttrs merges attribute values into a positional state record.
// Positional keys win on collision; an attribute named like a positional
// field would corrupt the record.
func stateWithAttrs(attrs, positional map[string]interface{}) map[string]interface{} {
	state := make(map[string]interface{}, len(attrs)+len(positional))
	for name, val := range attrs {
		state[name] = val
	}
	for name, val := range positional {
		state[name] = val
	}
	return state
}

// memberList renders member ids as a wire array.
func memberList(members []string) []interface{} {
	out := make([]interface{}, 0, len(members))
	for _, id := range members {
		out = append(out, id)
	}
	return out
}

// globalOrEmpty never writes a null meta object.
func globalOrEmpty(attrs map[string]interface{}) map[string]interface{} {
	if attrs == nil {
		return map[string]interface{}{}
	}
	return attrs
}

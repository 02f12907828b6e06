package wire

import (
	"sort"

	"github.com/openscribe/scribe/core/errors"
	"github.com/openscribe/scribe/core/ontology"
	"github.com/openscribe/scribe/core/pack"
)

// Decode parses a raw pack payload into the normalized model, dispatching
// on pack_version: versions below 0.0.2 are the legacy tagged-object
// format, everything else the compact columnar format.
func Decode(rawText string, idx *ontology.Index) (*pack.Pack, error) {
	tree, err := parseTree(rawText, "pack")
	if err != nil {
		return nil, err
	}

	legacy, err := treeIsLegacy(tree)
	if err != nil {
		return nil, err
	}

	p := &pack.Pack{
		Annotations: []*pack.Annotation{},
		Links:       []*pack.Link{},
		Groups:      []*pack.Group{},
		Attributes:  globalAttributes(tree),
	}
	if text, ok := tree[keyText].(string); ok {
		p.Text = text
	}

	if legacy {
		err = decodeLegacy(tree, idx, p)
	} else {
		err = decodeCompact(tree, idx, p)
	}
	if err != nil {
		return nil, err
	}

	sortEntries(p)
	return p, nil
}

// globalAttributes reads document-global attributes from the meta key,
// falling back to the older _meta key, defaulting to empty.
func globalAttributes(tree map[string]interface{}) map[string]interface{} {
	if m, ok := asMap(tree[keyMeta]); ok {
		return m
	}
	if m, ok := asMap(tree[keyMetaLegacy]); ok {
		return m
	}
	return map[string]interface{}{}
}

// decodeLegacy reads the three tagged-object lists. Entries without a
// state record are skipped, not errored; absent lists decode as empty.
func decodeLegacy(tree map[string]interface{}, idx *ontology.Index, p *pack.Pack) error {
	for _, item := range legacyList(tree, keyAnnotations) {
		typeTag, state, ok := taggedObject(item)
		if !ok {
			continue
		}
		span, ok := asMap(state[keySpan])
		if !ok {
			return errors.NewParse("pack", "", "annotation state missing _span")
		}
		begin, beginOK := asInt(span[keyBegin])
		end, endOK := asInt(span[keyEnd])
		if !beginOK || !endOK {
			return errors.NewParse("pack", "", "annotation span offsets are not integers")
		}
		p.Annotations = append(p.Annotations, &pack.Annotation{
			Span:       pack.Span{Begin: begin, End: end},
			ID:         idString(state[keyTID]),
			LegendID:   typeTag,
			Attributes: idx.ProjectAttributes(typeTag, state),
		})
	}

	for _, item := range legacyList(tree, keyLinks) {
		typeTag, state, ok := taggedObject(item)
		if !ok {
			continue
		}
		p.Links = append(p.Links, &pack.Link{
			ID:          idString(state[keyTID]),
			FromEntryID: idString(state[keyParent]),
			ToEntryID:   idString(state[keyChild]),
			LegendID:    typeTag,
			Attributes:  idx.ProjectAttributes(typeTag, state),
		})
	}

	for _, item := range legacyList(tree, keyGroups) {
		typeTag, state, ok := taggedObject(item)
		if !ok {
			continue
		}
		memberType, err := idx.GroupMemberType(typeTag)
		if err != nil {
			return err
		}
		p.Groups = append(p.Groups, &pack.Group{
			ID:         idString(state[keyTID]),
			Members:    idList(state[keyMembers]),
			MemberType: memberType,
			LegendID:   typeTag,
			Attributes: idx.ProjectAttributes(typeTag, state),
		})
	}

	return nil
}

// legacyList returns a top-level entry list, or nil when absent.
func legacyList(tree map[string]interface{}, key string) []interface{} {
	list, _ := asList(tree[key])
	return list
}

// taggedObject unpacks a legacy {type, state} object. Items that are not
// objects or lack a state record report ok=false and are skipped upstream.
func taggedObject(item interface{}) (typeTag string, state map[string]interface{}, ok bool) {
	obj, isMap := asMap(item)
	if !isMap {
		return "", nil, false
	}
	state, isMap = asMap(obj[keyState])
	if !isMap {
		return "", nil, false
	}
	typeTag, _ = obj[keyType].(string)
	return typeTag, state, true
}

// decodeCompact reads the columnar data_store. Entry types that do not
// classify as annotation, link, or group are skipped; the document may
// carry bookkeeping types the ontology does not model.
func decodeCompact(tree map[string]interface{}, idx *ontology.Index, p *pack.Pack) error {
	dataStore, ok := asMap(tree[keyDataStore])
	if !ok {
		return errors.NewParse("pack", "", "compact pack missing data_store")
	}
	entries, ok := asMap(dataStore[keyEntries])
	if !ok {
		return errors.NewParse("pack", "", "compact pack missing data_store.entries")
	}
	registry := registryFrom(dataStore)

	for entryType, rawRows := range entries {
		kind := idx.Classify(entryType)
		if !kind.IsValid() {
			continue
		}
		rows, ok := asList(rawRows)
		if !ok {
			return errors.NewParse("pack", "", "entry list for "+entryType+" is not an array")
		}
		slots, ok := registry.slotMap(entryType)
		if !ok {
			return errors.NewParse("pack", "", "no field layout for entry type "+entryType)
		}

		for _, rawRow := range rows {
			row, ok := asList(rawRow)
			if !ok || len(row) < attrSlotOffset {
				return errors.NewParse("pack", "", "malformed row for entry type "+entryType)
			}
			attrs := rowAttributes(row, slots)

			switch kind {
			case pack.KindAnnotation:
				begin, beginOK := asInt(row[0])
				end, endOK := asInt(row[1])
				if !beginOK || !endOK {
					return errors.NewParse("pack", "", "annotation row offsets are not integers")
				}
				p.Annotations = append(p.Annotations, &pack.Annotation{
					Span:       pack.Span{Begin: begin, End: end},
					ID:         idString(row[2]),
					LegendID:   entryType,
					Attributes: attrs,
				})

			case pack.KindLink:
				p.Links = append(p.Links, &pack.Link{
					ID:          idString(row[2]),
					FromEntryID: idString(row[0]),
					ToEntryID:   idString(row[1]),
					LegendID:    entryType,
					Attributes:  attrs,
				})

			case pack.KindGroup:
				memberType, err := idx.GroupMemberType(entryType)
				if err != nil {
					return err
				}
				p.Groups = append(p.Groups, &pack.Group{
					ID:         idString(row[2]),
					Members:    idList(row[1]),
					MemberType: memberType,
					LegendID:   entryType,
					Attributes: attrs,
				})
			}
		}
	}

	return nil
}

// sortEntries orders decoded entries by type tag. Compact buckets live in
// a JSON object, whose iteration order is unspecified here; a stable sort
// on the type tag keeps row order within each bucket, makes the normalized
// form deterministic, and gives both format branches the same ordering.
func sortEntries(p *pack.Pack) {
	sort.SliceStable(p.Annotations, func(i, j int) bool {
		return p.Annotations[i].LegendID < p.Annotations[j].LegendID
	})
	sort.SliceStable(p.Links, func(i, j int) bool {
		return p.Links[i].LegendID < p.Links[j].LegendID
	})
	sort.SliceStable(p.Groups, func(i, j int) bool {
		return p.Groups[i].LegendID < p.Groups[j].LegendID
	})
}

// rowAttributes recovers named attribute values from a positional row.
// A slot past the end of the row reads as null: rows written before a
// registry entry grew are narrower than the current layout.
func rowAttributes(row []interface{}, slots map[string]int) map[string]interface{} {
	attrs := make(map[string]interface{}, len(slots))
	for name, slot := range slots {
		if slot < len(row) {
			attrs[name] = row[slot]
		} else {
			attrs[name] = nil
		}
	}
	return attrs
}

package wire

import (
	"sort"

	"github.com/openscribe/scribe/core/errors"
	"github.com/openscribe/scribe/core/ontology"
	"github.com/openscribe/scribe/core/pack"
)

// Entry is the tagged-object form a caller submits for add and edit: the
// concrete entry type name plus its state record.
type Entry struct {
	// Type is the concrete ontology type name.
	Type string

	// State is the raw state record: positional fields (_span, _tid,
	// _parent, _child, _members) plus attribute values.
	State map[string]interface{}
}

// entryEnvelope is the wire shape of a submitted entry.
type entryEnvelope struct {
	Type  string `json:"type"`
	State map[string]interface{} `json:"state"`
}

// ParseEntry decodes a submitted entry payload.
func ParseEntry(entryText string) (*Entry, error) {
	tree, err := parseTree(entryText, "entry")
	if err != nil {
		return nil, err
	}
	typeTag, state, ok := taggedObject(tree)
	if !ok || typeTag == "" {
		return nil, errors.NewParse("entry", "", "entry must be a {type, state} object")
	}
	return &Entry{Type: typeTag, State: state}, nil
}

// tid returns the entry's identifier in canonical string form.
func (e *Entry) tid() string {
	return idString(e.State[keyTID])
}

// ID returns the entry's identifier, or "" when the state carries none.
func (e *Entry) ID() string {
	return e.tid()
}

// Add inserts an entry into the raw pack and re-serializes the document.
// The entry type must classify as annotation, link, or group; adding a
// group to a legacy pack is unsupported (the legacy writer never defined
// a group insertion, and silently dropping the entry hides data loss).
func Add(rawText string, entry *Entry, idx *ontology.Index) (string, error) {
	tree, kind, legacy, err := prepare(rawText, entry.Type, idx)
	if err != nil {
		return "", err
	}

	if legacy {
		if kind == pack.KindGroup {
			return "", errors.NewUnsupported("group add", "legacy packs have no group insertion")
		}
		list := legacyList(tree, legacyListKey(kind))
		tree[legacyListKey(kind)] = append(list, entry.envelope())
		return serializeTree(tree)
	}

	dataStore := ensureDataStore(tree)
	registry := registryFrom(dataStore)
	slots := registry.ensure(entry.Type, idx)

	row, err := buildRow(entry, kind, slots)
	if err != nil {
		return "", err
	}

	entries := ensureMap(dataStore, keyEntries)
	bucket, _ := asList(entries[entry.Type])
	entries[entry.Type] = append(bucket, row)
	return serializeTree(tree)
}

// Edit replaces the entry with the same id in place, at the first matching
// index found during a forward scan. A missing target is not an error: the
// document is re-serialized unchanged and changed reports false, so strict
// callers can surface their own not-found failure.
func Edit(rawText string, entry *Entry, idx *ontology.Index) (out string, changed bool, err error) {
	tree, kind, legacy, err := prepare(rawText, entry.Type, idx)
	if err != nil {
		return "", false, err
	}

	if legacy {
		list := legacyList(tree, legacyListKey(kind))
		for i, item := range list {
			_, state, ok := taggedObject(item)
			if !ok {
				continue
			}
			if idString(state[keyTID]) == entry.tid() {
				list[i] = entry.envelope()
				changed = true
				break
			}
		}
	} else if dataStore, ok := asMap(tree[keyDataStore]); ok {
		registry := registryFrom(dataStore)
		entries, _ := asMap(dataStore[keyEntries])
		if bucket, ok := asList(entries[entry.Type]); ok {
			slots := registry.ensure(entry.Type, idx)
			for i, rawRow := range bucket {
				row, ok := asList(rawRow)
				if !ok || len(row) <= 2 {
					continue
				}
				if idString(row[2]) == entry.tid() {
					newRow, buildErr := buildRow(entry, kind, slots)
					if buildErr != nil {
						return "", false, buildErr
					}
					bucket[i] = newRow
					changed = true
					break
				}
			}
		}
	}

	out, err = serializeTree(tree)
	return out, changed, err
}

// Delete removes the single entry with the given id. When duplicate ids
// exist, the last occurrence in scan order wins. Only annotations and
// links can be deleted; groups were never deletable on either format.
// A missing target re-serializes the document unchanged with changed=false.
func Delete(rawText string, entryID string, kind pack.Kind, idx *ontology.Index) (out string, changed bool, err error) {
	if kind != pack.KindAnnotation && kind != pack.KindLink {
		return "", false, errors.NewUnsupported("delete", "only annotation and link entries can be deleted")
	}

	tree, err := parseTree(rawText, "pack")
	if err != nil {
		return "", false, err
	}
	legacy, err := treeIsLegacy(tree)
	if err != nil {
		return "", false, err
	}

	if legacy {
		listKey := legacyListKey(kind)
		list := legacyList(tree, listKey)
		target := -1
		for i, item := range list {
			_, state, ok := taggedObject(item)
			if !ok {
				continue
			}
			if idString(state[keyTID]) == entryID {
				target = i
			}
		}
		if target >= 0 {
			tree[listKey] = append(list[:target:target], list[target+1:]...)
			changed = true
		}
	} else if dataStore, ok := asMap(tree[keyDataStore]); ok {
		if entries, ok := asMap(dataStore[keyEntries]); ok {
			changed = deleteCompact(entries, entryID, kind, idx)
		}
	}

	out, err = serializeTree(tree)
	return out, changed, err
}

// deleteCompact scans every bucket whose type classifies as kind, in
// sorted bucket order so "last occurrence" is well defined, and removes
// exactly the last matching row.
func deleteCompact(entries map[string]interface{}, entryID string, kind pack.Kind, idx *ontology.Index) bool {
	buckets := make([]string, 0, len(entries))
	for entryType := range entries {
		if idx.Classify(entryType) == kind {
			buckets = append(buckets, entryType)
		}
	}
	sort.Strings(buckets)

	targetBucket, targetIndex := "", -1
	for _, entryType := range buckets {
		rows, ok := asList(entries[entryType])
		if !ok {
			continue
		}
		for i, rawRow := range rows {
			row, ok := asList(rawRow)
			if !ok || len(row) <= 2 {
				continue
			}
			if idString(row[2]) == entryID {
				targetBucket, targetIndex = entryType, i
			}
		}
	}

	if targetIndex < 0 {
		return false
	}
	rows, _ := asList(entries[targetBucket])
	entries[targetBucket] = append(rows[:targetIndex:targetIndex], rows[targetIndex+1:]...)
	return true
}

// prepare parses the pack, classifies the entry type, and resolves the
// format branch. An entry type that classifies as Unknown is a schema
// error: the ontology cannot place it in any bucket.
func prepare(rawText, entryType string, idx *ontology.Index) (map[string]interface{}, pack.Kind, bool, error) {
	kind := idx.Classify(entryType)
	if !kind.IsValid() {
		return nil, kind, false, errors.NewSchema(entryType, "entry type does not resolve to annotation, link, or group")
	}

	tree, err := parseTree(rawText, "pack")
	if err != nil {
		return nil, kind, false, err
	}
	legacy, err := treeIsLegacy(tree)
	if err != nil {
		return nil, kind, false, err
	}
	return tree, kind, legacy, nil
}

// envelope renders the entry back into its wire form.
func (e *Entry) envelope() map[string]interface{} {
	return map[string]interface{}{keyType: e.Type, keyState: e.State}
}

// legacyListKey maps a kind to its legacy top-level list.
func legacyListKey(kind pack.Kind) string {
	switch kind {
	case pack.KindAnnotation:
		return keyAnnotations
	case pack.KindLink:
		return keyLinks
	default:
		return keyGroups
	}
}

// ensureDataStore returns the tree's data_store, creating it (with empty
// fields and entries) on a compact pack that has none yet.
func ensureDataStore(tree map[string]interface{}) map[string]interface{} {
	dataStore, ok := asMap(tree[keyDataStore])
	if !ok {
		dataStore = make(map[string]interface{})
		tree[keyDataStore] = dataStore
	}
	ensureMap(dataStore, keyFields)
	ensureMap(dataStore, keyEntries)
	return dataStore
}

// ensureMap returns parent[key] as an object, creating it when absent.
func ensureMap(parent map[string]interface{}, key string) map[string]interface{} {
	m, ok := asMap(parent[key])
	if !ok {
		m = make(map[string]interface{})
		parent[key] = m
	}
	return m
}

// buildRow lays out a compact-format row: the kind-specific positional
// prefix, the type tag, then attribute slots. Slots are padded with null
// and filled from whichever state keys the layout names; state keys the
// layout does not know get no column, per the append-only registry rule.
func buildRow(entry *Entry, kind pack.Kind, slots map[string]int) ([]interface{}, error) {
	row := make([]interface{}, rowWidth(slots))

	switch kind {
	case pack.KindAnnotation:
		span, ok := asMap(entry.State[keySpan])
		if !ok {
			return nil, errors.NewParse("entry", "", "annotation entry missing _span")
		}
		row[0] = span[keyBegin]
		row[1] = span[keyEnd]
	case pack.KindLink:
		row[0] = entry.State[keyParent]
		row[1] = entry.State[keyChild]
	case pack.KindGroup:
		members := entry.State[keyMembers]
		if members == nil {
			members = []interface{}{}
		}
		row[1] = members
	}
	row[2] = entry.State[keyTID]
	row[3] = entry.Type

	for name, slot := range slots {
		if val, ok := entry.State[name]; ok && slot < len(row) {
			row[slot] = val
		}
	}
	return row, nil
}


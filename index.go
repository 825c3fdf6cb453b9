// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package vaultdb

import (
	"fmt"

	"github.com/kraklabs/vaultdb/internal/document"
	"github.com/kraklabs/vaultdb/internal/vaulterr"
	"github.com/schollz/progressbar/v3"
)

func indexKey(collection, field string) string {
	return collection + "." + field
}

// indexValueKey maps a field value to its index entry key: missing and
// null are distinct reserved keys, everything else is its stringified form
// (spec §3: "Null and missing are mapped to distinct reserved key
// strings").
func indexValueKey(v document.Value, present bool) string {
	if !present {
		return missingIndexKey
	}
	if v.IsNull() {
		return nullIndexKey
	}
	return document.Stringify(v)
}

// CreateIndex builds a secondary index over (collection, field) from the
// collection's current documents. Fails with IndexError if an index with
// the same key already exists, or if unique is requested and duplicate
// values already exist.
func (db *Database) CreateIndex(collection, field string, unique, sparse bool) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	ok := true
	defer func() { db.metric.observeOp("create_index", ok) }()

	if err := db.createIndexLocked(collection, field, unique, sparse); err != nil {
		ok = false
		return err
	}
	db.appendOpLog("create_index", fmt.Sprintf("collection=%s field=%s unique=%v sparse=%v", collection, field, unique, sparse))
	if err := db.saveLocked(); err != nil {
		ok = false
		return err
	}
	return nil
}

func (db *Database) createIndexLocked(collection, field string, unique, sparse bool) error {
	coll, err := db.collectionLocked(collection)
	if err != nil {
		return err
	}
	key := indexKey(collection, field)
	if _, exists := db.indexes[key]; exists {
		return vaulterr.NewIndexError("index already exists", fmt.Sprintf("index on %s.%s already exists", collection, field))
	}

	idx := &indexState{
		collection: collection,
		field:      field,
		unique:     unique,
		sparse:     sparse,
		entries:    make(map[string]map[string]bool),
	}

	var bar *progressbar.ProgressBar
	if db.opts.ShowProgress && len(coll.documents) > 0 {
		bar = progressbar.NewOptions(len(coll.documents),
			progressbar.OptionSetDescription(fmt.Sprintf("indexing %s.%s", collection, field)),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	for id, doc := range coll.documents {
		plain, derr := decryptFields(doc, coll.schema, db.key)
		if derr != nil {
			return derr
		}
		v, present := document.Get(plain, field)
		if !present && sparse {
			if bar != nil {
				_ = bar.Add(1)
			}
			continue
		}
		vk := indexValueKey(v, present)
		if unique && vk != missingIndexKey && vk != nullIndexKey && len(idx.entries[vk]) > 0 {
			return vaulterr.NewIndexError("duplicate value", fmt.Sprintf("field %s has duplicate value %q across existing documents", field, vk))
		}
		if idx.entries[vk] == nil {
			idx.entries[vk] = make(map[string]bool)
		}
		idx.entries[vk][id] = true
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}

	db.indexes[key] = idx
	coll.indexes[field] = idx
	return nil
}

// DropIndex removes the index on (collection, field).
func (db *Database) DropIndex(collection, field string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	ok := true
	defer func() { db.metric.observeOp("drop_index", ok) }()

	key := indexKey(collection, field)
	if _, exists := db.indexes[key]; !exists {
		ok = false
		return vaulterr.NewIndexError("index not found", fmt.Sprintf("no index on %s.%s", collection, field))
	}
	delete(db.indexes, key)
	if coll, err := db.collectionLocked(collection); err == nil {
		delete(coll.indexes, field)
	}

	db.appendOpLog("drop_index", fmt.Sprintf("collection=%s field=%s", collection, field))
	if err := db.saveLocked(); err != nil {
		ok = false
		return err
	}
	return nil
}

// checkUniqueLocked reports a UniqueConstraintError if setting field to val
// on document id would collide with a different document's value.
func checkUniqueLocked(idx *indexState, vk, id string) error {
	if !idx.unique || vk == missingIndexKey || vk == nullIndexKey {
		return nil
	}
	for existing := range idx.entries[vk] {
		if existing != id {
			return vaulterr.NewUniqueConstraintError("unique constraint violated", fmt.Sprintf("field %s already has value %q", idx.field, vk))
		}
	}
	return nil
}

func addToIndexLocked(idx *indexState, vk, id string) {
	if idx.entries[vk] == nil {
		idx.entries[vk] = make(map[string]bool)
	}
	idx.entries[vk][id] = true
}

func removeFromIndexLocked(idx *indexState, vk, id string) {
	set := idx.entries[vk]
	if set == nil {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(idx.entries, vk)
	}
}

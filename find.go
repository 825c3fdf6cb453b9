// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package vaultdb

import (
	"github.com/kraklabs/vaultdb/internal/document"
	"github.com/kraklabs/vaultdb/internal/query"
)

// FindOptions shapes a Find call: sort keys (applied in order), skip,
// limit, and an optional field projection (spec §4.4).
type FindOptions struct {
	Sort       []query.SortKey
	Skip       int
	Limit      int
	Projection map[string]bool
}

// Find returns every document in collection matching filter, decrypted,
// sorted, skipped, limited, and projected as requested. Never leaks a
// field's encrypted storage form.
func (db *Database) Find(collection string, filter map[string]any, opts FindOptions) ([]map[string]any, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	ok := true
	defer func() { db.metric.observeOp("find", ok) }()

	docs, err := db.findLocked(collection, filter)
	if err != nil {
		ok = false
		return nil, err
	}

	query.Sort(docs, opts.Sort)
	docs = query.Skip(docs, opts.Skip)
	docs = query.Limit(docs, opts.Limit)

	proj := query.Projection(opts.Projection)
	out := make([]map[string]any, len(docs))
	for i, d := range docs {
		out[i] = document.DocumentToInterface(proj.Apply(d))
	}
	return out, nil
}

// FindOne is Find with an implicit limit of 1, returning nil if nothing
// matched.
func (db *Database) FindOne(collection string, filter map[string]any) (map[string]any, error) {
	results, err := db.Find(collection, filter, FindOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

// findLocked returns every decrypted document in collection matching
// filter, with no sort/skip/limit/projection applied — the scan shared by
// Find, Update, Delete, and Count.
func (db *Database) findLocked(collection string, filter map[string]any) ([]document.Document, error) {
	coll, err := db.collectionLocked(collection)
	if err != nil {
		return nil, err
	}

	var matches []document.Document
	for _, stored := range coll.documents {
		plain, derr := decryptFields(stored, coll.schema, db.key)
		if derr != nil {
			return nil, derr
		}
		if query.Match(plain, query.Filter(filter)) {
			matches = append(matches, plain)
		}
	}
	return matches, nil
}

// Count returns the number of documents in collection matching filter.
func (db *Database) Count(collection string, filter map[string]any) (int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	matches, err := db.findLocked(collection, filter)
	if err != nil {
		return 0, err
	}
	return len(matches), nil
}

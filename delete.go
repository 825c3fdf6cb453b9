// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package vaultdb

import (
	"fmt"

	"github.com/kraklabs/vaultdb/internal/document"
)

// DeleteOptions shapes a Delete call. Multi defaults to true when nil, the
// same convention as UpdateOptions.
type DeleteOptions struct {
	Multi *bool
}

func (o DeleteOptions) multi() bool {
	return o.Multi == nil || *o.Multi
}

// DeleteResult reports how many documents a Delete call removed.
type DeleteResult struct {
	DeletedCount int
}

// Delete removes every document matching filter (or just the first, when
// opts.Multi is false) and purges their entries from every index on the
// collection.
func (db *Database) Delete(collection string, filter map[string]any, opts DeleteOptions) (DeleteResult, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	ok := true
	defer func() { db.metric.observeOp("delete", ok) }()

	coll, err := db.collectionLocked(collection)
	if err != nil {
		ok = false
		return DeleteResult{}, err
	}

	matches, err := db.findLocked(collection, filter)
	if err != nil {
		ok = false
		return DeleteResult{}, err
	}
	if !opts.multi() && len(matches) > 1 {
		matches = matches[:1]
	}

	for _, doc := range matches {
		id, _ := doc["_id"].AsString()
		delete(coll.documents, id)
		for field, idx := range coll.indexes {
			v, present := document.Get(doc, field)
			removeFromIndexLocked(idx, indexValueKey(v, present), id)
		}
	}

	db.appendOpLog("delete", fmt.Sprintf("collection=%s deleted=%d", collection, len(matches)))
	if err := db.saveLocked(); err != nil {
		ok = false
		return DeleteResult{}, err
	}

	return DeleteResult{DeletedCount: len(matches)}, nil
}

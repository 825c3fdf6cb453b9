// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package vaultdb

import (
	"fmt"
	"time"

	"github.com/kraklabs/vaultdb/internal/document"
	"github.com/kraklabs/vaultdb/internal/query"
	"github.com/kraklabs/vaultdb/internal/schema"
	"github.com/kraklabs/vaultdb/internal/vaulterr"
)

// UpdateOptions shapes an Update call. Multi defaults to true (matching
// every document) when nil; set it to a false pointer to update at most
// one matched document (spec §4.4: "{multi?: bool = true}").
type UpdateOptions struct {
	Multi *bool
}

func (o UpdateOptions) multi() bool {
	return o.Multi == nil || *o.Multi
}

// UpdateResult reports how many documents an Update matched and actually
// changed.
type UpdateResult struct {
	MatchedCount  int
	ModifiedCount int
}

type pendingUpdate struct {
	id        string
	old       document.Document
	validated document.Document
	changed   bool
}

// Update finds every document matching filter, applies update's operators
// to a decrypted copy, re-validates, re-checks unique constraints, and
// replaces the stored document — all validated before any document is
// mutated (spec §4.4, §9 PendingMutation).
func (db *Database) Update(collection string, filter map[string]any, update map[string]any, opts UpdateOptions) (UpdateResult, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	ok := true
	defer func() { db.metric.observeOp("update", ok) }()

	coll, err := db.collectionLocked(collection)
	if err != nil {
		ok = false
		return UpdateResult{}, err
	}

	matches, err := db.findLocked(collection, filter)
	if err != nil {
		ok = false
		return UpdateResult{}, err
	}
	if !opts.multi() && len(matches) > 1 {
		matches = matches[:1]
	}

	now := time.Now()
	pending := make([]pendingUpdate, 0, len(matches))
	for _, old := range matches {
		id, _ := old["_id"].AsString()

		applied, aerr := query.ApplyUpdate(old, query.Update(update))
		if aerr != nil {
			ok = false
			return UpdateResult{}, vaulterr.NewValidationError("update failed", aerr.Error())
		}
		applied = schema.Normalize(applied, coll.schema)
		validated, verr := schema.ValidateDocument(applied, coll.schema, now)
		if verr != nil {
			ok = false
			return UpdateResult{}, vaulterr.NewValidationError("validation failed", verr.Error())
		}
		validated["_id"] = document.String(id)
		validated["createdAt"] = old["createdAt"]

		for field, idx := range coll.indexes {
			v, present := document.Get(validated, field)
			vk := indexValueKey(v, present)
			if err := checkUniqueLocked(idx, vk, id); err != nil {
				ok = false
				return UpdateResult{}, err
			}
		}

		pending = append(pending, pendingUpdate{
			id:        id,
			old:       old,
			validated: validated,
			changed:   !documentsEqualIgnoringUpdatedAt(old, validated),
		})
	}

	modified := 0
	for _, p := range pending {
		if err := db.applyUpdateLocked(collection, p); err != nil {
			ok = false
			return UpdateResult{}, err
		}
		if p.changed {
			modified++
		}
	}

	db.appendOpLog("update", fmt.Sprintf("collection=%s matched=%d modified=%d", collection, len(pending), modified))
	if err := db.saveLocked(); err != nil {
		ok = false
		return UpdateResult{}, err
	}

	return UpdateResult{MatchedCount: len(pending), ModifiedCount: modified}, nil
}

func (db *Database) applyUpdateLocked(collection string, p pendingUpdate) error {
	coll, err := db.collectionLocked(collection)
	if err != nil {
		return err
	}

	stored, err := encryptFields(p.validated, coll.schema, db.key)
	if err != nil {
		return err
	}
	coll.documents[p.id] = stored

	for field, idx := range coll.indexes {
		oldVal, oldPresent := document.Get(p.old, field)
		newVal, newPresent := document.Get(p.validated, field)
		oldKey := indexValueKey(oldVal, oldPresent)
		newKey := indexValueKey(newVal, newPresent)
		if oldKey == newKey {
			continue
		}
		if oldPresent || !idx.sparse {
			removeFromIndexLocked(idx, oldKey, p.id)
		}
		if newPresent || !idx.sparse {
			addToIndexLocked(idx, newKey, p.id)
		}
	}
	return nil
}

func documentsEqualIgnoringUpdatedAt(a, b document.Document) bool {
	aCopy := a.Clone()
	bCopy := b.Clone()
	delete(aCopy, "updatedAt")
	delete(bCopy, "updatedAt")
	return document.Equal(document.Object(aCopy), document.Object(bCopy))
}

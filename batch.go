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

// BatchResult reports the outcome of an InsertMany call.
type BatchResult struct {
	InsertedCount int
	Results       []map[string]any
}

// InsertMany validates every input document against the collection's
// current state before inserting any of them, then applies the whole batch
// and saves once — the same all-or-nothing validate-then-apply discipline
// as a single Insert, just over a slice (spec §4.5 failure policy: "an
// operation fails before modifying state" applies to the batch as a unit).
// It is sugar for bulk loading, not a multi-operation transaction spanning
// separate calls. When Options.ShowProgress is set, validation progress is
// drawn with the progress bar's default writer (stdout).
func (db *Database) InsertMany(collection string, inputs []map[string]any) (BatchResult, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	ok := true
	defer func() { db.metric.observeOp("insert_many", ok) }()

	coll, err := db.collectionLocked(collection)
	if err != nil {
		ok = false
		return BatchResult{}, err
	}

	var bar *progressbar.ProgressBar
	if db.opts.ShowProgress {
		bar = progressbar.NewOptions(len(inputs),
			progressbar.OptionSetDescription(fmt.Sprintf("validating %s", collection)),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	validated := make([]document.Document, 0, len(inputs))
	seenKeys := make(map[string]map[string]bool, len(coll.indexes)) // field -> value key -> seen in this batch
	seenIDs := make(map[string]bool, len(inputs))

	for i, input := range inputs {
		doc, err := db.validateForInsertLocked(collection, input)
		if err != nil {
			ok = false
			return BatchResult{}, vaulterr.NewValidationError("batch insert failed", fmt.Sprintf("document %d: %v", i, err))
		}
		id, _ := doc["_id"].AsString()
		if seenIDs[id] {
			ok = false
			return BatchResult{}, vaulterr.NewUniqueConstraintError("unique constraint violated", fmt.Sprintf("document %d: _id %q duplicated within the batch", i, id))
		}
		seenIDs[id] = true
		for field, idx := range coll.indexes {
			v, present := document.Get(doc, field)
			vk := indexValueKey(v, present)
			if idx.unique && vk != missingIndexKey && vk != nullIndexKey {
				if seenKeys[field] == nil {
					seenKeys[field] = make(map[string]bool)
				}
				if seenKeys[field][vk] {
					ok = false
					return BatchResult{}, vaulterr.NewUniqueConstraintError("unique constraint violated", fmt.Sprintf("document %d: field %s value %q duplicated within the batch", i, field, vk))
				}
				seenKeys[field][vk] = true
			}
		}
		validated = append(validated, doc)
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}

	for _, doc := range validated {
		if err := db.storeNewDocumentLocked(collection, doc); err != nil {
			ok = false
			return BatchResult{}, err
		}
	}

	results := make([]map[string]any, len(validated))
	for i, doc := range validated {
		results[i] = document.DocumentToInterface(doc)
	}

	db.appendOpLog("insert_many", fmt.Sprintf("collection=%s count=%d", collection, len(validated)))
	if err := db.saveLocked(); err != nil {
		ok = false
		return BatchResult{}, err
	}

	return BatchResult{InsertedCount: len(validated), Results: results}, nil
}

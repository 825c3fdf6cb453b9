// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package vaultdb

import (
	"fmt"
	"time"

	"github.com/kraklabs/vaultdb/internal/document"
	"github.com/kraklabs/vaultdb/internal/schema"
	"github.com/kraklabs/vaultdb/internal/vaulterr"
)

// Insert validates input against the collection's schema, enforces unique
// constraints, updates every index on the collection, saves, and returns
// the decrypted stored document (spec §4.5).
func (db *Database) Insert(collection string, input map[string]any) (map[string]any, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	ok := true
	defer func() { db.metric.observeOp("insert", ok) }()

	validated, err := db.validateForInsertLocked(collection, input)
	if err != nil {
		ok = false
		return nil, err
	}

	if err := db.storeNewDocumentLocked(collection, validated); err != nil {
		ok = false
		return nil, err
	}

	id, _ := validated["_id"].AsString()
	db.appendOpLog("insert", fmt.Sprintf("collection=%s id=%s", collection, id))
	if err := db.saveLocked(); err != nil {
		ok = false
		return nil, err
	}

	return document.DocumentToInterface(validated), nil
}

// validateForInsertLocked runs the raw input through normalize/validate and
// checks unique constraints against the current index state, without
// mutating anything (spec §9: "validate everything against the current
// state, then apply the list in one pass").
func (db *Database) validateForInsertLocked(collection string, input map[string]any) (document.Document, error) {
	coll, err := db.collectionLocked(collection)
	if err != nil {
		return nil, err
	}

	raw, err := document.DocumentFromInterface(input)
	if err != nil {
		return nil, vaulterr.NewValidationError("invalid input", err.Error())
	}
	normalized := schema.Normalize(raw, coll.schema)
	validated, verr := schema.ValidateDocument(normalized, coll.schema, time.Now())
	if verr != nil {
		return nil, vaulterr.NewValidationError("validation failed", verr.Error())
	}

	id, _ := validated["_id"].AsString()
	if _, exists := coll.documents[id]; exists {
		return nil, vaulterr.NewUniqueConstraintError("unique constraint violation", fmt.Sprintf("document with _id %q already exists", id))
	}

	for field, idx := range coll.indexes {
		v, present := document.Get(validated, field)
		vk := indexValueKey(v, present)
		if err := checkUniqueLocked(idx, vk, id); err != nil {
			return nil, err
		}
	}

	return validated, nil
}

// storeNewDocumentLocked encrypts flagged fields, stores the document, and
// updates every index — the "apply" half of insert's validate-then-apply
// split.
func (db *Database) storeNewDocumentLocked(collection string, validated document.Document) error {
	coll, err := db.collectionLocked(collection)
	if err != nil {
		return err
	}

	stored, err := encryptFields(validated, coll.schema, db.key)
	if err != nil {
		return err
	}

	id, _ := validated["_id"].AsString()
	coll.documents[id] = stored

	for field, idx := range coll.indexes {
		v, present := document.Get(validated, field)
		if !present && idx.sparse {
			continue
		}
		addToIndexLocked(idx, indexValueKey(v, present), id)
	}
	return nil
}

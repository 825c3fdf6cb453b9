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

// AddField adds a new field to collection's schema and, when def carries a
// Default, backfills it onto every existing document. Adding a Required
// field with no Default and existing documents fails — there is nothing
// sound to backfill with (spec §3 supplemented: schema evolution).
func (db *Database) AddField(collection, field string, def schema.FieldDefinition) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	ok := true
	defer func() { db.metric.observeOp("add_field", ok) }()

	coll, err := db.collectionLocked(collection)
	if err != nil {
		ok = false
		return err
	}
	if _, exists := coll.schema[field]; exists {
		ok = false
		return vaulterr.NewSchemaError("field already exists", fmt.Sprintf("field %q already defined on %q", field, collection))
	}
	if def.Required && def.Default == nil && len(coll.documents) > 0 {
		ok = false
		return vaulterr.NewSchemaError("cannot add required field", fmt.Sprintf("field %q is required but has no default to backfill %d existing documents", field, len(coll.documents)))
	}

	newSchema := make(schema.Definition, len(coll.schema)+1)
	for k, v := range coll.schema {
		newSchema[k] = v
	}
	newSchema[field] = def

	if def.Default != nil {
		for id, stored := range coll.documents {
			plain, derr := decryptFields(stored, coll.schema, db.key)
			if derr != nil {
				ok = false
				return derr
			}
			if _, present := document.Get(plain, field); !present {
				plain = document.Set(plain, field, defaultValueFor(def))
				reEncrypted, eerr := encryptFields(plain, newSchema, db.key)
				if eerr != nil {
					ok = false
					return eerr
				}
				coll.documents[id] = reEncrypted
			}
		}
	}

	coll.schema = newSchema
	db.appendOpLog("add_field", fmt.Sprintf("collection=%s field=%s", collection, field))
	if err := db.saveLocked(); err != nil {
		ok = false
		return err
	}
	return nil
}

// DropField removes field from collection's schema and from every existing
// document, dropping any index built over it.
func (db *Database) DropField(collection, field string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	ok := true
	defer func() { db.metric.observeOp("drop_field", ok) }()

	coll, err := db.collectionLocked(collection)
	if err != nil {
		ok = false
		return err
	}
	if _, exists := coll.schema[field]; !exists {
		ok = false
		return vaulterr.NewSchemaError("field not found", fmt.Sprintf("field %q is not defined on %q", field, collection))
	}

	if _, hasIndex := coll.indexes[field]; hasIndex {
		delete(coll.indexes, field)
		delete(db.indexes, indexKey(collection, field))
	}

	newSchema := make(schema.Definition, len(coll.schema))
	for k, v := range coll.schema {
		if k != field {
			newSchema[k] = v
		}
	}

	for id, stored := range coll.documents {
		plain, derr := decryptFields(stored, coll.schema, db.key)
		if derr != nil {
			ok = false
			return derr
		}
		plain = document.Unset(plain, field)
		reEncrypted, eerr := encryptFields(plain, newSchema, db.key)
		if eerr != nil {
			ok = false
			return eerr
		}
		coll.documents[id] = reEncrypted
	}

	coll.schema = newSchema
	db.appendOpLog("drop_field", fmt.Sprintf("collection=%s field=%s", collection, field))
	if err := db.saveLocked(); err != nil {
		ok = false
		return err
	}
	return nil
}

// defaultValueFor resolves def.Default the same way schema.ValidateDocument
// would at insert time: a registered generator name wins over the literal
// reading when both are possible.
func defaultValueFor(def schema.FieldDefinition) document.Value {
	doc, _ := schema.ValidateDocument(document.Document{}, schema.Definition{"value": def}, time.Now())
	v, _ := document.Get(doc, "value")
	return v
}

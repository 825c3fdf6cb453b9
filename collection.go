// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package vaultdb

import (
	"fmt"
	"strings"

	"github.com/kraklabs/vaultdb/internal/document"
	"github.com/kraklabs/vaultdb/internal/schema"
	"github.com/kraklabs/vaultdb/internal/vaulterr"
)

// IndexRequest describes one secondary index to build as part of
// CreateCollection's {schema?, indexes?} option (spec §4.5).
type IndexRequest struct {
	Field  string
	Unique bool
	Sparse bool
}

// CollectionOptions configures CreateCollection.
type CollectionOptions struct {
	Schema  map[string]any
	Indexes []IndexRequest
}

// CreateCollection validates name and schema, stores the collection, and
// builds every requested index plus one for every field the schema flags
// unique or index (the engine honors FieldDefinition.Index eagerly). Fails
// with CollectionError if the name already exists.
func (db *Database) CreateCollection(name string, opts CollectionOptions) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	ok := true
	defer func() { db.metric.observeOp("create_collection", ok) }()

	if strings.TrimSpace(name) == "" {
		ok = false
		return vaulterr.NewCollectionError("invalid collection name", "collection name must not be empty")
	}
	if _, exists := db.collections[name]; exists {
		ok = false
		return vaulterr.NewCollectionError("collection already exists", fmt.Sprintf("collection %q already exists", name))
	}

	def, err := parseSchemaOption(opts.Schema)
	if err != nil {
		ok = false
		return err
	}

	coll := &collectionState{
		schema:    def,
		documents: make(map[string]document.Document),
		indexes:   make(map[string]*indexState),
	}
	db.collections[name] = coll

	requests := append([]IndexRequest{}, opts.Indexes...)
	seen := make(map[string]bool, len(requests))
	for _, r := range requests {
		seen[r.Field] = true
	}
	for field, fd := range def {
		if (fd.Unique || fd.Index) && !seen[field] {
			requests = append(requests, IndexRequest{Field: field, Unique: fd.Unique})
			seen[field] = true
		}
	}

	for _, r := range requests {
		if err := db.createIndexLocked(name, r.Field, r.Unique, r.Sparse); err != nil {
			delete(db.collections, name)
			ok = false
			return err
		}
	}

	db.appendOpLog("create_collection", fmt.Sprintf("collection=%s fields=%d indexes=%d", name, len(def), len(requests)))
	if err := db.saveLocked(); err != nil {
		ok = false
		return err
	}
	return nil
}

// DropCollection removes a collection and every index whose key begins
// with it.
func (db *Database) DropCollection(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	ok := true
	defer func() { db.metric.observeOp("drop_collection", ok) }()

	if _, err := db.collectionLocked(name); err != nil {
		ok = false
		return err
	}

	delete(db.collections, name)
	for key, idx := range db.indexes {
		if idx.collection == name {
			delete(db.indexes, key)
		}
	}

	db.appendOpLog("drop_collection", fmt.Sprintf("collection=%s", name))
	if err := db.saveLocked(); err != nil {
		ok = false
		return err
	}
	return nil
}

func parseSchemaOption(raw map[string]any) (schema.Definition, error) {
	if raw == nil {
		return schema.Definition{}, nil
	}
	def, err := schema.ValidateSchema(raw)
	if err != nil {
		return nil, vaulterr.NewSchemaError("invalid schema", err.Error())
	}
	return def, nil
}

// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package vaultdb

import (
	"fmt"

	"github.com/kraklabs/vaultdb/internal/document"
	"github.com/kraklabs/vaultdb/internal/schema"
	"github.com/kraklabs/vaultdb/internal/vaulterr"
	"github.com/schollz/progressbar/v3"
)

// ExportedCollection is one collection's portable form: its schema plus
// every document, fully decrypted (spec §6).
type ExportedCollection struct {
	Schema    schema.Definition `json:"schema"`
	Documents []map[string]any `json:"documents"`
}

// ExportTree is the canonical portable representation returned by Export
// and accepted by Import.
type ExportTree struct {
	Version     int                           `json:"version"`
	Created     string                        `json:"created"`
	Collections map[string]ExportedCollection `json:"collections"`
}

// Export builds the portable tree for the whole database: every collection's
// schema and every document with encrypted fields decrypted back to
// plaintext. Safe to serialize with encoding/json by the caller.
func (db *Database) Export() (ExportTree, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	tree := ExportTree{
		Version:     1,
		Created:     db.created.UTC().Format("2006-01-02T15:04:05.999999999Z07:00"),
		Collections: make(map[string]ExportedCollection, len(db.collections)),
	}

	for name, coll := range db.collections {
		var bar *progressbar.ProgressBar
		if db.opts.ShowProgress && len(coll.documents) > 0 {
			bar = progressbar.NewOptions(len(coll.documents),
				progressbar.OptionSetDescription(fmt.Sprintf("exporting %s", name)),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}

		docs := make([]map[string]any, 0, len(coll.documents))
		for _, stored := range coll.documents {
			plain, err := decryptFields(stored, coll.schema, db.key)
			if err != nil {
				return ExportTree{}, err
			}
			docs = append(docs, document.DocumentToInterface(plain))
			if bar != nil {
				_ = bar.Add(1)
			}
		}
		if bar != nil {
			_ = bar.Finish()
		}
		tree.Collections[name] = ExportedCollection{
			Schema:    coll.schema,
			Documents: docs,
		}
	}

	return tree, nil
}

// Import loads a portable tree produced by Export (or hand-built in the
// same shape) into this database: missing collections are created from the
// tree's schema, then every document is inserted through the normal insert
// path — so it is re-validated and re-encrypted, not copied verbatim (spec
// §6: "Import MUST re-validate every document against the destination
// collection's current schema").
func (db *Database) Import(tree ExportTree) error {
	db.mu.RLock()
	showProgress := db.opts.ShowProgress
	db.mu.RUnlock()

	for name, ec := range tree.Collections {
		db.mu.RLock()
		_, exists := db.collections[name]
		db.mu.RUnlock()

		if !exists {
			schemaOpt := make(map[string]any, len(ec.Schema))
			for field, fd := range ec.Schema {
				schemaOpt[field] = fd
			}
			if err := db.CreateCollection(name, CollectionOptions{Schema: schemaOpt}); err != nil {
				return vaulterr.NewCollectionError("import failed", fmt.Sprintf("could not create collection %q: %v", name, err))
			}
		}

		var bar *progressbar.ProgressBar
		if showProgress && len(ec.Documents) > 0 {
			bar = progressbar.NewOptions(len(ec.Documents),
				progressbar.OptionSetDescription(fmt.Sprintf("importing %s", name)),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}

		for _, doc := range ec.Documents {
			if _, err := db.Insert(name, doc); err != nil {
				return err
			}
			if bar != nil {
				_ = bar.Add(1)
			}
		}
		if bar != nil {
			_ = bar.Finish()
		}
	}
	return nil
}

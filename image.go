// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package vaultdb

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kraklabs/vaultdb/internal/document"
	"github.com/kraklabs/vaultdb/internal/schema"
)

// imageV1 is the decrypted JSON snapshot of the whole database (spec §4.2):
// every save flattens in-memory state into this shape before compression
// and encryption, and every open inflates it back.
type imageV1 struct {
	Header       imageHeader           `json:"header"`
	Collections  map[string]imageColl  `json:"collections"`
	Indexes      map[string]imageIndex `json:"indexes"`
	OperationLog []OperationLogEntry   `json:"operationLog"`
}

type imageHeader struct {
	Created  string `json:"created"`
	Modified string `json:"modified"`
}

type imageColl struct {
	Schema    map[string]schema.FieldDefinition `json:"schema"`
	Documents map[string]map[string]any         `json:"documents"`
	Indexes   []string                          `json:"indexes"`
}

type imageIndex struct {
	Collection string              `json:"collection"`
	Field      string              `json:"field"`
	Unique     bool                `json:"unique"`
	Sparse     bool                `json:"sparse"`
	Entries    map[string][]string `json:"entries"`
}

// OperationLogEntry is one bounded audit record (spec §4.2).
type OperationLogEntry struct {
	Operation string `json:"operation"`
	Details   string `json:"details"`
	Timestamp string `json:"timestamp"`
}

func (db *Database) snapshot() ([]byte, error) {
	img := imageV1{
		Header: imageHeader{
			Created:  db.created.UTC().Format(time.RFC3339Nano),
			Modified: time.Now().UTC().Format(time.RFC3339Nano),
		},
		Collections:  make(map[string]imageColl, len(db.collections)),
		Indexes:      make(map[string]imageIndex, len(db.indexes)),
		OperationLog: db.opLog,
	}

	for name, coll := range db.collections {
		docs := make(map[string]map[string]any, len(coll.documents))
		for id, d := range coll.documents {
			docs[id] = document.DocumentToInterface(d)
		}
		indexedFields := make([]string, 0, len(coll.indexes))
		for field := range coll.indexes {
			indexedFields = append(indexedFields, field)
		}
		img.Collections[name] = imageColl{
			Schema:    coll.schema,
			Documents: docs,
			Indexes:   indexedFields,
		}
	}

	for key, idx := range db.indexes {
		entries := make(map[string][]string, len(idx.entries))
		for valueKey, ids := range idx.entries {
			list := make([]string, 0, len(ids))
			for id := range ids {
				list = append(list, id)
			}
			entries[valueKey] = list
		}
		img.Indexes[key] = imageIndex{
			Collection: idx.collection,
			Field:      idx.field,
			Unique:     idx.unique,
			Sparse:     idx.sparse,
			Entries:    entries,
		}
	}

	return json.Marshal(img)
}

func (db *Database) restore(raw []byte) error {
	var img imageV1
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &img); err != nil {
			return fmt.Errorf("vaultdb: decode image: %w", err)
		}
	}

	if img.Header.Created != "" {
		if t, err := time.Parse(time.RFC3339Nano, img.Header.Created); err == nil {
			db.created = t
		}
	} else {
		db.created = time.Now().UTC()
	}

	db.collections = make(map[string]*collectionState, len(img.Collections))
	for name, c := range img.Collections {
		docs := make(map[string]document.Document, len(c.Documents))
		for id, raw := range c.Documents {
			d, err := document.DocumentFromInterface(raw)
			if err != nil {
				return fmt.Errorf("vaultdb: decode document %s/%s: %w", name, id, err)
			}
			docs[id] = schema.NormalizeStored(d, c.Schema)
		}
		db.collections[name] = &collectionState{
			schema:    c.Schema,
			documents: docs,
			indexes:   make(map[string]*indexState),
		}
	}

	db.indexes = make(map[string]*indexState, len(img.Indexes))
	for key, idx := range img.Indexes {
		entries := make(map[string]map[string]bool, len(idx.Entries))
		for valueKey, ids := range idx.Entries {
			set := make(map[string]bool, len(ids))
			for _, id := range ids {
				set[id] = true
			}
			entries[valueKey] = set
		}
		is := &indexState{
			collection: idx.Collection,
			field:      idx.Field,
			unique:     idx.Unique,
			sparse:     idx.Sparse,
			entries:    entries,
		}
		db.indexes[key] = is
		if coll, ok := db.collections[idx.Collection]; ok {
			coll.indexes[idx.Field] = is
		}
	}

	db.opLog = img.OperationLog
	return nil
}

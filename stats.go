// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package vaultdb

import (
	"os"
	"time"

	"github.com/kraklabs/vaultdb/internal/schema"
)

// CollectionStats summarizes one collection's current size and shape.
type CollectionStats struct {
	Name          string
	DocumentCount int
	IndexCount    int
	Schema        schema.Definition
}

// DatabaseStats summarizes the whole database instance — supplemented
// introspection beyond spec.md §4.5's per-collection get_stats (SPEC_FULL.md
// §3). FileSizeBytes and LastSaveDuration describe the on-disk artifact and
// the most recent Save, not the in-memory snapshot, so they stay accurate
// even between mutating calls.
type DatabaseStats struct {
	TotalCollections int
	TotalDocuments   int
	TotalIndexes     int
	FileSizeBytes    int64
	LastSaveDuration time.Duration
}

// Stats reports database-wide totals (collection/document/index counts, the
// current file size on disk, and the duration of the most recent save).
// Also exposed as Prometheus gauges when Options.Registerer is configured.
func (db *Database) Stats() DatabaseStats {
	db.mu.RLock()
	defer db.mu.RUnlock()

	s := DatabaseStats{
		TotalCollections: len(db.collections),
		TotalIndexes:     len(db.indexes),
		LastSaveDuration: db.metric.lastSaveDuration(),
	}
	for _, coll := range db.collections {
		s.TotalDocuments += len(coll.documents)
	}
	if info, err := os.Stat(db.path); err == nil {
		s.FileSizeBytes = info.Size()
	}
	db.metric.observeStats(s)
	return s
}

// CollectionsStats summarizes every collection in the database individually.
func (db *Database) CollectionsStats() []CollectionStats {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := make([]CollectionStats, 0, len(db.collections))
	for name, coll := range db.collections {
		out = append(out, CollectionStats{
			Name:          name,
			DocumentCount: len(coll.documents),
			IndexCount:    len(coll.indexes),
			Schema:        coll.schema,
		})
	}
	return out
}

// GetStats summarizes a single collection.
func (db *Database) GetStats(collection string) (CollectionStats, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	coll, err := db.collectionLocked(collection)
	if err != nil {
		return CollectionStats{}, err
	}
	return CollectionStats{
		Name:          collection,
		DocumentCount: len(coll.documents),
		IndexCount:    len(coll.indexes),
		Schema:        coll.schema,
	}, nil
}

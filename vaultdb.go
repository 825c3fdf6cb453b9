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

// Package vaultdb is an embedded, encrypted, single-file document database.
// Open one file with a passphrase, declare collections with a schema, and
// perform validated CRUD and query operations over them — every durable
// artifact is the one file (see internal/codec for its container layout).
package vaultdb

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/kraklabs/vaultdb/internal/codec"
	"github.com/kraklabs/vaultdb/internal/document"
	"github.com/kraklabs/vaultdb/internal/schema"
	"github.com/kraklabs/vaultdb/internal/vaulterr"
	"github.com/prometheus/client_golang/prometheus"
)

// Options configures a Database beyond its path and passphrase. The zero
// value is usable: every field defaults to the value the file codec and
// schema packages already use on their own.
type Options struct {
	// KDFIterations is the PBKDF2 round count used for new files. The file
	// does not record the count, so opening an existing file uses this
	// option too — callers opening a file created with a different count
	// must supply it here.
	KDFIterations int
	// GzipLevel is the compression level applied to the JSON image before
	// encryption (1-9), default 6.
	GzipLevel int
	// MaxOperationLogEntries bounds the audit log trimmed before each save
	// (spec §4.2); default 1000.
	MaxOperationLogEntries int
	// Logger receives structured diagnostic events. Never a package
	// global — callers that don't set one get slog.Default().
	Logger *slog.Logger
	// Registerer, if set, registers the engine's optional Prometheus
	// collectors (saves and operations totals, save duration, and the
	// collection/document/index/file-size gauges). Metrics are entirely
	// optional — observability is an out-of-scope collaborator concern
	// (spec.md §1) that this only exposes a hook for.
	Registerer prometheus.Registerer
	// ShowProgress enables a terminal progress bar during InsertMany,
	// CreateIndex backfill, Export, and Import.
	ShowProgress bool
}

func (o Options) codecOptions() codec.Options {
	return codec.Options{Iterations: o.KDFIterations, GzipLevel: o.GzipLevel}
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o Options) maxOperationLogEntries() int {
	if o.MaxOperationLogEntries <= 0 {
		return 1000
	}
	return o.MaxOperationLogEntries
}

// collectionState is the in-memory representation of one collection.
// documents are stored with schema-flagged fields already encrypted;
// callers never see this form directly.
type collectionState struct {
	schema    schema.Definition
	documents map[string]document.Document
	indexes   map[string]*indexState // field name -> index
}

// indexState is one secondary index over (collection, field).
type indexState struct {
	collection string
	field      string
	unique     bool
	sparse     bool
	entries    map[string]map[string]bool // stringified value -> set of document ids
}

const (
	missingIndexKey = "\x00__missing__"
	nullIndexKey    = "\x00__null__"
)

// Database is one opened vaultdb file. All exported methods are safe for
// concurrent use: mutating operations take an exclusive lock, read
// operations may run concurrently with each other but never with a writer
// (spec §5).
type Database struct {
	mu sync.RWMutex

	path   string
	key    []byte
	salt   []byte
	opts   Options
	queue  *codec.SaveQueue
	logger *slog.Logger
	metric *metrics

	created time.Time

	collections map[string]*collectionState
	indexes     map[string]*indexState
	opLog       []OperationLogEntry
}

// Open opens the database file at path under passphrase, creating it (with
// an empty, encrypted image) if it does not yet exist (spec §4.2).
func Open(path string, passphrase string, opts Options) (*Database, error) {
	if path == "" {
		return nil, vaulterr.NewConfigError("invalid path", "database path must not be empty", "pass a non-empty file path", nil)
	}
	if passphrase == "" {
		return nil, vaulterr.NewConfigError("missing passphrase", "a passphrase is required to open a vaultdb file", "pass a non-empty passphrase", nil)
	}

	db := &Database{
		path:   path,
		opts:   opts,
		queue:  codec.NewSaveQueue(),
		logger: opts.logger(),
		metric: newMetrics(opts.Registerer),
	}

	opened, err := codec.Open(path, []byte(passphrase), opts.codecOptions())
	switch {
	case err == nil:
		db.key = opened.Key
		db.salt = opened.Salt
		if err := db.restore(opened.Image); err != nil {
			return nil, err
		}
		db.logger.Info("vaultdb: opened existing database", "path", path)
	case os.IsNotExist(err):
		key, salt, derr := deriveFreshKey(passphrase, opts)
		if derr != nil {
			return nil, derr
		}
		db.key = key
		db.salt = salt
		db.created = time.Now().UTC()
		db.collections = make(map[string]*collectionState)
		db.indexes = make(map[string]*indexState)
		if err := db.saveLocked(); err != nil {
			return nil, err
		}
		db.logger.Info("vaultdb: created new database", "path", path)
	default:
		return nil, err
	}

	return db, nil
}

func deriveFreshKey(passphrase string, opts Options) (key, salt []byte, err error) {
	key, salt, err = deriveKeyFor(passphrase, nil, opts)
	if err != nil {
		return nil, nil, vaulterr.NewCryptoError("key derivation failed", err.Error(), err)
	}
	return key, salt, nil
}

// Close flushes no additional state (every mutation already saved before
// returning) and stops the save queue's worker goroutine.
func (db *Database) Close() error {
	db.queue.Close()
	return nil
}

// Backup copies the current on-disk file to destPath verbatim.
func (db *Database) Backup(destPath string) error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return codec.Backup(db.path, destPath)
}

// Ping reports whether the database instance's in-memory state is
// initialized. It does not probe the save queue or the file on disk.
func (db *Database) Ping() error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.collections == nil {
		return vaulterr.NewStorageError("not ready", "database has not completed initialization", db.path, nil)
	}
	return nil
}

func (db *Database) saveLocked() error {
	image, err := db.snapshot()
	if err != nil {
		return vaulterr.NewStorageError("save failed", "could not build json image", db.path, err)
	}
	start := time.Now()
	err = db.queue.Enqueue(db.path, db.key, db.salt, image, db.opts.codecOptions())
	db.metric.observeSave(time.Since(start), err == nil)
	if err != nil {
		db.logger.Error("vaultdb: save failed", "path", db.path, "error", err)
		return err
	}
	return nil
}

func (db *Database) appendOpLog(operation, details string) {
	db.opLog = append(db.opLog, OperationLogEntry{
		Operation: operation,
		Details:   details,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
	max := db.opts.maxOperationLogEntries()
	if len(db.opLog) > max {
		db.opLog = db.opLog[len(db.opLog)-max:]
	}
}

// Compact clears the operation log and saves.
func (db *Database) Compact() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.opLog = nil
	return db.saveLocked()
}

func (db *Database) collectionLocked(name string) (*collectionState, error) {
	c, ok := db.collections[name]
	if !ok {
		return nil, vaulterr.NewCollectionError("collection not found", fmt.Sprintf("collection %q does not exist", name))
	}
	return c, nil
}

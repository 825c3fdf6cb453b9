// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package vaultdb

import (
	"errors"
	"testing"

	"github.com/kraklabs/vaultdb/internal/vaulterr"
)

func TestInsertManyInsertsWholeBatch(t *testing.T) {
	db := setupTestDB(t)
	if err := db.CreateCollection("users", CollectionOptions{
		Schema: map[string]any{"email": map[string]any{"type": "string", "required": true, "unique": true}},
	}); err != nil {
		t.Fatalf("CreateCollection failed: %v", err)
	}

	result, err := db.InsertMany("users", []map[string]any{
		{"email": "a@x.com"},
		{"email": "b@x.com"},
	})
	if err != nil {
		t.Fatalf("InsertMany failed: %v", err)
	}
	if result.InsertedCount != 2 {
		t.Fatalf("expected 2 inserted, got %d", result.InsertedCount)
	}

	count, err := db.Count("users", nil)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 documents stored, got %d", count)
	}
}

func TestInsertManyRejectsWholeBatchOnDuplicateWithinIt(t *testing.T) {
	db := setupTestDB(t)
	if err := db.CreateCollection("users", CollectionOptions{
		Schema: map[string]any{"email": map[string]any{"type": "string", "required": true, "unique": true}},
	}); err != nil {
		t.Fatalf("CreateCollection failed: %v", err)
	}

	_, err := db.InsertMany("users", []map[string]any{
		{"email": "a@x.com"},
		{"email": "a@x.com"}, // duplicate within the batch
		{"email": "b@x.com"},
	})
	if err == nil {
		t.Fatal("expected InsertMany to fail the whole batch over a within-batch duplicate")
	}
	if !errors.Is(err, vaulterr.KindUniqueConstraint) {
		t.Fatalf("expected KindUniqueConstraint, got %v", err)
	}

	count, err := db.Count("users", nil)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no documents stored after a failed batch, got %d", count)
	}
}

func TestInsertManyRejectsWholeBatchOnDuplicateExplicitIDWithinIt(t *testing.T) {
	db := setupTestDB(t)
	if err := db.CreateCollection("users", CollectionOptions{
		Schema: map[string]any{"email": map[string]any{"type": "string", "required": true}},
	}); err != nil {
		t.Fatalf("CreateCollection failed: %v", err)
	}

	_, err := db.InsertMany("users", []map[string]any{
		{"_id": "dup", "email": "a@x.com"},
		{"_id": "dup", "email": "b@x.com"}, // duplicate _id within the batch
	})
	if err == nil {
		t.Fatal("expected InsertMany to fail the whole batch over a within-batch duplicate _id")
	}
	if !errors.Is(err, vaulterr.KindUniqueConstraint) {
		t.Fatalf("expected KindUniqueConstraint, got %v", err)
	}

	count, err := db.Count("users", nil)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no documents stored after a failed batch, got %d", count)
	}
}

func TestInsertManyRejectsWholeBatchOnValidationFailure(t *testing.T) {
	db := setupTestDB(t)
	if err := db.CreateCollection("users", CollectionOptions{
		Schema: map[string]any{"email": map[string]any{"type": "string", "required": true}},
	}); err != nil {
		t.Fatalf("CreateCollection failed: %v", err)
	}

	_, err := db.InsertMany("users", []map[string]any{
		{"email": "a@x.com"},
		{"age": 20.0}, // missing required email
	})
	if err == nil {
		t.Fatal("expected InsertMany to fail the whole batch over an invalid document")
	}

	count, err := db.Count("users", nil)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no documents stored after a failed batch, got %d", count)
	}
}

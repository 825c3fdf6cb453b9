// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package vaultdb

import "testing"

func TestGetStatsReportsDocumentAndIndexCounts(t *testing.T) {
	db := setupTestDB(t)
	if err := db.CreateCollection("users", CollectionOptions{
		Schema: map[string]any{"email": map[string]any{"type": "string", "unique": true}},
	}); err != nil {
		t.Fatalf("CreateCollection failed: %v", err)
	}
	if _, err := db.Insert("users", map[string]any{"email": "ada@example.com"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	stats, err := db.GetStats("users")
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.DocumentCount != 1 {
		t.Fatalf("expected DocumentCount 1, got %d", stats.DocumentCount)
	}
	if stats.IndexCount != 1 {
		t.Fatalf("expected IndexCount 1 (auto-created unique index), got %d", stats.IndexCount)
	}
}

func TestCollectionsStatsListsEveryCollection(t *testing.T) {
	db := setupTestDB(t)
	if err := db.CreateCollection("a", CollectionOptions{}); err != nil {
		t.Fatalf("CreateCollection failed: %v", err)
	}
	if err := db.CreateCollection("b", CollectionOptions{}); err != nil {
		t.Fatalf("CreateCollection failed: %v", err)
	}

	stats := db.CollectionsStats()
	if len(stats) != 2 {
		t.Fatalf("expected 2 collections, got %d", len(stats))
	}
}

func TestStatsReportsDatabaseWideTotals(t *testing.T) {
	db := setupTestDB(t)
	if err := db.CreateCollection("a", CollectionOptions{}); err != nil {
		t.Fatalf("CreateCollection failed: %v", err)
	}
	if err := db.CreateCollection("b", CollectionOptions{
		Schema: map[string]any{"v": map[string]any{"type": "number", "index": true}},
	}); err != nil {
		t.Fatalf("CreateCollection failed: %v", err)
	}
	if _, err := db.Insert("b", map[string]any{"v": 1}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	stats := db.Stats()
	if stats.TotalCollections != 2 {
		t.Fatalf("expected 2 collections, got %d", stats.TotalCollections)
	}
	if stats.TotalDocuments != 1 {
		t.Fatalf("expected 1 document, got %d", stats.TotalDocuments)
	}
	if stats.TotalIndexes != 1 {
		t.Fatalf("expected 1 index, got %d", stats.TotalIndexes)
	}
	if stats.FileSizeBytes <= 0 {
		t.Fatalf("expected a positive file size, got %d", stats.FileSizeBytes)
	}
}

func TestGetStatsOnMissingCollectionFails(t *testing.T) {
	db := setupTestDB(t)
	if _, err := db.GetStats("missing"); err == nil {
		t.Fatal("expected an error for a missing collection")
	}
}

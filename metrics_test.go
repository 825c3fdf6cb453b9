// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package vaultdb

import (
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestMetricsRegisterWhenRegistererConfigured(t *testing.T) {
	reg := prometheus.NewRegistry()
	path := filepath.Join(t.TempDir(), "metrics.vdb")
	db, err := Open(path, "hunter2", Options{Registerer: reg})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.CreateCollection("things", CollectionOptions{}); err != nil {
		t.Fatalf("CreateCollection failed: %v", err)
	}
	if _, err := db.Insert("things", map[string]any{}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	db.Stats()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"vaultdb_saves_total",
		"vaultdb_operations_total",
		"vaultdb_collections",
		"vaultdb_documents",
		"vaultdb_indexes",
		"vaultdb_file_size_bytes",
	} {
		if !names[want] {
			t.Errorf("expected metric family %q to be registered", want)
		}
	}

	var documents *dto.MetricFamily
	for _, f := range families {
		if f.GetName() == "vaultdb_documents" {
			documents = f
		}
	}
	if documents == nil || len(documents.Metric) != 1 || documents.Metric[0].GetGauge().GetValue() != 1 {
		t.Fatalf("expected vaultdb_documents gauge to read 1, got %+v", documents)
	}
}

func TestMetricsNoOpWithoutRegisterer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no-metrics.vdb")
	db, err := Open(path, "hunter2", Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.CreateCollection("things", CollectionOptions{}); err != nil {
		t.Fatalf("CreateCollection failed: %v", err)
	}
	stats := db.Stats()
	if stats.TotalCollections != 1 {
		t.Fatalf("expected 1 collection, got %d", stats.TotalCollections)
	}
}

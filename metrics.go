// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package vaultdb

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the engine's optional Prometheus instrumentation. A
// Database with no Registerer configured gets a metrics value whose
// collectors are never registered; its methods still update them, and
// lastSaveDuration still reports the most recent save for Stats.
type metrics struct {
	savesTotal   *prometheus.CounterVec
	saveDuration prometheus.Histogram
	opsTotal     *prometheus.CounterVec

	collectionsGauge prometheus.Gauge
	documentsGauge   prometheus.Gauge
	indexesGauge     prometheus.Gauge
	fileSizeGauge    prometheus.Gauge

	lastSaveNanos atomic.Int64
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		savesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vaultdb_saves_total",
			Help: "Total number of file saves, labeled by outcome.",
		}, []string{"outcome"}),
		saveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "vaultdb_save_duration_seconds",
			Help: "Duration of whole-file save operations.",
		}),
		opsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vaultdb_operations_total",
			Help: "Total number of engine operations, labeled by operation and outcome.",
		}, []string{"operation", "outcome"}),
		collectionsGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vaultdb_collections",
			Help: "Current number of collections in the database.",
		}),
		documentsGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vaultdb_documents",
			Help: "Current total number of documents across all collections.",
		}),
		indexesGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vaultdb_indexes",
			Help: "Current total number of secondary indexes.",
		}),
		fileSizeGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vaultdb_file_size_bytes",
			Help: "Size in bytes of the on-disk database file.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.savesTotal, m.saveDuration, m.opsTotal,
			m.collectionsGauge, m.documentsGauge, m.indexesGauge, m.fileSizeGauge)
	}
	return m
}

func (m *metrics) observeSave(d time.Duration, ok bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.savesTotal.WithLabelValues(outcome).Inc()
	m.saveDuration.Observe(d.Seconds())
	if ok {
		m.lastSaveNanos.Store(int64(d))
	}
}

func (m *metrics) observeOp(operation string, ok bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.opsTotal.WithLabelValues(operation, outcome).Inc()
}

// lastSaveDuration returns the duration of the most recent successful save,
// or zero if none has happened yet.
func (m *metrics) lastSaveDuration() time.Duration {
	if m == nil {
		return 0
	}
	return time.Duration(m.lastSaveNanos.Load())
}

// observeStats updates the gauges backing DatabaseStats so a Prometheus
// scrape reflects the same totals Database.Stats() just computed.
func (m *metrics) observeStats(s DatabaseStats) {
	if m == nil {
		return
	}
	m.collectionsGauge.Set(float64(s.TotalCollections))
	m.documentsGauge.Set(float64(s.TotalDocuments))
	m.indexesGauge.Set(float64(s.TotalIndexes))
	m.fileSizeGauge.Set(float64(s.FileSizeBytes))
}

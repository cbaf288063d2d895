// Package metrics exposes Prometheus instruments for ingestion and offload.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry       *prometheus.Registry
	filesStored    *prometheus.CounterVec
	filesSkipped   *prometheus.CounterVec
	ingestRuns     *prometheus.CounterVec
	ingestDuration prometheus.Histogram
	offloadBatches *prometheus.CounterVec
	offloadedFiles prometheus.Counter
	offloadLatency prometheus.Histogram
	filesByTier    *prometheus.GaugeVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	filesStored := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "docstore_files_stored_total",
		Help: "Files written during ingestion by storage location",
	}, []string{"location"})

	filesSkipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "docstore_files_skipped_total",
		Help: "Files skipped during ingestion by reason",
	}, []string{"reason"})

	ingestRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "docstore_ingest_runs_total",
		Help: "Tree ingestion runs by outcome",
	}, []string{"outcome"})

	ingestDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "docstore_ingest_duration_seconds",
		Help:    "Duration of tree ingestion in seconds",
		Buckets: prometheus.DefBuckets,
	})

	offloadBatches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "docstore_offload_batches_total",
		Help: "Offload batches by outcome",
	}, []string{"outcome"})

	offloadedFiles := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "docstore_offloaded_files_total",
		Help: "Files moved from inline storage to object storage",
	})

	offloadLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "docstore_offload_batch_duration_seconds",
		Help:    "Duration of offload batches in seconds",
		Buckets: prometheus.DefBuckets,
	})

	filesByTier := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "docstore_files",
		Help: "Rows in the files table by storage location",
	}, []string{"location"})

	reg.MustRegister(filesStored, filesSkipped, ingestRuns, ingestDuration, offloadBatches, offloadedFiles, offloadLatency, filesByTier)

	return &Metrics{
		registry:       reg,
		filesStored:    filesStored,
		filesSkipped:   filesSkipped,
		ingestRuns:     ingestRuns,
		ingestDuration: ingestDuration,
		offloadBatches: offloadBatches,
		offloadedFiles: offloadedFiles,
		offloadLatency: offloadLatency,
		filesByTier:    filesByTier,
	}
}

func (m *Metrics) RecordFileStored(location string) {
	if m == nil {
		return
	}
	m.filesStored.WithLabelValues(location).Inc()
}

func (m *Metrics) RecordFileSkipped(reason string) {
	if m == nil {
		return
	}
	m.filesSkipped.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordIngest(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.ingestRuns.WithLabelValues(outcome).Inc()
	m.ingestDuration.Observe(seconds)
}

func (m *Metrics) RecordOffloadBatch(outcome string, moved int, seconds float64) {
	if m == nil {
		return
	}
	m.offloadBatches.WithLabelValues(outcome).Inc()
	m.offloadedFiles.Add(float64(moved))
	m.offloadLatency.Observe(seconds)
}

func (m *Metrics) SetFilesByLocation(location string, count int64) {
	if m == nil {
		return
	}
	m.filesByTier.WithLabelValues(location).Set(float64(count))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the current values in the text exposition format, for
// a node_exporter textfile collector to pick up from short-lived commands.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

// Package metrics exposes Prometheus instrumentation for the compression
// pipeline: chunk throughput, compression ratio, stored-raw fallback rate,
// and scheduler queue depth.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector groups the pipeline's Prometheus instruments. The zero value
// is not usable; build one with NewCollector.
type Collector struct {
	ChunksProcessed   *prometheus.CounterVec
	ChunkBytesIn      prometheus.Counter
	ChunkBytesOut     prometheus.Counter
	StoredRawTotal    prometheus.Counter
	TransformSelected *prometheus.CounterVec
	ChunkDuration     prometheus.Histogram
	QueueDepth        prometheus.Gauge
}

// NewCollector registers every instrument against reg and returns the
// collector. Pass prometheus.NewRegistry() for isolated tests, or
// prometheus.DefaultRegisterer for the process-wide registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		ChunksProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hlc",
			Subsystem: "pipeline",
			Name:      "chunks_processed_total",
			Help:      "Chunks processed, labeled by outcome (ok, stored_raw, error).",
		}, []string{"outcome"}),
		ChunkBytesIn: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "hlc",
			Subsystem: "pipeline",
			Name:      "chunk_bytes_in_total",
			Help:      "Total raw bytes fed into the chunk pipeline.",
		}),
		ChunkBytesOut: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "hlc",
			Subsystem: "pipeline",
			Name:      "chunk_bytes_out_total",
			Help:      "Total bytes written to chunk payloads after transforms and entropy coding.",
		}),
		StoredRawTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "hlc",
			Subsystem: "pipeline",
			Name:      "stored_raw_total",
			Help:      "Chunks that fell back to the stored-raw escape hatch.",
		}),
		TransformSelected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hlc",
			Subsystem: "analyzer",
			Name:      "transform_selected_total",
			Help:      "Transforms selected by the analyzer, labeled by transform id.",
		}, []string{"transform"}),
		ChunkDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hlc",
			Subsystem: "pipeline",
			Name:      "chunk_duration_seconds",
			Help:      "Wall-clock time to process one chunk end to end.",
			Buckets:   prometheus.DefBuckets,
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "hlc",
			Subsystem: "scheduler",
			Name:      "queue_depth",
			Help:      "Number of chunks currently buffered in the scheduler's reorder window.",
		}),
	}
}

// CompressionRatio returns out/in, or 0 if in is 0.
func CompressionRatio(in, out uint64) float64 {
	if in == 0 {
		return 0
	}
	return float64(out) / float64(in)
}

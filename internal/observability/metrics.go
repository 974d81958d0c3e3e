package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "osm_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL pipeline.
type Metrics struct {
	ElementsRead       *prometheus.CounterVec // labels: kind={node,way}
	RecordsWritten     *prometheus.CounterVec // labels: table
	TagsDropped        *prometheus.CounterVec // labels: kind={node,way}
	ValuesNormalized   *prometheus.CounterVec // labels: field={addr:street,addr:postcode}
	ValidationFailures prometheus.Counter
	PipelineRunning    prometheus.Gauge

	ElementProcessingDuration prometheus.Histogram

	// Normalizer cache metrics.
	NormalizeCache *prometheus.CounterVec // labels: result={hit,miss}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	prometheus.NewRegistry().MustRegister(m.collectors()...)
	return m
}

func newMetrics() *Metrics {
	return &Metrics{
		ElementsRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "elements_read_total",
			Help:      "Top-level OSM elements read from the source document.",
		}, []string{"kind"}),
		RecordsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_written_total",
			Help:      "Rows written to each output table.",
		}, []string{"table"}),
		TagsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tags_dropped_total",
			Help:      "Tags skipped because their key contains problem characters.",
		}, []string{"kind"}),
		ValuesNormalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "values_normalized_total",
			Help:      "Address values rewritten into canonical form, by tag key.",
		}, []string{"field"}),
		ValidationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Bundles rejected by schema validation.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a conversion is in progress, 0 otherwise.",
		}),
		ElementProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "element_processing_duration_seconds",
			Help:      "Duration of shaping, validating and loading a single element.",
			Buckets:   []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		NormalizeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "normalize_cache_total",
			Help:      "Street name normalization cache lookups by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.ElementsRead,
		m.RecordsWritten,
		m.TagsDropped,
		m.ValuesNormalized,
		m.ValidationFailures,
		m.PipelineRunning,
		m.ElementProcessingDuration,
		m.NormalizeCache,
	}
}

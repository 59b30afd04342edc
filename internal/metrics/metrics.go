package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all decryption metrics. Each instance owns its registry so
// a one-shot run can export exactly what it recorded.
type Metrics struct {
	registry *prometheus.Registry

	decryptRuns        *prometheus.CounterVec
	decryptDuration    *prometheus.HistogramVec
	decryptFailures    *prometheus.CounterVec
	decryptBytes       *prometheus.CounterVec
	chunksProcessed    prometheus.Counter
	signatureMismatch  prometheus.Counter
	outputMagicMatches *prometheus.CounterVec
}

// NewMetrics creates a new metrics instance with a private registry.
func NewMetrics() *Metrics {
	return newMetricsWithRegistry(prometheus.NewRegistry())
}

// newMetricsWithRegistry creates a new metrics instance on the given registry.
func newMetricsWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		decryptRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metadecrypt_runs_total",
				Help: "Total number of container decryption runs",
			},
			[]string{"transform", "result"}, // result: "success" or "failure"
		),
		decryptDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "metadecrypt_duration_seconds",
				Help:    "Container decryption duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"transform"},
		),
		decryptFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metadecrypt_failures_total",
				Help: "Total number of failed runs by failure class",
			},
			[]string{"reason"},
		),
		decryptBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metadecrypt_bytes_total",
				Help: "Total bytes read, decrypted and written",
			},
			[]string{"direction"}, // "input", "payload" or "output"
		),
		chunksProcessed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "metadecrypt_chunks_total",
				Help: "Total number of payload blocks transformed",
			},
		),
		signatureMismatch: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "metadecrypt_signature_mismatches_total",
				Help: "Total number of runs whose decrypted payload lacked the signature marker",
			},
		),
		outputMagicMatches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metadecrypt_output_magic_total",
				Help: "Total number of outputs checked for the target-format magic",
			},
			[]string{"match"},
		),
	}
}

// RecordSuccess records a successful run.
func (m *Metrics) RecordSuccess(transform string, duration time.Duration, inputBytes, payloadBytes, outputBytes int, chunks int) {
	m.decryptRuns.WithLabelValues(transform, "success").Inc()
	m.decryptDuration.WithLabelValues(transform).Observe(duration.Seconds())
	m.decryptBytes.WithLabelValues("input").Add(float64(inputBytes))
	m.decryptBytes.WithLabelValues("payload").Add(float64(payloadBytes))
	m.decryptBytes.WithLabelValues("output").Add(float64(outputBytes))
	m.chunksProcessed.Add(float64(chunks))
}

// RecordFailure records a failed run with its failure class.
func (m *Metrics) RecordFailure(transform, reason string, duration time.Duration) {
	m.decryptRuns.WithLabelValues(transform, "failure").Inc()
	m.decryptDuration.WithLabelValues(transform).Observe(duration.Seconds())
	m.decryptFailures.WithLabelValues(reason).Inc()
}

// RecordSignatureMismatch records a missing signature marker.
func (m *Metrics) RecordSignatureMismatch() {
	m.signatureMismatch.Inc()
}

// RecordOutputMagic records the verdict of the target-format magic check.
func (m *Metrics) RecordOutputMagic(match bool) {
	label := "false"
	if match {
		label = "true"
	}
	m.outputMagicMatches.WithLabelValues(label).Inc()
}

// Registry returns the registry holding all metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all metrics in the Prometheus text format to path,
// for pickup by the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

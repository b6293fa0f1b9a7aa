// Package metrics exports directory transfer activity as Prometheus metrics.
//
// A Collector implements s3types.TransferObserver; register it with a client
// through s3transfer.WithMetrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/s3types"
)

// DefaultNamespace prefixes every metric name when none is given.
const DefaultNamespace = "s3transfer"

// Collector records transfer progress and run results.
type Collector struct {
	bytes    *prometheus.CounterVec
	files    *prometheus.CounterVec
	runs     *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var _ s3types.TransferObserver = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer, namespace string) (*Collector, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	c := &Collector{
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transferred_bytes_total",
			Help:      "Bytes moved by directory transfers.",
		}, []string{"direction"}),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transferred_files_total",
			Help:      "Items completed by directory transfers.",
		}, []string{"direction"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Directory transfer runs by terminal outcome.",
		}, []string{"direction", "outcome"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "item_failures_total",
			Help:      "Failed items by error code.",
		}, []string{"direction", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of directory transfer runs.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"direction", "outcome"}),
	}

	for _, collector := range []prometheus.Collector{c.bytes, c.files, c.runs, c.failures, c.duration} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ObserveItem records one item progress report.
func (c *Collector) ObserveItem(direction s3types.Direction, p s3types.ItemProgress) {
	if p.BytesDelta > 0 {
		c.bytes.WithLabelValues(string(direction)).Add(float64(p.BytesDelta))
	}
	if p.Completed {
		c.files.WithLabelValues(string(direction)).Inc()
	}
}

// ObserveResult records the outcome of a finished run.
func (c *Collector) ObserveResult(result *s3types.DirectoryResult) {
	direction := string(result.Direction)
	outcome := string(result.Outcome)

	c.runs.WithLabelValues(direction, outcome).Inc()
	c.duration.WithLabelValues(direction, outcome).Observe(result.Duration.Seconds())
	for _, f := range result.Failures {
		c.failures.WithLabelValues(direction, string(errors.Code(f.Err))).Inc()
	}
}

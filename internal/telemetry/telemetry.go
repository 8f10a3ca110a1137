// Package telemetry holds the Prometheus collectors for ingest and query traffic.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "unitmetrics"

// Result labels
const (
	ResultOK       = "ok"
	ResultAccepted = "accepted"
	ResultInvalid  = "invalid"
	ResultError    = "error"
	ResultTimeout  = "timeout"
	ResultDropped  = "dropped"
)

// Metrics is a set of collectors on a private registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ingestTotal   *prometheus.CounterVec
	queryTotal    *prometheus.CounterVec
	queryDuration prometheus.Histogram
	queryBuckets  prometheus.Histogram
	consumedTotal *prometheus.CounterVec
}

// New registers all collectors, plus the Go runtime and process collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ingestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_total",
			Help:      "Metric records received by the ingest API, by result.",
		}, []string{"result"}),
		queryTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_total",
			Help:      "Aggregation queries, by result.",
		}, []string{"result"}),
		queryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Latency of aggregation queries.",
			Buckets:   prometheus.DefBuckets,
		}),
		queryBuckets: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_buckets",
			Help:      "Non-empty buckets returned per query.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		consumedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_consumed_total",
			Help:      "Queued metric records processed by the ingest consumer, by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ingestTotal,
		m.queryTotal,
		m.queryDuration,
		m.queryBuckets,
		m.consumedTotal,
	)

	return m
}

// ObserveIngest counts one ingest request
func (m *Metrics) ObserveIngest(result string) {
	if m == nil {
		return
	}
	m.ingestTotal.WithLabelValues(result).Inc()
}

// ObserveQuery counts one query and records its latency and returned bucket count.
// Bucket counts are only recorded for successful queries.
func (m *Metrics) ObserveQuery(result string, elapsed time.Duration, returned int) {
	if m == nil {
		return
	}
	m.queryTotal.WithLabelValues(result).Inc()
	m.queryDuration.Observe(elapsed.Seconds())
	if result == ResultOK {
		m.queryBuckets.Observe(float64(returned))
	}
}

// ObserveConsumed counts one message handled by the ingest consumer
func (m *Metrics) ObserveConsumed(result string) {
	if m == nil {
		return
	}
	m.consumedTotal.WithLabelValues(result).Inc()
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Package metrics exposes Prometheus metrics for the HTTP surface, the
// answer pipeline, the response cache and ingestion.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so tests and multiple servers never
// collide on the global one.
type Collector struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	answersTotal       *prometheus.CounterVec
	retrievalDegraded  prometheus.Counter
	generationDuration *prometheus.HistogramVec
	streamTokens       prometheus.Counter

	cacheRequests  *prometheus.CounterVec
	ingestedChunks prometheus.Counter
}

// NewCollector registers every metric under namespace (e.g. "netra").
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),

		httpRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),

		answersTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Answers by mode (stream, once) and outcome",
		}, []string{"mode", "outcome"}),

		retrievalDegraded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_degraded_total",
			Help:      "Answers that proceeded without context because retrieval failed",
		}),

		generationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Time spent generating one answer",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"provider"}),

		streamTokens: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_tokens_total",
			Help:      "Tokens delivered to streaming clients",
		}),

		cacheRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Response cache lookups by result (hit, miss)",
		}, []string{"result"}),

		ingestedChunks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingested_chunks_total",
			Help:      "Chunks written to the knowledge store",
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// RecordHTTPRequest records one served request. path should be a route
// pattern, not a raw URL, to keep cardinality bounded.
func (c *Collector) RecordHTTPRequest(method, path string, status int, d time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

func (c *Collector) ObserveAnswer(mode, outcome string) {
	c.answersTotal.WithLabelValues(mode, outcome).Inc()
}

func (c *Collector) ObserveGeneration(provider string, d time.Duration) {
	c.generationDuration.WithLabelValues(provider).Observe(d.Seconds())
}

func (c *Collector) RetrievalDegraded() { c.retrievalDegraded.Inc() }

func (c *Collector) TokenStreamed() { c.streamTokens.Inc() }

// CacheLookup counts a response cache hit or miss.
func (c *Collector) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheRequests.WithLabelValues(result).Inc()
}

// ChunksIngested adds n stored chunks.
func (c *Collector) ChunksIngested(n int) {
	c.ingestedChunks.Add(float64(n))
}

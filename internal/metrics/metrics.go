// Package metrics exposes Prometheus collectors for the copygate service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	quotaDecisionsTotal        *prometheus.CounterVec
	quotaCommitsTotal          *prometheus.CounterVec
	pageCacheLookupsTotal      *prometheus.CounterVec
	fetchDurationSeconds       *prometheus.HistogramVec
	languageResolutionsTotal   *prometheus.CounterVec
	generationsTotal           *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		quotaDecisionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copygate_quota_decisions_total",
				Help: "Rate gate decisions, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		quotaCommitsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copygate_quota_commits_total",
				Help: "Post-success quota increments, labeled by result (created, incremented, failed).",
			},
			[]string{"result"},
		)

		pageCacheLookupsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copygate_page_cache_lookups_total",
				Help: "Page cache lookups, labeled by result (hit, miss, unavailable, corrupt).",
			},
			[]string{"result"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "copygate_fetch_duration_seconds",
				Help:    "Histogram of landing page fetch latencies, labeled by outcome.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8},
			},
			[]string{"outcome"},
		)

		languageResolutionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copygate_language_resolutions_total",
				Help: "Language resolutions, labeled by the winning signal.",
			},
			[]string{"source"},
		)

		generationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copygate_generations_total",
				Help: "Generation gateway calls, labeled by status (ok, gated, failed).",
			},
			[]string{"status"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveQuotaDecision counts one rate gate decision.
func ObserveQuotaDecision(outcome string) {
	Init()
	quotaDecisionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveQuotaCommit counts one post-success quota write.
func ObserveQuotaCommit(result string) {
	Init()
	quotaCommitsTotal.WithLabelValues(result).Inc()
}

// ObservePageCache counts one page cache lookup.
func ObservePageCache(result string) {
	Init()
	pageCacheLookupsTotal.WithLabelValues(result).Inc()
}

// ObserveFetch records the latency of one landing page fetch.
func ObserveFetch(outcome string, duration time.Duration) {
	Init()
	fetchDurationSeconds.WithLabelValues(outcome).Observe(duration.Seconds())
}

// ObserveLanguageResolution counts which signal won arbitration.
func ObserveLanguageResolution(source string) {
	Init()
	languageResolutionsTotal.WithLabelValues(source).Inc()
}

// ObserveGeneration counts one generation gateway call.
func ObserveGeneration(status string) {
	Init()
	generationsTotal.WithLabelValues(status).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

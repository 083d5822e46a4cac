package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/brgy-records-api/internal/models"
)

const metricsNamespace = "brgy"

// Outcomes used as metric labels.
const (
	outcomeOK    = "ok"
	outcomeError = "error"
)

func outcome(err error) string {
	if err != nil {
		return outcomeError
	}
	return outcomeOK
}

// MetricsService owns a private Prometheus registry. It also keeps a few
// plain counters so /metrics/summary can answer without scraping.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	httpDuration   *prometheus.HistogramVec
	httpRequests   *prometheus.CounterVec
	cacheLatency   prometheus.Histogram
	cacheLookups   *prometheus.CounterVec
	recordOps      *prometheus.CounterVec
	recordDuration *prometheus.HistogramVec
	exportRows     *prometheus.CounterVec
	notifications  *prometheus.CounterVec
	photoCleanup   *prometheus.CounterVec

	requests       atomic.Uint64
	requestNanos   atomic.Uint64
	cacheHits      atomic.Uint64
	cacheMisses    atomic.Uint64
	recordWrites   atomic.Uint64
	notifyFailures atomic.Uint64
}

// NewMetricsService registers the HTTP, cache and record collectors plus the
// standard Go runtime and process collectors.
func NewMetricsService() *MetricsService {
	m := &MetricsService{
		registry: prometheus.NewRegistry(),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route template.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route template and status.",
		}, []string{"method", "path", "status"}),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "lookup_duration_seconds",
			Help:      "Redis lookup latency.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache lookups by result.",
		}, []string{"result"}),
		recordOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "records",
			Name:      "operations_total",
			Help:      "Record register, update and delete calls by outcome.",
		}, []string{"resource", "operation", "outcome"}),
		recordDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "records",
			Name:      "operation_duration_seconds",
			Help:      "Record write transaction latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"resource", "operation"}),
		exportRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "records",
			Name:      "export_rows_total",
			Help:      "Rows written to exports.",
		}, []string{"resource", "format"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "notifications_total",
			Help:      "Notification deliveries by sink and outcome.",
		}, []string{"sink", "outcome"}),
		photoCleanup: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "photo_cleanup_total",
			Help:      "Photo deletions after commit by outcome.",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpDuration, m.httpRequests,
		m.cacheLatency, m.cacheLookups,
		m.recordOps, m.recordDuration, m.exportRows,
		m.notifications, m.photoCleanup,
	)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the exposition format. A nil service answers 503.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one request under its route template.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.httpDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	m.httpRequests.WithLabelValues(method, path, code).Inc()
	m.requests.Add(1)
	m.requestNanos.Add(uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	result := "miss"
	if hit {
		result = "hit"
		m.cacheHits.Add(1)
	} else {
		m.cacheMisses.Add(1)
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveRecordOperation counts one record write and its duration.
func (m *MetricsService) ObserveRecordOperation(resource, operation string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	if err == nil {
		m.recordWrites.Add(1)
	}
	m.recordOps.WithLabelValues(resource, operation, outcome(err)).Inc()
	m.recordDuration.WithLabelValues(resource, operation).Observe(duration.Seconds())
}

// AddExportRows counts rows streamed into an export.
func (m *MetricsService) AddExportRows(resource, format string, rows int) {
	if m == nil || rows <= 0 {
		return
	}
	m.exportRows.WithLabelValues(resource, format).Add(float64(rows))
}

// ObserveNotification counts one delivery attempt to a sink.
func (m *MetricsService) ObserveNotification(sink string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.notifyFailures.Add(1)
	}
	m.notifications.WithLabelValues(sink, outcome(err)).Inc()
}

// ObservePhotoCleanup counts a post-commit photo deletion.
func (m *MetricsService) ObservePhotoCleanup(err error) {
	if m == nil {
		return
	}
	m.photoCleanup.WithLabelValues(outcome(err)).Inc()
}

// Snapshot summarises the plain counters.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits, misses := m.cacheHits.Load(), m.cacheMisses.Load()
	requests := m.requests.Load()

	snap := models.SystemMetrics{
		RequestsTotal:       requests,
		CacheHits:           hits,
		CacheMisses:         misses,
		RecordWrites:        m.recordWrites.Load(),
		NotificationsFailed: m.notifyFailures.Load(),
		Goroutines:          runtime.NumGoroutine(),
		GeneratedAt:         time.Now().UTC(),
	}
	if lookups := hits + misses; lookups > 0 {
		snap.CacheHitRatio = float64(hits) / float64(lookups)
	}
	if requests > 0 {
		snap.AverageRequestDurationMs = float64(m.requestNanos.Load()) / float64(requests) / float64(time.Millisecond)
	}
	return snap
}

package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service
// ⭐ SSOT: 지표 등록은 여기서만
type Metrics struct {
	registry *prometheus.Registry

	// HTTP
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Ingest
	IngestBatches prometheus.Counter
	IngestRecords *prometheus.CounterVec

	// Scheduler
	JobRuns *prometheus.CounterVec

	// Report cache
	CacheLookups *prometheus.CounterVec
}

// New creates a Metrics with its own registry.
// Own registry keeps tests isolated from the global default.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "revops",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, path and status code",
		}, []string{"method", "path", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "revops",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		IngestBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "revops",
			Name:      "ingest_batches_total",
			Help:      "Snapshot batches ingested",
		}),
		IngestRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "revops",
			Name:      "ingest_records_total",
			Help:      "Snapshot records by outcome (accepted, rejected)",
		}, []string{"outcome"}),
		JobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "revops",
			Name:      "job_runs_total",
			Help:      "Scheduled job runs by job name and status",
		}, []string{"job", "status"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "revops",
			Name:      "report_cache_lookups_total",
			Help:      "Report cache lookups by result (hit, miss)",
		}, []string{"result"}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPDuration,
		m.IngestBatches,
		m.IngestRecords,
		m.JobRuns,
		m.CacheLookups,
	)

	return m
}

// Handler returns the /metrics endpoint handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware instruments an http.Handler with request count and latency
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		path := r.URL.Path
		m.HTTPRequests.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		m.HTTPDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// statusWriter captures the status code for instrumentation
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

package monitoring

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics on a private registry so tests can
// construct independent instances without global collisions.
type Metrics struct {
	registry *prometheus.Registry

	jobRuns    *prometheus.CounterVec
	jobErrors  *prometheus.CounterVec
	reqTotal   *prometheus.CounterVec
	reqLatency *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	jobRuns := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_job_runs_total",
			Help: "Completed scheduler job runs by outcome",
		},
		[]string{"job", "outcome"},
	)

	jobErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_job_item_errors_total",
			Help: "Per-item failures inside scheduler job runs",
		},
		[]string{"job"},
	)

	reqTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	reqLatency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	registry.MustRegister(jobRuns, jobErrors, reqTotal, reqLatency)

	return &Metrics{
		registry:   registry,
		jobRuns:    jobRuns,
		jobErrors:  jobErrors,
		reqTotal:   reqTotal,
		reqLatency: reqLatency,
	}
}

// RecordJobRun counts a completed job run under its outcome label.
func (m *Metrics) RecordJobRun(job, outcome string) {
	m.jobRuns.WithLabelValues(job, outcome).Inc()
}

// RecordJobErrors adds per-item failure counts for a job run.
func (m *Metrics) RecordJobErrors(job string, n int) {
	if n <= 0 {
		return
	}
	m.jobErrors.WithLabelValues(job).Add(float64(n))
}

// Middleware returns a Chi middleware that records request counts and latency.
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
			next.ServeHTTP(rw, r)

			// Prefer Chi's route pattern so path cardinality stays bounded.
			path := r.URL.Path
			if chiCtx := chi.RouteContext(r.Context()); chiCtx != nil && len(chiCtx.RoutePatterns) > 0 {
				path = chiCtx.RoutePatterns[len(chiCtx.RoutePatterns)-1]
			}

			status := http.StatusText(rw.code)
			m.reqTotal.WithLabelValues(r.Method, path, status).Inc()
			m.reqLatency.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
		})
	}
}

// Handler serves the private registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// statusRecorder captures the HTTP status code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.code = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	return sr.ResponseWriter.Write(b)
}

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/sajjad-MoBe/usbrefresh/panel/src/internal/refresh"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// Request metrics
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	// Refresh metrics
	refreshRuns   *prometheus.CounterVec
	stepFailures  *prometheus.CounterVec
	stepDurations *prometheus.HistogramVec
}

// NewMetrics creates a new metrics instance on its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		requestTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		refreshRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "usb_refresh_runs_total",
				Help: "Total number of refresh runs by result",
			},
			[]string{"result"},
		),
		stepFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "usb_refresh_step_failures_total",
				Help: "Total number of failed refresh steps",
			},
			[]string{"step", "policy"},
		),
		stepDurations: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "usb_refresh_step_duration_seconds",
				Help:    "Duration of refresh steps in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"step"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// MetricsMiddleware adds Prometheus metrics to requests
func (m *Metrics) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrw, r)

		duration := time.Since(start).Seconds()
		path := routePath(r)
		status := strconv.Itoa(wrw.statusCode)

		m.requestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
		m.requestTotal.WithLabelValues(r.Method, path, status).Inc()
	})
}

// ObserveStep implements refresh.Recorder
func (m *Metrics) ObserveStep(step string, policy refresh.Policy, duration time.Duration, err error) {
	m.stepDurations.WithLabelValues(step).Observe(duration.Seconds())
	if err != nil {
		m.stepFailures.WithLabelValues(step, policy.String()).Inc()
	}
}

// ObserveRun implements refresh.Recorder
func (m *Metrics) ObserveRun(ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	m.refreshRuns.WithLabelValues(result).Inc()
}

// routePath labels requests by route template so unknown paths do not grow the label set
func routePath(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

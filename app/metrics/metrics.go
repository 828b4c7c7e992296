// Package metrics exposes Prometheus collectors for refreshes, the catalog
// and the HTTP API. A nil *Manager is valid and records nothing.
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

const namespace = "course_comb"

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"

	IngestCreated  = "created"
	IngestUpdated  = "updated"
	IngestRejected = "rejected"
)

type Manager struct {
	registry *prometheus.Registry

	sourceFetches        *prometheus.CounterVec
	sourceFetchDuration  *prometheus.HistogramVec
	coursesIngested      *prometheus.CounterVec
	refreshRuns          *prometheus.CounterVec
	refreshDuration      prometheus.Histogram
	lastRefreshTimestamp prometheus.Gauge
	catalogCourses       prometheus.Gauge

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewManager registers all collectors on a fresh registry, keeping the
// default global registry untouched.
func NewManager() *Manager {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	auto := promauto.With(registry)
	m := &Manager{registry: registry}

	m.sourceFetches = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "source",
		Name:      "fetches_total",
		Help:      "Adapter fetches by source and outcome",
	}, []string{"source", "outcome"})

	m.sourceFetchDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "source",
		Name:      "fetch_duration_seconds",
		Help:      "Time spent fetching and ingesting one source",
		Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"source"})

	m.coursesIngested = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "source",
		Name:      "courses_total",
		Help:      "Courses returned by adapters, by source and ingest result",
	}, []string{"source", "result"})

	m.refreshRuns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "refresh",
		Name:      "runs_total",
		Help:      "Completed refresh runs by outcome",
	}, []string{"outcome"})

	m.refreshDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "refresh",
		Name:      "duration_seconds",
		Help:      "Wall time of a full refresh run",
		Buckets:   []float64{0.5, 1, 5, 10, 30, 60, 120, 300},
	})

	m.lastRefreshTimestamp = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "refresh",
		Name:      "last_finished_timestamp_seconds",
		Help:      "Unix time the last refresh run finished",
	})

	m.catalogCourses = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "catalog",
		Name:      "courses",
		Help:      "Courses currently stored in the catalog",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method and route",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	return m
}

func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Manager) ObserveSourceFetch(source, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.sourceFetches.WithLabelValues(source, outcome).Inc()
	m.sourceFetchDuration.WithLabelValues(source).Observe(duration.Seconds())
}

func (m *Manager) AddCourses(source, result string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.coursesIngested.WithLabelValues(source, result).Add(float64(n))
}

func (m *Manager) ObserveRefresh(outcome string, duration time.Duration, finishedAt time.Time) {
	if m == nil {
		return
	}
	m.refreshRuns.WithLabelValues(outcome).Inc()
	m.refreshDuration.Observe(duration.Seconds())
	m.lastRefreshTimestamp.Set(float64(finishedAt.Unix()))
}

func (m *Manager) SetCatalogSize(n int) {
	if m == nil {
		return
	}
	m.catalogCourses.Set(float64(n))
}

func (m *Manager) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Package metrics provides Prometheus metrics for the timeline service.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	GesturesTotal       *prometheus.CounterVec
	CommitsTotal        *prometheus.CounterVec
	DataServiceRequests *prometheus.CounterVec
	DataServiceDuration *prometheus.HistogramVec
	GridBuildsTotal     *prometheus.CounterVec
	ActiveViews         prometheus.Gauge
	HTTPRequestsTotal   *prometheus.CounterVec
	StoreSizeBytes      prometheus.Gauge

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		GesturesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "timeline_gestures_total",
				Help: "Drag gestures by direction and outcome.",
			},
			[]string{"direction", "outcome"},
		),
		CommitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "timeline_commits_total",
				Help: "Allocation mutations sent by kind and result.",
			},
			[]string{"kind", "result"},
		),
		DataServiceRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "timeline_dataservice_requests_total",
				Help: "Data service calls by operation and status.",
			},
			[]string{"op", "status"},
		),
		DataServiceDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "timeline_dataservice_duration_seconds",
				Help:    "Data service call duration by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		GridBuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "timeline_grid_builds_total",
				Help: "Grid lookups by whether they were served from cache.",
			},
			[]string{"cached"},
		),
		ActiveViews: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "timeline_active_views",
				Help: "Number of open chart view sessions.",
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "timeline_http_requests_total",
				Help: "HTTP requests by route and status code.",
			},
			[]string{"route", "code"},
		),
		StoreSizeBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "timeline_store_size_bytes",
				Help: "Size of the SQLite database file.",
			},
		),
		registry: reg,
	}

	reg.MustRegister(m.GesturesTotal)
	reg.MustRegister(m.CommitsTotal)
	reg.MustRegister(m.DataServiceRequests)
	reg.MustRegister(m.DataServiceDuration)
	reg.MustRegister(m.GridBuildsTotal)
	reg.MustRegister(m.ActiveViews)
	reg.MustRegister(m.HTTPRequestsTotal)
	reg.MustRegister(m.StoreSizeBytes)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordGesture counts a finished gesture.
func (m *Metrics) RecordGesture(direction, outcome string) {
	m.GesturesTotal.WithLabelValues(direction, outcome).Inc()
}

// RecordCommit counts a sent mutation.
func (m *Metrics) RecordCommit(kind, result string) {
	m.CommitsTotal.WithLabelValues(kind, result).Inc()
}

// ObserveDataService records one data service call.
func (m *Metrics) ObserveDataService(op, status string, seconds float64) {
	m.DataServiceRequests.WithLabelValues(op, status).Inc()
	m.DataServiceDuration.WithLabelValues(op).Observe(seconds)
}

// RecordGridBuild counts a grid lookup.
func (m *Metrics) RecordGridBuild(cached bool) {
	m.GridBuildsTotal.WithLabelValues(strconv.FormatBool(cached)).Inc()
}

// SetActiveViews sets the open view count.
func (m *Metrics) SetActiveViews(count float64) {
	m.ActiveViews.Set(count)
}

// RecordHTTP counts an HTTP request.
func (m *Metrics) RecordHTTP(route string, code int) {
	m.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// SetStoreSize sets the database size gauge.
func (m *Metrics) SetStoreSize(bytes int64) {
	m.StoreSizeBytes.Set(float64(bytes))
}

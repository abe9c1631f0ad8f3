// Package metrics exposes Prometheus instrumentation for the ledger and the
// HTTP API.
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

// Metrics holds the registered collectors. A nil *Metrics is a valid no-op.
type Metrics struct {
	registry *prometheus.Registry

	Movements       *prometheus.CounterVec
	Inside          *prometheus.GaugeVec
	HTTPRequests    *prometheus.CounterVec
	HTTPLatency     *prometheus.HistogramVec
	AutoCheckoutRun *prometheus.CounterVec
}

// New registers every collector on a fresh registry, along with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Movements: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "marinagate_movements_total",
			Help: "Ledger mutations by site and action",
		}, []string{"site", "action"}), // action: entry, exit, auto_exit, edit, delete

		Inside: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "marinagate_people_inside",
			Help: "People currently inside by site",
		}, []string{"site"}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "marinagate_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		}, []string{"method", "route", "status"}),

		HTTPLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "marinagate_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "route"}),

		AutoCheckoutRun: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "marinagate_auto_checkout_runs_total",
			Help: "Scheduled auto-checkout runs by outcome",
		}, []string{"outcome"}), // outcome: ok, error
	}
}

// MovementRecorded implements application.LedgerObserver.
func (m *Metrics) MovementRecorded(siteID, action string) {
	if m != nil {
		m.Movements.WithLabelValues(siteID, action).Inc()
	}
}

// InsideChanged implements application.LedgerObserver.
func (m *Metrics) InsideChanged(siteID string, count int) {
	if m != nil {
		m.Inside.WithLabelValues(siteID).Set(float64(count))
	}
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m != nil {
		m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		m.HTTPLatency.WithLabelValues(method, route).Observe(d.Seconds())
	}
}

// ObserveAutoCheckoutRun records the outcome of a scheduled run.
func (m *Metrics) ObserveAutoCheckoutRun(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.AutoCheckoutRun.WithLabelValues(outcome).Inc()
}

// RegisterAuditQueue exposes the audit sink counters as gauges.
func (m *Metrics) RegisterAuditQueue(dropped, written func() int64) {
	if m == nil {
		return
	}
	factory := promauto.With(m.registry)
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "marinagate_audit_events_dropped",
		Help: "Audit events discarded because the queue was full or closed",
	}, func() float64 { return float64(dropped()) })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "marinagate_audit_events_written",
		Help: "Audit events persisted",
	}, func() float64 { return float64(written()) })
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Package metrics exposes Prometheus instrumentation for HTTP traffic and
// the booking core.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors of one service instance. Methods on a nil
// *Metrics are no-ops so components can run uninstrumented in tests.
type Metrics struct {
	service  string
	gatherer prometheus.Gatherer

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	reservations    *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	invoices        prometheus.Counter
	lockWait        prometheus.Histogram
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in
// tests to avoid clashing with the default registry.
func New(service string, reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		service:  service,
		gatherer: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"service", "method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"service", "method", "path", "status"}),
		reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_reservations_total",
			Help: "Reservation attempts by outcome (created, conflict, busy, invalid, error)",
		}, []string{"service", "outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_transitions_total",
			Help: "Booking status transitions by target status",
		}, []string{"service", "to"}),
		invoices: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "invoices_minted_total",
			Help:        "Invoices minted on booking confirmation",
			ConstLabels: prometheus.Labels{"service": service},
		}),
		lockWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "booking_lock_wait_seconds",
			Help:        "Time spent waiting for the per-item booking lock",
			Buckets:     []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
			ConstLabels: prometheus.Labels{"service": service},
		}),
	}
	reg.MustRegister(m.requests, m.requestDuration, m.reservations, m.transitions, m.invoices, m.lockWait)
	return m
}

// Middleware records request counts and latency per route.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok && !c.Response().Committed {
				status = he.Code
			}
			labels := []string{m.service, c.Request().Method, c.Path(), strconv.Itoa(status)}
			m.requests.WithLabelValues(labels...).Inc()
			m.requestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) Reservation(outcome string) {
	if m != nil {
		m.reservations.WithLabelValues(m.service, outcome).Inc()
	}
}

func (m *Metrics) Transition(to string) {
	if m != nil {
		m.transitions.WithLabelValues(m.service, to).Inc()
	}
}

func (m *Metrics) InvoiceMinted() {
	if m != nil {
		m.invoices.Inc()
	}
}

func (m *Metrics) LockWait(d time.Duration) {
	if m != nil {
		m.lockWait.Observe(d.Seconds())
	}
}

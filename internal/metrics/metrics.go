// Package metrics exposes Prometheus counters for the HTTP surface and the
// appointment, report and email flows. A nil *Metrics records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dental-clinic-server/internal/models"
)

const namespace = "dental_clinic"

type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	booked           *prometheus.CounterVec
	transitions      *prometheus.CounterVec
	lookups          *prometheus.CounterVec
	degradedListings prometheus.Counter
	reports          *prometheus.CounterVec
	emails           *prometheus.CounterVec
	logins           *prometheus.CounterVec
}

// New registers every collector on reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		gatherer: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		booked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "appointments",
			Name:      "booked_total",
			Help:      "Appointments booked per clinic",
		}, []string{"clinic"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "appointments",
			Name:      "status_transitions_total",
			Help:      "Appointment status transitions",
		}, []string{"from", "to"}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "appointments",
			Name:      "tracking_lookups_total",
			Help:      "Tracking code lookups by resolution path",
		}, []string{"path"}),
		degradedListings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "appointments",
			Name:      "degraded_listings_total",
			Help:      "Listings served without filters after the filtered query failed",
		}),
		reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reports",
			Name:      "created_total",
			Help:      "Reports created, partial when a child record failed",
		}, []string{"outcome"}),
		emails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "emails_total",
			Help:      "Email deliveries by template and outcome",
		}, []string{"kind", "outcome"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Admin login attempts",
		}, []string{"outcome"}),
	}
	reg.MustRegister(
		m.httpRequests, m.httpDuration, m.booked, m.transitions, m.lookups,
		m.degradedListings, m.reports, m.emails, m.logins,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) AppointmentBooked(clinic string) {
	if m == nil {
		return
	}
	clinic = strings.ToLower(strings.TrimSpace(clinic))
	if clinic == "" {
		clinic = "unknown"
	}
	m.booked.WithLabelValues(clinic).Inc()
}

func (m *Metrics) StatusTransition(from, to models.AppointmentStatus) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(from), string(to)).Inc()
}

func (m *Metrics) LookupPath(path string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(path).Inc()
}

func (m *Metrics) ListDegraded() {
	if m == nil {
		return
	}
	m.degradedListings.Inc()
}

func (m *Metrics) ReportCreated(failedChildren int) {
	if m == nil {
		return
	}
	outcome := "complete"
	if failedChildren > 0 {
		outcome = "partial"
	}
	m.reports.WithLabelValues(outcome).Inc()
}

func (m *Metrics) EmailSent(kind string) {
	if m == nil {
		return
	}
	m.emails.WithLabelValues(kind, "sent").Inc()
}

func (m *Metrics) EmailFailed(kind string) {
	if m == nil {
		return
	}
	m.emails.WithLabelValues(kind, "failed").Inc()
}

func (m *Metrics) LoginAttempt(ok bool) {
	if m == nil {
		return
	}
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	m.logins.WithLabelValues(outcome).Inc()
}

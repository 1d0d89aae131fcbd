package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dental-clinic-server/internal/models"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.AppointmentBooked(" Miraj ")
	m.AppointmentBooked("miraj")
	m.AppointmentBooked("")
	m.StatusTransition(models.StatusPending, models.StatusConfirmed)
	m.LookupPath("scan")
	m.ListDegraded()
	m.ReportCreated(0)
	m.ReportCreated(2)
	m.EmailSent("booking_confirmation")
	m.EmailFailed("booking_confirmation")
	m.LoginAttempt(false)

	body := scrape(t, m)
	for _, line := range []string{
		`dental_clinic_appointments_booked_total{clinic="miraj"} 2`,
		`dental_clinic_appointments_booked_total{clinic="unknown"} 1`,
		`dental_clinic_appointments_status_transitions_total{from="Pending",to="Confirmed"} 1`,
		`dental_clinic_appointments_tracking_lookups_total{path="scan"} 1`,
		`dental_clinic_appointments_degraded_listings_total 1`,
		`dental_clinic_reports_created_total{outcome="complete"} 1`,
		`dental_clinic_reports_created_total{outcome="partial"} 1`,
		`dental_clinic_notify_emails_total{kind="booking_confirmation",outcome="failed"} 1`,
		`dental_clinic_notify_emails_total{kind="booking_confirmation",outcome="sent"} 1`,
		`dental_clinic_auth_logins_total{outcome="failure"} 1`,
	} {
		assert.Contains(t, body, line)
	}
}

func TestHandlerExposesHTTPMetrics(t *testing.T) {
	m := New(nil)
	m.ObserveHTTP(http.MethodGet, "/api/v1/appointments/:ref", 200, 15*time.Millisecond)

	assert.Contains(t, scrape(t, m), `dental_clinic_http_requests_total{method="GET",route="/api/v1/appointments/:ref",status="200"} 1`)
}

func TestNilSafe(t *testing.T) {
	var m *Metrics
	m.AppointmentBooked("x")
	m.StatusTransition(models.StatusPending, models.StatusCancelled)
	m.LookupPath("query")
	m.ListDegraded()
	m.ReportCreated(1)
	m.EmailSent("k")
	m.EmailFailed("k")
	m.LoginAttempt(true)
	m.ObserveHTTP("GET", "", 404, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

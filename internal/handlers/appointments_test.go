package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dental-clinic-server/internal/appointments"
	"dental-clinic-server/internal/models"
	"dental-clinic-server/internal/store/storetest"
)

func appointmentRouter(svc *appointments.Service) *gin.Engine {
	h := NewAppointmentHandler(svc)
	r := gin.New()
	r.POST("/appointments", h.CreateAppointment)
	r.GET("/appointments/:ref", h.GetAppointment)
	r.GET("/admin/appointments", h.ListAppointments)
	r.GET("/admin/appointments/:id", h.GetAppointmentByID)
	r.PATCH("/admin/appointments/:id/status", h.UpdateAppointmentStatus)
	r.DELETE("/admin/appointments/:id", h.DeleteAppointment)
	r.GET("/admin/appointments/:id/reschedule", h.RescheduleAppointment)
	r.POST("/admin/appointments/:id/reminder", h.SendReminder)
	return r
}

func bookVia(t *testing.T, r *gin.Engine) BookingResponse {
	t.Helper()
	w, env := do(t, r, http.MethodPost, "/appointments", bookingBody())
	require.Equal(t, http.StatusCreated, w.Code, env.Error)
	var res BookingResponse
	env.decode(t, &res)
	return res
}

func TestCreateAppointmentAndFetchByEitherReference(t *testing.T) {
	r := appointmentRouter(newAppointmentService(storetest.NewMemory(), appointments.Options{}))

	booked := bookVia(t, r)
	assert.Regexp(t, appointments.TrackingCodePattern, booked.Confirmation.TrackingCode)
	assert.Equal(t, booked.Appointment.ID, booked.Confirmation.Reference)
	assert.Equal(t, "20 Oct 2026, 10:30 am", booked.Confirmation.Date)
	assert.Equal(t, models.StatusPending, booked.Appointment.Status)
	assert.Equal(t, "9876543210", booked.Appointment.Phone)

	for _, ref := range []string{booked.Confirmation.TrackingCode, booked.Appointment.ID} {
		w, env := do(t, r, http.MethodGet, "/appointments/"+ref, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var got models.Appointment
		env.decode(t, &got)
		assert.Equal(t, booked.Appointment.ID, got.ID)
	}

	w, env := do(t, r, http.MethodGet, "/admin/appointments/"+booked.Appointment.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)

	w, _ = do(t, r, http.MethodGet, "/admin/appointments/"+booked.Confirmation.TrackingCode, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateAppointmentReportsEveryProblem(t *testing.T) {
	r := appointmentRouter(newAppointmentService(storetest.NewMemory(), appointments.Options{}))

	body := bookingBody()
	body["patient_name"] = ""
	body["phone"] = "12345"
	body["appointment_date"] = "2026-10-01"

	w, env := do(t, r, http.MethodPost, "/appointments", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "patient name is required", env.Error)
	assert.Equal(t, []string{
		"patient name is required",
		"Phone number must be at least 10 digits",
		"Appointment date cannot be in the past",
	}, env.Errors)

	w, env = do(t, r, http.MethodPost, "/appointments", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid JSON in request body", env.Error)
}

func TestGetAppointmentUnknown(t *testing.T) {
	r := appointmentRouter(newAppointmentService(storetest.NewMemory(), appointments.Options{}))

	w, env := do(t, r, http.MethodGet, "/appointments/MIR-000000-ZZZZ", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, appointmentNotFound, env.Error)
}

func TestUpdateAppointmentStatus(t *testing.T) {
	r := appointmentRouter(newAppointmentService(storetest.NewMemory(), appointments.Options{}))
	booked := bookVia(t, r)
	path := "/admin/appointments/" + booked.Appointment.ID + "/status"

	w, env := do(t, r, http.MethodPatch, path, UpdateStatusRequest{Status: "Confirmed"})
	require.Equal(t, http.StatusOK, w.Code, env.Error)
	var upd StatusUpdate
	env.decode(t, &upd)
	assert.Equal(t, models.StatusConfirmed, upd.Status)
	assert.Equal(t, booked.Confirmation.TrackingCode, upd.TrackingCode)

	w, env = do(t, r, http.MethodPatch, path, UpdateStatusRequest{Status: "Pending"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error, "invalid status")

	w, env = do(t, r, http.MethodPatch, path, UpdateStatusRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing new status", env.Error)

	w, _ = do(t, r, http.MethodPatch, path, UpdateStatusRequest{Status: "Rescheduled"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodPatch, "/admin/appointments/nope/status", UpdateStatusRequest{Status: "Confirmed"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateAppointmentStatusByTrackingCode(t *testing.T) {
	r := appointmentRouter(newAppointmentService(storetest.NewMemory(), appointments.Options{}))
	booked := bookVia(t, r)

	w, env := do(t, r, http.MethodPatch, "/admin/appointments/"+booked.Confirmation.TrackingCode+"/status",
		UpdateStatusRequest{Status: "Cancelled"})
	require.Equal(t, http.StatusOK, w.Code, env.Error)
	var upd StatusUpdate
	env.decode(t, &upd)
	assert.Equal(t, booked.Appointment.ID, upd.ID)
	assert.Equal(t, models.StatusCancelled, upd.Status)
}

func TestListAppointments(t *testing.T) {
	r := appointmentRouter(newAppointmentService(storetest.NewMemory(), appointments.Options{}))
	first := bookVia(t, r)
	bookVia(t, r)
	do(t, r, http.MethodPatch, "/admin/appointments/"+first.Appointment.ID+"/status", UpdateStatusRequest{Status: "Confirmed"})

	w, env := do(t, r, http.MethodGet, "/admin/appointments?status=Pending&limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var data []models.Appointment
	env.decode(t, &data)
	require.Len(t, data, 1)
	assert.Equal(t, models.StatusPending, data[0].Status)

	var meta ListMeta
	env.decodeMeta(t, &meta)
	assert.Equal(t, int64(1), meta.Total)
	assert.Equal(t, 5, meta.Limit)
	assert.Equal(t, 1, meta.Page)
	assert.Equal(t, "Pending", meta.Filters.Status)
	assert.Equal(t, 1, meta.StatusCounts[models.StatusPending])
	assert.False(t, meta.Degraded)

	w, env = do(t, r, http.MethodGet, "/admin/appointments?date=2026-10-21", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestRescheduleDraft(t *testing.T) {
	r := appointmentRouter(newAppointmentService(storetest.NewMemory(), appointments.Options{}))
	booked := bookVia(t, r)

	w, env := do(t, r, http.MethodGet, "/admin/appointments/"+booked.Appointment.ID+"/reschedule", nil)
	require.Equal(t, http.StatusOK, w.Code, env.Error)
	var draft appointments.SubmitInput
	env.decode(t, &draft)
	assert.Equal(t, booked.Confirmation.TrackingCode, draft.RescheduledFrom)
	assert.Equal(t, "2026-10-20", draft.AppointmentDate)
	assert.Equal(t, "Asha Patil", draft.PatientName)

	do(t, r, http.MethodPatch, "/admin/appointments/"+booked.Appointment.ID+"/status", UpdateStatusRequest{Status: "Cancelled"})
	w, _ = do(t, r, http.MethodGet, "/admin/appointments/"+booked.Appointment.ID+"/reschedule", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSendReminder(t *testing.T) {
	r := appointmentRouter(newAppointmentService(storetest.NewMemory(), appointments.Options{}))
	booked := bookVia(t, r)

	w, env := do(t, r, http.MethodPost, "/admin/appointments/"+booked.Appointment.ID+"/reminder", nil)
	require.Equal(t, http.StatusOK, w.Code, env.Error)
	assert.Equal(t, "Reminder sent to asha@example.com", env.Message)
}

func TestDeleteAppointment(t *testing.T) {
	r := appointmentRouter(newAppointmentService(storetest.NewMemory(), appointments.Options{}))
	booked := bookVia(t, r)

	w, _ := do(t, r, http.MethodDelete, "/admin/appointments/"+booked.Appointment.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, r, http.MethodGet, "/appointments/"+booked.Confirmation.TrackingCode, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, r, http.MethodDelete, "/admin/appointments/"+booked.Appointment.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

package handlers

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"dental-clinic-server/internal/appointments"
	"dental-clinic-server/internal/models"
	"dental-clinic-server/internal/utils"
)

const appointmentNotFound = "Appointment not found"

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	Service *appointments.Service
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(service *appointments.Service) *AppointmentHandler {
	return &AppointmentHandler{Service: service}
}

// BookingConfirmation is what the patient keeps after booking.
type BookingConfirmation struct {
	TrackingCode string `json:"id"`
	Reference    string `json:"reference"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	Clinic       string `json:"clinic"`
}

// BookingResponse is returned by CreateAppointment.
type BookingResponse struct {
	Appointment  models.Appointment  `json:"appointment"`
	Confirmation BookingConfirmation `json:"confirmation"`
}

// CreateAppointment books a visit from the public form. Every violated rule is
// reported at once.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req appointments.SubmitInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid JSON in request body")
		return
	}

	appt, err := h.Service.Create(c.Request.Context(), req)
	if err != nil {
		utils.HandleError(c, err, appointmentNotFound)
		return
	}

	utils.Created(c, "Appointment booked successfully", BookingResponse{
		Appointment: appt,
		Confirmation: BookingConfirmation{
			TrackingCode: appt.TrackingCode,
			Reference:    appt.ID,
			Date:         appt.PreferredDate,
			Time:         appt.PreferredTime,
			Clinic:       appt.Clinic,
		},
	})
}

// GetAppointment fetches an appointment by internal id or tracking code.
func (h *AppointmentHandler) GetAppointment(c *gin.Context) {
	appt, err := h.Service.Find(c.Request.Context(), c.Param("ref"))
	if err != nil {
		utils.HandleError(c, err, appointmentNotFound)
		return
	}
	utils.Success(c, "Appointment fetched successfully", appt)
}

// GetAppointmentByID fetches an appointment by internal id only.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	appt, err := h.Service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.HandleError(c, err, appointmentNotFound)
		return
	}
	utils.Success(c, "Appointment fetched successfully", appt)
}

// ListMeta is the pagination and filter summary of a listing.
type ListMeta struct {
	Total        int64                            `json:"total"`
	Page         int                              `json:"page"`
	Limit        int                              `json:"limit"`
	TotalPages   int                              `json:"totalPages"`
	HasNextPage  bool                             `json:"hasNextPage"`
	HasPrevPage  bool                             `json:"hasPrevPage"`
	StatusCounts map[models.AppointmentStatus]int `json:"statusCounts"`
	Filters      appointments.ListParams          `json:"filters"`
	Degraded     bool                             `json:"degraded,omitempty"`
}

// ListAppointments lists appointments for the staff console.
func (h *AppointmentHandler) ListAppointments(c *gin.Context) {
	var params appointments.ListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		utils.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	res, err := h.Service.List(c.Request.Context(), params)
	if err != nil {
		utils.HandleError(c, err, appointmentNotFound)
		return
	}

	data := res.Appointments
	if data == nil {
		data = []models.Appointment{}
	}
	utils.SuccessWithMeta(c, "Appointments fetched successfully", data, ListMeta{
		Total:        res.Total,
		Page:         res.Page,
		Limit:        res.Limit,
		TotalPages:   res.TotalPages,
		HasNextPage:  res.HasNextPage,
		HasPrevPage:  res.HasPrevPage,
		StatusCounts: res.StatusCounts,
		Filters:      res.Filters,
		Degraded:     res.Degraded,
	})
}

// UpdateStatusRequest represents the request body for a status change.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// StatusUpdate is returned after a successful transition.
type StatusUpdate struct {
	ID           string                   `json:"id"`
	TrackingCode string                   `json:"trackingCode"`
	Status       models.AppointmentStatus `json:"status"`
	UpdatedAt    time.Time                `json:"updatedAt"`
}

// UpdateAppointmentStatus moves an appointment through its lifecycle.
func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid JSON in request body")
		return
	}
	if strings.TrimSpace(req.Status) == "" {
		utils.BadRequest(c, "Missing new status")
		return
	}

	appt, err := h.Service.Transition(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		utils.HandleError(c, err, appointmentNotFound)
		return
	}

	utils.Success(c, "Status updated successfully", StatusUpdate{
		ID:           appt.ID,
		TrackingCode: appt.TrackingCode,
		Status:       appt.Status,
		UpdatedAt:    appt.UpdatedAt,
	})
}

// DeleteAppointment permanently removes an appointment.
func (h *AppointmentHandler) DeleteAppointment(c *gin.Context) {
	if err := h.Service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		utils.HandleError(c, err, appointmentNotFound)
		return
	}
	utils.Success(c, "Appointment deleted successfully", nil)
}

// RescheduleAppointment returns a booking draft prefilled from an existing
// appointment. Submitting the draft to CreateAppointment books the new slot.
func (h *AppointmentHandler) RescheduleAppointment(c *gin.Context) {
	draft, err := h.Service.Reschedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.HandleError(c, err, appointmentNotFound)
		return
	}
	utils.Success(c, "Reschedule draft prepared", draft)
}

// SendReminder queues a reminder email to the patient.
func (h *AppointmentHandler) SendReminder(c *gin.Context) {
	appt, err := h.Service.SendReminder(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.HandleError(c, err, appointmentNotFound)
		return
	}
	utils.Success(c, "Reminder sent to "+appt.Email, gin.H{"id": appt.ID, "trackingCode": appt.TrackingCode})
}

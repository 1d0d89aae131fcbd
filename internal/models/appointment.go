package models

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "Pending"
	StatusConfirmed AppointmentStatus = "Confirmed"
	StatusCompleted AppointmentStatus = "Completed"
	StatusCancelled AppointmentStatus = "Cancelled"
	StatusNoShow    AppointmentStatus = "No Show"
)

// AllStatuses lists every status in display order.
var AllStatuses = []AppointmentStatus{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow}

// Appointment represents a booked dental visit.
//
// PreferredDate is kept as the display string patients and staff see
// ("17 Oct 2026, 10:00 am"), not as a DATE column.
type Appointment struct {
	BaseModel
	PatientName   string            `gorm:"column:name;size:255;not null" json:"patientName"`
	Phone         string            `gorm:"size:20;index" json:"phone"`
	Email         string            `gorm:"size:255;index" json:"email,omitempty"`
	ServiceName   string            `gorm:"size:255" json:"serviceName"`
	PreferredDate string            `gorm:"size:64;index" json:"preferredDate"`
	PreferredTime string            `gorm:"size:32" json:"preferredTime"`
	Clinic        string            `gorm:"column:at;size:255" json:"clinic"`
	Notes         string            `gorm:"type:text" json:"notes,omitempty"`
	Status        AppointmentStatus `gorm:"size:20;default:'Pending';index" json:"status"`
	TrackingCode  string            `gorm:"column:appointment_id;size:32;uniqueIndex" json:"trackingCode"`
}

package appointments

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"dental-clinic-server/internal/apperrors"
)

const minPhoneDigits = 10

var validate = validator.New()

// SubmitInput is the raw booking form.
type SubmitInput struct {
	PatientName     string `json:"patient_name"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	Service         string `json:"service"`
	AppointmentDate string `json:"appointment_date"`
	AppointmentTime string `json:"appointment_time"`
	Clinic          string `json:"clinic"`
	Notes           string `json:"notes,omitempty"`
	// RescheduledFrom carries the tracking code of the appointment this booking replaces.
	RescheduledFrom string `json:"rescheduled_from,omitempty"`
}

// Submission is a booking that passed validation, normalized for storage.
type Submission struct {
	PatientName     string
	Phone           string
	Email           string
	Service         string
	Clinic          string
	Notes           string
	Time            string
	Date            time.Time
	RescheduledFrom string
}

// Validate checks every booking rule and reports all violations at once. now and
// loc decide what "today" is for the past-date rule.
func Validate(in SubmitInput, now time.Time, loc *time.Location) (Submission, error) {
	var problems []string

	required := []struct {
		name  string
		value string
	}{
		{"patient name", in.PatientName},
		{"phone", in.Phone},
		{"service", in.Service},
		{"appointment date", in.AppointmentDate},
		{"appointment time", in.AppointmentTime},
		{"clinic", in.Clinic},
		{"email", in.Email},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			problems = append(problems, f.name+" is required")
		}
	}

	phone := DigitsOnly(in.Phone)
	if strings.TrimSpace(in.Phone) != "" && len(phone) < minPhoneDigits {
		problems = append(problems, "Phone number must be at least 10 digits")
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email != "" && validate.Var(email, "required,email") != nil {
		problems = append(problems, "Invalid email format")
	}

	var date time.Time
	if strings.TrimSpace(in.AppointmentDate) != "" {
		parsed, err := ParseDate(in.AppointmentDate, loc)
		switch {
		case err != nil:
			problems = append(problems, "Invalid appointment date format")
		case StartOfDay(parsed, loc).Before(StartOfDay(now, loc)):
			problems = append(problems, "Appointment date cannot be in the past")
		default:
			date = parsed
		}
	}

	if len(problems) > 0 {
		return Submission{}, apperrors.NewValidationError(problems...)
	}

	clock := strings.TrimSpace(in.AppointmentTime)
	if h, m, ok := ParseClock(clock); ok {
		date = time.Date(date.Year(), date.Month(), date.Day(), h, m, 0, 0, loc)
	}

	return Submission{
		PatientName:     strings.TrimSpace(in.PatientName),
		Phone:           phone,
		Email:           email,
		Service:         strings.TrimSpace(in.Service),
		Clinic:          strings.TrimSpace(in.Clinic),
		Notes:           strings.TrimSpace(in.Notes),
		Time:            clock,
		Date:            date,
		RescheduledFrom: strings.TrimSpace(in.RescheduledFrom),
	}, nil
}

package appointments

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dental-clinic-server/internal/apperrors"
)

var (
	ist      = time.FixedZone("IST", 5*3600+1800)
	fixedNow = time.Date(2026, 10, 17, 9, 0, 0, 0, ist)
)

func validInput() SubmitInput {
	return SubmitInput{
		PatientName:     "  A  ",
		Phone:           "98765 43210",
		Email:           " A@X.com ",
		Service:         "Cleaning",
		AppointmentDate: "2026-10-17",
		AppointmentTime: "10:00",
		Clinic:          "Miraj",
	}
}

func TestValidateNormalizes(t *testing.T) {
	sub, err := Validate(validInput(), fixedNow, ist)
	require.NoError(t, err)

	assert.Equal(t, "A", sub.PatientName)
	assert.Equal(t, "9876543210", sub.Phone)
	assert.Equal(t, "a@x.com", sub.Email)
	assert.Equal(t, "Miraj", sub.Clinic)
	assert.Equal(t, time.Date(2026, 10, 17, 10, 0, 0, 0, ist), sub.Date)
	assert.Equal(t, "17 Oct 2026, 10:00 am", FormatDisplay(sub.Date))
}

func TestValidateCollectsEveryMissingField(t *testing.T) {
	_, err := Validate(SubmitInput{PatientName: "   "}, fixedNow, ist)

	ve, ok := apperrors.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, []string{
		"patient name is required",
		"phone is required",
		"service is required",
		"appointment date is required",
		"appointment time is required",
		"clinic is required",
		"email is required",
	}, ve.Problems)
	assert.Equal(t, "patient name is required", ve.Primary())
}

func TestValidateRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SubmitInput)
		want   []string
	}{
		{
			name:   "short phone",
			mutate: func(in *SubmitInput) { in.Phone = "+91 98-76" },
			want:   []string{"Phone number must be at least 10 digits"},
		},
		{
			name:   "bad email",
			mutate: func(in *SubmitInput) { in.Email = "not-an-email" },
			want:   []string{"Invalid email format"},
		},
		{
			name:   "past date",
			mutate: func(in *SubmitInput) { in.AppointmentDate = "2026-10-16" },
			want:   []string{"Appointment date cannot be in the past"},
		},
		{
			name:   "unparseable date",
			mutate: func(in *SubmitInput) { in.AppointmentDate = "next tuesday" },
			want:   []string{"Invalid appointment date format"},
		},
		{
			name: "several at once",
			mutate: func(in *SubmitInput) {
				in.Phone = "123"
				in.Email = "x@"
				in.Clinic = ""
			},
			want: []string{"clinic is required", "Phone number must be at least 10 digits", "Invalid email format"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)

			_, err := Validate(in, fixedNow, ist)
			ve, ok := apperrors.AsValidation(err)
			require.True(t, ok, "expected validation error, got %v", err)
			assert.Equal(t, tt.want, ve.Problems)
		})
	}
}

func TestValidateTodayIgnoresTimeOfDay(t *testing.T) {
	late := time.Date(2026, 10, 17, 23, 59, 0, 0, ist)
	in := validInput()
	in.AppointmentTime = "9:00 am"

	sub, err := Validate(in, late, ist)
	require.NoError(t, err)
	assert.Equal(t, 9, sub.Date.Hour())
}

func TestValidateKeepsUnparseableClock(t *testing.T) {
	in := validInput()
	in.AppointmentTime = "Morning (9-12)"

	sub, err := Validate(in, fixedNow, ist)
	require.NoError(t, err)
	assert.Equal(t, "Morning (9-12)", sub.Time)
	assert.Equal(t, "17 Oct 2026, 12:00 am", FormatDisplay(sub.Date))
}

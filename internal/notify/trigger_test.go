package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"dental-clinic-server/internal/models"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, msg EmailMessage) error {
	return m.Called(ctx, msg).Error(0)
}

type countingRecorder struct {
	mu     sync.Mutex
	sent   map[string]int
	failed map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{sent: map[string]int{}, failed: map[string]int{}}
}

func (c *countingRecorder) EmailSent(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent[kind]++
}

func (c *countingRecorder) EmailFailed(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failed[kind]++
}

func newTestTrigger(sender EmailSender, rec Recorder) *Trigger {
	return NewTrigger(TriggerOptions{
		Sender:        sender,
		Renderer:      NewRenderer(testBrand),
		ClinicInbox:   "front-desk@clinic.example.com",
		PublicBaseURL: "https://clinic.example.com/",
		Timeout:       time.Second,
		Metrics:       rec,
		Logger:        zerolog.Nop(),
	})
}

func sampleAppointment(status models.AppointmentStatus) models.Appointment {
	return models.Appointment{
		BaseModel:     models.BaseModel{ID: "appt-1"},
		PatientName:   "Asha Patil",
		Phone:         "9876543210",
		Email:         "asha@example.com",
		ServiceName:   "Cleaning",
		PreferredDate: "20 Oct 2026, 10:30 am",
		PreferredTime: "10:30",
		Clinic:        "Miraj",
		Status:        status,
		TrackingCode:  "MIR-173210-AB12",
	}
}

func subjectIs(prefix string) interface{} {
	return mock.MatchedBy(func(msg EmailMessage) bool {
		return len(msg.Subject) >= len(prefix) && msg.Subject[:len(prefix)] == prefix
	})
}

func TestAppointmentBookedSendsConfirmation(t *testing.T) {
	sender := new(mockSender)
	sender.On("Send", mock.Anything, mock.MatchedBy(func(msg EmailMessage) bool {
		return msg.To == "asha@example.com" &&
			msg.ToName == "Asha Patil" &&
			msg.Subject == "Your Appointment is Confirmed - Smile Care Dental"
	})).Return(nil).Once()
	rec := newCountingRecorder()

	trig := newTestTrigger(sender, rec)
	trig.AppointmentBooked(context.Background(), sampleAppointment(models.StatusPending))
	trig.Wait()

	sender.AssertExpectations(t)
	assert.Equal(t, 1, rec.sent[string(KindBookingConfirmation)])
}

func TestStatusChangedTemplates(t *testing.T) {
	tests := []struct {
		status  models.AppointmentStatus
		subject string
	}{
		{models.StatusConfirmed, "Appointment Confirmed"},
		{models.StatusCancelled, "Appointment Cancelled"},
	}
	for _, tt := range tests {
		sender := new(mockSender)
		sender.On("Send", mock.Anything, subjectIs(tt.subject)).Return(nil).Once()

		trig := newTestTrigger(sender, nil)
		trig.StatusChanged(context.Background(), sampleAppointment(tt.status), models.StatusPending)
		trig.Wait()

		sender.AssertExpectations(t)
	}
}

func TestCancelledEmailSaysByClinic(t *testing.T) {
	sender := new(mockSender)
	var got EmailMessage
	sender.On("Send", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		got = args.Get(1).(EmailMessage)
	}).Return(nil).Once()

	trig := newTestTrigger(sender, nil)
	trig.StatusChanged(context.Background(), sampleAppointment(models.StatusCancelled), models.StatusConfirmed)
	trig.Wait()

	assert.Contains(t, got.Body, "cancelled by the clinic")
}

func TestStatusChangedSilentTransitions(t *testing.T) {
	sender := new(mockSender)
	trig := newTestTrigger(sender, nil)

	for _, st := range []models.AppointmentStatus{models.StatusCompleted, models.StatusNoShow, models.StatusPending} {
		trig.StatusChanged(context.Background(), sampleAppointment(st), models.StatusConfirmed)
	}
	trig.Wait()

	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestNoEmailNoSend(t *testing.T) {
	sender := new(mockSender)
	trig := newTestTrigger(sender, nil)

	appt := sampleAppointment(models.StatusPending)
	appt.Email = "  "
	trig.AppointmentBooked(context.Background(), appt)
	trig.ReportReady(context.Background(), appt)
	trig.Wait()

	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestDeliveryFailureIsCounted(t *testing.T) {
	sender := new(mockSender)
	sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp down")).Once()
	rec := newCountingRecorder()

	trig := newTestTrigger(sender, rec)
	trig.Reminder(context.Background(), sampleAppointment(models.StatusConfirmed))
	trig.Wait()

	assert.Equal(t, 1, rec.failed[string(KindReminder)])
	assert.Zero(t, rec.sent[string(KindReminder)])
}

func TestDeliveryOutlivesRequestContext(t *testing.T) {
	sender := new(mockSender)
	sender.On("Send", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Err() == nil
	}), mock.Anything).Return(nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	trig := newTestTrigger(sender, nil)
	trig.AppointmentBooked(ctx, sampleAppointment(models.StatusPending))
	cancel()
	trig.Wait()

	sender.AssertExpectations(t)
}

func TestReportReadyLinksToReportPage(t *testing.T) {
	sender := new(mockSender)
	var got EmailMessage
	sender.On("Send", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		got = args.Get(1).(EmailMessage)
	}).Return(nil).Once()

	trig := newTestTrigger(sender, nil)
	trig.ReportReady(context.Background(), sampleAppointment(models.StatusCompleted))
	trig.Wait()

	assert.Equal(t, "https://clinic.example.com/reports?appointmentId=MIR-173210-AB12", trig.ReportURL("MIR-173210-AB12"))
	assert.Contains(t, got.Body, "https://clinic.example.com/reports?appointmentId=MIR-173210-AB12")
	assert.Equal(t, "asha@example.com", got.To)
}

func TestRescheduledUsesBothAppointments(t *testing.T) {
	sender := new(mockSender)
	var got EmailMessage
	sender.On("Send", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		got = args.Get(1).(EmailMessage)
	}).Return(nil).Once()

	previous := sampleAppointment(models.StatusConfirmed)
	current := sampleAppointment(models.StatusPending)
	current.PreferredDate = "22 Oct 2026, 11:00 am"
	current.PreferredTime = ""
	current.ServiceName = "Filling"

	trig := newTestTrigger(sender, nil)
	trig.AppointmentRescheduled(context.Background(), previous, current)
	trig.Wait()

	require.NotEmpty(t, got.Subject)
	assert.Contains(t, got.Body, "Previous: 20 Oct 2026 10:30 (Cleaning)")
	assert.Contains(t, got.Body, "New: 22 Oct 2026 11:00 am (Filling)")
}

func TestContactReceivedGoesToInboxAndSender(t *testing.T) {
	sender := new(mockSender)
	sender.On("Send", mock.Anything, mock.MatchedBy(func(msg EmailMessage) bool {
		return msg.To == "front-desk@clinic.example.com"
	})).Return(nil).Once()
	sender.On("Send", mock.Anything, mock.MatchedBy(func(msg EmailMessage) bool {
		return msg.To == "ravi@example.com"
	})).Return(nil).Once()

	trig := newTestTrigger(sender, nil)
	trig.ContactReceived(context.Background(), models.ContactMessage{
		Name:    "Ravi",
		Email:   "ravi@example.com",
		Message: "Do you open on Sundays?",
	})
	trig.Wait()

	sender.AssertExpectations(t)
}

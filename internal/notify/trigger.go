package notify

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"dental-clinic-server/internal/models"
)

// DefaultSendTimeout bounds a single delivery attempt.
const DefaultSendTimeout = 15 * time.Second

const cancelledByClinic = "by the clinic"

// Recorder counts delivery outcomes per template.
type Recorder interface {
	EmailSent(kind string)
	EmailFailed(kind string)
}

// TriggerOptions configures a Trigger.
type TriggerOptions struct {
	Sender        EmailSender
	Renderer      *Renderer
	ClinicInbox   string
	PublicBaseURL string
	Timeout       time.Duration
	Metrics       Recorder
	Logger        zerolog.Logger
}

// Trigger turns domain events into email. Every send runs on its own goroutine
// and failures are only logged and counted.
type Trigger struct {
	sender   EmailSender
	renderer *Renderer
	inbox    string
	baseURL  string
	timeout  time.Duration
	metrics  Recorder
	log      zerolog.Logger

	wg sync.WaitGroup
}

func NewTrigger(opts TriggerOptions) *Trigger {
	t := &Trigger{
		sender:   opts.Sender,
		renderer: opts.Renderer,
		inbox:    strings.TrimSpace(opts.ClinicInbox),
		baseURL:  strings.TrimRight(opts.PublicBaseURL, "/"),
		timeout:  opts.Timeout,
		metrics:  opts.Metrics,
		log:      opts.Logger.With().Str("component", "notify").Logger(),
	}
	if t.sender == nil {
		t.sender = NewStubEmailSender(opts.Logger)
	}
	if t.renderer == nil {
		t.renderer = NewRenderer(Branding{})
	}
	if t.timeout <= 0 {
		t.timeout = DefaultSendTimeout
	}
	if t.metrics == nil {
		t.metrics = nopRecorder{}
	}
	return t
}

// Wait blocks until every in-flight send has finished.
func (t *Trigger) Wait() {
	t.wg.Wait()
}

func (t *Trigger) AppointmentBooked(ctx context.Context, appt models.Appointment) {
	t.dispatch(ctx, KindBookingConfirmation, appt.Email, appt.PatientName, appointmentView(appt))
}

func (t *Trigger) AppointmentRescheduled(ctx context.Context, previous, current models.Appointment) {
	v := appointmentView(current)
	v.Previous = slotOf(previous)
	t.dispatch(ctx, KindRescheduled, current.Email, current.PatientName, v)
}

// StatusChanged mails the patient when an appointment is confirmed or
// cancelled. Other transitions are silent.
func (t *Trigger) StatusChanged(ctx context.Context, appt models.Appointment, _ models.AppointmentStatus) {
	v := appointmentView(appt)
	switch appt.Status {
	case models.StatusConfirmed:
		t.dispatch(ctx, KindAppointmentConfirmed, appt.Email, appt.PatientName, v)
	case models.StatusCancelled:
		v.Reason = cancelledByClinic
		t.dispatch(ctx, KindAppointmentCancelled, appt.Email, appt.PatientName, v)
	}
}

func (t *Trigger) Reminder(ctx context.Context, appt models.Appointment) {
	t.dispatch(ctx, KindReminder, appt.Email, appt.PatientName, appointmentView(appt))
}

// ReportReady tells the patient their report can be viewed.
func (t *Trigger) ReportReady(ctx context.Context, appt models.Appointment) {
	v := appointmentView(appt)
	v.ReportURL = t.ReportURL(appt.TrackingCode)
	t.dispatch(ctx, KindReportReady, appt.Email, appt.PatientName, v)
}

// ReportURL is the public page that shows the report for code.
func (t *Trigger) ReportURL(code string) string {
	return t.baseURL + "/reports?appointmentId=" + url.QueryEscape(code)
}

// ContactReceived forwards a contact message to the clinic inbox and sends the
// visitor an auto-reply.
func (t *Trigger) ContactReceived(ctx context.Context, msg models.ContactMessage) {
	v := View{Contact: Contact{
		Name:        msg.Name,
		Email:       msg.Email,
		Phone:       msg.Phone,
		Message:     msg.Message,
		SubmittedAt: msg.CreatedAt.Format("02 Jan 2006, 03:04 pm"),
	}}
	t.dispatch(ctx, KindContactReceived, t.inbox, t.renderer.Branding().ClinicName, v)
	t.dispatch(ctx, KindContactAutoReply, msg.Email, msg.Name, v)
}

func (t *Trigger) dispatch(ctx context.Context, kind Kind, to, toName string, v View) {
	to = strings.TrimSpace(to)
	if to == "" {
		t.log.Debug().Str("kind", string(kind)).Msg("no recipient, skipping email")
		return
	}

	rendered, err := t.renderer.Render(kind, v)
	if err != nil {
		t.log.Error().Err(err).Str("kind", string(kind)).Msg("render email")
		t.metrics.EmailFailed(string(kind))
		return
	}
	msg := EmailMessage{
		To:      to,
		ToName:  toName,
		Subject: rendered.Subject,
		Body:    rendered.Text,
		HTML:    rendered.HTML,
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.deliver(context.WithoutCancel(ctx), kind, msg)
	}()
}

func (t *Trigger) deliver(ctx context.Context, kind Kind, msg EmailMessage) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if err := t.sender.Send(ctx, msg); err != nil {
		t.log.Warn().Err(err).Str("kind", string(kind)).Str("to", msg.To).Msg("email delivery failed")
		t.metrics.EmailFailed(string(kind))
		return
	}
	t.metrics.EmailSent(string(kind))
	t.log.Info().Str("kind", string(kind)).Str("to", msg.To).Msg("email sent")
}

func appointmentView(appt models.Appointment) View {
	return View{
		PatientName:  appt.PatientName,
		TrackingCode: appt.TrackingCode,
		Clinic:       appt.Clinic,
		Slot:         slotOf(appt),
	}
}

// slotOf splits the stored "02 Jan 2006, 03:04 pm" display date, preferring
// the separately stored time when present.
func slotOf(appt models.Appointment) Slot {
	day, clock, _ := strings.Cut(appt.PreferredDate, ",")
	at := strings.TrimSpace(appt.PreferredTime)
	if at == "" {
		at = strings.TrimSpace(clock)
	}
	return Slot{Date: strings.TrimSpace(day), Time: at, Service: appt.ServiceName}
}

type nopRecorder struct{}

func (nopRecorder) EmailSent(string)   {}
func (nopRecorder) EmailFailed(string) {}

// Package appointments implements the appointment lifecycle: booking, status
// transitions, tracking-code lookups, staff listing and reschedule drafts.
package appointments

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"dental-clinic-server/internal/apperrors"
	"dental-clinic-server/internal/models"
	"dental-clinic-server/internal/store"
)

// RecentScanLimit bounds both in-memory tracking-code scans to the newest records.
const RecentScanLimit = 100

const tracerName = "dental-clinic-server/appointments"

// Notifier receives lifecycle events that may produce patient email. Implementations
// must not block and never report delivery failures back.
type Notifier interface {
	AppointmentBooked(ctx context.Context, appt models.Appointment)
	AppointmentRescheduled(ctx context.Context, previous, current models.Appointment)
	StatusChanged(ctx context.Context, appt models.Appointment, from models.AppointmentStatus)
	Reminder(ctx context.Context, appt models.Appointment)
}

// TrackingIndex caches tracking code to internal id. Misses and errors are
// treated the same way: fall through to storage.
type TrackingIndex interface {
	Resolve(ctx context.Context, code string) (string, bool)
	Remember(ctx context.Context, code, id string)
	Forget(ctx context.Context, code string)
}

// Recorder counts lifecycle events.
type Recorder interface {
	AppointmentBooked(clinic string)
	StatusTransition(from, to models.AppointmentStatus)
	LookupPath(path string)
	ListDegraded()
}

// Options configures a Service. Zero values get working defaults.
type Options struct {
	Notifier Notifier
	Index    TrackingIndex
	Metrics  Recorder
	Logger   zerolog.Logger
	Now      func() time.Time
	Random   *rand.Rand
	Location *time.Location
	// Tracing defaults to the global provider.
	Tracing trace.TracerProvider
}

// Service is the appointment lifecycle.
type Service struct {
	repo     repository
	notifier Notifier
	index    TrackingIndex
	metrics  Recorder
	log      zerolog.Logger
	now      func() time.Time
	loc      *time.Location
	tracer   trace.Tracer

	rndMu sync.Mutex
	rnd   *rand.Rand
}

// NewService creates a lifecycle service over backend.
func NewService(backend store.Backend, opts Options) *Service {
	s := &Service{
		repo:     repository{backend: backend},
		notifier: opts.Notifier,
		index:    opts.Index,
		metrics:  opts.Metrics,
		log:      opts.Logger.With().Str("component", "appointments").Logger(),
		now:      opts.Now,
		loc:      opts.Location,
		rnd:      opts.Random,
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	if s.index == nil {
		s.index = nopIndex{}
	}
	if s.metrics == nil {
		s.metrics = nopRecorder{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.rnd == nil {
		s.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	tp := opts.Tracing
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	s.tracer = tp.Tracer(tracerName)
	return s
}

// Location is the clinic time zone used for dates.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Create validates a booking, assigns its tracking code and stores it as Pending.
func (s *Service) Create(ctx context.Context, in SubmitInput) (models.Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "appointments.Create")
	defer span.End()

	now := s.now().In(s.loc)
	sub, err := Validate(in, now, s.loc)
	if err != nil {
		return models.Appointment{}, err
	}

	appt := models.Appointment{
		PatientName:   sub.PatientName,
		Phone:         sub.Phone,
		Email:         sub.Email,
		ServiceName:   sub.Service,
		PreferredDate: FormatDisplay(sub.Date),
		PreferredTime: sub.Time,
		Clinic:        sub.Clinic,
		Notes:         sub.Notes,
		Status:        models.StatusPending,
		TrackingCode:  s.trackingCode(sub.Clinic, sub.Phone, now),
	}
	span.SetAttributes(attribute.String("appointment.tracking_code", appt.TrackingCode))

	created, err := s.repo.create(ctx, appt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		return models.Appointment{}, err
	}

	s.index.Remember(ctx, created.TrackingCode, created.ID)
	s.metrics.AppointmentBooked(created.Clinic)
	s.log.Info().
		Str("appointment_id", created.ID).
		Str("tracking_code", created.TrackingCode).
		Str("clinic", created.Clinic).
		Msg("appointment booked")

	if sub.RescheduledFrom != "" {
		if previous, err := s.Find(ctx, sub.RescheduledFrom); err == nil {
			s.notifier.AppointmentRescheduled(ctx, previous, created)
			return created, nil
		}
		s.log.Warn().Str("rescheduled_from", sub.RescheduledFrom).Msg("original appointment not found, sending booking confirmation")
	}
	s.notifier.AppointmentBooked(ctx, created)
	return created, nil
}

func (s *Service) trackingCode(clinic, phone string, now time.Time) string {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	return GenerateTrackingCode(clinic, phone, now, s.rnd)
}

// Get loads an appointment by internal id.
func (s *Service) Get(ctx context.Context, id string) (models.Appointment, error) {
	return s.repo.get(ctx, strings.TrimSpace(id))
}

// Find resolves a public reference: internal id first, then tracking code.
func (s *Service) Find(ctx context.Context, ref string) (models.Appointment, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return models.Appointment{}, fmt.Errorf("appointments: find: %w", apperrors.ErrNotFound)
	}
	appt, err := s.repo.get(ctx, ref)
	if err == nil {
		return appt, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return models.Appointment{}, err
	}
	return s.LookupByTrackingCode(ctx, ref)
}

// LookupByTrackingCode finds the appointment carrying code. It tries the cache,
// then an exact-match query, and when the backend cannot filter on the field it
// scans the RecentScanLimit newest records.
func (s *Service) LookupByTrackingCode(ctx context.Context, code string) (models.Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "appointments.LookupByTrackingCode")
	defer span.End()

	code = strings.TrimSpace(code)
	span.SetAttributes(attribute.String("appointment.tracking_code", code))
	if code == "" {
		return models.Appointment{}, fmt.Errorf("appointments: lookup: %w", apperrors.ErrNotFound)
	}

	if id, ok := s.index.Resolve(ctx, code); ok {
		appt, err := s.repo.get(ctx, id)
		if err == nil && appt.TrackingCode == code {
			s.metrics.LookupPath("cache")
			return appt, nil
		}
		s.index.Forget(ctx, code)
	}

	appt, found, err := s.repo.findByCode(ctx, code)
	switch {
	case err == nil && found:
		s.metrics.LookupPath("query")
		s.index.Remember(ctx, code, appt.ID)
		return appt, nil
	case err == nil:
		return models.Appointment{}, fmt.Errorf("appointments: lookup %s: %w", code, apperrors.ErrNotFound)
	case !errors.Is(err, store.ErrUnsupportedQuery):
		span.RecordError(err)
		return models.Appointment{}, upstream("lookup", err)
	}

	s.log.Debug().Str("tracking_code", code).Msg("tracking code not indexed, scanning recent appointments")
	appt, err = s.scanRecent(ctx, code)
	if err != nil {
		return models.Appointment{}, err
	}
	s.metrics.LookupPath("scan")
	s.index.Remember(ctx, code, appt.ID)
	return appt, nil
}

func (s *Service) scanRecent(ctx context.Context, code string) (models.Appointment, error) {
	recent, err := s.repo.recent(ctx, RecentScanLimit)
	if err != nil {
		return models.Appointment{}, err
	}
	for _, a := range recent {
		if a.TrackingCode == code {
			return a, nil
		}
	}
	return models.Appointment{}, fmt.Errorf("appointments: lookup %s: %w", code, apperrors.ErrNotFound)
}

// Transition moves an appointment to a new status. id is normally the internal
// id; when no record has it, the newest RecentScanLimit appointments are searched
// for it as a tracking code.
func (s *Service) Transition(ctx context.Context, id, newStatus string) (models.Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "appointments.Transition")
	defer span.End()
	span.SetAttributes(attribute.String("appointment.ref", id), attribute.String("appointment.new_status", newStatus))

	to, err := ParseStatus(newStatus)
	if err != nil {
		return models.Appointment{}, err
	}

	appt, err := s.repo.get(ctx, strings.TrimSpace(id))
	if errors.Is(err, apperrors.ErrNotFound) {
		appt, err = s.scanRecent(ctx, strings.TrimSpace(id))
	}
	if err != nil {
		return models.Appointment{}, err
	}

	from := appt.Status
	if !CanTransition(from, to) {
		return models.Appointment{}, fmt.Errorf("appointments: transition: %w", apperrors.WithDetail(apperrors.ErrInvalidStatus,
			"cannot move appointment %s from %s to %s", appt.TrackingCode, from, to))
	}

	updated, err := s.repo.updateStatus(ctx, appt.ID, to)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return models.Appointment{}, err
	}

	s.metrics.StatusTransition(from, to)
	s.log.Info().
		Str("appointment_id", updated.ID).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("appointment status changed")
	s.notifier.StatusChanged(ctx, updated, from)
	return updated, nil
}

// Delete permanently removes an appointment.
func (s *Service) Delete(ctx context.Context, id string) error {
	appt, err := s.repo.get(ctx, strings.TrimSpace(id))
	if err != nil {
		return err
	}
	if err := s.repo.delete(ctx, appt.ID); err != nil {
		return err
	}
	s.index.Forget(ctx, appt.TrackingCode)
	s.log.Info().Str("appointment_id", appt.ID).Str("tracking_code", appt.TrackingCode).Msg("appointment deleted")
	return nil
}

// List returns one page of appointments for the staff console. If the filtered
// query fails it retries once with no filters and flags the result as degraded.
func (s *Service) List(ctx context.Context, p ListParams) (ListResult, error) {
	ctx, span := s.tracer.Start(ctx, "appointments.List")
	defer span.End()

	p = p.normalized()
	lq := BuildQuery(p, s.loc)

	appts, total, err := s.repo.list(ctx, lq.Query)
	degraded := false
	if err != nil {
		s.log.Warn().Err(err).Int("filters", len(lq.Query.Filters)).Msg("filtered appointment query failed, retrying without filters")
		s.metrics.ListDegraded()
		span.AddEvent("degraded")
		degraded = true

		appts, total, err = s.repo.list(ctx, baseQuery(p))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "list failed")
			return ListResult{}, upstream("list", err)
		}
	}

	if lq.Day != nil {
		appts = filterByDay(appts, *lq.Day, p.Date, s.loc)
		total = int64(len(appts))
	}

	span.SetAttributes(attribute.Int("appointments.returned", len(appts)), attribute.Bool("appointments.degraded", degraded))
	return newListResult(p, appts, total, degraded), nil
}

// Reschedule prepares a new booking prefilled from an existing Pending or
// Confirmed appointment. The existing record is not modified.
func (s *Service) Reschedule(ctx context.Context, ref string) (SubmitInput, error) {
	appt, err := s.Find(ctx, ref)
	if err != nil {
		return SubmitInput{}, err
	}
	if appt.Status != models.StatusPending && appt.Status != models.StatusConfirmed {
		return SubmitInput{}, fmt.Errorf("appointments: reschedule: %w", apperrors.WithDetail(apperrors.ErrInvalidStatus,
			"only pending or confirmed appointments can be rescheduled, %s is %s", appt.TrackingCode, appt.Status))
	}

	draft := SubmitInput{
		PatientName:     appt.PatientName,
		Phone:           appt.Phone,
		Email:           appt.Email,
		Service:         appt.ServiceName,
		AppointmentTime: appt.PreferredTime,
		Clinic:          appt.Clinic,
		Notes:           appt.Notes,
		RescheduledFrom: appt.TrackingCode,
	}
	if day, err := ParseStoredDay(appt.PreferredDate, s.loc); err == nil {
		draft.AppointmentDate = day.Format(isoDayLayout)
	}
	return draft, nil
}

// SendReminder emails the patient a reminder about an upcoming appointment.
func (s *Service) SendReminder(ctx context.Context, ref string) (models.Appointment, error) {
	appt, err := s.Find(ctx, ref)
	if err != nil {
		return models.Appointment{}, err
	}
	if IsTerminal(appt.Status) {
		return models.Appointment{}, fmt.Errorf("appointments: reminder: %w", apperrors.WithDetail(apperrors.ErrInvalidStatus, "no reminders for %s appointments", appt.Status))
	}
	if appt.Email == "" {
		return models.Appointment{}, apperrors.NewValidationError("appointment has no email on file")
	}
	s.notifier.Reminder(ctx, appt)
	return appt, nil
}

type nopNotifier struct{}

func (nopNotifier) AppointmentBooked(context.Context, models.Appointment) {}
func (nopNotifier) AppointmentRescheduled(context.Context, models.Appointment, models.Appointment) {}
func (nopNotifier) StatusChanged(context.Context, models.Appointment, models.AppointmentStatus) {}
func (nopNotifier) Reminder(context.Context, models.Appointment) {}

type nopIndex struct{}

func (nopIndex) Resolve(context.Context, string) (string, bool) { return "", false }
func (nopIndex) Remember(context.Context, string, string) {}
func (nopIndex) Forget(context.Context, string) {}

type nopRecorder struct{}

func (nopRecorder) AppointmentBooked(string) {}
func (nopRecorder) StatusTransition(models.AppointmentStatus, models.AppointmentStatus) {}
func (nopRecorder) LookupPath(string) {}
func (nopRecorder) ListDegraded() {}

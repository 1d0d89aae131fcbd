// Package reports builds and reads the clinical report aggregate: a report plus
// its medicines and documents, linked to an appointment by tracking code.
package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"dental-clinic-server/internal/apperrors"
	"dental-clinic-server/internal/models"
	"dental-clinic-server/internal/store"
)

const (
	fieldAppointmentRef = "appointment_id"
	fieldDiagnosis      = "diagnosis"
	fieldObservations   = "observations"
	fieldTreatment      = "treatment"
	fieldNextVisit      = "next_visit"
	fieldReportRef      = "report_id"
	fieldName           = "name"
	fieldDosage         = "dosage"
	fieldURL            = "url"
	fieldType           = "type"
)

const tracerName = "dental-clinic-server/reports"

// MedicineInput is one prescribed item in a report submission.
type MedicineInput struct {
	Name   string `json:"name"`
	Dosage string `json:"dosage"`
}

// DocumentInput is one attachment in a report submission. Type defaults to image.
type DocumentInput struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type"`
}

// CreateInput is a report submission.
type CreateInput struct {
	AppointmentRef string          `json:"appointment_id"`
	Diagnosis      string          `json:"diagnosis"`
	Observations   string          `json:"observations"`
	Treatment      string          `json:"treatment"`
	NextVisitDate  string          `json:"next_visit"`
	Medicines      []MedicineInput `json:"medicines"`
	Documents      []DocumentInput `json:"documents"`
}

// ChildFailure records a medicine or document that could not be stored.
type ChildFailure struct {
	Kind  string `json:"kind"`
	Name  string `json:"name"`
	Error string `json:"error"`
}

// CreateResult describes what Create stored. The report exists even when
// Failed is not empty.
type CreateResult struct {
	ReportID  string         `json:"reportId"`
	Medicines int            `json:"medicines"`
	Documents int            `json:"documents"`
	Failed    []ChildFailure `json:"failed,omitempty"`
}

// Aggregate is a report with its children.
type Aggregate struct {
	Report    models.Report     `json:"report"`
	Medicines []models.Medicine `json:"medicines"`
	Documents []models.Document `json:"documents"`
}

// AppointmentLookup resolves the appointment a report belongs to.
type AppointmentLookup interface {
	LookupByTrackingCode(ctx context.Context, code string) (models.Appointment, error)
}

// Notifier is told when a report is ready for a patient with an email.
type Notifier interface {
	ReportReady(ctx context.Context, appt models.Appointment)
}

// Recorder counts stored reports and failed children.
type Recorder interface {
	ReportCreated(failedChildren int)
}

type Options struct {
	Appointments AppointmentLookup
	Notifier     Notifier
	Metrics      Recorder
	Logger       zerolog.Logger
	Tracing      trace.TracerProvider
}

// Service creates and reads report aggregates.
type Service struct {
	backend      store.Backend
	appointments AppointmentLookup
	notifier     Notifier
	metrics      Recorder
	log          zerolog.Logger
	tracer       trace.Tracer
}

func NewService(backend store.Backend, opts Options) *Service {
	s := &Service{
		backend:      backend,
		appointments: opts.Appointments,
		notifier:     opts.Notifier,
		metrics:      opts.Metrics,
		log:          opts.Logger.With().Str("component", "reports").Logger(),
	}
	if s.metrics == nil {
		s.metrics = nopRecorder{}
	}
	tp := opts.Tracing
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	s.tracer = tp.Tracer(tracerName)
	return s
}

// Create stores the report, then every well-formed medicine and document one at
// a time. Malformed children are dropped. A child that fails to store is listed
// in the result and does not undo anything already written.
func (s *Service) Create(ctx context.Context, in CreateInput) (CreateResult, error) {
	ctx, span := s.tracer.Start(ctx, "reports.Create")
	defer span.End()

	in.AppointmentRef = strings.TrimSpace(in.AppointmentRef)
	in.Diagnosis = strings.TrimSpace(in.Diagnosis)
	in.Treatment = strings.TrimSpace(in.Treatment)
	if missing := missingFields(in); len(missing) > 0 {
		return CreateResult{}, fmt.Errorf("reports: %w", apperrors.WithDetail(apperrors.ErrMissingFields, "%s", strings.Join(missing, ", ")))
	}
	span.SetAttributes(attribute.String("report.appointment_ref", in.AppointmentRef))

	rec, err := s.backend.Create(ctx, store.Reports, map[string]interface{}{
		fieldAppointmentRef: in.AppointmentRef,
		fieldDiagnosis:      in.Diagnosis,
		fieldObservations:   strings.TrimSpace(in.Observations),
		fieldTreatment:      in.Treatment,
		fieldNextVisit:      strings.TrimSpace(in.NextVisitDate),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create report failed")
		return CreateResult{}, fmt.Errorf("reports: create: %w: %w", apperrors.ErrUpstream, err)
	}

	res := CreateResult{ReportID: rec.ID}
	for _, m := range in.Medicines {
		name, dosage := strings.TrimSpace(m.Name), strings.TrimSpace(m.Dosage)
		if name == "" || dosage == "" {
			continue
		}
		_, err := s.backend.Create(ctx, store.Medicines, map[string]interface{}{
			fieldReportRef: rec.ID,
			fieldName:      name,
			fieldDosage:    dosage,
		})
		if err != nil {
			res.Failed = append(res.Failed, ChildFailure{Kind: "medicine", Name: name, Error: err.Error()})
			continue
		}
		res.Medicines++
	}
	for _, d := range in.Documents {
		name, url := strings.TrimSpace(d.Name), strings.TrimSpace(d.URL)
		if name == "" || url == "" {
			continue
		}
		_, err := s.backend.Create(ctx, store.Documents, map[string]interface{}{
			fieldReportRef: rec.ID,
			fieldName:      name,
			fieldURL:       url,
			fieldType:      string(models.ParseDocumentType(strings.TrimSpace(d.Type))),
		})
		if err != nil {
			res.Failed = append(res.Failed, ChildFailure{Kind: "document", Name: name, Error: err.Error()})
			continue
		}
		res.Documents++
	}

	s.metrics.ReportCreated(len(res.Failed))
	logEvent := s.log.Info()
	if len(res.Failed) > 0 {
		logEvent = s.log.Warn().Int("failed", len(res.Failed))
	}
	logEvent.
		Str("report_id", res.ReportID).
		Str("tracking_code", in.AppointmentRef).
		Int("medicines", res.Medicines).
		Int("documents", res.Documents).
		Msg("report created")

	s.notifyReady(ctx, in.AppointmentRef)
	return res, nil
}

func (s *Service) notifyReady(ctx context.Context, code string) {
	if s.appointments == nil || s.notifier == nil {
		return
	}
	appt, err := s.appointments.LookupByTrackingCode(ctx, code)
	if err != nil {
		s.log.Warn().Err(err).Str("tracking_code", code).Msg("report ready: appointment lookup failed")
		return
	}
	if strings.TrimSpace(appt.Email) == "" {
		s.log.Debug().Str("tracking_code", code).Msg("report ready: no email on file")
		return
	}
	s.notifier.ReportReady(ctx, appt)
}

func missingFields(in CreateInput) []string {
	var missing []string
	if in.AppointmentRef == "" {
		missing = append(missing, "appointment_id")
	}
	if in.Diagnosis == "" {
		missing = append(missing, "diagnosis")
	}
	if in.Treatment == "" {
		missing = append(missing, "treatment")
	}
	return missing
}

// Get returns the earliest report filed for code with its medicines and
// documents. ErrNotFound means no report has been written yet.
func (s *Service) Get(ctx context.Context, code string) (Aggregate, error) {
	ctx, span := s.tracer.Start(ctx, "reports.Get")
	defer span.End()

	code = strings.TrimSpace(code)
	span.SetAttributes(attribute.String("report.appointment_ref", code))
	if code == "" {
		return Aggregate{}, fmt.Errorf("reports: get: %w", apperrors.ErrNotFound)
	}

	page, err := s.backend.List(ctx, store.Reports, store.Query{
		Filters: []store.Filter{store.Equal(fieldAppointmentRef, code)},
		OrderBy: store.FieldCreatedAt,
		Limit:   1,
	})
	if err != nil {
		span.RecordError(err)
		return Aggregate{}, upstream("find report", err)
	}
	if len(page.Records) == 0 {
		return Aggregate{}, fmt.Errorf("reports: no report for %s: %w", code, apperrors.ErrNotFound)
	}

	agg := Aggregate{Report: reportFromRecord(page.Records[0])}
	children := store.Query{
		Filters: []store.Filter{store.Equal(fieldReportRef, agg.Report.ID)},
		OrderBy: store.FieldCreatedAt,
	}

	meds, err := s.backend.List(ctx, store.Medicines, children)
	if err != nil {
		return Aggregate{}, upstream("list medicines", err)
	}
	agg.Medicines = make([]models.Medicine, 0, len(meds.Records))
	for _, rec := range meds.Records {
		agg.Medicines = append(agg.Medicines, medicineFromRecord(rec))
	}

	docs, err := s.backend.List(ctx, store.Documents, children)
	if err != nil {
		return Aggregate{}, upstream("list documents", err)
	}
	agg.Documents = make([]models.Document, 0, len(docs.Records))
	for _, rec := range docs.Records {
		agg.Documents = append(agg.Documents, documentFromRecord(rec))
	}
	return agg, nil
}

func reportFromRecord(rec store.Record) models.Report {
	r := models.Report{
		AppointmentRef: rec.String(fieldAppointmentRef),
		Diagnosis:      rec.String(fieldDiagnosis),
		Observations:   rec.String(fieldObservations),
		Treatment:      rec.String(fieldTreatment),
		NextVisitDate:  rec.String(fieldNextVisit),
	}
	r.ID, r.CreatedAt, r.UpdatedAt = rec.ID, rec.CreatedAt, rec.UpdatedAt
	return r
}

func medicineFromRecord(rec store.Record) models.Medicine {
	m := models.Medicine{
		ReportRef: rec.String(fieldReportRef),
		Name:      rec.String(fieldName),
		Dosage:    rec.String(fieldDosage),
	}
	m.ID, m.CreatedAt, m.UpdatedAt = rec.ID, rec.CreatedAt, rec.UpdatedAt
	return m
}

func documentFromRecord(rec store.Record) models.Document {
	d := models.Document{
		ReportRef: rec.String(fieldReportRef),
		Name:      rec.String(fieldName),
		URL:       rec.String(fieldURL),
		Type:      models.ParseDocumentType(rec.String(fieldType)),
	}
	d.ID, d.CreatedAt, d.UpdatedAt = rec.ID, rec.CreatedAt, rec.UpdatedAt
	return d
}

func upstream(op string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("reports: %s: %w", op, apperrors.ErrNotFound)
	}
	return fmt.Errorf("reports: %s: %w: %w", op, apperrors.ErrUpstream, err)
}

type nopRecorder struct{}

func (nopRecorder) ReportCreated(int) {}

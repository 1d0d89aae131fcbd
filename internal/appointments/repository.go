package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dental-clinic-server/internal/apperrors"
	"dental-clinic-server/internal/models"
	"dental-clinic-server/internal/store"
)

// Storage field names for the appointments collection.
const (
	fieldName          = "name"
	fieldPhone         = "phone"
	fieldEmail         = "email"
	fieldService       = "service_name"
	fieldPreferredDate = "preferred_date"
	fieldPreferredTime = "preferred_time"
	fieldClinic        = "at"
	fieldNotes         = "notes"
	fieldStatus        = "status"
	fieldTrackingCode  = "appointment_id"
)

// repository translates between store records and models.Appointment.
type repository struct {
	backend store.Backend
}

func toFields(a models.Appointment) map[string]interface{} {
	return map[string]interface{}{
		fieldName:          a.PatientName,
		fieldPhone:         a.Phone,
		fieldEmail:         a.Email,
		fieldService:       a.ServiceName,
		fieldPreferredDate: a.PreferredDate,
		fieldPreferredTime: a.PreferredTime,
		fieldClinic:        a.Clinic,
		fieldNotes:         a.Notes,
		fieldStatus:        string(a.Status),
		fieldTrackingCode:  a.TrackingCode,
	}
}

func fromRecord(rec store.Record) models.Appointment {
	a := models.Appointment{
		PatientName:   rec.String(fieldName),
		Phone:         rec.String(fieldPhone),
		Email:         rec.String(fieldEmail),
		ServiceName:   rec.String(fieldService),
		PreferredDate: rec.String(fieldPreferredDate),
		PreferredTime: rec.String(fieldPreferredTime),
		Clinic:        rec.String(fieldClinic),
		Notes:         rec.String(fieldNotes),
		Status:        models.AppointmentStatus(rec.String(fieldStatus)),
		TrackingCode:  rec.String(fieldTrackingCode),
	}
	a.ID = rec.ID
	a.CreatedAt = rec.CreatedAt
	a.UpdatedAt = rec.UpdatedAt
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = a.CreatedAt
	}
	// Only a missing status reads as Pending. Anything else unknown is kept so
	// no transition table entry matches it.
	if strings.TrimSpace(string(a.Status)) == "" {
		a.Status = models.StatusPending
	}
	return a
}

func (r repository) create(ctx context.Context, a models.Appointment) (models.Appointment, error) {
	rec, err := r.backend.Create(ctx, store.Appointments, toFields(a))
	if err != nil {
		return models.Appointment{}, upstream("create", err)
	}
	return fromRecord(rec), nil
}

func (r repository) get(ctx context.Context, id string) (models.Appointment, error) {
	rec, err := r.backend.Get(ctx, store.Appointments, id)
	if err != nil {
		return models.Appointment{}, mapStoreError("get", err)
	}
	return fromRecord(rec), nil
}

func (r repository) updateStatus(ctx context.Context, id string, status models.AppointmentStatus) (models.Appointment, error) {
	rec, err := r.backend.Update(ctx, store.Appointments, id, map[string]interface{}{fieldStatus: string(status)})
	if err != nil {
		return models.Appointment{}, mapStoreError("update", err)
	}
	return fromRecord(rec), nil
}

func (r repository) delete(ctx context.Context, id string) error {
	if err := r.backend.Delete(ctx, store.Appointments, id); err != nil {
		return mapStoreError("delete", err)
	}
	return nil
}

// findByCode runs the indexed exact-match query. The raw store error is kept so
// callers can tell an unindexed field from an outage.
func (r repository) findByCode(ctx context.Context, code string) (models.Appointment, bool, error) {
	page, err := r.backend.List(ctx, store.Appointments, store.Query{
		Filters: []store.Filter{store.Equal(fieldTrackingCode, code)},
		Limit:   1,
	})
	if err != nil {
		return models.Appointment{}, false, err
	}
	if len(page.Records) == 0 {
		return models.Appointment{}, false, nil
	}
	return fromRecord(page.Records[0]), true, nil
}

func (r repository) recent(ctx context.Context, limit int) ([]models.Appointment, error) {
	page, err := r.backend.List(ctx, store.Appointments, store.Query{
		OrderBy: store.FieldCreatedAt,
		Desc:    true,
		Limit:   limit,
	})
	if err != nil {
		return nil, upstream("scan recent", err)
	}
	return fromRecords(page.Records), nil
}

func (r repository) list(ctx context.Context, q store.Query) ([]models.Appointment, int64, error) {
	page, err := r.backend.List(ctx, store.Appointments, q)
	if err != nil {
		return nil, 0, err
	}
	return fromRecords(page.Records), page.Total, nil
}

func fromRecords(records []store.Record) []models.Appointment {
	out := make([]models.Appointment, 0, len(records))
	for _, rec := range records {
		out = append(out, fromRecord(rec))
	}
	return out
}

func mapStoreError(op string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("appointments: %s: %w", op, apperrors.ErrNotFound)
	}
	return upstream(op, err)
}

func upstream(op string, err error) error {
	return fmt.Errorf("appointments: %s: %w: %w", op, apperrors.ErrUpstream, err)
}

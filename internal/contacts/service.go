// Package contacts stores messages left through the public contact form.
package contacts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"dental-clinic-server/internal/apperrors"
	"dental-clinic-server/internal/models"
	"dental-clinic-server/internal/store"
)

const (
	fieldName    = "name"
	fieldPhone   = "phone"
	fieldEmail   = "email"
	fieldMessage = "messages"
	fieldStatus  = "status"
	fieldReadAt  = "read_at"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

var validate = validator.New()

// SubmitInput is a public contact-form submission.
type SubmitInput struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// ListParams filters the staff inbox. An empty status lists everything.
type ListParams struct {
	Status string `form:"status"`
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
}

// ListResult is one page of the inbox.
type ListResult struct {
	Messages   []models.ContactMessage `json:"messages"`
	Total      int64                   `json:"total"`
	Page       int                     `json:"page"`
	Limit      int                     `json:"limit"`
	TotalPages int                     `json:"totalPages"`
}

// Notifier forwards new messages by email.
type Notifier interface {
	ContactReceived(ctx context.Context, msg models.ContactMessage)
}

type Service struct {
	backend  store.Backend
	notifier Notifier
	now      func() time.Time
	log      zerolog.Logger
}

func NewService(backend store.Backend, notifier Notifier, logger zerolog.Logger) *Service {
	return &Service{
		backend:  backend,
		notifier: notifier,
		now:      time.Now,
		log:      logger.With().Str("component", "contacts").Logger(),
	}
}

// Submit validates and stores a pending message, then notifies the clinic.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (models.ContactMessage, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Message = strings.TrimSpace(in.Message)

	var problems []string
	if in.Name == "" {
		problems = append(problems, "name is required")
	}
	if in.Message == "" {
		problems = append(problems, "message is required")
	}
	if in.Email != "" && validate.Var(in.Email, "email") != nil {
		problems = append(problems, "Invalid email format")
	}
	if len(problems) > 0 {
		return models.ContactMessage{}, apperrors.NewValidationError(problems...)
	}

	rec, err := s.backend.Create(ctx, store.ContactMessages, map[string]interface{}{
		fieldName:    in.Name,
		fieldPhone:   in.Phone,
		fieldEmail:   in.Email,
		fieldMessage: in.Message,
		fieldStatus:  string(models.MessageStatusPending),
	})
	if err != nil {
		return models.ContactMessage{}, fmt.Errorf("contacts: submit: %w: %w", apperrors.ErrUpstream, err)
	}

	msg := fromRecord(rec)
	s.log.Info().Str("message_id", msg.ID).Msg("contact message received")
	if s.notifier != nil {
		s.notifier.ContactReceived(ctx, msg)
	}
	return msg, nil
}

// List returns the inbox newest first.
func (s *Service) List(ctx context.Context, p ListParams) (ListResult, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}

	q := store.Query{
		OrderBy: store.FieldCreatedAt,
		Desc:    true,
		Limit:   p.Limit,
		Offset:  (p.Page - 1) * p.Limit,
	}
	switch status := strings.ToLower(strings.TrimSpace(p.Status)); status {
	case "", "all":
	case string(models.MessageStatusPending), string(models.MessageStatusRead):
		q.Filters = append(q.Filters, store.Equal(fieldStatus, status))
	default:
		return ListResult{}, fmt.Errorf("contacts: list: %w", apperrors.WithDetail(apperrors.ErrInvalidStatus, "unknown message status %q", p.Status))
	}

	page, err := s.backend.List(ctx, store.ContactMessages, q)
	if err != nil {
		return ListResult{}, fmt.Errorf("contacts: list: %w: %w", apperrors.ErrUpstream, err)
	}

	res := ListResult{
		Messages: make([]models.ContactMessage, 0, len(page.Records)),
		Total:    page.Total,
		Page:     p.Page,
		Limit:    p.Limit,
	}
	for _, rec := range page.Records {
		res.Messages = append(res.Messages, fromRecord(rec))
	}
	res.TotalPages = int((page.Total + int64(p.Limit) - 1) / int64(p.Limit))
	return res, nil
}

// MarkRead flags a message as handled. Marking it again keeps the first read time.
func (s *Service) MarkRead(ctx context.Context, id string) (models.ContactMessage, error) {
	rec, err := s.backend.Get(ctx, store.ContactMessages, strings.TrimSpace(id))
	if err != nil {
		return models.ContactMessage{}, mapStoreError("get", err)
	}
	msg := fromRecord(rec)
	if msg.Status == models.MessageStatusRead {
		return msg, nil
	}

	rec, err = s.backend.Update(ctx, store.ContactMessages, msg.ID, map[string]interface{}{
		fieldStatus: string(models.MessageStatusRead),
		fieldReadAt: s.now().UTC(),
	})
	if err != nil {
		return models.ContactMessage{}, mapStoreError("mark read", err)
	}
	return fromRecord(rec), nil
}

// Delete removes a message.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.backend.Delete(ctx, store.ContactMessages, strings.TrimSpace(id)); err != nil {
		return mapStoreError("delete", err)
	}
	return nil
}

func fromRecord(rec store.Record) models.ContactMessage {
	m := models.ContactMessage{
		Name:    rec.String(fieldName),
		Phone:   rec.String(fieldPhone),
		Email:   rec.String(fieldEmail),
		Message: rec.String(fieldMessage),
		Status:  models.MessageStatus(rec.String(fieldStatus)),
	}
	m.ID, m.CreatedAt, m.UpdatedAt = rec.ID, rec.CreatedAt, rec.UpdatedAt
	if m.Status != models.MessageStatusRead {
		m.Status = models.MessageStatusPending
	}
	if at := store.AsTime(rec.Fields[fieldReadAt]); !at.IsZero() {
		m.ReadAt = &at
	}
	return m
}

func mapStoreError(op string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("contacts: %s: %w", op, apperrors.ErrNotFound)
	}
	return fmt.Errorf("contacts: %s: %w: %w", op, apperrors.ErrUpstream, err)
}

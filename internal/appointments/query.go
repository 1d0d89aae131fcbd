package appointments

import (
	"strings"
	"time"

	"dental-clinic-server/internal/models"
	"dental-clinic-server/internal/store"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// ListParams are the staff listing filters. Every field is optional.
type ListParams struct {
	Status string `form:"status" json:"status,omitempty"`
	Date   string `form:"date" json:"date,omitempty"`
	Search string `form:"search" json:"search,omitempty"`
	Email  string `form:"email" json:"email,omitempty"`
	Phone  string `form:"phone" json:"phone,omitempty"`
	Page   int    `form:"page" json:"-"`
	Limit  int    `form:"limit" json:"-"`
}

// ListResult is one page of appointments.
//
// StatusCounts covers only the returned page, not the whole table. Degraded is set
// when the filtered query failed and an unfiltered page was returned instead.
type ListResult struct {
	Appointments []models.Appointment
	Total        int64
	Page         int
	Limit        int
	TotalPages   int
	HasNextPage  bool
	HasPrevPage  bool
	StatusCounts map[models.AppointmentStatus]int
	Filters      ListParams
	Degraded     bool
}

func (p ListParams) normalized() ListParams {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	p.Status = strings.TrimSpace(p.Status)
	p.Date = strings.TrimSpace(p.Date)
	p.Search = strings.TrimSpace(p.Search)
	p.Email = strings.TrimSpace(p.Email)
	p.Phone = strings.TrimSpace(p.Phone)
	return p
}

func (p ListParams) offset() int {
	return (p.Page - 1) * p.Limit
}

// ListQuery is a composed store query plus the calendar day to re-check in memory.
type ListQuery struct {
	Query store.Query
	Day   *time.Time
}

// BuildQuery turns listing filters into a store query. An unparseable date
// filter is ignored rather than rejected.
func BuildQuery(p ListParams, loc *time.Location) ListQuery {
	p = p.normalized()
	q := baseQuery(p)

	if p.Status != "" && !strings.EqualFold(p.Status, "all") {
		q.Filters = append(q.Filters, store.Equal(fieldStatus, p.Status))
	}

	var day *time.Time
	if p.Date != "" {
		if d, err := ParseDate(p.Date, loc); err == nil {
			d = StartOfDay(d, loc)
			day = &d
			q.Filters = append(q.Filters, store.Search(fieldPreferredDate, FormatSearch(d)))
		}
	}

	if p.Search != "" {
		alts := []store.Filter{store.Search(fieldName, p.Search)}
		if isAllDigits(p.Search) {
			alts = append(alts, store.Search(fieldPhone, p.Search))
		}
		if strings.Contains(p.Search, "@") {
			alts = append(alts, store.Search(fieldEmail, p.Search))
		}
		q.Filters = append(q.Filters, store.Or(alts...))
	}

	if p.Email != "" {
		q.Filters = append(q.Filters, store.Equal(fieldEmail, strings.ToLower(p.Email)))
	}

	if p.Phone != "" {
		if digits := DigitsOnly(p.Phone); digits != "" {
			q.Filters = append(q.Filters, store.Search(fieldPhone, digits))
		}
	}

	return ListQuery{Query: q, Day: day}
}

// baseQuery is the newest-first window with no filters, used as the degraded retry.
func baseQuery(p ListParams) store.Query {
	return store.Query{
		OrderBy: store.FieldCreatedAt,
		Desc:    true,
		Limit:   p.Limit,
		Offset:  p.offset(),
	}
}

// filterByDay keeps appointments whose stored date falls on day. Stored values
// that cannot be parsed fall back to substring matching against raw and the
// formatted search form.
func filterByDay(appts []models.Appointment, day time.Time, raw string, loc *time.Location) []models.Appointment {
	want := FormatSearch(day)
	out := make([]models.Appointment, 0, len(appts))
	for _, a := range appts {
		if a.PreferredDate == "" {
			continue
		}
		stored, err := ParseStoredDay(a.PreferredDate, loc)
		if err != nil {
			if strings.Contains(a.PreferredDate, raw) || strings.Contains(a.PreferredDate, want) {
				out = append(out, a)
			}
			continue
		}
		if SameDay(stored, day, loc) {
			out = append(out, a)
		}
	}
	return out
}

func countStatuses(appts []models.Appointment) map[models.AppointmentStatus]int {
	counts := make(map[models.AppointmentStatus]int, len(models.AllStatuses))
	for _, st := range models.AllStatuses {
		counts[st] = 0
	}
	for _, a := range appts {
		if _, ok := counts[a.Status]; ok {
			counts[a.Status]++
		}
	}
	return counts
}

func newListResult(p ListParams, appts []models.Appointment, total int64, degraded bool) ListResult {
	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(p.Limit) - 1) / int64(p.Limit))
	}
	return ListResult{
		Appointments: appts,
		Total:        total,
		Page:         p.Page,
		Limit:        p.Limit,
		TotalPages:   totalPages,
		HasNextPage:  p.Page < totalPages,
		HasPrevPage:  p.Page > 1,
		StatusCounts: countStatuses(appts),
		Filters:      p,
		Degraded:     degraded,
	}
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

package appointments

import (
	"errors"
	"strings"
	"time"
)

// Stored dates look like "17 Oct 2026, 10:00 am". Listing searches match on the
// day part only.
const (
	DisplayLayout = "02 Jan 2006, 03:04 pm"
	SearchLayout  = "02 Jan 2006"
	isoDayLayout  = "2006-01-02"
)

var errUnparseableDate = errors.New("unparseable date")

var inputDateLayouts = []string{
	isoDayLayout,
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	SearchLayout,
	"2 Jan 2006",
	DisplayLayout,
	"2 Jan 2006, 3:04 pm",
}

var clockLayouts = []string{
	"15:04",
	"15:04:05",
	"3:04 PM",
	"3:04PM",
	"03:04 PM",
	"3 PM",
}

// FormatDisplay renders t in the stored display form.
func FormatDisplay(t time.Time) string {
	return t.Format(DisplayLayout)
}

// FormatSearch renders the day part of the display form.
func FormatSearch(t time.Time) string {
	return t.Format(SearchLayout)
}

// ParseDate accepts the date shapes the booking form and admin filters send.
// Values without a zone are read in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = normalizeMonth(strings.TrimSpace(s))
	if s == "" {
		return time.Time{}, errUnparseableDate
	}
	for _, layout := range inputDateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, errUnparseableDate
}

// ParseStoredDay reads the calendar day back out of a stored display string.
func ParseStoredDay(stored string, loc *time.Location) (time.Time, error) {
	day := stored
	if i := strings.Index(day, ","); i >= 0 {
		day = day[:i]
	}
	day = normalizeMonth(strings.TrimSpace(day))
	for _, layout := range []string{SearchLayout, "2 Jan 2006", isoDayLayout} {
		if t, err := time.ParseInLocation(layout, day, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errUnparseableDate
}

// ParseClock reads a time-of-day such as "10:00", "3:30 pm" or "03:30 PM".
func ParseClock(s string) (hour, minute int, ok bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Hour(), t.Minute(), true
		}
	}
	return 0, 0, false
}

// StartOfDay truncates t to midnight in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return StartOfDay(a, loc).Equal(StartOfDay(b, loc))
}

// Some locales abbreviate September as "Sept".
func normalizeMonth(s string) string {
	return strings.Replace(s, "Sept ", "Sep ", 1)
}

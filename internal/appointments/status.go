package appointments

import (
	"strings"

	"dental-clinic-server/internal/apperrors"
	"dental-clinic-server/internal/models"
)

// transitions lists, for each non-terminal status, where it may move next.
var transitions = map[models.AppointmentStatus]map[models.AppointmentStatus]bool{
	models.StatusPending: {
		models.StatusConfirmed: true,
		models.StatusCancelled: true,
		models.StatusNoShow:    true,
	},
	models.StatusConfirmed: {
		models.StatusCompleted: true,
		models.StatusCancelled: true,
		models.StatusNoShow:    true,
	},
}

// ParseStatus accepts only the five known status values, exactly as spelled.
func ParseStatus(s string) (models.AppointmentStatus, error) {
	s = strings.TrimSpace(s)
	for _, st := range models.AllStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", apperrors.WithDetail(apperrors.ErrInvalidStatus, "%q must be one of: %s", s, statusList())
}

// CanTransition reports whether an appointment in from may move to to.
func CanTransition(from, to models.AppointmentStatus) bool {
	return transitions[from][to]
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s models.AppointmentStatus) bool {
	return len(transitions[s]) == 0
}

func statusList() string {
	names := make([]string, len(models.AllStatuses))
	for i, st := range models.AllStatuses {
		names[i] = string(st)
	}
	return strings.Join(names, ", ")
}

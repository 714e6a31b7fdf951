package domain

import (
	"strings"
	"time"
)

type OwnerID string
type SubjectID string

// LocalDateLayout is the calendar-date form summaries are keyed by.
// Dates are local, never UTC-shifted: a dose given at 23:30 belongs to
// the day the owner experienced, not the day in Greenwich.
const LocalDateLayout = "2006-01-02"

func LocalDate(t time.Time) string {
	return t.Local().Format(LocalDateLayout)
}

func (id OwnerID) Valid() bool {
	return strings.TrimSpace(string(id)) != ""
}

func (id SubjectID) Valid() bool {
	return strings.TrimSpace(string(id)) != ""
}

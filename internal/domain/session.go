package domain

import (
	"strings"
	"time"
)

// MedicationSession is one logged dose. Sessions are write-once: an
// edit is a new write plus a server-side overwrite, never a mutation
// of the record held here.
type MedicationSession struct {
	ID             string
	OwnerID        OwnerID
	SubjectID      SubjectID
	MedicationName string
	DoseGiven      float64
	DoseUnit       string
	Completed      bool
	LoggedAt       time.Time

	// Set when the session matched a schedule reminder slot.
	ScheduleID    string
	ScheduledTime time.Time
}

// EffectiveTime prefers the matched scheduled time over the raw entry
// time so "was X done near time T" queries align with the schedule
// grid rather than clock-skewed entry times.
func (s MedicationSession) EffectiveTime() time.Time {
	if !s.ScheduledTime.IsZero() {
		return s.ScheduledTime
	}
	return s.LoggedAt
}

func (s MedicationSession) Validate() error {
	if !s.OwnerID.Valid() {
		return ErrNoActiveSubject
	}
	if !s.SubjectID.Valid() {
		return ErrNoActiveSubject
	}
	if strings.TrimSpace(s.MedicationName) == "" {
		return NewValidationError("medication name", "must not be empty")
	}
	if s.DoseGiven <= 0 {
		return NewValidationError("dose", "must be greater than zero")
	}
	if s.LoggedAt.IsZero() {
		return NewValidationError("logged time", "must be set")
	}
	return nil
}

// FluidSession is one subcutaneous fluid administration. Multiple
// partial fluid sessions per day are valid, so fluids never take part
// in duplicate detection.
type FluidSession struct {
	ID          string
	OwnerID     OwnerID
	SubjectID   SubjectID
	VolumeGiven float64
	Completed   bool
	LoggedAt    time.Time

	ScheduleID    string
	ScheduledTime time.Time
}

func (s FluidSession) EffectiveTime() time.Time {
	if !s.ScheduledTime.IsZero() {
		return s.ScheduledTime
	}
	return s.LoggedAt
}

func (s FluidSession) Validate() error {
	if !s.OwnerID.Valid() {
		return ErrNoActiveSubject
	}
	if !s.SubjectID.Valid() {
		return ErrNoActiveSubject
	}
	if s.VolumeGiven <= 0 {
		return NewValidationError("volume", "must be greater than zero")
	}
	if s.LoggedAt.IsZero() {
		return NewValidationError("logged time", "must be set")
	}
	return nil
}

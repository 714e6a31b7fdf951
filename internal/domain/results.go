package domain

import "time"

type LogStatus string

const (
	LogStatusLogged    LogStatus = "logged"
	LogStatusQueued    LogStatus = "queued"
	LogStatusDuplicate LogStatus = "duplicate_detected"
)

// DuplicateCandidate is the minimal comparison record surfaced when a
// likely duplicate is found: just enough for the caller to offer
// "update instead". FromCache distinguishes the zero-read path from a
// remote fallback query.
type DuplicateCandidate struct {
	MedicationName string
	ConflictTime   time.Time
	FromCache      bool
}

// LogOutcome is the discriminated result of a single write attempt.
// Duplicate detection is a decision outcome, not an error; real faults
// travel separately as errors.
type LogOutcome struct {
	Status        LogStatus
	CanonicalTime time.Time
	Duplicate     *DuplicateCandidate
	QueueWarning  string
}

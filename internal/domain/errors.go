package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNoActiveSubject  = errors.New("no active subject selected")
	ErrSummaryNotFound  = errors.New("daily summary not found")
	ErrQueueFull        = errors.New("offline queue is full")
	ErrSyncInFlight     = errors.New("a sync is already in progress")
	ErrUnknownOperation = errors.New("unknown queued operation kind")
)

// ValidationError reports malformed input. It is never retried and is
// surfaced to the caller before any I/O happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// SyncFailedError reports that one or more queued operations failed to
// replay. Successfully replayed operations are not rolled back; failed
// ones remain queued for the next attempt.
type SyncFailedError struct {
	Failed  int
	Message string
}

func (e *SyncFailedError) Error() string {
	return fmt.Sprintf("%d queued operation(s) failed to sync: %s", e.Failed, e.Message)
}

package domain

import (
	"time"
)

type OperationKind string

const (
	OpCreateMedicationSession OperationKind = "create_medication_session"
	OpCreateFluidSession      OperationKind = "create_fluid_session"
	OpQuickLogAllTreatments   OperationKind = "quick_log_all_treatments"
)

func (k OperationKind) Valid() bool {
	switch k {
	case OpCreateMedicationSession, OpCreateFluidSession, OpQuickLogAllTreatments:
		return true
	default:
		return false
	}
}

// QueuedOperation is a durable write intent created while offline and
// replayed in creation order once connectivity returns. The payload
// carries everything needed to perform the write later: the session,
// the schedules considered "today's" at creation time, and - for
// medication only - the snapshot of locally known recent sessions.
// Offline operations deliberately skip remote duplicate detection;
// the explicit user action is trusted as non-duplicate.
type QueuedOperation struct {
	ID        string
	Kind      OperationKind
	OwnerID   OwnerID
	SubjectID SubjectID
	CreatedAt time.Time

	Medication *MedicationSession
	Fluid      *FluidSession
	Schedules  []Schedule

	RecentSnapshot map[string][]time.Time
}

func (op QueuedOperation) Validate() error {
	if op.ID == "" {
		return NewValidationError("operation id", "must not be empty")
	}
	if !op.Kind.Valid() {
		return ErrUnknownOperation
	}
	if !op.OwnerID.Valid() || !op.SubjectID.Valid() {
		return ErrNoActiveSubject
	}
	switch op.Kind {
	case OpCreateMedicationSession:
		if op.Medication == nil {
			return NewValidationError("operation payload", "missing medication session")
		}
	case OpCreateFluidSession:
		if op.Fluid == nil {
			return NewValidationError("operation payload", "missing fluid session")
		}
	case OpQuickLogAllTreatments:
		if len(op.Schedules) == 0 {
			return NewValidationError("operation payload", "missing schedules")
		}
	}
	return nil
}

type EnqueueStatus string

const (
	EnqueueAccepted EnqueueStatus = "accepted"
	EnqueueWarning  EnqueueStatus = "accepted_with_warning"
	EnqueueRejected EnqueueStatus = "rejected_queue_full"
)

// EnqueueResult tells the caller whether the intent was stored and how
// close the queue is to its ceiling.
type EnqueueResult struct {
	Status    EnqueueStatus
	Message   string
	QueueSize int
}

// SyncReport summarizes one drain of the offline queue.
type SyncReport struct {
	Attempted int
	Synced    int
	Failed    int
	Skipped   int
	Failures  []string
	StartedAt time.Time
	Duration  time.Duration
}

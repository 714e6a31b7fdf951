package ports

import (
	"context"
	"time"

	"github.com/ldeneuve/felicare/internal/domain"
)

// ActiveProfile supplies the current owner and subject. Every write
// path short-circuits with domain.ErrNoActiveSubject when either is
// missing, before attempting any I/O.
type ActiveProfile interface {
	Current(ctx context.Context) (domain.OwnerID, domain.SubjectID, error)
}

// AnalyticsSink receives fire-and-forget named events. Implementations
// must never block the caller and failures must never surface to the
// write path.
type AnalyticsSink interface {
	Emit(event string, fields map[string]any)
}

// ConnectivityMonitor reports whether the remote store is reachable
// and streams state transitions for the sync orchestrator.
type ConnectivityMonitor interface {
	Online(ctx context.Context) bool
	Changes() <-chan bool
}

// ReminderCanceller cancels the push reminder for a schedule slot once
// a session covering it has been written. Cancellation failures are
// post-write bookkeeping, never user-facing write failures.
type ReminderCanceller interface {
	CancelReminder(ctx context.Context, scheduleID string, slot time.Time) error
}

type IDGenerator interface {
	NewID() string
}

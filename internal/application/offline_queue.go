package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/ldeneuve/felicare/internal/domain"
	"github.com/ldeneuve/felicare/internal/ports"
)

const (
	// DefaultQueueWarnAt is the soft threshold: entries are still
	// accepted but the caller gets a warning to surface.
	DefaultQueueWarnAt = 50
	// DefaultQueueMaxDepth is the hard ceiling, bounding local storage
	// growth and replay time.
	DefaultQueueMaxDepth = 200
)

// OfflineQueue is the durable FIFO of write intents created while
// offline. Entries are removed only after a successful replay; a
// failed replay leaves the entry in place for the next attempt.
type OfflineQueue struct {
	repo      ports.QueueRepository
	clock     ports.Clock
	analytics ports.AnalyticsSink
	warnAt    int
	maxDepth  int
}

func NewOfflineQueue(repo ports.QueueRepository, clock ports.Clock, analytics ports.AnalyticsSink, warnAt, maxDepth int) *OfflineQueue {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if warnAt <= 0 {
		warnAt = DefaultQueueWarnAt
	}
	if maxDepth <= warnAt {
		maxDepth = DefaultQueueMaxDepth
	}

	return &OfflineQueue{
		repo:      repo,
		clock:     clock,
		analytics: analytics,
		warnAt:    warnAt,
		maxDepth:  maxDepth,
	}
}

// Enqueue appends a write intent, enforcing the soft warning threshold
// and the hard capacity ceiling. The stored queue length never exceeds
// the ceiling.
func (q *OfflineQueue) Enqueue(ctx context.Context, op domain.QueuedOperation) (domain.EnqueueResult, error) {
	size, err := q.repo.Len(ctx)
	if err != nil {
		return domain.EnqueueResult{}, fmt.Errorf("read queue depth: %w", err)
	}

	if size >= q.maxDepth {
		q.analytics.Emit(EventQueueRejected, map[string]any{"depth": size})
		return domain.EnqueueResult{
			Status:    domain.EnqueueRejected,
			Message:   fmt.Sprintf("offline queue is full (%d operations); connect to sync before logging more", size),
			QueueSize: size,
		}, domain.ErrQueueFull
	}

	if err := q.repo.Append(ctx, op); err != nil {
		return domain.EnqueueResult{}, fmt.Errorf("append queued operation: %w", err)
	}
	size++

	if size >= q.warnAt {
		q.analytics.Emit(EventQueueWarning, map[string]any{"depth": size})
		return domain.EnqueueResult{
			Status:    domain.EnqueueWarning,
			Message:   fmt.Sprintf("%d operations waiting to sync; connect soon", size),
			QueueSize: size,
		}, nil
	}

	q.analytics.Emit(EventQueueAccepted, map[string]any{"depth": size})
	return domain.EnqueueResult{Status: domain.EnqueueAccepted, QueueSize: size}, nil
}

// Size returns the current queue depth without draining anything;
// cheap enough for the UI layer to poll.
func (q *OfflineQueue) Size(ctx context.Context) (int, error) {
	return q.repo.Len(ctx)
}

// Pending lists queued operations in creation order.
func (q *OfflineQueue) Pending(ctx context.Context) ([]domain.QueuedOperation, error) {
	ops, _, err := q.repo.List(ctx)
	return ops, err
}

// SyncPendingOperations replays every queued operation strictly in
// creation order through the supplied replay function (the same write
// path used online). A failed operation stays queued and does not
// block the ones after it; all failures are collected into one report
// and a *domain.SyncFailedError.
func (q *OfflineQueue) SyncPendingOperations(ctx context.Context, replay func(context.Context, domain.QueuedOperation) error) (domain.SyncReport, error) {
	started := q.clock.Now()

	ops, skipped, err := q.repo.List(ctx)
	if err != nil {
		return domain.SyncReport{}, fmt.Errorf("list queued operations: %w", err)
	}

	report := domain.SyncReport{
		Attempted: len(ops),
		Skipped:   skipped,
		StartedAt: started,
	}

	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if err := replay(ctx, op); err != nil {
			report.Failed++
			report.Failures = append(report.Failures, fmt.Sprintf("%s: %v", op.Kind, err))
			continue
		}

		if err := q.repo.Remove(ctx, op.ID); err != nil {
			// The write landed but the entry could not be deleted; it
			// will replay again. Counted as a failure so the user sees
			// the queue did not fully drain.
			report.Failed++
			report.Failures = append(report.Failures, fmt.Sprintf("%s: remove after replay: %v", op.Kind, err))
			continue
		}

		report.Synced++
	}

	report.Duration = q.clock.Now().Sub(started)

	if report.Failed > 0 {
		q.analytics.Emit(EventSyncPartialFailure, map[string]any{
			"synced": report.Synced,
			"failed": report.Failed,
		})
		return report, &domain.SyncFailedError{
			Failed:  report.Failed,
			Message: strings.Join(report.Failures, "; "),
		}
	}

	q.analytics.Emit(EventSyncCompleted, map[string]any{
		"synced":      report.Synced,
		"skipped":     report.Skipped,
		"duration_ms": report.Duration.Milliseconds(),
	})

	return report, nil
}

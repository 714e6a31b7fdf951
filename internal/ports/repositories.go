package ports

import (
	"context"

	"github.com/ldeneuve/felicare/internal/domain"
)

// SummaryRepository is the durable local key-value store behind the
// daily summary cache. Get returns domain.ErrSummaryNotFound when no
// entry exists for the key.
type SummaryRepository interface {
	Get(ctx context.Context, key domain.SummaryKey) (domain.DailySummary, error)
	Save(ctx context.Context, summary domain.DailySummary) error
	// DeleteOtherDates removes every entry whose date differs from
	// today and returns how many were purged.
	DeleteOtherDates(ctx context.Context, today string) (int, error)
}

// QueueRepository persists the offline operation queue. List returns
// operations in creation (FIFO) order together with the number of
// corrupt entries that were skipped rather than allowed to block the
// rest of the queue.
type QueueRepository interface {
	Append(ctx context.Context, op domain.QueuedOperation) error
	List(ctx context.Context) ([]domain.QueuedOperation, int, error)
	Remove(ctx context.Context, id string) error
	Len(ctx context.Context) (int, error)
}

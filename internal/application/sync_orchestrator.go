package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ldeneuve/felicare/internal/domain"
	"github.com/ldeneuve/felicare/internal/ports"
)

// SyncNotice is the one-shot, dismissible result of a queue drain,
// exposed to the UI layer as a simple observable value.
type SyncNotice struct {
	At      time.Time
	Synced  int
	Failed  int
	Message string
}

// SyncOrchestrator watches connectivity transitions and drains the
// offline queue exactly once per offline-to-online transition.
// Connectivity flaps while a drain is running never start an
// overlapping one.
type SyncOrchestrator struct {
	queue        *OfflineQueue
	replay       func(context.Context, domain.QueuedOperation) error
	connectivity ports.ConnectivityMonitor
	clock        ports.Clock

	mu          sync.Mutex
	syncing     bool
	notice      *SyncNotice
	subscribers []func(SyncNotice)
}

func NewSyncOrchestrator(queue *OfflineQueue, replay func(context.Context, domain.QueuedOperation) error, connectivity ports.ConnectivityMonitor, clock ports.Clock) *SyncOrchestrator {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &SyncOrchestrator{
		queue:        queue,
		replay:       replay,
		connectivity: connectivity,
		clock:        clock,
	}
}

// Run consumes connectivity transitions until the context is
// cancelled. Intended to run on its own goroutine.
func (o *SyncOrchestrator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case online, ok := <-o.connectivity.Changes():
			if !ok {
				return
			}
			if online {
				o.syncOnce(ctx)
			}
		}
	}
}

// TriggerSync drains the queue on demand (the manual retry
// affordance). Returns domain.ErrSyncInFlight when a drain is already
// running.
func (o *SyncOrchestrator) TriggerSync(ctx context.Context) (domain.SyncReport, error) {
	if !o.begin() {
		return domain.SyncReport{}, domain.ErrSyncInFlight
	}
	defer o.end()

	return o.drain(ctx)
}

// Notice returns the latest sync result, if one has not been
// dismissed.
func (o *SyncOrchestrator) Notice() (SyncNotice, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.notice == nil {
		return SyncNotice{}, false
	}
	return *o.notice, true
}

// Dismiss clears the current notice.
func (o *SyncOrchestrator) Dismiss() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.notice = nil
}

// Subscribe registers a callback invoked with every new sync notice.
func (o *SyncOrchestrator) Subscribe(fn func(SyncNotice)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.subscribers = append(o.subscribers, fn)
}

func (o *SyncOrchestrator) syncOnce(ctx context.Context) {
	if !o.begin() {
		return
	}
	defer o.end()

	_, _ = o.drain(ctx)
}

func (o *SyncOrchestrator) drain(ctx context.Context) (domain.SyncReport, error) {
	report, err := o.queue.SyncPendingOperations(ctx, o.replay)
	o.publish(report)
	return report, err
}

func (o *SyncOrchestrator) publish(report domain.SyncReport) {
	notice := SyncNotice{
		At:      o.clock.Now(),
		Synced:  report.Synced,
		Failed:  report.Failed,
		Message: noticeMessage(report),
	}

	o.mu.Lock()
	o.notice = &notice
	subscribers := append([]func(SyncNotice){}, o.subscribers...)
	o.mu.Unlock()

	for _, fn := range subscribers {
		fn(notice)
	}
}

func (o *SyncOrchestrator) begin() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.syncing {
		return false
	}
	o.syncing = true
	return true
}

func (o *SyncOrchestrator) end() {
	o.mu.Lock()
	o.syncing = false
	o.mu.Unlock()
}

func noticeMessage(report domain.SyncReport) string {
	switch {
	case report.Attempted == 0 && report.Skipped == 0:
		return "Nothing to sync."
	case report.Failed == 0:
		return fmt.Sprintf("Synced %d logged treatment(s).", report.Synced)
	default:
		return fmt.Sprintf("Synced %d treatment(s), %d failed and will retry.", report.Synced, report.Failed)
	}
}

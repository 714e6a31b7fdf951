package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ldeneuve/felicare/internal/domain"
	"github.com/ldeneuve/felicare/internal/ports"
)

// SummaryCache is the local, TTL-free "today" aggregate. It is the one
// piece of truly shared mutable state in the subsystem: every mutation
// runs under the cache mutex so concurrent rapid-fire writes for the
// same subject serialize instead of racing last-write-wins on additive
// counters.
//
// Each mutation persists the entry before returning. A storage write
// failure keeps the in-memory update and is reported to the analytics
// sink: an inconsistent local cache degrades read cost, not
// correctness, because the remote store stays authoritative.
type SummaryCache struct {
	repo      ports.SummaryRepository
	clock     ports.Clock
	analytics ports.AnalyticsSink

	mu          sync.Mutex
	entries     map[domain.SummaryKey]domain.DailySummary
	subscribers []func()
}

func NewSummaryCache(repo ports.SummaryRepository, clock ports.Clock, analytics ports.AnalyticsSink) *SummaryCache {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &SummaryCache{
		repo:      repo,
		clock:     clock,
		analytics: analytics,
		entries:   map[domain.SummaryKey]domain.DailySummary{},
	}
}

// Subscribe registers a callback invoked after every cache mutation.
// Read models (weekly/monthly rollups, screens) recompute on
// notification instead of watching an implicit dependency graph.
func (c *SummaryCache) Subscribe(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

// Get returns today's entry for the subject, if present and not
// expired. It never performs remote I/O; a storage read failure is
// treated as cache-absent so callers fall back to a remote query.
func (c *SummaryCache) Get(ctx context.Context, owner domain.OwnerID, subject domain.SubjectID) (domain.DailySummary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	summary, ok := c.loadLocked(ctx, owner, subject)
	return summary, ok
}

func (c *SummaryCache) ApplyMedicationSession(ctx context.Context, owner domain.OwnerID, subject domain.SubjectID, medicationName string, doseAmount float64, completed bool, effectiveTime time.Time) {
	c.mu.Lock()
	summary := c.loadOrCreateLocked(ctx, owner, subject)
	summary.ApplyMedication(medicationName, doseAmount, completed, effectiveTime)
	c.storeLocked(ctx, summary)
	c.mu.Unlock()

	c.notify()
}

func (c *SummaryCache) ApplyFluidSession(ctx context.Context, owner domain.OwnerID, subject domain.SubjectID, volumeAmount float64) {
	c.mu.Lock()
	summary := c.loadOrCreateLocked(ctx, owner, subject)
	summary.ApplyFluid(volumeAmount)
	c.storeLocked(ctx, summary)
	c.mu.Unlock()

	c.notify()
}

// ApplyQuickLogBatch merges all contributions of a bulk write as one
// atomic update.
func (c *SummaryCache) ApplyQuickLogBatch(ctx context.Context, owner domain.OwnerID, subject domain.SubjectID, contributions []domain.BatchContribution) {
	if len(contributions) == 0 {
		return
	}

	c.mu.Lock()
	summary := c.loadOrCreateLocked(ctx, owner, subject)
	summary.ApplyBatch(contributions)
	c.storeLocked(ctx, summary)
	c.mu.Unlock()

	c.notify()
}

// Warm hydrates today's entry from an authoritative remote summary.
// Warming is idempotent: it rebuilds the entry from the snapshot
// instead of accumulating onto an existing one.
func (c *SummaryCache) Warm(ctx context.Context, owner domain.OwnerID, subject domain.SubjectID, remote domain.RemoteSummary) {
	today := domain.LocalDate(c.clock.Now())
	summary := domain.NewDailySummary(owner, subject, today)
	summary.MedicationSessionCount = remote.MedicationSessionCount
	summary.FluidSessionCount = remote.FluidSessionCount
	summary.MedicationNames = append([]string(nil), remote.MedicationNames...)
	summary.TotalDoseGiven = remote.TotalDoseGiven
	summary.TotalFluidVolumeGiven = remote.TotalFluidVolumeGiven
	for name, times := range remote.MedicationTimes {
		for _, t := range times {
			summary.RecentTimes[name] = append(summary.RecentTimes[name], t)
		}
		if len(summary.RecentTimes[name]) > domain.RecentTimesBound {
			summary.RecentTimes[name] = summary.RecentTimes[name][len(summary.RecentTimes[name])-domain.RecentTimesBound:]
		}
	}
	for name, times := range remote.CompletedTimes {
		for _, t := range times {
			summary.CompletedTimes[name] = append(summary.CompletedTimes[name], t)
		}
		if len(summary.CompletedTimes[name]) > domain.RecentTimesBound {
			summary.CompletedTimes[name] = summary.CompletedTimes[name][len(summary.CompletedTimes[name])-domain.RecentTimesBound:]
		}
	}

	c.mu.Lock()
	c.storeLocked(ctx, summary)
	c.mu.Unlock()

	c.analytics.Emit(EventCacheWarmed, map[string]any{
		"owner":   string(owner),
		"subject": string(subject),
		"date":    today,
	})
	c.notify()
}

// ClearExpired removes every entry whose date is not today's local
// date, in memory and in durable storage. Called on app start and on
// resume from background.
func (c *SummaryCache) ClearExpired(ctx context.Context) error {
	today := domain.LocalDate(c.clock.Now())

	c.mu.Lock()
	for key := range c.entries {
		if key.Date != today {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()

	purged, err := c.repo.DeleteOtherDates(ctx, today)
	if err != nil {
		return fmt.Errorf("purge expired summaries: %w", err)
	}
	if purged > 0 {
		c.analytics.Emit(EventCacheExpired, map[string]any{"purged": purged})
		c.notify()
	}

	return nil
}

// IsLikelyDuplicate reports whether the cached recent-times list for
// the medication holds an entry within window of the candidate time.
func (c *SummaryCache) IsLikelyDuplicate(ctx context.Context, owner domain.OwnerID, subject domain.SubjectID, medicationName string, candidateTime time.Time, window time.Duration) bool {
	summary, ok := c.Get(ctx, owner, subject)
	if !ok {
		return false
	}
	return summary.LikelyDuplicate(medicationName, candidateTime, window)
}

func (c *SummaryCache) loadOrCreateLocked(ctx context.Context, owner domain.OwnerID, subject domain.SubjectID) domain.DailySummary {
	if summary, ok := c.loadLocked(ctx, owner, subject); ok {
		return summary
	}
	return domain.NewDailySummary(owner, subject, domain.LocalDate(c.clock.Now()))
}

func (c *SummaryCache) loadLocked(ctx context.Context, owner domain.OwnerID, subject domain.SubjectID) (domain.DailySummary, bool) {
	today := domain.LocalDate(c.clock.Now())
	key := domain.SummaryKey{Owner: owner, Subject: subject, Date: today}

	if summary, ok := c.entries[key]; ok {
		return summary, true
	}

	summary, err := c.repo.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrSummaryNotFound) {
			c.analytics.Emit(EventCacheReadFailed, map[string]any{"error": err.Error()})
		}
		return domain.DailySummary{}, false
	}
	if summary.Expired(today) {
		return domain.DailySummary{}, false
	}

	c.entries[key] = summary
	return summary, true
}

func (c *SummaryCache) storeLocked(ctx context.Context, summary domain.DailySummary) {
	c.entries[summary.Key()] = summary

	if err := c.repo.Save(ctx, summary); err != nil {
		c.analytics.Emit(EventCacheWriteFailed, map[string]any{"error": err.Error()})
	}
}

func (c *SummaryCache) notify() {
	c.mu.Lock()
	subscribers := append([]func(){}, c.subscribers...)
	c.mu.Unlock()

	for _, fn := range subscribers {
		fn()
	}
}

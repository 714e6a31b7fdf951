package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ldeneuve/felicare/internal/domain"
	"github.com/ldeneuve/felicare/internal/ports"
)

const (
	// DailySummaryTTL bounds how long a fetched daily aggregate is
	// served from memory before the next read goes remote again.
	DailySummaryTTL = 5 * time.Minute
	// MonthlySummaryTTL is longer: monthly rollups change rarely.
	MonthlySummaryTTL = 15 * time.Minute
)

// SummaryReader fetches authoritative aggregates from the remote store
// behind a short in-memory TTL cache, bounding paid reads for
// historical views and cache warming.
//
// Remote failures surface as absence: chart callers render zero, and
// warm callers treat absence as "no prior data today", which is the
// expected state for the first session of the day.
type SummaryReader struct {
	remote    ports.RemoteStore
	clock     ports.Clock
	analytics ports.AnalyticsSink

	mu      sync.Mutex
	daily   map[string]cachedSummary
	monthly map[string]cachedSummary
}

type cachedSummary struct {
	summary   domain.RemoteSummary
	found     bool
	fetchedAt time.Time
}

func NewSummaryReader(remote ports.RemoteStore, clock ports.Clock, analytics ports.AnalyticsSink) *SummaryReader {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &SummaryReader{
		remote:    remote,
		clock:     clock,
		analytics: analytics,
		daily:     map[string]cachedSummary{},
		monthly:   map[string]cachedSummary{},
	}
}

func (r *SummaryReader) DailySummary(ctx context.Context, owner domain.OwnerID, subject domain.SubjectID, date string) (domain.RemoteSummary, bool) {
	key := readerKey(owner, subject, date)

	r.mu.Lock()
	if entry, ok := r.daily[key]; ok && r.clock.Now().Sub(entry.fetchedAt) < DailySummaryTTL {
		r.mu.Unlock()
		return entry.summary, entry.found
	}
	r.mu.Unlock()

	summary, found, err := r.remote.DailySummary(ctx, owner, subject, date)
	if err != nil {
		r.analytics.Emit(EventSummaryFetchFailed, map[string]any{"period": date, "error": err.Error()})
		return domain.RemoteSummary{}, false
	}

	r.mu.Lock()
	r.daily[key] = cachedSummary{summary: summary, found: found, fetchedAt: r.clock.Now()}
	r.mu.Unlock()

	return summary, found
}

func (r *SummaryReader) MonthlySummary(ctx context.Context, owner domain.OwnerID, subject domain.SubjectID, month string) (domain.RemoteSummary, bool) {
	key := readerKey(owner, subject, month)

	r.mu.Lock()
	if entry, ok := r.monthly[key]; ok && r.clock.Now().Sub(entry.fetchedAt) < MonthlySummaryTTL {
		r.mu.Unlock()
		return entry.summary, entry.found
	}
	r.mu.Unlock()

	summary, found, err := r.remote.MonthlySummary(ctx, owner, subject, month)
	if err != nil {
		r.analytics.Emit(EventSummaryFetchFailed, map[string]any{"period": month, "error": err.Error()})
		return domain.RemoteSummary{}, false
	}

	r.mu.Lock()
	r.monthly[key] = cachedSummary{summary: summary, found: found, fetchedAt: r.clock.Now()}
	r.mu.Unlock()

	return summary, found
}

// TodaySummary returns today's aggregate. Lightweight mode bypasses
// the TTL cache and does a single summary read, leaving the
// per-medication timestamp maps unpopulated; "today" changes too often
// for a stale cached copy to be worth one saved read. The full mode
// additionally fetches today's sessions per logged medication to
// populate the timestamp maps.
func (r *SummaryReader) TodaySummary(ctx context.Context, owner domain.OwnerID, subject domain.SubjectID, lightweight bool) (domain.RemoteSummary, bool) {
	today := domain.LocalDate(r.clock.Now())

	if lightweight {
		summary, found, err := r.remote.DailySummary(ctx, owner, subject, today)
		if err != nil {
			r.analytics.Emit(EventSummaryFetchFailed, map[string]any{"period": today, "error": err.Error()})
			return domain.RemoteSummary{}, false
		}
		return summary, found
	}

	summary, found := r.DailySummary(ctx, owner, subject, today)
	if !found {
		return domain.RemoteSummary{}, false
	}

	if len(summary.MedicationTimes) == 0 && len(summary.MedicationNames) > 0 {
		times := map[string][]time.Time{}
		completed := map[string][]time.Time{}
		for _, name := range summary.MedicationNames {
			sessions, err := r.remote.ListMedicationSessions(ctx, owner, subject, today, name)
			if err != nil {
				r.analytics.Emit(EventSummaryFetchFailed, map[string]any{"period": today, "error": err.Error()})
				continue
			}
			for _, session := range sessions {
				times[name] = append(times[name], session.EffectiveTime())
				if session.Completed {
					completed[name] = append(completed[name], session.EffectiveTime())
				}
			}
		}
		summary.MedicationTimes = times
		summary.CompletedTimes = completed
	}

	return summary, true
}

// ClearAllCaches drops every in-memory entry. Called after any local
// write that could make cached aggregates stale: one extra read is
// traded for correctness.
func (r *SummaryReader) ClearAllCaches() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.daily = map[string]cachedSummary{}
	r.monthly = map[string]cachedSummary{}
}

func readerKey(owner domain.OwnerID, subject domain.SubjectID, period string) string {
	return fmt.Sprintf("%s|%s|%s", owner, subject, period)
}

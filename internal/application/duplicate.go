package application

import (
	"context"
	"fmt"
	"time"

	"github.com/ldeneuve/felicare/internal/domain"
	"github.com/ldeneuve/felicare/internal/ports"
)

// DuplicateGuard decides whether a candidate medication write needs a
// remote existence check at all. Duplicate checks are the highest
// frequency remote-read driver in the subsystem, so the tiers are
// arranged for the common cases (new medication, first dose of the
// day) to cost zero remote reads:
//
//	Tier 1: no cache entry, zero sessions today, or the medication was
//	        never logged today -> no candidates, no remote I/O.
//	Tier 2: the medication was logged today and a cached timestamp
//	        falls within the window -> synthesize the comparison record
//	        from the closest cached time, no remote I/O.
//	Tier 3: the medication name is known for today but its cached
//	        timestamp list is empty (entry warmed from a counts-only
//	        summary, or truncated after a crash) -> the cache cannot
//	        answer, query the remote store for today's sessions of that
//	        medication.
//
// When cache signals conflict with reality the guard favors escalation
// over silently skipping detection.
type DuplicateGuard struct {
	cache     *SummaryCache
	remote    ports.RemoteStore
	clock     ports.Clock
	analytics ports.AnalyticsSink
	window    time.Duration
}

func NewDuplicateGuard(cache *SummaryCache, remote ports.RemoteStore, clock ports.Clock, analytics ports.AnalyticsSink) *DuplicateGuard {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &DuplicateGuard{
		cache:     cache,
		remote:    remote,
		clock:     clock,
		analytics: analytics,
		window:    domain.DuplicateWindow,
	}
}

// FindConflict returns the conflicting session record when the
// candidate looks like a duplicate, or nil when the write should
// proceed.
func (g *DuplicateGuard) FindConflict(ctx context.Context, owner domain.OwnerID, subject domain.SubjectID, medicationName string, candidateTime time.Time) (*domain.DuplicateCandidate, error) {
	summary, ok := g.cache.Get(ctx, owner, subject)

	// Tier 1: the cache proves there is nothing to compare against.
	if !ok || summary.MedicationSessionCount == 0 || !summary.HasMedication(medicationName) {
		g.analytics.Emit(EventDuplicateCheckCacheSkip, map[string]any{"medication": medicationName})
		return nil, nil
	}

	// Tier 2: answer from cached timestamps.
	if len(summary.RecentTimes[medicationName]) > 0 {
		if !summary.LikelyDuplicate(medicationName, candidateTime, g.window) {
			g.analytics.Emit(EventDuplicateCheckCacheHit, map[string]any{"medication": medicationName, "conflict": false})
			return nil, nil
		}

		closest, _ := summary.ClosestRecentTime(medicationName, candidateTime)
		g.analytics.Emit(EventDuplicateCheckCacheHit, map[string]any{"medication": medicationName, "conflict": true})
		return &domain.DuplicateCandidate{
			MedicationName: medicationName,
			ConflictTime:   closest,
			FromCache:      true,
		}, nil
	}

	// Tier 3: the name is known for today but the cache holds no
	// timestamps to compare against.
	g.analytics.Emit(EventDuplicateCheckRemote, map[string]any{"medication": medicationName})

	today := domain.LocalDate(g.clock.Now())
	sessions, err := g.remote.ListMedicationSessions(ctx, owner, subject, today, medicationName)
	if err != nil {
		return nil, fmt.Errorf("query today's sessions for duplicate check: %w", err)
	}

	var (
		closest time.Time
		found   bool
	)
	for _, session := range sessions {
		diff := candidateTime.Sub(session.EffectiveTime())
		if diff < 0 {
			diff = -diff
		}
		if diff > g.window {
			continue
		}
		if !found || diff < absDiff(candidateTime, closest) {
			closest = session.EffectiveTime()
			found = true
		}
	}

	if !found {
		return nil, nil
	}

	return &domain.DuplicateCandidate{
		MedicationName: medicationName,
		ConflictTime:   closest,
		FromCache:      false,
	}, nil
}

func absDiff(a, b time.Time) time.Duration {
	d := a.Sub(b)
	if d < 0 {
		return -d
	}
	return d
}

package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldeneuve/felicare/internal/domain"
)

func TestDailySummaryServedFromTTLCache(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.Local)
	clock := newFixedClock(now)
	remote := newFakeRemote()
	remote.dailySummaries["2026-03-14"] = domain.RemoteSummary{MedicationSessionCount: 2}
	reader := NewSummaryReader(remote, clock, &recordingSink{})

	for i := 0; i < 3; i++ {
		summary, found := reader.DailySummary(context.Background(), "owner-1", "cat-1", "2026-03-14")
		require.True(t, found)
		assert.Equal(t, 2, summary.MedicationSessionCount)
	}
	assert.Equal(t, 1, remote.dailyCalls, "reads within the TTL must not go remote")

	clock.Advance(DailySummaryTTL + time.Second)
	_, found := reader.DailySummary(context.Background(), "owner-1", "cat-1", "2026-03-14")
	require.True(t, found)
	assert.Equal(t, 2, remote.dailyCalls)
}

func TestDailySummaryAbsenceIsCached(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.Local)
	remote := newFakeRemote()
	reader := NewSummaryReader(remote, newFixedClock(now), &recordingSink{})

	for i := 0; i < 2; i++ {
		_, found := reader.DailySummary(context.Background(), "owner-1", "cat-1", "2026-03-14")
		assert.False(t, found)
	}
	assert.Equal(t, 1, remote.dailyCalls, "no prior data today is a valid, cacheable answer")
}

func TestDailySummaryRemoteErrorReadsAsAbsent(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.Local)
	remote := newFakeRemote()
	remote.dailyErr = errors.New("remote store unavailable")
	sink := &recordingSink{}
	reader := NewSummaryReader(remote, newFixedClock(now), sink)

	_, found := reader.DailySummary(context.Background(), "owner-1", "cat-1", "2026-03-14")
	assert.False(t, found)
	assert.True(t, sink.has(EventSummaryFetchFailed))
}

func TestTodaySummaryLightweightBypassesTTLCache(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.Local)
	remote := newFakeRemote()
	remote.dailySummaries[domain.LocalDate(now)] = domain.RemoteSummary{
		MedicationSessionCount: 1,
		MedicationNames:        []string{"amlodipine"},
	}
	reader := NewSummaryReader(remote, newFixedClock(now), &recordingSink{})

	for i := 0; i < 2; i++ {
		summary, found := reader.TodaySummary(context.Background(), "owner-1", "cat-1", true)
		require.True(t, found)
		assert.Empty(t, summary.MedicationTimes, "lightweight reads skip timestamp hydration")
	}
	assert.Equal(t, 2, remote.dailyCalls)
	assert.Zero(t, remote.listCalls)
}

func TestTodaySummaryFullHydratesTimestamps(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.Local)
	today := domain.LocalDate(now)
	remote := newFakeRemote()
	remote.dailySummaries[today] = domain.RemoteSummary{
		MedicationSessionCount: 1,
		MedicationNames:        []string{"amlodipine"},
	}
	loggedAt := now.Add(-time.Hour)
	remote.sessionsByName["amlodipine"] = []domain.MedicationSession{{
		ID:             "remote-1",
		OwnerID:        "owner-1",
		SubjectID:      "cat-1",
		MedicationName: "amlodipine",
		DoseGiven:      0.625,
		Completed:      true,
		LoggedAt:       loggedAt,
	}}
	reader := NewSummaryReader(remote, newFixedClock(now), &recordingSink{})

	summary, found := reader.TodaySummary(context.Background(), "owner-1", "cat-1", false)
	require.True(t, found)
	require.Len(t, summary.MedicationTimes["amlodipine"], 1)
	assert.True(t, summary.MedicationTimes["amlodipine"][0].Equal(loggedAt))
	require.Len(t, summary.CompletedTimes["amlodipine"], 1)
}

func TestClearAllCachesForcesRefetch(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.Local)
	remote := newFakeRemote()
	remote.dailySummaries["2026-03-14"] = domain.RemoteSummary{MedicationSessionCount: 1}
	reader := NewSummaryReader(remote, newFixedClock(now), &recordingSink{})

	_, _ = reader.DailySummary(context.Background(), "owner-1", "cat-1", "2026-03-14")
	reader.ClearAllCaches()
	_, _ = reader.DailySummary(context.Background(), "owner-1", "cat-1", "2026-03-14")

	assert.Equal(t, 2, remote.dailyCalls)
}

package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldeneuve/felicare/internal/domain"
)

type coordinatorFixture struct {
	coordinator *Coordinator
	cache       *SummaryCache
	queue       *OfflineQueue
	remote      *fakeRemote
	monitor     *staticMonitor
	reminders   *fakeReminders
	sink        *recordingSink
	clock       *fixedClock
}

func newCoordinatorFixture(t *testing.T, now time.Time, online bool) *coordinatorFixture {
	t.Helper()

	clock := newFixedClock(now)
	sink := &recordingSink{}
	remote := newFakeRemote()
	monitor := newStaticMonitor(online)
	reminders := &fakeReminders{}

	cache := NewSummaryCache(newInMemorySummaryRepo(), clock, sink)
	reader := NewSummaryReader(remote, clock, sink)
	guard := NewDuplicateGuard(cache, remote, clock, sink)
	queue := NewOfflineQueue(newInMemoryQueueRepo(), clock, sink, 0, 0)

	coordinator := NewCoordinator(
		fakeProfile{owner: "owner-1", subject: "cat-1"},
		remote, cache, reader, guard, queue,
		monitor, reminders, sink, clock, &seqIDs{},
	)

	return &coordinatorFixture{
		coordinator: coordinator,
		cache:       cache,
		queue:       queue,
		remote:      remote,
		monitor:     monitor,
		reminders:   reminders,
		sink:        sink,
		clock:       clock,
	}
}

func TestLogMedicationSessionOnline(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 8, 10, 0, 0, time.Local)
	fx := newCoordinatorFixture(t, now, true)

	schedule := domain.Schedule{
		ID:             "sched-amlo",
		Kind:           domain.TreatmentMedication,
		MedicationName: "amlodipine",
		TargetDose:     0.625,
		DoseUnit:       "mg",
		ReminderTimes:  []time.Time{time.Date(2026, 3, 14, 8, 0, 0, 0, time.Local)},
	}

	outcome, err := fx.coordinator.LogMedicationSession(context.Background(), MedicationLogRequest{
		MedicationName: "amlodipine",
		DoseGiven:      0.625,
		DoseUnit:       "mg",
		Completed:      true,
	}, []domain.Schedule{schedule})
	require.NoError(t, err)

	assert.Equal(t, domain.LogStatusLogged, outcome.Status)
	// The matched slot, not the entry time, is canonical.
	assert.True(t, outcome.CanonicalTime.Equal(schedule.ReminderTimes[0]))

	require.Equal(t, 1, fx.remote.medicationCount())
	assert.Equal(t, "sched-amlo", fx.remote.medications[0].ScheduleID)

	summary, ok := fx.cache.Get(context.Background(), "owner-1", "cat-1")
	require.True(t, ok)
	assert.Equal(t, 1, summary.MedicationSessionCount)

	assert.Equal(t, []string{"sched-amlo"}, fx.reminders.cancelled)
	assert.True(t, fx.sink.has(EventSessionLogged))
}

func TestLogMedicationSessionDuplicateBlocksWrite(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.Local)
	fx := newCoordinatorFixture(t, now, true)

	fx.cache.ApplyMedicationSession(context.Background(), "owner-1", "cat-1", "amlodipine", 0.625, true, now.Add(-time.Hour))

	outcome, err := fx.coordinator.LogMedicationSession(context.Background(), MedicationLogRequest{
		MedicationName: "amlodipine",
		DoseGiven:      0.625,
		Completed:      true,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.LogStatusDuplicate, outcome.Status)
	require.NotNil(t, outcome.Duplicate)
	assert.True(t, outcome.Duplicate.FromCache)
	assert.Zero(t, fx.remote.medicationCount(), "a detected duplicate must not be written")
	assert.True(t, fx.sink.has(EventDuplicateDetected))

	summary, _ := fx.cache.Get(context.Background(), "owner-1", "cat-1")
	assert.Equal(t, 1, summary.MedicationSessionCount, "the cache must not count the blocked write")
}

func TestLogMedicationSessionRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.Local)
	fx := newCoordinatorFixture(t, now, true)

	_, err := fx.coordinator.LogMedicationSession(context.Background(), MedicationLogRequest{
		MedicationName: "   ",
		DoseGiven:      0.625,
	}, nil)

	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Zero(t, fx.remote.medicationCount())
}

func TestLogMedicationSessionNoActiveSubject(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.Local)
	fx := newCoordinatorFixture(t, now, true)

	clock := newFixedClock(now)
	noProfile := NewCoordinator(
		fakeProfile{err: domain.ErrNoActiveSubject},
		fx.remote, fx.cache, NewSummaryReader(fx.remote, clock, fx.sink),
		NewDuplicateGuard(fx.cache, fx.remote, clock, fx.sink),
		fx.queue, fx.monitor, fx.reminders, fx.sink, clock, &seqIDs{},
	)

	_, err := noProfile.LogMedicationSession(context.Background(), MedicationLogRequest{
		MedicationName: "amlodipine",
		DoseGiven:      0.625,
	}, nil)
	require.ErrorIs(t, err, domain.ErrNoActiveSubject)
}

func TestLogMedicationSessionOfflineQueuesAndAppliesCache(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.Local)
	fx := newCoordinatorFixture(t, now, false)

	outcome, err := fx.coordinator.LogMedicationSession(context.Background(), MedicationLogRequest{
		MedicationName: "amlodipine",
		DoseGiven:      0.625,
		Completed:      true,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.LogStatusQueued, outcome.Status)
	assert.Zero(t, fx.remote.medicationCount())

	size, err := fx.queue.Size(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, size)

	// The optimistic update makes the dose visible immediately.
	summary, ok := fx.cache.Get(context.Background(), "owner-1", "cat-1")
	require.True(t, ok)
	assert.Equal(t, 1, summary.MedicationSessionCount)
}

func TestOfflineLogThenSyncDoesNotDoubleCount(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.Local)
	fx := newCoordinatorFixture(t, now, false)

	_, err := fx.coordinator.LogMedicationSession(context.Background(), MedicationLogRequest{
		MedicationName: "amlodipine",
		DoseGiven:      0.625,
		Completed:      true,
	}, nil)
	require.NoError(t, err)

	fx.monitor.online = true
	report, err := fx.queue.SyncPendingOperations(context.Background(), fx.coordinator.Replay)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Synced)

	assert.Equal(t, 1, fx.remote.medicationCount())

	summary, ok := fx.cache.Get(context.Background(), "owner-1", "cat-1")
	require.True(t, ok)
	assert.Equal(t, 1, summary.MedicationSessionCount, "replay must not re-apply the optimistic update")
	assert.InDelta(t, 0.625, summary.TotalDoseGiven, 1e-9)

	size, err := fx.queue.Size(context.Background())
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestLogFluidSessionOnlineMatchesSlot(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 18, 20, 0, 0, time.Local)
	fx := newCoordinatorFixture(t, now, true)

	schedule := domain.Schedule{
		ID:            "sched-fluids",
		Kind:          domain.TreatmentFluid,
		TargetVolume:  100,
		ReminderTimes: []time.Time{time.Date(2026, 3, 14, 18, 0, 0, 0, time.Local)},
	}

	outcome, err := fx.coordinator.LogFluidSession(context.Background(), FluidLogRequest{
		VolumeGiven: 100,
		Completed:   true,
	}, &schedule)
	require.NoError(t, err)

	assert.Equal(t, domain.LogStatusLogged, outcome.Status)
	require.Equal(t, 1, fx.remote.fluidCount())
	assert.Equal(t, "sched-fluids", fx.remote.fluids[0].ScheduleID)

	summary, ok := fx.cache.Get(context.Background(), "owner-1", "cat-1")
	require.True(t, ok)
	assert.Equal(t, 1, summary.FluidSessionCount)
	assert.InDelta(t, 100, summary.TotalFluidVolumeGiven, 1e-9)
}

func TestLogFluidSessionNeverDuplicateChecked(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 18, 0, 0, 0, time.Local)
	fx := newCoordinatorFixture(t, now, true)

	// Two partial fluid sessions close together are a normal pattern.
	for i := 0; i < 2; i++ {
		outcome, err := fx.coordinator.LogFluidSession(context.Background(), FluidLogRequest{VolumeGiven: 50}, nil)
		require.NoError(t, err)
		assert.Equal(t, domain.LogStatusLogged, outcome.Status)
	}

	assert.Equal(t, 2, fx.remote.fluidCount())
}

func quickLogSchedules() []domain.Schedule {
	return []domain.Schedule{
		{
			ID:             "sched-amlo",
			Kind:           domain.TreatmentMedication,
			MedicationName: "amlodipine",
			TargetDose:     0.625,
			DoseUnit:       "mg",
			ReminderTimes:  []time.Time{time.Date(2026, 3, 14, 8, 0, 0, 0, time.Local)},
		},
		{
			ID:             "sched-bena",
			Kind:           domain.TreatmentMedication,
			MedicationName: "benazepril",
			TargetDose:     2.5,
			DoseUnit:       "mg",
			ReminderTimes:  []time.Time{time.Date(2026, 3, 14, 8, 0, 0, 0, time.Local)},
		},
		{
			ID:            "sched-fluids",
			Kind:          domain.TreatmentFluid,
			TargetVolume:  100,
			ReminderTimes: []time.Time{time.Date(2026, 3, 14, 9, 0, 0, 0, time.Local)},
		},
	}
}

func TestQuickLogSkipsAlreadyCompletedSlots(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.Local)
	fx := newCoordinatorFixture(t, now, true)

	// The morning amlodipine dose was already logged individually.
	fx.cache.ApplyMedicationSession(context.Background(), "owner-1", "cat-1", "amlodipine", 0.625, true,
		time.Date(2026, 3, 14, 8, 5, 0, 0, time.Local))

	result, err := fx.coordinator.QuickLogAllTreatments(context.Background(), quickLogSchedules())
	require.NoError(t, err)

	assert.Equal(t, 2, result.SessionCount, "only benazepril and fluids remain")
	assert.Equal(t, 1, fx.remote.batchCalls)
	assert.Equal(t, 1, fx.remote.medicationCount())
	assert.Equal(t, 1, fx.remote.fluidCount())

	summary, ok := fx.cache.Get(context.Background(), "owner-1", "cat-1")
	require.True(t, ok)
	assert.Equal(t, 2, summary.MedicationSessionCount)
	assert.Equal(t, 1, summary.FluidSessionCount)
}

func TestQuickLogSecondCallIsNoOp(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.Local)
	fx := newCoordinatorFixture(t, now, true)

	first, err := fx.coordinator.QuickLogAllTreatments(context.Background(), quickLogSchedules())
	require.NoError(t, err)
	assert.Equal(t, 3, first.SessionCount)

	second, err := fx.coordinator.QuickLogAllTreatments(context.Background(), quickLogSchedules())
	require.NoError(t, err)
	assert.Zero(t, second.SessionCount)
	assert.Equal(t, 1, fx.remote.batchCalls, "an all-done quick log must not write")
}

func TestQuickLogOfflineQueuesWithoutCacheUpdate(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.Local)
	fx := newCoordinatorFixture(t, now, false)

	result, err := fx.coordinator.QuickLogAllTreatments(context.Background(), quickLogSchedules())
	require.NoError(t, err)
	assert.True(t, result.Queued)
	assert.Zero(t, result.SessionCount)

	// The cache stays untouched so the replay can recompute what is
	// still due.
	_, ok := fx.cache.Get(context.Background(), "owner-1", "cat-1")
	assert.False(t, ok)

	fx.monitor.online = true
	report, err := fx.queue.SyncPendingOperations(context.Background(), fx.coordinator.Replay)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Synced)

	assert.Equal(t, 2, fx.remote.medicationCount())
	assert.Equal(t, 1, fx.remote.fluidCount())

	summary, ok := fx.cache.Get(context.Background(), "owner-1", "cat-1")
	require.True(t, ok)
	assert.Equal(t, 2, summary.MedicationSessionCount)
	assert.Equal(t, 1, summary.FluidSessionCount)
}

func TestQuickLogReplaySkipsSlotsCoveredMeanwhile(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.Local)
	fx := newCoordinatorFixture(t, now, false)

	_, err := fx.coordinator.QuickLogAllTreatments(context.Background(), quickLogSchedules())
	require.NoError(t, err)

	// A single dose queued after the quick log covers the amlodipine
	// slot by the time the sync runs.
	_, err = fx.coordinator.LogMedicationSession(context.Background(), MedicationLogRequest{
		MedicationName: "amlodipine",
		DoseGiven:      0.625,
		Completed:      true,
		LoggedAt:       time.Date(2026, 3, 14, 8, 5, 0, 0, time.Local),
	}, quickLogSchedules())
	require.NoError(t, err)

	fx.monitor.online = true
	report, err := fx.queue.SyncPendingOperations(context.Background(), fx.coordinator.Replay)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Synced)

	// One from the single-dose replay, one from the quick-log batch;
	// the batch must not re-log amlodipine.
	assert.Equal(t, 2, fx.remote.medicationCount())

	summary, ok := fx.cache.Get(context.Background(), "owner-1", "cat-1")
	require.True(t, ok)
	assert.Equal(t, 2, summary.MedicationSessionCount)
}

func TestQuickLogNoSchedulesIsNoOp(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.Local)
	fx := newCoordinatorFixture(t, now, true)

	result, err := fx.coordinator.QuickLogAllTreatments(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, result.SessionCount)
	assert.Zero(t, fx.remote.batchCalls)
}

func TestReplayUnknownOperationKind(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.Local)
	fx := newCoordinatorFixture(t, now, true)

	err := fx.coordinator.Replay(context.Background(), domain.QueuedOperation{
		ID:   "op-x",
		Kind: "ancient_format",
	})
	require.ErrorIs(t, err, domain.ErrUnknownOperation)
}

package application

import (
	"context"
	"fmt"
	"time"

	"github.com/ldeneuve/felicare/internal/domain"
	"github.com/ldeneuve/felicare/internal/ports"
)

// MedicationLogRequest carries the user-entered fields of one dose.
// AllowDuplicate is set when the user confirmed a flagged entry should
// be logged anyway.
type MedicationLogRequest struct {
	MedicationName string
	DoseGiven      float64
	DoseUnit       string
	Completed      bool
	LoggedAt       time.Time
	AllowDuplicate bool
}

// FluidLogRequest carries the user-entered fields of one fluid
// session.
type FluidLogRequest struct {
	VolumeGiven float64
	Completed   bool
	LoggedAt    time.Time
}

// QuickLogResult reports a bulk "log everything scheduled today"
// attempt.
type QuickLogResult struct {
	SessionCount int
	Queued       bool
	QueueWarning string
}

// Coordinator is the write path for treatment sessions. Online it runs
// validate -> duplicate check (medication only) -> remote write ->
// incremental cache update -> analytics; offline it branches after
// validation into the durable queue with an optimistic cache update.
//
// The cache is updated incrementally after a write rather than
// re-read from the remote aggregate, avoiding both a race window and
// an extra paid read.
type Coordinator struct {
	profile      ports.ActiveProfile
	remote       ports.RemoteStore
	cache        *SummaryCache
	reader       *SummaryReader
	guard        *DuplicateGuard
	queue        *OfflineQueue
	connectivity ports.ConnectivityMonitor
	reminders    ports.ReminderCanceller
	analytics    ports.AnalyticsSink
	clock        ports.Clock
	ids          ports.IDGenerator
}

func NewCoordinator(
	profile ports.ActiveProfile,
	remote ports.RemoteStore,
	cache *SummaryCache,
	reader *SummaryReader,
	guard *DuplicateGuard,
	queue *OfflineQueue,
	connectivity ports.ConnectivityMonitor,
	reminders ports.ReminderCanceller,
	analytics ports.AnalyticsSink,
	clock ports.Clock,
	ids ports.IDGenerator,
) *Coordinator {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &Coordinator{
		profile:      profile,
		remote:       remote,
		cache:        cache,
		reader:       reader,
		guard:        guard,
		queue:        queue,
		connectivity: connectivity,
		reminders:    reminders,
		analytics:    analytics,
		clock:        clock,
		ids:          ids,
	}
}

func (c *Coordinator) LogMedicationSession(ctx context.Context, req MedicationLogRequest, todaysSchedules []domain.Schedule) (domain.LogOutcome, error) {
	owner, subject, err := c.profile.Current(ctx)
	if err != nil {
		return domain.LogOutcome{}, err
	}

	loggedAt := req.LoggedAt
	if loggedAt.IsZero() {
		loggedAt = c.clock.Now()
	}

	session := domain.MedicationSession{
		ID:             c.ids.NewID(),
		OwnerID:        owner,
		SubjectID:      subject,
		MedicationName: req.MedicationName,
		DoseGiven:      req.DoseGiven,
		DoseUnit:       req.DoseUnit,
		Completed:      req.Completed,
		LoggedAt:       loggedAt,
	}
	if schedule, slot, ok := domain.MatchSlot(todaysSchedules, domain.TreatmentMedication, req.MedicationName, loggedAt); ok {
		session.ScheduleID = schedule.ID
		session.ScheduledTime = slot
	}

	if err := session.Validate(); err != nil {
		return domain.LogOutcome{}, err
	}

	if !c.connectivity.Online(ctx) {
		return c.queueMedication(ctx, session, todaysSchedules)
	}

	var conflict *domain.DuplicateCandidate
	if !req.AllowDuplicate {
		conflict, err = c.guard.FindConflict(ctx, owner, subject, session.MedicationName, session.EffectiveTime())
		if err != nil {
			return domain.LogOutcome{}, err
		}
	}
	if conflict != nil {
		c.analytics.Emit(EventDuplicateDetected, map[string]any{
			"medication": conflict.MedicationName,
			"from_cache": conflict.FromCache,
		})
		return domain.LogOutcome{Status: domain.LogStatusDuplicate, Duplicate: conflict}, nil
	}

	if err := c.remote.CreateMedicationSession(ctx, session); err != nil {
		return domain.LogOutcome{}, fmt.Errorf("write medication session: %w", err)
	}

	c.finishMedicationWrite(ctx, session)

	return domain.LogOutcome{Status: domain.LogStatusLogged, CanonicalTime: session.EffectiveTime()}, nil
}

func (c *Coordinator) LogFluidSession(ctx context.Context, req FluidLogRequest, activeSchedule *domain.Schedule) (domain.LogOutcome, error) {
	owner, subject, err := c.profile.Current(ctx)
	if err != nil {
		return domain.LogOutcome{}, err
	}

	loggedAt := req.LoggedAt
	if loggedAt.IsZero() {
		loggedAt = c.clock.Now()
	}

	session := domain.FluidSession{
		ID:          c.ids.NewID(),
		OwnerID:     owner,
		SubjectID:   subject,
		VolumeGiven: req.VolumeGiven,
		Completed:   req.Completed,
		LoggedAt:    loggedAt,
	}
	if activeSchedule != nil {
		if slot, ok := activeSchedule.ClosestSlot(loggedAt); ok {
			session.ScheduleID = activeSchedule.ID
			session.ScheduledTime = slot
		}
	}

	if err := session.Validate(); err != nil {
		return domain.LogOutcome{}, err
	}

	if !c.connectivity.Online(ctx) {
		return c.queueFluid(ctx, session)
	}

	if err := c.remote.CreateFluidSession(ctx, session); err != nil {
		return domain.LogOutcome{}, fmt.Errorf("write fluid session: %w", err)
	}

	c.finishFluidWrite(ctx, session)

	return domain.LogOutcome{Status: domain.LogStatusLogged, CanonicalTime: session.EffectiveTime()}, nil
}

// QuickLogAllTreatments writes one completed session per schedule
// reminder slot due today that is not already covered by a completed
// session. When everything is already done it is a no-op reporting
// zero new sessions.
func (c *Coordinator) QuickLogAllTreatments(ctx context.Context, allTodaysSchedules []domain.Schedule) (QuickLogResult, error) {
	owner, subject, err := c.profile.Current(ctx)
	if err != nil {
		return QuickLogResult{}, err
	}

	if len(allTodaysSchedules) == 0 {
		return QuickLogResult{}, nil
	}

	if !c.connectivity.Online(ctx) {
		op := domain.QueuedOperation{
			ID:        c.ids.NewID(),
			Kind:      domain.OpQuickLogAllTreatments,
			OwnerID:   owner,
			SubjectID: subject,
			CreatedAt: c.clock.Now(),
			Schedules: allTodaysSchedules,
		}
		result, err := c.queue.Enqueue(ctx, op)
		if err != nil {
			return QuickLogResult{}, fmt.Errorf("%s: %w", result.Message, err)
		}
		// No optimistic cache update here: the batch is recomputed
		// from cache state at replay time, and marking slots complete
		// now would make the replay skip them.
		return QuickLogResult{Queued: true, QueueWarning: warningMessage(result)}, nil
	}

	count, err := c.performQuickLog(ctx, owner, subject, allTodaysSchedules)
	if err != nil {
		return QuickLogResult{}, err
	}

	return QuickLogResult{SessionCount: count}, nil
}

// Replay performs a queued operation through the same write path used
// online. Duplicate detection is skipped for single sessions (the
// explicit offline action is trusted as non-duplicate, and the cache
// was already updated optimistically at enqueue time); a quick-log
// batch is recomputed against cache state at replay time so earlier
// replayed writes are not double counted.
func (c *Coordinator) Replay(ctx context.Context, op domain.QueuedOperation) error {
	switch op.Kind {
	case domain.OpCreateMedicationSession:
		if err := c.remote.CreateMedicationSession(ctx, *op.Medication); err != nil {
			return fmt.Errorf("replay medication session: %w", err)
		}
		c.reader.ClearAllCaches()
		c.cancelMatchedReminder(ctx, op.Medication.ScheduleID, op.Medication.ScheduledTime)
		return nil

	case domain.OpCreateFluidSession:
		if err := c.remote.CreateFluidSession(ctx, *op.Fluid); err != nil {
			return fmt.Errorf("replay fluid session: %w", err)
		}
		c.reader.ClearAllCaches()
		c.cancelMatchedReminder(ctx, op.Fluid.ScheduleID, op.Fluid.ScheduledTime)
		return nil

	case domain.OpQuickLogAllTreatments:
		_, err := c.performQuickLog(ctx, op.OwnerID, op.SubjectID, op.Schedules)
		return err

	default:
		return domain.ErrUnknownOperation
	}
}

func (c *Coordinator) queueMedication(ctx context.Context, session domain.MedicationSession, todaysSchedules []domain.Schedule) (domain.LogOutcome, error) {
	var snapshot map[string][]time.Time
	if summary, ok := c.cache.Get(ctx, session.OwnerID, session.SubjectID); ok {
		snapshot = summary.RecentTimesSnapshot()
	}

	op := domain.QueuedOperation{
		ID:             c.ids.NewID(),
		Kind:           domain.OpCreateMedicationSession,
		OwnerID:        session.OwnerID,
		SubjectID:      session.SubjectID,
		CreatedAt:      c.clock.Now(),
		Medication:     &session,
		Schedules:      todaysSchedules,
		RecentSnapshot: snapshot,
	}

	result, err := c.queue.Enqueue(ctx, op)
	if err != nil {
		return domain.LogOutcome{}, fmt.Errorf("%s: %w", result.Message, err)
	}

	c.cache.ApplyMedicationSession(ctx, session.OwnerID, session.SubjectID, session.MedicationName, session.DoseGiven, session.Completed, session.EffectiveTime())

	return domain.LogOutcome{
		Status:        domain.LogStatusQueued,
		CanonicalTime: session.EffectiveTime(),
		QueueWarning:  warningMessage(result),
	}, nil
}

func (c *Coordinator) queueFluid(ctx context.Context, session domain.FluidSession) (domain.LogOutcome, error) {
	op := domain.QueuedOperation{
		ID:        c.ids.NewID(),
		Kind:      domain.OpCreateFluidSession,
		OwnerID:   session.OwnerID,
		SubjectID: session.SubjectID,
		CreatedAt: c.clock.Now(),
		Fluid:     &session,
	}

	result, err := c.queue.Enqueue(ctx, op)
	if err != nil {
		return domain.LogOutcome{}, fmt.Errorf("%s: %w", result.Message, err)
	}

	c.cache.ApplyFluidSession(ctx, session.OwnerID, session.SubjectID, session.VolumeGiven)

	return domain.LogOutcome{
		Status:        domain.LogStatusQueued,
		CanonicalTime: session.EffectiveTime(),
		QueueWarning:  warningMessage(result),
	}, nil
}

func (c *Coordinator) performQuickLog(ctx context.Context, owner domain.OwnerID, subject domain.SubjectID, schedules []domain.Schedule) (int, error) {
	summary, _ := c.cache.Get(ctx, owner, subject)
	now := c.clock.Now()

	var (
		medications   []domain.MedicationSession
		fluids        []domain.FluidSession
		contributions []domain.BatchContribution
	)

	for _, schedule := range schedules {
		for _, slot := range schedule.ReminderTimes {
			switch schedule.Kind {
			case domain.TreatmentMedication:
				if summary.CompletedNear(schedule.MedicationName, slot, domain.SlotMatchWindow) {
					continue
				}
				medications = append(medications, domain.MedicationSession{
					ID:             c.ids.NewID(),
					OwnerID:        owner,
					SubjectID:      subject,
					MedicationName: schedule.MedicationName,
					DoseGiven:      schedule.TargetDose,
					DoseUnit:       schedule.DoseUnit,
					Completed:      true,
					LoggedAt:       now,
					ScheduleID:     schedule.ID,
					ScheduledTime:  slot,
				})
				contributions = append(contributions, domain.BatchContribution{
					Kind:           domain.TreatmentMedication,
					MedicationName: schedule.MedicationName,
					Dose:           schedule.TargetDose,
					Completed:      true,
					EffectiveTime:  slot,
				})

			case domain.TreatmentFluid:
				if summary.CompletedNear(domain.FluidSlotKey(schedule.ID), slot, domain.SlotMatchWindow) {
					continue
				}
				fluids = append(fluids, domain.FluidSession{
					ID:            c.ids.NewID(),
					OwnerID:       owner,
					SubjectID:     subject,
					VolumeGiven:   schedule.TargetVolume,
					Completed:     true,
					LoggedAt:      now,
					ScheduleID:    schedule.ID,
					ScheduledTime: slot,
				})
				contributions = append(contributions, domain.BatchContribution{
					Kind:          domain.TreatmentFluid,
					SlotKey:       domain.FluidSlotKey(schedule.ID),
					Volume:        schedule.TargetVolume,
					Completed:     true,
					EffectiveTime: slot,
				})
			}
		}
	}

	if len(contributions) == 0 {
		return 0, nil
	}

	if err := c.remote.CreateSessionBatch(ctx, medications, fluids); err != nil {
		return 0, fmt.Errorf("write quick-log batch: %w", err)
	}

	c.cache.ApplyQuickLogBatch(ctx, owner, subject, contributions)
	c.reader.ClearAllCaches()

	for _, session := range medications {
		c.cancelMatchedReminder(ctx, session.ScheduleID, session.ScheduledTime)
	}
	for _, session := range fluids {
		c.cancelMatchedReminder(ctx, session.ScheduleID, session.ScheduledTime)
	}

	c.analytics.Emit(EventQuickLogCompleted, map[string]any{"sessions": len(contributions)})

	return len(contributions), nil
}

func (c *Coordinator) finishMedicationWrite(ctx context.Context, session domain.MedicationSession) {
	c.cache.ApplyMedicationSession(ctx, session.OwnerID, session.SubjectID, session.MedicationName, session.DoseGiven, session.Completed, session.EffectiveTime())
	c.reader.ClearAllCaches()
	c.cancelMatchedReminder(ctx, session.ScheduleID, session.ScheduledTime)
	c.analytics.Emit(EventSessionLogged, map[string]any{"kind": string(domain.TreatmentMedication)})
}

func (c *Coordinator) finishFluidWrite(ctx context.Context, session domain.FluidSession) {
	c.cache.ApplyFluidSession(ctx, session.OwnerID, session.SubjectID, session.VolumeGiven)
	c.reader.ClearAllCaches()
	c.cancelMatchedReminder(ctx, session.ScheduleID, session.ScheduledTime)
	c.analytics.Emit(EventSessionLogged, map[string]any{"kind": string(domain.TreatmentFluid)})
}

// cancelMatchedReminder is post-write bookkeeping: a failure here is
// reported to the sink but never turned into a user-facing write
// failure, because the session is already safely persisted remotely.
func (c *Coordinator) cancelMatchedReminder(ctx context.Context, scheduleID string, slot time.Time) {
	if scheduleID == "" {
		return
	}
	if err := c.reminders.CancelReminder(ctx, scheduleID, slot); err != nil {
		c.analytics.Emit("reminder_cancel_failed", map[string]any{
			"schedule_id": scheduleID,
			"error":       err.Error(),
		})
	}
}

func warningMessage(result domain.EnqueueResult) string {
	if result.Status == domain.EnqueueWarning {
		return result.Message
	}
	return ""
}

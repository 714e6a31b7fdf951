package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ldeneuve/felicare/internal/domain"
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock(now time.Time) *fixedClock {
	return &fixedClock{now: now}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id-%03d", g.n)
}

type fakeProfile struct {
	owner   domain.OwnerID
	subject domain.SubjectID
	err     error
}

func (p fakeProfile) Current(context.Context) (domain.OwnerID, domain.SubjectID, error) {
	if p.err != nil {
		return "", "", p.err
	}
	return p.owner, p.subject, nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []string
}

func (s *recordingSink) Emit(event string, fields map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) has(event string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e == event {
			return true
		}
	}
	return false
}

type staticMonitor struct {
	online  bool
	changes chan bool
}

func newStaticMonitor(online bool) *staticMonitor {
	return &staticMonitor{online: online, changes: make(chan bool, 8)}
}

func (m *staticMonitor) Online(context.Context) bool {
	return m.online
}

func (m *staticMonitor) Changes() <-chan bool {
	return m.changes
}

type fakeReminders struct {
	mu        sync.Mutex
	cancelled []string
	err       error
}

func (r *fakeReminders) CancelReminder(_ context.Context, scheduleID string, _ time.Time) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = append(r.cancelled, scheduleID)
	return nil
}

type inMemorySummaryRepo struct {
	mu      sync.Mutex
	entries map[domain.SummaryKey]domain.DailySummary
	getErr  error
	saveErr error
}

func newInMemorySummaryRepo() *inMemorySummaryRepo {
	return &inMemorySummaryRepo{entries: map[domain.SummaryKey]domain.DailySummary{}}
}

func (r *inMemorySummaryRepo) Get(_ context.Context, key domain.SummaryKey) (domain.DailySummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return domain.DailySummary{}, r.getErr
	}
	summary, ok := r.entries[key]
	if !ok {
		return domain.DailySummary{}, domain.ErrSummaryNotFound
	}
	return summary, nil
}

func (r *inMemorySummaryRepo) Save(_ context.Context, summary domain.DailySummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.entries[summary.Key()] = summary
	return nil
}

func (r *inMemorySummaryRepo) DeleteOtherDates(_ context.Context, today string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	purged := 0
	for key := range r.entries {
		if key.Date != today {
			delete(r.entries, key)
			purged++
		}
	}
	return purged, nil
}

type inMemoryQueueRepo struct {
	mu        sync.Mutex
	ops       []domain.QueuedOperation
	skipped   int
	appendErr error
	removeErr map[string]error
}

func newInMemoryQueueRepo() *inMemoryQueueRepo {
	return &inMemoryQueueRepo{removeErr: map[string]error{}}
}

func (r *inMemoryQueueRepo) Append(_ context.Context, op domain.QueuedOperation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return r.appendErr
	}
	r.ops = append(r.ops, op)
	return nil
}

func (r *inMemoryQueueRepo) List(context.Context) ([]domain.QueuedOperation, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ops := append([]domain.QueuedOperation(nil), r.ops...)
	return ops, r.skipped, nil
}

func (r *inMemoryQueueRepo) Remove(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.removeErr[id]; err != nil {
		return err
	}
	for i, op := range r.ops {
		if op.ID == id {
			r.ops = append(r.ops[:i], r.ops[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *inMemoryQueueRepo) Len(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ops), nil
}

type fakeRemote struct {
	mu sync.Mutex

	dailySummaries   map[string]domain.RemoteSummary
	monthlySummaries map[string]domain.RemoteSummary
	sessionsByName   map[string][]domain.MedicationSession

	dailyErr            error
	listErr             error
	createMedicationErr error
	createFluidErr      error
	batchErr            error

	medications []domain.MedicationSession
	fluids      []domain.FluidSession
	dailyCalls  int
	listCalls   int
	batchCalls  int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		dailySummaries:   map[string]domain.RemoteSummary{},
		monthlySummaries: map[string]domain.RemoteSummary{},
		sessionsByName:   map[string][]domain.MedicationSession{},
	}
}

func (r *fakeRemote) DailySummary(_ context.Context, _ domain.OwnerID, _ domain.SubjectID, date string) (domain.RemoteSummary, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dailyCalls++
	if r.dailyErr != nil {
		return domain.RemoteSummary{}, false, r.dailyErr
	}
	summary, ok := r.dailySummaries[date]
	return summary, ok, nil
}

func (r *fakeRemote) MonthlySummary(_ context.Context, _ domain.OwnerID, _ domain.SubjectID, month string) (domain.RemoteSummary, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	summary, ok := r.monthlySummaries[month]
	return summary, ok, nil
}

func (r *fakeRemote) ListMedicationSessions(_ context.Context, _ domain.OwnerID, _ domain.SubjectID, _ string, medicationName string) ([]domain.MedicationSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.sessionsByName[medicationName], nil
}

func (r *fakeRemote) CreateMedicationSession(_ context.Context, session domain.MedicationSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createMedicationErr != nil {
		return r.createMedicationErr
	}
	r.medications = append(r.medications, session)
	return nil
}

func (r *fakeRemote) CreateFluidSession(_ context.Context, session domain.FluidSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createFluidErr != nil {
		return r.createFluidErr
	}
	r.fluids = append(r.fluids, session)
	return nil
}

func (r *fakeRemote) CreateSessionBatch(_ context.Context, medications []domain.MedicationSession, fluids []domain.FluidSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batchCalls++
	if r.batchErr != nil {
		return r.batchErr
	}
	r.medications = append(r.medications, medications...)
	r.fluids = append(r.fluids, fluids...)
	return nil
}

func (r *fakeRemote) medicationCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.medications)
}

func (r *fakeRemote) fluidCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fluids)
}

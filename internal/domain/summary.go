package domain

import (
	"sort"
	"time"
)

// RecentTimesBound caps the per-medication timestamp lists kept in the
// daily summary. The lists are a performance hint for duplicate
// detection, not a system of record, so pruning never loses
// correctness.
const RecentTimesBound = 8

// SummaryKey identifies the single cache entry that may exist per
// (owner, subject, local calendar date).
type SummaryKey struct {
	Owner   OwnerID
	Subject SubjectID
	Date    string
}

// DailySummary is the local per-day aggregate of treatment sessions.
// RecentTimes includes incomplete and partial sessions; CompletedTimes
// holds completed sessions only and backs "is this dose done" queries.
type DailySummary struct {
	OwnerID   OwnerID
	SubjectID SubjectID
	Date      string

	MedicationSessionCount int
	FluidSessionCount      int
	MedicationNames        []string
	TotalDoseGiven         float64
	TotalFluidVolumeGiven  float64

	RecentTimes    map[string][]time.Time
	CompletedTimes map[string][]time.Time
}

func NewDailySummary(owner OwnerID, subject SubjectID, date string) DailySummary {
	return DailySummary{
		OwnerID:        owner,
		SubjectID:      subject,
		Date:           date,
		RecentTimes:    map[string][]time.Time{},
		CompletedTimes: map[string][]time.Time{},
	}
}

func (s DailySummary) Key() SummaryKey {
	return SummaryKey{Owner: s.OwnerID, Subject: s.SubjectID, Date: s.Date}
}

// Expired reports whether the entry belongs to a date other than
// today. Entries never carry a TTL; rolling past midnight is the only
// thing that invalidates them.
func (s DailySummary) Expired(today string) bool {
	return s.Date != today
}

func (s *DailySummary) ApplyMedication(name string, dose float64, completed bool, effective time.Time) {
	s.ensureMaps()
	s.MedicationSessionCount++
	s.TotalDoseGiven += dose
	if !s.HasMedication(name) {
		s.MedicationNames = append(s.MedicationNames, name)
	}
	s.RecentTimes[name] = appendBounded(s.RecentTimes[name], effective)
	if completed {
		s.CompletedTimes[name] = appendBounded(s.CompletedTimes[name], effective)
	}
}

func (s *DailySummary) ApplyFluid(volume float64) {
	s.ensureMaps()
	s.FluidSessionCount++
	s.TotalFluidVolumeGiven += volume
}

// BatchContribution is one schedule's share of a quick-log write.
// For fluid schedules SlotKey (see FluidSlotKey) stands in for the
// medication name so slot completion can still be tracked.
type BatchContribution struct {
	Kind           TreatmentKind
	MedicationName string
	SlotKey        string
	Dose           float64
	Volume         float64
	Completed      bool
	EffectiveTime  time.Time
}

// FluidSlotKey namespaces fluid schedules inside the completed-times
// map, which is otherwise keyed by medication name.
func FluidSlotKey(scheduleID string) string {
	return "fluid:" + scheduleID
}

// ApplyBatch merges a quick-log batch as one atomic update.
func (s *DailySummary) ApplyBatch(contributions []BatchContribution) {
	s.ensureMaps()
	for _, c := range contributions {
		switch c.Kind {
		case TreatmentMedication:
			s.ApplyMedication(c.MedicationName, c.Dose, c.Completed, c.EffectiveTime)
		case TreatmentFluid:
			s.ApplyFluid(c.Volume)
			if c.Completed && c.SlotKey != "" {
				s.CompletedTimes[c.SlotKey] = appendBounded(s.CompletedTimes[c.SlotKey], c.EffectiveTime)
			}
		}
	}
}

func (s DailySummary) HasMedication(name string) bool {
	for _, existing := range s.MedicationNames {
		if existing == name {
			return true
		}
	}
	return false
}

// LikelyDuplicate reports whether any recent session of the medication
// falls within window of the candidate time.
func (s DailySummary) LikelyDuplicate(name string, candidate time.Time, window time.Duration) bool {
	for _, logged := range s.RecentTimes[name] {
		if absDuration(candidate.Sub(logged)) <= window {
			return true
		}
	}
	return false
}

// ClosestRecentTime returns the recent session time of the medication
// nearest to the candidate.
func (s DailySummary) ClosestRecentTime(name string, candidate time.Time) (time.Time, bool) {
	times := s.RecentTimes[name]
	if len(times) == 0 {
		return time.Time{}, false
	}
	sorted := make([]time.Time, len(times))
	copy(sorted, times)
	sort.Slice(sorted, func(i, j int) bool {
		return absDuration(candidate.Sub(sorted[i])) < absDuration(candidate.Sub(sorted[j]))
	})
	return sorted[0], true
}

// CompletedNear reports whether a completed session of the medication
// exists within window of the slot time. Partial or incomplete
// sessions do not count as done.
func (s DailySummary) CompletedNear(name string, slot time.Time, window time.Duration) bool {
	for _, done := range s.CompletedTimes[name] {
		if absDuration(slot.Sub(done)) <= window {
			return true
		}
	}
	return false
}

// RecentTimesSnapshot deep-copies the recent-times map, used when an
// offline operation needs to carry the locally known state with it.
func (s DailySummary) RecentTimesSnapshot() map[string][]time.Time {
	snapshot := make(map[string][]time.Time, len(s.RecentTimes))
	for name, times := range s.RecentTimes {
		copied := make([]time.Time, len(times))
		copy(copied, times)
		snapshot[name] = copied
	}
	return snapshot
}

func (s *DailySummary) ensureMaps() {
	if s.RecentTimes == nil {
		s.RecentTimes = map[string][]time.Time{}
	}
	if s.CompletedTimes == nil {
		s.CompletedTimes = map[string][]time.Time{}
	}
}

func appendBounded(times []time.Time, t time.Time) []time.Time {
	times = append(times, t)
	if len(times) > RecentTimesBound {
		times = times[len(times)-RecentTimesBound:]
	}
	return times
}

// RemoteSummary is the authoritative aggregate fetched from the remote
// store. In lightweight form the per-medication timestamp maps are
// empty: only counts, names and totals are populated.
type RemoteSummary struct {
	Period string

	MedicationSessionCount int
	FluidSessionCount      int
	MedicationNames        []string
	TotalDoseGiven         float64
	TotalFluidVolumeGiven  float64

	MedicationTimes map[string][]time.Time
	CompletedTimes  map[string][]time.Time
}

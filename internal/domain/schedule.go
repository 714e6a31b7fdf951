package domain

import (
	"time"
)

type TreatmentKind string

const (
	TreatmentMedication TreatmentKind = "medication"
	TreatmentFluid      TreatmentKind = "fluid"
)

// SlotMatchWindow is the tolerance for matching a session against a
// schedule reminder slot. The duplicate-detection window deliberately
// uses the same value so the zero-read and full-query paths agree.
const SlotMatchWindow = 2 * time.Hour

// DuplicateWindow is the default window within which two sessions of
// the same medication count as likely duplicates.
const DuplicateWindow = SlotMatchWindow

// Schedule describes one recurring treatment with its reminder slots
// for the current day.
type Schedule struct {
	ID             string
	Kind           TreatmentKind
	MedicationName string
	TargetDose     float64
	DoseUnit       string
	TargetVolume   float64
	ReminderTimes  []time.Time
}

// ClosestSlot returns the reminder slot nearest to at, if any slot
// lies within SlotMatchWindow. When several qualify the smallest time
// difference wins.
func (s Schedule) ClosestSlot(at time.Time) (time.Time, bool) {
	var (
		best     time.Time
		found    bool
		bestDiff time.Duration
	)
	for _, slot := range s.ReminderTimes {
		diff := absDuration(at.Sub(slot))
		if diff > SlotMatchWindow {
			continue
		}
		if !found || diff < bestDiff {
			best = slot
			found = true
			bestDiff = diff
		}
	}
	return best, found
}

// MatchSlot finds the schedule and reminder slot best matching a
// session of the given kind (and medication name, for medication
// schedules) at the given time.
func MatchSlot(schedules []Schedule, kind TreatmentKind, medicationName string, at time.Time) (Schedule, time.Time, bool) {
	var (
		matched  Schedule
		slot     time.Time
		found    bool
		bestDiff time.Duration
	)
	for _, schedule := range schedules {
		if schedule.Kind != kind {
			continue
		}
		if kind == TreatmentMedication && schedule.MedicationName != medicationName {
			continue
		}
		candidate, ok := schedule.ClosestSlot(at)
		if !ok {
			continue
		}
		diff := absDuration(at.Sub(candidate))
		if !found || diff < bestDiff {
			matched = schedule
			slot = candidate
			found = true
			bestDiff = diff
		}
	}
	return matched, slot, found
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

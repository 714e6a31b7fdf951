package toml

import (
	"fmt"
	"time"

	"github.com/ldeneuve/felicare/internal/domain"
)

const currentSchemaVersion = 1

type summaryFileSchema struct {
	Version   int             `toml:"version"`
	Summaries []summarySchema `toml:"summaries"`
}

func (s *summaryFileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s summaryFileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported summaries schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type summarySchema struct {
	Key                    string              `toml:"key"`
	OwnerID                string              `toml:"owner_id"`
	SubjectID              string              `toml:"subject_id"`
	Date                   string              `toml:"date"`
	MedicationSessionCount int                 `toml:"medication_session_count"`
	FluidSessionCount      int                 `toml:"fluid_session_count"`
	MedicationNames        []string            `toml:"medication_names,omitempty"`
	TotalDoseGiven         float64             `toml:"total_dose_given,omitempty"`
	TotalFluidVolumeGiven  float64             `toml:"total_fluid_volume_given,omitempty"`
	RecentTimes            map[string][]string `toml:"recent_times,omitempty"`
	CompletedTimes         map[string][]string `toml:"completed_times,omitempty"`
}

func summaryStorageKey(key domain.SummaryKey) string {
	return fmt.Sprintf("dailySummary_%s_%s_%s", key.Owner, key.Subject, key.Date)
}

func toSummarySchema(summary domain.DailySummary) summarySchema {
	return summarySchema{
		Key:                    summaryStorageKey(summary.Key()),
		OwnerID:                string(summary.OwnerID),
		SubjectID:              string(summary.SubjectID),
		Date:                   summary.Date,
		MedicationSessionCount: summary.MedicationSessionCount,
		FluidSessionCount:      summary.FluidSessionCount,
		MedicationNames:        summary.MedicationNames,
		TotalDoseGiven:         summary.TotalDoseGiven,
		TotalFluidVolumeGiven:  summary.TotalFluidVolumeGiven,
		RecentTimes:            formatTimeMap(summary.RecentTimes),
		CompletedTimes:         formatTimeMap(summary.CompletedTimes),
	}
}

func fromSummarySchema(entry summarySchema) domain.DailySummary {
	return domain.DailySummary{
		OwnerID:                domain.OwnerID(entry.OwnerID),
		SubjectID:              domain.SubjectID(entry.SubjectID),
		Date:                   entry.Date,
		MedicationSessionCount: entry.MedicationSessionCount,
		FluidSessionCount:      entry.FluidSessionCount,
		MedicationNames:        entry.MedicationNames,
		TotalDoseGiven:         entry.TotalDoseGiven,
		TotalFluidVolumeGiven:  entry.TotalFluidVolumeGiven,
		RecentTimes:            parseTimeMap(entry.RecentTimes),
		CompletedTimes:         parseTimeMap(entry.CompletedTimes),
	}
}

type queueFileSchema struct {
	Version    int               `toml:"version"`
	Operations []operationSchema `toml:"operations"`
}

func (s *queueFileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s queueFileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported queue schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type operationSchema struct {
	ID             string              `toml:"id"`
	Kind           string              `toml:"kind"`
	OwnerID        string              `toml:"owner_id"`
	SubjectID      string              `toml:"subject_id"`
	CreatedAt      string              `toml:"created_at"`
	Medication     *sessionSchema      `toml:"medication,omitempty"`
	Fluid          *sessionSchema      `toml:"fluid,omitempty"`
	Schedules      []scheduleSchema    `toml:"schedules,omitempty"`
	RecentSnapshot map[string][]string `toml:"recent_snapshot,omitempty"`
}

type sessionSchema struct {
	ID             string  `toml:"id"`
	MedicationName string  `toml:"medication_name,omitempty"`
	DoseGiven      float64 `toml:"dose_given,omitempty"`
	DoseUnit       string  `toml:"dose_unit,omitempty"`
	VolumeGiven    float64 `toml:"volume_given,omitempty"`
	Completed      bool    `toml:"completed"`
	LoggedAt       string  `toml:"logged_at"`
	ScheduleID     string  `toml:"schedule_id,omitempty"`
	ScheduledTime  string  `toml:"scheduled_time,omitempty"`
}

type scheduleSchema struct {
	ID             string   `toml:"id"`
	Kind           string   `toml:"kind"`
	MedicationName string   `toml:"medication_name,omitempty"`
	TargetDose     float64  `toml:"target_dose,omitempty"`
	DoseUnit       string   `toml:"dose_unit,omitempty"`
	TargetVolume   float64  `toml:"target_volume,omitempty"`
	ReminderTimes  []string `toml:"reminder_times,omitempty"`
}

func toOperationSchema(op domain.QueuedOperation) operationSchema {
	encoded := operationSchema{
		ID:             op.ID,
		Kind:           string(op.Kind),
		OwnerID:        string(op.OwnerID),
		SubjectID:      string(op.SubjectID),
		CreatedAt:      formatTime(op.CreatedAt),
		RecentSnapshot: formatTimeMap(op.RecentSnapshot),
	}

	if op.Medication != nil {
		encoded.Medication = &sessionSchema{
			ID:             op.Medication.ID,
			MedicationName: op.Medication.MedicationName,
			DoseGiven:      op.Medication.DoseGiven,
			DoseUnit:       op.Medication.DoseUnit,
			Completed:      op.Medication.Completed,
			LoggedAt:       formatTime(op.Medication.LoggedAt),
			ScheduleID:     op.Medication.ScheduleID,
			ScheduledTime:  formatTime(op.Medication.ScheduledTime),
		}
	}
	if op.Fluid != nil {
		encoded.Fluid = &sessionSchema{
			ID:            op.Fluid.ID,
			VolumeGiven:   op.Fluid.VolumeGiven,
			Completed:     op.Fluid.Completed,
			LoggedAt:      formatTime(op.Fluid.LoggedAt),
			ScheduleID:    op.Fluid.ScheduleID,
			ScheduledTime: formatTime(op.Fluid.ScheduledTime),
		}
	}
	for _, schedule := range op.Schedules {
		encoded.Schedules = append(encoded.Schedules, toScheduleSchema(schedule))
	}

	return encoded
}

func fromOperationSchema(entry operationSchema) (domain.QueuedOperation, error) {
	op := domain.QueuedOperation{
		ID:             entry.ID,
		Kind:           domain.OperationKind(entry.Kind),
		OwnerID:        domain.OwnerID(entry.OwnerID),
		SubjectID:      domain.SubjectID(entry.SubjectID),
		CreatedAt:      parseTime(entry.CreatedAt),
		RecentSnapshot: parseTimeMap(entry.RecentSnapshot),
	}

	if entry.Medication != nil {
		op.Medication = &domain.MedicationSession{
			ID:             entry.Medication.ID,
			OwnerID:        op.OwnerID,
			SubjectID:      op.SubjectID,
			MedicationName: entry.Medication.MedicationName,
			DoseGiven:      entry.Medication.DoseGiven,
			DoseUnit:       entry.Medication.DoseUnit,
			Completed:      entry.Medication.Completed,
			LoggedAt:       parseTime(entry.Medication.LoggedAt),
			ScheduleID:     entry.Medication.ScheduleID,
			ScheduledTime:  parseTime(entry.Medication.ScheduledTime),
		}
	}
	if entry.Fluid != nil {
		op.Fluid = &domain.FluidSession{
			ID:            entry.Fluid.ID,
			OwnerID:       op.OwnerID,
			SubjectID:     op.SubjectID,
			VolumeGiven:   entry.Fluid.VolumeGiven,
			Completed:     entry.Fluid.Completed,
			LoggedAt:      parseTime(entry.Fluid.LoggedAt),
			ScheduleID:    entry.Fluid.ScheduleID,
			ScheduledTime: parseTime(entry.Fluid.ScheduledTime),
		}
	}
	for _, schedule := range entry.Schedules {
		op.Schedules = append(op.Schedules, fromScheduleSchema(schedule))
	}

	if err := op.Validate(); err != nil {
		return domain.QueuedOperation{}, fmt.Errorf("decode queued operation %q: %w", entry.ID, err)
	}

	return op, nil
}

func toScheduleSchema(schedule domain.Schedule) scheduleSchema {
	encoded := scheduleSchema{
		ID:             schedule.ID,
		Kind:           string(schedule.Kind),
		MedicationName: schedule.MedicationName,
		TargetDose:     schedule.TargetDose,
		DoseUnit:       schedule.DoseUnit,
		TargetVolume:   schedule.TargetVolume,
	}
	for _, slot := range schedule.ReminderTimes {
		encoded.ReminderTimes = append(encoded.ReminderTimes, formatTime(slot))
	}
	return encoded
}

func fromScheduleSchema(entry scheduleSchema) domain.Schedule {
	schedule := domain.Schedule{
		ID:             entry.ID,
		Kind:           domain.TreatmentKind(entry.Kind),
		MedicationName: entry.MedicationName,
		TargetDose:     entry.TargetDose,
		DoseUnit:       entry.DoseUnit,
		TargetVolume:   entry.TargetVolume,
	}
	for _, slot := range entry.ReminderTimes {
		schedule.ReminderTimes = append(schedule.ReminderTimes, parseTime(slot))
	}
	return schedule
}

func formatTimeMap(times map[string][]time.Time) map[string][]string {
	if len(times) == 0 {
		return nil
	}

	encoded := make(map[string][]string, len(times))
	for name, list := range times {
		values := make([]string, 0, len(list))
		for _, t := range list {
			values = append(values, formatTime(t))
		}
		encoded[name] = values
	}
	return encoded
}

func parseTimeMap(raw map[string][]string) map[string][]time.Time {
	decoded := make(map[string][]time.Time, len(raw))
	for name, list := range raw {
		values := make([]time.Time, 0, len(list))
		for _, value := range list {
			values = append(values, parseTime(value))
		}
		decoded[name] = values
	}
	return decoded
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.Format(time.RFC3339)
}

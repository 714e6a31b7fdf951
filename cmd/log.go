package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ldeneuve/felicare/internal/application"
	"github.com/ldeneuve/felicare/internal/domain"
)

func newLogCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Log a single treatment session",
	}

	cmd.AddCommand(
		newLogMedicationCmd(app),
		newLogFluidCmd(app),
	)

	return cmd
}

func newLogMedicationCmd(app *app) *cobra.Command {
	var (
		name      string
		dose      float64
		unit      string
		partial   bool
		at        string
		forceDupe bool
	)

	cmd := &cobra.Command{
		Use:   "med",
		Short: "Log one medication dose",
		RunE: func(cmd *cobra.Command, _ []string) error {
			loggedAt, err := parseEntryTime(at, app.now())
			if err != nil {
				return err
			}

			schedules, err := app.todaysSchedules()
			if err != nil {
				return err
			}

			outcome, err := app.coordinator.LogMedicationSession(cmd.Context(), application.MedicationLogRequest{
				MedicationName: name,
				DoseGiven:      dose,
				DoseUnit:       unit,
				Completed:      !partial,
				LoggedAt:       loggedAt,
				AllowDuplicate: forceDupe,
			}, schedules)
			if err != nil {
				return err
			}

			return printOutcome(cmd, outcome, forceDupe)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "medication name")
	cmd.Flags().Float64Var(&dose, "dose", 0, "dose amount given")
	cmd.Flags().StringVar(&unit, "unit", "mg", "dose unit")
	cmd.Flags().BoolVar(&partial, "partial", false, "mark the dose as partial rather than completed")
	cmd.Flags().StringVar(&at, "at", "", "entry time (15:04 or RFC 3339); defaults to now")
	cmd.Flags().BoolVar(&forceDupe, "allow-duplicate", false, "log even when a likely duplicate is detected")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("dose")

	return cmd
}

func newLogFluidCmd(app *app) *cobra.Command {
	var (
		volume  float64
		partial bool
		at      string
	)

	cmd := &cobra.Command{
		Use:   "fluid",
		Short: "Log one subcutaneous fluid session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			loggedAt, err := parseEntryTime(at, app.now())
			if err != nil {
				return err
			}

			schedules, err := app.todaysSchedules()
			if err != nil {
				return err
			}

			outcome, err := app.coordinator.LogFluidSession(cmd.Context(), application.FluidLogRequest{
				VolumeGiven: volume,
				Completed:   !partial,
				LoggedAt:    loggedAt,
			}, firstFluidSchedule(schedules))
			if err != nil {
				return err
			}

			return printOutcome(cmd, outcome, false)
		},
	}

	cmd.Flags().Float64Var(&volume, "volume", 0, "volume given in ml")
	cmd.Flags().BoolVar(&partial, "partial", false, "mark the session as partial rather than completed")
	cmd.Flags().StringVar(&at, "at", "", "entry time (15:04 or RFC 3339); defaults to now")
	_ = cmd.MarkFlagRequired("volume")

	return cmd
}

func firstFluidSchedule(schedules []domain.Schedule) *domain.Schedule {
	for i := range schedules {
		if schedules[i].Kind == domain.TreatmentFluid {
			return &schedules[i]
		}
	}
	return nil
}

func printOutcome(cmd *cobra.Command, outcome domain.LogOutcome, allowedDuplicate bool) error {
	out := cmd.OutOrStdout()

	switch outcome.Status {
	case domain.LogStatusLogged:
		_, _ = fmt.Fprintf(out, "Logged at %s\n", outcome.CanonicalTime.Format("15:04"))
	case domain.LogStatusQueued:
		_, _ = fmt.Fprintln(out, "Offline: entry queued, it will sync when connectivity returns.")
		if outcome.QueueWarning != "" {
			_, _ = fmt.Fprintln(out, outcome.QueueWarning)
		}
	case domain.LogStatusDuplicate:
		_, _ = fmt.Fprintf(out, "Looks already logged: %s at %s.\n",
			outcome.Duplicate.MedicationName, outcome.Duplicate.ConflictTime.Format("15:04"))
		if !allowedDuplicate {
			_, _ = fmt.Fprintln(out, "Re-run with --allow-duplicate to log it anyway.")
		}
	}

	return nil
}

func parseEntryTime(raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}

	if clock, err := time.ParseInLocation("15:04", raw, time.Local); err == nil {
		return time.Date(now.Year(), now.Month(), now.Day(),
			clock.Hour(), clock.Minute(), 0, 0, time.Local), nil
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse entry time %q: expected 15:04 or RFC 3339", raw)
	}
	return parsed.Local(), nil
}

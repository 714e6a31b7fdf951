package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newQuickLogCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "quicklog",
		Short: "Log every scheduled treatment still due today",
		RunE: func(cmd *cobra.Command, _ []string) error {
			schedules, err := app.todaysSchedules()
			if err != nil {
				return err
			}

			result, err := app.coordinator.QuickLogAllTreatments(cmd.Context(), schedules)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case result.Queued:
				_, _ = fmt.Fprintln(out, "Offline: quick log queued, due treatments will be logged at sync time.")
				if result.QueueWarning != "" {
					_, _ = fmt.Fprintln(out, result.QueueWarning)
				}
			case result.SessionCount == 0:
				_, _ = fmt.Fprintln(out, "Everything scheduled today is already logged.")
			default:
				_, _ = fmt.Fprintf(out, "Logged %d treatment(s).\n", result.SessionCount)
			}

			return nil
		},
	}
}

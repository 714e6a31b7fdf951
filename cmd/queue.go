package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newQueueCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "List operations waiting to sync",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pending, err := app.queue.Pending(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(pending) == 0 {
				_, _ = fmt.Fprintln(out, "Queue is empty.")
				return nil
			}

			_, _ = fmt.Fprintf(out, "%d operation(s) waiting to sync:\n", len(pending))
			for _, op := range pending {
				detail := ""
				switch {
				case op.Medication != nil:
					detail = fmt.Sprintf(" %s %.4g %s", op.Medication.MedicationName, op.Medication.DoseGiven, op.Medication.DoseUnit)
				case op.Fluid != nil:
					detail = fmt.Sprintf(" %.0f ml", op.Fluid.VolumeGiven)
				}
				_, _ = fmt.Fprintf(out, "  %s  %s%s (created %s)\n",
					op.ID, op.Kind, detail, op.CreatedAt.Local().Format("2006-01-02 15:04"))
			}

			return nil
		},
	}
}

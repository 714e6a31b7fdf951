package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ldeneuve/felicare/internal/domain"
)

func newSyncCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay queued operations against the remote store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !app.monitor.Online(cmd.Context()) {
				return errors.New("remote store is not reachable; try again once connected")
			}

			report, err := app.orchestrator.TriggerSync(cmd.Context())
			if err != nil {
				var syncErr *domain.SyncFailedError
				if errors.As(err, &syncErr) {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(),
						"Synced %d, %d failed and stay queued: %s\n",
						report.Synced, report.Failed, syncErr.Message)
					return nil
				}
				return err
			}

			if report.Attempted == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Nothing to sync.")
				return nil
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Synced %d operation(s) in %s.\n",
				report.Synced, report.Duration.Round(time.Millisecond))
			return nil
		},
	}
}

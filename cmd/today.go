package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ldeneuve/felicare/internal/adapters/render/today"
	"github.com/ldeneuve/felicare/internal/application"
	"github.com/ldeneuve/felicare/internal/domain"
)

func newTodayCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Show today's treatment summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			owner, subject, err := app.profile.Current(ctx)
			if err != nil {
				return err
			}

			schedules, err := app.todaysSchedules()
			if err != nil {
				return err
			}

			online := app.monitor.Online(ctx)

			summary, hasSummary := app.cache.Get(ctx, owner, subject)
			if !hasSummary && online {
				// Cold cache with connectivity: warm from the remote
				// aggregate so the view reflects entries made on other
				// devices.
				if remote, found := app.reader.TodaySummary(ctx, owner, subject, false); found {
					app.cache.Warm(ctx, owner, subject, remote)
					summary, hasSummary = app.cache.Get(ctx, owner, subject)
				}
			}

			depth, err := app.queue.Size(ctx)
			if err != nil {
				return err
			}

			var notice *application.SyncNotice
			if n, ok := app.orchestrator.Notice(); ok {
				notice = &n
			}

			output, err := today.Render(today.Report{
				Subject:    string(subject),
				Date:       domain.LocalDate(app.now()),
				Summary:    summary,
				HasSummary: hasSummary,
				Schedules:  schedules,
				QueueDepth: depth,
				Offline:    !online,
				Notice:     notice,
			})
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), output)
			return err
		},
	}
}

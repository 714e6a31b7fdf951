package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "felicare",
		Short:         "felicare: log feline CKD treatments, offline-first",
		Long:          "felicare tracks daily medication and subcutaneous fluid sessions for a cat in chronic kidney disease care. Entries work offline, sync when connectivity returns, and rapid double entries are caught before they reach the record.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.PersistentPostRun = func(*cobra.Command, []string) {
		app.close()
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newAuthCmd(app),
		newLogCmd(app),
		newQuickLogCmd(app),
		newTodayCmd(app),
		newQueueCmd(app),
		newSyncCmd(app),
	)

	return rootCmd
}

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ldeneuve/felicare/internal/adapters/tokens"
)

func newAuthCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the sync API token",
	}

	cmd.AddCommand(
		newAuthSetCmd(app),
		newAuthShowCmd(app),
		newAuthClearCmd(app),
	)

	return cmd
}

func newAuthSetCmd(app *app) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store the sync API token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			trimmed := strings.TrimSpace(token)
			if trimmed == "" {
				return fmt.Errorf("token must not be empty")
			}

			if err := app.tokens.Put(cmd.Context(), tokens.DefaultKey, trimmed); err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Token stored.")
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "sync API token")
	_ = cmd.MarkFlagRequired("token")

	return cmd
}

func newAuthShowCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the stored token (masked)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := app.tokens.Get(cmd.Context(), tokens.DefaultKey)
			if err != nil {
				return fmt.Errorf("no stored token: %w", err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), maskToken(strings.TrimSpace(token)))
			return nil
		},
	}
}

func newAuthClearCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.tokens.Delete(cmd.Context(), tokens.DefaultKey); err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Token removed.")
			return nil
		},
	}
}

func maskToken(token string) string {
	if len(token) <= 4 {
		return strings.Repeat("*", len(token))
	}
	return strings.Repeat("*", len(token)-4) + token[len(token)-4:]
}

package main

import (
	"github.com/spf13/cobra"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.backend.Migrate(cmd.Context(), a.logger); err != nil {
				return err
			}
			a.logger.InfoContext(cmd.Context(), "migrations applied", "driver", a.backend.driver)
			return nil
		},
	}
}

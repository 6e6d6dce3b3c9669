package cmd

import (
	"context"
	"fmt"

	"github.com/example/room-booking/internal/config"
	"github.com/example/room-booking/internal/db"
	"github.com/example/room-booking/internal/logging"
	"github.com/example/room-booking/internal/migrate"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	var list bool
	c := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				files, err := migrate.Files()
				if err != nil {
					return err
				}
				for _, f := range files {
					fmt.Fprintln(cmd.OutOrStdout(), f)
				}
				return nil
			}

			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			log, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile, Stderr: true})
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx := context.Background()
			d, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer d.Close()

			if err := migrate.Up(ctx, d, log); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
	c.Flags().BoolVar(&list, "list", false, "only print the embedded migrations")
	return c
}

package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"growth-engine/internal/app"
)

// NewMigrateCommand creates the migrate command group. It always talks to
// Postgres, whatever store driver is configured.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:          "up",
		Short:        "Apply all pending migrations",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, rootOpts, 0)
		},
	})

	var steps int
	down := &cobra.Command{
		Use:          "down",
		Short:        "Roll back migrations",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps <= 0 {
				return NewExitError(ExitCommandError, "--steps must be positive")
			}
			return runMigrate(cmd, rootOpts, steps)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	cmd.AddCommand(down)

	return cmd
}

// runMigrate migrates up when down is 0, otherwise rolls back down steps.
func runMigrate(cmd *cobra.Command, rootOpts *RootOptions, down int) error {
	cfg, log, err := loadConfig(rootOpts.Verbose)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	database, err := app.ConnectPostgres(ctx, cfg, log)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to connect", err)
	}
	defer database.Close()

	action := "up"
	if down > 0 {
		action = fmt.Sprintf("down %d", down)
		err = database.MigrateDown(down)
	} else {
		err = database.RunMigrations(log)
	}
	if err != nil {
		return WrapExitError(ExitFailure, "migration failed", err)
	}

	return output(cmd.OutOrStdout(), rootOpts.Format, map[string]string{"migrate": action}, func(w io.Writer) {
		fmt.Fprintf(w, "✓ Migrated %s\n", action)
	})
}

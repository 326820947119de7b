// Package cli implements growthctl, the operator tool for schema migrations,
// redeem codes and credit balances.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"growth-engine/config"
	"growth-engine/internal/app"
	"growth-engine/internal/clock"
	"growth-engine/internal/ledger"
	"growth-engine/pkg/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	open Opener
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Env is the store and ledger a command works against.
type Env struct {
	Store  app.Store
	Ledger *ledger.Service
	Close  func()
}

// Opener builds the Env for a command run.
type Opener func(ctx context.Context, verbose bool) (*Env, error)

// NewRootCommand creates the root command backed by the configured store.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWith(openFromConfig)
}

// NewRootCommandWith creates the root command with a custom store opener.
func NewRootCommandWith(open Opener) *cobra.Command {
	opts := &RootOptions{open: open}

	cmd := &cobra.Command{
		Use:   "growthctl",
		Short: "Operate the growth engine",
		Long:  "Administrative commands for the growth engine: migrations, redeem codes and credit balances.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// main prints the error and picks the exit code
	cmd.SilenceErrors = true

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewCodesCommand(opts))
	cmd.AddCommand(NewCreditsCommand(opts))
	cmd.AddCommand(NewLedgerCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func loadConfig(verbose bool) (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	level := "warn"
	if verbose {
		level = "debug"
	}
	return cfg, logger.New(level), nil
}

func openFromConfig(ctx context.Context, verbose bool) (*Env, error) {
	cfg, log, err := loadConfig(verbose)
	if err != nil {
		return nil, err
	}
	store, closeStore, err := app.OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return &Env{
		Store:  store,
		Ledger: ledger.NewService(store, clock.System{}, log),
		Close:  closeStore,
	}, nil
}

// withEnv opens the Env, runs fn and closes it.
func withEnv(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, env *Env) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	env, err := opts.open(ctx, opts.Verbose)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open store", err)
	}
	defer env.Close()
	return fn(ctx, env)
}

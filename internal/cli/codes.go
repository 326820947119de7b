package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

type createCodeOptions struct {
	credits int
	maxUses int
	expires string
}

// NewCodesCommand creates the codes command group.
func NewCodesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codes",
		Short: "Manage redeem codes",
	}
	cmd.AddCommand(newCreateCodeCommand(rootOpts))
	return cmd
}

func newCreateCodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &createCodeOptions{}

	cmd := &cobra.Command{
		Use:   "create <code>",
		Short: "Create a redeem code",
		Long: `Create a redeem code worth --credits credits that up to --max-uses
distinct users can redeem once each. Codes are stored upper-cased.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			expiresAt, err := parseExpiry(opts.expires)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --expires", err)
			}
			return withEnv(cmd, rootOpts, func(ctx context.Context, env *Env) error {
				code, err := env.Ledger.CreateCode(ctx, args[0], opts.credits, opts.maxUses, expiresAt)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to create code", err)
				}
				return output(cmd.OutOrStdout(), rootOpts.Format, code, func(w io.Writer) {
					fmt.Fprintf(w, "✓ Created %s: %d credits, %d uses", code.Code, code.Credits, code.MaxUses)
					if code.ExpiresAt != nil {
						fmt.Fprintf(w, ", expires %s", code.ExpiresAt.Format(time.RFC3339))
					}
					fmt.Fprintln(w)
				})
			})
		},
	}

	cmd.Flags().IntVar(&opts.credits, "credits", 100, "credits granted per redemption")
	cmd.Flags().IntVar(&opts.maxUses, "max-uses", 1, "maximum number of redemptions")
	cmd.Flags().StringVar(&opts.expires, "expires", "", "expiry as RFC3339 or YYYY-MM-DD (UTC midnight)")

	return cmd
}

func parseExpiry(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("expected RFC3339 or YYYY-MM-DD, got %q", s)
	}
	return &t, nil
}

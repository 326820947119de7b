package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"growth-engine/internal/ledger"
)

// NewLedgerCommand creates the ledger command group.
func NewLedgerCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Audit the credits ledger",
	}
	cmd.AddCommand(newVerifyCommand(rootOpts))
	return cmd
}

func newVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <user-id>...",
		Short: "Check that balances equal the sum of their transactions",
		Long: `Compare each user's stored balance with the sum of their credit
transactions. Exits with status 1 when any user is inconsistent.`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, rootOpts, func(ctx context.Context, env *Env) error {
				reports := make([]*ledger.Report, 0, len(args))
				inconsistent := 0
				for _, userID := range args {
					r, err := env.Ledger.Verify(ctx, userID)
					if err != nil {
						return WrapExitError(ExitCommandError, fmt.Sprintf("failed to verify %s", userID), err)
					}
					if !r.Consistent {
						inconsistent++
					}
					reports = append(reports, r)
				}

				err := output(cmd.OutOrStdout(), rootOpts.Format, reports, func(w io.Writer) {
					for _, r := range reports {
						mark := "✓"
						if !r.Consistent {
							mark = "✗"
						}
						fmt.Fprintf(w, "%s %s: balance %d, transactions sum %d\n", mark, r.UserID, r.Balance, r.Sum)
					}
				})
				if err != nil {
					return err
				}
				if inconsistent > 0 {
					return NewExitError(ExitFailure, fmt.Sprintf("%d of %d balances inconsistent", inconsistent, len(reports)))
				}
				return nil
			})
		},
	}
}

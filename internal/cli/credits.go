package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"growth-engine/internal/models"
)

// NewCreditsCommand creates the credits command group.
func NewCreditsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credits",
		Short: "Inspect and adjust credit balances",
	}
	cmd.AddCommand(newGrantCommand(rootOpts))
	cmd.AddCommand(newHistoryCommand(rootOpts))
	return cmd
}

type grantResult struct {
	UserID     string `json:"userId"`
	Amount     int    `json:"amount"`
	NewBalance int    `json:"newBalance"`
}

func newGrantCommand(rootOpts *RootOptions) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:          "grant <user-id> <amount>",
		Short:        "Grant bonus credits to a user",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.Atoi(args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, "amount must be an integer", err)
			}
			return withEnv(cmd, rootOpts, func(ctx context.Context, env *Env) error {
				balance, err := env.Ledger.Grant(ctx, args[0], amount, reason)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to grant credits", err)
				}
				res := grantResult{UserID: args[0], Amount: amount, NewBalance: balance}
				return output(cmd.OutOrStdout(), rootOpts.Format, res, func(w io.Writer) {
					fmt.Fprintf(w, "✓ Granted %d credits to %s (balance %d)\n", amount, args[0], balance)
				})
			})
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "transaction description")
	return cmd
}

func newHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "history <user-id>",
		Short:        "List a user's credit transactions",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, rootOpts, func(ctx context.Context, env *Env) error {
				txs, err := env.Store.ListTransactions(ctx, args[0])
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to list transactions", err)
				}
				if txs == nil {
					txs = []models.CreditTransaction{}
				}
				return output(cmd.OutOrStdout(), rootOpts.Format, txs, func(w io.Writer) {
					if len(txs) == 0 {
						fmt.Fprintf(w, "no transactions for %s\n", args[0])
						return
					}
					for _, tx := range txs {
						fmt.Fprintf(w, "%s  %-8s %+6d  %s\n", tx.CreatedAt.Format(time.RFC3339), tx.Type, tx.Amount, tx.Description)
					}
				})
			})
		},
	}
}

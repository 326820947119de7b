package ledger

import (
	"context"

	"growth-engine/internal/models"
)

// Tx is one atomic unit of ledger work. Reads lock the rows they return until
// the transaction ends; writes are conditional where noted.
type Tx interface {
	GetProfileForUpdate(ctx context.Context, userID string) (*models.Profile, error)
	// GetRedeemCode looks a code up by its normalized text.
	GetRedeemCode(ctx context.Context, code string) (*models.RedeemCode, error)
	HasRedeemUse(ctx context.Context, codeID int64, userID string) (bool, error)
	// InsertRedeemUse creates the (code, user) marker if absent and reports
	// whether it did.
	InsertRedeemUse(ctx context.Context, codeID int64, userID string) (bool, error)
	// IncrementCodeUse bumps used_count only while it is below max_uses and
	// reports whether it did.
	IncrementCodeUse(ctx context.Context, codeID int64) (bool, error)
	AppendTransaction(ctx context.Context, t *models.CreditTransaction) error
	// AdjustBalance adds delta to the balance and returns the new value. It
	// fails with models.ErrInsufficientBalance instead of going negative.
	AdjustBalance(ctx context.Context, userID string, delta int) (int, error)
	InsertAIUsage(ctx context.Context, u *models.AIUsage) error
}

type Store interface {
	// WithinTx runs fn in one transaction. Nothing fn wrote survives when it
	// returns an error.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	SumTransactions(ctx context.Context, userID string) (int, error)
	CreateRedeemCode(ctx context.Context, c *models.RedeemCode) error
}

package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"

	"growth-engine/internal/ledger"
	"growth-engine/internal/models"
)

// WithinTx runs fn in a single database transaction. Row locks taken by the
// Tx reads are held until commit.
func (db *PostgresDB) WithinTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	return db.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		return fn(&ledgerTx{tx: tx})
	})
}

func (db *PostgresDB) SumTransactions(ctx context.Context, userID string) (int, error) {
	var sum int
	err := db.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM credit_transactions WHERE user_id = $1`, userID,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum transactions: %w", err)
	}
	return sum, nil
}

func (db *PostgresDB) CreateRedeemCode(ctx context.Context, c *models.RedeemCode) error {
	query := `
        INSERT INTO redeem_codes (code, credits, max_uses, active, expires_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (code) DO NOTHING
        RETURNING id
    `

	err := db.pool.QueryRow(ctx, query,
		c.Code, c.Credits, c.MaxUses, c.Active, c.ExpiresAt, c.CreatedAt,
	).Scan(&c.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("redeem code %s: %w", c.Code, models.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to create redeem code: %w", err)
	}
	return nil
}

func (db *PostgresDB) ListTransactions(ctx context.Context, userID string) ([]models.CreditTransaction, error) {
	query := `
        SELECT id, user_id, amount, type, description, created_at
        FROM credit_transactions
        WHERE user_id = $1
        ORDER BY id
    `

	rows, err := db.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var out []models.CreditTransaction
	for rows.Next() {
		var t models.CreditTransaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Type, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type ledgerTx struct {
	tx pgx.Tx
}

func (t *ledgerTx) GetProfileForUpdate(ctx context.Context, userID string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM users WHERE id = $1 FOR UPDATE`

	p, err := scanProfile(t.tx.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock profile %s: %w", userID, err)
	}
	return p, nil
}

func (t *ledgerTx) GetRedeemCode(ctx context.Context, code string) (*models.RedeemCode, error) {
	query := `
        SELECT id, code, credits, max_uses, used_count, active, expires_at, created_at
        FROM redeem_codes
        WHERE code = $1
        FOR UPDATE
    `

	var c models.RedeemCode
	err := t.tx.QueryRow(ctx, query, code).Scan(
		&c.ID, &c.Code, &c.Credits, &c.MaxUses, &c.UsedCount, &c.Active, &c.ExpiresAt, &c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("redeem code %s: %w", code, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get redeem code: %w", err)
	}
	return &c, nil
}

func (t *ledgerTx) HasRedeemUse(ctx context.Context, codeID int64, userID string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM redeem_code_uses WHERE code_id = $1 AND user_id = $2)`,
		codeID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check redeem use: %w", err)
	}
	return exists, nil
}

func (t *ledgerTx) InsertRedeemUse(ctx context.Context, codeID int64, userID string) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
        INSERT INTO redeem_code_uses (code_id, user_id)
        VALUES ($1, $2)
        ON CONFLICT (code_id, user_id) DO NOTHING
    `, codeID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to insert redeem use: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (t *ledgerTx) IncrementCodeUse(ctx context.Context, codeID int64) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
        UPDATE redeem_codes
        SET used_count = used_count + 1
        WHERE id = $1 AND used_count < max_uses
    `, codeID)
	if err != nil {
		return false, fmt.Errorf("failed to increment code use: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (t *ledgerTx) AppendTransaction(ctx context.Context, ct *models.CreditTransaction) error {
	query := `
        INSERT INTO credit_transactions (user_id, amount, type, description, created_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `

	if err := t.tx.QueryRow(ctx, query,
		ct.UserID, ct.Amount, ct.Type, ct.Description, ct.CreatedAt,
	).Scan(&ct.ID); err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

func (t *ledgerTx) AdjustBalance(ctx context.Context, userID string, delta int) (int, error) {
	var balance int
	err := t.tx.QueryRow(ctx, `
        UPDATE users
        SET credits_balance = credits_balance + $2, updated_at = NOW()
        WHERE id = $1 AND credits_balance + $2 >= 0
        RETURNING credits_balance
    `, userID, delta).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, models.ErrInsufficientBalance
	}
	if err != nil {
		return 0, fmt.Errorf("failed to adjust balance: %w", err)
	}
	return balance, nil
}

func (t *ledgerTx) InsertAIUsage(ctx context.Context, u *models.AIUsage) error {
	input := u.InputData
	if input == nil {
		input = map[string]string{}
	}
	payload, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("failed to encode AI usage input: %w", err)
	}

	query := `
        INSERT INTO ai_usages (user_id, feature_id, input_data, output_text, cost, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `

	if err := t.tx.QueryRow(ctx, query,
		u.UserID, u.FeatureID, string(payload), u.OutputText, u.Cost, u.CreatedAt,
	).Scan(&u.ID); err != nil {
		return fmt.Errorf("failed to record AI usage: %w", err)
	}
	return nil
}

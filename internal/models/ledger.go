package models

import "time"

type TransactionType string

const (
	TxRedeem  TransactionType = "REDEEM"
	TxAIUsage TransactionType = "AI_USAGE"
	TxBonus   TransactionType = "BONUS"
)

// CreditTransaction is an append-only ledger row. Amount is signed.
type CreditTransaction struct {
	ID          int64           `json:"id"`
	UserID      string          `json:"userId"`
	Amount      int             `json:"amount"`
	Type        TransactionType `json:"type"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type RedeemCode struct {
	ID        int64      `json:"id"`
	Code      string     `json:"code"`
	Credits   int        `json:"credits"`
	MaxUses   int        `json:"maxUses"`
	UsedCount int        `json:"usedCount"`
	Active    bool       `json:"active"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Expired reports whether the code can no longer be redeemed at now.
func (c *RedeemCode) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}

type RedeemCodeUse struct {
	ID        int64     `json:"id"`
	CodeID    int64     `json:"codeId"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

type AIUsage struct {
	ID         int64             `json:"id"`
	UserID     string            `json:"userId"`
	FeatureID  string            `json:"featureId"`
	InputData  map[string]string `json:"inputData"`
	OutputText string            `json:"outputText"`
	Cost       int               `json:"cost"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// Package ledger keeps the credits balance of each user in step with an
// append-only transaction log.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"growth-engine/internal/apperr"
	"growth-engine/internal/clock"
	"growth-engine/internal/models"
	"growth-engine/pkg/logger"
)

// WelcomeCode is seeded into fresh databases.
const (
	WelcomeCode        = "WELCOME100"
	welcomeCodeCredits = 100
	welcomeCodeUses    = 1000
)

const (
	MsgInvalidCode   = "invalid code"
	MsgExpiredCode   = "code expired"
	MsgCodeUsed      = "code already used"
	MsgCodeExhausted = "code fully redeemed"
)

type Service struct {
	store Store
	clock clock.Clock
	log   *logger.Logger
}

func NewService(store Store, clk clock.Clock, log *logger.Logger) *Service {
	return &Service{store: store, clock: clk, log: log.Named("ledger")}
}

type Redemption struct {
	Success      bool `json:"success"`
	CreditsAdded int  `json:"creditsAdded"`
	NewBalance   int  `json:"newBalance"`
}

// Redeem applies a redeem code to the user's balance. The use marker, the
// code counter, the transaction and the balance change commit together.
func (s *Service) Redeem(ctx context.Context, userID, code string) (*Redemption, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, apperr.Validation("code", "code is required")
	}

	var out Redemption
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		if _, err := tx.GetProfileForUpdate(ctx, userID); err != nil {
			return err
		}
		rc, err := tx.GetRedeemCode(ctx, code)
		if errors.Is(err, models.ErrNotFound) {
			return apperr.Validation("code", MsgInvalidCode)
		}
		if err != nil {
			return err
		}
		if !rc.Active || rc.Expired(s.clock.Now()) {
			return apperr.Validation("code", MsgExpiredCode)
		}

		used, err := tx.HasRedeemUse(ctx, rc.ID, userID)
		if err != nil {
			return err
		}
		if used {
			return apperr.Validation("code", MsgCodeUsed)
		}
		if rc.UsedCount >= rc.MaxUses {
			return apperr.Validation("code", MsgCodeExhausted)
		}

		inserted, err := tx.InsertRedeemUse(ctx, rc.ID, userID)
		if err != nil {
			return err
		}
		if !inserted {
			return apperr.Validation("code", MsgCodeUsed)
		}
		incremented, err := tx.IncrementCodeUse(ctx, rc.ID)
		if err != nil {
			return err
		}
		if !incremented {
			return apperr.Validation("code", MsgCodeExhausted)
		}

		if err := tx.AppendTransaction(ctx, &models.CreditTransaction{
			UserID:      userID,
			Amount:      rc.Credits,
			Type:        models.TxRedeem,
			Description: "Redeemed code " + rc.Code,
			CreatedAt:   s.clock.Now(),
		}); err != nil {
			return err
		}
		balance, err := tx.AdjustBalance(ctx, userID, rc.Credits)
		if err != nil {
			return err
		}

		out = Redemption{Success: true, CreditsAdded: rc.Credits, NewBalance: balance}
		return nil
	})
	if err != nil {
		return nil, s.wrap("failed to redeem code", err)
	}

	s.log.Infow("code redeemed", "user_id", userID, "code", code, "credits", out.CreditsAdded)
	return &out, nil
}

// Cost is what a generation for task costs a user on plan. PRO users are
// never charged; a negative catalog cost counts as 0.
func Cost(task models.Task, plan models.Plan) int {
	if plan == models.PlanPro || task.CreditsCost < 0 {
		return 0
	}
	return task.CreditsCost
}

// Authorize checks, without writing anything, that the user could pay for a
// generation of task right now. It returns the cost that would be charged.
func (s *Service) Authorize(ctx context.Context, userID string, task models.Task) (int, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return 0, s.wrap("failed to load profile", err)
	}
	cost := Cost(task, p.Plan)
	if err := checkFunds(p, cost); err != nil {
		return 0, err
	}
	return cost, nil
}

type Usage struct {
	FeatureID string
	Input     map[string]string
	Output    string
}

type Charge struct {
	Cost       int `json:"creditsDeducted"`
	NewBalance int `json:"newBalance"`
}

// ChargeForGeneration debits the cost of a completed generation and records
// the usage. A FREE user short of credits gets a Forbidden error and nothing
// is written.
func (s *Service) ChargeForGeneration(ctx context.Context, userID string, task models.Task, usage Usage) (*Charge, error) {
	var out Charge
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		p, err := tx.GetProfileForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		cost := Cost(task, p.Plan)
		if err := checkFunds(p, cost); err != nil {
			return err
		}

		balance := p.CreditsBalance
		if cost > 0 {
			if err := tx.AppendTransaction(ctx, &models.CreditTransaction{
				UserID:      userID,
				Amount:      -cost,
				Type:        models.TxAIUsage,
				Description: "AI generation: " + featureLabel(task, usage),
				CreatedAt:   s.clock.Now(),
			}); err != nil {
				return err
			}
			balance, err = tx.AdjustBalance(ctx, userID, -cost)
			if errors.Is(err, models.ErrInsufficientBalance) {
				return insufficient(p.CreditsBalance, cost)
			}
			if err != nil {
				return err
			}
		}

		if err := tx.InsertAIUsage(ctx, &models.AIUsage{
			UserID:     userID,
			FeatureID:  featureLabel(task, usage),
			InputData:  usage.Input,
			OutputText: usage.Output,
			Cost:       cost,
			CreatedAt:  s.clock.Now(),
		}); err != nil {
			return err
		}

		out = Charge{Cost: cost, NewBalance: balance}
		return nil
	})
	if err != nil {
		return nil, s.wrap("failed to charge for generation", err)
	}
	return &out, nil
}

// Grant adds bonus credits to a user.
func (s *Service) Grant(ctx context.Context, userID string, amount int, description string) (int, error) {
	if amount <= 0 {
		return 0, apperr.Validation("amount", "amount must be positive")
	}
	if strings.TrimSpace(description) == "" {
		description = "Bonus credits"
	}

	var balance int
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		if _, err := tx.GetProfileForUpdate(ctx, userID); err != nil {
			return err
		}
		if err := tx.AppendTransaction(ctx, &models.CreditTransaction{
			UserID:      userID,
			Amount:      amount,
			Type:        models.TxBonus,
			Description: description,
			CreatedAt:   s.clock.Now(),
		}); err != nil {
			return err
		}
		var err error
		balance, err = tx.AdjustBalance(ctx, userID, amount)
		return err
	})
	if err != nil {
		return 0, s.wrap("failed to grant credits", err)
	}

	s.log.Infow("credits granted", "user_id", userID, "amount", amount)
	return balance, nil
}

type Report struct {
	UserID     string `json:"userId"`
	Balance    int    `json:"balance"`
	Sum        int    `json:"sum"`
	Consistent bool   `json:"consistent"`
}

// Verify compares the stored balance with the sum of the user's transactions.
func (s *Service) Verify(ctx context.Context, userID string) (*Report, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, s.wrap("failed to load profile", err)
	}
	sum, err := s.store.SumTransactions(ctx, userID)
	if err != nil {
		return nil, s.wrap("failed to sum transactions", err)
	}
	return &Report{
		UserID:     userID,
		Balance:    p.CreditsBalance,
		Sum:        sum,
		Consistent: sum == p.CreditsBalance,
	}, nil
}

// CreateCode registers a new redeem code.
func (s *Service) CreateCode(ctx context.Context, code string, credits, maxUses int, expiresAt *time.Time) (*models.RedeemCode, error) {
	code = NormalizeCode(code)
	switch {
	case code == "":
		return nil, apperr.Validation("code", "code is required")
	case credits <= 0:
		return nil, apperr.Validation("credits", "credits must be positive")
	case maxUses <= 0:
		return nil, apperr.Validation("maxUses", "max uses must be positive")
	}

	rc := &models.RedeemCode{
		Code:      code,
		Credits:   credits,
		MaxUses:   maxUses,
		Active:    true,
		ExpiresAt: expiresAt,
		CreatedAt: s.clock.Now(),
	}
	if err := s.store.CreateRedeemCode(ctx, rc); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return nil, apperr.Validation("code", fmt.Sprintf("code %s already exists", code))
		}
		return nil, apperr.Internal("failed to create code", err)
	}
	return rc, nil
}

// SeedWelcomeCode creates the welcome code unless it already exists.
func (s *Service) SeedWelcomeCode(ctx context.Context) error {
	_, err := s.CreateCode(ctx, WelcomeCode, welcomeCodeCredits, welcomeCodeUses, nil)
	if err != nil && apperr.Is(err, apperr.KindValidation) {
		return nil
	}
	return err
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func checkFunds(p *models.Profile, cost int) error {
	if p.IsPro() || p.CreditsBalance >= cost {
		return nil
	}
	return insufficient(p.CreditsBalance, cost)
}

func insufficient(balance, cost int) error {
	return apperr.Forbidden(fmt.Sprintf(
		"insufficient credits: this generation costs %d, your balance is %d (%d short)",
		cost, balance, cost-balance))
}

func featureLabel(task models.Task, usage Usage) string {
	if usage.FeatureID != "" {
		return usage.FeatureID
	}
	if task.AIFeatureID != "" {
		return task.AIFeatureID
	}
	return task.TaskID
}

// wrap passes domain errors through and turns everything else into an
// Internal error. A missing profile is a validation failure for the caller.
func (s *Service) wrap(msg string, err error) error {
	if _, ok := apperr.As(err); ok {
		return err
	}
	if errors.Is(err, models.ErrNotFound) {
		return apperr.Validation("profile", "profile not found")
	}
	s.log.Errorw(msg, "error", err)
	return apperr.Internal(msg, err)
}

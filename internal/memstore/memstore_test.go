package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growth-engine/internal/clock"
	"growth-engine/internal/ledger"
	"growth-engine/internal/models"
	"growth-engine/internal/profile"
	"growth-engine/internal/tasks"
)

var (
	_ ledger.Store       = (*Store)(nil)
	_ profile.Store      = (*Store)(nil)
	_ tasks.ProfileStore = (*Store)(nil)
	_ tasks.StatusStore  = (*Store)(nil)
)

func newStore() *Store {
	return New(clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestWithinTx_RollsBack(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	_, err := s.CreateProfileIfAbsent(ctx, &models.Profile{ID: "u1", CreditsBalance: 0})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.WithinTx(ctx, func(tx ledger.Tx) error {
		require.NoError(t, tx.AppendTransaction(ctx, &models.CreditTransaction{UserID: "u1", Amount: 5}))
		_, err := tx.AdjustBalance(ctx, "u1", 5)
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	p, err := s.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.CreditsBalance)
	sum, err := s.SumTransactions(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, sum)
}

func TestAdjustBalance_Floor(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	_, err := s.CreateProfileIfAbsent(ctx, &models.Profile{ID: "u1"})
	require.NoError(t, err)

	err = s.WithinTx(ctx, func(tx ledger.Tx) error {
		_, err := tx.AdjustBalance(ctx, "u1", -1)
		return err
	})
	assert.ErrorIs(t, err, models.ErrInsufficientBalance)
}

func TestRedeemUseMarker(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	code := &models.RedeemCode{Code: "X", Credits: 1, MaxUses: 1, Active: true}
	require.NoError(t, s.CreateRedeemCode(ctx, code))
	assert.ErrorIs(t, s.CreateRedeemCode(ctx, &models.RedeemCode{Code: "X"}), models.ErrDuplicate)

	err := s.WithinTx(ctx, func(tx ledger.Tx) error {
		ok, err := tx.InsertRedeemUse(ctx, code.ID, "u1")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = tx.InsertRedeemUse(ctx, code.ID, "u1")
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = tx.IncrementCodeUse(ctx, code.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = tx.IncrementCodeUse(ctx, code.ID)
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func TestProfileCopiesAreIsolated(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	_, err := s.CreateProfileIfAbsent(ctx, &models.Profile{ID: "u1"})
	require.NoError(t, err)
	_, err = s.SaveOnboarding(ctx, "u1", &models.Onboarding{Platform: []string{"IG"}}, models.DefaultProgram, 1)
	require.NoError(t, err)

	p, err := s.GetProfile(ctx, "u1")
	require.NoError(t, err)
	p.Onboarding.Platform[0] = "TT"

	again, err := s.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "IG", again.Onboarding.Platform[0])
}

func TestMoveProgram_Conditional(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	_, err := s.CreateProfileIfAbsent(ctx, &models.Profile{ID: "u1", CurrentProgram: models.ProgramTasks30D, CurrentDay: 31})
	require.NoError(t, err)

	ok, err := s.MoveProgram(ctx, "u1", models.ProgramTasks30D, 30, models.ProgramTasksPro60)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.MoveProgram(ctx, "u1", models.ProgramTasks30D, 31, models.ProgramTasksPro60)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = s.GetProfile(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growth-engine/internal/clock"
	"growth-engine/internal/ledger"
	"growth-engine/internal/memstore"
	"growth-engine/internal/models"
	"growth-engine/pkg/logger"
)

func newTestRoot(t *testing.T) (*memstore.Store, func(args ...string) (string, error)) {
	t.Helper()
	fc := clock.NewFake(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	store := memstore.New(fc)
	_, err := store.CreateProfileIfAbsent(context.Background(), &models.Profile{
		ID: "ana", Plan: models.PlanFree, CurrentProgram: models.DefaultProgram, CurrentDay: 1,
	})
	require.NoError(t, err)

	open := func(context.Context, bool) (*Env, error) {
		return &Env{Store: store, Ledger: ledger.NewService(store, fc, logger.Nop()), Close: func() {}}, nil
	}
	run := func(args ...string) (string, error) {
		buf := &bytes.Buffer{}
		cmd := NewRootCommandWith(open)
		cmd.SetOut(buf)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(args)
		err := cmd.Execute()
		return buf.String(), err
	}
	return store, run
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, path := range [][]string{
		{"migrate", "up"}, {"migrate", "down"}, {"codes", "create"},
		{"credits", "grant"}, {"credits", "history"}, {"ledger", "verify"},
	} {
		sub, _, err := cmd.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], sub.Name())
	}
}

func TestInvalidFormat(t *testing.T) {
	_, run := newTestRoot(t)
	_, err := run("--format", "yaml", "ledger", "verify", "ana")
	assert.Error(t, err)
}

func TestCreateCode(t *testing.T) {
	store, run := newTestRoot(t)

	out, err := run("codes", "create", "spring50", "--credits", "50", "--max-uses", "10", "--expires", "2026-06-01")
	require.NoError(t, err)
	assert.Contains(t, out, "Created SPRING50: 50 credits, 10 uses, expires 2026-06-01T00:00:00Z")

	code, err := store.GetRedeemCode(context.Background(), "SPRING50")
	require.NoError(t, err)
	assert.Equal(t, 10, code.MaxUses)

	_, err = run("codes", "create", "SPRING50")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = run("codes", "create", "X", "--expires", "next week")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGrantHistoryVerify(t *testing.T) {
	_, run := newTestRoot(t)

	out, err := run("credits", "grant", "ana", "25", "--reason", "support refund")
	require.NoError(t, err)
	assert.Contains(t, out, "balance 25")

	_, err = run("credits", "grant", "ana", "0")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = run("credits", "grant", "ghost", "5")
	assert.Error(t, err)

	out, err = run("credits", "history", "ana")
	require.NoError(t, err)
	assert.Contains(t, out, "BONUS")
	assert.Contains(t, out, "support refund")

	out, err = run("--format", "json", "ledger", "verify", "ana")
	require.NoError(t, err)
	var resp struct {
		Status string           `json:"status"`
		Data   []*ledger.Report `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 1)
	assert.True(t, resp.Data[0].Consistent)
	assert.Equal(t, 25, resp.Data[0].Sum)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(assert.AnError))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad")))
}

func TestParseExpiry(t *testing.T) {
	got, err := parseExpiry("")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = parseExpiry("2026-05-01T12:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC), *got)
}

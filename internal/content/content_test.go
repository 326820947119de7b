package content

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growth-engine/internal/apperr"
	"growth-engine/internal/catalog"
	"growth-engine/internal/clock"
	"growth-engine/internal/ledger"
	"growth-engine/internal/memstore"
	"growth-engine/internal/models"
	"growth-engine/pkg/logger"
)

type stubGenerator struct {
	calls  int
	prompt string
	err    error
	delay  time.Duration
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.calls++
	g.prompt = prompt
	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if g.err != nil {
		return "", g.err
	}
	return "generated: " + prompt, nil
}

func TestCompile(t *testing.T) {
	vars := map[string]string{"product": "candles", "audience": "  ", "tone": "warm"}

	assert.Equal(t, "Sell candles with a warm voice",
		Compile("Sell {product} with a {{tone}} voice", vars))
	assert.Equal(t, "Talk to {audience} about {{missing}}",
		Compile("Talk to {audience} about {{missing}}", vars))
	assert.Equal(t, "candles candles", Compile("{product} {{ product }}", vars))
	assert.Equal(t, `json {"a": 1}`, Compile(`json {"a": 1}`, vars))
	assert.Equal(t, "plain", Compile("plain", nil))
}

func TestVariables(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Variables("{a} {{b}} {a}"))
	assert.Empty(t, Variables("none"))
}

type fixture struct {
	gw     *Gateway
	gen    *stubGenerator
	ledger *ledger.Service
	store  *memstore.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fc := clock.NewFake(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	store := memstore.New(fc)
	led := ledger.NewService(store, fc, logger.Nop())

	src := catalog.NewStaticSource("test", map[string][][]string{
		models.ProgramTasks30D: {
			{"day", "task_id", "ai_prompt_template", "ai_feature_id", "credits_cost"},
			{"1", "CAPTION", "Write a caption about {topic}", "caption", "10"},
			{"1", "NOAI", "", "", "0"},
		},
		models.ProgramTasksPro60: {
			{"day", "task_id", "ai_prompt_template", "credits_cost"},
			{"3", "PRO-HOOK", "Hooks for {{niche}}", "2"},
		},
	})
	gen := &stubGenerator{}
	gw := NewGateway(catalog.NewCache(src), led, gen, time.Second, logger.Nop())

	for _, u := range []struct {
		id   string
		plan models.Plan
	}{{"free", models.PlanFree}, {"pro", models.PlanPro}} {
		_, err := store.CreateProfileIfAbsent(context.Background(), &models.Profile{
			ID: u.id, Plan: u.plan, CurrentProgram: models.DefaultProgram, CurrentDay: 1,
		})
		require.NoError(t, err)
	}
	return &fixture{gw: gw, gen: gen, ledger: led, store: store}
}

func TestGenerate_ChargesAfterOutput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.ledger.Grant(ctx, "free", 15, "")
	require.NoError(t, err)

	res, err := f.gw.Generate(ctx, "free", "CAPTION", map[string]string{"topic": "tea"})
	require.NoError(t, err)
	assert.Equal(t, "generated: Write a caption about tea", res.Output)
	assert.Equal(t, 10, res.CreditsDeducted)
	assert.Equal(t, 5, res.NewBalance)

	usages, err := f.store.ListAIUsages(ctx, "free")
	require.NoError(t, err)
	require.Len(t, usages, 1)
	assert.Equal(t, "caption", usages[0].FeatureID)
	assert.Equal(t, map[string]string{"topic": "tea"}, usages[0].InputData)
}

func TestGenerate_FindsTaskInAnyTab(t *testing.T) {
	f := newFixture(t)
	res, err := f.gw.Generate(context.Background(), "pro", "PRO-HOOK", nil)
	require.NoError(t, err)
	assert.Equal(t, "generated: Hooks for {{niche}}", res.Output)
	assert.Equal(t, 0, res.CreditsDeducted)
}

func TestGenerate_NotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.gw.Generate(ctx, "pro", "MISSING", nil)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.gw.Generate(ctx, "pro", "NOAI", nil)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.gw.Generate(ctx, "pro", "", nil)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, 0, f.gen.calls)
}

func TestGenerate_InsufficientCreditsSkipsGenerator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.ledger.Grant(ctx, "free", 5, "")
	require.NoError(t, err)

	_, err = f.gw.Generate(ctx, "free", "CAPTION", nil)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	assert.Equal(t, 0, f.gen.calls)

	p, err := f.store.GetProfile(ctx, "free")
	require.NoError(t, err)
	assert.Equal(t, 5, p.CreditsBalance)
}

func TestGenerate_GeneratorFailureLeavesLedgerAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.ledger.Grant(ctx, "free", 20, "")
	require.NoError(t, err)

	f.gen.err = errors.New("boom")
	_, err = f.gw.Generate(ctx, "free", "CAPTION", nil)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindInternal, e.Kind)
	assert.Equal(t, "generation failed", e.Message)

	txs, err := f.store.ListTransactions(ctx, "free")
	require.NoError(t, err)
	assert.Len(t, txs, 1)
	usages, err := f.store.ListAIUsages(ctx, "free")
	require.NoError(t, err)
	assert.Empty(t, usages)
}

func TestGenerate_TimeoutIsUnavailable(t *testing.T) {
	f := newFixture(t)
	f.gw.timeout = 20 * time.Millisecond
	f.gen.delay = time.Second

	_, err := f.gw.Generate(context.Background(), "pro", "CAPTION", nil)
	assert.True(t, apperr.Is(err, apperr.KindUnavailable))
}

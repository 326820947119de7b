package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growth-engine/config"
	"growth-engine/internal/auth"
	"growth-engine/internal/gpt"
	"growth-engine/internal/ledger"
	"growth-engine/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func localConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Store.Driver = config.StoreDriverMemory
	cfg.Auth.Disabled = true
	cfg.Sheets.CacheTTL = time.Minute
	cfg.Sheets.Timeout = time.Second
	cfg.GPT.Timeout = time.Second
	return cfg
}

func TestNew_LocalFallbacks(t *testing.T) {
	a, err := New(context.Background(), localConfig(), logger.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, gpt.Mock{}, a.newGenerator())

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/today", nil)
	req.Header.Set(auth.DevUserHeader, "ana")
	resp := httptest.NewRecorder()
	a.Router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), "MOCK-1")

	res, err := a.Ledger.Redeem(context.Background(), "ana", ledger.WelcomeCode)
	require.NoError(t, err)
	assert.Equal(t, 100, res.NewBalance)

	req = httptest.NewRequest(http.MethodPost, "/api/pro/checkout", nil)
	resp = httptest.NewRecorder()
	a.Router.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}

func TestNew_RedisCatalogStore(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := localConfig()
	cfg.Redis.URL = "redis://" + mr.Addr()

	a, err := New(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	defer a.Close()

	tasks, err := a.Catalog.Fetch(context.Background(), "TASKS_30D")
	require.NoError(t, err)
	assert.NotEmpty(t, tasks)
	assert.NotEmpty(t, mr.Keys())
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := localConfig()
	cfg.Store.Driver = "sqlite"
	_, err := New(context.Background(), cfg, logger.Nop())
	assert.Error(t, err)

	cfg = localConfig()
	cfg.Auth.Disabled = false
	_, err = New(context.Background(), cfg, logger.Nop())
	assert.Error(t, err)
}

package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("PORT", "9090")
	t.Setenv("GOOGLE_SHEETS_SPREADSHEET_ID", "sheet-123")
	t.Setenv("SHEETS_PRIVATE_KEY", `-----BEGIN-----\nabc\n-----END-----`)
	t.Setenv("SHEETS_CACHE_TTL", "90s")
	t.Setenv("AUTH_DISABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreDriverMemory, cfg.Store.Driver)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "sheet-123", cfg.Sheets.SpreadsheetID)
	assert.Equal(t, "-----BEGIN-----\nabc\n-----END-----", cfg.Sheets.PrivateKey)
	assert.Equal(t, 90*time.Second, cfg.Sheets.CacheTTL)
	assert.Equal(t, "gpt-4o", cfg.GPT.Model)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.Auth.Disabled)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.Store.Driver = "mongo"
	cfg.Sheets.CacheTTL = time.Minute
	assert.Error(t, cfg.Validate())

	cfg.Store.Driver = StoreDriverMemory
	assert.Error(t, cfg.Validate(), "auth must be configured or disabled")

	cfg.Auth.Issuer = "https://securetoken.google.com/demo"
	cfg.Auth.Audience = "demo"
	assert.NoError(t, cfg.Validate())

	cfg.Sheets.CacheTTL = 0
	assert.Error(t, cfg.Validate())
}

// config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	Server struct {
		Port           string
		AllowedOrigins []string
		PublicURL      string
	}
	Store struct {
		Driver string
	}
	DB struct {
		Host           string
		Port           string
		User           string
		Password       string
		DBName         string
		SSLMode        string
		MaxOpenConns   int
		MaxIdleConns   int
		ConnLifetime   time.Duration
		MigrateOnStart bool
	}
	Redis struct {
		URL string
	}
	Sheets struct {
		SpreadsheetID string
		ClientEmail   string
		PrivateKey    string
		CacheTTL      time.Duration
		Timeout       time.Duration
	}
	Auth struct {
		Issuer   string
		Audience string
		JWKSURL  string
		Disabled bool
	}
	GPT struct {
		APIKey    string
		Model     string
		MaxTokens int
		Timeout   time.Duration
	}
	Stripe struct {
		SecretKey  string
		WebhookKey string
		ProductID  string
		PriceID    string
	}
	Email struct {
		ResendAPIKey string
		From         string
	}
	Telegram struct {
		Token       string
		AdminChatID int64
	}
	Log struct {
		Level       string
		Development bool
	}
	ShutdownTimeout time.Duration
}

// envBindings maps config keys to the environment variables that may set them,
// in priority order. The second names are the ones the deployed functions
// already use.
var envBindings = map[string][]string{
	"Server.Port":           {"SERVER_PORT", "PORT"},
	"Server.AllowedOrigins": {"SERVER_ALLOWED_ORIGINS"},
	"Server.PublicURL":      {"SERVER_PUBLIC_URL"},
	"Store.Driver":          {"STORE_DRIVER"},
	"DB.Host":               {"DB_HOST"},
	"DB.Port":               {"DB_PORT"},
	"DB.User":               {"DB_USER"},
	"DB.Password":           {"DB_PASSWORD"},
	"DB.DBName":             {"DB_NAME"},
	"DB.SSLMode":            {"DB_SSL_MODE"},
	"DB.MaxOpenConns":       {"DB_MAX_OPEN_CONNS"},
	"DB.MaxIdleConns":       {"DB_MAX_IDLE_CONNS"},
	"DB.ConnLifetime":       {"DB_CONN_LIFETIME"},
	"DB.MigrateOnStart":     {"DB_MIGRATE_ON_START"},
	"Redis.URL":             {"REDIS_URL"},
	"Sheets.SpreadsheetID":  {"SHEETS_SPREADSHEET_ID", "GOOGLE_SHEETS_SPREADSHEET_ID"},
	"Sheets.ClientEmail":    {"SHEETS_CLIENT_EMAIL", "GOOGLE_SERVICE_ACCOUNT_EMAIL"},
	"Sheets.PrivateKey":     {"SHEETS_PRIVATE_KEY", "GOOGLE_SERVICE_ACCOUNT_PRIVATE_KEY"},
	"Sheets.CacheTTL":       {"SHEETS_CACHE_TTL"},
	"Sheets.Timeout":        {"SHEETS_TIMEOUT"},
	"Auth.Issuer":           {"AUTH_ISSUER"},
	"Auth.Audience":         {"AUTH_AUDIENCE"},
	"Auth.JWKSURL":          {"AUTH_JWKS_URL"},
	"Auth.Disabled":         {"AUTH_DISABLED"},
	"GPT.APIKey":            {"GPT_API_KEY", "OPENAI_API_KEY"},
	"GPT.Model":             {"GPT_MODEL"},
	"GPT.MaxTokens":         {"GPT_MAX_TOKENS"},
	"GPT.Timeout":           {"GPT_TIMEOUT"},
	"Stripe.SecretKey":      {"STRIPE_SECRET_KEY"},
	"Stripe.WebhookKey":     {"STRIPE_WEBHOOK_KEY"},
	"Stripe.ProductID":      {"STRIPE_PRODUCT_ID"},
	"Stripe.PriceID":        {"STRIPE_PRICE_ID"},
	"Email.ResendAPIKey":    {"RESEND_API_KEY"},
	"Email.From":            {"EMAIL_FROM"},
	"Telegram.Token":        {"TELEGRAM_TOKEN"},
	"Telegram.AdminChatID":  {"TELEGRAM_ADMIN_CHAT_ID"},
	"Log.Level":             {"LOG_LEVEL"},
	"Log.Development":       {"LOG_DEVELOPMENT"},
	"ShutdownTimeout":       {"SHUTDOWN_TIMEOUT"},
}

// Load loads the configuration
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")
	v.AddConfigPath("$HOME/.growth-engine")

	setDefaults(v)

	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("error binding env for %s: %w", key, err)
		}
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Process any ${ENV_VAR} syntax in the config values
	for _, key := range v.AllKeys() {
		value := v.GetString(key)
		if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
			envVar := strings.TrimPrefix(strings.TrimSuffix(value, "}"), "${")
			if envValue := os.Getenv(envVar); envValue != "" {
				v.Set(key, envValue)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	cfg.Sheets.PrivateKey = strings.ReplaceAll(cfg.Sheets.PrivateKey, `\n`, "\n")

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ShutdownTimeout", 10*time.Second)
	v.SetDefault("Server.Port", "8080")
	v.SetDefault("Server.AllowedOrigins", []string{"http://localhost:5173"})
	v.SetDefault("Server.PublicURL", "http://localhost:5173")
	v.SetDefault("Store.Driver", StoreDriverPostgres)
	v.SetDefault("DB.Host", "localhost")
	v.SetDefault("DB.Port", "5432")
	v.SetDefault("DB.User", "postgres")
	v.SetDefault("DB.Password", "postgres")
	v.SetDefault("DB.DBName", "growth_engine")
	v.SetDefault("DB.SSLMode", "disable")
	v.SetDefault("DB.MaxOpenConns", 20)
	v.SetDefault("DB.MaxIdleConns", 2)
	v.SetDefault("DB.ConnLifetime", 5*time.Minute)
	v.SetDefault("DB.MigrateOnStart", true)
	v.SetDefault("Sheets.CacheTTL", 300*time.Second)
	v.SetDefault("Sheets.Timeout", 10*time.Second)
	v.SetDefault("GPT.Model", "gpt-4o")
	v.SetDefault("GPT.MaxTokens", 1500)
	v.SetDefault("GPT.Timeout", 60*time.Second)
	v.SetDefault("Email.From", "Growth Engine <onboarding@resend.dev>")
	v.SetDefault("Log.Level", "info")
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreDriverPostgres:
		if c.DB.Host == "" || c.DB.DBName == "" {
			return errors.New("database host and name are required for the postgres store")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if !c.Auth.Disabled && (c.Auth.Issuer == "" || c.Auth.Audience == "") {
		return errors.New("auth issuer and audience are required unless auth is disabled")
	}
	if c.Sheets.CacheTTL <= 0 {
		return errors.New("sheets cache TTL must be positive")
	}
	return nil
}

// SheetsConfigured reports whether the catalog can be read from Google Sheets.
func (c *Config) SheetsConfigured() bool {
	return c.Sheets.SpreadsheetID != "" && c.Sheets.ClientEmail != "" && c.Sheets.PrivateKey != ""
}

// StripeConfigured reports whether checkout and webhooks can be served.
func (c *Config) StripeConfigured() bool {
	return c.Stripe.SecretKey != "" && c.Stripe.PriceID != ""
}

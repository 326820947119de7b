// Package app builds the engine from configuration. The local server, the
// Lambda handler and the admin CLI all start here.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"growth-engine/config"
	"growth-engine/internal/auth"
	"growth-engine/internal/catalog"
	"growth-engine/internal/clock"
	"growth-engine/internal/content"
	"growth-engine/internal/gpt"
	"growth-engine/internal/ledger"
	"growth-engine/internal/notify"
	"growth-engine/internal/payment"
	"growth-engine/internal/profile"
	"growth-engine/internal/server"
	"growth-engine/internal/tasks"
	"growth-engine/pkg/logger"
)

type App struct {
	Config *config.Config
	Logger *logger.Logger

	Store    Store
	Catalog  *catalog.Cache
	Profiles *profile.Service
	Tasks    *tasks.Service
	Ledger   *ledger.Service
	Content  *content.Gateway
	Router   *gin.Engine

	closers []func()
}

// New wires every component. Missing optional credentials fall back to
// local stand-ins with a warning.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &App{Config: cfg, Logger: log}
	clk := clock.System{}

	store, closeStore, err := OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.closers = append(a.closers, closeStore)

	cache, err := a.newCatalog(ctx, clk)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Catalog = cache

	notifier := a.newNotifier()

	a.Profiles = profile.NewService(store, notifier, clk, log)
	a.Tasks = tasks.NewService(cache, store, store, notifier, clk, log)
	a.Ledger = ledger.NewService(store, clk, log)
	a.Content = content.NewGateway(cache, a.Ledger, a.newGenerator(), cfg.GPT.Timeout, log)

	verifier, err := a.newVerifier(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	var payments server.Payments
	if cfg.StripeConfigured() || cfg.Stripe.WebhookKey != "" {
		payments = payment.NewStripeClient(payment.Config{
			SecretKey:  cfg.Stripe.SecretKey,
			WebhookKey: cfg.Stripe.WebhookKey,
			ProductID:  cfg.Stripe.ProductID,
			PriceID:    cfg.Stripe.PriceID,
		})
	} else {
		log.Warnw("Stripe is not configured; checkout and webhooks are disabled")
	}

	a.Router = server.NewRouter(server.Deps{
		Profiles:       a.Profiles,
		Tasks:          a.Tasks,
		Ledger:         a.Ledger,
		Content:        a.Content,
		Payments:       payments,
		Verifier:       verifier,
		AuthDisabled:   cfg.Auth.Disabled,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		PublicURL:      cfg.Server.PublicURL,
		Logger:         log,
	})

	return a, nil
}

func (a *App) newCatalog(ctx context.Context, clk clock.Clock) (*catalog.Cache, error) {
	cfg := a.Config

	var source catalog.Source
	if cfg.SheetsConfigured() {
		sheets, err := catalog.NewSheetsSource(ctx, cfg.Sheets.SpreadsheetID, cfg.Sheets.ClientEmail, cfg.Sheets.PrivateKey)
		if err != nil {
			return nil, err
		}
		source = sheets
	} else {
		a.Logger.Warnw("Google Sheets credentials missing; serving the mock catalog")
		source = catalog.MockSource()
	}

	opts := []catalog.Option{
		catalog.WithClock(clk),
		catalog.WithTTL(cfg.Sheets.CacheTTL),
		catalog.WithTimeout(cfg.Sheets.Timeout),
		catalog.WithLogger(a.Logger),
	}
	if cfg.Redis.URL != "" {
		rs, err := catalog.NewRedisStore(cfg.Redis.URL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = rs.Close() })
		opts = append(opts, catalog.WithStore(rs))
	}

	return catalog.NewCache(source, opts...), nil
}

func (a *App) newGenerator() content.Generator {
	cfg := a.Config.GPT
	if cfg.APIKey == "" {
		a.Logger.Warnw("GPT API key missing; generations return mock output")
		return gpt.Mock{}
	}
	return gpt.NewClient(cfg.APIKey).WithModel(cfg.Model).WithMaxTokens(cfg.MaxTokens)
}

func (a *App) newVerifier(ctx context.Context) (auth.TokenVerifier, error) {
	cfg := a.Config.Auth
	if cfg.Disabled {
		a.Logger.Warnw("authentication is disabled; requests act as the X-Dev-User header")
		return nil, nil
	}
	v, err := auth.NewVerifier(ctx, cfg.Issuer, cfg.Audience, cfg.JWKSURL)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (a *App) newNotifier() notify.Notifier {
	cfg := a.Config
	notifiers := notify.Multi{notify.NewLog(a.Logger)}

	if cfg.Email.ResendAPIKey != "" {
		notifiers = append(notifiers, notify.NewEmail(cfg.Email.ResendAPIKey, cfg.Email.From, cfg.Server.PublicURL))
	}
	if cfg.Telegram.Token != "" && cfg.Telegram.AdminChatID != 0 {
		tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.AdminChatID, a.Logger)
		if err != nil {
			a.Logger.Warnw("Telegram alerts disabled", "error", err)
		} else {
			notifiers = append(notifiers, tg)
		}
	}
	return notifiers
}

// Close releases the store and cache connections.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

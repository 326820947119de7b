package app

import (
	"context"
	"fmt"
	"time"

	"growth-engine/config"
	"growth-engine/internal/clock"
	"growth-engine/internal/db"
	"growth-engine/internal/ledger"
	"growth-engine/internal/memstore"
	"growth-engine/internal/models"
	"growth-engine/internal/profile"
	"growth-engine/internal/tasks"
	"growth-engine/pkg/logger"
)

// Store is everything the services need from persistence. Both
// *memstore.Store and *db.PostgresDB implement it.
type Store interface {
	tasks.ProfileStore
	tasks.StatusStore
	profile.Store
	ledger.Store
	ListTransactions(ctx context.Context, userID string) ([]models.CreditTransaction, error)
}

var (
	_ Store = (*memstore.Store)(nil)
	_ Store = (*db.PostgresDB)(nil)
)

const connectAttempts = 5

// OpenStore opens the configured store. For postgres it retries the
// connection and applies migrations when enabled. The returned func releases
// the store.
func OpenStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (Store, func(), error) {
	if cfg.Store.Driver == config.StoreDriverMemory {
		log.Warnw("using in-memory store; data is lost on restart")
		store := memstore.New(clock.System{})
		seed := ledger.NewService(store, clock.System{}, log)
		if err := seed.SeedWelcomeCode(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to seed welcome code: %w", err)
		}
		return store, func() {}, nil
	}

	database, err := ConnectPostgres(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	if cfg.DB.MigrateOnStart {
		if err := database.RunMigrations(log); err != nil {
			database.Close()
			return nil, nil, err
		}
	}
	return database, database.Close, nil
}

// ConnectPostgres connects with the configured settings, retrying with a
// linear backoff.
func ConnectPostgres(ctx context.Context, cfg *config.Config, log *logger.Logger) (*db.PostgresDB, error) {
	dbCfg := db.Config{
		Host:         cfg.DB.Host,
		Port:         cfg.DB.Port,
		User:         cfg.DB.User,
		Password:     cfg.DB.Password,
		DBName:       cfg.DB.DBName,
		SSLMode:      cfg.DB.SSLMode,
		MaxOpenConns: cfg.DB.MaxOpenConns,
		MaxIdleConns: cfg.DB.MaxIdleConns,
		ConnLifetime: cfg.DB.ConnLifetime,
	}

	var (
		database *db.PostgresDB
		err      error
	)
	for i := 0; i < connectAttempts; i++ {
		database, err = db.NewPostgresDB(dbCfg)
		if err == nil {
			return database, nil
		}
		log.Warnw("Failed to connect to database, retrying...", "attempt", i+1, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(i+1) * time.Second):
		}
	}
	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", connectAttempts, err)
}

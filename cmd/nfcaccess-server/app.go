package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/nfcaccess/server/internal/config"
	"github.com/nfcaccess/server/internal/db"
	"github.com/nfcaccess/server/internal/logging"
	"github.com/nfcaccess/server/internal/nfcaccess/service"
	"github.com/nfcaccess/server/internal/nfcaccess/store"
	"github.com/nfcaccess/server/internal/nfcaccess/store/memory"
	"github.com/nfcaccess/server/internal/nfcaccess/store/sqlite"
	"github.com/nfcaccess/server/internal/nfcaccess/types"
)

// app is the wired service graph shared by serve and the admin commands.
type app struct {
	cfg    config.Config
	logger zerolog.Logger
	store  store.Store

	directory *service.Directory
	audit     *service.AuditLog
	pairing   *service.PairingEngine
	gateway   *service.AccessGateway

	closers []func()
}

func openApp(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, cfg.Env),
	}

	switch cfg.Store {
	case "memory":
		a.store = memory.New()
	default:
		sqlDB, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
		if err != nil {
			return nil, err
		}
		writer := db.NewWorker(sqlDB)
		a.closers = append(a.closers, func() { _ = sqlDB.Close() }, writer.Close)
		a.store = sqlite.New(sqlDB, writer)

		if cfg.IsDev() {
			if err := db.SeedDev(ctx, sqlDB); err != nil {
				a.Close()
				return nil, err
			}
		}
	}

	a.directory = service.NewDirectory(a.store, service.SystemClock)
	a.audit = service.NewAuditLog(a.store, service.SystemClock)
	a.pairing = service.NewPairingEngine(a.store, a.audit, service.PairingConfig{
		TTL:       cfg.PairTTL,
		Exclusive: cfg.PairExclusive,
	}, service.SystemClock)
	a.gateway = service.NewAccessGateway(a.store, a.audit, service.SystemClock)

	if cfg.Store == "memory" && cfg.IsDev() {
		if err := seedMemory(ctx, a.directory); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.logger.Info().
		Str("store", cfg.Store).
		Str("env", cfg.Env).
		Dur("pair_ttl", cfg.PairTTL).
		Bool("pair_exclusive", cfg.PairExclusive).
		Msg("store ready")
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// seedMemory mirrors db.SeedDev for the in-memory store.
func seedMemory(ctx context.Context, dir *service.Directory) error {
	_, err := dir.Create(ctx, types.CreateUserRequest{
		Name:       "Demo User",
		NationalID: "12345678900",
		Email:      "demo@example.com",
		Phone:      "+55 48 99999-0000",
	})
	if err != nil && !errors.Is(err, service.ErrDuplicateNationalID) {
		return fmt.Errorf("seed demo user: %w", err)
	}
	return nil
}

// openDB opens and migrates the sqlite database without wiring services.
func openDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if cfg.Store != "sqlite" {
		return nil, fmt.Errorf("store %q has no schema to migrate", cfg.Store)
	}
	return db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
}

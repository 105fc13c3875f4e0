package main

import (
	"fmt"
	"log/slog"

	"fuellog/internal/adapter/memory"
	"fuellog/internal/adapter/postgres"
	"fuellog/internal/adapter/sqlite"
	"fuellog/internal/config"
	"fuellog/internal/domain"
	applog "fuellog/internal/log"
)

// store is everything a backend provides.
type store struct {
	fuel     domain.FuelRepository
	users    domain.UserRepository
	sessions domain.SessionRepository
	close    func() error
}

func openStore(cfg *config.Config, logger *slog.Logger) (*store, error) {
	logger = applog.WithComponent(logger, applog.ComponentStorage)

	switch cfg.DataBackend {
	case "postgres":
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		logger.Info("using postgres backend")
		return &store{fuel: db, users: db, sessions: postgres.NewSessionRepo(db), close: db.Close}, nil

	case "sqlite":
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		logger.Info("using sqlite backend", "path", cfg.SQLitePath)
		return &store{fuel: db, users: db, sessions: sqlite.NewSessionRepo(db), close: db.Close}, nil

	case "memory":
		db := memory.New()
		logger.Warn("using in-memory backend, records are lost on exit")
		return &store{fuel: db, users: db, sessions: db.NewSessionRepo(), close: func() error { return nil }}, nil
	}
	return nil, fmt.Errorf("unknown data backend %q", cfg.DataBackend)
}

func statsPolicy(cfg *config.Config) domain.StatsPolicy {
	return domain.StatsPolicy{WindowDays: cfg.WindowDays, DropFirstTrendPoint: cfg.TrendDropFirst}
}

package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/orlandoalexander/educatch/internal/config"
	"github.com/orlandoalexander/educatch/internal/session"
	"github.com/orlandoalexander/educatch/internal/store"
	"github.com/orlandoalexander/educatch/internal/store/memory"
	"github.com/orlandoalexander/educatch/internal/store/postgres"
)

// Storage выбранное при старте хранилище
type Storage struct {
	Provider store.Provider
	// Sessions не nil только в демо-режиме
	Sessions *session.Manager
	pool     *pgxpool.Pool
}

// OpenStorage postgres с миграциями либо демо-сессии в памяти
func OpenStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Storage, error) {
	if cfg.Demo() {
		seed, err := memory.LoadSeed(cfg.DemoSeedPath)
		if err != nil {
			return nil, err
		}
		sessions := session.NewManager(seed, logger)
		logger.Info("Using in-memory demo storage", zap.Duration("session_ttl", cfg.DemoSessionTTL))
		return &Storage{Provider: sessions, Sessions: sessions}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	migrator, err := NewMigrator(pool, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	defer migrator.Close()
	if err := migrator.Run(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("Using postgres storage")
	return &Storage{Provider: store.Static{S: postgres.NewStore(pool, logger)}, pool: pool}, nil
}

func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

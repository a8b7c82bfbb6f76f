// Package memkit provides a top-level convenience entry point for
// wiring the agent memory engine with minimal boilerplate.
//
// Usage:
//
//	import "github.com/seedchat/memkit"
//
//	engine, err := memkit.Open(config.Default(), logger)
//	created := engine.ProcessMessage(ctx, agentID, msg, convID)
//
// Applications that need a custom store or cache should compose
// memory.NewUseCase directly.
package memkit

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/seedchat/memkit/budget"
	"github.com/seedchat/memkit/config"
	"github.com/seedchat/memkit/internal/cache"
	"github.com/seedchat/memkit/memory"
	"github.com/seedchat/memkit/store"
)

// Open builds a memory.UseCase from a configuration: it connects the
// configured store backend, attaches the redis cache when enabled, and
// wires the context budget allocator.
func Open(cfg config.Config, logger *zap.Logger) (*memory.UseCase, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	st, err := openStore(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	opts := []memory.Option{
		memory.WithAllocator(budget.NewAllocator(cfg.Budget, nil, logger)),
	}

	if cfg.Cache.Enabled {
		ctxCache, err := cache.New(cfg.Cache.Config, logger)
		if err != nil {
			return nil, fmt.Errorf("open context cache: %w", err)
		}
		opts = append(opts, memory.WithCache(ctxCache))
	}

	return memory.NewUseCase(st, cfg.Memory, logger, opts...), nil
}

func openStore(cfg config.DatabaseConfig, logger *zap.Logger) (memory.Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		db, err := gorm.Open(sqlite.Open(cfg.DSN), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return store.NewGormStore(db, logger)
	case "postgres":
		db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return store.NewGormStore(db, logger)
	case "mongodb":
		return store.NewMongoStore(store.MongoConfig{URI: cfg.DSN, Database: "memkit"}, logger)
	case "memory":
		return store.NewInMemoryStore(store.InMemoryConfig{}, logger), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

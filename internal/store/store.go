// Package store opens the configured storage backend.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/baharkarakas/chainspend/internal/config"
	"github.com/baharkarakas/chainspend/internal/db"
	repo "github.com/baharkarakas/chainspend/internal/repository"
	"github.com/baharkarakas/chainspend/internal/repository/memory"
	"github.com/baharkarakas/chainspend/internal/repository/mongo"
	"github.com/baharkarakas/chainspend/internal/repository/postgres"
	"github.com/baharkarakas/chainspend/internal/repository/sqlite"
)

// Open returns the backend named by cfg.StoreDriver. The choice is fixed for the process lifetime.
func Open(ctx context.Context, cfg config.Config, log *slog.Logger) (repo.Store, error) {
	switch cfg.StoreDriver {
	case "", "memory":
		log.Info("using in-memory store")
		return memory.New(), nil

	case "postgres":
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return repo.Store{}, fmt.Errorf("db connect: %w", err)
		}
		if cfg.Migrate {
			if err := db.RunMigrations(ctx, pool); err != nil {
				pool.Close()
				return repo.Store{}, fmt.Errorf("migrations: %w", err)
			}
		}
		log.Info("using postgres store")
		return postgres.NewRepositories(pool), nil

	case "sqlite":
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return repo.Store{}, err
		}
		log.Info("using sqlite store", "path", cfg.SQLitePath)
		return s, nil

	case "mongo", "mongodb":
		s, err := mongo.Open(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return repo.Store{}, err
		}
		log.Info("using mongo store", "db", cfg.MongoDB)
		return s, nil
	}
	return repo.Store{}, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}

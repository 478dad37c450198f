package service

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"englishdrills/internal/config"
	"englishdrills/internal/database"
	"englishdrills/internal/logger"
	"englishdrills/internal/repository"
)

// Store is the configured snapshot store together with its connection
type Store struct {
	SnapshotStore
	// Kind names the backend: sqlite, postgres, mysql or redis
	Kind  string
	Ping  func(ctx context.Context) error
	Close func() error
}

// OpenStore connects to the snapshot backend selected by cfg. SQL backends
// are migrated before use.
func OpenStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Store, error) {
	if cfg.SnapshotStore == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		log.Info("Snapshot store connected", "kind", "redis", "addr", cfg.RedisAddr, "ttl", cfg.SnapshotTTL)
		return &Store{
			SnapshotStore: repository.NewRedisSnapshotStore(client, cfg.SnapshotTTL),
			Kind:          "redis",
			Ping:          func(ctx context.Context) error { return client.Ping(ctx).Err() },
			Close:         client.Close,
		}, nil
	}

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.RunMigrations(ctx, log); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("Snapshot store connected", "kind", db.Dialect.Name())
	return &Store{
		SnapshotStore: repository.NewSQLSnapshotStore(db),
		Kind:          db.Dialect.Name(),
		Ping:          db.PingContext,
		Close:         db.Close,
	}, nil
}

// Package backend connects the record store, object storage and change feed
// that every photo flow depends on.
package backend

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/photoalbum/service/internal/apperr"
	"github.com/photoalbum/service/internal/config"
	"github.com/photoalbum/service/internal/db"
	"github.com/photoalbum/service/internal/post"
	"github.com/photoalbum/service/internal/storage"
)

// Backend bundles the configured remote services.
type Backend struct {
	Pool    *pgxpool.Pool
	Objects *storage.CachedStorage
	Posts   *post.Repository
	Feed    *post.Feed
}

// Configure connects to Postgres, applies migrations, prepares the photo
// bucket and builds the repository and change feed. It is called once at
// startup; every failure is a configuration error carrying the alert shown
// when the app cannot reach its backend.
func Configure(ctx context.Context, cfg *config.Config) (*Backend, error) {
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("backend: could not connect to database", "error", err)
		return nil, apperr.Configuration(err)
	}

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		pool.Close()
		slog.Error("backend: could not migrate database", "error", err)
		return nil, apperr.Configuration(err)
	}

	minioStore, err := storage.NewMinioStorage(ctx, storage.MinioOptions{
		Endpoint:   cfg.StorageEndpoint,
		AccessKey:  cfg.StorageAccessKey,
		SecretKey:  cfg.StorageSecretKey,
		Bucket:     cfg.StorageBucket,
		PublicBase: cfg.StoragePublicBase,
		UseSSL:     cfg.StorageUseSSL,
	})
	if err != nil {
		pool.Close()
		slog.Error("backend: could not initialise object storage", "error", err)
		return nil, apperr.Configuration(err)
	}

	objects, err := storage.NewCachedStorage(minioStore, cfg.ObjectCacheSize)
	if err != nil {
		pool.Close()
		return nil, apperr.Configuration(err)
	}

	slog.Info("backend: configured", "bucket", cfg.StorageBucket)
	return &Backend{
		Pool:    pool,
		Objects: objects,
		Posts:   post.NewRepository(pool),
		Feed:    post.NewFeed(pool),
	}, nil
}

// Close releases the database pool.
func (b *Backend) Close() {
	b.Pool.Close()
}

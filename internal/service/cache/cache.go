package cache

import (
	"context"
	"fmt"

	domrepo "PriceCast/internal/domain/repository"
	pkgcache "PriceCast/pkg/cache"
	"PriceCast/pkg/config"
	"PriceCast/pkg/logger"
)

var (
	_ domrepo.UploadStore = (*pkgcache.MemoryStore)(nil)
	_ domrepo.UploadStore = (*pkgcache.RedisStore)(nil)
)

// NewUploadStore builds the session upload store selected by session.store.
func NewUploadStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (domrepo.UploadStore, error) {
	switch cfg.Session.Store {
	case "redis":
		s, err := pkgcache.NewRedisStore(ctx,
			pkgcache.WithRedisAddr(cfg.Redis.Addr),
			pkgcache.WithRedisPassword(cfg.Redis.Password),
			pkgcache.WithRedisDB(cfg.Redis.DB),
			pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
			pkgcache.WithRedisTTL(cfg.Session.TTL),
		)
		if err != nil {
			return nil, fmt.Errorf("redis upload store: %w", err)
		}
		log.Info("upload store ready", logger.String("store", "redis"), logger.String("addr", cfg.Redis.Addr))
		return s, nil
	case "memory", "":
		log.Info("upload store ready",
			logger.String("store", "memory"),
			logger.Int("max_entries", cfg.Session.MaxEntries),
			logger.Duration("ttl", cfg.Session.TTL),
		)
		return pkgcache.NewMemoryStore(
			pkgcache.WithMemoryMaxSize(cfg.Session.MaxEntries),
			pkgcache.WithMemoryTTL(cfg.Session.TTL),
		), nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Session.Store)
	}
}

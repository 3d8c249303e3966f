package session

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stemsi/learning-portal/internal/config"
)

// Open builds the store selected by cfg.SessionStore. The returned close
// func releases the Redis connection, if any.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (Store, func(), error) {
	switch cfg.SessionStore {
	case config.SessionStoreFile, "":
		log.Info().Str("path", cfg.SessionFile).Msg("Using file session store")
		return NewFileStore(cfg.SessionFile), func() {}, nil
	case config.SessionStoreRedis:
		rdb, err := DialRedis(ctx, cfg.RedisURL, log)
		if err != nil {
			return nil, nil, err
		}
		return NewRedisStore(rdb, cfg.SessionPrefix), func() { _ = rdb.Close() }, nil
	case config.SessionStoreMemory:
		log.Warn().Msg("Using in-memory session store; sessions end with the process")
		return NewMemoryStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown session store %q", cfg.SessionStore)
	}
}

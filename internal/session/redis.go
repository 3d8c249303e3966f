package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/learning-portal/internal/config"
)

// newLoginTTL bounds how long an unconsumed fresh-login flag survives.
const newLoginTTL = 12 * time.Hour

// DialRedis creates and validates a Redis client connection.
func DialRedis(ctx context.Context, redisURL string, log zerolog.Logger) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	log.Info().
		Str("addr", opt.Addr).
		Int("db", opt.DB).
		Msg("Redis session store connected")

	return rdb, nil
}

// RedisStore keeps the session in Redis under a key prefix.
type RedisStore struct {
	rdb    redis.Cmdable
	prefix string
}

// NewRedisStore creates a RedisStore. prefix namespaces every key.
func NewRedisStore(rdb redis.Cmdable, prefix string) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) get(ctx context.Context, key string) (string, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, nil
}

func (s *RedisStore) Tokens(ctx context.Context) (Tokens, error) {
	vals, err := s.rdb.MGet(ctx,
		config.SessionKey.AccessToken(s.prefix),
		config.SessionKey.RefreshToken(s.prefix),
	).Result()
	if err != nil {
		return Tokens{}, fmt.Errorf("redis mget tokens: %w", err)
	}
	var t Tokens
	if v, ok := vals[0].(string); ok {
		t.Access = v
	}
	if v, ok := vals[1].(string); ok {
		t.Refresh = v
	}
	return t, nil
}

func (s *RedisStore) SetTokens(ctx context.Context, t Tokens) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, config.SessionKey.AccessToken(s.prefix), t.Access, 0)
		if t.Refresh != "" {
			pipe.Set(ctx, config.SessionKey.RefreshToken(s.prefix), t.Refresh, 0)
		}
		pipe.Set(ctx, config.SessionKey.IsAuthenticated(s.prefix), "true", 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis store tokens: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	err := s.rdb.Del(ctx,
		config.SessionKey.AccessToken(s.prefix),
		config.SessionKey.RefreshToken(s.prefix),
		config.SessionKey.IsAuthenticated(s.prefix),
	).Err()
	if err != nil {
		return fmt.Errorf("redis clear session: %w", err)
	}
	return nil
}

func (s *RedisStore) IsAuthenticated(ctx context.Context) (bool, error) {
	flag, err := s.get(ctx, config.SessionKey.IsAuthenticated(s.prefix))
	if err != nil || flag != "true" {
		return false, err
	}
	access, err := s.get(ctx, config.SessionKey.AccessToken(s.prefix))
	return access != "", err
}

func (s *RedisStore) RememberedEmail(ctx context.Context) (string, error) {
	return s.get(ctx, config.SessionKey.RememberedEmail(s.prefix))
}

func (s *RedisStore) SetRememberedEmail(ctx context.Context, email string) error {
	key := config.SessionKey.RememberedEmail(s.prefix)
	if email == "" {
		return s.rdb.Del(ctx, key).Err()
	}
	return s.rdb.Set(ctx, key, email, 0).Err()
}

func (s *RedisStore) MarkNewLogin(ctx context.Context) error {
	return s.rdb.Set(ctx, config.SessionKey.NewLogin(s.prefix), "1", newLoginTTL).Err()
}

func (s *RedisStore) ConsumeNewLogin(ctx context.Context) (bool, error) {
	v, err := s.rdb.GetDel(ctx, config.SessionKey.NewLogin(s.prefix)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis consume new login: %w", err)
	}
	return v == "1", nil
}

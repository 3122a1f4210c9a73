// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/recserve/internal/recommend"
)

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr         string        `koanf:"addr"`
	Password     string        `koanf:"password"`
	DB           int           `koanf:"db"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	PoolSize     int           `koanf:"pool_size"`
}

// DefaultRedisConfig returns local defaults with short timeouts; the cache
// sits on the request path.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		DialTimeout:  500 * time.Millisecond,
		ReadTimeout:  200 * time.Millisecond,
		WriteTimeout: 200 * time.Millisecond,
		PoolSize:     20,
	}
}

// RedisStore shares cached results across replicas.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// OpenRedisStore creates a client for cfg. The connection is established
// lazily so a redis outage at startup degrades to cache misses.
func OpenRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	})
	return &RedisStore{client: client, now: time.Now}, nil
}

// Name returns the backend name.
func (s *RedisStore) Name() string { return string(BackendRedis) }

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Get retrieves a user's result while it is fresh.
func (s *RedisStore) Get(ctx context.Context, userID string) (*recommend.RecommendationResult, bool, error) {
	val, err := s.client.Get(ctx, Key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	result, err := decodeResult(val)
	if err != nil {
		return nil, false, err
	}
	if !s.now().Before(result.ExpiresAt) {
		return nil, false, nil
	}
	return result, true, nil
}

// Put stores the result with an expiration matching its ExpiresAt.
func (s *RedisStore) Put(ctx context.Context, userID string, result *recommend.RecommendationResult) error {
	if result == nil {
		return errors.New("cache: nil result")
	}
	ttl := result.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}

	data, err := encodeResult(result)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, Key(userID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Invalidate deletes the user's entry.
func (s *RedisStore) Invalidate(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, Key(userID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)

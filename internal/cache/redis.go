// Package cache holds the Redis-backed tracking-code index.
package cache

import (
	"context"
	"crypto/tls"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultTTL keeps a tracking code mapping for a month.
const DefaultTTL = 30 * 24 * time.Hour

const keyPrefix = "tracking:"

// RedisConfig describes the Redis connection.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TLS      bool
}

// NewClient returns a Redis client, or nil when no address is configured or
// verify is set and the server does not answer a ping.
func NewClient(ctx context.Context, cfg RedisConfig, logger zerolog.Logger, verify bool) *redis.Client {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil
	}
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Addr).Msg("redis not available, tracking index disabled")
		_ = client.Close()
		return nil
	}
	return client
}

// TrackingIndex maps tracking codes to internal appointment ids. A nil
// *TrackingIndex always misses. Redis errors are logged and treated as misses.
type TrackingIndex struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

// NewTrackingIndex returns nil when client is nil.
func NewTrackingIndex(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *TrackingIndex {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TrackingIndex{
		client: client,
		ttl:    ttl,
		log:    logger.With().Str("component", "tracking_index").Logger(),
	}
}

func (x *TrackingIndex) Resolve(ctx context.Context, code string) (string, bool) {
	if x == nil || code == "" {
		return "", false
	}
	id, err := x.client.Get(ctx, trackingKey(code)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			x.log.Warn().Err(err).Str("tracking_code", code).Msg("resolve tracking code")
		}
		return "", false
	}
	return id, id != ""
}

func (x *TrackingIndex) Remember(ctx context.Context, code, id string) {
	if x == nil || code == "" || id == "" {
		return
	}
	if err := x.client.Set(ctx, trackingKey(code), id, x.ttl).Err(); err != nil {
		x.log.Warn().Err(err).Str("tracking_code", code).Msg("remember tracking code")
	}
}

func (x *TrackingIndex) Forget(ctx context.Context, code string) {
	if x == nil || code == "" {
		return
	}
	if err := x.client.Del(ctx, trackingKey(code)).Err(); err != nil {
		x.log.Warn().Err(err).Str("tracking_code", code).Msg("forget tracking code")
	}
}

func trackingKey(code string) string {
	return keyPrefix + code
}

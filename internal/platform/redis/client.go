// Package redis connects the shared idempotency keyspace.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"swiftremit/internal/platform/config"
)

// Client is a connected go-redis client plus the key prefix every
// swiftremit key is written under.
type Client struct {
	*redis.Client
	Prefix string
}

// Connect dials the configured server and verifies it answers a PING.
// An empty URL yields (nil, nil) so callers fall back to process memory.
func Connect(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	applyPool(opts, cfg)

	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", opts.Addr, err)
	}
	return &Client{Client: rdb, Prefix: cfg.KeyPrefix}, nil
}

// applyPool overrides URL-derived settings with explicit configuration.
// Zero values keep the go-redis defaults.
func applyPool(opts *redis.Options, cfg config.RedisConfig) {
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
}

// Health is the readiness probe for the keyspace.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

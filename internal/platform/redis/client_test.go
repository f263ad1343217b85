package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swiftremit/internal/platform/config"
)

func TestConnectWithoutURL(t *testing.T) {
	c, err := Connect(context.Background(), config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestConnectRejectsMalformedURL(t *testing.T) {
	_, err := Connect(context.Background(), config.RedisConfig{URL: "http://not-redis"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse url")
}

func TestApplyPool(t *testing.T) {
	t.Run("explicit values override", func(t *testing.T) {
		opts := &redis.Options{}
		applyPool(opts, config.RedisConfig{
			PoolSize:     20,
			MinIdleConns: 4,
			DialTimeout:  time.Second,
			ReadTimeout:  2 * time.Second,
			WriteTimeout: 3 * time.Second,
		})
		assert.Equal(t, 20, opts.PoolSize)
		assert.Equal(t, 4, opts.MinIdleConns)
		assert.Equal(t, time.Second, opts.DialTimeout)
		assert.Equal(t, 2*time.Second, opts.ReadTimeout)
		assert.Equal(t, 3*time.Second, opts.WriteTimeout)
	})

	t.Run("zero values keep what the url set", func(t *testing.T) {
		opts, err := redis.ParseURL("redis://localhost:6379/0?dial_timeout=7s&pool_size=9")
		require.NoError(t, err)
		applyPool(opts, config.RedisConfig{})
		assert.Equal(t, 9, opts.PoolSize)
		assert.Equal(t, 7*time.Second, opts.DialTimeout)
	})
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.Addr)
		assert.Equal(t, "USDC", cfg.Ledger.Asset)
		assert.EqualValues(t, 250, cfg.Ledger.FeeBps)
		assert.EqualValues(t, 7, cfg.Ledger.AssetDecimals)
		assert.Empty(t, cfg.Database.URL)
		assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("SWIFTREMIT_ADDR", ":9090")
		t.Setenv("LEDGER_FEE_BPS", "100")
		t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")
		t.Setenv("REDIS_DIAL_TIMEOUT", "1s")

		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, ":9090", cfg.Addr)
		assert.EqualValues(t, 100, cfg.Ledger.FeeBps)
		assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
		assert.Equal(t, time.Second, cfg.Redis.DialTimeout)
	})

	t.Run("rejects fee above 100%", func(t *testing.T) {
		t.Setenv("LEDGER_FEE_BPS", "10001")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "LEDGER_FEE_BPS")
	})

	t.Run("faucet requires a token", func(t *testing.T) {
		t.Setenv("LEDGER_DEV_FAUCET", "true")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "LEDGER_DEV_FAUCET_TOKEN")
	})

	t.Run("malformed values", func(t *testing.T) {
		t.Setenv("LEDGER_FEE_BPS", "lots")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "parse environment")
	})
}

package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducer(t *testing.T) {
	t.Run("requires brokers", func(t *testing.T) {
		_, err := NewProducer(Config{Topic: "ledger-events"})
		assert.ErrorContains(t, err, "broker")
	})

	t.Run("requires topic", func(t *testing.T) {
		_, err := NewProducer(Config{Brokers: []string{"localhost:9092"}})
		assert.ErrorContains(t, err, "topic")
	})

	t.Run("defaults partitions and replication", func(t *testing.T) {
		p, err := NewProducer(Config{Brokers: []string{"localhost:9092"}, Topic: "ledger-events"})
		require.NoError(t, err)
		defer p.Close()
		assert.Equal(t, "ledger-events", p.Topic())
		assert.EqualValues(t, 1, p.cfg.Partitions)
		assert.EqualValues(t, 1, p.cfg.ReplicationFactor)
	})
}

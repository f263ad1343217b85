package audit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swiftremit/internal/platform/kafka"
	"swiftremit/internal/remittance/events"
	"swiftremit/pkg/amount"
	id "swiftremit/pkg/domain"
	"swiftremit/pkg/platform/circuit"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func event(kind events.Kind, remittanceID id.RemittanceID) events.Event {
	amt := amount.New(1000)
	return events.Event{
		ID:           uuid.New(),
		Kind:         kind,
		Timestamp:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		RemittanceID: remittanceID,
		Amount:       &amt,
	}
}

type failingSink struct{ err error }

func (f failingSink) Publish(context.Context, ...events.Event) error { return f.err }

type fakeProducer struct {
	mu   sync.Mutex
	err   error
	msgs  []kafka.Message
	calls int
}

func (p *fakeProducer) Produce(_ context.Context, msgs ...kafka.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msgs...)
	return nil
}

func (p *fakeProducer) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *fakeProducer) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func TestPublisher(t *testing.T) {
	t.Run("fans out to every sink and joins failures", func(t *testing.T) {
		mem := NewMemorySink(10)
		boom := errors.New("boom")
		p := NewPublisher(failingSink{err: boom}, nil, mem)

		err := p.Publish(context.Background(), event(events.KindRemittanceCreated, 1))
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, mem.Len(), "a failing sink does not stop the others")
	})

	t.Run("no events is a no-op", func(t *testing.T) {
		p := NewPublisher(failingSink{err: errors.New("never")})
		assert.NoError(t, p.Publish(context.Background()))
	})
}

func TestMemorySink(t *testing.T) {
	mem := NewMemorySink(3)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		require.NoError(t, mem.Publish(ctx, event(events.KindRemittanceCreated, id.RemittanceID(i))))
	}

	t.Run("keeps the newest events oldest first", func(t *testing.T) {
		got := mem.Recent(0)
		require.Len(t, got, 3)
		assert.EqualValues(t, 3, got[0].RemittanceID)
		assert.EqualValues(t, 5, got[2].RemittanceID)
	})

	t.Run("limit keeps the latest", func(t *testing.T) {
		got := mem.Recent(2)
		require.Len(t, got, 2)
		assert.EqualValues(t, 4, got[0].RemittanceID)
		assert.EqualValues(t, 5, got[1].RemittanceID)
	})

	t.Run("filters by remittance", func(t *testing.T) {
		require.NoError(t, mem.Publish(ctx, event(events.KindRemittanceCompleted, 5)))
		got := mem.ForRemittance(5, 0)
		require.Len(t, got, 2)
		assert.Equal(t, events.KindRemittanceCreated, got[0].Kind)
		assert.Equal(t, events.KindRemittanceCompleted, got[1].Kind)
		assert.Empty(t, mem.ForRemittance(1, 0), "evicted")
	})
}

func TestWorker(t *testing.T) {
	t.Run("delivers queued events and drains on shutdown", func(t *testing.T) {
		mem := NewMemorySink(10)
		w := NewWorker(mem, 4, discard)
		ctx, cancel := context.WithCancel(context.Background())

		require.NoError(t, w.Publish(ctx, event(events.KindPaused, 0), event(events.KindUnpaused, 0)))
		done := make(chan error, 1)
		go func() { done <- w.Run(ctx) }()

		require.Eventually(t, func() bool { return mem.Len() == 2 }, time.Second, 5*time.Millisecond)
		cancel()
		require.NoError(t, <-done)
	})

	t.Run("rejects when the queue is full", func(t *testing.T) {
		w := NewWorker(NewMemorySink(10), 1, discard)
		ctx := context.Background()
		require.NoError(t, w.Publish(ctx, event(events.KindPaused, 0)))
		err := w.Publish(ctx, event(events.KindUnpaused, 0), event(events.KindPaused, 0))
		assert.ErrorIs(t, err, ErrQueueFull)
		assert.EqualValues(t, 2, w.Dropped())
	})

	t.Run("drains pending batches after cancellation", func(t *testing.T) {
		mem := NewMemorySink(10)
		w := NewWorker(mem, 4, discard)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.NoError(t, w.Publish(ctx, event(events.KindPaused, 0)))
		require.NoError(t, w.Run(ctx))
		assert.Equal(t, 1, mem.Len())
	})
}

func TestKafkaSink(t *testing.T) {
	ctx := context.Background()

	t.Run("writes json keyed by remittance", func(t *testing.T) {
		producer := &fakeProducer{}
		sink := NewKafkaSink(producer, WithKafkaLogger(discard))

		require.NoError(t, sink.Publish(ctx, event(events.KindRemittanceCreated, 42)))
		require.Len(t, producer.msgs, 1)
		msg := producer.msgs[0]
		assert.Equal(t, "remittance/42", string(msg.Key))
		assert.Equal(t, "remittance_created", msg.Headers["kind"])

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(msg.Value, &decoded))
		assert.Equal(t, "1000", decoded["amount"])
		assert.EqualValues(t, 42, decoded["remittance_id"])
	})

	t.Run("open breaker skips the broker until the cooldown ends", func(t *testing.T) {
		now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
		producer := &fakeProducer{err: errors.New("broker unreachable")}
		fallback := NewMemorySink(10)
		sink := NewKafkaSink(producer,
			WithKafkaLogger(discard),
			WithFallback(fallback),
			WithBreaker(circuit.New("kafka",
				circuit.WithFailureThreshold(2),
				circuit.WithSuccessThreshold(1),
				circuit.WithCooldown(time.Minute),
				circuit.WithClock(func() time.Time { return now }),
			)),
		)

		assert.Error(t, sink.Publish(ctx, event(events.KindPaused, 0)), "first failure is reported")
		assert.NoError(t, sink.Publish(ctx, event(events.KindPaused, 0)), "opening failure routes to fallback")
		assert.True(t, sink.Degraded())
		require.Equal(t, 2, producer.callCount())

		for range 5 {
			require.NoError(t, sink.Publish(ctx, event(events.KindRemittanceCreated, 7)))
		}
		assert.Equal(t, 2, producer.callCount(), "no produce calls while open")
		assert.Equal(t, 6, fallback.Len())

		producer.setErr(nil)
		now = now.Add(time.Minute)
		require.NoError(t, sink.Publish(ctx, event(events.KindUnpaused, 0)))
		assert.Equal(t, 3, producer.callCount(), "cooldown over, the broker is probed")
		assert.False(t, sink.Degraded())
		assert.Len(t, producer.msgs, 1)
	})

	t.Run("open breaker without fallback reports the circuit", func(t *testing.T) {
		producer := &fakeProducer{err: errors.New("broker unreachable")}
		sink := NewKafkaSink(producer,
			WithKafkaLogger(discard),
			WithBreaker(circuit.New("kafka", circuit.WithFailureThreshold(1), circuit.WithCooldown(time.Hour))),
		)
		assert.Error(t, sink.Publish(ctx, event(events.KindPaused, 0)))
		assert.ErrorIs(t, sink.Publish(ctx, event(events.KindPaused, 0)), ErrCircuitOpen)
		assert.Equal(t, 1, producer.callCount())
	})
}

package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"swiftremit/internal/platform/kafka"
	"swiftremit/internal/remittance/events"
	"swiftremit/pkg/platform/circuit"
)

// Producer is the subset of kafka.Producer used by KafkaSink.
type Producer interface {
	Produce(ctx context.Context, msgs ...kafka.Message) error
}

// ErrCircuitOpen is returned when the breaker refuses a batch and no
// fallback is configured.
var ErrCircuitOpen = errors.New("audit: kafka circuit open")

// KafkaSink writes events as JSON keyed by Event.Key. After repeated
// failures the breaker opens and batches go to the fallback sink without
// touching the broker; once the cooldown passes, batches probe the broker
// again until the breaker closes.
type KafkaSink struct {
	producer Producer
	breaker  *circuit.Breaker
	fallback Sink
	logger   *slog.Logger
}

type KafkaOption func(*KafkaSink)

func WithFallback(s Sink) KafkaOption {
	return func(k *KafkaSink) { k.fallback = s }
}

func WithBreaker(b *circuit.Breaker) KafkaOption {
	return func(k *KafkaSink) { k.breaker = b }
}

func WithKafkaLogger(l *slog.Logger) KafkaOption {
	return func(k *KafkaSink) { k.logger = l }
}

func NewKafkaSink(producer Producer, opts ...KafkaOption) *KafkaSink {
	k := &KafkaSink{
		producer: producer,
		breaker:  circuit.New("kafka"),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

func (k *KafkaSink) Publish(ctx context.Context, evts ...events.Event) error {
	if !k.breaker.Allow() {
		if k.fallback != nil {
			return k.fallback.Publish(ctx, evts...)
		}
		return ErrCircuitOpen
	}

	msgs := make([]kafka.Message, 0, len(evts))
	for _, e := range evts {
		value, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("audit: encode event %s: %w", e.ID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.Key()),
			Value: value,
			Headers: map[string]string{
				"kind":       string(e.Kind),
				"request_id": e.RequestID,
			},
		})
	}

	err := k.producer.Produce(ctx, msgs...)
	if err == nil {
		if _, change := k.breaker.RecordSuccess(); change.Closed {
			k.logger.InfoContext(ctx, "kafka circuit closed", "breaker", k.breaker.Name())
		}
		return nil
	}

	useFallback, change := k.breaker.RecordFailure()
	if change.Opened {
		k.logger.WarnContext(ctx, "kafka circuit opened", "breaker", k.breaker.Name(), "error", err)
	}
	if useFallback && k.fallback != nil {
		return k.fallback.Publish(ctx, evts...)
	}
	return err
}

// Degraded reports whether the breaker is open.
func (k *KafkaSink) Degraded() bool { return k.breaker.IsOpen() }

package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"swiftremit/internal/remittance/events"
)

// ErrQueueFull is returned by Worker.Publish when the buffer has no room.
var ErrQueueFull = errors.New("audit: event queue full")

const drainTimeout = 5 * time.Second

// Worker decouples a slow sink from the request path. Publish enqueues
// without blocking; Run delivers batches to the sink until ctx is cancelled
// and then drains what is left.
type Worker struct {
	sink    Sink
	inbox   chan []events.Event
	logger  *slog.Logger
	dropped atomic.Uint64
}

func NewWorker(sink Sink, buffer int, logger *slog.Logger) *Worker {
	if buffer <= 0 {
		buffer = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{sink: sink, inbox: make(chan []events.Event, buffer), logger: logger}
}

func (w *Worker) Publish(_ context.Context, evts ...events.Event) error {
	if len(evts) == 0 {
		return nil
	}
	batch := append([]events.Event(nil), evts...)
	select {
	case w.inbox <- batch:
		return nil
	default:
		w.dropped.Add(uint64(len(batch)))
		return ErrQueueFull
	}
}

// Dropped counts events rejected because the queue was full.
func (w *Worker) Dropped() uint64 { return w.dropped.Load() }

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return nil
		case batch := <-w.inbox:
			w.deliver(ctx, batch)
		}
	}
}

func (w *Worker) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case batch := <-w.inbox:
			w.deliver(ctx, batch)
		default:
			return
		}
	}
}

func (w *Worker) deliver(ctx context.Context, batch []events.Event) {
	if err := w.sink.Publish(ctx, batch...); err != nil {
		w.logger.WarnContext(ctx, "audit sink delivery failed",
			"error", err,
			"count", len(batch),
		)
	}
}

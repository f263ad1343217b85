package audit

import (
	"context"
	"log/slog"

	"swiftremit/internal/remittance/events"
)

// LogSink writes each event as a debug line. The service already logs one
// audit line per operation at info.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(ctx context.Context, evts ...events.Event) error {
	for _, e := range evts {
		attrs := []any{
			"event_id", e.ID.String(),
			"kind", string(e.Kind),
			"key", e.Key(),
			"request_id", e.RequestID,
		}
		if !e.RemittanceID.IsZero() {
			attrs = append(attrs, "remittance_id", e.RemittanceID)
		}
		if e.Amount != nil {
			attrs = append(attrs, "amount", e.Amount.String())
		}
		if e.Payout != nil {
			attrs = append(attrs, "payout", e.Payout.String())
		}
		s.logger.DebugContext(ctx, "ledger event", attrs...)
	}
	return nil
}

// Package audit fans committed ledger events out to sinks: the structured
// log, an in-memory history and the Kafka topic.
package audit

import (
	"context"
	"errors"

	"swiftremit/internal/remittance/events"
)

// Sink receives events in commit order.
type Sink interface {
	Publish(ctx context.Context, evts ...events.Event) error
}

// Publisher delivers every event to each sink. A failing sink does not stop
// delivery to the others.
type Publisher struct {
	sinks []Sink
}

func NewPublisher(sinks ...Sink) *Publisher {
	p := &Publisher{}
	for _, s := range sinks {
		if s != nil {
			p.sinks = append(p.sinks, s)
		}
	}
	return p
}

func (p *Publisher) Publish(ctx context.Context, evts ...events.Event) error {
	if len(evts) == 0 {
		return nil
	}
	var errs []error
	for _, s := range p.sinks {
		if err := s.Publish(ctx, evts...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

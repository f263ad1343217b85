package audit

import (
	"context"
	"sync"

	"swiftremit/internal/remittance/events"
	id "swiftremit/pkg/domain"
)

const defaultMemoryCapacity = 1024

// MemorySink keeps the most recent events in a ring buffer.
type MemorySink struct {
	mu    sync.RWMutex
	buf   []events.Event
	next  int
	count int
}

func NewMemorySink(capacity int) *MemorySink {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &MemorySink{buf: make([]events.Event, capacity)}
}

func (s *MemorySink) Publish(_ context.Context, evts ...events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range evts {
		s.buf[s.next] = e
		s.next = (s.next + 1) % len(s.buf)
		if s.count < len(s.buf) {
			s.count++
		}
	}
	return nil
}

// Recent returns up to limit events, oldest first. limit <= 0 returns all
// retained events.
func (s *MemorySink) Recent(limit int) []events.Event {
	return s.filter(limit, func(events.Event) bool { return true })
}

// ForRemittance returns the retained events of one remittance, oldest first.
func (s *MemorySink) ForRemittance(remittanceID id.RemittanceID, limit int) []events.Event {
	return s.filter(limit, func(e events.Event) bool { return e.RemittanceID == remittanceID })
}

func (s *MemorySink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

func (s *MemorySink) filter(limit int, keep func(events.Event) bool) []events.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// walk newest to oldest so limit keeps the latest matches
	var out []events.Event
	for i := 0; i < s.count; i++ {
		idx := (s.next - 1 - i + len(s.buf)) % len(s.buf)
		e := s.buf[idx]
		if !keep(e) {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

package idempotency

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	fingerprint string
	resp        *Response
	expiresAt   time.Time
}

// MemoryStore keeps entries in process. Expired entries are removed lazily.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStore) Begin(_ context.Context, key, fingerprint string, ttl time.Duration) (*Response, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.entries[key]; ok && now.Before(e.expiresAt) {
		if e.fingerprint != fingerprint {
			return nil, false, ErrFingerprintMismatch
		}
		if e.resp == nil {
			return nil, false, ErrInFlight
		}
		resp := *e.resp
		return &resp, false, nil
	}
	s.entries[key] = memoryEntry{fingerprint: fingerprint, expiresAt: now.Add(ttl)}
	return nil, true, nil
}

func (s *MemoryStore) Complete(_ context.Context, key string, resp Response, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	resp.Body = append([]byte(nil), resp.Body...)
	s.entries[key] = memoryEntry{fingerprint: resp.Fingerprint, resp: &resp, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Abort(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

package storage

import (
	"context"
	"sync"
	"time"

	dErrors "swiftremit/pkg/domain-errors"
	"swiftremit/pkg/platform/sentinel"
)

// InMemory is a Store backed by a map. A single lock serializes units of
// work; writes are buffered in an overlay and applied on success.
type InMemory struct {
	mu      sync.RWMutex
	data    map[Key][]byte
	timeout time.Duration
}

func NewInMemory() *InMemory {
	return &InMemory{data: make(map[Key][]byte)}
}

func (s *InMemory) RunInTx(ctx context.Context, fn func(ctx context.Context, kv KV) error) error {
	if kv, ok := TxFrom(ctx); ok {
		return fn(ctx, kv)
	}

	ctx, cancel, err := prepare(ctx, s.timeout)
	defer cancel()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	overlay := &memoryTx{base: s.data, writes: make(map[Key][]byte)}
	if err := fn(WithTx(ctx, overlay), overlay); err != nil {
		return err
	}
	for k, v := range overlay.writes {
		s.data[k] = v
	}
	return nil
}

func (s *InMemory) View(ctx context.Context, fn func(ctx context.Context, r Reader) error) error {
	if kv, ok := TxFrom(ctx); ok {
		return fn(ctx, kv)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(ctx, memoryReader(s.data))
}

// Len reports the number of committed keys.
func (s *InMemory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

type memoryReader map[Key][]byte

func (m memoryReader) Get(_ context.Context, key Key) ([]byte, error) {
	v, ok := m[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(v), nil
}

func (m memoryReader) Has(_ context.Context, key Key) (bool, error) {
	_, ok := m[key]
	return ok, nil
}

func (m memoryReader) GetMany(_ context.Context, keys []Key) (map[Key][]byte, error) {
	out := make(map[Key][]byte, len(keys))
	for _, k := range keys {
		if v, ok := m[k]; ok {
			out[k] = clone(v)
		}
	}
	return out, nil
}

type memoryTx struct {
	base   map[Key][]byte
	writes map[Key][]byte
}

func (t *memoryTx) lookup(key Key) ([]byte, bool) {
	if v, ok := t.writes[key]; ok {
		return v, true
	}
	v, ok := t.base[key]
	return v, ok
}

func (t *memoryTx) Get(_ context.Context, key Key) ([]byte, error) {
	v, ok := t.lookup(key)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(v), nil
}

func (t *memoryTx) Has(_ context.Context, key Key) (bool, error) {
	_, ok := t.lookup(key)
	return ok, nil
}

func (t *memoryTx) GetMany(_ context.Context, keys []Key) (map[Key][]byte, error) {
	out := make(map[Key][]byte, len(keys))
	for _, k := range keys {
		if v, ok := t.lookup(k); ok {
			out[k] = clone(v)
		}
	}
	return out, nil
}

func (t *memoryTx) Set(_ context.Context, key Key, value []byte) error {
	t.writes[key] = clone(value)
	return nil
}

func (t *memoryTx) Insert(_ context.Context, key Key, value []byte) error {
	if _, ok := t.lookup(key); ok {
		return sentinel.ErrAlreadyUsed
	}
	t.writes[key] = clone(value)
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

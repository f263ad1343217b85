// Package storage is the transactional key-value port behind the ledger.
//
// A unit of work is a call to Store.RunInTx. Every write made through the KV
// handed to fn becomes visible together when fn returns nil, and none of
// them does otherwise. Units of work on one Store are serialized.
package storage

import (
	"context"
	"time"

	dErrors "swiftremit/pkg/domain-errors"
)

// Key addresses one value. Keys are slash separated, e.g. "remittance/7".
type Key string

func (k Key) String() string { return string(k) }

// Reader is read-only access to the key space.
type Reader interface {
	// Get returns sentinel.ErrNotFound when key is absent.
	Get(ctx context.Context, key Key) ([]byte, error)
	Has(ctx context.Context, key Key) (bool, error)
	// GetMany returns the values present for keys; absent keys are omitted.
	GetMany(ctx context.Context, keys []Key) (map[Key][]byte, error)
}

// KV is read-write access inside a unit of work.
type KV interface {
	Reader
	Set(ctx context.Context, key Key, value []byte) error
	// Insert writes key only if it does not exist yet and returns
	// sentinel.ErrAlreadyUsed otherwise.
	Insert(ctx context.Context, key Key, value []byte) error
}

// Store opens units of work.
type Store interface {
	// RunInTx runs fn in a unit of work. A RunInTx whose ctx already carries
	// a unit of work joins it instead of opening a new one.
	RunInTx(ctx context.Context, fn func(ctx context.Context, kv KV) error) error
	// View runs fn with read-only access to committed state.
	View(ctx context.Context, fn func(ctx context.Context, r Reader) error) error
}

type ctxKey struct{}

// WithTx stores the unit of work's KV in ctx so collaborators can join it.
func WithTx(ctx context.Context, kv KV) context.Context {
	return context.WithValue(ctx, ctxKey{}, kv)
}

// TxFrom returns the KV of the unit of work carried by ctx.
func TxFrom(ctx context.Context) (KV, bool) {
	kv, ok := ctx.Value(ctxKey{}).(KV)
	return kv, ok
}

const defaultTxTimeout = 5 * time.Second

// prepare applies the default deadline and rejects already-cancelled
// contexts. The returned cancel func must always be called.
func prepare(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc, error) {
	if err := ctx.Err(); err != nil {
		return ctx, func() {}, dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, cancel, nil
}

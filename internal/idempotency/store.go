// Package idempotency replays the first successful response to a POST
// carrying an Idempotency-Key instead of executing it again.
package idempotency

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInFlight means another request with the same key has not finished.
	ErrInFlight = errors.New("idempotency: request in flight")
	// ErrFingerprintMismatch means the key was used with a different body.
	ErrFingerprintMismatch = errors.New("idempotency: key reused with a different request")
)

// Response is a stored reply.
type Response struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
	Fingerprint string `json:"fingerprint"`
}

// Store reserves keys and keeps completed responses for a TTL.
//
// Begin either reserves key (started is true), returns the completed
// response for key, or fails with ErrInFlight or ErrFingerprintMismatch.
type Store interface {
	Begin(ctx context.Context, key, fingerprint string, ttl time.Duration) (resp *Response, started bool, err error)
	Complete(ctx context.Context, key string, resp Response, ttl time.Duration) error
	Abort(ctx context.Context, key string) error
}

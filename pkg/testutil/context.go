package testutil

import (
	"context"
	"net/http"
	"time"

	id "swiftremit/pkg/domain"
	"swiftremit/pkg/requestcontext"
)

// WithPrincipal adds an authenticated principal to the request context.
// This simulates what the auth middleware would do for authenticated requests.
// An empty principal leaves the request anonymous.
func WithPrincipal(req *http.Request, principal string) *http.Request {
	if principal == "" {
		return req
	}
	return req.WithContext(requestcontext.WithPrincipal(req.Context(), id.Principal(principal)))
}

// WithTime pins the request time seen by handlers and the ledger.
func WithTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}

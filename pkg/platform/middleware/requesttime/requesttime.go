// Package requesttime pins one "now" per HTTP request. Expiry checks,
// record timestamps and emitted events inside a request all observe the
// same instant.
package requesttime

import (
	"net/http"
	"time"

	"swiftremit/pkg/requestcontext"
)

// Clock returns the current time.
type Clock func() time.Time

// Middleware stores clock() in the request context, normalised to UTC. A nil
// clock uses time.Now.
func Middleware(clock Clock) func(http.Handler) http.Handler {
	if clock == nil {
		clock = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithTime(r.Context(), clock().UTC())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

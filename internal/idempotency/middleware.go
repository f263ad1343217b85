package idempotency

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	dErrors "swiftremit/pkg/domain-errors"
	"swiftremit/pkg/platform/httputil"
	"swiftremit/pkg/requestcontext"
)

const (
	HeaderKey      = "Idempotency-Key"
	HeaderReplayed = "Idempotent-Replayed"

	maxKeyLength = 255
	maxBodyBytes = 1 << 20
)

type recorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *recorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

// Middleware replays completed responses for repeated (principal, method,
// path, Idempotency-Key) tuples. Requests without the header pass through.
// Only 2xx responses are stored; failures release the key so the client can
// retry.
func Middleware(store Store, ttl time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			idemKey := r.Header.Get(HeaderKey)
			if idemKey == "" || r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			if len(idemKey) > maxKeyLength {
				httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Idempotency-Key is too long"))
				return
			}

			ctx := r.Context()
			body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
			if err != nil {
				httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "failed to read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			sum := sha256.Sum256(body)
			fingerprint := hex.EncodeToString(sum[:])

			key := requestcontext.Principal(ctx).String() + "|" + r.Method + " " + r.URL.Path + "|" + idemKey
			stored, started, err := store.Begin(ctx, key, fingerprint, ttl)
			switch {
			case errors.Is(err, ErrInFlight):
				httputil.WriteError(w, dErrors.New(dErrors.CodeConflict, "a request with this Idempotency-Key is in progress"))
				return
			case errors.Is(err, ErrFingerprintMismatch):
				httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Idempotency-Key was already used with a different request"))
				return
			case err != nil:
				logger.ErrorContext(ctx, "idempotency store unavailable",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "idempotency store unavailable"))
				return
			}

			if !started {
				if stored.ContentType != "" {
					w.Header().Set("Content-Type", stored.ContentType)
				}
				w.Header().Set(HeaderReplayed, "true")
				w.WriteHeader(stored.Status)
				_, _ = w.Write(stored.Body)
				return
			}

			rec := &recorder{ResponseWriter: w}
			completed := false
			defer func() {
				if !completed {
					if err := store.Abort(ctx, key); err != nil {
						logger.WarnContext(ctx, "failed to release idempotency key", "error", err)
					}
				}
			}()
			next.ServeHTTP(rec, r)

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			if status < 200 || status > 299 {
				return
			}
			// The side effect has happened. If the response cannot be stored
			// the key stays reserved, so retries see ErrInFlight until the TTL
			// instead of running the request again.
			completed = true
			resp := Response{
				Status:      status,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
				Fingerprint: fingerprint,
			}
			if err := store.Complete(ctx, key, resp, ttl); err != nil {
				logger.ErrorContext(ctx, "failed to store idempotent response; key stays reserved",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
			}
		})
	}
}

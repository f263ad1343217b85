package idempotency

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"swiftremit/pkg/domain"
	"swiftremit/pkg/requestcontext"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }

	_, started, err := s.Begin(ctx, "k", "fp", time.Minute)
	require.NoError(t, err)
	require.True(t, started)

	_, _, err = s.Begin(ctx, "k", "fp", time.Minute)
	assert.ErrorIs(t, err, ErrInFlight)
	_, _, err = s.Begin(ctx, "k", "other", time.Minute)
	assert.ErrorIs(t, err, ErrFingerprintMismatch)

	require.NoError(t, s.Complete(ctx, "k", Response{Status: 201, Body: []byte(`{"id":"1"}`), Fingerprint: "fp"}, time.Minute))
	resp, started, err := s.Begin(ctx, "k", "fp", time.Minute)
	require.NoError(t, err)
	assert.False(t, started)
	assert.Equal(t, 201, resp.Status)

	now = now.Add(2 * time.Minute)
	_, started, err = s.Begin(ctx, "k", "fp", time.Minute)
	require.NoError(t, err)
	assert.True(t, started, "expired entries are reusable")

	require.NoError(t, s.Abort(ctx, "k"))
	_, started, err = s.Begin(ctx, "k", "fp", time.Minute)
	require.NoError(t, err)
	assert.True(t, started)
}

type MiddlewareSuite struct {
	suite.Suite
	calls   atomic.Int32
	status  int
	handler http.Handler
}

func TestMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareSuite))
}

func (s *MiddlewareSuite) SetupTest() {
	s.calls.Store(0)
	s.status = http.StatusCreated
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := s.calls.Add(1)
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(s.status)
		_, _ = io.WriteString(w, `{"call":`+string(rune('0'+n))+`,"echo":`+string(body)+`}`)
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.handler = Middleware(NewMemoryStore(), time.Hour, logger)(inner)
}

func (s *MiddlewareSuite) do(principal, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/remittances", strings.NewReader(body))
	if key != "" {
		req.Header.Set(HeaderKey, key)
	}
	req = req.WithContext(requestcontext.WithPrincipal(req.Context(), domain.Principal("G"+principal)))
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func (s *MiddlewareSuite) TestReplaysSuccessfulResponse() {
	first := s.do("ALICE", "abc", `{"amount":"10"}`)
	s.Equal(http.StatusCreated, first.Code)

	second := s.do("ALICE", "abc", `{"amount":"10"}`)
	s.Equal(http.StatusCreated, second.Code)
	s.Equal("true", second.Header().Get(HeaderReplayed))
	s.Equal(first.Body.String(), second.Body.String())
	s.Equal("application/json", second.Header().Get("Content-Type"))
	s.EqualValues(1, s.calls.Load())
}

func (s *MiddlewareSuite) TestKeysAreScopedByPrincipal() {
	s.do("ALICE", "abc", `{}`)
	s.do("BOB", "abc", `{}`)
	s.EqualValues(2, s.calls.Load())
}

func (s *MiddlewareSuite) TestWithoutKeyPassesThrough() {
	s.do("ALICE", "", `{}`)
	s.do("ALICE", "", `{}`)
	s.EqualValues(2, s.calls.Load())
}

func (s *MiddlewareSuite) TestFailuresAreNotCached() {
	s.status = http.StatusUnprocessableEntity
	s.Equal(http.StatusUnprocessableEntity, s.do("ALICE", "k1", `{}`).Code)

	s.status = http.StatusCreated
	rr := s.do("ALICE", "k1", `{}`)
	s.Equal(http.StatusCreated, rr.Code)
	s.Empty(rr.Header().Get(HeaderReplayed))
	s.EqualValues(2, s.calls.Load())
}

func (s *MiddlewareSuite) TestDifferentBodyIsRejected() {
	s.do("ALICE", "k2", `{"amount":"10"}`)
	rr := s.do("ALICE", "k2", `{"amount":"11"}`)
	s.Equal(http.StatusBadRequest, rr.Code)
	s.EqualValues(1, s.calls.Load())
}

func (s *MiddlewareSuite) TestOverlongKey() {
	rr := s.do("ALICE", strings.Repeat("k", 256), `{}`)
	s.Equal(http.StatusBadRequest, rr.Code)
	s.EqualValues(0, s.calls.Load())
}

// completeFails loses every completed response.
type completeFails struct {
	*MemoryStore
}

func (completeFails) Complete(context.Context, string, Response, time.Duration) error {
	return errors.New("redis: connection reset")
}

func TestLostResponseKeepsKeyReserved(t *testing.T) {
	var calls atomic.Int32
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"1"}`)
	})
	h := Middleware(completeFails{NewMemoryStore()}, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))(inner)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/remittances", strings.NewReader(`{"amount":"10"}`))
		req.Header.Set(HeaderKey, "create-1")
		req = req.WithContext(requestcontext.WithPrincipal(req.Context(), "GALICE"))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	assert.Equal(t, http.StatusCreated, send().Code)
	retry := send()
	assert.Equal(t, http.StatusConflict, retry.Code, "retry must not create a second remittance")
	assert.EqualValues(t, 1, calls.Load())
}

package models

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swiftremit/pkg/amount"
	dErrors "swiftremit/pkg/domain-errors"
)

var now = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

func newPending(t *testing.T, expiry *time.Time) *Remittance {
	t.Helper()
	r, err := NewRemittance(1, "GSENDER", "GAGENT", amount.New(1000), amount.New(25), expiry, now)
	require.NoError(t, err)
	return r
}

func TestNewRemittance(t *testing.T) {
	t.Run("starts pending", func(t *testing.T) {
		r := newPending(t, nil)
		assert.Equal(t, StatusPending, r.Status)
		assert.Equal(t, now, r.CreatedAt)
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		for _, v := range []int64{0, -5} {
			_, err := NewRemittance(1, "GSENDER", "GAGENT", amount.New(v), amount.Zero, nil, now)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAmount))
		}
	})

	t.Run("rejects fee above amount", func(t *testing.T) {
		_, err := NewRemittance(1, "GSENDER", "GAGENT", amount.New(10), amount.New(11), nil, now)
		assert.Error(t, err)
	})
}

func TestTransitions(t *testing.T) {
	t.Run("complete then nothing", func(t *testing.T) {
		r := newPending(t, nil)
		require.NoError(t, r.CanComplete())
		r.ApplyCompletion(now.Add(time.Minute))
		assert.Equal(t, StatusCompleted, r.Status)
		assert.True(t, r.Status.IsTerminal())

		assert.True(t, dErrors.HasCode(r.CanComplete(), dErrors.CodeInvalidStatus))
		assert.True(t, dErrors.HasCode(r.CanCancel(), dErrors.CodeInvalidStatus))
	})

	t.Run("cancel then nothing", func(t *testing.T) {
		r := newPending(t, nil)
		require.NoError(t, r.CanCancel())
		r.ApplyCancellation(now)
		assert.True(t, dErrors.HasCode(r.CanComplete(), dErrors.CodeInvalidStatus))
	})

	t.Run("status table", func(t *testing.T) {
		assert.True(t, StatusPending.CanTransitionTo(StatusCompleted))
		assert.True(t, StatusPending.CanTransitionTo(StatusCancelled))
		assert.False(t, StatusPending.CanTransitionTo(StatusPending))
		assert.False(t, StatusCompleted.CanTransitionTo(StatusCancelled))
		assert.False(t, StatusCancelled.CanTransitionTo(StatusCompleted))
		assert.False(t, Status("settled").IsValid())
	})
}

func TestExpiry(t *testing.T) {
	expiry := now.Add(time.Hour)
	r := newPending(t, &expiry)

	assert.False(t, r.IsExpired(expiry.Add(-time.Second)))
	assert.False(t, r.IsExpired(expiry), "confirmation at the expiry instant is allowed")
	assert.True(t, r.IsExpired(expiry.Add(time.Nanosecond)))

	assert.False(t, newPending(t, nil).IsExpired(now.Add(100*365*24*time.Hour)))
}

func TestPayout(t *testing.T) {
	p, err := newPending(t, nil).Payout()
	require.NoError(t, err)
	assert.Equal(t, "975", p.String())
}

func TestConfig(t *testing.T) {
	assert.NoError(t, ValidateFeeBps(0))
	assert.NoError(t, ValidateFeeBps(10000))
	assert.True(t, dErrors.HasCode(ValidateFeeBps(10001), dErrors.CodeInvalidFeeBps))

	cfg := &Config{Counter: 41, FeeBps: 250}
	next, err := cfg.NextRemittanceID()
	require.NoError(t, err)
	assert.EqualValues(t, 42, next)
	assert.EqualValues(t, 41, cfg.Counter, "computing the next id does not consume it")

	cfg.Counter = math.MaxUint64
	_, err = cfg.NextRemittanceID()
	assert.True(t, dErrors.HasCode(err, dErrors.CodeOverflow))

	cfg.FeeBps = 250
	fee, err := cfg.FeeFor(amount.New(10000))
	require.NoError(t, err)
	assert.Equal(t, "250", fee.String())

	_, err = cfg.FeeFor(amount.Max)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeOverflow))
}

func TestCaller(t *testing.T) {
	c := NewCaller("GSENDER")
	assert.NoError(t, c.Require("GSENDER"))
	assert.True(t, dErrors.HasCode(c.Require("GOTHER"), dErrors.CodeUnauthorized))
	assert.True(t, dErrors.HasCode(Anonymous.Require(""), dErrors.CodeUnauthorized))
}

package service_test

import (
	"context"
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swiftremit/internal/assetledger"
	"swiftremit/internal/remittance/models"
	"swiftremit/internal/remittance/service"
	"swiftremit/internal/storage"
	"swiftremit/pkg/amount"
	id "swiftremit/pkg/domain"
	dErrors "swiftremit/pkg/domain-errors"
	"swiftremit/pkg/requestcontext"
	"swiftremit/pkg/testutil"
)

const (
	custody id.Principal = "GCUSTODY"
	admin   id.Principal = "GADMIN"
	usdc    id.Principal = "USDC"
)

type harness struct {
	svc    *service.Service
	ledger *assetledger.Ledger
	ctx    context.Context
}

func newHarness(t *testing.T, feeBps uint32) *harness {
	t.Helper()
	st := storage.NewInMemory()
	ledger := assetledger.New(st, usdc)
	svc, err := service.New(st, ledger, custody,
		service.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)

	ctx := requestcontext.WithTime(context.Background(), time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	_, err = svc.Initialize(ctx, admin, usdc, feeBps)
	require.NoError(t, err)
	return &harness{svc: svc, ledger: ledger, ctx: ctx}
}

func (h *harness) fund(t *testing.T, p id.Principal, v int64) {
	t.Helper()
	_, err := h.ledger.Mint(h.ctx, p, amount.New(v))
	require.NoError(t, err)
}

func (h *harness) balance(t *testing.T, p id.Principal) string {
	t.Helper()
	b, err := h.ledger.Balance(h.ctx, p)
	require.NoError(t, err)
	return b.String()
}

// pendingTotal sums the amounts of every pending remittance in [1, n].
func (h *harness) pendingTotal(t *testing.T, n uint64) amount.Amount {
	t.Helper()
	ids := make([]id.RemittanceID, 0, n)
	for i := uint64(1); i <= n; i++ {
		ids = append(ids, id.RemittanceID(i))
	}
	all, err := h.svc.GetRemittances(h.ctx, ids)
	require.NoError(t, err)
	total := amount.Zero
	for _, r := range all {
		if r.IsPending() {
			total, err = total.Add(r.Amount)
			require.NoError(t, err)
		}
	}
	return total
}

func TestRemittanceLifecycle(t *testing.T) {
	sender := models.NewCaller("GSENDER")
	agent := models.NewCaller("GAGENT")

	testutil.Given(t, "a 2.5% fee and a funded sender", func(t *testing.T) {
		h := newHarness(t, 250)
		h.fund(t, sender.Principal(), 1000)
		require.NoError(t, h.svc.RegisterAgent(h.ctx, models.NewCaller(admin), agent.Principal()))

		r, err := h.svc.CreateRemittance(h.ctx, sender, sender.Principal(), agent.Principal(), amount.New(1000), nil)
		require.NoError(t, err)

		testutil.Then(t, "the amount sits in custody", func(t *testing.T) {
			assert.Equal(t, "0", h.balance(t, sender.Principal()))
			assert.Equal(t, "1000", h.balance(t, custody))
			assert.Equal(t, "25", r.Fee.String())
		})

		testutil.When(t, "the agent confirms the payout", func(t *testing.T) {
			_, err := h.svc.ConfirmPayout(h.ctx, agent, r.ID)
			require.NoError(t, err)

			testutil.Then(t, "the agent receives amount minus fee and the fee stays in custody", func(t *testing.T) {
				assert.Equal(t, "975", h.balance(t, agent.Principal()))
				assert.Equal(t, "25", h.balance(t, custody))
				fees, err := h.svc.AccumulatedFees(h.ctx)
				require.NoError(t, err)
				assert.Equal(t, "25", fees.String())
			})

			testutil.Then(t, "a second confirmation moves nothing", func(t *testing.T) {
				_, err := h.svc.ConfirmPayout(h.ctx, agent, r.ID)
				assert.Equal(t, dErrors.CodeInvalidStatus, dErrors.CodeOf(err))
				assert.Equal(t, "975", h.balance(t, agent.Principal()))
			})
		})

		testutil.When(t, "the admin withdraws fees", func(t *testing.T) {
			withdrawn, err := h.svc.WithdrawFees(h.ctx, models.NewCaller(admin), "GTREASURY")
			require.NoError(t, err)
			assert.Equal(t, "25", withdrawn.String())
			assert.Equal(t, "25", h.balance(t, "GTREASURY"))
			assert.Equal(t, "0", h.balance(t, custody))
		})
	})

	testutil.Given(t, "an underfunded sender", func(t *testing.T) {
		h := newHarness(t, 250)
		h.fund(t, sender.Principal(), 10)
		require.NoError(t, h.svc.RegisterAgent(h.ctx, models.NewCaller(admin), agent.Principal()))

		_, err := h.svc.CreateRemittance(h.ctx, sender, sender.Principal(), agent.Principal(), amount.New(1000), nil)

		testutil.Then(t, "creation fails and nothing is recorded", func(t *testing.T) {
			assert.Equal(t, dErrors.CodeInsufficientBalance, dErrors.CodeOf(err))
			assert.Equal(t, "10", h.balance(t, sender.Principal()))
			_, err := h.svc.GetRemittance(h.ctx, 1)
			assert.Equal(t, dErrors.CodeRemittanceNotFound, dErrors.CodeOf(err))
		})
	})

	testutil.Given(t, "a cancelled remittance", func(t *testing.T) {
		h := newHarness(t, 250)
		h.fund(t, sender.Principal(), 500)
		require.NoError(t, h.svc.RegisterAgent(h.ctx, models.NewCaller(admin), agent.Principal()))
		r, err := h.svc.CreateRemittance(h.ctx, sender, sender.Principal(), agent.Principal(), amount.New(500), nil)
		require.NoError(t, err)
		_, err = h.svc.CancelRemittance(h.ctx, sender, r.ID)
		require.NoError(t, err)

		testutil.Then(t, "the sender is refunded in full and no fee accrues", func(t *testing.T) {
			assert.Equal(t, "500", h.balance(t, sender.Principal()))
			assert.Equal(t, "0", h.balance(t, custody))
			fees, err := h.svc.AccumulatedFees(h.ctx)
			require.NoError(t, err)
			assert.True(t, fees.IsZero())
		})
	})
}

// TestCustodyInvariant drives a random mix of operations and checks that
// custody always holds exactly the pending amounts plus accumulated fees.
func TestCustodyInvariant(t *testing.T) {
	senders := []id.Principal{"GALICE", "GBOB", "GCAROL"}
	agents := []id.Principal{"GAGENT1", "GAGENT2"}

	h := newHarness(t, 175)
	for _, a := range agents {
		require.NoError(t, h.svc.RegisterAgent(h.ctx, models.NewCaller(admin), a))
	}
	for _, s := range senders {
		h.fund(t, s, 1_000_000)
	}

	rng := rand.New(rand.NewPCG(7, 11))
	var created uint64
	for step := 0; step < 300; step++ {
		switch rng.IntN(5) {
		case 0, 1:
			s := senders[rng.IntN(len(senders))]
			a := agents[rng.IntN(len(agents))]
			r, err := h.svc.CreateRemittance(h.ctx, models.NewCaller(s), s, a, amount.New(int64(1+rng.IntN(20_000))), nil)
			if err == nil {
				created = uint64(r.ID)
			} else {
				require.Equal(t, dErrors.CodeInsufficientBalance, dErrors.CodeOf(err))
			}
		case 2:
			if created == 0 {
				continue
			}
			rid := id.RemittanceID(1 + rng.Uint64N(created))
			r, err := h.svc.GetRemittance(h.ctx, rid)
			require.NoError(t, err)
			_, _ = h.svc.ConfirmPayout(h.ctx, models.NewCaller(r.Agent), rid)
		case 3:
			if created == 0 {
				continue
			}
			rid := id.RemittanceID(1 + rng.Uint64N(created))
			r, err := h.svc.GetRemittance(h.ctx, rid)
			require.NoError(t, err)
			_, _ = h.svc.CancelRemittance(h.ctx, models.NewCaller(r.Sender), rid)
		case 4:
			if rng.IntN(10) == 0 {
				_, _ = h.svc.WithdrawFees(h.ctx, models.NewCaller(admin), "GTREASURY")
			}
		}

		fees, err := h.svc.AccumulatedFees(h.ctx)
		require.NoError(t, err)
		want, err := h.pendingTotal(t, created).Add(fees)
		require.NoError(t, err)
		require.Equal(t, want.String(), h.balance(t, custody), "step %d", step)
	}
}

func TestPauseScope(t *testing.T) {
	sender := models.NewCaller("GSENDER")
	agent := models.NewCaller("GAGENT")
	h := newHarness(t, 250)
	h.fund(t, sender.Principal(), 3000)
	require.NoError(t, h.svc.RegisterAgent(h.ctx, models.NewCaller(admin), agent.Principal()))

	first, err := h.svc.CreateRemittance(h.ctx, sender, sender.Principal(), agent.Principal(), amount.New(1000), nil)
	require.NoError(t, err)
	require.NoError(t, h.svc.Pause(h.ctx, models.NewCaller(admin)))

	_, err = h.svc.ConfirmPayout(h.ctx, agent, first.ID)
	assert.Equal(t, dErrors.CodeContractPaused, dErrors.CodeOf(err))

	second, err := h.svc.CreateRemittance(h.ctx, sender, sender.Principal(), agent.Principal(), amount.New(1000), nil)
	require.NoError(t, err, "creation continues while paused")
	_, err = h.svc.CancelRemittance(h.ctx, sender, second.ID)
	require.NoError(t, err, "cancellation continues while paused")

	require.NoError(t, h.svc.Unpause(h.ctx, models.NewCaller(admin)))
	_, err = h.svc.ConfirmPayout(h.ctx, agent, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "975", h.balance(t, agent.Principal()))
}

func TestCustodyCannotFundItsOwnRemittance(t *testing.T) {
	alice := models.NewCaller("GALICE")
	agent := models.NewCaller("GAGENT")

	testutil.Given(t, "alice has 1000 in escrow", func(t *testing.T) {
		h := newHarness(t, 0)
		h.fund(t, alice.Principal(), 1000)
		require.NoError(t, h.svc.RegisterAgent(h.ctx, models.NewCaller(admin), agent.Principal()))
		_, err := h.svc.CreateRemittance(h.ctx, alice, alice.Principal(), agent.Principal(), amount.New(1000), nil)
		require.NoError(t, err)

		testutil.When(t, "the custody account tries to escrow for itself", func(t *testing.T) {
			_, err := h.svc.CreateRemittance(h.ctx, models.NewCaller(custody), custody, agent.Principal(), amount.New(1000), nil)

			testutil.Then(t, "it is rejected and custody still matches pending plus fees", func(t *testing.T) {
				assert.Equal(t, dErrors.CodeInvalidAddress, dErrors.CodeOf(err))
				_, err := h.svc.GetRemittance(h.ctx, 2)
				assert.Equal(t, dErrors.CodeRemittanceNotFound, dErrors.CodeOf(err))

				fees, err := h.svc.AccumulatedFees(h.ctx)
				require.NoError(t, err)
				want, err := h.pendingTotal(t, 2).Add(fees)
				require.NoError(t, err)
				assert.Equal(t, want.String(), h.balance(t, custody))
				assert.Equal(t, "1000", h.balance(t, custody))
			})
		})
	})
}

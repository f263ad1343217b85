package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"swiftremit/internal/remittance/events"
	"swiftremit/internal/remittance/models"
	"swiftremit/internal/remittance/store"
	"swiftremit/internal/remittance/validation"
	"swiftremit/pkg/amount"
	id "swiftremit/pkg/domain"
	dErrors "swiftremit/pkg/domain-errors"
	"swiftremit/pkg/platform/sentinel"
	"swiftremit/pkg/requestcontext"
)

// CreateRemittance escrows amt from sender into custody for later payout to
// agent. The fee is fixed now from the rate in force.
func (s *Service) CreateRemittance(
	ctx context.Context,
	caller models.Caller,
	sender, agent id.Principal,
	amt amount.Amount,
	expiry *time.Time,
) (*models.Remittance, error) {
	var created *models.Remittance
	attrs := []attribute.KeyValue{attribute.String("sender", sender.String()), attribute.String("agent", agent.String())}
	err := s.write(ctx, opCreate, attrs, func(ctx context.Context, acc store.Accessor, emit func(...events.Event)) error {
		if err := caller.Require(sender); err != nil {
			return err
		}
		if !amt.IsPositive() {
			return dErrors.New(dErrors.CodeInvalidAmount, "amount must be positive")
		}
		if err := validation.Source(sender, s.custody); err != nil {
			return err
		}
		// An agent equal to custody could never be paid on confirm.
		if err := validation.Recipient(agent, s.custody); err != nil {
			return err
		}
		cfg, err := loadConfig(ctx, acc.Reader)
		if err != nil {
			return err
		}
		registered, err := acc.AgentRegistered(ctx, agent)
		if err != nil {
			return storageErr(err, "failed to load agent registration")
		}
		if !registered {
			return dErrors.New(dErrors.CodeAgentNotRegistered, "agent is not registered")
		}
		fee, err := cfg.FeeFor(amt)
		if err != nil {
			return err
		}
		remittanceID, err := cfg.NextRemittanceID()
		if err != nil {
			return err
		}

		if err := s.assets.Transfer(ctx, sender, s.custody, amt); err != nil {
			return transferErr(err)
		}

		now := requestcontext.Now(ctx)
		r, err := models.NewRemittance(remittanceID, sender, agent, amt, fee, expiry, now)
		if err != nil {
			return err
		}
		if err := acc.SaveRemittance(ctx, r); err != nil {
			return storageErr(err, "failed to save remittance")
		}
		if err := acc.SetCounter(ctx, uint64(remittanceID)); err != nil {
			return storageErr(err, "failed to advance remittance counter")
		}

		emit(events.RemittanceCreated(ctx, r, cfg.Asset))
		created = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RemittancesCreated.Inc()
	}
	s.logAudit(ctx, events.KindRemittanceCreated,
		"remittance_id", created.ID,
		"sender", created.Sender,
		"agent", created.Agent,
		"amount", created.Amount.String(),
		"fee", created.Fee.String(),
	)
	return created, nil
}

// ConfirmPayout releases amount minus fee from custody to the agent and
// accrues the fee. It exactly-once settles the remittance: the settlement
// marker is checked before any transfer and written in the same unit of
// work as the status change.
func (s *Service) ConfirmPayout(ctx context.Context, caller models.Caller, remittanceID id.RemittanceID) (*models.Remittance, error) {
	var (
		completed *models.Remittance
		payout    amount.Amount
	)
	attrs := []attribute.KeyValue{attribute.String("remittance_id", remittanceID.String())}
	err := s.write(ctx, opConfirm, attrs, func(ctx context.Context, acc store.Accessor, emit func(...events.Event)) error {
		paused, err := acc.Paused(ctx)
		if err != nil {
			return storageErr(err, "failed to load pause state")
		}
		if paused {
			return dErrors.New(dErrors.CodeContractPaused, "settlements are paused")
		}

		r, err := loadRemittance(ctx, acc.Reader, remittanceID)
		if err != nil {
			return err
		}
		if err := caller.Require(r.Agent); err != nil {
			return err
		}
		if err := r.CanComplete(); err != nil {
			return err
		}

		settled, err := acc.HasSettlementMarker(ctx, r.ID)
		if err != nil {
			return storageErr(err, "failed to check settlement marker")
		}
		if settled {
			return dErrors.New(dErrors.CodeDuplicateSettlement, "remittance already settled")
		}

		now := requestcontext.Now(ctx)
		if r.IsExpired(now) {
			return dErrors.New(dErrors.CodeSettlementExpired, "settlement window has expired")
		}
		if err := validation.Recipient(r.Agent, s.custody); err != nil {
			return err
		}

		payout, err = r.Payout()
		if err != nil {
			return err
		}
		cfg, err := loadConfig(ctx, acc.Reader)
		if err != nil {
			return err
		}

		// A 100% fee leaves nothing to move.
		if payout.IsPositive() {
			if err := s.assets.Transfer(ctx, s.custody, r.Agent, payout); err != nil {
				return transferErr(err)
			}
		}

		fees, err := cfg.AccumulatedFees.Add(r.Fee)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeOverflow, "accumulated fees overflowed")
		}
		if err := acc.SetAccumulatedFees(ctx, fees); err != nil {
			return storageErr(err, "failed to accrue fee")
		}

		r.ApplyCompletion(now)
		if err := acc.SaveRemittance(ctx, r); err != nil {
			return storageErr(err, "failed to save remittance")
		}
		if err := acc.MarkSettled(ctx, r.ID, now); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeDuplicateSettlement, "remittance already settled")
			}
			return storageErr(err, "failed to write settlement marker")
		}

		emit(
			events.RemittanceCompleted(ctx, r, cfg.Asset, payout),
			events.SettlementCompleted(ctx, r, cfg.Asset, payout),
		)
		completed = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.Settlements.Inc()
	}
	s.logAudit(ctx, events.KindRemittanceCompleted,
		"remittance_id", completed.ID,
		"agent", completed.Agent,
		"payout", payout.String(),
		"fee", completed.Fee.String(),
	)
	return completed, nil
}

// CancelRemittance refunds the full amount to the sender. It is not limited
// by expiry or by the pause switch.
func (s *Service) CancelRemittance(ctx context.Context, caller models.Caller, remittanceID id.RemittanceID) (*models.Remittance, error) {
	var cancelled *models.Remittance
	attrs := []attribute.KeyValue{attribute.String("remittance_id", remittanceID.String())}
	err := s.write(ctx, opCancel, attrs, func(ctx context.Context, acc store.Accessor, emit func(...events.Event)) error {
		r, err := loadRemittance(ctx, acc.Reader, remittanceID)
		if err != nil {
			return err
		}
		if err := caller.Require(r.Sender); err != nil {
			return err
		}
		if err := r.CanCancel(); err != nil {
			return err
		}
		cfg, err := loadConfig(ctx, acc.Reader)
		if err != nil {
			return err
		}

		if err := s.assets.Transfer(ctx, s.custody, r.Sender, r.Amount); err != nil {
			return transferErr(err)
		}

		r.ApplyCancellation(requestcontext.Now(ctx))
		if err := acc.SaveRemittance(ctx, r); err != nil {
			return storageErr(err, "failed to save remittance")
		}

		emit(events.RemittanceCancelled(ctx, r, cfg.Asset))
		cancelled = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.Cancellations.Inc()
	}
	s.logAudit(ctx, events.KindRemittanceCancelled,
		"remittance_id", cancelled.ID,
		"sender", cancelled.Sender,
		"amount", cancelled.Amount.String(),
	)
	return cancelled, nil
}

// WithdrawFees pays every accumulated fee to `to` and resets the
// accumulator. Only the admin may withdraw.
func (s *Service) WithdrawFees(ctx context.Context, caller models.Caller, to id.Principal) (amount.Amount, error) {
	var withdrawn amount.Amount
	attrs := []attribute.KeyValue{attribute.String("to", to.String())}
	err := s.write(ctx, opWithdrawFees, attrs, func(ctx context.Context, acc store.Accessor, emit func(...events.Event)) error {
		admin, err := requireAdmin(ctx, acc.Reader, caller)
		if err != nil {
			return err
		}
		if err := validation.Recipient(to, s.custody); err != nil {
			return err
		}
		cfg, err := loadConfig(ctx, acc.Reader)
		if err != nil {
			return err
		}
		if !cfg.AccumulatedFees.IsPositive() {
			return dErrors.New(dErrors.CodeNoFeesToWithdraw, "no fees to withdraw")
		}

		if err := s.assets.Transfer(ctx, s.custody, to, cfg.AccumulatedFees); err != nil {
			return transferErr(err)
		}
		if err := acc.SetAccumulatedFees(ctx, amount.Zero); err != nil {
			return storageErr(err, "failed to reset accumulated fees")
		}

		emit(events.FeesWithdrawn(ctx, admin, to, cfg.Asset, cfg.AccumulatedFees))
		withdrawn = cfg.AccumulatedFees
		return nil
	})
	if err != nil {
		return amount.Zero, err
	}
	if s.metrics != nil {
		s.metrics.FeeWithdrawals.Inc()
	}
	s.logAudit(ctx, events.KindFeesWithdrawn,
		"to", to,
		"amount", withdrawn.String(),
	)
	return withdrawn, nil
}

func loadRemittance(ctx context.Context, r store.Reader, remittanceID id.RemittanceID) (*models.Remittance, error) {
	rem, err := r.Remittance(ctx, remittanceID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeRemittanceNotFound, "remittance not found")
	}
	if err != nil {
		return nil, storageErr(err, "failed to load remittance")
	}
	return rem, nil
}

func requireAdmin(ctx context.Context, r store.Reader, caller models.Caller) (id.Principal, error) {
	admin, err := r.Admin(ctx)
	if errors.Is(err, sentinel.ErrNotFound) {
		return "", dErrors.New(dErrors.CodeNotInitialized, "ledger is not initialized")
	}
	if err != nil {
		return "", storageErr(err, "failed to load admin")
	}
	if err := caller.Require(admin); err != nil {
		return "", err
	}
	return admin, nil
}

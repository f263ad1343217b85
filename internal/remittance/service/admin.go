package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"swiftremit/internal/remittance/events"
	"swiftremit/internal/remittance/models"
	"swiftremit/internal/remittance/store"
	"swiftremit/internal/remittance/validation"
	"swiftremit/pkg/amount"
	id "swiftremit/pkg/domain"
	dErrors "swiftremit/pkg/domain-errors"
	"swiftremit/pkg/requestcontext"
)

// Initialize configures a fresh ledger. It needs no authorization and
// succeeds exactly once per ledger instance.
func (s *Service) Initialize(ctx context.Context, admin, asset id.Principal, feeBps uint32) (*models.Config, error) {
	var cfg *models.Config
	attrs := []attribute.KeyValue{attribute.String("admin", admin.String()), attribute.Int("fee_bps", int(feeBps))}
	err := s.write(ctx, opInitialize, attrs, func(ctx context.Context, acc store.Accessor, emit func(...events.Event)) error {
		initialized, err := acc.HasAdmin(ctx)
		if err != nil {
			return storageErr(err, "failed to check initialization")
		}
		if initialized {
			return dErrors.New(dErrors.CodeAlreadyInitialized, "ledger is already initialized")
		}
		if err := models.ValidateFeeBps(feeBps); err != nil {
			return err
		}
		if err := validation.Principal(admin); err != nil {
			return err
		}
		if err := validation.Principal(asset); err != nil {
			return err
		}
		if !s.asset.IsZero() && asset != s.asset {
			return dErrors.New(dErrors.CodeInvalidAddress, "asset does not match the settlement asset")
		}

		cfg = &models.Config{Admin: admin, Asset: asset, FeeBps: feeBps}
		for _, set := range []func() error{
			func() error { return acc.SetAdmin(ctx, admin) },
			func() error { return acc.SetAsset(ctx, asset) },
			func() error { return acc.SetFeeBps(ctx, feeBps) },
			func() error { return acc.SetCounter(ctx, 0) },
			func() error { return acc.SetAccumulatedFees(ctx, amount.Zero) },
			func() error { return acc.SetPaused(ctx, false) },
		} {
			if err := set(); err != nil {
				return storageErr(err, "failed to write configuration")
			}
		}

		emit(events.Initialized(ctx, admin, asset, feeBps))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, events.KindInitialized,
		"admin", admin,
		"asset", asset,
		"fee_bps", feeBps,
	)
	return cfg, nil
}

// RegisterAgent allows agent to be named as payee of new remittances.
func (s *Service) RegisterAgent(ctx context.Context, caller models.Caller, agent id.Principal) error {
	return s.setAgent(ctx, caller, agent, true)
}

// RemoveAgent blocks agent from new remittances. Pending remittances that
// already name the agent can still be confirmed by it.
func (s *Service) RemoveAgent(ctx context.Context, caller models.Caller, agent id.Principal) error {
	return s.setAgent(ctx, caller, agent, false)
}

func (s *Service) setAgent(ctx context.Context, caller models.Caller, agent id.Principal, registered bool) error {
	op, kind := opRegisterAgent, events.KindAgentRegistered
	if !registered {
		op, kind = opRemoveAgent, events.KindAgentRemoved
	}
	attrs := []attribute.KeyValue{attribute.String("agent", agent.String())}
	err := s.write(ctx, op, attrs, func(ctx context.Context, acc store.Accessor, emit func(...events.Event)) error {
		admin, err := requireAdmin(ctx, acc.Reader, caller)
		if err != nil {
			return err
		}
		if err := validation.Principal(agent); err != nil {
			return err
		}
		if err := acc.SetAgentRegistered(ctx, agent, registered); err != nil {
			return storageErr(err, "failed to update agent registry")
		}
		if registered {
			emit(events.AgentRegistered(ctx, agent, admin))
		} else {
			emit(events.AgentRemoved(ctx, agent, admin))
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logAudit(ctx, kind, "agent", agent)
	return nil
}

// UpdateFee changes the rate applied to remittances created from now on.
// Existing remittances keep the fee fixed at their creation.
func (s *Service) UpdateFee(ctx context.Context, caller models.Caller, feeBps uint32) (uint32, error) {
	var previous uint32
	attrs := []attribute.KeyValue{attribute.Int("fee_bps", int(feeBps))}
	err := s.write(ctx, opUpdateFee, attrs, func(ctx context.Context, acc store.Accessor, emit func(...events.Event)) error {
		admin, err := requireAdmin(ctx, acc.Reader, caller)
		if err != nil {
			return err
		}
		if err := models.ValidateFeeBps(feeBps); err != nil {
			return err
		}
		if previous, err = acc.FeeBps(ctx); err != nil {
			return storageErr(err, "failed to load fee rate")
		}
		if err := acc.SetFeeBps(ctx, feeBps); err != nil {
			return storageErr(err, "failed to write fee rate")
		}
		emit(events.FeeUpdated(ctx, admin, previous, feeBps))
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logAudit(ctx, events.KindFeeUpdated,
		"old_fee_bps", previous,
		"new_fee_bps", feeBps,
	)
	return previous, nil
}

// Pause stops payout confirmations. Creation, cancellation and fee
// withdrawal continue while paused.
func (s *Service) Pause(ctx context.Context, caller models.Caller) error {
	return s.setPaused(ctx, caller, true)
}

func (s *Service) Unpause(ctx context.Context, caller models.Caller) error {
	return s.setPaused(ctx, caller, false)
}

func (s *Service) setPaused(ctx context.Context, caller models.Caller, paused bool) error {
	op, kind := opPause, events.KindPaused
	if !paused {
		op, kind = opUnpause, events.KindUnpaused
	}
	err := s.write(ctx, op, nil, func(ctx context.Context, acc store.Accessor, emit func(...events.Event)) error {
		admin, err := requireAdmin(ctx, acc.Reader, caller)
		if err != nil {
			return err
		}
		if err := acc.SetPaused(ctx, paused); err != nil {
			return storageErr(err, "failed to write pause state")
		}
		if paused {
			emit(events.Paused(ctx, admin))
		} else {
			emit(events.Unpaused(ctx, admin))
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logAudit(ctx, kind)
	return nil
}

func (s *Service) logAudit(ctx context.Context, kind events.Kind, attributes ...any) {
	args := append(attributes,
		"log_type", "audit",
		"request_id", requestcontext.RequestID(ctx),
		"principal", requestcontext.Principal(ctx),
	)
	s.logger.InfoContext(ctx, string(kind), args...)
}

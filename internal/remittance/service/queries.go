package service

import (
	"context"
	"errors"

	"swiftremit/internal/remittance/models"
	"swiftremit/internal/remittance/store"
	"swiftremit/internal/storage"
	"swiftremit/pkg/amount"
	id "swiftremit/pkg/domain"
	dErrors "swiftremit/pkg/domain-errors"
	"swiftremit/pkg/platform/sentinel"
	"swiftremit/pkg/requestcontext"
)

// GetRemittance returns one remittance or CodeRemittanceNotFound.
func (s *Service) GetRemittance(ctx context.Context, remittanceID id.RemittanceID) (*models.Remittance, error) {
	var out *models.Remittance
	err := s.read(ctx, opGetRemittance, func(ctx context.Context, r store.Reader) error {
		var err error
		out, err = loadRemittance(ctx, r, remittanceID)
		return err
	})
	return out, err
}

// GetRemittances returns the known remittances among ids, ordered by id.
func (s *Service) GetRemittances(ctx context.Context, ids []id.RemittanceID) ([]*models.Remittance, error) {
	var out []*models.Remittance
	err := s.read(ctx, opGetRemittances, func(ctx context.Context, r store.Reader) error {
		var err error
		out, err = r.Remittances(ctx, ids)
		return storageErr(err, "failed to load remittances")
	})
	return out, err
}

// AccumulatedFees returns fees awaiting withdrawal; zero before
// initialization.
func (s *Service) AccumulatedFees(ctx context.Context) (amount.Amount, error) {
	var fees amount.Amount
	err := s.read(ctx, opAccumulatedFees, func(ctx context.Context, r store.Reader) error {
		var err error
		fees, err = r.AccumulatedFees(ctx)
		return storageErr(err, "failed to load accumulated fees")
	})
	return fees, err
}

func (s *Service) IsAgentRegistered(ctx context.Context, agent id.Principal) (bool, error) {
	var registered bool
	err := s.read(ctx, opIsAgent, func(ctx context.Context, r store.Reader) error {
		var err error
		registered, err = r.AgentRegistered(ctx, agent)
		return storageErr(err, "failed to load agent registration")
	})
	return registered, err
}

// PlatformFeeBps returns the current rate or CodeNotInitialized.
func (s *Service) PlatformFeeBps(ctx context.Context) (uint32, error) {
	var bps uint32
	err := s.read(ctx, opFeeBps, func(ctx context.Context, r store.Reader) error {
		var err error
		bps, err = r.FeeBps(ctx)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotInitialized, "ledger is not initialized")
		}
		return storageErr(err, "failed to load fee rate")
	})
	return bps, err
}

func (s *Service) IsPaused(ctx context.Context) (bool, error) {
	var paused bool
	err := s.read(ctx, opIsPaused, func(ctx context.Context, r store.Reader) error {
		var err error
		paused, err = r.Paused(ctx)
		return storageErr(err, "failed to load pause state")
	})
	return paused, err
}

// Config returns the full configuration or CodeNotInitialized.
func (s *Service) Config(ctx context.Context) (*models.Config, error) {
	var cfg *models.Config
	err := s.store.View(ctx, func(ctx context.Context, r storage.Reader) error {
		var err error
		cfg, err = loadConfig(ctx, store.NewReader(r))
		return err
	})
	return cfg, err
}

// Health reports whether storage answers and whether the ledger has been
// initialized. It never returns an error; a failing backend is reported as
// not operational.
func (s *Service) Health(ctx context.Context) models.Health {
	h := models.Health{Timestamp: requestcontext.Now(ctx)}
	err := s.store.View(ctx, func(ctx context.Context, r storage.Reader) error {
		var err error
		h.Initialized, err = store.NewReader(r).HasAdmin(ctx)
		return err
	})
	h.Operational = err == nil
	return h
}

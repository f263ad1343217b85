package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"swiftremit/internal/remittance/events"
	"swiftremit/internal/remittance/metrics"
	"swiftremit/internal/remittance/models"
	"swiftremit/internal/remittance/store"
	"swiftremit/internal/storage"
	"swiftremit/pkg/amount"
	id "swiftremit/pkg/domain"
	dErrors "swiftremit/pkg/domain-errors"
	"swiftremit/pkg/platform/sentinel"
	"swiftremit/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks AssetLedger,EventPublisher

// AssetLedger moves the settlement asset between accounts. Implementations
// must join the unit of work carried in ctx (storage.TxFrom) so a transfer
// rolls back with the ledger operation that requested it.
type AssetLedger interface {
	Transfer(ctx context.Context, from, to id.Principal, amt amount.Amount) error
}

// EventPublisher receives the events of committed operations.
type EventPublisher interface {
	Publish(ctx context.Context, evts ...events.Event) error
}

// Service is the remittance settlement engine. Every operation runs as a
// single storage unit of work and re-reads all state it depends on.
type Service struct {
	store     storage.Store
	assets    AssetLedger
	custody   id.Principal
	asset     id.Principal
	publisher EventPublisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithPublisher(publisher EventPublisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithSettlementAsset pins the asset the AssetLedger moves. Initialize then
// rejects any other asset, so events never name an asset whose balances
// this ledger does not hold.
func WithSettlementAsset(asset id.Principal) Option {
	return func(s *Service) {
		s.asset = asset
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// New constructs a Service. custody is the account that holds escrowed
// funds and accumulated fees.
func New(st storage.Store, assets AssetLedger, custody id.Principal, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, errors.New("store is required")
	}
	if assets == nil {
		return nil, errors.New("asset ledger is required")
	}
	if custody.IsZero() {
		return nil, errors.New("custody account is required")
	}
	s := &Service{
		store:   st,
		assets:  assets,
		custody: custody,
		logger:  slog.Default(),
		tracer:  otel.Tracer("swiftremit/remittance"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Custody returns the escrow account.
func (s *Service) Custody() id.Principal { return s.custody }

// Operation names used for metrics, spans and logs.
const (
	opInitialize      = "initialize"
	opRegisterAgent   = "register_agent"
	opRemoveAgent     = "remove_agent"
	opUpdateFee       = "update_fee"
	opCreate          = "create_remittance"
	opConfirm         = "confirm_payout"
	opCancel          = "cancel_remittance"
	opWithdrawFees    = "withdraw_fees"
	opPause           = "pause"
	opUnpause         = "unpause"
	opGetRemittance   = "get_remittance"
	opGetRemittances  = "get_remittances"
	opAccumulatedFees = "get_accumulated_fees"
	opIsAgent         = "is_agent_registered"
	opFeeBps          = "get_platform_fee"
	opIsPaused        = "is_paused"
)

// write runs fn in a unit of work and publishes the events fn collected once
// the unit of work has committed.
func (s *Service) write(ctx context.Context, op string, attrs []attribute.KeyValue, fn func(ctx context.Context, acc store.Accessor, emit func(...events.Event)) error) error {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "remittance."+op, trace.WithAttributes(attrs...))
	defer span.End()

	var pending []events.Event
	err := s.store.RunInTx(ctx, func(ctx context.Context, kv storage.KV) error {
		pending = pending[:0]
		return fn(ctx, store.New(kv), func(evts ...events.Event) {
			pending = append(pending, evts...)
		})
	})
	s.finish(ctx, span, op, start, err)
	if err != nil {
		return err
	}
	s.publish(ctx, pending)
	return nil
}

// read runs fn against committed state.
func (s *Service) read(ctx context.Context, op string, fn func(ctx context.Context, r store.Reader) error) error {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "remittance."+op)
	defer span.End()

	err := s.store.View(ctx, func(ctx context.Context, r storage.Reader) error {
		return fn(ctx, store.NewReader(r))
	})
	s.finish(ctx, span, op, start, err)
	return err
}

func (s *Service) finish(ctx context.Context, span trace.Span, op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(dErrors.CodeOf(err))
		if outcome == "" {
			outcome = string(dErrors.CodeInternal)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		level := slog.LevelWarn
		if outcome == string(dErrors.CodeInternal) || outcome == string(dErrors.CodeTimeout) {
			level = slog.LevelError
		}
		s.logger.Log(ctx, level, "ledger operation failed",
			"operation", op,
			"outcome", outcome,
			"error", err.Error(),
			"request_id", requestcontext.RequestID(ctx),
			"principal", requestcontext.Principal(ctx),
		)
	}
	if s.metrics != nil {
		s.metrics.ObserveOperation(op, outcome, start)
	}
}

func (s *Service) publish(ctx context.Context, evts []events.Event) {
	if len(evts) == 0 {
		return
	}
	if s.metrics != nil {
		for _, e := range evts {
			s.metrics.IncrementEvent(string(e.Kind))
		}
	}
	if s.publisher == nil {
		return
	}
	// The ledger change is already committed; a failed publish is reported
	// but never surfaces to the caller.
	if err := s.publisher.Publish(ctx, evts...); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish ledger events",
			"error", err,
			"count", len(evts),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

// loadConfig maps a missing configuration to CodeNotInitialized.
func loadConfig(ctx context.Context, r store.Reader) (*models.Config, error) {
	cfg, err := r.Config(ctx)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotInitialized, "ledger is not initialized")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load configuration")
	}
	return cfg, nil
}

func storageErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	if dErrors.CodeOf(err) != "" {
		return err
	}
	if errors.Is(err, sentinel.ErrConflict) {
		return dErrors.Wrap(err, dErrors.CodeConflict, msg+": concurrent update, retry")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

// transferErr keeps coded failures from the asset ledger (insufficient
// balance and the like) and wraps everything else.
func transferErr(err error) error {
	if dErrors.CodeOf(err) != "" {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "asset transfer failed")
}

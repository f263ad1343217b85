package remittance

import (
	"log/slog"

	"swiftremit/internal/remittance/handler"
	"swiftremit/internal/remittance/service"
	"swiftremit/internal/storage"
	id "swiftremit/pkg/domain"
	"swiftremit/pkg/platform/middleware/auth"
)

// Service exposes the settlement ledger operations.
type Service = service.Service

// Handler wires HTTP endpoints to the ledger service.
type Handler = handler.Handler

// NewService constructs the ledger service over st, moving funds through
// assets with custody as the escrow account.
func NewService(st storage.Store, assets service.AssetLedger, custody id.Principal, opts ...service.Option) (*Service, error) {
	return service.New(st, assets, custody, opts...)
}

// NewHandler constructs the HTTP handler for the ledger routes.
func NewHandler(s *Service, validator auth.PrincipalValidator, logger *slog.Logger, opts ...handler.Option) *Handler {
	return handler.New(s, validator, logger, opts...)
}

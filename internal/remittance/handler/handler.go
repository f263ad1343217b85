package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"swiftremit/internal/remittance/events"
	"swiftremit/internal/remittance/models"
	"swiftremit/pkg/amount"
	id "swiftremit/pkg/domain"
	dErrors "swiftremit/pkg/domain-errors"
	"swiftremit/pkg/platform/httputil"
	"swiftremit/pkg/platform/middleware/admin"
	"swiftremit/pkg/platform/middleware/auth"
	"swiftremit/pkg/requestcontext"
)

// Service is the ledger surface exposed over HTTP.
type Service interface {
	Initialize(ctx context.Context, admin, asset id.Principal, feeBps uint32) (*models.Config, error)
	RegisterAgent(ctx context.Context, caller models.Caller, agent id.Principal) error
	RemoveAgent(ctx context.Context, caller models.Caller, agent id.Principal) error
	UpdateFee(ctx context.Context, caller models.Caller, feeBps uint32) (uint32, error)
	Pause(ctx context.Context, caller models.Caller) error
	Unpause(ctx context.Context, caller models.Caller) error
	CreateRemittance(ctx context.Context, caller models.Caller, sender, agent id.Principal, amt amount.Amount, expiry *time.Time) (*models.Remittance, error)
	ConfirmPayout(ctx context.Context, caller models.Caller, remittanceID id.RemittanceID) (*models.Remittance, error)
	CancelRemittance(ctx context.Context, caller models.Caller, remittanceID id.RemittanceID) (*models.Remittance, error)
	WithdrawFees(ctx context.Context, caller models.Caller, to id.Principal) (amount.Amount, error)
	GetRemittance(ctx context.Context, remittanceID id.RemittanceID) (*models.Remittance, error)
	GetRemittances(ctx context.Context, ids []id.RemittanceID) ([]*models.Remittance, error)
	AccumulatedFees(ctx context.Context) (amount.Amount, error)
	IsAgentRegistered(ctx context.Context, agent id.Principal) (bool, error)
	PlatformFeeBps(ctx context.Context) (uint32, error)
	IsPaused(ctx context.Context) (bool, error)
	Config(ctx context.Context) (*models.Config, error)
	Health(ctx context.Context) models.Health
}

// EventSource serves the recent event history.
type EventSource interface {
	Recent(limit int) []events.Event
	ForRemittance(remittanceID id.RemittanceID, limit int) []events.Event
}

// Faucet credits and reads asset balances. It backs the development mint
// route and the balance query.
type Faucet interface {
	Mint(ctx context.Context, account id.Principal, amt amount.Amount) (amount.Amount, error)
	Balance(ctx context.Context, account id.Principal) (amount.Amount, error)
}

const defaultEventLimit = 100

// Handler wires the ledger endpoints to the service.
type Handler struct {
	service     Service
	validator   auth.PrincipalValidator
	logger      *slog.Logger
	decimals    int32
	events      EventSource
	faucet      Faucet
	faucetToken string
	createGuard func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithAssetDecimals sets the scale used for display amounts.
func WithAssetDecimals(decimals int32) Option {
	return func(h *Handler) { h.decimals = decimals }
}

func WithEvents(src EventSource) Option {
	return func(h *Handler) { h.events = src }
}

// WithFaucet enables POST /v1/dev/mint behind the X-Admin-Token header and
// GET /v1/balances/{account}.
func WithFaucet(f Faucet, token string) Option {
	return func(h *Handler) {
		h.faucet = f
		h.faucetToken = token
	}
}

// WithCreateMiddleware wraps POST /v1/remittances, typically with the
// idempotency replay middleware. It runs after authentication.
func WithCreateMiddleware(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) { h.createGuard = mw }
}

func New(service Service, validator auth.PrincipalValidator, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		service:   service,
		validator: validator,
		logger:    logger,
		decimals:  7,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the ledger endpoints on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.HandleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Post("/ledger/initialize", h.HandleInitialize)
			r.Get("/ledger", h.HandleGetConfig)
			r.Get("/ledger/fee", h.HandleGetFee)
			r.Get("/ledger/paused", h.HandleGetPaused)
			r.Get("/ledger/fees", h.HandleGetFees)
			r.Get("/agents/{agent}", h.HandleGetAgent)
			r.Get("/remittances", h.HandleListRemittances)
			r.Get("/remittances/{id}", h.HandleGetRemittance)
			if h.events != nil {
				r.Get("/events", h.HandleEvents)
			}
			if h.faucet != nil {
				r.Get("/balances/{account}", h.HandleBalance)
			}
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(h.validator, h.logger))
			r.Put("/ledger/fee", h.HandleUpdateFee)
			r.Post("/ledger/pause", h.HandlePause)
			r.Post("/ledger/unpause", h.HandleUnpause)
			r.Post("/ledger/fees/withdraw", h.HandleWithdrawFees)
			r.Put("/agents/{agent}", h.HandleRegisterAgent)
			r.Delete("/agents/{agent}", h.HandleRemoveAgent)
			r.Post("/remittances/{id}/confirm", h.HandleConfirm)
			r.Post("/remittances/{id}/cancel", h.HandleCancel)

			create := http.Handler(http.HandlerFunc(h.HandleCreateRemittance))
			if h.createGuard != nil {
				create = h.createGuard(create)
			}
			r.Method(http.MethodPost, "/remittances", create)
		})

		if h.faucet != nil {
			r.Group(func(r chi.Router) {
				r.Use(admin.RequireAdminToken(h.faucetToken, h.logger))
				r.Post("/dev/mint", h.HandleMint)
			})
		}
	})
}

func caller(ctx context.Context) models.Caller {
	p := requestcontext.Principal(ctx)
	if p.IsZero() {
		return models.Anonymous
	}
	return models.NewCaller(p)
}

func remittanceIDParam(r *http.Request) (id.RemittanceID, error) {
	return id.ParseRemittanceID(chi.URLParam(r, "id"))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	level := slog.LevelWarn
	if httputil.StatusFor(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, op+" failed",
		"request_id", requestcontext.RequestID(ctx),
		"principal", requestcontext.Principal(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}

// HandleHealth handles GET /health.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := h.service.Health(r.Context())
	status := http.StatusOK
	if !health.Operational {
		status = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, status, health)
}

// HandleInitialize handles POST /v1/ledger/initialize.
func (h *Handler) HandleInitialize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[InitializeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	cfg, err := h.service.Initialize(ctx, id.Principal(req.Admin), id.Principal(req.Asset), req.FeeBps)
	if err != nil {
		h.fail(w, r, "initialize", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, h.toConfigResponse(cfg))
}

func (h *Handler) toConfigResponse(cfg *models.Config) ConfigResponse {
	return ConfigResponse{
		Admin:           cfg.Admin,
		Asset:           cfg.Asset,
		FeeBps:          cfg.FeeBps,
		Counter:         cfg.Counter,
		AccumulatedFees: h.money(cfg.AccumulatedFees),
		Paused:          cfg.Paused,
	}
}

// HandleGetConfig handles GET /v1/ledger.
func (h *Handler) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.Config(r.Context())
	if err != nil {
		h.fail(w, r, "get config", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.toConfigResponse(cfg))
}

func (h *Handler) HandleGetFee(w http.ResponseWriter, r *http.Request) {
	bps, err := h.service.PlatformFeeBps(r.Context())
	if err != nil {
		h.fail(w, r, "get fee", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FeeResponse{FeeBps: bps})
}

func (h *Handler) HandleUpdateFee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[UpdateFeeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	previous, err := h.service.UpdateFee(ctx, caller(ctx), *req.FeeBps)
	if err != nil {
		h.fail(w, r, "update fee", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FeeResponse{FeeBps: *req.FeeBps, PreviousFeeBps: &previous})
}

func (h *Handler) HandleGetPaused(w http.ResponseWriter, r *http.Request) {
	paused, err := h.service.IsPaused(r.Context())
	if err != nil {
		h.fail(w, r, "get paused", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, PausedResponse{Paused: paused})
}

func (h *Handler) HandlePause(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Pause(r.Context(), caller(r.Context())); err != nil {
		h.fail(w, r, "pause", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, PausedResponse{Paused: true})
}

func (h *Handler) HandleUnpause(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Unpause(r.Context(), caller(r.Context())); err != nil {
		h.fail(w, r, "unpause", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, PausedResponse{Paused: false})
}

func (h *Handler) HandleGetFees(w http.ResponseWriter, r *http.Request) {
	fees, err := h.service.AccumulatedFees(r.Context())
	if err != nil {
		h.fail(w, r, "get fees", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FeesResponse{AccumulatedFees: h.money(fees)})
}

func (h *Handler) HandleWithdrawFees(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[WithdrawFeesRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	to := id.Principal(req.To)
	withdrawn, err := h.service.WithdrawFees(ctx, caller(ctx), to)
	if err != nil {
		h.fail(w, r, "withdraw fees", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, WithdrawResponse{To: to, Withdrawn: h.money(withdrawn)})
}

func (h *Handler) HandleGetAgent(w http.ResponseWriter, r *http.Request) {
	agent := id.Principal(chi.URLParam(r, "agent"))
	registered, err := h.service.IsAgentRegistered(r.Context(), agent)
	if err != nil {
		h.fail(w, r, "get agent", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, AgentResponse{Agent: agent, Registered: registered})
}

func (h *Handler) HandleRegisterAgent(w http.ResponseWriter, r *http.Request) {
	agent := id.Principal(chi.URLParam(r, "agent"))
	if err := h.service.RegisterAgent(r.Context(), caller(r.Context()), agent); err != nil {
		h.fail(w, r, "register agent", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, AgentResponse{Agent: agent, Registered: true})
}

func (h *Handler) HandleRemoveAgent(w http.ResponseWriter, r *http.Request) {
	agent := id.Principal(chi.URLParam(r, "agent"))
	if err := h.service.RemoveAgent(r.Context(), caller(r.Context()), agent); err != nil {
		h.fail(w, r, "remove agent", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleCreateRemittance handles POST /v1/remittances.
func (h *Handler) HandleCreateRemittance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[CreateRemittanceRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	c := caller(ctx)
	created, err := h.service.CreateRemittance(ctx, c, req.sender(c.Principal()), id.Principal(req.Agent), req.Amount, req.Expiry)
	if err != nil {
		h.fail(w, r, "create remittance", err)
		return
	}
	w.Header().Set("Location", "/v1/remittances/"+created.ID.String())
	httputil.WriteJSON(w, http.StatusCreated, h.toRemittanceResponse(created))
}

func (h *Handler) HandleGetRemittance(w http.ResponseWriter, r *http.Request) {
	remittanceID, err := remittanceIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rem, err := h.service.GetRemittance(r.Context(), remittanceID)
	if err != nil {
		h.fail(w, r, "get remittance", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.toRemittanceResponse(rem))
}

// HandleListRemittances handles GET /v1/remittances?ids=1,2,3.
func (h *Handler) HandleListRemittances(w http.ResponseWriter, r *http.Request) {
	ids, err := id.ParseRemittanceIDs(r.URL.Query().Get("ids"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	list, err := h.service.GetRemittances(r.Context(), ids)
	if err != nil {
		h.fail(w, r, "list remittances", err)
		return
	}
	resp := RemittanceListResponse{Remittances: make([]RemittanceResponse, 0, len(list))}
	for _, rem := range list {
		resp.Remittances = append(resp.Remittances, h.toRemittanceResponse(rem))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	remittanceID, err := remittanceIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rem, err := h.service.ConfirmPayout(r.Context(), caller(r.Context()), remittanceID)
	if err != nil {
		h.fail(w, r, "confirm payout", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.toRemittanceResponse(rem))
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	remittanceID, err := remittanceIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rem, err := h.service.CancelRemittance(r.Context(), caller(r.Context()), remittanceID)
	if err != nil {
		h.fail(w, r, "cancel remittance", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.toRemittanceResponse(rem))
}

// HandleEvents handles GET /v1/events?limit=&remittance_id=.
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := defaultEventLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 1000 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be between 1 and 1000"))
			return
		}
		limit = n
	}

	var list []events.Event
	if raw := q.Get("remittance_id"); raw != "" {
		remittanceID, err := id.ParseRemittanceID(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		list = h.events.ForRemittance(remittanceID, limit)
	} else {
		list = h.events.Recent(limit)
	}
	if list == nil {
		list = []events.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, EventsResponse{Events: list})
}

func (h *Handler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	account := id.Principal(chi.URLParam(r, "account"))
	bal, err := h.faucet.Balance(r.Context(), account)
	if err != nil {
		h.fail(w, r, "get balance", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, BalanceResponse{Account: account, Balance: h.money(bal)})
}

// HandleMint handles POST /v1/dev/mint.
func (h *Handler) HandleMint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[MintRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	account := id.Principal(req.Account)
	bal, err := h.faucet.Mint(ctx, account, req.Amount)
	if err != nil {
		h.fail(w, r, "mint", err)
		return
	}
	h.logger.InfoContext(ctx, "development mint",
		"log_type", "audit",
		"request_id", requestcontext.RequestID(ctx),
		"account", account,
		"amount", req.Amount.String(),
	)
	httputil.WriteJSON(w, http.StatusOK, BalanceResponse{Account: account, Balance: h.money(bal)})
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"swiftremit/internal/assetledger"
	"swiftremit/internal/audit"
	"swiftremit/internal/idempotency"
	jwttoken "swiftremit/internal/jwt_token"
	"swiftremit/internal/platform/config"
	"swiftremit/internal/platform/httpserver"
	"swiftremit/internal/platform/kafka"
	"swiftremit/internal/platform/logger"
	"swiftremit/internal/platform/metrics"
	"swiftremit/internal/platform/middleware"
	"swiftremit/internal/platform/postgres"
	"swiftremit/internal/platform/redis"
	"swiftremit/internal/remittance"
	"swiftremit/internal/remittance/handler"
	remmetrics "swiftremit/internal/remittance/metrics"
	"swiftremit/internal/remittance/service"
	"swiftremit/internal/storage"
	id "swiftremit/pkg/domain"
	dErrors "swiftremit/pkg/domain-errors"
	"swiftremit/pkg/platform/httputil"
	"swiftremit/pkg/platform/middleware/metadata"
	"swiftremit/pkg/platform/middleware/requesttime"
)

// main wires storage, the ledger service and the HTTP surface, then runs
// the server and the event worker until SIGINT or SIGTERM.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "swiftremit: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	probes := map[string]probe{}
	store, closeStore, err := openStorage(ctx, cfg, log, probes)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ledger := assetledger.New(store, id.Principal(cfg.Ledger.Asset))
	history := audit.NewMemorySink(1024)
	logSink := audit.NewLogSink(log)
	sinks := []audit.Sink{logSink, history}

	var worker *audit.Worker
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(kafka.Config{
			Brokers:  cfg.Kafka.Brokers,
			Topic:    cfg.Kafka.Topic,
			ClientID: cfg.Kafka.ClientID,
		})
		if err != nil {
			return err
		}
		defer producer.Close()
		probes["kafka"] = producer.Ping
		if err := producer.EnsureTopic(ctx); err != nil {
			log.WarnContext(ctx, "kafka topic bootstrap failed; events will be retried by the producer", "error", err)
		}
		kafkaSink := audit.NewKafkaSink(producer, audit.WithFallback(logSink), audit.WithKafkaLogger(log))
		worker = audit.NewWorker(kafkaSink, cfg.Kafka.QueueBuffer, log)
		sinks = append(sinks, worker)
		log.InfoContext(ctx, "kafka event sink enabled", "topic", cfg.Kafka.Topic)
	}

	svc, err := remittance.NewService(store, ledger, id.Principal(cfg.Ledger.CustodyAccount),
		service.WithLogger(log),
		service.WithPublisher(audit.NewPublisher(sinks...)),
		service.WithMetrics(remmetrics.New(reg)),
		service.WithSettlementAsset(ledger.Asset()),
	)
	if err != nil {
		return err
	}
	if err := bootstrap(ctx, svc, cfg.Ledger, log); err != nil {
		return err
	}

	idemStore, closeIdem, err := openIdempotency(cfg, log, probes)
	if err != nil {
		return err
	}
	defer closeIdem()

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer)
	opts := []handler.Option{
		handler.WithAssetDecimals(cfg.Ledger.AssetDecimals),
		handler.WithEvents(history),
		handler.WithCreateMiddleware(idempotency.Middleware(idemStore, cfg.IdempotencyTTL, log)),
	}
	if cfg.Ledger.DevFaucet {
		opts = append(opts, handler.WithFaucet(ledger, cfg.Ledger.FaucetToken))
		log.WarnContext(ctx, "development faucet enabled")
	}
	h := remittance.NewHandler(svc, jwtService, log, opts...)

	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware(time.Now))
	r.Use(middleware.Logger(log))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.LatencyMiddleware(metrics.New(reg)))
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	r.Get("/readyz", readiness(probes))
	h.Register(r)

	srv := httpserver.New(cfg.Addr, r)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.InfoContext(gctx, "starting swiftremit", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	if worker != nil {
		g.Go(func() error { return worker.Run(gctx) })
	}
	return g.Wait()
}

// probe reports whether a backing dependency is reachable.
type probe func(ctx context.Context) error

// readiness answers 200 when every probe passes and 503 naming the failures
// otherwise. Liveness stays on /health.
func readiness(probes map[string]probe) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		failed := map[string]string{}
		for name, p := range probes {
			if err := p(ctx); err != nil {
				failed[name] = err.Error()
			}
		}
		if len(failed) > 0 {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"ready": false, "failed": failed})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"ready": true})
	}
}

func openStorage(ctx context.Context, cfg config.Server, log *slog.Logger, probes map[string]probe) (storage.Store, func(), error) {
	if cfg.Database.URL == "" {
		log.WarnContext(ctx, "DATABASE_URL not set; ledger state is kept in memory")
		return storage.NewInMemory(), func() {}, nil
	}
	db, err := postgres.Open(ctx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	probes["postgres"] = func(ctx context.Context) error { return postgres.Health(ctx, db) }
	log.InfoContext(ctx, "postgres storage ready", "namespace", cfg.Ledger.Namespace)
	return storage.NewPostgres(db, cfg.Ledger.Namespace), func() { _ = db.Close() }, nil
}

func openIdempotency(cfg config.Server, log *slog.Logger, probes map[string]probe) (idempotency.Store, func(), error) {
	client, err := redis.Connect(context.Background(), cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		log.Info("REDIS_URL not set; idempotency keys are kept in memory")
		return idempotency.NewMemoryStore(), func() {}, nil
	}
	probes["redis"] = client.Health
	return idempotency.NewRedisStore(client.Client, client.Prefix), func() { _ = client.Close() }, nil
}

// checkStoredAsset refuses to serve a ledger initialized for an asset other
// than the one the asset ledger moves.
func checkStoredAsset(ctx context.Context, svc *remittance.Service, asset id.Principal) error {
	stored, err := svc.Config(ctx)
	if dErrors.HasCode(err, dErrors.CodeNotInitialized) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load ledger config: %w", err)
	}
	if stored.Asset != asset {
		return fmt.Errorf("ledger was initialized for asset %q but LEDGER_ASSET is %q", stored.Asset, asset)
	}
	return nil
}

// bootstrap initializes the ledger from configuration when LEDGER_ADMIN is
// set. An already initialized ledger is left as is.
func bootstrap(ctx context.Context, svc *remittance.Service, cfg config.LedgerConfig, log *slog.Logger) error {
	if cfg.Admin == "" {
		return checkStoredAsset(ctx, svc, id.Principal(cfg.Asset))
	}
	_, err := svc.Initialize(ctx, id.Principal(cfg.Admin), id.Principal(cfg.Asset), cfg.FeeBps)
	switch {
	case err == nil:
		log.InfoContext(ctx, "ledger initialized from configuration", "admin", cfg.Admin, "fee_bps", cfg.FeeBps)
		return nil
	case dErrors.HasCode(err, dErrors.CodeAlreadyInitialized):
		log.InfoContext(ctx, "ledger already initialized")
		return checkStoredAsset(ctx, svc, id.Principal(cfg.Asset))
	default:
		return fmt.Errorf("bootstrap ledger: %w", err)
	}
}

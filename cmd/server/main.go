package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"crossrail/internal/accounts"
	"crossrail/internal/platform/auth"
	"crossrail/internal/platform/config"
	"crossrail/internal/platform/httpserver"
	"crossrail/internal/platform/logger"
	platformredis "crossrail/internal/platform/redis"
	"crossrail/internal/rails"
	"crossrail/internal/rails/circle"
	"crossrail/internal/rails/idempotency"
	"crossrail/internal/rails/moderntreasury"
	"crossrail/internal/rails/rapyd"
	"crossrail/internal/transfer/events"
	"crossrail/internal/transfer/reconcile"
	"crossrail/internal/transfer/service"
	servicemetrics "crossrail/internal/transfer/service/metrics"
	"crossrail/internal/transfer/store"
	httptransport "crossrail/internal/transport/http"
)

// main wires the adapters, the orchestrator and the HTTP surface, then owns
// the process lifecycle. Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry, err := buildRegistry(cfg)
	if err != nil {
		log.Error("build rail registry", "error", err)
		os.Exit(1)
	}

	selector := rails.NewSelector(registry, rails.SelectorConfig{
		FallbackOrder: parseFallback(cfg.FallbackOrder),
	})

	recorder, cleanup, err := buildRecorder(ctx, cfg)
	if err != nil {
		log.Error("build transfer store", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	publisher, closePublisher, err := buildPublisher(cfg, log)
	if err != nil {
		log.Error("build event publisher", "error", err)
		os.Exit(1)
	}
	defer closePublisher()

	opts := []service.Option{
		service.WithLogger(log),
		service.WithPublisher(publisher),
		service.WithMetrics(servicemetrics.New()),
		service.WithChain(cfg.Chain),
	}
	for country, accountID := range cfg.CustodialAccounts {
		opts = append(opts, service.WithCustodialAccount(country, accountID))
	}
	resolver := accounts.NewStatic()
	if cfg.AccountsFile != "" {
		resolver, err = accounts.LoadFile(cfg.AccountsFile)
		if err != nil {
			log.Error("load account book", "error", err)
			os.Exit(1)
		}
	}

	orchestrator := service.New(
		selector,
		idempotency.NewManager(cfg.KeyNamespace),
		resolver,
		recorder,
		opts...,
	)

	poller := reconcile.New(recorder, selector,
		reconcile.WithLogger(log),
		reconcile.WithInterval(cfg.ReconcileInterval),
	)
	go func() {
		if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("reconcile worker stopped", "error", err)
		}
	}()

	jwtService := auth.NewJWTService(cfg.Server.JWTSigningKey, "crossrail", "crossrail-api")
	handler := httptransport.NewHandler(orchestrator, recorder, log)
	srv := httpserver.New(cfg.Server.Addr, httptransport.NewRouter(handler, jwtService, log))

	go func() {
		log.Info("starting crossrail", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

// buildRegistry constructs one adapter per provider for the life of the
// process.
func buildRegistry(cfg config.Config) (*rails.Registry, error) {
	registry := rails.NewRegistry()

	mtClient, err := moderntreasury.NewClient(moderntreasury.ClientConfig{
		BaseURL:        cfg.ModernTreasury.BaseURL,
		OrganizationID: cfg.ModernTreasury.OrganizationID,
		APIKey:         cfg.ModernTreasury.APIKey,
	})
	if err != nil {
		return nil, err
	}
	mt, err := moderntreasury.New(mtClient,
		moderntreasury.WithFallbackOrder(parseFallback(cfg.FallbackOrder)))
	if err != nil {
		return nil, err
	}
	if err := registry.Register(mt); err != nil {
		return nil, err
	}

	rapydClient, err := rapyd.NewClient(rapyd.ClientConfig{
		BaseURL:   cfg.Rapyd.BaseURL,
		AccessKey: cfg.Rapyd.AccessKey,
		SecretKey: cfg.Rapyd.SecretKey,
	})
	if err != nil {
		return nil, err
	}
	intl, err := rapyd.New(rapydClient)
	if err != nil {
		return nil, err
	}
	if err := registry.Register(intl); err != nil {
		return nil, err
	}

	circleClient, err := circle.NewClient(circle.ClientConfig{
		BaseURL: cfg.Circle.BaseURL,
		APIKey:  cfg.Circle.APIKey,
	})
	if err != nil {
		return nil, err
	}
	bridge, err := circle.New(circleClient)
	if err != nil {
		return nil, err
	}
	if err := registry.RegisterBridge(bridge); err != nil {
		return nil, err
	}

	return registry, nil
}

// buildRecorder picks the transfer store: Postgres, then Redis, then memory.
func buildRecorder(ctx context.Context, cfg config.Config) (store.Recorder, func(), error) {
	if cfg.PostgresURL != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		pg := store.NewPostgres(pool)
		if err := pg.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return pg, pool.Close, nil
	}

	if cfg.Redis.URL != "" {
		client, err := platformredis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return store.NewRedis(client.Client, cfg.Redis.TTL), func() { _ = client.Close() }, nil
	}

	return store.NewMemory(), func() {}, nil
}

func buildPublisher(cfg config.Config, log *slog.Logger) (events.Publisher, func(), error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return events.Noop{}, func() {}, nil
	}
	publisher, err := events.NewKafkaPublisher(events.KafkaConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
	}, log)
	if err != nil {
		return nil, nil, err
	}
	return publisher, publisher.Close, nil
}

// parseFallback maps configured rail names onto the selector's vocabulary,
// skipping anything unknown rather than refusing to boot.
func parseFallback(names []string) []rails.Rail {
	var order []rails.Rail
	for _, name := range names {
		rail, err := rails.ParseRail(name)
		if err != nil {
			continue
		}
		order = append(order, rail)
	}
	return order
}

// Package control wires configuration, storage, providers and services into
// a runnable application.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/vietddude/callcore/internal/core/config"
	"github.com/vietddude/callcore/internal/health"
	redisclient "github.com/vietddude/callcore/internal/infra/redis"
	"github.com/vietddude/callcore/internal/infra/rpc/call"
	"github.com/vietddude/callcore/internal/infra/rpc/provider"
	"github.com/vietddude/callcore/internal/infra/storage"
	"github.com/vietddude/callcore/internal/infra/storage/memory"
	"github.com/vietddude/callcore/internal/infra/storage/postgres"
	"github.com/vietddude/callcore/internal/service"
)

// App is the main application struct that owns every long-lived component.
type App struct {
	cfg *config.AppConfig

	Invoker *service.Invoker
	Batcher *service.Batcher
	HTTP    *provider.HTTPProvider
	GRPC    *provider.GRPCProvider

	healthMon    *health.Monitor
	healthServer *health.Server
	db           *postgres.DB
	redisClient  *redisclient.Client
	log          *slog.Logger

	httpProbe *call.Manager[string, []byte]
	grpcProbe *call.Manager[string, string]
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates an App with all dependencies initialized.
func New(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	a := &App{
		cfg: cfg,
		log: slog.Default(),
	}

	// 1. Storage
	var outcomes storage.OutcomeRepository
	var failed storage.FailedItemRepository

	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		a.db = db
		if err := db.Migrate(ctx); err != nil {
			a.Close()
			return nil, err
		}
		outcomes = postgres.NewOutcomeRepo(db)
		failed = postgres.NewFailedItemRepo(db)
		a.log.Info("Using PostgreSQL storage")
	} else {
		store := memory.NewMemoryStorage()
		outcomes = memory.NewOutcomeRepo(store)
		failed = memory.NewFailedItemRepo(store)
		a.log.Info("Using Memory storage")
	}

	if cfg.Redis.URL != "" {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		a.redisClient = client
		failed = redisclient.NewFailedItemRepo(client, cfg.Batch.FailedItemTTL)
		a.log.Info("Using Redis failed item queue")
	}

	// 2. Services
	policy := cfg.Retry.Policy()
	a.Invoker = service.NewInvoker(outcomes, policy, a.log)

	itemRetry := policy
	if !cfg.Batch.RetryItems {
		itemRetry = nil
	}
	a.Batcher = service.NewBatcher(failed, cfg.Batch.Options(), itemRetry, a.log)

	// 3. Providers
	var providers []provider.Provider
	if cfg.HTTP.BaseURL != "" {
		opts := []provider.HTTPOption{provider.WithRateLimit(cfg.HTTP.RateLimit, cfg.HTTP.Burst)}
		for k, v := range cfg.HTTP.Headers {
			opts = append(opts, provider.WithHeader(k, v))
		}
		a.HTTP = provider.NewHTTPProvider(cfg.HTTP.Name, cfg.HTTP.BaseURL, cfg.HTTP.Timeout, opts...)
		providers = append(providers, a.HTTP)

		a.httpProbe = service.NewCall(a.Invoker, cfg.HTTP.Name+".probe",
			func(ctx context.Context, path string) ([]byte, error) {
				return a.HTTP.Do(ctx, http.MethodGet, path, nil)
			})
	}
	if cfg.GRPC.Endpoint != "" {
		p, err := provider.NewGRPCProvider(cfg.GRPC.Name, cfg.GRPC.Endpoint)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.GRPC = p
		providers = append(providers, p)

		a.grpcProbe = service.NewCall(a.Invoker, cfg.GRPC.Name+".health",
			func(ctx context.Context, svc string) (string, error) {
				return p.HealthOperation(svc)(ctx)
			})
	}

	// 4. Health
	deps := make(map[string]health.Pinger)
	if a.db != nil {
		deps["postgres"] = a.db
	}
	if a.redisClient != nil {
		deps["redis"] = a.redisClient
	}
	a.healthMon = health.NewMonitor(deps, providers)
	a.healthServer = health.NewServer(a.healthMon, cfg.Server.Port)

	return a, nil
}

// Start starts the health server and the periodic provider probes.
func (a *App) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)

	go func() {
		if err := a.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("Health server failed", "error", err)
		}
	}()

	if a.db != nil {
		a.db.StartMetricsCollector(ctx)
	}

	if a.httpProbe != nil || a.grpcProbe != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.runProbes(ctx)
		}()
	}

	a.log.Info("App started", "port", a.cfg.Server.Port)
	return nil
}

// Stop stops the app and releases its resources.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping App...")

	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()

	err := a.healthServer.Stop(ctx)
	a.Close()
	return err
}

// Close releases providers and connections. It is safe to call more than once.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		if a.httpProbe != nil {
			a.httpProbe.Close()
		}
		if a.grpcProbe != nil {
			a.grpcProbe.Close()
		}
		if a.HTTP != nil {
			_ = a.HTTP.Close()
		}
		if a.GRPC != nil {
			if err := a.GRPC.Close(); err != nil {
				a.log.Warn("Failed to close gRPC provider", "error", err)
			}
		}
		if a.redisClient != nil {
			if err := a.redisClient.Close(); err != nil {
				a.log.Warn("Failed to close Redis", "error", err)
			}
		}
		if a.db != nil {
			if err := a.db.Close(); err != nil {
				a.log.Warn("Failed to close database", "error", err)
			}
		}
	})
}

func (a *App) runProbes(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.Probe.Interval)
	defer ticker.Stop()

	for {
		a.probeOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (a *App) probeOnce(ctx context.Context) {
	if a.httpProbe != nil {
		if _, ok := a.httpProbe.Execute(ctx, a.cfg.Probe.Path); ok {
			a.log.Debug("Provider probe succeeded", "provider", a.HTTP.GetName())
		}
	}
	if a.grpcProbe != nil {
		if status, ok := a.grpcProbe.Execute(ctx, a.cfg.GRPC.Service); ok {
			a.log.Debug("Provider probe succeeded", "provider", a.GRPC.GetName(), "status", status)
		}
	}
}

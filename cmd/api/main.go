package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/davidleathers/outbound-pacing-backend/internal/api/rest"
	"github.com/davidleathers/outbound-pacing-backend/internal/api/websocket"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/call"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/campaign"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/pacing"
	"github.com/davidleathers/outbound-pacing-backend/internal/infrastructure/cache"
	"github.com/davidleathers/outbound-pacing-backend/internal/infrastructure/config"
	"github.com/davidleathers/outbound-pacing-backend/internal/infrastructure/database"
	"github.com/davidleathers/outbound-pacing-backend/internal/infrastructure/repository"
	"github.com/davidleathers/outbound-pacing-backend/internal/infrastructure/telemetry"
	"github.com/davidleathers/outbound-pacing-backend/internal/metrics"
	"github.com/davidleathers/outbound-pacing-backend/internal/service/compliance"
	"github.com/davidleathers/outbound-pacing-backend/internal/service/dialing"
	"github.com/davidleathers/outbound-pacing-backend/internal/service/leadpriority"
	pacingsvc "github.com/davidleathers/outbound-pacing-backend/internal/service/pacing"
	"github.com/davidleathers/outbound-pacing-backend/internal/service/scheduler"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := telemetry.SetupLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to setup logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("application failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting outbound pacer",
		zap.String("version", cfg.Version),
		zap.String("environment", cfg.Environment),
		zap.Int("port", cfg.Server.Port))

	provider, err := telemetry.InitializeOpenTelemetry(ctx, &telemetry.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		Enabled:        cfg.Telemetry.Enabled,
		SamplingRate:   cfg.Telemetry.SampleRate,
		ExportTimeout:  telemetry.DefaultConfig().ExportTimeout,
		MetricInterval: telemetry.DefaultConfig().MetricInterval,
		BatchTimeout:   telemetry.DefaultConfig().BatchTimeout,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer done()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	registry, err := metrics.NewRegistryWithMeter(provider.MeterProvider.Meter("outbound-pacer"))
	if err != nil {
		return fmt.Errorf("creating metrics registry: %w", err)
	}

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.Database.MigrateOnStart {
		if err := migrateUp(pool, logger); err != nil {
			return err
		}
	}

	repos := repository.NewRepositories(pool, repository.Defaults{
		Pacing:      cfg.Pacing.Defaults,
		Concurrency: cfg.Pacing.Concurrency,
		Timezone:    cfg.Compliance.DefaultTimezone,
	}, logger)

	health := map[string]rest.HealthChecker{
		"postgres": func(ctx context.Context) error { return database.HealthCheck(ctx, pool) },
	}

	var settings cache.SettingsStore = repos.Settings
	if cfg.Redis.Enabled {
		client, err := cache.NewRedisClient(ctx, cfg.Redis, logger)
		if err != nil {
			return err
		}
		defer client.Close()
		settings = cache.NewSettingsCache(client, repos.Settings, cfg.Redis.SettingsTTL, logger)
		health["redis"] = redisCheck(client)
	}

	hub := websocket.NewEventHub(logger)
	go hub.Run(ctx)

	dialer := pacing.NewPredictiveDialer(cfg.Predictive)
	var clock call.Clock = call.RealClock{}

	// units built by the factory retire their own campaign on a pause
	var supervisor *scheduler.Supervisor
	factory := func(c *campaign.Campaign) []scheduler.Scheduled {
		loop := pacingsvc.NewLoop(c, pacingsvc.Dependencies{
			Outcomes:  repos.Outcomes,
			Settings:  settings,
			Snapshots: repos.Snapshots,
			Publisher: hub,
			Campaigns: repos.Campaigns,
			Dialer:    dialer,
			Clock:     clock,
			Logger:    logger,
			Metrics:   registry,
		})
		monitor := compliance.NewMonitor(c.ID, compliance.Dependencies{
			Outcomes:  repos.Outcomes,
			Campaigns: repos.Campaigns,
			Metrics:   repos.Snapshots,
			Alerts:    repos.Alerts,
			Publisher: hub,
			Lifecycle: supervisor,
			Clock:     clock,
			Logger:    logger,
			Registry:  registry,
		}, compliance.Config{
			Cooldown:   cfg.Compliance.Cooldown,
			Thresholds: cfg.Compliance.Thresholds,
		})
		return []scheduler.Scheduled{
			{Unit: loop, Interval: cfg.Pacing.Interval},
			{Unit: monitor, Interval: cfg.Compliance.Interval},
		}
	}
	supervisor = scheduler.NewSupervisor(ctx, factory, logger, registry)
	defer supervisor.StopAll()
	controller := pacingsvc.NewController(supervisor)

	if err := resumeActive(ctx, repos.Campaigns, controller, logger); err != nil {
		return err
	}

	gate := dialing.NewService(repos.Campaigns, settings, repos.Transfers, repos.Snapshots, dialer,
		dialing.Config{Burst: cfg.Dispatch.Burst}, clock, logger, registry)
	prioritizer := leadpriority.NewService(repos.Leads, repos.Campaigns, repos.Outcomes, leadpriority.Config{
		HistoryWindow:      cfg.Prioritizer.HistoryWindow,
		AreaCodeSampleSize: cfg.Prioritizer.AreaCodeSampleSize,
		MinAreaCodeSamples: cfg.Prioritizer.MinAreaCodeSamples,
		Weights:            cfg.Prioritizer.Weights,
	}, clock, logger, registry)

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	registerRuntimeMetrics(promRegistry, cfg.Version, supervisor, hub)

	handlers := rest.NewHandlers("v1", rest.Services{
		Dialing:     gate,
		Prioritizer: prioritizer,
		Settings:    settings,
		Campaigns:   repos.Campaigns,
		Snapshots:   repos.Snapshots,
		Lifecycle:   controller,
		Events:      hub,
		Health:      health,
	}, logger)

	router := rest.NewRouter(handlers, rest.Config{
		Version:           "v1",
		RequestsPerSecond: float64(cfg.Server.RateLimit.RequestsPerSecond),
		Burst:             cfg.Server.RateLimit.BurstSize,
		Registry:          promRegistry,
	}, logger)

	server := rest.NewServer(cfg.Server, router, logger)
	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down gracefully")
	shutdownCtx, done := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer done()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func migrateUp(pool *pgxpool.Pool, logger *zap.Logger) error {
	mg, err := database.NewMigrator(pool, logger)
	if err != nil {
		return err
	}
	defer mg.Close()
	return mg.Up(0)
}

// resumeActive restarts the periodic tasks of every campaign left active by
// a previous process.
func resumeActive(ctx context.Context, campaigns *repository.CampaignRepository, c *pacingsvc.Controller, logger *zap.Logger) error {
	active, err := campaigns.ListActiveCampaigns(ctx)
	if err != nil {
		return fmt.Errorf("listing active campaigns: %w", err)
	}
	for _, camp := range active {
		c.Start(camp)
	}
	logger.Info("resumed active campaigns", zap.Int("count", len(active)))
	return nil
}

func redisCheck(client *redis.Client) rest.HealthChecker {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

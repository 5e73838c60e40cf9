// @title Demand Predictor API
// @version 1.0
// @description Ride demand prediction and reverse geocoding service.
// @BasePath /
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/OldStager01/demand-predictor/api"
	"github.com/OldStager01/demand-predictor/api/handlers"
	"github.com/OldStager01/demand-predictor/internal/cluster"
	"github.com/OldStager01/demand-predictor/internal/events"
	"github.com/OldStager01/demand-predictor/internal/features"
	"github.com/OldStager01/demand-predictor/internal/geocoder"
	"github.com/OldStager01/demand-predictor/internal/logger"
	"github.com/OldStager01/demand-predictor/internal/metrics"
	"github.com/OldStager01/demand-predictor/internal/model"
	"github.com/OldStager01/demand-predictor/internal/orchestrator"
	"github.com/OldStager01/demand-predictor/internal/resilience"
	"github.com/OldStager01/demand-predictor/pkg/config"
	"github.com/OldStager01/demand-predictor/pkg/database"
	"github.com/OldStager01/demand-predictor/pkg/database/queries"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	migrate := flag.Bool("migrate", false, "run database migrations and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger.Setup(cfg.App.LogLevel, cfg.App.Mode)
	logger.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *database.DB
	if cfg.Database.Enabled || *migrate {
		db, err = database.New(cfg.Database.ToDBConfig())
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		logger.Info("Database connection established")
	}

	if *migrate {
		return runMigrations(ctx, cfg, db)
	}

	// Artifacts
	pipeline, info, err := loadArtifacts(cfg.Artifacts)
	if err != nil {
		return err
	}

	// Geocoder
	var redisClient *redis.Client
	if cfg.Geocoder.Cache.Enabled {
		redisClient, err = database.NewRedis(ctx, cfg.Redis.ToRedisConfig())
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisClient.Close()
		logger.Infof("Redis geocode cache enabled at %s", cfg.Redis.Addr)
	}

	m := metrics.Get()

	// The breaker reports through the orchestrator, which is built after the
	// resolver chain. Transitions only happen once requests are served.
	var orch *orchestrator.Orchestrator
	resolver, closeResolver := buildResolver(cfg.Geocoder, redisClient, m, func(name string, from, to resilience.State) {
		if orch != nil {
			orch.CircuitChanged(name, from, to)
		}
	})
	defer closeResolver()

	// Audit log
	var store *queries.PredictionRepository
	if db != nil {
		store = queries.NewPredictionRepository(db.DB)
	}

	orch = orchestrator.New(orchestrator.Config{
		Pipeline:  pipeline,
		Locations: geocoder.NewLocationService(resolver, m),
		EventBus:  events.NewEventBus(cfg.Events.BufferSize),
		Store:     predictionStore(store),
		Metrics:   m,
		Info:      info,
	})
	orch.Start()
	defer orch.Stop()

	if cfg.Prometheus.Enabled {
		metrics.StartServer(ctx, cfg.Prometheus.Port)
	}

	opts := api.Options{
		HealthChecks: make(map[string]handlers.HealthCheck),
		Release:      cfg.App.Mode == "production",
	}
	if store != nil {
		opts.History = store
		opts.HealthChecks["database"] = database.ReadinessCheck(db, "predictions")
	}
	if redisClient != nil {
		opts.HealthChecks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}

	server := api.NewServer(cfg.API, orch, opts)

	errChan := make(chan error, 1)
	go func() {
		logger.Infof("API server listening on port %d", cfg.API.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("Received shutdown signal, shutting down")
	}

	shutdownTimeout := cfg.App.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	logger.Info("Server stopped gracefully")
	return nil
}

func runMigrations(ctx context.Context, cfg *config.Config, db *database.DB) error {
	timeout := cfg.Database.MigrationTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger.Info("Running database migrations")
	if err := database.NewMigrator(db).Run(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Migrations completed successfully")
	return nil
}

// loadArtifacts builds the immutable prediction state shared by all requests.
func loadArtifacts(cfg config.ArtifactsConfig) (*orchestrator.Pipeline, orchestrator.ModelInfo, error) {
	table, err := cluster.LoadTable(cfg.CentroidsPath)
	if err != nil {
		return nil, orchestrator.ModelInfo{}, fmt.Errorf("failed to load centroids: %w", err)
	}

	predictor, err := model.Load(model.Config{
		ModelPath:  cfg.ModelPath,
		ScalerPath: cfg.ScalerPath,
	})
	if err != nil {
		return nil, orchestrator.ModelInfo{}, fmt.Errorf("failed to load model: %w", err)
	}

	info := orchestrator.ModelInfo{
		Info:          predictor.Info(),
		CentroidsPath: cfg.CentroidsPath,
		Centroids:     table.Len(),
		Clusters:      table.ClusterCount(),
	}
	logger.WithFields(map[string]interface{}{
		"centroids": info.Centroids,
		"clusters":  info.Clusters,
		"trees":     info.NumTrees,
		"objective": info.Objective,
	}).Info("Artifacts loaded")

	pipeline := orchestrator.NewPipeline(orchestrator.PipelineConfig{
		Encoder:   features.NewEncoder(cluster.NewIndex(table)),
		Predictor: predictor,
	})
	return pipeline, info, nil
}

// buildResolver assembles provider, circuit breaker and optional cache.
func buildResolver(
	cfg config.GeocoderConfig,
	redisClient *redis.Client,
	m *metrics.Metrics,
	onStateChange func(name string, from, to resilience.State),
) (geocoder.Resolver, func()) {
	closer := func() {}

	var provider geocoder.Resolver
	switch cfg.Provider {
	case "static":
		logger.Warn("Using static geocoder; every location resolves to Unknown")
		provider = geocoder.NewStaticResolver(nil)
	default:
		client := geocoder.NewNominatimClient(geocoder.NominatimConfig{
			BaseURL:   cfg.BaseURL,
			UserAgent: cfg.UserAgent,
			Language:  cfg.Language,
			Timeout:   cfg.Timeout,
		})
		closer = func() { client.Close() }
		provider = client
	}

	var resolver geocoder.Resolver = geocoder.NewResilientResolver(geocoder.ResilientResolverConfig{
		Resolver:      provider,
		MaxFailures:   cfg.CircuitBreaker.MaxFailures,
		Timeout:       cfg.CircuitBreaker.Timeout,
		HalfOpenMax:   cfg.CircuitBreaker.HalfOpenMax,
		OnStateChange: onStateChange,
	})

	if redisClient != nil {
		resolver = geocoder.NewCachedResolver(geocoder.CachedResolverConfig{
			Resolver: resolver,
			Cache:    geocoder.NewRedisCache(redisClient),
			TTL:      cfg.Cache.TTL,
			Prefix:   cfg.Cache.Prefix,
			Metrics:  m,
		})
	}

	return resolver, closer
}

// predictionStore keeps a nil repository from becoming a non-nil interface.
func predictionStore(repo *queries.PredictionRepository) events.PredictionStore {
	if repo == nil {
		return nil
	}
	return repo
}

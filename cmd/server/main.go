package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/productlens/backend/config"
	httpDelivery "github.com/productlens/backend/internal/delivery/http"
	"github.com/productlens/backend/internal/domain"
	"github.com/productlens/backend/internal/infrastructure/cache"
	"github.com/productlens/backend/internal/infrastructure/logging"
	"github.com/productlens/backend/internal/infrastructure/search"
	"github.com/productlens/backend/internal/infrastructure/trust"
	"github.com/productlens/backend/internal/usecase"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting ProductLens Backend v1.0.0",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("cache_type", cfg.Cache.Type),
		zap.Duration("cache_ttl", cfg.Cache.TTL))

	// Initialize infrastructure dependencies
	store, err := newStore(cfg.Cache)
	if err != nil {
		return err
	}
	defer store.Close()
	responseCache := cache.NewResponseCache(store, logger)

	trustWatcher, err := trust.NewWatcher(cfg.Trust.File, logger)
	if err != nil {
		return fmt.Errorf("load trust table: %w", err)
	}
	if cfg.Trust.File != "" {
		// Cached products were ranked with the previous table
		trustWatcher.OnReload(func(*trust.Table) {
			if err := responseCache.Clear(context.Background()); err != nil {
				logger.Warn("Failed to clear cache after trust reload", zap.Error(err))
			}
		})
		if err := trustWatcher.Start(); err != nil {
			return fmt.Errorf("watch trust table: %w", err)
		}
		defer trustWatcher.Stop()
	}

	searchClient := search.NewClient(search.Config{
		APIKey:            cfg.Search.APIKey,
		EngineID:          cfg.Search.EngineID,
		BaseURL:           cfg.Search.BaseURL,
		SafeSearch:        cfg.Search.SafeSearch,
		RequestsPerSecond: cfg.Search.RequestsPerSecond,
		Burst:             cfg.Search.Burst,
		MaxAttempts:       cfg.Search.MaxAttempts,
	}, logger)

	// Enable debug mode in development environment
	if cfg.Server.Environment == "development" {
		searchClient.SetDebug(true)
	}

	if cfg.Search.Configured() {
		logger.Info("Search provider configured", zap.String("base_url", cfg.Search.BaseURL))
	} else {
		logger.Warn("Search provider NOT CONFIGURED - discovery requests will return 503",
			zap.String("base_url", cfg.Search.BaseURL))
	}

	// Initialize usecase layer
	discoveryService, err := usecase.NewDiscoveryService(
		responseCache,
		searchClient,
		trustWatcher,
		logger,
		discoveryConfig(cfg),
	)
	if err != nil {
		return fmt.Errorf("create discovery service: %w", err)
	}

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(discoveryService, logger)
	router := httpDelivery.SetupRouter(cfg, handler, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type closableStore interface {
	domain.CacheRepository
	io.Closer
}

func newStore(cfg config.CacheConfig) (closableStore, error) {
	if cfg.Type == "redis" {
		store, err := cache.NewRedisStore(cache.RedisConfig{
			URL:    cfg.RedisURL,
			Prefix: cfg.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("connect redis cache: %w", err)
		}
		return store, nil
	}
	return cache.NewMemoryStore(5 * time.Minute), nil
}

func discoveryConfig(cfg *config.Config) usecase.DiscoveryServiceConfig {
	return usecase.DiscoveryServiceConfig{
		Concurrency:          cfg.Discovery.Concurrency,
		MaxCallsPerRequest:   cfg.Discovery.MaxCallsPerRequest,
		ProviderDownAfter:    cfg.Discovery.ProviderDownAfter,
		InitialDisplay:       cfg.Discovery.InitialDisplay,
		CacheTTL:             cfg.Cache.TTL,
		ExcerptTurns:         cfg.Cache.ExcerptTurns,
		Audience:             cfg.Discovery.Audience,
		Brands:               cfg.Discovery.Brands,
		FallbackSearchURL:    cfg.Discovery.FallbackSearchURL,
		CallTimeout:          cfg.Search.CallTimeout,
		ResultCount:          cfg.Search.ResultCount,
		MaxTiersPerCandidate: cfg.Discovery.MaxTiersPerCandidate,
	}
}

func init() {
	// Used only until the structured logger is configured
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}

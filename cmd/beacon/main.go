package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/FranksOps/beacon/internal/cache"
	"github.com/FranksOps/beacon/internal/config"
	"github.com/FranksOps/beacon/internal/fingerprint"
	"github.com/FranksOps/beacon/internal/metrics"
	"github.com/FranksOps/beacon/internal/pipeline"
	"github.com/FranksOps/beacon/internal/scraper"
	"github.com/FranksOps/beacon/internal/serp"
	"github.com/FranksOps/beacon/internal/server"
	"github.com/FranksOps/beacon/internal/storage"
	"github.com/FranksOps/beacon/internal/storage/jsonbackend"
	"github.com/FranksOps/beacon/internal/storage/postgres"
	"github.com/FranksOps/beacon/internal/storage/sqlite"
	"github.com/FranksOps/beacon/internal/synth"
	"github.com/FranksOps/beacon/pkg/proxy"
	"github.com/FranksOps/beacon/pkg/useragent"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Environment == "dev" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
	)

	ctx := context.Background()

	// Result cache. A missing or unreachable Redis only disables caching.
	var cacheClient cache.Client
	if cfg.CacheTTL > 0 {
		redisCache, err := cache.NewRedis(cfg.RedisURL)
		if err != nil {
			logger.Warn("invalid redis url, caching disabled", "err", err)
		} else {
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			if err := redisCache.Ping(pingCtx); err != nil {
				logger.Warn("redis unreachable, requests will bypass the cache", "err", err)
			} else {
				logger.Info("connected to redis")
			}
			cancel()
			cacheClient = redisCache
			defer redisCache.Close()
		}
	}

	// Fetch archive.
	archive, err := openArchive(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open fetch archive: %v", err)
	}
	if archive != nil {
		logger.Info("fetch archive enabled", "backend", cfg.StorageBackend)
		defer archive.Close()
	}

	// Optional proxy rotation for scraping.
	var proxyPool *proxy.Pool
	if cfg.ProxyFile != "" {
		proxyPool = proxy.NewPool(proxy.Config{})
		if err := proxyPool.LoadFile(cfg.ProxyFile); err != nil {
			log.Fatalf("Failed to load proxy file: %v", err)
		}
		logger.Info("proxy pool loaded", "file", cfg.ProxyFile)
	}

	fetcher, err := scraper.NewFetcher(scraper.FetchConfig{
		Timeout:     cfg.ScrapeTimeout,
		ProxyPool:   proxyPool,
		UAPool:      useragent.NewPool(nil),
		Fingerprint: fingerprint.Parse(cfg.TLSProfile),
	})
	if err != nil {
		log.Fatalf("Failed to create fetcher: %v", err)
	}

	sc := scraper.New(scraper.Config{
		Concurrency:       cfg.ScrapeConcurrency,
		Backend:           archive,
		RespectRobots:     cfg.RespectRobots,
		RequestsPerSecond: cfg.ScrapeRPS,
		Jitter:            cfg.ScrapeJitter,
	}, fetcher, logger)
	defer sc.Close()

	provider, err := serp.NewSerpAPI(serp.SerpAPIConfig{
		APIKey:   cfg.SerpAPIKey,
		Location: cfg.SerpLocation,
	}, logger)
	if err != nil {
		log.Fatalf("Failed to create search provider: %v", err)
	}

	synthesizer, err := synth.NewOpenAI(synth.OpenAIConfig{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.OpenAIModel,
		BaseURL: cfg.OpenAIBaseURL,
	}, logger)
	if err != nil {
		log.Fatalf("Failed to create synthesizer: %v", err)
	}

	var runner pipeline.Runner = pipeline.New(pipeline.Config{
		SearchTimeout: cfg.SearchTimeout,
		SynthTimeout:  cfg.SynthTimeout,
	}, provider, sc, synthesizer, logger)

	if cacheClient != nil {
		runner = pipeline.NewCached(runner, cacheClient, cfg.CacheTTL, logger)
	}

	var metricsServer *metrics.Server
	if cfg.MetricsPort > 0 {
		metricsServer = metrics.Start(cfg.MetricsPort)
		logger.Info("metrics server started", "port", cfg.MetricsPort)
	}

	api := server.New(server.Config{CORSOrigins: cfg.CORSOrigins}, runner, cacheClient, archive, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-shutdownCtx.Done()
	logger.Info("shutting down")

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(stopCtx); err != nil {
		logger.Error("server shutdown failed", "err", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Stop(stopCtx); err != nil {
			logger.Error("metrics shutdown failed", "err", err)
		}
	}
}

// openArchive selects the fetch archive backend. "none" (or empty) disables
// archiving.
func openArchive(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	switch cfg.StorageBackend {
	case "", "none":
		return nil, nil
	case "json":
		return jsonbackend.New(cfg.StorageDSN)
	case "sqlite":
		return sqlite.New(cfg.StorageDSN)
	case "postgres":
		return postgres.New(ctx, cfg.StorageDSN)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

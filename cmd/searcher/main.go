package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lumisearch/lumi/internal/engine"
	"github.com/lumisearch/lumi/internal/ingest"
	"github.com/lumisearch/lumi/internal/searcher/cache"
	"github.com/lumisearch/lumi/internal/searcher/handler"
	"github.com/lumisearch/lumi/pkg/config"
	"github.com/lumisearch/lumi/pkg/health"
	"github.com/lumisearch/lumi/pkg/kafka"
	"github.com/lumisearch/lumi/pkg/logger"
	"github.com/lumisearch/lumi/pkg/metrics"
	"github.com/lumisearch/lumi/pkg/middleware"
	pkgredis "github.com/lumisearch/lumi/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "data_dir", cfg.Indexer.DataDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.Default()
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	opts := []engine.Option{engine.WithMetrics(m)}
	var (
		redisClient *pkgredis.Client
		queryCache  *cache.QueryCache
	)
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, result caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
			opts = append(opts, engine.WithResultCache(queryCache))
			slog.Info("result cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	eng, err := engine.Open(cfg, opts...)
	if err != nil {
		slog.Error("failed to open index", "error", err)
		os.Exit(1)
	}
	defer eng.Close()

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		if _, err := os.Stat(cfg.Indexer.DataDir); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d terms", eng.Stats().Terms),
		}
	})
	if redisClient != nil {
		checker.Register("redis", health.Ping(redisClient.Ping, false))
	}

	if cfg.Kafka.Enabled {
		notify := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
		defer notify.Close()
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.DocumentAdd, ingest.HandleMessage(eng, notify))
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("document consumer stopped", "error", err)
			}
		}()
		slog.Info("consuming document events",
			"topic", cfg.Kafka.Topics.DocumentAdd,
			"group", cfg.Kafka.ConsumerGroup,
		)
	}

	// SIGHUP rereads the index after an offline rebuild.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				if err := eng.Reload(ctx); err != nil {
					slog.Error("reload failed", "error", err)
				}
			}
		}
	}()

	var invalidator handler.Invalidator
	if queryCache != nil {
		invalidator = queryCache
	}
	h := handler.New(eng, invalidator, cfg.Search.DefaultLimit, cfg.Search.MaxResults)

	mux := http.NewServeMux()
	h.Routes(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if cfg.Server.WritesPerMinute > 0 {
		chain = middleware.RateLimitWrites(middleware.NewLimiter(cfg.Server.WritesPerMinute, time.Minute))(chain)
	}
	chain = middleware.Metrics(m)(chain)
	chain = middleware.CORS(middleware.DefaultCORSConfig())(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped")
}

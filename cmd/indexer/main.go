package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lumisearch/lumi/internal/corpus"
	"github.com/lumisearch/lumi/internal/engine"
	"github.com/lumisearch/lumi/pkg/config"
	"github.com/lumisearch/lumi/pkg/logger"
	"github.com/lumisearch/lumi/pkg/metrics"
	"github.com/lumisearch/lumi/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	source := flag.String("source", "dir", "corpus source: dir or postgres")
	corpusDir := flag.String("corpus", "data/corpus", "directory of .txt documents (source=dir)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var src engine.DocumentSource
	switch *source {
	case "dir":
		src = corpus.DirSource{Dir: *corpusDir}
	case "postgres":
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		src = corpus.PostgresSource{Client: db, Query: cfg.Postgres.CorpusQuery}
	default:
		fmt.Fprintf(os.Stderr, "unknown -source %q (want dir or postgres)\n", *source)
		os.Exit(2)
	}

	slog.Info("starting bulk index build", "source", *source, "data_dir", cfg.Indexer.DataDir)
	stats, err := engine.Build(ctx, cfg, src, metrics.Default())
	if err != nil {
		slog.Error("index build failed", "error", err)
		os.Exit(1)
	}
	slog.Info("index build complete",
		"documents", stats.Documents,
		"terms", stats.Terms,
		"postings", stats.Postings,
		"shards", stats.Shards,
		"duration", stats.Duration,
	)
}

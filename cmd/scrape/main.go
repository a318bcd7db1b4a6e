package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/newsmaker-md/content-pipeline/internal/archive"
	"github.com/newsmaker-md/content-pipeline/internal/fetch"
	"github.com/newsmaker-md/content-pipeline/internal/scrape"
	"github.com/newsmaker-md/content-pipeline/internal/storage/factory"
	"github.com/newsmaker-md/content-pipeline/internal/wp"
)

func main() {
	slog.SetLogLoggerLevel(slog.LevelInfo)

	limit := flag.Int("limit", 5, "number of latest posts to fetch")
	flag.Parse()

	cfg, err := NewAppConfig().Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, _, cleanup, err := factory.NewStore(ctx, cfg.Storage)
	if err != nil {
		slog.Error("Failed to set up storage", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	fetcher := fetch.NewClient(nil)
	apiBase := wp.GuessAPIBase(ctx, fetcher, cfg.SiteBase)
	slog.Info("Using WordPress API", "base", apiBase)

	dir := archive.New(cfg.ResultsDir, cfg.IDPrefix, cfg.IDPad, fetcher)
	scraper := scrape.New(wp.NewClient(fetcher, apiBase), dir, store, slog.Default())

	saved, err := scraper.Run(ctx, *limit)
	if err != nil {
		slog.Error("Scrape failed", "error", err)
		os.Exit(1)
	}

	for _, p := range saved {
		slog.Info("Saved", "id", p.ID, "title", p.Title)
	}
	slog.Info("Scrape finished", "saved", len(saved))
}

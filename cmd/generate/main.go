package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/newsmaker-md/content-pipeline/internal/archive"
	"github.com/newsmaker-md/content-pipeline/internal/fetch"
	"github.com/newsmaker-md/content-pipeline/internal/generate"
	"github.com/newsmaker-md/content-pipeline/internal/storage/factory"
)

func main() {
	slog.SetLogLoggerLevel(slog.LevelInfo)

	var (
		mode    = flag.String("mode", "text", "generation mode: image or text")
		article = flag.String("article", "", "article ID to process")
		below   = flag.String("below", "", "process IDs below this one")
		count   = flag.Int("count", 2, "how many IDs to process with -below")
		pending = flag.Int("pending", 0, "process up to N articles without a generated image (image mode)")
		force   = flag.Bool("force", false, "regenerate even when the article already has output")
		dryRun  = flag.Bool("dry-run", false, "list targets without calling the API")
	)
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
	dir := archive.New(cfg.ResultsDir, cfg.IDPrefix, cfg.IDPad, fetcher)

	catalog := generate.DefaultCatalog()
	if path := os.Getenv("MODELS_FILE"); path != "" {
		if catalog, err = generate.LoadCatalog(path); err != nil {
			slog.Error("Failed to load model catalog", "path", path, "error", err)
			os.Exit(1)
		}
	}
	if err := catalog.Seed(ctx, store); err != nil {
		slog.Error("Failed to seed model catalog", "error", err)
		os.Exit(1)
	}

	svc := generate.NewService(
		dir,
		store,
		generate.NewDashScopeClient(cfg.DashScopeAPIKey, cfg.T2IModel),
		generate.NewVisionClient(cfg.DashScopeAPIKey, cfg.VisionBaseURL, cfg.VisionModel),
		fetcher,
		slog.Default(),
		generate.WithLanguage(cfg.Language),
	)

	switch *mode {
	case "image":
		runImage(ctx, svc, *article, *below, *count, *pending, *force, *dryRun)
	case "text":
		runText(ctx, svc, *article, *below, *count, *force, *dryRun)
	default:
		slog.Error("Unknown mode", "mode", *mode)
		os.Exit(1)
	}
}

func runImage(ctx context.Context, svc *generate.Service, article, below string, count, pending int, force, dryRun bool) {
	switch {
	case article != "":
		out, err := svc.GenerateImage(ctx, article, force)
		if err != nil {
			slog.Error("Image generation failed", "id", article, "error", err)
			os.Exit(1)
		}
		if out != nil {
			slog.Info("Done", "id", out.ArticleID, "path", out.ImagePath)
		}
	case below != "":
		done, err := svc.GenerateImageBelow(ctx, below, count, force, dryRun)
		if err != nil {
			slog.Error("Batch image generation failed", "error", err)
			os.Exit(1)
		}
		if dryRun {
			for _, id := range done {
				slog.Info("Would process", "id", id)
			}
			return
		}
		slog.Info("Batch finished", "generated", len(done))
	case pending > 0:
		done, err := svc.GeneratePendingImages(ctx, pending)
		if err != nil {
			slog.Error("Batch image generation failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Batch finished", "generated", len(done))
	default:
		slog.Error("image mode needs -article, -below or -pending")
		os.Exit(1)
	}
}

func runText(ctx context.Context, svc *generate.Service, article, below string, count int, force, dryRun bool) {
	switch {
	case article != "":
		out, err := svc.GenerateText(ctx, article, force)
		if err != nil {
			slog.Error("Text generation failed", "id", article, "error", err)
			os.Exit(1)
		}
		if out != nil {
			slog.Info("Done", "id", out.ArticleID, "path", out.TextPath)
		}
	case below != "":
		done, err := svc.GenerateTextBelow(ctx, below, count, force, dryRun)
		if err != nil {
			slog.Error("Batch text generation failed", "error", err)
			os.Exit(1)
		}
		if dryRun {
			for _, id := range done {
				slog.Info("Would process", "id", id)
			}
			return
		}
		slog.Info("Batch finished", "generated", len(done))
	default:
		slog.Error("text mode needs -article or -below")
		os.Exit(1)
	}
}

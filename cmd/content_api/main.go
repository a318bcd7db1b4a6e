package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/labstack/echo/v4"

	"github.com/newsmaker-md/content-pipeline/internal/apperr"
	"github.com/newsmaker-md/content-pipeline/internal/archive"
	"github.com/newsmaker-md/content-pipeline/internal/fetch"
	"github.com/newsmaker-md/content-pipeline/internal/generate"
	"github.com/newsmaker-md/content-pipeline/internal/router"
	"github.com/newsmaker-md/content-pipeline/internal/scrape"
	"github.com/newsmaker-md/content-pipeline/internal/storage/factory"
	"github.com/newsmaker-md/content-pipeline/internal/wp"
	pkgserver "github.com/newsmaker-md/content-pipeline/pkg/server"
)

func main() {
	slog.SetLogLoggerLevel(slog.LevelInfo)

	cfg, err := NewAppConfig().Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	store, pool, cleanup, err := factory.NewStore(context.Background(), cfg.Storage)
	if err != nil {
		slog.Error("Failed to set up storage", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	health := pkgserver.HealthChecker(pkgserver.NewOkHealthChecker())
	if pool != nil {
		health = pkgserver.NewPingHealthChecker(pool)
	}

	s := pkgserver.New(&cfg.Server, health).
		SetupMiddlewares().
		SetupErrorHandler(apperr.GlobalErrorHandler()).
		SetupHealthChecks("/health")

	s.Echo.GET("/", func(c echo.Context) error {
		return c.String(200, "Content pipeline API is running")
	})

	fetcher := fetch.NewClient(nil)
	apiBase := wp.GuessAPIBase(s.Context(), fetcher, cfg.SiteBase)
	slog.Info("Using WordPress API", "base", apiBase)

	dir := archive.New(cfg.ResultsDir, cfg.IDPrefix, cfg.IDPad, fetcher)
	scraper := scrape.New(wp.NewClient(fetcher, apiBase), dir, store, slog.Default())

	catalog := generate.DefaultCatalog()
	if path := os.Getenv("MODELS_FILE"); path != "" {
		if catalog, err = generate.LoadCatalog(path); err != nil {
			slog.Error("Failed to load model catalog", "path", path, "error", err)
			os.Exit(1)
		}
	}
	if err := catalog.Seed(context.Background(), store); err != nil {
		slog.Error("Failed to seed model catalog", "error", err)
		os.Exit(1)
	}

	gen := generate.NewService(
		dir,
		store,
		generate.NewDashScopeClient(cfg.DashScopeAPIKey, cfg.T2IModel),
		generate.NewVisionClient(cfg.DashScopeAPIKey, cfg.VisionBaseURL, cfg.VisionModel),
		fetcher,
		slog.Default(),
		generate.WithLanguage(cfg.Language),
	)

	router.NewContentRouter(s.Echo, dir, scraper, gen).Bind()

	go func() {
		<-s.ShutdownSignal()
		slog.Info("Shutdown started, cleaning up resources...")
	}()

	if err := s.Start(); err != nil {
		s.Echo.Logger.Error("Failed to start server: ", err)
		os.Exit(1)
	}
}

package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/newsmaker-md/content-pipeline/internal/domain"
	"github.com/newsmaker-md/content-pipeline/internal/storage/factory"
	"github.com/newsmaker-md/content-pipeline/pkg/config/env"
)

type AppConfig struct {
	ENV string
}

func NewAppConfig() *AppConfig {
	return &AppConfig{
		ENV: os.Getenv("ENV"),
	}
}

type ScrapeConfig struct {
	SiteBase   string
	ResultsDir string
	IDPrefix   string
	IDPad      int

	Storage factory.StorageConfig
}

func (as *AppConfig) Load() (*ScrapeConfig, error) {
	env.LoadDotEnv("cmd/scrape/.env")

	siteBase := os.Getenv("SITE_BASE")
	if siteBase == "" {
		return nil, errors.New("SITE_BASE is required")
	}

	idPad := domain.DefaultIDPad
	if raw := os.Getenv("ID_PAD"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid ID_PAD %q", raw)
		}
		idPad = n
	}

	return &ScrapeConfig{
		SiteBase:   siteBase,
		ResultsDir: env.GetOrDefault("RESULTS_DIR", "crawled_results"),
		IDPrefix:   env.GetOrDefault("ID_PREFIX", domain.DefaultIDPrefix),
		IDPad:      idPad,
		Storage:    factory.LoadEnv(),
	}, nil
}

package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/newsmaker-md/content-pipeline/internal/domain"
	"github.com/newsmaker-md/content-pipeline/internal/generate"
	"github.com/newsmaker-md/content-pipeline/internal/storage/factory"
	"github.com/newsmaker-md/content-pipeline/pkg/config/env"
	"github.com/newsmaker-md/content-pipeline/pkg/server"
)

type AppConfig struct {
	ENV string
}

func NewAppConfig() *AppConfig {
	return &AppConfig{
		ENV: os.Getenv("ENV"),
	}
}

type ContentAPIConfig struct {
	Server server.Config

	SiteBase   string
	ResultsDir string
	IDPrefix   string
	IDPad      int

	DashScopeAPIKey string
	T2IModel        string
	VisionModel     string
	VisionBaseURL   string
	Language        string

	Storage factory.StorageConfig
}

func (as *AppConfig) Load() (*ContentAPIConfig, error) {
	env.LoadDotEnv("cmd/content_api/.env")

	siteBase := os.Getenv("SITE_BASE")
	if siteBase == "" {
		return nil, errors.New("SITE_BASE is required")
	}

	port := env.GetOrDefault("PORT", "8080")
	if err := validatePort(port); err != nil {
		return nil, fmt.Errorf("invalid port: %w", err)
	}

	var origins []string
	if raw := os.Getenv("CORS_ORIGINS"); raw != "" {
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	idPad := domain.DefaultIDPad
	if raw := os.Getenv("ID_PAD"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid ID_PAD %q", raw)
		}
		idPad = n
	}

	return &ContentAPIConfig{
		Server: server.Config{
			Port:        port,
			CorsOrigins: origins,
		},
		SiteBase:        siteBase,
		ResultsDir:      env.GetOrDefault("RESULTS_DIR", "crawled_results"),
		IDPrefix:        env.GetOrDefault("ID_PREFIX", domain.DefaultIDPrefix),
		IDPad:           idPad,
		DashScopeAPIKey: os.Getenv("DASHSCOPE_API_KEY"),
		T2IModel:        env.GetOrDefault("T2I_MODEL", generate.DefaultT2IModel),
		VisionModel:     env.GetOrDefault("QWEN_VL_MODEL", generate.DefaultVisionModel),
		VisionBaseURL:   env.GetOrDefault("VISION_BASE_URL", generate.DashScopeCompatBaseURL),
		Language:        env.GetOrDefault("GEN_LANGUAGE", "en"),
		Storage:         factory.LoadEnv(),
	}, nil
}

func validatePort(port string) error {
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return errors.New("port must be a number")
	}
	if portNum < 1 || portNum > 65535 {
		return errors.New("port must be between 1 and 65535")
	}
	return nil
}

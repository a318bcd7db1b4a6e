package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/newsmaker-md/content-pipeline/internal/domain"
	"github.com/newsmaker-md/content-pipeline/internal/generate"
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

type GenerateConfig struct {
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

func (as *AppConfig) Load() (*GenerateConfig, error) {
	env.LoadDotEnv("cmd/generate/.env")

	idPad := domain.DefaultIDPad
	if raw := os.Getenv("ID_PAD"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid ID_PAD %q", raw)
		}
		idPad = n
	}

	return &GenerateConfig{
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

package generate

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/newsmaker-md/content-pipeline/internal/domain"
	"github.com/newsmaker-md/content-pipeline/internal/storage"
)

// Catalog is the declarative list of models the pipeline may call. It seeds
// the models table so run rows can reference them.
type Catalog struct {
	Models []CatalogEntry `yaml:"models"`
}

type CatalogEntry struct {
	Provider      string         `yaml:"provider"`
	Name          string         `yaml:"name"`
	Modality      string         `yaml:"modality"`
	DefaultParams map[string]any `yaml:"defaultParams,omitempty"`
}

// DefaultCatalog covers the two models the pipeline ships with.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Models: []CatalogEntry{
			{
				Provider: providerDashScope,
				Name:     DefaultT2IModel,
				Modality: "text_to_image",
				DefaultParams: map[string]any{
					"size":          DefaultImageSize,
					"prompt_extend": true,
					"watermark":     false,
				},
			},
			{
				Provider: providerDashScope,
				Name:     DefaultVisionModel,
				Modality: "image_to_text",
			},
		},
	}
}

// LoadCatalog reads a YAML model catalog from path.
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model catalog: %w", err)
	}

	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse model catalog: %w", err)
	}
	for i, m := range c.Models {
		if m.Provider == "" || m.Name == "" || m.Modality == "" {
			return nil, fmt.Errorf("model catalog entry %d: provider, name and modality are required", i)
		}
	}
	return &c, nil
}

// Seed upserts every catalog entry into the store.
func (c *Catalog) Seed(ctx context.Context, store storage.Store) error {
	for _, m := range c.Models {
		_, err := store.EnsureModel(ctx, domain.ModelRow{
			Provider:      m.Provider,
			Name:          m.Name,
			Modality:      m.Modality,
			DefaultParams: m.DefaultParams,
		})
		if err != nil {
			return fmt.Errorf("seed model %s/%s: %w", m.Provider, m.Name, err)
		}
	}
	return nil
}

package generate

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/newsmaker-md/content-pipeline/internal/archive"
	"github.com/newsmaker-md/content-pipeline/internal/domain"
	"github.com/newsmaker-md/content-pipeline/internal/fetch"
	"github.com/newsmaker-md/content-pipeline/internal/storage"
)

const providerDashScope = "dashscope"

// Service orchestrates the two generation flows over the archive directory
// and the store. Every attempt that reaches an API leaves a run row behind,
// succeeded or failed.
type Service struct {
	dir      *archive.Dir
	store    storage.Store
	images   ImageGenerator
	writer   ArticleWriter
	fetcher  *fetch.Client
	logger   *slog.Logger
	language string
	now      func() time.Time
}

type ServiceOption func(*Service)

// WithLanguage sets the language the vision prompt is built for.
func WithLanguage(language string) ServiceOption {
	return func(s *Service) {
		if language != "" {
			s.language = language
		}
	}
}

func NewService(dir *archive.Dir, store storage.Store, images ImageGenerator, writer ArticleWriter, fetcher *fetch.Client, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		dir:      dir,
		store:    store,
		images:   images,
		writer:   writer,
		fetcher:  fetcher,
		logger:   logger,
		language: "en",
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// prereqChecker is implemented by clients that can validate their
// configuration up front, before any run row is recorded.
type prereqChecker interface {
	CheckPrereq() error
}

func checkPrereq(client any) error {
	if c, ok := client.(prereqChecker); ok {
		return c.CheckPrereq()
	}
	return nil
}

func (s *Service) beginRun(ctx context.Context, articleID string, direction domain.Direction, model, modality string) (uuid.UUID, error) {
	modelID, err := s.store.EnsureModel(ctx, domain.ModelRow{
		Provider: providerDashScope,
		Name:     model,
		Modality: modality,
	})
	if err != nil {
		return uuid.Nil, err
	}
	return s.store.CreateRun(ctx, domain.Run{
		ArticleID: articleID,
		Direction: direction,
		ModelID:   &modelID,
		Status:    domain.RunRunning,
	})
}

func (s *Service) failRun(ctx context.Context, runID uuid.UUID, err error) {
	if cerr := s.store.CompleteRun(ctx, runID, domain.RunFailed, err.Error(), nil); cerr != nil {
		s.logger.Error("record failed run", "run_id", runID, "error", cerr)
	}
}

// locateImage finds the bytes of an article's source image: newest
// non-generated asset blob first, then that asset's path on disk, then a
// directory scan.
func (s *Service) locateImage(ctx context.Context, articleID string) ([]byte, string, bool) {
	if asset, found, err := s.store.LatestSourceImage(ctx, articleID); err == nil && found {
		if len(asset.Data) > 0 {
			return asset.Data, "db:blob", true
		}
		if asset.Path != "" {
			if data, err := os.ReadFile(asset.Path); err == nil {
				return data, asset.Path, true
			}
		}
	}
	if path, found := s.dir.FindImage(articleID); found {
		if data, err := os.ReadFile(path); err == nil {
			return data, path, true
		}
	}
	return nil, "", false
}

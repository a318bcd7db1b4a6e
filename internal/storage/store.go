package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/newsmaker-md/content-pipeline/internal/domain"
)

// Store is the relational mirror of the crawled-results tree. All entity
// mutation goes through these idempotent operations; nothing updates rows in
// ad hoc query code, which is what keeps the de-duplication invariants
// intact.
type Store interface {
	// UpsertArticle inserts the article or, when the ID exists, updates
	// title/url/paragraphs and published_at (when set).
	UpsertArticle(ctx context.Context, article domain.Article) (domain.Article, error)

	// GetArticle returns apperr.NotFoundError for unknown IDs.
	GetArticle(ctx context.Context, id string) (domain.Article, error)

	// CreateOrGetAsset inserts unless (article, kind, path) exists, in which
	// case the existing row id is returned. A sha256 already bound to a
	// different article yields apperr.ConflictError.
	CreateOrGetAsset(ctx context.Context, asset domain.Asset) (uuid.UUID, error)

	// CreateOrGetText inserts unless (article, kind, path) exists.
	CreateOrGetText(ctx context.Context, row domain.TextRow) (uuid.UUID, error)

	// LatestSourceImage returns the newest image asset of the article that
	// is not itself generated; ok is false when there is none.
	LatestSourceImage(ctx context.Context, articleID string) (domain.Asset, bool, error)

	MarkImageGenerated(ctx context.Context, articleID string) error
	MarkTextGenerated(ctx context.Context, articleID string) error

	// PendingTextToImage lists articles with no generated image yet, oldest
	// first.
	PendingTextToImage(ctx context.Context, limit int) ([]domain.Article, error)

	// EnsureModel registers a model descriptor keyed by (provider, name).
	EnsureModel(ctx context.Context, model domain.ModelRow) (uuid.UUID, error)

	CreateRun(ctx context.Context, run domain.Run) (uuid.UUID, error)
	CompleteRun(ctx context.Context, runID uuid.UUID, status domain.RunStatus, errText string, stats map[string]any) error

	// WithTx runs fn against a transaction-scoped store; article-level
	// updates (asset/text row plus flag flip) commit or roll back together.
	WithTx(ctx context.Context, fn func(Store) error) error
}

package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/newsmaker-md/content-pipeline/internal/apperr"
	"github.com/newsmaker-md/content-pipeline/internal/domain"
	"github.com/newsmaker-md/content-pipeline/internal/storage"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so the same store
// code serves pooled and transaction-scoped access.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the Postgres-backed storage.Store. It is an explicitly
// constructed handle; there is no package-level connection state.
type Store struct {
	db   querier
	pool *pgxpool.Pool
}

var _ storage.Store = (*Store)(nil)

func NewStore(pool *ConnectionPool) *Store {
	return &Store{db: pool.conn, pool: pool.conn}
}

const articleColumns = `id, url, title, published_at, paragraphs_count, created_at, updated_at,
       has_image_generated, image_generated_at, has_text_generated, text_generated_at`

func scanArticle(row pgx.Row) (domain.Article, error) {
	var a domain.Article
	err := row.Scan(
		&a.ID, &a.URL, &a.Title, &a.PublishedAt, &a.ParagraphsCount, &a.CreatedAt, &a.UpdatedAt,
		&a.HasImageGenerated, &a.ImageGeneratedAt, &a.HasTextGenerated, &a.TextGeneratedAt,
	)
	return a, err
}

func (s *Store) UpsertArticle(ctx context.Context, article domain.Article) (domain.Article, error) {
	cmd := `
        INSERT INTO articles (id, url, title, published_at, paragraphs_count)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (id) DO UPDATE SET
            url = EXCLUDED.url,
            title = EXCLUDED.title,
            paragraphs_count = EXCLUDED.paragraphs_count,
            published_at = COALESCE(EXCLUDED.published_at, articles.published_at),
            updated_at = now()
        RETURNING ` + articleColumns

	saved, err := scanArticle(s.db.QueryRow(ctx, cmd,
		article.ID, article.URL, article.Title, article.PublishedAt, article.ParagraphsCount))
	if err != nil {
		return domain.Article{}, fmt.Errorf("upsert article %s: %w", article.ID, err)
	}
	return saved, nil
}

func (s *Store) GetArticle(ctx context.Context, id string) (domain.Article, error) {
	a, err := scanArticle(s.db.QueryRow(ctx, `SELECT `+articleColumns+` FROM articles WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Article{}, apperr.NewNotFound("article", id)
	}
	if err != nil {
		return domain.Article{}, fmt.Errorf("get article %s: %w", id, err)
	}
	return a, nil
}

func (s *Store) CreateOrGetAsset(ctx context.Context, asset domain.Asset) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.db.QueryRow(ctx,
		`SELECT id FROM assets WHERE article_id = $1 AND kind = $2 AND path = $3`,
		asset.ArticleID, asset.Kind, asset.Path).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("lookup asset: %w", err)
	}

	if asset.SHA256 != "" {
		var owner string
		err := s.db.QueryRow(ctx,
			`SELECT id, article_id FROM assets WHERE sha256 = $1`, asset.SHA256).Scan(&id, &owner)
		if err == nil {
			if owner != asset.ArticleID {
				return uuid.Nil, apperr.NewConflict(fmt.Sprintf(
					"asset sha256 %s already bound to article %s", asset.SHA256, owner))
			}
			return id, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("lookup asset by sha256: %w", err)
		}
	}

	id = uuid.New()
	_, err = s.db.Exec(ctx, `
        INSERT INTO assets (id, article_id, kind, path, data, size_bytes, mime, sha256, width, height)
        VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10)`,
		id, asset.ArticleID, asset.Kind, asset.Path, asset.Data,
		nullableInt64(asset.SizeBytes), nullableStr(asset.MIME), asset.SHA256,
		nullableInt(asset.Width), nullableInt(asset.Height))
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert asset: %w", err)
	}
	return id, nil
}

func (s *Store) CreateOrGetText(ctx context.Context, row domain.TextRow) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.db.QueryRow(ctx,
		`SELECT id FROM texts WHERE article_id = $1 AND kind = $2 AND path = $3`,
		row.ArticleID, row.Kind, row.Path).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("lookup text: %w", err)
	}

	id = uuid.New()
	_, err = s.db.Exec(ctx, `
        INSERT INTO texts (id, article_id, kind, path, preview, tokens)
        VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)`,
		id, row.ArticleID, row.Kind, row.Path, row.Preview, nullableInt(row.Tokens))
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert text: %w", err)
	}
	return id, nil
}

func (s *Store) LatestSourceImage(ctx context.Context, articleID string) (domain.Asset, bool, error) {
	var a domain.Asset
	err := s.db.QueryRow(ctx, `
        SELECT id, article_id, kind, path, data, COALESCE(size_bytes, 0), COALESCE(mime, ''),
               COALESCE(sha256, ''), COALESCE(width, 0), COALESCE(height, 0), created_at
        FROM assets
        WHERE article_id = $1 AND mime LIKE 'image/%' AND kind <> $2
        ORDER BY created_at DESC
        LIMIT 1`, articleID, domain.AssetGeneratedImage).Scan(
		&a.ID, &a.ArticleID, &a.Kind, &a.Path, &a.Data, &a.SizeBytes, &a.MIME,
		&a.SHA256, &a.Width, &a.Height, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Asset{}, false, nil
	}
	if err != nil {
		return domain.Asset{}, false, fmt.Errorf("latest source image for %s: %w", articleID, err)
	}
	return a, true, nil
}

func (s *Store) MarkImageGenerated(ctx context.Context, articleID string) error {
	return s.markGenerated(ctx, articleID, `
        UPDATE articles
        SET has_image_generated = TRUE, image_generated_at = now(), updated_at = now()
        WHERE id = $1`)
}

func (s *Store) MarkTextGenerated(ctx context.Context, articleID string) error {
	return s.markGenerated(ctx, articleID, `
        UPDATE articles
        SET has_text_generated = TRUE, text_generated_at = now(), updated_at = now()
        WHERE id = $1`)
}

func (s *Store) markGenerated(ctx context.Context, articleID, cmd string) error {
	tag, err := s.db.Exec(ctx, cmd, articleID)
	if err != nil {
		return fmt.Errorf("mark generated %s: %w", articleID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NewNotFound("article", articleID)
	}
	return nil
}

func (s *Store) PendingTextToImage(ctx context.Context, limit int) ([]domain.Article, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+articleColumns+`
        FROM articles
        WHERE has_image_generated = FALSE
        ORDER BY created_at ASC
        LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending articles: %w", err)
	}
	defer rows.Close()

	var out []domain.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

func (s *Store) EnsureModel(ctx context.Context, model domain.ModelRow) (uuid.UUID, error) {
	params, err := json.Marshal(model.DefaultParams)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal model params: %w", err)
	}

	var id uuid.UUID
	err = s.db.QueryRow(ctx, `
        INSERT INTO models (id, provider, name, modality, default_params)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (provider, name) DO UPDATE SET modality = EXCLUDED.modality
        RETURNING id`,
		uuid.New(), model.Provider, model.Name, model.Modality, params).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("ensure model %s/%s: %w", model.Provider, model.Name, err)
	}
	return id, nil
}

func (s *Store) CreateRun(ctx context.Context, run domain.Run) (uuid.UUID, error) {
	if run.Status == "" {
		run.Status = domain.RunQueued
	}
	stats, err := json.Marshal(run.Stats)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal run stats: %w", err)
	}

	id := uuid.New()
	_, err = s.db.Exec(ctx, `
        INSERT INTO runs (id, article_id, direction, model_id, input_asset_id, input_text_id, status, stats)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, run.ArticleID, run.Direction, run.ModelID, run.InputAssetID, run.InputTextID, run.Status, stats)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

func (s *Store) CompleteRun(ctx context.Context, runID uuid.UUID, status domain.RunStatus, errText string, stats map[string]any) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal run stats: %w", err)
	}
	_, err = s.db.Exec(ctx, `
        UPDATE runs
        SET status = $2, error = NULLIF($3, ''), stats = $4, completed_at = now()
        WHERE id = $1`, runID, status, errText, raw)
	if err != nil {
		return fmt.Errorf("complete run %s: %w", runID, err)
	}
	return nil
}

// WithTx runs fn against a transaction-scoped copy of the store. A nested
// call inside an open transaction reuses it.
func (s *Store) WithTx(ctx context.Context, fn func(storage.Store) error) error {
	if s.pool == nil {
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&Store{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func nullableStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableInt(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}

func nullableInt64(n int64) *int64 {
	if n == 0 {
		return nil
	}
	return &n
}

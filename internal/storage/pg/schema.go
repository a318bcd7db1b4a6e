package pg

import (
	"context"
	"fmt"
)

// Schema is the full pipeline schema. Articles own their assets, texts, and
// runs with cascade deletes; sha256 is globally unique across assets.
const Schema = `
CREATE TABLE IF NOT EXISTS articles (
    id                  TEXT PRIMARY KEY,
    url                 TEXT NOT NULL UNIQUE,
    title               TEXT NOT NULL DEFAULT '',
    published_at        TIMESTAMPTZ,
    paragraphs_count    INTEGER NOT NULL DEFAULT 0,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
    has_image_generated BOOLEAN NOT NULL DEFAULT FALSE,
    image_generated_at  TIMESTAMPTZ,
    has_text_generated  BOOLEAN NOT NULL DEFAULT FALSE,
    text_generated_at   TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS assets (
    id         UUID PRIMARY KEY,
    article_id TEXT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
    kind       TEXT NOT NULL,
    path       TEXT NOT NULL,
    data       BYTEA,
    size_bytes BIGINT,
    mime       TEXT,
    sha256     TEXT UNIQUE,
    width      INTEGER,
    height     INTEGER,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (article_id, kind, path)
);
CREATE INDEX IF NOT EXISTS idx_assets_article ON assets(article_id);

CREATE TABLE IF NOT EXISTS texts (
    id         UUID PRIMARY KEY,
    article_id TEXT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
    kind       TEXT NOT NULL,
    path       TEXT NOT NULL,
    preview    TEXT,
    tokens     INTEGER,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (article_id, kind, path)
);
CREATE INDEX IF NOT EXISTS idx_texts_article ON texts(article_id);

CREATE TABLE IF NOT EXISTS models (
    id             UUID PRIMARY KEY,
    provider       TEXT NOT NULL,
    name           TEXT NOT NULL,
    modality       TEXT NOT NULL,
    default_params JSONB,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (provider, name)
);

CREATE TABLE IF NOT EXISTS runs (
    id             UUID PRIMARY KEY,
    article_id     TEXT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
    direction      TEXT NOT NULL,
    model_id       UUID REFERENCES models(id),
    input_asset_id UUID REFERENCES assets(id),
    input_text_id  UUID REFERENCES texts(id),
    status         TEXT NOT NULL DEFAULT 'queued',
    error          TEXT,
    stats          JSONB,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    completed_at   TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_runs_article ON runs(article_id);
`

// Migrate applies the schema. Statements are idempotent, so re-running on an
// existing database is safe.
func Migrate(ctx context.Context, pool *ConnectionPool) error {
	if _, err := pool.GetConn().Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

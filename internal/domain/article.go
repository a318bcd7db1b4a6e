package domain

import (
	"time"

	"github.com/google/uuid"
)

// AssetKind classifies a binary artifact attached to an article.
type AssetKind string

const (
	AssetOriginalImage  AssetKind = "original_image"
	AssetThumb          AssetKind = "thumb"
	AssetGeneratedImage AssetKind = "generated_image"
	AssetOther          AssetKind = "other"
)

// TextKind classifies a textual artifact attached to an article.
type TextKind string

const (
	TextOriginal           TextKind = "original_text"
	TextGeneratedFromImage TextKind = "generated_text_from_image"
	TextVisionArticle      TextKind = "vision_article"
	TextOther              TextKind = "other"
)

// Direction names one of the two generation flows.
type Direction string

const (
	DirectionImageToText Direction = "image_to_text"
	DirectionTextToImage Direction = "text_to_image"
)

// RunStatus tracks the lifecycle of one generation attempt.
type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
	RunSkipped   RunStatus = "skipped"
)

// Article is one scraped news post. The ID is a sequential prefixed string
// such as "11LM003"; the URL is unique across all articles.
type Article struct {
	ID              string     `json:"id"`
	URL             string     `json:"url"`
	Title           string     `json:"title"`
	PublishedAt     *time.Time `json:"publishedAt,omitempty"`
	ParagraphsCount int        `json:"paragraphsCount"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`

	HasImageGenerated bool       `json:"hasImageGenerated"`
	ImageGeneratedAt  *time.Time `json:"imageGeneratedAt,omitempty"`
	HasTextGenerated  bool       `json:"hasTextGenerated"`
	TextGeneratedAt   *time.Time `json:"textGeneratedAt,omitempty"`
}

// Asset is a binary artifact owned by exactly one article. SHA256 is
// globally unique when present. The idempotency key for insertion is
// (ArticleID, Kind, Path).
type Asset struct {
	ID        uuid.UUID `json:"id"`
	ArticleID string    `json:"articleId"`
	Kind      AssetKind `json:"kind"`
	Path      string    `json:"path"`
	Data      []byte    `json:"-"`
	SizeBytes int64     `json:"sizeBytes,omitempty"`
	MIME      string    `json:"mime,omitempty"`
	SHA256    string    `json:"sha256,omitempty"`
	Width     int       `json:"width,omitempty"`
	Height    int       `json:"height,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// TextRow is a textual artifact owned by exactly one article. The
// idempotency key for insertion is (ArticleID, Kind, Path).
type TextRow struct {
	ID        uuid.UUID `json:"id"`
	ArticleID string    `json:"articleId"`
	Kind      TextKind  `json:"kind"`
	Path      string    `json:"path"`
	Preview   string    `json:"preview,omitempty"`
	Tokens    int       `json:"tokens,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ModelRow describes an external model. Reference data, never mutated by the
// pipeline itself.
type ModelRow struct {
	ID            uuid.UUID      `json:"id"`
	Provider      string         `json:"provider"`
	Name          string         `json:"name"`
	Modality      string         `json:"modality"`
	DefaultParams map[string]any `json:"defaultParams,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// Run is the audit record of one generation attempt.
type Run struct {
	ID           uuid.UUID      `json:"id"`
	ArticleID    string         `json:"articleId"`
	Direction    Direction      `json:"direction"`
	ModelID      *uuid.UUID     `json:"modelId,omitempty"`
	InputAssetID *uuid.UUID     `json:"inputAssetId,omitempty"`
	InputTextID  *uuid.UUID     `json:"inputTextId,omitempty"`
	Status       RunStatus      `json:"status"`
	Error        string         `json:"error,omitempty"`
	Stats        map[string]any `json:"stats,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	CompletedAt  *time.Time     `json:"completedAt,omitempty"`
}

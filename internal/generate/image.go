package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/newsmaker-md/content-pipeline/internal/archive"
	"github.com/newsmaker-md/content-pipeline/internal/domain"
	"github.com/newsmaker-md/content-pipeline/internal/fetch"
	"github.com/newsmaker-md/content-pipeline/internal/imageutil"
	"github.com/newsmaker-md/content-pipeline/internal/storage"
)

const imageDownloadTimeout = 60 * time.Second

// ImageOutcome reports one completed text-to-image generation.
type ImageOutcome struct {
	ArticleID string `json:"articleId"`
	ImagePath string `json:"imagePath"`
	Prompt    string `json:"prompt"`
}

// GenerateImage produces an illustration for one article from its title and
// body text. When the article already has a generated image and force is
// false it returns (nil, nil) without spending an API call.
func (s *Service) GenerateImage(ctx context.Context, articleID string, force bool) (*ImageOutcome, error) {
	art, err := s.store.GetArticle(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if art.HasImageGenerated && !force {
		s.logger.Info("image already generated, skipping", "id", articleID)
		return nil, nil
	}

	if err := checkPrereq(s.images); err != nil {
		return nil, err
	}

	body, err := s.dir.ReadBody(articleID)
	if err != nil {
		s.logger.Warn("article body unavailable, prompting from title only", "id", articleID, "error", err)
		body = ""
	}
	prompt := BuildPrompt(art.Title, body)

	model := s.images.Model()
	runID, err := s.beginRun(ctx, articleID, domain.DirectionTextToImage, model, "text_to_image")
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}

	result, err := s.images.GenerateImage(ctx, prompt)
	if err != nil {
		s.failRun(ctx, runID, err)
		return nil, err
	}

	// The returned URL is short-lived, download right away.
	resp, err := s.fetcher.Get(ctx, result.ImageURL, fetch.Options{Timeout: imageDownloadTimeout})
	if err != nil {
		s.failRun(ctx, runID, err)
		return nil, fmt.Errorf("download generated image: %w", err)
	}
	data := resp.Body

	sum := imageutil.SHA256Hex(data)
	width, height, err := imageutil.Dimensions(data)
	if err != nil {
		s.failRun(ctx, runID, err)
		return nil, fmt.Errorf("decode generated image: %w", err)
	}

	ts := archive.GenTimestamp(s.now().UTC())
	sidecar := map[string]any{
		"request":  json.RawMessage(result.Request),
		"response": json.RawMessage(result.Response),
		"sha256":   sum,
		"width":    width,
		"height":   height,
	}
	path, err := s.dir.WriteGenArtifact(articleID, archive.GenTextToImage, model, ts, ".png", data, sidecar)
	if err != nil {
		s.failRun(ctx, runID, err)
		return nil, err
	}

	err = s.store.WithTx(ctx, func(tx storage.Store) error {
		if _, err := tx.CreateOrGetAsset(ctx, domain.Asset{
			ArticleID: articleID,
			Kind:      domain.AssetGeneratedImage,
			Path:      path,
			Data:      data,
			SizeBytes: int64(len(data)),
			MIME:      "image/png",
			SHA256:    sum,
			Width:     width,
			Height:    height,
		}); err != nil {
			return err
		}
		return tx.MarkImageGenerated(ctx, articleID)
	})
	if err != nil {
		s.failRun(ctx, runID, err)
		return nil, err
	}

	stats := map[string]any{"prompt_chars": len(prompt), "image_bytes": len(data)}
	if err := s.store.CompleteRun(ctx, runID, domain.RunSucceeded, "", stats); err != nil {
		s.logger.Error("record succeeded run", "run_id", runID, "error", err)
	}

	s.logger.Info("generated image", "id", articleID, "path", path, "model", model)
	return &ImageOutcome{ArticleID: articleID, ImagePath: path, Prompt: prompt}, nil
}

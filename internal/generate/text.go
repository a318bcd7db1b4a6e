package generate

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/newsmaker-md/content-pipeline/internal/archive"
	"github.com/newsmaker-md/content-pipeline/internal/domain"
	"github.com/newsmaker-md/content-pipeline/internal/imageutil"
	"github.com/newsmaker-md/content-pipeline/internal/storage"
	"github.com/newsmaker-md/content-pipeline/pkg/textutil"
)

const (
	visionMaxSide        = 1600
	generatedTextPreview = 280
)

// TextOutcome reports one completed image-to-text generation.
type TextOutcome struct {
	ArticleID string `json:"articleId"`
	TextPath  string `json:"textPath"`
}

// GenerateText writes a news article from the article's source image. It
// returns (nil, nil) when the article already has generated text and force
// is false, or when no source image can be located.
func (s *Service) GenerateText(ctx context.Context, articleID string, force bool) (*TextOutcome, error) {
	art, err := s.store.GetArticle(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if art.HasTextGenerated && !force {
		s.logger.Info("text already generated, skipping", "id", articleID)
		return nil, nil
	}

	data, source, found := s.locateImage(ctx, articleID)
	if !found {
		s.logger.Info("no source image, skipping", "id", articleID)
		return nil, nil
	}

	if err := checkPrereq(s.writer); err != nil {
		return nil, err
	}

	jpeg, err := imageutil.EncodeJPEGBounded(data, visionMaxSide, imageutil.DefaultJPEGQuality)
	if err != nil {
		return nil, fmt.Errorf("prepare image for vision model: %w", err)
	}
	b64 := base64.StdEncoding.EncodeToString(jpeg)

	prompt := articlePrompt(s.language)
	model := s.writer.Model()
	runID, err := s.beginRun(ctx, articleID, domain.DirectionImageToText, model, "image_to_text")
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}

	text, err := s.writer.WriteArticle(ctx, prompt, b64)
	if err != nil {
		s.failRun(ctx, runID, err)
		return nil, err
	}

	ts := archive.GenTimestamp(s.now().UTC())
	sidecar := map[string]any{
		"model":        model,
		"article_id":   articleID,
		"image_source": source,
		"prompt":       prompt,
		"created_at":   ts,
	}
	path, err := s.dir.WriteGenArtifact(articleID, archive.GenImageToArticle, model, ts, ".md", []byte(text), sidecar)
	if err != nil {
		s.failRun(ctx, runID, err)
		return nil, err
	}

	tokens := textutil.ApproxTokens(text)
	err = s.store.WithTx(ctx, func(tx storage.Store) error {
		if _, err := tx.CreateOrGetText(ctx, domain.TextRow{
			ArticleID: articleID,
			Kind:      domain.TextVisionArticle,
			Path:      path,
			Preview:   textutil.Preview(text, generatedTextPreview),
			Tokens:    tokens,
		}); err != nil {
			return err
		}
		return tx.MarkTextGenerated(ctx, articleID)
	})
	if err != nil {
		s.failRun(ctx, runID, err)
		return nil, err
	}

	stats := map[string]any{"tokens": tokens, "chars": len(text)}
	if err := s.store.CompleteRun(ctx, runID, domain.RunSucceeded, "", stats); err != nil {
		s.logger.Error("record succeeded run", "run_id", runID, "error", err)
	}

	s.logger.Info("generated article text", "id", articleID, "path", path, "model", model)
	return &TextOutcome{ArticleID: articleID, TextPath: path}, nil
}

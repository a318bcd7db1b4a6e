package generate

import (
	"context"
	"errors"
	"fmt"

	"github.com/newsmaker-md/content-pipeline/internal/apperr"
	"github.com/newsmaker-md/content-pipeline/internal/domain"
)

// GenerateTextBelow walks count IDs downward from startID (preserving the
// zero-padded width, never going below zero) and generates article text for
// each. Missing articles and per-item failures are logged and skipped; the
// batch never aborts. With dryRun it only returns the would-be targets.
func (s *Service) GenerateTextBelow(ctx context.Context, startID string, count int, force, dryRun bool) ([]string, error) {
	targets := domain.IDsBelow(startID, count)
	if len(targets) == 0 {
		s.logger.Info("no numeric-suffix IDs below start", "start", startID)
		return nil, nil
	}
	if dryRun {
		return targets, nil
	}

	var done []string
	for _, id := range targets {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		out, err := s.GenerateText(ctx, id, force)
		if err != nil {
			var nf *apperr.NotFoundError
			if errors.As(err, &nf) {
				s.logger.Info("article not found, skipping", "id", id)
				continue
			}
			s.logger.Error("image-to-text failed", "id", id, "error", err)
			continue
		}
		if out != nil {
			done = append(done, id)
		}
	}
	return done, nil
}

// GenerateImageBelow walks count IDs downward from startID and generates an
// illustration for each, with the same skip and failure-isolation rules as
// GenerateTextBelow.
func (s *Service) GenerateImageBelow(ctx context.Context, startID string, count int, force, dryRun bool) ([]string, error) {
	targets := domain.IDsBelow(startID, count)
	if len(targets) == 0 {
		s.logger.Info("no numeric-suffix IDs below start", "start", startID)
		return nil, nil
	}
	if dryRun {
		return targets, nil
	}

	var done []string
	for _, id := range targets {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		out, err := s.GenerateImage(ctx, id, force)
		if err != nil {
			var nf *apperr.NotFoundError
			if errors.As(err, &nf) {
				s.logger.Info("article not found, skipping", "id", id)
				continue
			}
			s.logger.Error("text-to-image failed", "id", id, "error", err)
			continue
		}
		if out != nil {
			done = append(done, id)
		}
	}
	return done, nil
}

// GeneratePendingImages generates illustrations for up to limit articles
// that have none yet, oldest first. Per-item failures are logged and
// skipped.
func (s *Service) GeneratePendingImages(ctx context.Context, limit int) ([]string, error) {
	pending, err := s.store.PendingTextToImage(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending articles: %w", err)
	}

	var done []string
	for _, art := range pending {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		out, err := s.GenerateImage(ctx, art.ID, false)
		if err != nil {
			s.logger.Error("text-to-image failed", "id", art.ID, "error", err)
			continue
		}
		if out != nil {
			done = append(done, art.ID)
		}
	}
	return done, nil
}

package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/newsmaker-md/content-pipeline/internal/archive"
	"github.com/newsmaker-md/content-pipeline/internal/domain"
	"github.com/newsmaker-md/content-pipeline/internal/imageutil"
	"github.com/newsmaker-md/content-pipeline/internal/storage"
	"github.com/newsmaker-md/content-pipeline/internal/wp"
	"github.com/newsmaker-md/content-pipeline/pkg/textutil"
)

const originalTextPreviewMax = 512

// Scraper runs the crawl-and-persist pipeline: fetch latest posts, skip
// already-seen URLs, allocate sequential IDs, write files, mirror into the
// store.
type Scraper struct {
	wp     *wp.Client
	dir    *archive.Dir
	store  storage.Store
	logger *slog.Logger
}

func New(wpClient *wp.Client, dir *archive.Dir, store storage.Store, logger *slog.Logger) *Scraper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scraper{wp: wpClient, dir: dir, store: store, logger: logger}
}

// Run scrapes up to limit latest posts and persists the previously unseen
// ones. Per-article persistence failures are logged and skipped; the batch
// never aborts. Re-running against an unchanged feed saves nothing.
func (s *Scraper) Run(ctx context.Context, limit int) ([]archive.SavedPost, error) {
	posts, err := s.wp.LatestPosts(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch latest posts: %w", err)
	}

	seen := s.dir.ExistingURLs()

	var fresh []wp.NormalizedPost
	for _, p := range posts {
		norm := wp.Normalize(p)
		if norm.URL == "" {
			continue
		}
		if _, ok := seen[norm.URL]; ok {
			continue
		}
		fresh = append(fresh, norm)
	}

	if len(fresh) == 0 {
		s.logger.Info("no new posts", "fetched", len(posts))
		return nil, nil
	}

	n := s.dir.NextIndex()
	saved := make([]archive.SavedPost, 0, len(fresh))
	for _, post := range fresh {
		id := s.dir.MakeID(n)
		n++

		row, meta, err := s.dir.SavePost(ctx, id, post)
		if err != nil {
			s.logger.Error("save post failed", "id", id, "url", post.URL, "error", err)
			continue
		}
		if meta.ImageError != "" {
			s.logger.Warn("image download failed", "id", id, "url", post.ImageURL, "error", meta.ImageError)
		}

		if err := s.mirror(ctx, id, post, row); err != nil {
			s.logger.Error("store mirror failed", "id", id, "error", err)
			continue
		}

		s.logger.Info("saved article", "id", id, "url", post.URL, "paragraphs", post.ParagraphsCount)
		saved = append(saved, row)
	}

	return saved, nil
}

// mirror upserts the article with its original text and image rows in one
// transaction, so a partial failure leaves no inconsistent rows behind.
func (s *Scraper) mirror(ctx context.Context, id string, post wp.NormalizedPost, row archive.SavedPost) error {
	return s.store.WithTx(ctx, func(tx storage.Store) error {
		if _, err := tx.UpsertArticle(ctx, domain.Article{
			ID:              id,
			URL:             post.URL,
			Title:           post.Title,
			PublishedAt:     post.PublishedAt,
			ParagraphsCount: post.ParagraphsCount,
		}); err != nil {
			return err
		}

		if _, err := tx.CreateOrGetText(ctx, domain.TextRow{
			ArticleID: id,
			Kind:      domain.TextOriginal,
			Path:      filepath.Join(s.dir.ArticleDir(id), id+".txt"),
			Preview:   textutil.Preview(post.Body, originalTextPreviewMax),
			Tokens:    textutil.ApproxTokens(post.Body),
		}); err != nil {
			return err
		}

		if row.ImagePath != "" {
			asset, err := originalImageAsset(id, row.ImagePath)
			if err != nil {
				return err
			}
			if _, err := tx.CreateOrGetAsset(ctx, asset); err != nil {
				return err
			}
		}

		return nil
	})
}

func originalImageAsset(id, imagePath string) (domain.Asset, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return domain.Asset{}, fmt.Errorf("read saved image: %w", err)
	}

	asset := domain.Asset{
		ArticleID: id,
		Kind:      domain.AssetOriginalImage,
		Path:      imagePath,
		SizeBytes: int64(len(data)),
		MIME:      archive.MIMEForExt(filepath.Ext(imagePath)),
		SHA256:    imageutil.SHA256Hex(data),
	}
	if w, h, err := imageutil.Dimensions(data); err == nil {
		asset.Width, asset.Height = w, h
	}
	return asset, nil
}

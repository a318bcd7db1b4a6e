package in_mem

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/newsmaker-md/content-pipeline/internal/apperr"
	"github.com/newsmaker-md/content-pipeline/internal/domain"
	"github.com/newsmaker-md/content-pipeline/internal/storage"
)

// Store keeps everything in maps, mirroring the Postgres store's semantics
// closely enough that orchestrator tests exercise the same invariants:
// idempotency keys, the sha256 conflict rule, and transactional rollback.
type Store struct {
	mu       sync.RWMutex
	articles map[string]domain.Article
	assets   map[uuid.UUID]domain.Asset
	texts    map[uuid.UUID]domain.TextRow
	models   map[uuid.UUID]domain.ModelRow
	runs     map[uuid.UUID]domain.Run
}

var _ storage.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		articles: make(map[string]domain.Article),
		assets:   make(map[uuid.UUID]domain.Asset),
		texts:    make(map[uuid.UUID]domain.TextRow),
		models:   make(map[uuid.UUID]domain.ModelRow),
		runs:     make(map[uuid.UUID]domain.Run),
	}
}

func (s *Store) UpsertArticle(_ context.Context, article domain.Article) (domain.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if existing, ok := s.articles[article.ID]; ok {
		existing.URL = article.URL
		existing.Title = article.Title
		existing.ParagraphsCount = article.ParagraphsCount
		if article.PublishedAt != nil {
			existing.PublishedAt = article.PublishedAt
		}
		existing.UpdatedAt = now
		s.articles[article.ID] = existing
		return existing, nil
	}

	article.CreatedAt = now
	article.UpdatedAt = now
	s.articles[article.ID] = article
	return article, nil
}

func (s *Store) GetArticle(_ context.Context, id string) (domain.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.articles[id]
	if !ok {
		return domain.Article{}, apperr.NewNotFound("article", id)
	}
	return a, nil
}

func (s *Store) CreateOrGetAsset(_ context.Context, asset domain.Asset) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, a := range s.assets {
		if a.ArticleID == asset.ArticleID && a.Kind == asset.Kind && a.Path == asset.Path {
			return id, nil
		}
	}
	if asset.SHA256 != "" {
		for id, a := range s.assets {
			if a.SHA256 != asset.SHA256 {
				continue
			}
			if a.ArticleID != asset.ArticleID {
				return uuid.Nil, apperr.NewConflict(fmt.Sprintf(
					"asset sha256 %s already bound to article %s", asset.SHA256, a.ArticleID))
			}
			return id, nil
		}
	}

	asset.ID = uuid.New()
	asset.CreatedAt = time.Now()
	s.assets[asset.ID] = asset
	return asset.ID, nil
}

func (s *Store) CreateOrGetText(_ context.Context, row domain.TextRow) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.texts {
		if t.ArticleID == row.ArticleID && t.Kind == row.Kind && t.Path == row.Path {
			return id, nil
		}
	}

	row.ID = uuid.New()
	row.CreatedAt = time.Now()
	s.texts[row.ID] = row
	return row.ID, nil
}

func (s *Store) LatestSourceImage(_ context.Context, articleID string) (domain.Asset, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		best  domain.Asset
		found bool
	)
	for _, a := range s.assets {
		if a.ArticleID != articleID || a.Kind == domain.AssetGeneratedImage {
			continue
		}
		if !strings.HasPrefix(a.MIME, "image/") {
			continue
		}
		if !found || a.CreatedAt.After(best.CreatedAt) {
			best = a
			found = true
		}
	}
	return best, found, nil
}

func (s *Store) MarkImageGenerated(_ context.Context, articleID string) error {
	return s.mark(articleID, func(a *domain.Article, now time.Time) {
		a.HasImageGenerated = true
		a.ImageGeneratedAt = &now
	})
}

func (s *Store) MarkTextGenerated(_ context.Context, articleID string) error {
	return s.mark(articleID, func(a *domain.Article, now time.Time) {
		a.HasTextGenerated = true
		a.TextGeneratedAt = &now
	})
}

func (s *Store) mark(articleID string, apply func(*domain.Article, time.Time)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.articles[articleID]
	if !ok {
		return apperr.NewNotFound("article", articleID)
	}
	now := time.Now()
	apply(&a, now)
	a.UpdatedAt = now
	s.articles[articleID] = a
	return nil
}

func (s *Store) PendingTextToImage(_ context.Context, limit int) ([]domain.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Article
	for _, a := range s.articles {
		if !a.HasImageGenerated {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) EnsureModel(_ context.Context, model domain.ModelRow) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, m := range s.models {
		if m.Provider == model.Provider && m.Name == model.Name {
			return id, nil
		}
	}
	model.ID = uuid.New()
	model.CreatedAt = time.Now()
	s.models[model.ID] = model
	return model.ID, nil
}

func (s *Store) CreateRun(_ context.Context, run domain.Run) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.Status == "" {
		run.Status = domain.RunQueued
	}
	run.ID = uuid.New()
	run.CreatedAt = time.Now()
	s.runs[run.ID] = run
	return run.ID, nil
}

func (s *Store) CompleteRun(_ context.Context, runID uuid.UUID, status domain.RunStatus, errText string, stats map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[runID]
	if !ok {
		return apperr.NewNotFound("run", runID.String())
	}
	now := time.Now()
	run.Status = status
	run.Error = errText
	run.Stats = stats
	run.CompletedAt = &now
	s.runs[runID] = run
	return nil
}

// WithTx snapshots all maps and restores them when fn fails, giving tests
// the same commit-or-rollback behavior the Postgres store has.
func (s *Store) WithTx(_ context.Context, fn func(storage.Store) error) error {
	s.mu.Lock()
	snapshot := s.copyState()
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.restore(snapshot)
		s.mu.Unlock()
		return err
	}
	return nil
}

type state struct {
	articles map[string]domain.Article
	assets   map[uuid.UUID]domain.Asset
	texts    map[uuid.UUID]domain.TextRow
	models   map[uuid.UUID]domain.ModelRow
	runs     map[uuid.UUID]domain.Run
}

func (s *Store) copyState() state {
	st := state{
		articles: make(map[string]domain.Article, len(s.articles)),
		assets:   make(map[uuid.UUID]domain.Asset, len(s.assets)),
		texts:    make(map[uuid.UUID]domain.TextRow, len(s.texts)),
		models:   make(map[uuid.UUID]domain.ModelRow, len(s.models)),
		runs:     make(map[uuid.UUID]domain.Run, len(s.runs)),
	}
	for k, v := range s.articles {
		st.articles[k] = v
	}
	for k, v := range s.assets {
		st.assets[k] = v
	}
	for k, v := range s.texts {
		st.texts[k] = v
	}
	for k, v := range s.models {
		st.models[k] = v
	}
	for k, v := range s.runs {
		st.runs[k] = v
	}
	return st
}

func (s *Store) restore(st state) {
	s.articles = st.articles
	s.assets = st.assets
	s.texts = st.texts
	s.models = st.models
	s.runs = st.runs
}

// Runs lists every recorded run for one article, oldest first. Test helper
// for asserting the audit trail.
func (s *Store) Runs(articleID string) []domain.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Run
	for _, r := range s.runs {
		if r.ArticleID == articleID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// AssetCount reports how many asset rows exist for an article.
func (s *Store) AssetCount(articleID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, a := range s.assets {
		if a.ArticleID == articleID {
			n++
		}
	}
	return n
}

// TextCount reports how many text rows exist for an article.
func (s *Store) TextCount(articleID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, t := range s.texts {
		if t.ArticleID == articleID {
			n++
		}
	}
	return n
}

// ModelCount reports how many model rows exist.
func (s *Store) ModelCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.models)
}

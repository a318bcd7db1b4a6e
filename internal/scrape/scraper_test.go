package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsmaker-md/content-pipeline/internal/archive"
	"github.com/newsmaker-md/content-pipeline/internal/domain"
	"github.com/newsmaker-md/content-pipeline/internal/fetch"
	"github.com/newsmaker-md/content-pipeline/internal/storage/in_mem"
	"github.com/newsmaker-md/content-pipeline/internal/wp"
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: 10, G: 20, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func wpPost(id int, link, title, body, imageURL string) wp.Post {
	p := wp.Post{
		ID:      id,
		Date:    "2025-06-01T10:00:00",
		Link:    link,
		Title:   wp.Rendered{Rendered: title},
		Content: wp.Rendered{Rendered: body},
	}
	if imageURL != "" {
		p.Embedded = &wp.Embedded{FeaturedMedia: []wp.FeaturedMedia{{SourceURL: imageURL}}}
	}
	return p
}

// newsSite serves the WP posts endpoint plus a PNG for image downloads.
func newsSite(t *testing.T, posts *[]wp.Post) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/wp-json/wp/v2/posts", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(*posts))
	})
	mux.HandleFunc("/img.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(testPNG(t))
	})
	mux.HandleFunc("/bad.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newScraper(t *testing.T, srv *httptest.Server, root string, store *in_mem.Store) *Scraper {
	t.Helper()
	fetcher := fetch.NewClient(srv.Client())
	wpClient := wp.NewClient(fetcher, srv.URL+"/wp-json/")
	dir := archive.New(root, "", 0, fetcher)
	return New(wpClient, dir, store, nil)
}

func TestRunSavesNewPosts(t *testing.T) {
	posts := []wp.Post{
		wpPost(2, "https://news.example/b", "Second", "<p>Beta one.</p><p>Beta two.</p>", ""),
	}
	srv := newsSite(t, &posts)
	posts[0].Embedded = &wp.Embedded{FeaturedMedia: []wp.FeaturedMedia{{SourceURL: srv.URL + "/img.png"}}}

	root := t.TempDir()
	store := in_mem.NewStore()
	s := newScraper(t, srv, root, store)

	saved, err := s.Run(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "11LM001", saved[0].ID)
	assert.Equal(t, "Second", saved[0].Title)

	// Files land on disk.
	body, err := os.ReadFile(filepath.Join(root, "11LM001", "11LM001.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(body), "Beta one.")
	_, err = os.Stat(filepath.Join(root, "11LM001", "11LM001.png"))
	require.NoError(t, err)

	// Store mirror: article row, original text, original image asset.
	article, err := store.GetArticle(context.Background(), "11LM001")
	require.NoError(t, err)
	assert.Equal(t, "https://news.example/b", article.URL)
	assert.Equal(t, 2, article.ParagraphsCount)
	assert.Equal(t, 1, store.TextCount("11LM001"))
	assert.Equal(t, 1, store.AssetCount("11LM001"))

	asset, ok, err := store.LatestSourceImage(context.Background(), "11LM001")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.AssetOriginalImage, asset.Kind)
	assert.Equal(t, "image/png", asset.MIME)
	assert.Equal(t, 4, asset.Width)
	assert.Equal(t, 2, asset.Height)
	assert.NotEmpty(t, asset.SHA256)
}

func TestRunSkipsSeenURLs(t *testing.T) {
	posts := []wp.Post{
		wpPost(1, "https://news.example/a", "First", "<p>Alpha.</p>", ""),
		wpPost(2, "https://news.example/b", "Second", "<p>Beta.</p>", ""),
	}
	srv := newsSite(t, &posts)

	root := t.TempDir()
	store := in_mem.NewStore()
	s := newScraper(t, srv, root, store)

	saved, err := s.Run(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, "11LM001", saved[0].ID)
	assert.Equal(t, "11LM002", saved[1].ID)

	// Unchanged feed: nothing new.
	saved, err = s.Run(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, saved)

	// A fresh post picks up the next index; the old ones stay skipped.
	posts = append(posts, wpPost(3, "https://news.example/c", "Third", "<p>Gamma.</p>", ""))
	saved, err = s.Run(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "11LM003", saved[0].ID)
	assert.Equal(t, "Third", saved[0].Title)
}

func TestRunImageFailureIsNonFatal(t *testing.T) {
	posts := []wp.Post{
		wpPost(1, "https://news.example/a", "First", "<p>Alpha.</p>", ""),
	}
	srv := newsSite(t, &posts)
	posts[0].Embedded = &wp.Embedded{FeaturedMedia: []wp.FeaturedMedia{{SourceURL: srv.URL + "/bad.png"}}}

	root := t.TempDir()
	store := in_mem.NewStore()
	s := newScraper(t, srv, root, store)

	saved, err := s.Run(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Empty(t, saved[0].ImagePath)

	meta, err := s.dir.ReadMetadata("11LM001")
	require.NoError(t, err)
	assert.NotEmpty(t, meta.ImageError)

	// Text row persisted, no image asset.
	assert.Equal(t, 1, store.TextCount("11LM001"))
	assert.Equal(t, 0, store.AssetCount("11LM001"))
}

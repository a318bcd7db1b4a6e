package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsmaker-md/content-pipeline/internal/apperr"
	"github.com/newsmaker-md/content-pipeline/internal/archive"
	"github.com/newsmaker-md/content-pipeline/internal/domain"
	"github.com/newsmaker-md/content-pipeline/internal/fetch"
	"github.com/newsmaker-md/content-pipeline/internal/storage/in_mem"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type fakeImages struct {
	url   string
	calls int
	err   error
}

func (f *fakeImages) GenerateImage(_ context.Context, prompt string) (ImageResult, error) {
	f.calls++
	if f.err != nil {
		return ImageResult{}, f.err
	}
	req, _ := json.Marshal(map[string]string{"prompt": prompt})
	return ImageResult{ImageURL: f.url, Request: req, Response: []byte(`{"ok":true}`)}, nil
}

func (f *fakeImages) Model() string { return "qwen-image-plus" }

type fakeWriter struct {
	text    string
	calls   int
	prompts []string
	err     error
}

func (f *fakeWriter) WriteArticle(_ context.Context, prompt, _ string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *fakeWriter) Model() string { return "qwen-vl-plus" }

type fixture struct {
	svc    *Service
	store  *in_mem.Store
	dir    *archive.Dir
	images *fakeImages
	writer *fakeWriter
	root   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes(t))
	}))
	t.Cleanup(srv.Close)

	root := t.TempDir()
	fetcher := fetch.NewClient(srv.Client())
	dir := archive.New(root, "", 0, fetcher)
	store := in_mem.NewStore()
	images := &fakeImages{url: srv.URL + "/gen.png"}
	writer := &fakeWriter{text: "# Headline\n\nA scene unfolds.\n\nALT: a scene"}

	svc := NewService(dir, store, images, writer, fetcher, nil)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	return &fixture{svc: svc, store: store, dir: dir, images: images, writer: writer, root: root}
}

func (f *fixture) seedArticle(t *testing.T, id, title, body string) {
	t.Helper()
	_, err := f.store.UpsertArticle(context.Background(), domain.Article{
		ID: id, URL: "https://news.example/" + id, Title: title,
	})
	require.NoError(t, err)
	if body != "" {
		require.NoError(t, os.MkdirAll(filepath.Join(f.root, id), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(f.root, id, id+".txt"), []byte(body), 0o644))
	}
}

func (f *fixture) seedImage(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(f.root, id), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(f.root, id, id+".png"), pngBytes(t), 0o644))
}

func TestGenerateImage(t *testing.T) {
	f := newFixture(t)
	f.seedArticle(t, "11LM001", "A Title", "Some body text.")

	out, err := f.svc.GenerateImage(context.Background(), "11LM001", false)
	require.NoError(t, err)
	require.NotNil(t, out)

	assert.Contains(t, out.ImagePath, filepath.Join("11LM001", "_gen", "text_to_image"))
	assert.Contains(t, out.Prompt, "A Title. Photorealistic editorial illustration about: Some body text.")

	// Artifact and sidecar on disk.
	_, err = os.Stat(out.ImagePath)
	require.NoError(t, err)
	sidecar, err := os.ReadFile(out.ImagePath[:len(out.ImagePath)-len(".png")] + ".json")
	require.NoError(t, err)
	assert.Contains(t, string(sidecar), "sha256")

	// Flag flipped, asset row, succeeded run.
	art, err := f.store.GetArticle(context.Background(), "11LM001")
	require.NoError(t, err)
	assert.True(t, art.HasImageGenerated)
	assert.Equal(t, 1, f.store.AssetCount("11LM001"))

	runs := f.store.Runs("11LM001")
	require.Len(t, runs, 1)
	assert.Equal(t, domain.DirectionTextToImage, runs[0].Direction)
	assert.Equal(t, domain.RunSucceeded, runs[0].Status)
	require.NotNil(t, runs[0].ModelID)
}

func TestGenerateImageSkipsBeforeAPISpend(t *testing.T) {
	f := newFixture(t)
	f.seedArticle(t, "11LM001", "A Title", "Body.")

	_, err := f.svc.GenerateImage(context.Background(), "11LM001", false)
	require.NoError(t, err)
	require.Equal(t, 1, f.images.calls)

	out, err := f.svc.GenerateImage(context.Background(), "11LM001", false)
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Equal(t, 1, f.images.calls)
	assert.Len(t, f.store.Runs("11LM001"), 1)

	// force bypasses the flag.
	out, err = f.svc.GenerateImage(context.Background(), "11LM001", true)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, 2, f.images.calls)
}

func TestGenerateImageFailureRecordsRun(t *testing.T) {
	f := newFixture(t)
	f.seedArticle(t, "11LM001", "A Title", "Body.")
	f.images.err = errors.New("quota exceeded")

	_, err := f.svc.GenerateImage(context.Background(), "11LM001", false)
	require.Error(t, err)

	runs := f.store.Runs("11LM001")
	require.Len(t, runs, 1)
	assert.Equal(t, domain.RunFailed, runs[0].Status)
	assert.Contains(t, runs[0].Error, "quota exceeded")

	art, err := f.store.GetArticle(context.Background(), "11LM001")
	require.NoError(t, err)
	assert.False(t, art.HasImageGenerated)
	assert.Equal(t, 0, f.store.AssetCount("11LM001"))
}

func TestGenerateImageUnknownArticle(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GenerateImage(context.Background(), "11LM999", false)
	require.Error(t, err)
}

func TestGenerateText(t *testing.T) {
	f := newFixture(t)
	f.seedArticle(t, "11LM001", "A Title", "Body.")
	f.seedImage(t, "11LM001")

	out, err := f.svc.GenerateText(context.Background(), "11LM001", false)
	require.NoError(t, err)
	require.NotNil(t, out)

	assert.Contains(t, out.TextPath, filepath.Join("11LM001", "_gen", "image_to_article"))
	md, err := os.ReadFile(out.TextPath)
	require.NoError(t, err)
	assert.Contains(t, string(md), "ALT:")

	art, err := f.store.GetArticle(context.Background(), "11LM001")
	require.NoError(t, err)
	assert.True(t, art.HasTextGenerated)
	assert.Equal(t, 1, f.store.TextCount("11LM001"))

	runs := f.store.Runs("11LM001")
	require.Len(t, runs, 1)
	assert.Equal(t, domain.DirectionImageToText, runs[0].Direction)
	assert.Equal(t, domain.RunSucceeded, runs[0].Status)
}

func TestGenerateTextNoImageSkips(t *testing.T) {
	f := newFixture(t)
	f.seedArticle(t, "11LM001", "A Title", "Body.")

	out, err := f.svc.GenerateText(context.Background(), "11LM001", false)
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Equal(t, 0, f.writer.calls)
	assert.Empty(t, f.store.Runs("11LM001"))
}

func TestGenerateTextPrefersStoredBlob(t *testing.T) {
	f := newFixture(t)
	f.seedArticle(t, "11LM001", "A Title", "Body.")

	_, err := f.store.CreateOrGetAsset(context.Background(), domain.Asset{
		ArticleID: "11LM001",
		Kind:      domain.AssetOriginalImage,
		Path:      "some/missing/path.png",
		Data:      pngBytes(t),
		MIME:      "image/png",
		SHA256:    "blobhash",
	})
	require.NoError(t, err)

	out, err := f.svc.GenerateText(context.Background(), "11LM001", false)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, 1, f.writer.calls)
}

func TestGenerateImageMissingAPIKey(t *testing.T) {
	f := newFixture(t)
	f.seedArticle(t, "11LM001", "A Title", "Body.")
	f.svc.images = NewDashScopeClient("", "qwen-image-plus")

	_, err := f.svc.GenerateImage(context.Background(), "11LM001", false)
	require.Error(t, err)
	var pe *apperr.PrereqError
	require.ErrorAs(t, err, &pe)

	// No run row for an attempt that never reached the API.
	assert.Empty(t, f.store.Runs("11LM001"))
}

func TestGenerateTextMissingAPIKey(t *testing.T) {
	f := newFixture(t)
	f.seedArticle(t, "11LM001", "A Title", "Body.")
	f.seedImage(t, "11LM001")
	f.svc.writer = NewVisionClient("", "", "qwen-vl-plus")

	_, err := f.svc.GenerateText(context.Background(), "11LM001", false)
	require.Error(t, err)
	var pe *apperr.PrereqError
	require.ErrorAs(t, err, &pe)

	assert.Empty(t, f.store.Runs("11LM001"))
}

func TestGenerateTextPromptLanguage(t *testing.T) {
	f := newFixture(t)
	f.seedArticle(t, "11LM001", "A Title", "Body.")
	f.seedImage(t, "11LM001")

	_, err := f.svc.GenerateText(context.Background(), "11LM001", false)
	require.NoError(t, err)
	require.Len(t, f.writer.prompts, 1)
	assert.Contains(t, f.writer.prompts[0], "journalist")

	f2 := newFixture(t)
	WithLanguage("ro")(f2.svc)
	f2.seedArticle(t, "11LM001", "A Title", "Body.")
	f2.seedImage(t, "11LM001")

	_, err = f2.svc.GenerateText(context.Background(), "11LM001", false)
	require.NoError(t, err)
	require.Len(t, f2.writer.prompts, 1)
	assert.NotContains(t, f2.writer.prompts[0], "journalist")
	assert.Contains(t, f2.writer.prompts[0], "ALT")
}

func TestGenerateTextBelow(t *testing.T) {
	f := newFixture(t)
	// 003 exists with an image, 002 exists without one, 001 is missing.
	f.seedArticle(t, "11LM003", "Third", "Body.")
	f.seedImage(t, "11LM003")
	f.seedArticle(t, "11LM002", "Second", "Body.")

	done, err := f.svc.GenerateTextBelow(context.Background(), "11LM004", 3, false, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"11LM003"}, done)
}

func TestGenerateTextBelowDryRun(t *testing.T) {
	f := newFixture(t)

	targets, err := f.svc.GenerateTextBelow(context.Background(), "11LM005", 3, false, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"11LM004", "11LM003", "11LM002"}, targets)
	assert.Equal(t, 0, f.writer.calls)
}

func TestGenerateTextBelowFailureIsolation(t *testing.T) {
	f := newFixture(t)
	f.seedArticle(t, "11LM002", "Second", "Body.")
	f.seedImage(t, "11LM002")
	f.seedArticle(t, "11LM001", "First", "Body.")
	f.seedImage(t, "11LM001")

	// First target fails, second still runs.
	calls := 0
	f.svc.writer = &flakyWriter{inner: f.writer, failFirst: &calls}

	done, err := f.svc.GenerateTextBelow(context.Background(), "11LM003", 2, false, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"11LM001"}, done)
}

// flakyWriter fails its first call and delegates the rest.
type flakyWriter struct {
	inner     *fakeWriter
	failFirst *int
}

func (f *flakyWriter) WriteArticle(ctx context.Context, prompt, b64 string) (string, error) {
	*f.failFirst++
	if *f.failFirst == 1 {
		return "", errors.New("transient upstream failure")
	}
	return f.inner.WriteArticle(ctx, prompt, b64)
}

func (f *flakyWriter) Model() string { return f.inner.Model() }

func TestGenerateImageBelow(t *testing.T) {
	f := newFixture(t)
	// 003 and 001 exist, 002 is missing.
	f.seedArticle(t, "11LM003", "Third", "Body.")
	f.seedArticle(t, "11LM001", "First", "Body.")

	done, err := f.svc.GenerateImageBelow(context.Background(), "11LM004", 3, false, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"11LM003", "11LM001"}, done)
	assert.Equal(t, 2, f.images.calls)
}

func TestGenerateImageBelowDryRun(t *testing.T) {
	f := newFixture(t)

	targets, err := f.svc.GenerateImageBelow(context.Background(), "11LM005", 2, false, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"11LM004", "11LM003"}, targets)
	assert.Equal(t, 0, f.images.calls)
}

func TestGenerateImageBelowFailureIsolation(t *testing.T) {
	f := newFixture(t)
	f.seedArticle(t, "11LM002", "Second", "Body.")
	f.seedArticle(t, "11LM001", "First", "Body.")

	calls := 0
	f.svc.images = &flakyImages{inner: f.images, failFirst: &calls}

	done, err := f.svc.GenerateImageBelow(context.Background(), "11LM003", 2, false, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"11LM001"}, done)
}

// flakyImages fails its first call and delegates the rest.
type flakyImages struct {
	inner     *fakeImages
	failFirst *int
}

func (f *flakyImages) GenerateImage(ctx context.Context, prompt string) (ImageResult, error) {
	*f.failFirst++
	if *f.failFirst == 1 {
		return ImageResult{}, errors.New("transient upstream failure")
	}
	return f.inner.GenerateImage(ctx, prompt)
}

func (f *flakyImages) Model() string { return f.inner.Model() }

func TestGeneratePendingImages(t *testing.T) {
	f := newFixture(t)
	f.seedArticle(t, "11LM001", "First", "Body.")
	f.seedArticle(t, "11LM002", "Second", "Body.")

	// Pre-generate for 001 so only 002 is pending.
	_, err := f.svc.GenerateImage(context.Background(), "11LM001", false)
	require.NoError(t, err)

	done, err := f.svc.GeneratePendingImages(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"11LM002"}, done)
}

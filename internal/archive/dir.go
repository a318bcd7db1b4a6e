package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/newsmaker-md/content-pipeline/internal/domain"
	"github.com/newsmaker-md/content-pipeline/internal/fetch"
	"github.com/newsmaker-md/content-pipeline/internal/wp"
)

// richImageHeaders helps some CDNs accept non-browser requests.
var richImageHeaders = map[string]string{
	"Accept":          "image/avif,image/webp,image/apng,image/*,*/*;q=0.8",
	"Accept-Language": "en;q=0.9",
}

// Dir is the crawled-results directory tree. All scrape state that must
// survive process restarts lives here: IDs are allocated and URLs
// de-duplicated by re-scanning the tree, never from memory.
type Dir struct {
	root    string
	prefix  string
	pad     int
	fetcher *fetch.Client
}

func New(root, prefix string, pad int, fetcher *fetch.Client) *Dir {
	if prefix == "" {
		prefix = domain.DefaultIDPrefix
	}
	if pad <= 0 {
		pad = domain.DefaultIDPad
	}
	return &Dir{root: root, prefix: prefix, pad: pad, fetcher: fetcher}
}

func (d *Dir) Root() string { return d.root }

// MakeID renders the n-th sequential ID with this directory's prefix and pad.
func (d *Dir) MakeID(n int) string { return domain.MakeID(d.prefix, n, d.pad) }

// ArticleDir returns the folder holding one article's files.
func (d *Dir) ArticleDir(id string) string { return filepath.Join(d.root, id) }

// NextIndex scans folders matching the prefix pattern and returns max+1.
// Gaps are never reused; a missing root directory yields 0.
func (d *Dir) NextIndex() int {
	pattern := regexp.MustCompile("^" + regexp.QuoteMeta(d.prefix) + `(\d+)$`)

	mx := -1
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return 0
	}
	for _, e := range entries {
		m := pattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > mx {
			mx = n
		}
	}
	return mx + 1
}

// ExistingURLs collects the url recorded in every persisted metadata file.
// Matching is by exact string: scheme, trailing slash, and query variants are
// distinct URLs.
func (d *Dir) ExistingURLs() map[string]struct{} {
	urls := make(map[string]struct{})
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return urls
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		meta, err := d.ReadMetadata(e.Name())
		if err != nil {
			continue
		}
		if meta.URL != "" {
			urls[meta.URL] = struct{}{}
		}
	}
	return urls
}

// Metadata is the per-article sidecar recording what was scraped, including
// image download diagnostics.
type Metadata struct {
	URL             string `json:"url"`
	Title           string `json:"title"`
	Date            string `json:"date"`
	ImageURL        string `json:"image_url,omitempty"`
	ParagraphsCount int    `json:"paragraphs_count"`
	ImageSavedPath  string `json:"image_saved_path,omitempty"`
	ImageError      string `json:"image_error,omitempty"`
}

// SavedPost is the flattened record of one persisted article.
type SavedPost struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Date      string `json:"date"`
	URL       string `json:"url"`
	Body      string `json:"body"`
	ImagePath string `json:"imagePath,omitempty"`
}

// SavePost writes the body text, the downloaded image (best effort), and the
// metadata sidecar under <root>/<id>/. An image download failure is recorded
// in the metadata and does not fail the save.
func (d *Dir) SavePost(ctx context.Context, id string, post wp.NormalizedPost) (SavedPost, Metadata, error) {
	folder := d.ArticleDir(id)
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return SavedPost{}, Metadata{}, fmt.Errorf("create article dir: %w", err)
	}

	if err := os.WriteFile(filepath.Join(folder, id+".txt"), []byte(post.Body), 0o644); err != nil {
		return SavedPost{}, Metadata{}, fmt.Errorf("write body: %w", err)
	}

	var imgPath, imgError string
	if post.ImageURL != "" {
		p, err := d.downloadImage(ctx, id, post)
		if err != nil {
			imgError = err.Error()
		} else {
			imgPath = p
		}
	}

	meta := Metadata{
		URL:             post.URL,
		Title:           post.Title,
		Date:            post.Date,
		ImageURL:        post.ImageURL,
		ParagraphsCount: post.ParagraphsCount,
		ImageSavedPath:  imgPath,
		ImageError:      imgError,
	}
	if err := d.writeMetadata(id, meta); err != nil {
		return SavedPost{}, Metadata{}, err
	}

	return SavedPost{
		ID:        id,
		Title:     post.Title,
		Date:      post.Date,
		URL:       post.URL,
		Body:      post.Body,
		ImagePath: imgPath,
	}, meta, nil
}

func (d *Dir) downloadImage(ctx context.Context, id string, post wp.NormalizedPost) (string, error) {
	headers := make(map[string]string, len(richImageHeaders)+1)
	for k, v := range richImageHeaders {
		headers[k] = v
	}
	// some origins refuse image requests without a referer
	headers["Referer"] = post.URL

	resp, err := d.fetcher.Get(ctx, post.ImageURL, fetch.Options{
		Timeout: 20 * time.Second,
		Headers: headers,
	})
	if err != nil {
		return "", err
	}

	ext := ImageExt(resp.ContentType(), post.ImageURL)
	imgPath := filepath.Join(d.ArticleDir(id), id+ext)
	if err := os.WriteFile(imgPath, resp.Body, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return imgPath, nil
}

func (d *Dir) writeMetadata(id string, meta Metadata) error {
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	metaPath := filepath.Join(d.ArticleDir(id), id+".json")
	if err := os.WriteFile(metaPath, raw, 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// ReadMetadata loads the metadata sidecar of one article.
func (d *Dir) ReadMetadata(id string) (Metadata, error) {
	raw, err := os.ReadFile(filepath.Join(d.ArticleDir(id), id+".json"))
	if err != nil {
		return Metadata{}, err
	}
	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return Metadata{}, fmt.Errorf("parse metadata %s: %w", id, err)
	}
	return meta, nil
}

// ReadBody loads the persisted body text of one article.
func (d *Dir) ReadBody(id string) (string, error) {
	raw, err := os.ReadFile(filepath.Join(d.ArticleDir(id), id+".txt"))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

var extByMIME = map[string]string{
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/avif":    ".avif",
	"image/bmp":     ".bmp",
	"image/tiff":    ".tiff",
	"image/svg+xml": ".svg",
}

// MIMEForExt maps a saved image extension back to its media type; empty for
// unknown extensions.
func MIMEForExt(ext string) string {
	if ext == ".jpeg" || ext == ".jpg" {
		return "image/jpeg"
	}
	for mime, e := range extByMIME {
		if e == ext {
			return mime
		}
	}
	return ""
}

// ImageExt picks the saved file extension: the declared content type wins
// over the URL's own extension, which wins over the .jpg default. The legacy
// .jpe spelling maps to .jpg.
func ImageExt(contentType, imageURL string) string {
	if ext, ok := extByMIME[contentType]; ok {
		return ext
	}

	ext := ""
	if parsed, err := url.Parse(imageURL); err == nil {
		ext = path.Ext(parsed.Path)
	}
	if ext == "" {
		ext = ".jpg"
	}
	if ext == ".jpe" {
		ext = ".jpg"
	}
	return ext
}

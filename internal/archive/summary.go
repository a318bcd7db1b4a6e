package archive

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Summary is the lightweight per-article row the presentation layer renders.
type Summary struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Date            string `json:"date"`
	URL             string `json:"url"`
	ImageURL        string `json:"imageUrl,omitempty"`
	LocalImagePath  string `json:"localImagePath,omitempty"`
	ParagraphsCount int    `json:"paragraphsCount"`
}

var summaryImageExts = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {}, ".avif": {},
}

// Summaries reads every article's metadata sidecar, newest ID first.
// Folders without a readable sidecar are skipped.
func (d *Dir) Summaries() []Summary {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	out := make([]Summary, 0, len(names))
	for _, name := range names {
		meta, err := d.ReadMetadata(name)
		if err != nil {
			continue
		}
		out = append(out, Summary{
			ID:              name,
			Title:           meta.Title,
			Date:            meta.Date,
			URL:             meta.URL,
			ImageURL:        meta.ImageURL,
			LocalImagePath:  d.localImagePath(name),
			ParagraphsCount: meta.ParagraphsCount,
		})
	}
	return out
}

// localImagePath finds the downloaded image file named <id>.<ext> inside the
// article folder.
func (d *Dir) localImagePath(id string) string {
	entries, err := os.ReadDir(d.ArticleDir(id))
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())) != id {
			continue
		}
		if _, ok := summaryImageExts[ext]; ok {
			return filepath.Join(d.ArticleDir(id), e.Name())
		}
	}
	return ""
}

package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Generation artifact subdirectories under <ID>/_gen/.
const (
	GenTextToImage    = "text_to_image"
	GenImageToArticle = "image_to_article"
)

const genTimestampLayout = "20060102T150405Z"

// GenTimestamp renders the UTC timestamp embedded in generated artifact
// names.
func GenTimestamp(t time.Time) string {
	return t.UTC().Format(genTimestampLayout)
}

// GenDir returns <root>/<id>/_gen/<sub>.
func (d *Dir) GenDir(id, sub string) string {
	return filepath.Join(d.ArticleDir(id), "_gen", sub)
}

// WriteGenArtifact persists one generated artifact named <model>@<ts><ext>
// together with its JSON sidecar documenting the call for reproducibility.
// Returns the artifact path.
func (d *Dir) WriteGenArtifact(id, sub, model, ts, ext string, data []byte, sidecar any) (string, error) {
	dir := d.GenDir(id, sub)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create gen dir: %w", err)
	}

	name := model + "@" + ts
	artifactPath := filepath.Join(dir, name+ext)
	if err := os.WriteFile(artifactPath, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}

	raw, err := json.MarshalIndent(sidecar, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal sidecar: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".json"), raw, 0o644); err != nil {
		return "", fmt.Errorf("write sidecar: %w", err)
	}

	return artifactPath, nil
}

var scanImageExts = []string{".jpg", ".jpeg", ".png", ".webp"}

// FindImage is the last-resort source-image lookup: first an images/
// subfolder, then the article folder itself, then a recursive walk. Files
// are tried in name order so repeated calls pick the same image.
func (d *Dir) FindImage(id string) (string, bool) {
	root := d.ArticleDir(id)
	if _, err := os.Stat(root); err != nil {
		return "", false
	}

	for _, base := range []string{filepath.Join(root, "images"), root} {
		if p, ok := firstImageIn(base); ok {
			return p, true
		}
	}

	var hits []string
	_ = filepath.WalkDir(root, func(p string, entry os.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return nil
		}
		if isImageName(entry.Name()) {
			hits = append(hits, p)
		}
		return nil
	})
	if len(hits) == 0 {
		return "", false
	}
	sort.Strings(hits)
	return hits[0], true
}

func firstImageIn(dir string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	var hits []string
	for _, e := range entries {
		if !e.IsDir() && isImageName(e.Name()) {
			hits = append(hits, filepath.Join(dir, e.Name()))
		}
	}
	if len(hits) == 0 {
		return "", false
	}
	sort.Strings(hits)
	return hits[0], true
}

func isImageName(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range scanImageExts {
		if ext == want {
			return true
		}
	}
	return false
}

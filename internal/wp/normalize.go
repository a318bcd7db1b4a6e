package wp

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// wpDateLayout is the site-local timestamp WordPress puts in the `date`
// field.
const wpDateLayout = "2006-01-02T15:04:05"

// NormalizedPost is the flat, markup-free view of one post that the rest of
// the pipeline consumes.
type NormalizedPost struct {
	Title           string
	Date            string
	PublishedAt     *time.Time
	URL             string
	Body            string
	ImageURL        string
	ParagraphsCount int
}

// Normalize strips markup from a raw post and resolves its representative
// image. Paragraphs that are empty after trimming are dropped; the rest are
// joined with a blank line.
func Normalize(p Post) NormalizedPost {
	title := textOf(p.Title.Rendered)

	var paragraphs []string
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.Content.Rendered)); err == nil {
		doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
			if text := strings.TrimSpace(sel.Text()); text != "" {
				paragraphs = append(paragraphs, text)
			}
		})
	}

	var publishedAt *time.Time
	if p.Date != "" {
		if parsed, err := time.Parse(wpDateLayout, p.Date); err == nil {
			publishedAt = &parsed
		}
	}

	img := featuredImageURL(p)
	if img == "" {
		img = firstContentImage(p.Content.Rendered)
	}

	return NormalizedPost{
		Title:           title,
		Date:            p.Date,
		PublishedAt:     publishedAt,
		URL:             p.Link,
		Body:            strings.Join(paragraphs, "\n\n"),
		ImageURL:        img,
		ParagraphsCount: len(paragraphs),
	}
}

// featuredImageURL walks the embedded featured media: the "full" rendition
// first, then "large", then "medium", then the base source URL, then the
// Yoast OpenGraph image. Source sites populate these inconsistently, so each
// weaker signal is only tried when the stronger ones are absent.
func featuredImageURL(p Post) string {
	if p.Embedded != nil && len(p.Embedded.FeaturedMedia) > 0 {
		m0 := p.Embedded.FeaturedMedia[0]
		for _, size := range []string{"full", "large", "medium"} {
			if s, ok := m0.MediaDetails.Sizes[size]; ok && s.SourceURL != "" {
				return s.SourceURL
			}
		}
		if m0.SourceURL != "" {
			return m0.SourceURL
		}
	}

	if p.Yoast != nil && len(p.Yoast.OGImage) > 0 && p.Yoast.OGImage[0].URL != "" {
		return p.Yoast.OGImage[0].URL
	}

	return ""
}

// firstContentImage returns the src of the first <img> in the rendered body,
// the weakest link of the fallback chain.
func firstContentImage(contentHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(contentHTML))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img").First().Attr("src")
	return src
}

func textOf(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(html)
	}
	return strings.TrimSpace(doc.Text())
}

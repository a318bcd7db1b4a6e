package wp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func post(content string) Post {
	return Post{
		Date:    "2024-03-15T09:30:00",
		Link:    "https://example.md/ro/some-post/",
		Title:   Rendered{Rendered: "Breaking &amp; <em>important</em> news"},
		Content: Rendered{Rendered: content},
	}
}

func TestNormalize_TitleAndBody(t *testing.T) {
	p := post(`<p>First <strong>paragraph</strong>.</p><p>   </p><p>Second paragraph.</p>`)

	got := Normalize(p)

	assert.Equal(t, "Breaking & important news", got.Title)
	assert.Equal(t, "First paragraph.\n\nSecond paragraph.", got.Body)
	assert.Equal(t, 2, got.ParagraphsCount)
	assert.Equal(t, "https://example.md/ro/some-post/", got.URL)
	require.NotNil(t, got.PublishedAt)
	assert.Equal(t, 2024, got.PublishedAt.Year())
}

func TestNormalize_ImageFromFeaturedFullSize(t *testing.T) {
	p := post("<p>x</p>")
	p.Embedded = &Embedded{FeaturedMedia: []FeaturedMedia{{
		SourceURL: "https://cdn.example.md/base.jpg",
		MediaDetails: MediaDetails{Sizes: map[string]MediaSize{
			"full":   {SourceURL: "https://cdn.example.md/full.jpg"},
			"medium": {SourceURL: "https://cdn.example.md/medium.jpg"},
		}},
	}}}

	assert.Equal(t, "https://cdn.example.md/full.jpg", Normalize(p).ImageURL)
}

func TestNormalize_ImageFallsBackThroughSizes(t *testing.T) {
	p := post("<p>x</p>")
	p.Embedded = &Embedded{FeaturedMedia: []FeaturedMedia{{
		SourceURL: "https://cdn.example.md/base.jpg",
		MediaDetails: MediaDetails{Sizes: map[string]MediaSize{
			"medium": {SourceURL: "https://cdn.example.md/medium.jpg"},
		}},
	}}}
	assert.Equal(t, "https://cdn.example.md/medium.jpg", Normalize(p).ImageURL)

	p.Embedded.FeaturedMedia[0].MediaDetails.Sizes = nil
	assert.Equal(t, "https://cdn.example.md/base.jpg", Normalize(p).ImageURL)
}

func TestNormalize_ImageFromYoastOG(t *testing.T) {
	p := post("<p>x</p>")
	p.Yoast = &YoastHead{OGImage: []OGImage{{URL: "https://cdn.example.md/og.jpg"}}}

	assert.Equal(t, "https://cdn.example.md/og.jpg", Normalize(p).ImageURL)
}

func TestNormalize_ImageFromContentImg(t *testing.T) {
	p := post(`<p>text</p><img src="https://cdn.example.md/inline.png"><img src="https://cdn.example.md/second.png">`)

	assert.Equal(t, "https://cdn.example.md/inline.png", Normalize(p).ImageURL)
}

func TestNormalize_NoImageAnywhere(t *testing.T) {
	assert.Empty(t, Normalize(post("<p>plain text only</p>")).ImageURL)
}

func TestNormalize_BadDateLeavesPublishedAtNil(t *testing.T) {
	p := post("<p>x</p>")
	p.Date = "yesterday"

	got := Normalize(p)
	assert.Nil(t, got.PublishedAt)
	assert.Equal(t, "yesterday", got.Date)
}

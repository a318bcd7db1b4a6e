package wp

// Post is the subset of the WordPress REST v2 post payload the pipeline
// consumes. Fields are requested explicitly via _fields, with _embed pulling
// the featured media in.
type Post struct {
	ID       int        `json:"id"`
	Date     string     `json:"date"`
	Link     string     `json:"link"`
	Title    Rendered   `json:"title"`
	Content  Rendered   `json:"content"`
	Embedded *Embedded  `json:"_embedded,omitempty"`
	Yoast    *YoastHead `json:"yoast_head_json,omitempty"`
}

type Rendered struct {
	Rendered string `json:"rendered"`
}

type Embedded struct {
	FeaturedMedia []FeaturedMedia `json:"wp:featuredmedia"`
}

type FeaturedMedia struct {
	SourceURL    string       `json:"source_url"`
	MediaDetails MediaDetails `json:"media_details"`
}

type MediaDetails struct {
	Sizes map[string]MediaSize `json:"sizes"`
}

type MediaSize struct {
	SourceURL string `json:"source_url"`
}

// YoastHead carries the SEO metadata many WordPress sites expose; only the
// OpenGraph image matters here.
type YoastHead struct {
	OGImage []OGImage `json:"og_image"`
}

type OGImage struct {
	URL string `json:"url"`
}

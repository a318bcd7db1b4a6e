package wp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/newsmaker-md/content-pipeline/internal/apperr"
	"github.com/newsmaker-md/content-pipeline/internal/fetch"
)

const postsPath = "wp/v2/posts"

// Client reads posts from a WordPress REST API.
type Client struct {
	fetcher *fetch.Client
	apiBase string
}

func NewClient(fetcher *fetch.Client, apiBase string) *Client {
	if !strings.HasSuffix(apiBase, "/") {
		apiBase += "/"
	}
	return &Client{fetcher: fetcher, apiBase: apiBase}
}

// GuessAPIBase prefers the language-scoped API under siteBase (e.g.
// https://example.md/ro/wp-json/) and falls back to the host root when the
// scoped one does not answer.
func GuessAPIBase(ctx context.Context, fetcher *fetch.Client, siteBase string) string {
	siteBase = strings.TrimRight(siteBase, "/")
	langAPI := siteBase + "/wp-json/"
	if apiAvailable(ctx, fetcher, langAPI) {
		return langAPI
	}

	parsed, err := url.Parse(siteBase)
	if err != nil {
		return langAPI
	}
	root := url.URL{Scheme: parsed.Scheme, Host: parsed.Host}
	return strings.TrimRight(root.String(), "/") + "/wp-json/"
}

func apiAvailable(ctx context.Context, fetcher *fetch.Client, apiBase string) bool {
	resp, err := fetcher.Get(ctx, apiBase, fetch.Options{Timeout: 8 * time.Second, MaxTries: 1})
	if err != nil {
		return false
	}
	var payload map[string]json.RawMessage
	return json.Unmarshal(resp.Body, &payload) == nil
}

// LatestPosts fetches up to limit most recent posts, newest first, with
// embedded featured media and Yoast SEO metadata for the image fallback
// chain.
func (c *Client) LatestPosts(ctx context.Context, limit int) ([]Post, error) {
	perPage := limit
	if perPage < 1 {
		perPage = 1
	}
	if perPage > 100 {
		perPage = 100
	}

	resp, err := c.fetcher.Get(ctx, c.apiBase+postsPath, fetch.Options{
		Params: url.Values{
			"per_page": {strconv.Itoa(perPage)},
			"page":     {"1"},
			"orderby":  {"date"},
			"order":    {"desc"},
			"_embed":   {"1"},
			"_fields":  {"id,date,link,title,content,_embedded,yoast_head_json"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch posts: %w", err)
	}

	var posts []Post
	if err := json.Unmarshal(resp.Body, &posts); err != nil {
		return nil, apperr.NewUpstream("unexpected response from WP API", resp.Body)
	}

	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

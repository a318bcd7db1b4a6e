package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultUserAgent = "content-pipeline/1.0 (+https://github.com/newsmaker-md/content-pipeline)"
	defaultTimeout   = 15 * time.Second
	defaultMaxTries  = 4

	retryAfterDefault = 2 * time.Second
	retryAfterCap     = 10 * time.Second
)

// Options configure a single Get call. Timeout and MaxTries are per-call,
// not client-global.
type Options struct {
	Params   url.Values
	Headers  map[string]string
	Timeout  time.Duration
	MaxTries int
}

// Response is a fully read HTTP response body with its headers.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// ContentType returns the media type of the response without parameters.
func (r *Response) ContentType() string {
	ct := r.Header.Get("Content-Type")
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// Client performs GET requests with bounded retry and backoff. All fetches
// in the pipeline are idempotent GETs, so every failure class is retried the
// same way.
type Client struct {
	http      *http.Client
	userAgent string
}

func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{http: httpClient, userAgent: defaultUserAgent}
}

// Get fetches rawURL, retrying up to MaxTries. On 429 it honors Retry-After
// (default 2s, capped at 10s); on transport errors and other non-2xx
// statuses it sleeps 1.5*attempt seconds between tries.
func (c *Client) Get(ctx context.Context, rawURL string, opts Options) (*Response, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxTries := opts.MaxTries
	if maxTries <= 0 {
		maxTries = defaultMaxTries
	}

	target := rawURL
	if len(opts.Params) > 0 {
		parsed, err := url.Parse(rawURL)
		if err != nil {
			return nil, fmt.Errorf("invalid url %s: %w", rawURL, err)
		}
		q := parsed.Query()
		for k, vs := range opts.Params {
			for _, v := range vs {
				q.Set(k, v)
			}
		}
		parsed.RawQuery = q.Encode()
		target = parsed.String()
	}

	var lastErr error
	for attempt := 1; attempt <= maxTries; attempt++ {
		resp, retryIn, rateLimited, err := c.do(ctx, target, opts.Headers, timeout)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if attempt == maxTries {
			break
		}
		if !rateLimited {
			retryIn = time.Duration(float64(attempt) * 1.5 * float64(time.Second))
		}
		if sleepErr := sleep(ctx, retryIn); sleepErr != nil {
			return nil, sleepErr
		}
	}

	return nil, fmt.Errorf("get %s: %w", rawURL, lastErr)
}

// do runs one attempt. rateLimited marks a 429, whose retryIn comes from the
// Retry-After header instead of the linear backoff schedule.
func (c *Client) do(ctx context.Context, target string, headers map[string]string, timeout time.Duration) (resp *Response, retryIn time.Duration, rateLimited bool, err error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	raw, err := c.http.Do(req)
	if err != nil {
		return nil, 0, false, err
	}
	defer raw.Body.Close()

	if raw.StatusCode == http.StatusTooManyRequests {
		return nil, retryAfter(raw.Header), true, fmt.Errorf("rate limited: %s", raw.Status)
	}

	body, err := io.ReadAll(raw.Body)
	if err != nil {
		return nil, 0, false, fmt.Errorf("read body: %w", err)
	}

	if raw.StatusCode < 200 || raw.StatusCode > 299 {
		return nil, 0, false, fmt.Errorf("unexpected status %s", raw.Status)
	}

	return &Response{StatusCode: raw.StatusCode, Header: raw.Header, Body: body}, 0, false, nil
}

func retryAfter(h http.Header) time.Duration {
	wait := retryAfterDefault
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			wait = time.Duration(secs) * time.Second
		}
	}
	if wait > retryAfterCap {
		wait = retryAfterCap
	}
	return wait
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

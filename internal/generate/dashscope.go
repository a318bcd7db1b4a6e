package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/newsmaker-md/content-pipeline/internal/apperr"
)

// DashScopeT2IURL is the international synchronous endpoint for Qwen-Image.
const DashScopeT2IURL = "https://dashscope-intl.aliyuncs.com/api/v1/services/aigc/multimodal-generation/generation"

// DefaultT2IModel is accepted by the sync endpoint alongside qwen-image.
const DefaultT2IModel = "qwen-image-plus"

// DefaultImageSize is 16:9 to match article cards.
const DefaultImageSize = "1664*928"

// ImageResult carries the remote image URL plus the exact request and
// response payloads for the reproducibility sidecar. The URL expires within
// about a day, so callers must download immediately.
type ImageResult struct {
	ImageURL string
	Request  json.RawMessage
	Response json.RawMessage
}

// ImageGenerator produces an image from a text prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (ImageResult, error)
	Model() string
}

// DashScopeClient calls the DashScope synchronous multimodal-generation API.
type DashScopeClient struct {
	endpoint   string
	model      string
	apiKey     string
	size       string
	httpClient *http.Client
}

var _ ImageGenerator = (*DashScopeClient)(nil)

func NewDashScopeClient(apiKey, model string) *DashScopeClient {
	if model == "" {
		model = DefaultT2IModel
	}
	return &DashScopeClient{
		endpoint: DashScopeT2IURL,
		model:    model,
		apiKey:   apiKey,
		size:     DefaultImageSize,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// WithEndpoint overrides the API endpoint. Used by tests.
func (c *DashScopeClient) WithEndpoint(endpoint string) *DashScopeClient {
	c.endpoint = endpoint
	return c
}

func (c *DashScopeClient) Model() string { return c.model }

func (c *DashScopeClient) CheckPrereq() error {
	if c.apiKey == "" {
		return apperr.NewPrereq("image generation API key is not set")
	}
	return nil
}

func (c *DashScopeClient) GenerateImage(ctx context.Context, prompt string) (ImageResult, error) {
	if err := c.CheckPrereq(); err != nil {
		return ImageResult{}, err
	}

	reqBody, err := json.Marshal(map[string]any{
		"model": c.model,
		"input": map[string]any{
			"messages": []map[string]any{
				{
					"role":    "user",
					"content": []map[string]any{{"text": prompt}},
				},
			},
		},
		"parameters": map[string]any{
			"size":          c.size,
			"prompt_extend": true,
			"watermark":     false,
		},
	})
	if err != nil {
		return ImageResult{}, fmt.Errorf("marshal generation payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return ImageResult{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ImageResult{}, fmt.Errorf("call image generation API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return ImageResult{}, fmt.Errorf("read generation response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return ImageResult{}, apperr.NewUpstream(fmt.Sprintf("image generation API returned %s", resp.Status), respBody)
	}

	// The image URL lives at output.choices[0].message.content[0].image.
	var parsed struct {
		Output struct {
			Choices []struct {
				Message struct {
					Content []struct {
						Image string `json:"image"`
					} `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		} `json:"output"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return ImageResult{}, apperr.NewUpstream("unexpected image generation response", respBody)
	}
	if len(parsed.Output.Choices) == 0 ||
		len(parsed.Output.Choices[0].Message.Content) == 0 ||
		parsed.Output.Choices[0].Message.Content[0].Image == "" {
		return ImageResult{}, apperr.NewUpstream("unexpected image generation response", respBody)
	}

	return ImageResult{
		ImageURL: parsed.Output.Choices[0].Message.Content[0].Image,
		Request:  reqBody,
		Response: respBody,
	}, nil
}

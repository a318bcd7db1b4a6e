package generate

import (
	"context"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/newsmaker-md/content-pipeline/internal/apperr"
)

// DashScopeCompatBaseURL is the OpenAI-compatible endpoint for Qwen vision
// models.
const DashScopeCompatBaseURL = "https://dashscope-intl.aliyuncs.com/compatible-mode/v1"

const DefaultVisionModel = "qwen-vl-plus"

// ArticleWriter turns one photo into a written news article.
type ArticleWriter interface {
	WriteArticle(ctx context.Context, prompt, jpegBase64 string) (string, error)
	Model() string
}

// VisionClient implements ArticleWriter over an OpenAI-compatible chat
// completions API.
type VisionClient struct {
	model  string
	apiKey string
	opts   []option.RequestOption
}

var _ ArticleWriter = (*VisionClient)(nil)

func NewVisionClient(apiKey, baseURL, model string) *VisionClient {
	if baseURL == "" {
		baseURL = DashScopeCompatBaseURL
	}
	if model == "" {
		model = DefaultVisionModel
	}
	return &VisionClient{
		model:  model,
		apiKey: apiKey,
		opts: []option.RequestOption{
			option.WithAPIKey(apiKey),
			option.WithBaseURL(baseURL),
		},
	}
}

func (v *VisionClient) Model() string { return v.model }

func (v *VisionClient) CheckPrereq() error {
	if v.apiKey == "" {
		return apperr.NewPrereq("vision API key is not set")
	}
	return nil
}

func (v *VisionClient) WriteArticle(ctx context.Context, prompt, jpegBase64 string) (string, error) {
	if err := v.CheckPrereq(); err != nil {
		return "", err
	}

	client := openai.NewClient(v.opts...)

	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(prompt),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: "data:image/jpeg;base64," + jpegBase64,
		}),
	}

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(v.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(visionSystemPrompt),
			openai.UserMessage(parts),
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", apperr.NewUpstream("vision model returned no choices", nil)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Package genai wraps the OpenAI chat completions API for text and vision
// prompts that must answer with a JSON object.
package genai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"catalog-enrichment/internal/common/config"
	commonhttp "catalog-enrichment/internal/common/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

var (
	ErrAPIKeyNotSet  = errors.New("OpenAI API key not set")
	ErrTimeout       = errors.New("AI_TIMEOUT")
	ErrServiceFailed = errors.New("AI_SERVICE_FAILED")
	ErrRateLimited   = errors.New("AI_RATE_LIMITED")
)

// CompletionRequest is one system + user exchange. Images, when present, are
// attached to the user message as image content parts.
type CompletionRequest struct {
	Model  string
	System string
	Prompt string
	Images []string
	JSON   bool
}

// Completer returns the raw text of the first completion choice.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

type Client struct {
	client      openai.Client
	model       string
	temperature float64
	timeout     time.Duration
}

// NewClient builds a client from the genai config section. httpClient may be nil.
func NewClient(cfg config.GenAIConfig, httpClient *commonhttp.Client) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient.Standard()))
	}

	return &Client{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     config.GetDuration(cfg.Timeout),
	}, nil
}

func (c *Client) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	model := c.model
	if req.Model != "" {
		model = req.Model
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: buildMessages(req),
	}
	if c.temperature > 0 {
		params.Temperature = openai.Float(c.temperature)
	}
	if req.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{
				Type: "json_object",
			},
		}
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classify(ctx, err)
	}
	if len(completion.Choices) == 0 {
		return "", nil
	}
	return completion.Choices[0].Message.Content, nil
}

func buildMessages(req CompletionRequest) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}

	if len(req.Images) == 0 {
		return append(messages, openai.UserMessage(req.Prompt))
	}

	parts := []openai.ChatCompletionContentPartUnionParam{openai.TextContentPart(req.Prompt)}
	for _, img := range req.Images {
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: img,
		}))
	}
	return append(messages, openai.UserMessage(parts))
}

func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		return fmt.Errorf("%w: status %d: %s", ErrServiceFailed, apiErr.StatusCode, strings.TrimSpace(apiErr.Message))
	}
	return fmt.Errorf("%w: %v", ErrServiceFailed, err)
}

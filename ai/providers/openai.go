// Package providers adapts vendor SDKs to ai.Provider.
package providers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-star/ai"
	"github.com/goliatone/go-star/pkg/types"
	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
)

// OpenAIConfig configures the OpenAI adapter.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxTokens  int
	Timeout    time.Duration
	MaxRetries int
	Logger     types.Logger
}

// OpenAI calls the chat completions API. It supports JSON mode and image
// input.
type OpenAI struct {
	client    openai.Client
	model     string
	maxTokens int
	logger    types.Logger
}

// NewOpenAI builds the adapter.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("providers: openai api key required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if endpoint := strings.TrimSpace(cfg.BaseURL); endpoint != "" {
		opts = append(opts, option.WithBaseURL(endpoint))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.MaxRetries >= 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = string(openai.ChatModelGPT4o)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	logger.Info("providers: openai configured", "model", model, "custom_endpoint", cfg.BaseURL != "")
	return &OpenAI{
		client:    openai.NewClient(opts...),
		model:     model,
		maxTokens: cfg.MaxTokens,
		logger:    logger,
	}, nil
}

var _ ai.Provider = (*OpenAI)(nil)

// Name implements ai.Provider.
func (p *OpenAI) Name() string { return "openai" }

// SupportsStructured implements ai.Provider.
func (p *OpenAI) SupportsStructured() bool { return true }

// SupportsVision implements ai.Provider.
func (p *OpenAI) SupportsVision() bool { return true }

// Complete implements ai.Provider.
func (p *OpenAI) Complete(ctx context.Context, req ai.Request) (ai.Response, error) {
	model := firstNonBlank(req.Model, p.model)
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: p.messages(req),
	}
	if maxTokens := firstPositive(req.MaxTokens, p.maxTokens); maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(maxTokens))
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.JSON && len(req.Images) == 0 {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	p.logger.Debug("providers: openai chat completion", "model", model, "operation", req.Operation, "images", len(req.Images))
	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return ai.Response{}, describeOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return ai.Response{}, errors.New("openai: no choices returned")
	}
	return ai.Response{Text: resp.Choices[0].Message.Content, Model: resp.Model}, nil
}

func (p *OpenAI) messages(req ai.Request) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if system := strings.TrimSpace(req.System); system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	if len(req.Images) == 0 {
		return append(messages, openai.UserMessage(req.Prompt))
	}
	parts := []openai.ChatCompletionContentPartUnionParam{openai.TextContentPart(req.Prompt)}
	for _, img := range req.Images {
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: dataURL(img),
		}))
	}
	return append(messages, openai.UserMessage(parts))
}

func describeOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429:
			return fmt.Errorf("openai: rate limited: %w", err)
		case 401, 403:
			return fmt.Errorf("openai: credentials rejected: %w", err)
		}
	}
	return fmt.Errorf("openai: %w", err)
}

func dataURL(img ai.Image) string {
	contentType := img.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

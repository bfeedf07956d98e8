package providers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/goliatone/go-star/ai"
	"github.com/goliatone/go-star/pkg/types"
)

// DefaultAnthropicMaxTokens is used when neither the request nor the config
// sets a limit; the messages API requires one.
const DefaultAnthropicMaxTokens = 4000

// AnthropicConfig configures the Claude adapter.
type AnthropicConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxTokens  int
	Timeout    time.Duration
	MaxRetries int
	Logger     types.Logger
}

// Anthropic calls the messages API. Replies are free text, so the
// orchestrator parses them heuristically.
type Anthropic struct {
	client    anthropic.Client
	model     string
	maxTokens int
	logger    types.Logger
}

// NewAnthropic builds the adapter.
func NewAnthropic(cfg AnthropicConfig) (*Anthropic, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("providers: anthropic api key required")
	}
	opts := []anthropicoption.RequestOption{anthropicoption.WithAPIKey(cfg.APIKey)}
	if endpoint := strings.TrimSpace(cfg.BaseURL); endpoint != "" {
		opts = append(opts, anthropicoption.WithBaseURL(endpoint))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, anthropicoption.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.MaxRetries >= 0 {
		opts = append(opts, anthropicoption.WithMaxRetries(cfg.MaxRetries))
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "claude-3-7-sonnet-latest"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultAnthropicMaxTokens
	}
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	logger.Info("providers: anthropic configured", "model", model)
	return &Anthropic{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
		logger:    logger,
	}, nil
}

var _ ai.Provider = (*Anthropic)(nil)

// Name implements ai.Provider.
func (p *Anthropic) Name() string { return "anthropic" }

// SupportsStructured implements ai.Provider.
func (p *Anthropic) SupportsStructured() bool { return false }

// SupportsVision implements ai.Provider.
func (p *Anthropic) SupportsVision() bool { return true }

// Complete implements ai.Provider.
func (p *Anthropic) Complete(ctx context.Context, req ai.Request) (ai.Response, error) {
	model := firstNonBlank(req.Model, p.model)
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(req.Images)+1)
	for _, img := range req.Images {
		contentType := img.ContentType
		if contentType == "" {
			contentType = "image/jpeg"
		}
		blocks = append(blocks, anthropic.NewImageBlockBase64(contentType, base64.StdEncoding.EncodeToString(img.Data)))
	}
	blocks = append(blocks, anthropic.NewTextBlock(req.Prompt))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(firstPositive(req.MaxTokens, p.maxTokens)),
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)},
	}
	if system := strings.TrimSpace(req.System); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	p.logger.Debug("providers: anthropic message", "model", model, "operation", req.Operation, "images", len(req.Images))
	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return ai.Response{}, describeAnthropicError(err)
	}
	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return ai.Response{Text: text.String(), Model: string(msg.Model)}, nil
}

func describeAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == 429 {
		return fmt.Errorf("anthropic: rate limited: %w", err)
	}
	return fmt.Errorf("anthropic: %w", err)
}

package narrative

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"stockdesk/internal/config"
)

// AnthropicClient narrates through the Anthropic Messages API
type AnthropicClient struct {
	client      sdk.Client
	model       string
	maxTokens   int64
	temperature float64
}

var _ Narrator = (*AnthropicClient)(nil)

// NewAnthropicClient builds a client from configuration. Extra request
// options are appended after the API key.
func NewAnthropicClient(cfg config.LLMConfig, opts ...option.RequestOption) *AnthropicClient {
	model := cfg.Model
	if model == "" || model == config.DefaultLLMModel {
		model = config.DefaultAnthropicModel
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = config.DefaultLLMMaxTokens
	}

	all := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Timeout > 0 {
		all = append(all, option.WithRequestTimeout(cfg.Timeout))
	}
	all = append(all, opts...)

	return &AnthropicClient{
		client:      sdk.NewClient(all...),
		model:       model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
	}
}

// Narrate implements Narrator
func (c *AnthropicClient) Narrate(ctx context.Context, req Request) (string, error) {
	params := sdk.MessageNewParams{
		Model:       sdk.Model(c.model),
		MaxTokens:   c.maxTokens,
		Messages:    []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(req.User))},
		Temperature: sdk.Float(c.temperature),
	}
	if s := strings.TrimSpace(req.System); s != "" {
		params.System = []sdk.TextBlockParam{{Text: s}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic: create message: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", errors.New("anthropic: empty response")
	}
	return text, nil
}

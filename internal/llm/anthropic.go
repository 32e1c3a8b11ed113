package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/agentworks/casestudio/config"
	"github.com/agentworks/casestudio/internal/metrics"
)

// AnthropicProvider implements Provider over the Anthropic Messages API.
type AnthropicProvider struct {
	client anthropic.Client
	info   ModelInfo
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(cfg config.LLMConfig, info ModelInfo) (*AnthropicProvider, error) {
	if cfg.AnthropicAPIKey == "" {
		return nil, fmt.Errorf("Anthropic API key not configured")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.AnthropicAPIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}
	return &AnthropicProvider{client: anthropic.NewClient(opts...), info: info}, nil
}

// Generate generates text using Anthropic
func (p *AnthropicProvider) Generate(ctx context.Context, system, prompt string, options map[string]interface{}) (string, error) {
	resp, _, _, err := p.GenerateWithUsage(ctx, system, prompt, options)
	return resp, err
}

// GenerateWithUsage generates text and returns token usage
func (p *AnthropicProvider) GenerateWithUsage(ctx context.Context, system, prompt string, options map[string]interface{}) (string, int64, int64, error) {
	temperature, maxTokens := resolveOptions(p.info, options)

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.info.APIName),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", 0, 0, fmt.Errorf("anthropic: %w", err)
	}

	var text string
	for _, content := range resp.Content {
		if block, ok := content.AsAny().(anthropic.TextBlock); ok {
			text += block.Text
		}
	}
	metrics.LLMCompletions.WithLabelValues("anthropic", p.info.Name).Inc()
	return text, resp.Usage.InputTokens, resp.Usage.OutputTokens, nil
}

// ModelInfo returns information about the configured model
func (p *AnthropicProvider) ModelInfo() ModelInfo { return p.info }

// CalculateCost calculates the cost for a given number of tokens
func (p *AnthropicProvider) CalculateCost(inputTokens, outputTokens int64) float64 {
	return cost(p.info, inputTokens, outputTokens)
}

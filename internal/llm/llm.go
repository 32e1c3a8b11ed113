package llm

import (
	"context"
	"fmt"

	"github.com/agentworks/casestudio/config"
)

// Provider is the contract every LLM backend satisfies. Agents only ever
// issue single-turn generations: a system prompt plus one user prompt.
type Provider interface {
	// Generate generates text for the given prompts.
	Generate(ctx context.Context, system, prompt string, options map[string]interface{}) (string, error)

	// GenerateWithUsage generates text and returns token usage.
	GenerateWithUsage(ctx context.Context, system, prompt string, options map[string]interface{}) (string, int64, int64, error)

	// ModelInfo returns information about the configured model.
	ModelInfo() ModelInfo

	// CalculateCost calculates the cost for a given number of tokens.
	CalculateCost(inputTokens, outputTokens int64) float64
}

// ModelInfo contains information about an LLM model
type ModelInfo struct {
	Name            string  `json:"name"`
	APIName         string  `json:"api_name"`
	Provider        string  `json:"provider"`
	MaxTokens       int     `json:"max_tokens"`
	Temperature     float64 `json:"temperature"`
	CostPer1KInput  float64 `json:"cost_per_1k_input"`
	CostPer1KOutput float64 `json:"cost_per_1k_output"`
}

// models is the built-in model table, keyed by the short name used in
// configuration.
var models = map[string]ModelInfo{
	"claude-3-haiku": {
		Name:            "claude-3-haiku",
		APIName:         "claude-3-haiku-20240307",
		Provider:        "anthropic",
		MaxTokens:       4000,
		Temperature:     0.3,
		CostPer1KInput:  0.00025,
		CostPer1KOutput: 0.00125,
	},
	"claude-3-5-sonnet": {
		Name:            "claude-3-5-sonnet",
		APIName:         "claude-3-5-sonnet-20241022",
		Provider:        "anthropic",
		MaxTokens:       8192,
		Temperature:     0.3,
		CostPer1KInput:  0.003,
		CostPer1KOutput: 0.015,
	},
	"gpt-4o": {
		Name:            "gpt-4o",
		APIName:         "gpt-4o",
		Provider:        "openai",
		MaxTokens:       4096,
		Temperature:     0.3,
		CostPer1KInput:  0.0025,
		CostPer1KOutput: 0.01,
	},
	"gpt-4o-mini": {
		Name:            "gpt-4o-mini",
		APIName:         "gpt-4o-mini",
		Provider:        "openai",
		MaxTokens:       4096,
		Temperature:     0.3,
		CostPer1KInput:  0.00015,
		CostPer1KOutput: 0.0006,
	},
}

// LookupModel resolves a short model name from the built-in table.
func LookupModel(name string) (ModelInfo, error) {
	info, ok := models[name]
	if !ok {
		return ModelInfo{}, fmt.Errorf("model not found: %s", name)
	}
	return info, nil
}

// AvailableModels returns the short names of all known models.
func AvailableModels() []string {
	names := make([]string, 0, len(models))
	for name := range models {
		names = append(names, name)
	}
	return names
}

// NewProvider creates a provider from configuration.
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	info, err := LookupModel(cfg.Model)
	if err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case "anthropic":
		if info.Provider != "anthropic" {
			return nil, fmt.Errorf("model %s is not an anthropic model", cfg.Model)
		}
		return NewAnthropicProvider(cfg, info)
	case "openai":
		if info.Provider != "openai" {
			return nil, fmt.Errorf("model %s is not an openai model", cfg.Model)
		}
		return NewOpenAIProvider(cfg, info), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider type: %s", cfg.Provider)
	}
}

func resolveOptions(info ModelInfo, options map[string]interface{}) (temperature float64, maxTokens int) {
	temperature = info.Temperature
	maxTokens = info.MaxTokens
	if t, ok := options["temperature"].(float64); ok {
		temperature = t
	}
	if mt, ok := options["max_tokens"].(int); ok {
		maxTokens = mt
	}
	return temperature, maxTokens
}

func cost(info ModelInfo, inputTokens, outputTokens int64) float64 {
	inputCost := float64(inputTokens) / 1000.0 * info.CostPer1KInput
	outputCost := float64(outputTokens) / 1000.0 * info.CostPer1KOutput
	return inputCost + outputCost
}

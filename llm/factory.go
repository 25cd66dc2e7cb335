// LLM Provider Factory - Ergonomic builder-first API for creating LLM providers.
//
// Quick Start:
//
//	// Full configuration
//	custom, err := llm.ProviderTogether.
//	    Model(llm.ModelTogetherMixtral8x7B).
//	    MaxTokens(2048).
//	    Temperature(0.3).
//	    TopP(0.9).
//	    APIKey(key)
//
//	// With an explicit endpoint
//	provider, err := llm.ProviderOpenAI.Model(llm.ModelOpenAIGPT4oMini).BaseURL("http://localhost:8080/v1").APIKey("sk-...")

package llm

import (
	"fmt"
	"strings"
)

// ProviderType represents supported LLM providers.
type ProviderType int

const (
	// ProviderTogether is Together AI's OpenAI-compatible endpoint.
	ProviderTogether ProviderType = iota
	// ProviderOpenAI is the OpenAI provider (GPT models).
	ProviderOpenAI
	// ProviderAnthropic is the Anthropic provider (Claude models).
	ProviderAnthropic
	// ProviderDeepSeek is the DeepSeek provider.
	ProviderDeepSeek
	// ProviderGemini is the Google Gemini provider.
	ProviderGemini
)

const (
	togetherBaseURL = "https://api.together.xyz/v1"
	deepseekBaseURL = "https://api.deepseek.com/v1"
)

// String returns the string representation of the provider type.
func (p ProviderType) String() string {
	switch p {
	case ProviderTogether:
		return "together"
	case ProviderOpenAI:
		return "openai"
	case ProviderAnthropic:
		return "anthropic"
	case ProviderDeepSeek:
		return "deepseek"
	case ProviderGemini:
		return "gemini"
	default:
		return "unknown"
	}
}

// DefaultModel returns the default model for this provider.
func (p ProviderType) DefaultModel() string {
	switch p {
	case ProviderTogether:
		return ModelTogetherMixtral8x7B
	case ProviderOpenAI:
		return ModelOpenAIGPT4oMini
	case ProviderAnthropic:
		return ModelAnthropicClaudeSonnet4
	case ProviderDeepSeek:
		return ModelDeepSeekChat
	case ProviderGemini:
		return ModelGeminiFlash25
	default:
		return ""
	}
}

// DefaultBaseURL returns the endpoint used when none is configured.
// Empty for providers whose SDK already knows its endpoint.
func (p ProviderType) DefaultBaseURL() string {
	switch p {
	case ProviderTogether:
		return togetherBaseURL
	case ProviderDeepSeek:
		return deepseekBaseURL
	default:
		return ""
	}
}

// ParseProviderType parses a provider from string (case-insensitive).
func ParseProviderType(s string) (ProviderType, error) {
	switch strings.ToLower(s) {
	case "together", "togetherai", "mixtral":
		return ProviderTogether, nil
	case "openai", "gpt":
		return ProviderOpenAI, nil
	case "anthropic", "claude":
		return ProviderAnthropic, nil
	case "deepseek":
		return ProviderDeepSeek, nil
	case "gemini", "google":
		return ProviderGemini, nil
	default:
		return 0, fmt.Errorf("unknown provider: %s", s)
	}
}

// Model starts configuring this provider with a specific model.
func (p ProviderType) Model(model string) *ProviderBuilder {
	return NewProviderBuilder(p).Model(model)
}

// ProviderBuilder is a builder for configuring LLM providers.
type ProviderBuilder struct {
	providerType ProviderType
	model        string
	baseURL      string
	maxTokens    uint32
	temperature  *float32
	topP         *float32
}

// NewProviderBuilder creates a new builder for the given provider.
func NewProviderBuilder(providerType ProviderType) *ProviderBuilder {
	return &ProviderBuilder{
		providerType: providerType,
	}
}

// Model sets the model to use.
func (b *ProviderBuilder) Model(model string) *ProviderBuilder {
	b.model = model
	return b
}

// BaseURL overrides the endpoint for OpenAI-compatible providers.
func (b *ProviderBuilder) BaseURL(url string) *ProviderBuilder {
	b.baseURL = url
	return b
}

// MaxTokens sets maximum tokens for responses.
func (b *ProviderBuilder) MaxTokens(tokens uint32) *ProviderBuilder {
	b.maxTokens = tokens
	return b
}

// Temperature sets temperature (0.0 = deterministic, 1.0 = creative).
func (b *ProviderBuilder) Temperature(temp float32) *ProviderBuilder {
	b.temperature = &temp
	return b
}

// TopP sets nucleus sampling.
func (b *ProviderBuilder) TopP(p float32) *ProviderBuilder {
	b.topP = &p
	return b
}

// APIKey builds the provider with an explicit API key.
func (b *ProviderBuilder) APIKey(key string) (Provider, error) {
	return b.build(key)
}

func (b *ProviderBuilder) build(apiKey string) (Provider, error) {
	model := b.model
	if model == "" {
		model = b.providerType.DefaultModel()
	}

	sampling := Sampling{
		MaxTokens:   b.maxTokens,
		Temperature: 0.3,
		TopP:        0.9,
	}
	if sampling.MaxTokens == 0 {
		sampling.MaxTokens = 2048
	}
	if b.temperature != nil {
		sampling.Temperature = *b.temperature
	}
	if b.topP != nil {
		sampling.TopP = *b.topP
	}

	baseURL := b.baseURL
	if baseURL == "" {
		baseURL = b.providerType.DefaultBaseURL()
	}

	switch b.providerType {
	case ProviderTogether, ProviderOpenAI, ProviderDeepSeek:
		return NewOpenAIProvider(b.providerType.String(), apiKey, baseURL, model, sampling), nil
	case ProviderAnthropic:
		return NewAnthropicProvider(apiKey, model, sampling), nil
	case ProviderGemini:
		return NewGeminiProvider(apiKey, model, sampling), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %v", b.providerType)
	}
}

// Model identifier constants for all supported providers.

// Together AI model identifiers
const (
	// ModelTogetherMixtral8x7B is Mixtral 8x7B Instruct, the default analysis model.
	ModelTogetherMixtral8x7B = "mistralai/Mixtral-8x7B-Instruct-v0.1"
	// ModelTogetherLlama3170B is Llama 3.1 70B Instruct Turbo.
	ModelTogetherLlama3170B = "meta-llama/Meta-Llama-3.1-70B-Instruct-Turbo"
)

// OpenAI model identifiers
const (
	ModelOpenAIGPT4o     = "gpt-4o"
	ModelOpenAIGPT4oMini = "gpt-4o-mini"
)

// Anthropic model identifiers
const (
	ModelAnthropicClaudeSonnet4 = "claude-sonnet-4-20250514"
	ModelAnthropicClaudeHaiku45 = "claude-haiku-4-5"
)

// DeepSeek model identifiers
const (
	ModelDeepSeekChat = "deepseek-chat"
)

// Gemini model identifiers
const (
	ModelGeminiFlash25 = "gemini-2.5-flash"
	ModelGeminiPro25   = "gemini-2.5-pro"
)

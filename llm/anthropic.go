// Anthropic Provider implementation using official anthropic-sdk-go.
//
// Information Hiding:
// - API endpoint and authentication
// - Request/response format for Anthropic Messages API
// - Mapping of SDK errors onto status-classified errors

package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider implements the Provider interface for Anthropic Claude.
type AnthropicProvider struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
	topP        float64
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(apiKey, model string, sampling Sampling) *AnthropicProvider {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
		// Retries are owned by the analysis loop.
		option.WithMaxRetries(0),
	)

	return &AnthropicProvider{
		client:      client,
		model:       model,
		maxTokens:   int64(sampling.MaxTokens),
		temperature: float64(sampling.Temperature),
		topP:        float64(sampling.TopP),
	}
}

// Name returns the provider name.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Model returns the current model.
func (p *AnthropicProvider) Model() string {
	return p.model
}

// Chat sends a chat completion request.
func (p *AnthropicProvider) Chat(ctx context.Context, messages []ChatMessage) (LLMResponse, error) {
	anthropicMessages, systemPrompt := convertToAnthropicMessages(messages)

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   p.maxTokens,
		Messages:    anthropicMessages,
		Temperature: anthropic.Float(p.temperature),
	}
	if p.topP > 0 {
		params.TopP = anthropic.Float(p.topP)
	}

	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: systemPrompt},
		}
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return LLMResponse{}, &StatusError{Provider: p.Name(), StatusCode: apiErr.StatusCode, Err: err}
		}
		return LLMResponse{}, fmt.Errorf("chat completion failed: %w", err)
	}

	content := ""
	for _, block := range message.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			content += variant.Text
		}
	}
	if content == "" {
		return LLMResponse{}, fmt.Errorf("%s: %w", p.Name(), ErrInvalidResponse)
	}

	var usage *TokenUsage
	if message.Usage.InputTokens > 0 || message.Usage.OutputTokens > 0 {
		usage = &TokenUsage{
			PromptTokens:     uint32(message.Usage.InputTokens),
			CompletionTokens: uint32(message.Usage.OutputTokens),
			TotalTokens:      uint32(message.Usage.InputTokens + message.Usage.OutputTokens),
		}
	}

	return LLMResponse{Content: content, Usage: usage}, nil
}

// convertToAnthropicMessages converts our ChatMessage to Anthropic format.
// System messages are joined into the returned prompt. Consecutive messages
// of one role are merged because the Messages API requires alternating turns.
func convertToAnthropicMessages(messages []ChatMessage) ([]anthropic.MessageParam, string) {
	var anthropicMessages []anthropic.MessageParam
	var blocks []anthropic.ContentBlockParamUnion
	role := ""

	flush := func() {
		switch role {
		case RoleUser:
			anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(blocks...))
		case RoleAssistant:
			anthropicMessages = append(anthropicMessages, anthropic.NewAssistantMessage(blocks...))
		}
		blocks = nil
	}

	for _, msg := range messages {
		if msg.Role != RoleUser && msg.Role != RoleAssistant {
			continue
		}
		if msg.Role != role {
			flush()
			role = msg.Role
		}
		blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
	}
	flush()

	return anthropicMessages, Text(messages, RoleSystem)
}

// Verify AnthropicProvider implements Provider
var _ Provider = (*AnthropicProvider)(nil)

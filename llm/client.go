// LLMClient - Provider wrapper that keeps token accounting.

package llm

import (
	"context"
	"sync"
)

// Client wraps a Provider and totals the token usage of every request.
// Safe for concurrent use.
type Client struct {
	provider Provider

	mu    sync.Mutex
	calls int
	usage TokenUsage
}

// NewClient creates a new LLM client from a provider.
func NewClient(provider Provider) *Client {
	return &Client{provider: provider}
}

// Complete sends a single user prompt and returns just the content.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	return c.Chat(ctx, []ChatMessage{UserMessage(prompt)})
}

// Chat sends a chat completion request and returns just the content.
func (c *Client) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	content, _, err := c.ChatWithUsage(ctx, messages)
	return content, err
}

// ChatWithUsage sends a chat completion request and returns content with the
// usage reported for it. Usage is nil when the provider reported none.
func (c *Client) ChatWithUsage(ctx context.Context, messages []ChatMessage) (string, *TokenUsage, error) {
	response, err := c.provider.Chat(ctx, messages)

	c.mu.Lock()
	c.calls++
	if response.Usage != nil {
		c.usage.add(*response.Usage)
	}
	c.mu.Unlock()

	if err != nil {
		return "", nil, err
	}
	return response.Content, response.Usage, nil
}

// Stats returns the number of requests sent and their summed usage.
func (c *Client) Stats() (calls int, usage TokenUsage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls, c.usage
}

// Provider returns the underlying provider.
func (c *Client) Provider() Provider {
	return c.provider
}

// Package llm provides LLM provider abstractions.
//
// LLM Provider interface - the abstract interface for completion services.
// Each provider implementation hides:
// - API client initialization and authentication
// - Request/response format conversion
// - Mapping of provider-specific failures onto the shared error kinds

package llm

import (
	"context"
)

// Provider defines the abstract interface for LLM providers.
// Implementations hide provider-specific details while exposing
// a consistent interface for chat completions.
type Provider interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// Model returns the current model being used.
	Model() string

	// Chat sends a chat completion request.
	//
	// Failures are classified: errors.Is(err, ErrAuthentication),
	// errors.Is(err, ErrThrottled) and errors.Is(err, ErrInvalidResponse)
	// identify the kinds callers react to; anything else is a transport failure.
	Chat(ctx context.Context, messages []ChatMessage) (LLMResponse, error)
}

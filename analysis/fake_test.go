package analysis

import (
	"context"
	"sync"
	"time"

	"github.com/richinex/repolens/llm"
)

type reply struct {
	content string
	err     error
}

// scriptedProvider returns replies in order and repeats the last one.
type scriptedProvider struct {
	mu      sync.Mutex
	replies []reply
	calls   [][]llm.ChatMessage
}

func (p *scriptedProvider) Name() string  { return "fake" }
func (p *scriptedProvider) Model() string { return "fake-model" }

func (p *scriptedProvider) Chat(_ context.Context, messages []llm.ChatMessage) (llm.LLMResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, messages)
	i := len(p.calls) - 1
	if i >= len(p.replies) {
		i = len(p.replies) - 1
	}
	r := p.replies[i]
	if r.err != nil {
		return llm.LLMResponse{}, r.err
	}
	return llm.LLMResponse{Content: r.content}, nil
}

func (p *scriptedProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// stallingProvider blocks every request until its context ends.
type stallingProvider struct {
	mu       sync.Mutex
	calls    int
	deadline bool
}

func (p *stallingProvider) Name() string  { return "stall" }
func (p *stallingProvider) Model() string { return "stall-model" }

func (p *stallingProvider) Chat(ctx context.Context, _ []llm.ChatMessage) (llm.LLMResponse, error) {
	p.mu.Lock()
	p.calls++
	_, p.deadline = ctx.Deadline()
	p.mu.Unlock()
	<-ctx.Done()
	return llm.LLMResponse{}, ctx.Err()
}

func (p *stallingProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// recordingSleeper records requested delays without waiting.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return nil
}

func throttled() error {
	return &llm.StatusError{Provider: "fake", StatusCode: 429, Err: errString("too many requests")}
}

func unauthorized() error {
	return &llm.StatusError{Provider: "fake", StatusCode: 401, Err: errString("bad key")}
}

type errString string

func (e errString) Error() string { return string(e) }

const completeResponse = `assistant: ## Project Overview
- A command line tool that downloads weather data from a public API and stores it locally for later analysis.

## Key Features
1. Fetches hourly forecasts through the fetch_forecast function using the requests library.
2. Caches responses on disk so repeated runs do not hit the remote service again.

## Project Workflow
- The user runs main.py with a city name and the program validates the argument.
- The program calls fetch_forecast and writes the parsed JSON into a SQLite table.

## Project Strengths
- Small, focused modules make the code easy to read and straightforward to test in isolation.

## Areas for Improvement
- Network errors are not retried, so a transient failure aborts the whole run without a useful message.
`

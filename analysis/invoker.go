package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/richinex/repolens/config"
	"github.com/richinex/repolens/internal/logging"
	"github.com/richinex/repolens/llm"
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper backed by a timer.
func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// BackoffDelay returns base × 2^(attempt-1). Attempts start at 1.
func BackoffDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return base << (attempt - 1)
}

// Invoker performs one completion request per call and classifies the outcome.
//
// Invoke returns ("", nil) when the attempt should be repeated: the service
// throttled the request, the response carried no content, or the content was
// too short to be useful. A non-nil error is fatal for the whole run.
type Invoker struct {
	client *llm.Client
	cfg    config.AnalysisConfig
	sleep  Sleeper
	log    logrus.FieldLogger
}

// InvokerOption configures an Invoker.
type InvokerOption func(*Invoker)

// WithSleeper replaces the backoff sleeper.
func WithSleeper(s Sleeper) InvokerOption {
	return func(inv *Invoker) { inv.sleep = s }
}

// WithInvokerLogger sets the logger used for attempt diagnostics.
func WithInvokerLogger(l logrus.FieldLogger) InvokerOption {
	return func(inv *Invoker) { inv.log = l }
}

// NewInvoker creates an invoker over provider.
func NewInvoker(provider llm.Provider, cfg config.AnalysisConfig, opts ...InvokerOption) *Invoker {
	inv := &Invoker{
		client: llm.NewClient(provider),
		cfg:    cfg,
		sleep:  SleepContext,
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Invoke sends prompt as a single user message.
func (inv *Invoker) Invoke(ctx context.Context, prompt string, attempt int) (string, error) {
	return inv.InvokeMessages(ctx, []llm.ChatMessage{llm.UserMessage(prompt)}, attempt)
}

// InvokeMessages sends messages and applies the same classification as Invoke.
func (inv *Invoker) InvokeMessages(ctx context.Context, messages []llm.ChatMessage, attempt int) (string, error) {
	log := logging.FromContext(ctx, inv.log).WithField("attempt", attempt)

	reqCtx := ctx
	if inv.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, inv.cfg.RequestTimeout)
		defer cancel()
	}

	text, usage, err := inv.client.ChatWithUsage(reqCtx, messages)
	if err != nil {
		switch {
		case errors.Is(err, llm.ErrAuthentication):
			return "", fmt.Errorf("invalid %s API key, please check your configuration: %w",
				inv.client.Provider().Name(), err)
		case errors.Is(err, llm.ErrThrottled):
			delay := BackoffDelay(inv.cfg.BaseDelay, attempt)
			log.WithField("delay", delay).Warn("Rate limited, backing off")
			if serr := inv.sleep(ctx, delay); serr != nil {
				return "", serr
			}
			return "", nil
		case errors.Is(err, llm.ErrInvalidResponse):
			log.WithError(err).Warn("Response had no content")
			return "", nil
		default:
			return "", fmt.Errorf("API request failed: %w", err)
		}
	}

	if usage != nil {
		log.WithFields(logrus.Fields{
			"prompt_tokens":     usage.PromptTokens,
			"completion_tokens": usage.CompletionTokens,
		}).Debug("Response received")
	}

	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n < inv.cfg.MinResponseChars {
		log.WithField("chars", n).Warn("Response too short")
		return "", nil
	}
	return text, nil
}

// Package workflow extracts system and user step sequences from the
// Project Workflow section of an analysis.
package workflow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	jsonutil "github.com/richinex/repolens/internal/json"
	"github.com/richinex/repolens/internal/logging"
	"github.com/richinex/repolens/llm"
	"github.com/richinex/repolens/model"
)

// ErrExtractionParse is returned when the response holds no usable step array.
var ErrExtractionParse = errors.New("failed to parse workflow steps")

// ErrEmptyWorkflow is returned when there is no workflow text to extract from.
var ErrEmptyWorkflow = errors.New("workflow text is empty")

const extractPrompt = `Convert the project workflow below into two ordered lists of steps.

System steps describe what the program does internally (loading, processing, storing, calling services).
User steps describe what a person does to use the project (installing, configuring, running, reading results).

Respond with only a JSON array, no other text. Each element must have exactly these fields:
{"id": <number, unique, starting at 1>, "title": "<2 to 4 words>", "description": "<one sentence>", "isSystem": <true for system steps, false for user steps>}

List system steps in execution order, then user steps in the order a user performs them.

Workflow:
%s`

// rawStep tolerates ids sent as strings.
type rawStep struct {
	ID          stepID `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	IsSystem    bool   `json:"isSystem"`
}

type stepID int

func (id *stepID) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*id = 0
		return nil
	}
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return fmt.Errorf("invalid step id %q: %w", b, err)
	}
	*id = stepID(n)
	return nil
}

// Extractor asks the completion service to split a workflow into steps.
type Extractor struct {
	client  *llm.Client
	timeout time.Duration
	log     logrus.FieldLogger
}

// NewExtractor creates an extractor over provider. Each request is bounded by
// timeout when it is positive. A nil logger selects the standard logger.
func NewExtractor(provider llm.Provider, timeout time.Duration, log logrus.FieldLogger) *Extractor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Extractor{client: llm.NewClient(provider), timeout: timeout, log: log}
}

// Stats returns the requests sent by this extractor and their token usage.
func (e *Extractor) Stats() (calls int, usage llm.TokenUsage) {
	return e.client.Stats()
}

// Extract returns the system and user sequences described by workflowText,
// each padded to MinSteps. A failed request or unparseable response is
// returned as is; there is no local retry.
func (e *Extractor) Extract(ctx context.Context, workflowText string) (model.Workflows, error) {
	workflowText = strings.TrimSpace(workflowText)
	if workflowText == "" {
		return model.Workflows{}, ErrEmptyWorkflow
	}

	reqCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	text, err := e.client.Complete(reqCtx, fmt.Sprintf(extractPrompt, workflowText))
	if err != nil {
		return model.Workflows{}, fmt.Errorf("step extraction request failed: %w", err)
	}

	steps, err := ParseSteps(text)
	if err != nil {
		return model.Workflows{}, err
	}

	wf := Split(steps)
	log := logging.FromContext(ctx, e.log)
	log.WithFields(logrus.Fields{
		"system_steps": len(wf.System),
		"user_steps":   len(wf.User),
	}).Debug("Extracted workflow steps")
	for _, seq := range [][]model.WorkflowStep{wf.System, wf.User} {
		for _, s := range seq {
			log.WithFields(logrus.Fields{
				"id":     s.ID,
				"system": s.IsSystem,
			}).Debug(s.Label())
		}
	}
	return wf, nil
}

// ParseSteps reads the first JSON array in text. Steps without a title are
// dropped; missing ids are numbered after the highest id seen so far.
func ParseSteps(text string) ([]model.WorkflowStep, error) {
	raw, err := jsonutil.ExtractArrayFromResponse[rawStep](text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionParse, err)
	}

	steps := make([]model.WorkflowStep, 0, len(raw))
	maxID := 0
	for _, r := range raw {
		if int(r.ID) > maxID {
			maxID = int(r.ID)
		}
	}
	for _, r := range raw {
		title := strings.TrimSpace(r.Title)
		if title == "" {
			continue
		}
		id := int(r.ID)
		if id <= 0 {
			maxID++
			id = maxID
		}
		steps = append(steps, model.WorkflowStep{
			ID:          id,
			Title:       title,
			Description: strings.TrimSpace(r.Description),
			IsSystem:    r.IsSystem,
		})
	}
	return steps, nil
}

// Split partitions steps by role, keeping order, and pads both sequences.
// Padding steps are numbered after the highest ID in either sequence, system
// padding first.
func Split(steps []model.WorkflowStep) model.Workflows {
	var wf model.Workflows
	next := 1
	for _, s := range steps {
		if s.ID >= next {
			next = s.ID + 1
		}
		if s.IsSystem {
			wf.System = append(wf.System, s)
		} else {
			wf.User = append(wf.User, s)
		}
	}
	if n := len(wf.System); n < MinSteps {
		wf.System = Pad(wf.System, true, next)
		next += MinSteps - n
	}
	wf.User = Pad(wf.User, false, next)
	return wf
}

// WorkflowSection returns the Project Workflow section of result.
func WorkflowSection(result model.AnalysisResult) string {
	text, _ := result.Section(model.SectionWorkflow)
	return text
}

package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/richinex/repolens/llm"
	"github.com/richinex/repolens/model"
)

// ErrEmptyQuestion is returned by Ask for a blank question.
var ErrEmptyQuestion = errors.New("question is empty")

const askSystemPrompt = "You are a code analysis expert answering questions about a Python project. " +
	"Answer only from the files provided. If the files do not contain the answer, say so. " +
	"Be concise and refer to file and function names."

// Ask answers a single question about files. Nothing is remembered between
// calls. The same selection, sanitization and retry rules as Analyze apply;
// the answer is returned as plain text without section validation.
func (a *Analyzer) Ask(ctx context.Context, question string, files []model.SourceFile) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}

	selected := SelectFiles(files, a.cfg)
	if len(selected) == 0 {
		return "", ErrNoEligibleFiles
	}

	messages := []llm.ChatMessage{
		llm.SystemMessage(askSystemPrompt),
		llm.UserMessage(buildAskPrompt(question, selected)),
	}

	// Short answers are fine here.
	inv := *a.invoker
	inv.cfg.MinResponseChars = 1

	for attempt := 1; attempt <= a.cfg.MaxRetries; attempt++ {
		text, err := inv.InvokeMessages(ctx, messages, attempt)
		if err != nil {
			return "", err
		}
		if text != "" {
			return text, nil
		}
	}
	return "", fmt.Errorf("%w (%d attempts)", ErrAnalysisFailed, a.cfg.MaxRetries)
}

func buildAskPrompt(question string, files []model.SourceFile) string {
	var b strings.Builder
	b.WriteString("Project files:\n\n")
	for _, f := range files {
		fmt.Fprintf(&b, "### %s\n```python\n%s\n```\n\n", fileLabel(f), f.Content)
	}
	fmt.Fprintf(&b, "Question: %s", question)
	return b.String()
}

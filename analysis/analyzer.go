package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/richinex/repolens/config"
	"github.com/richinex/repolens/internal/logging"
	"github.com/richinex/repolens/llm"
	"github.com/richinex/repolens/model"
)

var (
	// ErrAnalysisFailed is returned when every attempt produced an unusable response.
	ErrAnalysisFailed = errors.New("analysis failed after multiple attempts: the model response was invalid")

	// ErrNoEligibleFiles marks an input without Python sources. Analyze does not
	// return it; it is set on Analysis.Skipped.
	ErrNoEligibleFiles = errors.New("no Python files (.py or .ipynb) to analyze")
)

// NoEligibleFilesText is the analysis text for a project without Python files.
const NoEligibleFilesText = "## Project Analysis\n\n" +
	"This repository does not contain any Python files (.py or .ipynb). " +
	"Please try analyzing a Python project."

// Analysis is the outcome of one Analyze call.
type Analysis struct {
	// Result is the validated analysis. Empty when Skipped is set.
	Result model.AnalysisResult
	// Report is the text shown to users: the analysis wrapped with a title
	// and footer, or NoEligibleFilesText.
	Report string
	// Files are the selected, sanitized files the prompt was built from.
	Files []model.SourceFile
	// Attempts is the number of completion requests made.
	Attempts int
	// Skipped is ErrNoEligibleFiles when no request was made.
	Skipped error
}

// Analyzer runs the select, prompt, invoke and format stages with retries.
type Analyzer struct {
	invoker *Invoker
	cfg     config.AnalysisConfig
	log     logrus.FieldLogger
}

// Option configures an Analyzer.
type Option func(*analyzerOptions)

type analyzerOptions struct {
	log     logrus.FieldLogger
	invoker []InvokerOption
}

// WithLogger sets the logger for the analyzer and its invoker.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *analyzerOptions) { o.log = l }
}

// WithInvokerOptions forwards options to the underlying Invoker.
func WithInvokerOptions(opts ...InvokerOption) Option {
	return func(o *analyzerOptions) { o.invoker = append(o.invoker, opts...) }
}

// NewAnalyzer creates an analyzer that sends requests through provider.
func NewAnalyzer(provider llm.Provider, cfg config.AnalysisConfig, opts ...Option) *Analyzer {
	o := analyzerOptions{log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	invOpts := append([]InvokerOption{WithInvokerLogger(o.log)}, o.invoker...)
	return &Analyzer{
		invoker: NewInvoker(provider, cfg, invOpts...),
		cfg:     cfg,
		log:     o.log,
	}
}

// Stats returns the requests sent by this analyzer and their token usage.
func (a *Analyzer) Stats() (calls int, usage llm.TokenUsage) {
	return a.invoker.client.Stats()
}

// Config returns the analyzer's configuration.
func (a *Analyzer) Config() config.AnalysisConfig {
	return a.cfg
}

// Analyze produces a validated analysis of files.
//
// Up to MaxRetries attempts are made. An attempt is consumed by a throttled or
// empty response, a response that is too short, or one missing a critical
// section. Authentication and transport failures end the run at once.
func (a *Analyzer) Analyze(ctx context.Context, files []model.SourceFile) (Analysis, error) {
	log := logging.FromContext(ctx, a.log)

	selected := SelectFiles(files, a.cfg)
	if len(selected) == 0 {
		log.Info("No Python files to analyze")
		return Analysis{Report: NoEligibleFilesText, Skipped: ErrNoEligibleFiles}, nil
	}

	prompt := BuildPrompt(selected)
	log.WithFields(logrus.Fields{
		"files":        len(selected),
		"prompt_chars": len(prompt),
	}).Info("Starting analysis")

	lastFailure := "no usable response"
	for attempt := 1; attempt <= a.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return Analysis{Files: selected, Attempts: attempt - 1}, err
		}

		text, err := a.invoker.Invoke(ctx, prompt, attempt)
		if err != nil {
			return Analysis{Files: selected, Attempts: attempt}, err
		}
		if text == "" {
			lastFailure = "no usable response"
			continue
		}

		result, missing := format(text)
		if result.IsEmpty() {
			lastFailure = "missing sections: " + strings.Join(missing, ", ")
			log.WithFields(logrus.Fields{
				"attempt": attempt,
				"missing": missing,
			}).Warn("Response is missing critical sections, regenerating")
			continue
		}

		log.WithField("attempt", attempt).Info("Analysis complete")
		return Analysis{
			Result:   result,
			Report:   a.envelope(result),
			Files:    selected,
			Attempts: attempt,
		}, nil
	}

	return Analysis{Files: selected, Attempts: a.cfg.MaxRetries},
		fmt.Errorf("%w (%d attempts, last: %s)", ErrAnalysisFailed, a.cfg.MaxRetries, lastFailure)
}

func (a *Analyzer) envelope(result model.AnalysisResult) string {
	return fmt.Sprintf("# Python Project Analysis\n\n%s\n\n---\n"+
		"*Analysis performed using %s. Covers up to %d Python files, with a maximum of %d characters per file.*",
		result.FullText, a.modelLabel(), a.cfg.MaxFiles, a.cfg.MaxFileContentChars)
}

func (a *Analyzer) modelLabel() string {
	if m := a.invoker.client.Provider().Model(); m != "" {
		return m
	}
	return a.cfg.ModelName
}

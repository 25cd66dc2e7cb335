// Package pipeline runs a full analysis: the analysis text first, then step
// extraction and both workflow diagrams.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/richinex/repolens/analysis"
	"github.com/richinex/repolens/internal/logging"
	"github.com/richinex/repolens/model"
	"github.com/richinex/repolens/workflow"
)

// Analyzer produces the analysis of a file set.
type Analyzer interface {
	Analyze(ctx context.Context, files []model.SourceFile) (analysis.Analysis, error)
}

// StepExtractor splits a workflow description into step sequences.
type StepExtractor interface {
	Extract(ctx context.Context, workflowText string) (model.Workflows, error)
}

// DiagramRenderer draws one step sequence.
type DiagramRenderer interface {
	Render(ctx context.Context, steps []model.WorkflowStep) (string, error)
}

// Report is the outcome of a run. When diagrams fail, Analysis is still set
// and DiagramErr holds the cause.
type Report struct {
	RunID         string
	Analysis      analysis.Analysis
	Workflows     model.Workflows
	SystemDiagram string
	UserDiagram   string
	DiagramErr    error
}

// HasDiagrams reports whether both diagrams were rendered.
func (r Report) HasDiagrams() bool {
	return r.SystemDiagram != "" && r.UserDiagram != ""
}

// Pipeline wires the analysis stages together.
type Pipeline struct {
	analyzer  Analyzer
	extractor StepExtractor
	renderer  DiagramRenderer
	log       logrus.FieldLogger
}

// New creates a pipeline. A nil logger selects the standard logger.
func New(analyzer Analyzer, extractor StepExtractor, renderer DiagramRenderer, log logrus.FieldLogger) *Pipeline {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Pipeline{
		analyzer:  analyzer,
		extractor: extractor,
		renderer:  renderer,
		log:       log,
	}
}

// Run analyzes files and renders the system and user workflow diagrams
// concurrently. An analysis failure is returned as the error; extraction and
// rendering failures are stored on Report.DiagramErr.
func (p *Pipeline) Run(ctx context.Context, files []model.SourceFile) (Report, error) {
	report := Report{RunID: uuid.NewString()}
	log := p.log.WithField("run_id", report.RunID)
	ctx = logging.WithLogger(ctx, log)

	log.WithField("files", len(files)).Info("Run started")

	res, err := p.analyzer.Analyze(ctx, files)
	if err != nil {
		log.WithError(err).Error("Analysis failed")
		return report, err
	}
	report.Analysis = res
	if res.Skipped != nil {
		log.WithError(res.Skipped).Info("Run finished without analysis")
		return report, nil
	}

	wf, err := p.extractor.Extract(ctx, workflow.WorkflowSection(res.Result))
	if err != nil {
		report.DiagramErr = fmt.Errorf("extract workflow steps: %w", err)
		log.WithError(err).Warn("Workflow extraction failed, returning analysis only")
		return report, nil
	}
	report.Workflows = wf

	system, user, err := p.renderBoth(ctx, wf)
	report.SystemDiagram = system
	report.UserDiagram = user
	if err != nil {
		report.DiagramErr = err
		log.WithError(err).Warn("Diagram rendering failed, returning analysis only")
		return report, nil
	}

	log.Info("Run complete")
	return report, nil
}

func (p *Pipeline) renderBoth(ctx context.Context, wf model.Workflows) (system, user string, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		svg, err := p.renderer.Render(gctx, wf.System)
		if err != nil {
			return fmt.Errorf("render system diagram: %w", err)
		}
		system = svg
		return nil
	})
	g.Go(func() error {
		svg, err := p.renderer.Render(gctx, wf.User)
		if err != nil {
			return fmt.Errorf("render user diagram: %w", err)
		}
		user = svg
		return nil
	})
	if err := g.Wait(); err != nil {
		return system, user, err
	}
	return system, user, nil
}

// IsAnalysisFailure reports whether err means the model never produced a
// usable analysis, as opposed to a configuration or transport problem.
func IsAnalysisFailure(err error) bool {
	return errors.Is(err, analysis.ErrAnalysisFailed)
}

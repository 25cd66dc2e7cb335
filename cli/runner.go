// Command execution for CLI commands.
//
// Information Hiding:
// - Settings, logging and storage setup hidden
// - Source resolution and run reuse hidden
// - Output file layout hidden

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/richinex/repolens/analysis"
	"github.com/richinex/repolens/config"
	"github.com/richinex/repolens/diagram"
	"github.com/richinex/repolens/internal/logging"
	"github.com/richinex/repolens/llm"
	"github.com/richinex/repolens/model"
	"github.com/richinex/repolens/pipeline"
	"github.com/richinex/repolens/source"
	"github.com/richinex/repolens/storage"
	"github.com/richinex/repolens/workflow"
)

// ErrNoSource is returned when no source is given and none was recorded.
var ErrNoSource = errors.New("no source given and no previous source recorded")

// Output file names written by Analyze and Show.
const (
	ReportFile        = "report.md"
	SystemDiagramFile = "system.svg"
	UserDiagramFile   = "user.svg"
	SystemMermaidFile = "system.mmd"
	UserMermaidFile   = "user.mmd"
)

// Options holds CLI execution options.
type Options struct {
	Provider   string
	ConfigPath string
	Verbose    bool
}

// AnalyzeOptions controls where and how an analysis is written.
type AnalyzeOptions struct {
	OutDir  string
	Fresh   bool
	Mermaid bool
}

// DefaultAnalyzeOptions returns default analyze options.
func DefaultAnalyzeOptions() AnalyzeOptions {
	return AnalyzeOptions{OutDir: "repolens-out"}
}

// Replaced in tests.
var (
	stdout      io.Writer = os.Stdout
	newProvider           = createProvider
)

type session struct {
	settings config.Settings
	store    storage.Store
	log      *logrus.Logger
	closeLog func() error
}

func openSession(opts Options) (*session, error) {
	settings, err := config.Load(opts.Provider, opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	closeLog := logging.Init(settings.Logging)
	log := logrus.StandardLogger()
	if opts.Verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	store, err := storage.Open(settings.Storage.DBPath)
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &session{settings: settings, store: store, log: log, closeLog: closeLog}, nil
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		s.log.WithError(err).Warn("Failed to close database")
	}
	_ = s.closeLog()
}

// resolveRef returns ref, or the last recorded source when ref is empty.
func (s *session) resolveRef(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref != "" {
		return ref, nil
	}
	last, err := s.store.LastSource(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read last source: %w", err)
	}
	if last == "" {
		return "", ErrNoSource
	}
	s.log.WithField("source", last).Debug("Reusing last source")
	return last, nil
}

func (s *session) fetch(ctx context.Context, ref string) (source.Source, source.Snapshot, error) {
	src, err := source.Open(ref, os.Getenv("GITHUB_TOKEN"), source.Options{
		Include: analysis.IsEligible,
		Limit:   s.settings.Analysis.MaxFiles,
	})
	if err != nil {
		return nil, source.Snapshot{}, err
	}

	snap, err := src.Fetch(ctx)
	if err != nil {
		return nil, source.Snapshot{}, fmt.Errorf("failed to fetch %s: %w", src.Ref(), err)
	}
	s.log.WithFields(logrus.Fields{
		"source": src.Ref(),
		"files":  len(snap.Files),
	}).Debug("Source fetched")
	return src, snap, nil
}

func (s *session) analyzer(provider llm.Provider) *analysis.Analyzer {
	return analysis.NewAnalyzer(provider, s.settings.Analysis, analysis.WithLogger(s.log))
}

// Analyze runs the pipeline on ref and writes the report and diagrams to
// aopts.OutDir. A stored run with the same fingerprint is reused unless
// aopts.Fresh is set.
func Analyze(ctx context.Context, ref string, aopts AnalyzeOptions, opts Options) error {
	s, err := openSession(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	ref, err = s.resolveRef(ctx, ref)
	if err != nil {
		return err
	}

	src, snap, err := s.fetch(ctx, ref)
	if err != nil {
		return err
	}
	if err := s.store.SetLastSource(ctx, src.Ref()); err != nil {
		s.log.WithError(err).Warn("Failed to record last source")
	}

	printRepoInfo(snap.Info)

	selected := analysis.SelectFiles(snap.Files, s.settings.Analysis)
	fingerprint := storage.Fingerprint(s.settings.LLM.Model, selected)

	if !aopts.Fresh {
		run, ok, err := s.store.FindRun(ctx, src.Ref(), fingerprint)
		if err != nil {
			s.log.WithError(err).Warn("Run lookup failed, analyzing again")
		} else if ok {
			fmt.Fprintf(stdout, "Reusing run %s from %s (use --fresh to analyze again)\n\n",
				run.ID, run.CreatedAt.Format("2006-01-02 15:04"))
			if aopts.Mermaid {
				fmt.Fprintln(stdout, "Mermaid export needs a fresh run; skipping.")
			}
			return writeRun(run, aopts.OutDir)
		}
	}

	provider, err := newProvider(s.settings)
	if err != nil {
		return err
	}

	engine := diagram.NewEngine(diagram.DefaultCacheSize)
	defer engine.Close()

	analyzer := s.analyzer(provider)
	extractor := workflow.NewExtractor(provider, s.settings.Analysis.RequestTimeout, s.log)
	p := pipeline.New(analyzer, extractor, diagram.NewRenderer(engine), s.log)

	fmt.Fprintf(stdout, "Analyzing %s with %s...\n\n", src.Ref(), provider.Model())

	report, err := p.Run(ctx, snap.Files)
	if opts.Verbose {
		defer printTokenStats(analyzer, extractor)
	}
	if err != nil {
		if pipeline.IsAnalysisFailure(err) {
			return fmt.Errorf("%w\nPlease try again; the model may produce a valid analysis on a later run", err)
		}
		return err
	}

	run := storage.Run{
		ID:          report.RunID,
		Source:      src.Ref(),
		Fingerprint: fingerprint,
		Attempts:    report.Analysis.Attempts,
		Report:      report.Analysis.Report,
		SystemSVG:   report.SystemDiagram,
		UserSVG:     report.UserDiagram,
	}
	if report.DiagramErr != nil {
		run.DiagramErr = report.DiagramErr.Error()
	}

	// A skipped analysis made no request; there is nothing worth reusing.
	if report.Analysis.Skipped == nil {
		if err := s.store.SaveRun(ctx, run); err != nil {
			s.log.WithError(err).Warn("Failed to save run")
		}
	}

	if err := writeRun(run, aopts.OutDir); err != nil {
		return err
	}
	if aopts.Mermaid && report.HasDiagrams() {
		return writeMermaid(report.Workflows, aopts.OutDir)
	}
	return nil
}

// Ask answers a single question about the Python files of ref.
func Ask(ctx context.Context, question, ref string, opts Options) error {
	s, err := openSession(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	ref, err = s.resolveRef(ctx, ref)
	if err != nil {
		return err
	}

	src, snap, err := s.fetch(ctx, ref)
	if err != nil {
		return err
	}
	if err := s.store.SetLastSource(ctx, src.Ref()); err != nil {
		s.log.WithError(err).Warn("Failed to record last source")
	}

	provider, err := newProvider(s.settings)
	if err != nil {
		return err
	}

	answer, err := s.analyzer(provider).Ask(ctx, question, snap.Files)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s\n", answer)
	return nil
}

// Last prints the last analyzed source.
func Last(ctx context.Context, opts Options) error {
	s, err := openSession(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	last, err := s.store.LastSource(ctx)
	if err != nil {
		return fmt.Errorf("failed to read last source: %w", err)
	}
	if last == "" {
		fmt.Fprintln(stdout, "No source recorded yet.")
		return nil
	}
	fmt.Fprintln(stdout, last)
	return nil
}

// History lists stored runs, newest first.
func History(ctx context.Context, limit int, opts Options) error {
	s, err := openSession(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	runs, err := s.store.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(stdout, "No runs stored yet.")
		return nil
	}

	for _, r := range runs {
		diagrams := "yes"
		if !r.HasDiagrams {
			diagrams = "no"
		}
		fmt.Fprintf(stdout, "%s  %s  diagrams:%-3s  %s\n",
			shortID(r.ID), r.CreatedAt.Format("2006-01-02 15:04"), diagrams, r.Source)
	}
	return nil
}

// Show prints a stored run's report. With outDir set, the report and
// diagrams are also written there.
func Show(ctx context.Context, idPrefix, outDir string, opts Options) error {
	s, err := openSession(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	run, err := s.store.GetRun(ctx, idPrefix)
	if err != nil {
		return fmt.Errorf("failed to load run %q: %w", idPrefix, err)
	}

	fmt.Fprintf(stdout, "Run %s: %s (%d attempts)\n\n", run.ID, run.Source, run.Attempts)
	if outDir == "" {
		fmt.Fprintf(stdout, "%s\n", run.Report)
		return nil
	}
	return writeRun(run, outDir)
}

func createProvider(settings config.Settings) (llm.Provider, error) {
	providerType, err := llm.ParseProviderType(settings.LLM.Provider)
	if err != nil {
		return nil, err
	}

	apiKey, err := config.APIKeyFor(settings.LLM.Provider)
	if err != nil {
		return nil, err
	}

	return providerType.
		Model(settings.LLM.Model).
		BaseURL(settings.LLM.BaseURL).
		MaxTokens(settings.LLM.MaxTokens).
		Temperature(float32(settings.LLM.Temperature)).
		TopP(float32(settings.LLM.TopP)).
		APIKey(apiKey)
}

// writeRun prints the report and writes it with any diagrams to dir.
func writeRun(run storage.Run, dir string) error {
	fmt.Fprintf(stdout, "%s\n\n", run.Report)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	files := []struct {
		name, content string
	}{
		{ReportFile, run.Report},
		{SystemDiagramFile, run.SystemSVG},
		{UserDiagramFile, run.UserSVG},
	}
	for _, f := range files {
		if f.content == "" {
			continue
		}
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, []byte(f.content), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		fmt.Fprintf(stdout, "Wrote %s\n", path)
	}

	if run.DiagramErr != "" {
		fmt.Fprintf(stdout, "\nDiagrams unavailable: %s\n", run.DiagramErr)
	}
	return nil
}

func writeMermaid(wf model.Workflows, dir string) error {
	files := []struct {
		name  string
		steps []model.WorkflowStep
	}{
		{SystemMermaidFile, wf.System},
		{UserMermaidFile, wf.User},
	}
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		text := diagram.Mermaid(diagram.BuildSpec(f.steps))
		if err := os.WriteFile(path, []byte(text), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		fmt.Fprintf(stdout, "Wrote %s\n", path)
	}
	return nil
}

func printRepoInfo(info model.RepoInfo) {
	if info.Name == "" {
		return
	}
	line := info.Name
	if info.Language != "" {
		line += fmt.Sprintf(" (%s, %d stars, %d forks)", info.Language, info.Stars, info.Forks)
	}
	fmt.Fprintln(stdout, line)
	if info.Description != "" {
		fmt.Fprintln(stdout, info.Description)
	}
	fmt.Fprintln(stdout)
}

type statser interface {
	Stats() (int, llm.TokenUsage)
}

// printTokenStats prints request counts and token usage per stage.
func printTokenStats(analyzer, extractor statser) {
	fmt.Fprintf(stdout, "\nToken Usage:\n")
	for _, stage := range []struct {
		name string
		s    statser
	}{{"Analysis", analyzer}, {"Step extraction", extractor}} {
		calls, usage := stage.s.Stats()
		fmt.Fprintf(stdout, "  %s: %d calls, %d prompt + %d completion = %d tokens\n",
			stage.name, calls, usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens)
	}
}

const shortIDLen = 8

func shortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}

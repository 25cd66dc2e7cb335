package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinex/repolens/config"
	"github.com/richinex/repolens/llm"
	"github.com/richinex/repolens/model"
)

func testConfig() config.AnalysisConfig {
	cfg := config.DefaultAnalysisConfig()
	cfg.BaseDelay = 2 * time.Second
	cfg.RequestTimeout = 0
	return cfg
}

func quietLogger() logrus.FieldLogger {
	l, _ := test.NewNullLogger()
	return l
}

func newTestAnalyzer(p llm.Provider, s *recordingSleeper) *Analyzer {
	return NewAnalyzer(p, testConfig(),
		WithLogger(quietLogger()),
		WithInvokerOptions(WithSleeper(s.Sleep)),
	)
}

func pyFile(name, content string) model.SourceFile {
	return model.SourceFile{Name: name, Path: name, Content: content, Size: int64(len(content))}
}

func TestSelectFilesLimitsAndOrder(t *testing.T) {
	cfg := testConfig()
	cfg.MaxFiles = 2
	cfg.MaxFileContentChars = 10

	files := []model.SourceFile{
		pyFile("README.md", "readme"),
		pyFile("a.py", strings.Repeat("x", 50)),
		pyFile("b.IPYNB", "{}"),
		pyFile("c.py", "print(1)"),
	}

	got := SelectFiles(files, cfg)
	require.Len(t, got, 2)
	assert.Equal(t, "a.py", got[0].Name)
	assert.Equal(t, "b.IPYNB", got[1].Name)
	assert.Equal(t, strings.Repeat("x", 10)+TruncationMarker, got[0].Content)
	assert.Equal(t, "{}", got[1].Content)
	assert.Equal(t, strings.Repeat("x", 50), files[1].Content, "input must not be modified")
}

func TestSelectFilesBoundsHold(t *testing.T) {
	cfg := testConfig()
	for n := 0; n < 12; n++ {
		var files []model.SourceFile
		for i := 0; i < n; i++ {
			body := strings.Repeat(`password = "hunter2" é `, i*40)
			files = append(files, pyFile(fmt.Sprintf("f%d.py", i), body))
		}
		got := SelectFiles(files, cfg)
		assert.LessOrEqual(t, len(got), cfg.MaxFiles)
		for _, f := range got {
			assert.LessOrEqual(t, utf8.RuneCountInString(f.Content),
				cfg.MaxFileContentChars+utf8.RuneCountInString(TruncationMarker))
		}
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"api key", `API_KEY = "sk-123"`, `API_KEY = "***"`},
		{"single quotes", `db_password='pa55'`, `db_password="***"`},
		{"dict literal", `cfg = {"client_secret": "abc"}`, `cfg = {"client_secret": "***"}`},
		{"env dump", "import os\nprint(os.environ)", "import os\nprint({})"},
		{"env copy", "env = os.environ.copy()", "env = {}"},
		{"env lookup kept", `home = os.environ["HOME"]`, `home = os.environ["HOME"]`},
		{"env get kept", `os.environ.get("PATH")`, `os.environ.get("PATH")`},
		{"unrelated", "x = 1", "x = 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	inputs := []string{
		"import os\nx = os.environ\ny = os.environ['A']\nprint(dict(os.environ))",
		`token_secret = "a" ; password: 'b' ; api_key=""`,
		"for k, v in os.environ.items():\n    print(k, v)",
		"",
	}
	for _, in := range inputs {
		once := Sanitize(in)
		assert.Equal(t, once, Sanitize(once), in)
	}
}

func TestBuildPrompt(t *testing.T) {
	files := []model.SourceFile{pyFile("app.py", "print('hi')"), pyFile("util.py", "def f(): pass")}
	p := BuildPrompt(files)

	assert.Contains(t, p, "### app.py\n```python\nprint('hi')\n```")
	assert.Contains(t, p, "### util.py")
	assert.Less(t, strings.Index(p, "app.py"), strings.Index(p, "util.py"))

	last := -1
	for _, name := range model.SectionNames {
		i := strings.Index(p, "## "+name+"\n")
		require.Greater(t, i, last, name)
		last = i
	}
	assert.Contains(t, p, "At least 5 bullet points")
	assert.Contains(t, p, "at least 15 words")
	assert.Equal(t, p, BuildPrompt(files))
}

func TestFormatCompleteResponse(t *testing.T) {
	result := Format(completeResponse)
	require.False(t, result.IsEmpty())

	require.Len(t, result.Sections, len(model.SectionNames))
	for i, s := range result.Sections {
		assert.Equal(t, model.SectionNames[i], s.Name)
	}

	features, _ := result.Section(model.SectionFeatures)
	assert.True(t, strings.HasPrefix(features, "- Fetches hourly forecasts"), features)
	assert.NotContains(t, features, "1.")

	libs, _ := result.Section(model.SectionLibraries)
	assert.Equal(t, MissingSectionText, libs)

	assert.NotContains(t, result.FullText, "assistant:")
	assert.NotContains(t, result.FullText, "\n\n\n")
	assert.True(t, strings.HasPrefix(result.FullText, "## Project Overview\n\n- A command line tool"))
}

func TestFormatMissingCriticalSection(t *testing.T) {
	for _, name := range model.CriticalSections {
		t.Run(name, func(t *testing.T) {
			raw := strings.Replace(completeResponse, "## "+name, "## Something Else", 1)
			assert.True(t, Format(raw).IsEmpty())
		})
	}
}

func TestFormatEmptyCriticalSection(t *testing.T) {
	raw := `## Project Workflow
- The program starts in main.py and reads its configuration from the command line.

## Project Strengths

## Areas for Improvement
- Error handling is minimal and failures are reported with bare stack traces to the user.
`
	result, missing := format(raw)
	assert.True(t, result.IsEmpty())
	assert.Equal(t, []string{model.SectionStrengths}, missing)
}

func TestFormatReportsOnlyCriticalSectionsInOrder(t *testing.T) {
	raw := `## Project Overview
The project parses log files and prints a summary table of error counts per service.
`
	result, missing := format(raw)
	assert.True(t, result.IsEmpty())
	assert.Equal(t, model.CriticalSections, missing)
	for _, name := range missing {
		assert.True(t, model.IsCritical(name))
	}
	assert.False(t, model.IsCritical(model.SectionOverview))
}

func TestFormatHeadingMatchIsStrict(t *testing.T) {
	raw := strings.Replace(completeResponse, "## Project Strengths", "## project strengths", 1)
	assert.True(t, Format(raw).IsEmpty())

	raw = strings.Replace(completeResponse, "## Project Strengths", "## Project Strengths   ", 1)
	assert.False(t, Format(raw).IsEmpty())
}

func TestNormalizeLines(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"ordinals", "1. one\n2) two", "- one\n- two"},
		{"star bullets", "* a\n• b\n- c", "- a\n- b\n- c"},
		{"nested", "- a\n  1. sub", "- a\n  - sub"},
		{"tight list", "- a\n\n- b", "- a\n- b"},
		{"list then prose", "- a\n\nSummary line.", "- a\n\nSummary line."},
		{"heading passes", "### Sub\n1. x", "### Sub\n- x"},
		{"prose untouched", "Version 2.0 is used.", "Version 2.0 is used."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeLines(tt.in))
		})
	}
}

func TestBackoffDelay(t *testing.T) {
	base := 2 * time.Second
	assert.Equal(t, base, BackoffDelay(base, 1))
	assert.Equal(t, 2*base, BackoffDelay(base, 2))
	assert.Equal(t, 4*base, BackoffDelay(base, 3))
}

func TestAnalyzeNoEligibleFiles(t *testing.T) {
	p := &scriptedProvider{replies: []reply{{content: completeResponse}}}
	a := newTestAnalyzer(p, &recordingSleeper{})

	for _, files := range [][]model.SourceFile{nil, {pyFile("main.go", "package main")}} {
		got, err := a.Analyze(context.Background(), files)
		require.NoError(t, err)
		assert.Equal(t, NoEligibleFilesText, got.Report)
		assert.ErrorIs(t, got.Skipped, ErrNoEligibleFiles)
	}
	assert.Zero(t, p.callCount())
}

func TestAnalyzeRecoversFromThrottling(t *testing.T) {
	p := &scriptedProvider{replies: []reply{
		{err: throttled()},
		{err: throttled()},
		{content: completeResponse},
	}}
	s := &recordingSleeper{}
	a := newTestAnalyzer(p, s)

	got, err := a.Analyze(context.Background(), []model.SourceFile{pyFile("main.py", "print(1)")})
	require.NoError(t, err)

	assert.Equal(t, Format(completeResponse), got.Result)
	assert.Equal(t, 3, got.Attempts)
	assert.Equal(t, 3, p.callCount())
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, s.delays)

	assert.True(t, strings.HasPrefix(got.Report, "# Python Project Analysis\n\n## Project Overview"))
	assert.Contains(t, got.Report, "*Analysis performed using fake-model. Covers up to 5 Python files, with a maximum of 2000 characters per file.*")
}

func TestAnalyzeIncompleteEveryTime(t *testing.T) {
	incomplete := strings.Replace(completeResponse,
		"- Small, focused modules make the code easy to read and straightforward to test in isolation.\n", "", 1)
	p := &scriptedProvider{replies: []reply{{content: incomplete}}}
	s := &recordingSleeper{}
	a := newTestAnalyzer(p, s)

	_, err := a.Analyze(context.Background(), []model.SourceFile{pyFile("main.py", "print(1)")})
	require.ErrorIs(t, err, ErrAnalysisFailed)
	assert.Contains(t, err.Error(), "model response was invalid")
	assert.Contains(t, err.Error(), model.SectionStrengths)
	assert.Equal(t, testConfig().MaxRetries, p.callCount())
	assert.Empty(t, s.delays)
}

func TestAnalyzeRetriesShortAndEmptyResponses(t *testing.T) {
	p := &scriptedProvider{replies: []reply{
		{content: "too short"},
		{err: fmt.Errorf("fake: %w", llm.ErrInvalidResponse)},
		{content: completeResponse},
	}}
	a := newTestAnalyzer(p, &recordingSleeper{})

	got, err := a.Analyze(context.Background(), []model.SourceFile{pyFile("main.py", "print(1)")})
	require.NoError(t, err)
	assert.Equal(t, 3, got.Attempts)
}

func TestAnalyzeAuthenticationIsFatal(t *testing.T) {
	p := &scriptedProvider{replies: []reply{{err: unauthorized()}}}
	a := newTestAnalyzer(p, &recordingSleeper{})

	_, err := a.Analyze(context.Background(), []model.SourceFile{pyFile("main.py", "print(1)")})
	require.ErrorIs(t, err, llm.ErrAuthentication)
	assert.Contains(t, err.Error(), "invalid fake API key")
	assert.Equal(t, 1, p.callCount())
}

func TestAnalyzeTransportErrorIsFatal(t *testing.T) {
	p := &scriptedProvider{replies: []reply{{err: errors.New("connection refused")}}}
	a := newTestAnalyzer(p, &recordingSleeper{})

	_, err := a.Analyze(context.Background(), []model.SourceFile{pyFile("main.py", "print(1)")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API request failed")
	assert.NotErrorIs(t, err, ErrAnalysisFailed)
	assert.Equal(t, 1, p.callCount())
}

func TestInvokeRequestTimeoutIsFatal(t *testing.T) {
	p := &stallingProvider{}
	cfg := testConfig()
	cfg.RequestTimeout = 20 * time.Millisecond
	s := &recordingSleeper{}
	inv := NewInvoker(p, cfg, WithSleeper(s.Sleep), WithInvokerLogger(quietLogger()))

	text, err := inv.Invoke(context.Background(), "prompt", 1)
	require.Error(t, err)
	assert.Empty(t, text)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "API request failed")
	assert.True(t, p.deadline)
	assert.Empty(t, s.delays)
}

func TestAnalyzeDoesNotRetryTimedOutRequest(t *testing.T) {
	p := &stallingProvider{}
	cfg := testConfig()
	cfg.RequestTimeout = 20 * time.Millisecond
	a := NewAnalyzer(p, cfg,
		WithLogger(quietLogger()),
		WithInvokerOptions(WithSleeper((&recordingSleeper{}).Sleep)),
	)

	got, err := a.Analyze(context.Background(), []model.SourceFile{pyFile("main.py", "print(1)")})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "API request failed")
	assert.NotErrorIs(t, err, ErrAnalysisFailed)
	assert.Equal(t, 1, got.Attempts)
	assert.Equal(t, 1, p.callCount())
}

func TestAnalyzeStopsWhenSleepCancelled(t *testing.T) {
	p := &scriptedProvider{replies: []reply{{err: throttled()}}}
	ctx, cancel := context.WithCancel(context.Background())
	a := NewAnalyzer(p, testConfig(),
		WithLogger(quietLogger()),
		WithInvokerOptions(WithSleeper(func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		})),
	)

	_, err := a.Analyze(ctx, []model.SourceFile{pyFile("main.py", "print(1)")})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, p.callCount())
}

func TestAsk(t *testing.T) {
	p := &scriptedProvider{replies: []reply{{content: "It uses Flask."}}}
	a := newTestAnalyzer(p, &recordingSleeper{})

	answer, err := a.Ask(context.Background(), "  Which web framework?  ",
		[]model.SourceFile{pyFile("app.py", `SECRET_KEY = "s3cret"`)})
	require.NoError(t, err)
	assert.Equal(t, "It uses Flask.", answer)

	require.Equal(t, 1, p.callCount())
	msgs := p.calls[0]
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Contains(t, msgs[1].Content, "Question: Which web framework?")
	assert.Contains(t, msgs[1].Content, `SECRET_KEY = "***"`)
	assert.NotContains(t, msgs[1].Content, "s3cret")
}

func TestAskRejectsBlankQuestion(t *testing.T) {
	a := newTestAnalyzer(&scriptedProvider{replies: []reply{{content: "x"}}}, &recordingSleeper{})
	_, err := a.Ask(context.Background(), "  ", []model.SourceFile{pyFile("a.py", "x")})
	assert.ErrorIs(t, err, ErrEmptyQuestion)

	_, err = a.Ask(context.Background(), "why?", nil)
	assert.ErrorIs(t, err, ErrNoEligibleFiles)
}

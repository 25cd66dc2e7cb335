package diagram

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinex/repolens/model"
)

func steps(n int, system bool) []model.WorkflowStep {
	out := make([]model.WorkflowStep, n)
	for i := range out {
		out[i] = model.WorkflowStep{
			ID:          i + 1,
			Title:       fmt.Sprintf("Step %d", i+1),
			Description: "Reads the configuration file and validates every field before the run starts",
			IsSystem:    system,
		}
	}
	return out
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  []string
	}{
		{"empty", "   ", 30, nil},
		{"fits", "Load input", 30, []string{"Load input"}},
		{"greedy", "aaa bbb ccc ddd", 7, []string{"aaa bbb", "ccc ddd"}},
		{"exact width", "aaaa bb", 7, []string{"aaaa bb"}},
		{"long word", "a supercalifragilistic b", 10, []string{"a", "supercalifragilistic", "b"}},
		{"collapses spaces", "a   b\n c", 30, []string{"a b c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Wrap(tt.text, tt.width))
		})
	}
}

func TestWrapRespectsWidth(t *testing.T) {
	text := strings.Repeat("lorem ipsum dolor sit amet consectetur ", 10)
	for _, line := range Wrap(text, WrapWidth) {
		assert.LessOrEqual(t, utf8.RuneCountInString(line), WrapWidth, line)
	}
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Load Input\n\nReads files", Label("Load Input", "Reads files"))
	assert.Equal(t, "Load Input", Label("Load Input", ""))
}

func TestBuildSpecIsLinearChain(t *testing.T) {
	for n := 0; n <= 8; n++ {
		spec := BuildSpec(steps(n, true))
		require.Len(t, spec.Nodes, n)

		want := n - 1
		if n == 0 {
			want = 0
		}
		require.Len(t, spec.Edges, want)

		out := map[string]int{}
		in := map[string]int{}
		for i, e := range spec.Edges {
			assert.Equal(t, spec.Nodes[i].ID, e.From)
			assert.Equal(t, spec.Nodes[i+1].ID, e.To)
			out[e.From]++
			in[e.To]++
		}
		for _, node := range spec.Nodes {
			assert.LessOrEqual(t, out[node.ID], 1)
			assert.LessOrEqual(t, in[node.ID], 1)
		}
	}
}

func TestBuildSpecDuplicateStepIDs(t *testing.T) {
	s := steps(3, false)
	for i := range s {
		s[i].ID = 1
	}
	spec := BuildSpec(s)
	assert.Equal(t, []Edge{{"s1", "s2"}, {"s2", "s3"}}, spec.Edges)
}

func TestDOT(t *testing.T) {
	out := DOT(BuildSpec(steps(4, true)))
	assert.True(t, strings.HasPrefix(out, "digraph"))
	assert.Contains(t, out, `rankdir="TB"`)
	assert.Contains(t, out, `shape="box"`)
	assert.Contains(t, out, systemFill)
	assert.Equal(t, 3, strings.Count(out, "->"))
	assert.Contains(t, out, `label="Step 1\n\nReads the configuration file\nand validates every field\nbefore the run starts"`)
	assert.Equal(t, out, DOT(BuildSpec(steps(4, true))))
}

func TestMermaid(t *testing.T) {
	out := Mermaid(BuildSpec(steps(3, false)))
	assert.True(t, strings.HasPrefix(out, "flowchart TD;\n"))
	assert.Equal(t, 2, strings.Count(out, "-->"))
	assert.Contains(t, out, `"Step 1 Reads the configuration file and validates every field before the run starts"`)
}

func TestRenderSVG(t *testing.T) {
	e := NewEngine(4)
	t.Cleanup(func() { require.NoError(t, e.Close()) })
	r := NewRenderer(e)

	svg, err := r.Render(context.Background(), steps(4, true))
	require.NoError(t, err)
	assert.Contains(t, svg, "<svg")
	assert.Contains(t, svg, "Step 4")

	again, err := r.Render(context.Background(), steps(4, true))
	require.NoError(t, err)
	assert.Equal(t, svg, again)
}

func TestRenderConcurrentFirstUse(t *testing.T) {
	e := NewEngine(0)
	t.Cleanup(func() { require.NoError(t, e.Close()) })
	r := NewRenderer(e)

	var wg sync.WaitGroup
	results := make([]string, 6)
	errs := make([]error, 6)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = r.Render(context.Background(), steps(i+2, i%2 == 0))
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Contains(t, results[i], "<svg")
	}
}

func TestRenderNoSteps(t *testing.T) {
	e := NewEngine(1)
	t.Cleanup(func() { require.NoError(t, e.Close()) })
	_, err := NewRenderer(e).Render(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoSteps)
}

func TestEngineClosed(t *testing.T) {
	e := NewEngine(1)
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	_, err := e.RenderSVG(context.Background(), "digraph { a -> b }")
	assert.ErrorIs(t, err, ErrEngineClosed)
}

func TestEngineInvalidGraph(t *testing.T) {
	e := NewEngine(1)
	t.Cleanup(func() { require.NoError(t, e.Close()) })

	_, err := e.RenderSVG(context.Background(), "digraph { a -> ")
	assert.ErrorIs(t, err, ErrInvalidGraph)
}

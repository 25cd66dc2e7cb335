// Package diagram turns workflow steps into a linear top-to-bottom graph and
// renders it to SVG with graphviz.
package diagram

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/richinex/repolens/model"
)

// WrapWidth is the column limit for node label lines.
const WrapWidth = 30

// Node is one box of a diagram.
type Node struct {
	ID     string
	Title  string
	Label  string
	System bool
}

// Edge connects two nodes by ID.
type Edge struct {
	From string
	To   string
}

// Spec is a diagram graph. Edges always form a single chain through Nodes
// in order.
type Spec struct {
	Nodes []Node
	Edges []Edge
}

// BuildSpec creates one node per step, in order, and links consecutive nodes.
func BuildSpec(steps []model.WorkflowStep) Spec {
	spec := Spec{Nodes: make([]Node, 0, len(steps))}
	for i, s := range steps {
		spec.Nodes = append(spec.Nodes, Node{
			ID:     "s" + strconv.Itoa(i+1),
			Title:  s.Title,
			Label:  Label(s.Title, s.Description),
			System: s.IsSystem,
		})
		if i > 0 {
			spec.Edges = append(spec.Edges, Edge{From: spec.Nodes[i-1].ID, To: spec.Nodes[i].ID})
		}
	}
	return spec
}

// Label joins the wrapped title and description with a blank line.
func Label(title, description string) string {
	lines := Wrap(title, WrapWidth)
	if desc := Wrap(description, WrapWidth); len(desc) > 0 {
		lines = append(lines, "")
		lines = append(lines, desc...)
	}
	return strings.Join(lines, "\n")
}

// Wrap breaks text into lines of at most width characters, filling each line
// greedily. A word longer than width gets a line of its own.
func Wrap(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	line := words[0]
	n := utf8.RuneCountInString(line)
	for _, w := range words[1:] {
		wn := utf8.RuneCountInString(w)
		if n+1+wn > width {
			lines = append(lines, line)
			line, n = w, wn
			continue
		}
		line += " " + w
		n += 1 + wn
	}
	return append(lines, line)
}

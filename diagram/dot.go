package diagram

import (
	"strings"

	"github.com/emicklei/dot"
)

const (
	systemFill = "#E3F2FD"
	userFill   = "#E8F5E9"
)

func graphOf(spec Spec, decorate func(dot.Node, Node) dot.Node) *dot.Graph {
	g := dot.NewGraph(dot.Directed)
	nodes := make(map[string]dot.Node, len(spec.Nodes))
	for _, n := range spec.Nodes {
		nodes[n.ID] = decorate(g.Node(n.ID), n)
	}
	for _, e := range spec.Edges {
		g.Edge(nodes[e.From], nodes[e.To])
	}
	return g
}

// DOT returns spec in graphviz DOT syntax, laid out top to bottom with
// rounded boxes.
func DOT(spec Spec) string {
	g := graphOf(spec, func(dn dot.Node, n Node) dot.Node {
		fill := userFill
		if n.System {
			fill = systemFill
		}
		return dn.Label(n.Label).Box().Attr("style", "rounded,filled").Attr("fillcolor", fill)
	})
	g.Attr("rankdir", "TB")
	g.Attr("nodesep", "0.4")
	g.Attr("fontname", "Helvetica")
	return g.String()
}

// Mermaid returns spec as a top-down mermaid flowchart with one-line labels.
func Mermaid(spec Spec) string {
	g := graphOf(spec, func(dn dot.Node, n Node) dot.Node {
		return dn.Label(strings.Join(strings.Fields(n.Label), " "))
	})
	return dot.MermaidFlowchart(g, dot.MermaidTopToBottom)
}

package version

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
)

// DOTOptions configures version tree export.
type DOTOptions struct {
	// Detailed adds the version number and the count of elements first
	// created in each version to the node labels.
	Detailed bool
}

// ToDOT converts the manager's version tree to Graphviz DOT format. Edges
// point from a version to the versions branched from it.
func ToDOT(m *Manager, opts DOTOptions) string {
	var buf bytes.Buffer
	buf.WriteString("digraph versions {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14];\n")
	buf.WriteString("\n")

	for _, v := range m.versions {
		attrs := fmt.Sprintf("label=%q", versionLabel(v, opts.Detailed))
		if v.IsRoot() {
			attrs += ", penwidth=2"
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", nodeID(v), attrs)
	}

	buf.WriteString("\n")
	for _, v := range m.versions {
		for _, b := range v.Branched {
			fmt.Fprintf(&buf, "  %q -> %q;\n", nodeID(v), nodeID(b))
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeID(v *Version) string { return fmt.Sprintf("v%d", v.Number) }

func versionLabel(v *Version, detailed bool) string {
	if !detailed {
		return v.Label
	}
	return fmt.Sprintf("%s\n#%d\ncreated: %d", v.Label, v.Number, len(v.CreatedIn))
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/phaseflow/pkg/graph"
)

// pointsPerInch converts layout units to the inches neato expects in pos.
const pointsPerInch = 72.0

// Options configures diagram generation.
type Options struct {
	// Scale multiplies layout coordinates. Zero means 0.5.
	Scale float64
	// ExpandAll shows code on every node that has it, ignoring Expanded.
	ExpandAll bool
	// MaxCodeLines truncates long code lists. Zero means 12.
	MaxCodeLines int
}

func (o Options) scale() float64 {
	if o.Scale <= 0 {
		return 0.5
	}
	return o.Scale
}

func (o Options) maxLines() int {
	if o.MaxCodeLines <= 0 {
		return 12
	}
	return o.MaxCodeLines
}

var kindStyles = map[graph.Kind]string{
	graph.KindPhase:       `fillcolor="#dbeafe", color="#1d4ed8"`,
	graph.KindDescription: `fillcolor="#f3f4f6", color="#6b7280"`,
	graph.KindCode:        `fillcolor="#fef3c7", color="#b45309", fontname="Courier"`,
	graph.KindSubPhase:    `fillcolor="#dcfce7", color="#15803d"`,
}

// ToDOT converts g to Graphviz DOT with pinned node positions.
func ToDOT(g graph.Graph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  splines=ortho;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [color=\"#64748b\", arrowsize=0.7];\n")
	buf.WriteString("\n")

	scale := opts.scale()
	for _, n := range g.Nodes {
		attrs := []string{
			"label=" + quote(fmtLabel(n, opts)),
			fmt.Sprintf("pos=\"%s,%s!\"", ftoa(n.Position.X*scale/pointsPerInch), ftoa(-n.Position.Y*scale/pointsPerInch)),
		}
		if style, ok := kindStyles[n.Kind]; ok {
			attrs = append(attrs, style)
		}
		if n.Expanded {
			attrs = append(attrs, "penwidth=2")
		}
		fmt.Fprintf(&buf, "  %s [%s];\n", quote(n.ID), strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges {
		attrs := []string{"id=" + quote(e.ID)}
		if e.Animated {
			attrs = append(attrs, "style=dashed")
		}
		fmt.Fprintf(&buf, "  %s -> %s [%s];\n", quote(e.Source), quote(e.Target), strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n graph.Node, opts Options) string {
	var b strings.Builder
	b.WriteString(n.Label)
	if n.Kind == graph.KindDescription && n.Description != "" {
		b.WriteString("\n")
		b.WriteString(n.Description)
	}
	if !n.HasCode() || !(n.Expanded || opts.ExpandAll) {
		return b.String()
	}

	b.WriteString("\n")
	limit := opts.maxLines()
	for i, line := range n.Code {
		if i == limit {
			fmt.Fprintf(&b, "\n... %d more", len(n.Code)-limit)
			break
		}
		b.WriteString("\n")
		b.WriteString(line)
	}
	return b.String()
}

// quote produces a DOT double-quoted string. Newlines become left-justified
// line breaks.
func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\l`)
		case '\r', '\t':
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	if strings.Contains(s, "\n") {
		b.WriteString(`\l`)
	}
	b.WriteByte('"')
	return b.String()
}

func ftoa(f float64) string {
	if f == 0 {
		return "0" // avoid "-0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// =============================================================================
// Rendering
// =============================================================================

// RenderSVG renders DOT to SVG with the neato engine.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	out, err := render(ctx, dot, graphviz.SVG)
	if err != nil {
		return nil, err
	}
	return normalizeViewBox(out), nil
}

// RenderPNG renders DOT to PNG with the neato engine.
func RenderPNG(ctx context.Context, dot string) ([]byte, error) {
	return render(ctx, dot, graphviz.PNG)
}

func render(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element so the SVG scales to its
// container.
func normalizeViewBox(svg []byte) []byte {
	m := viewBoxRe.FindSubmatch(svg)
	if m == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(m[3]), 64)
	h, _ := strconv.ParseFloat(string(m[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}

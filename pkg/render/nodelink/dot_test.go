package nodelink

import (
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/phaseflow/pkg/graph"
)

func sampleGraph() graph.Graph {
	return graph.Graph{
		Nodes: []graph.Node{
			{ID: "phase-0", Kind: graph.KindPhase, Label: "Load", Code: []string{"open()", "read()"}},
			{ID: "description-0", Kind: graph.KindDescription, Position: graph.Position{X: 600}, Label: "Description", Description: `Reads the "input"`},
			{ID: "code-0", Kind: graph.KindCode, Position: graph.Position{X: 1200}, Label: "Code Snippets", Code: []string{"open()", "read()"}, Expanded: true},
			{ID: "phase-0-sub-0", Kind: graph.KindSubPhase, Position: graph.Position{X: 300, Y: 150}, Label: "Open"},
		},
		Edges: []graph.Edge{
			{ID: "edge-phase-0-description", Source: "phase-0", Target: "description-0", Animated: true},
			{ID: "edge-0-0", Source: "phase-0", Target: "phase-0-sub-0"},
		},
	}
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(sampleGraph(), Options{})

	wants := []string{
		"digraph G {",
		"layout=neato;",
		`"phase-0" [label="Load", pos="0,0!"`,
		`"code-0" [label="Code Snippets\l\lopen()\lread()\l", pos="8.333333333333334,0!"`,
		`pos="2.0833333333333335,-1.0416666666666667!"`,
		`"phase-0" -> "description-0" [id="edge-phase-0-description", style=dashed];`,
		`"phase-0" -> "phase-0-sub-0" [id="edge-0-0"];`,
		`Reads the \"input\"`,
		"penwidth=2",
	}
	for _, w := range wants {
		if !strings.Contains(dot, w) {
			t.Errorf("ToDOT() missing %q\n%s", w, dot)
		}
	}
	if strings.Count(dot, "penwidth=2") != 1 {
		t.Error("only the expanded node should be highlighted")
	}
}

func TestFmtLabel(t *testing.T) {
	code := graph.Node{ID: "code-0", Kind: graph.KindCode, Label: "Code Snippets", Code: []string{"a", "b", "c"}}
	tests := []struct {
		name string
		node graph.Node
		opts Options
		want string
	}{
		{"Collapsed", code, Options{}, "Code Snippets"},
		{"ExpandAll", code, Options{ExpandAll: true}, "Code Snippets\n\na\nb\nc"},
		{"Truncated", code, Options{ExpandAll: true, MaxCodeLines: 2}, "Code Snippets\n\na\nb\n... 1 more"},
		{"Description", graph.Node{Kind: graph.KindDescription, Label: "Description", Description: "text"}, Options{ExpandAll: true}, "Description\ntext"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fmtLabel(tt.node, tt.opts); got != tt.want {
				t.Errorf("fmtLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestQuote(t *testing.T) {
	tests := []struct{ in, want string }{
		{"plain", `"plain"`},
		{`say "hi"`, `"say \"hi\""`},
		{`a\b`, `"a\\b"`},
		{"x\ty", `"x y"`},
		{"one\ntwo", `"one\ltwo\l"`},
	}
	for _, tt := range tests {
		if got := quote(tt.in); got != tt.want {
			t.Errorf("quote(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeViewBox(t *testing.T) {
	tests := []struct {
		name string
		svg  string
		want string
	}{
		{
			name: "with viewBox",
			svg:  `<svg viewBox="10 20 800 600" xmlns="http://www.w3.org/2000/svg">content</svg>`,
			want: `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 800.00 600.00" width="800" height="600">content</svg>`,
		},
		{
			name: "no viewBox",
			svg:  `<svg xmlns="http://www.w3.org/2000/svg">content</svg>`,
			want: `<svg xmlns="http://www.w3.org/2000/svg">content</svg>`,
		},
		{
			name: "zero dimensions",
			svg:  `<svg viewBox="0 0 0 0">content</svg>`,
			want: `<svg viewBox="0 0 0 0">content</svg>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeViewBox([]byte(tt.svg)); string(got) != tt.want {
				t.Errorf("normalizeViewBox() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderSVG(t *testing.T) {
	svg, err := RenderSVG(context.Background(), ToDOT(sampleGraph(), Options{}))
	if err != nil {
		t.Fatalf("RenderSVG() error: %v", err)
	}
	if !strings.Contains(string(svg), "<svg") {
		t.Error("RenderSVG() output missing <svg> tag")
	}
}

func TestRenderSVG_InvalidDOT(t *testing.T) {
	if _, err := RenderSVG(context.Background(), `not valid DOT {{{`); err == nil {
		t.Error("RenderSVG() should return error for invalid DOT")
	}
}

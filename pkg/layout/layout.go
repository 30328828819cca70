package layout

import (
	"fmt"

	"github.com/matzehuels/phaseflow/pkg/flow"
	"github.com/matzehuels/phaseflow/pkg/graph"
)

// Grid spacing defaults.
const (
	DefaultVertical   = 300.0 // V: distance between phase rows
	DefaultHorizontal = 600.0 // H: distance between columns
	DefaultSubPhase   = 150.0 // S: distance between stacked sub-phases
)

// Fixed labels for the generated description and code boxes.
const (
	DescriptionLabel = "Description"
	CodeLabel        = "Code Snippets"
	CodeDescription  = "Implementation details"
)

// Options holds grid parameters. The zero value is not useful; start from
// [DefaultOptions] or pass [Option] values to [Build].
type Options struct {
	Vertical   float64
	Horizontal float64
	SubPhase   float64
	Origin     graph.Position
}

// DefaultOptions returns V=300, H=600, S=150 at origin (0, 0).
func DefaultOptions() Options {
	return Options{
		Vertical:   DefaultVertical,
		Horizontal: DefaultHorizontal,
		SubPhase:   DefaultSubPhase,
	}
}

// Option customizes [Options].
type Option func(*Options)

// WithSpacing overrides the grid spacing. Non-positive values keep the default.
func WithSpacing(vertical, horizontal, subPhase float64) Option {
	return func(o *Options) {
		if vertical > 0 {
			o.Vertical = vertical
		}
		if horizontal > 0 {
			o.Horizontal = horizontal
		}
		if subPhase > 0 {
			o.SubPhase = subPhase
		}
	}
}

// WithOrigin shifts every node by (x, y).
func WithOrigin(x, y float64) Option {
	return func(o *Options) {
		o.Origin = graph.Position{X: x, Y: y}
	}
}

// WithOptions replaces all parameters at once, e.g. from configuration.
// Non-positive spacings fall back to the defaults.
func WithOptions(opts Options) Option {
	return func(o *Options) {
		WithSpacing(opts.Vertical, opts.Horizontal, opts.SubPhase)(o)
		o.Origin = opts.Origin
	}
}

// =============================================================================
// Build
// =============================================================================

// Build lays out f. For P phases with s_i sub-phases it returns 3P + Σs_i
// nodes and, when P >= 1, 3P - 1 + Σs_i edges. Every node starts collapsed.
func Build(f flow.ProcessFlow, opts ...Option) graph.Graph {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	subs := f.SubPhaseCount()
	p := f.Len()
	g := graph.Graph{
		Nodes: make([]graph.Node, 0, 3*p+subs),
		Edges: make([]graph.Edge, 0, max(3*p-1+subs, 0)),
	}

	for i, ph := range f.Phases {
		y := float64(i) * o.Vertical
		phaseID := PhaseID(i)
		descID := DescriptionID(i)
		codeID := CodeID(i)

		g.Nodes = append(g.Nodes,
			graph.Node{
				ID:          phaseID,
				Kind:        graph.KindPhase,
				Position:    o.at(0, y),
				Label:       ph.Phase,
				Description: ph.Description,
				Code:        ph.Code,
			},
			graph.Node{
				ID:          descID,
				Kind:        graph.KindDescription,
				Position:    o.at(o.Horizontal, y),
				Label:       DescriptionLabel,
				Description: ph.Description,
			},
			graph.Node{
				ID:          codeID,
				Kind:        graph.KindCode,
				Position:    o.at(2*o.Horizontal, y),
				Label:       CodeLabel,
				Description: CodeDescription,
				Code:        ph.Code,
			},
		)

		g.Edges = append(g.Edges,
			edge(fmt.Sprintf("edge-phase-%d-description", i), phaseID, descID),
			edge(fmt.Sprintf("edge-description-%d-code", i), descID, codeID),
		)
		if i < p-1 {
			g.Edges = append(g.Edges, edge(fmt.Sprintf("edge-phase-%d-to-%d", i, i+1), phaseID, PhaseID(i+1)))
		}

		for j, sp := range ph.SubPhases {
			subID := SubPhaseID(i, j)
			g.Nodes = append(g.Nodes, graph.Node{
				ID:          subID,
				Kind:        graph.KindSubPhase,
				Position:    o.at(o.Horizontal/2, y+float64(j+1)*o.SubPhase),
				Label:       sp.SubPhase,
				Description: sp.Description,
				Code:        sp.Code,
			})
			g.Edges = append(g.Edges, edge(fmt.Sprintf("edge-%d-%d", i, j), phaseID, subID))
		}
	}
	return g
}

func (o Options) at(x, y float64) graph.Position {
	return graph.Position{X: o.Origin.X + x, Y: o.Origin.Y + y}
}

func edge(id, source, target string) graph.Edge {
	return graph.Edge{
		ID:       id,
		Source:   source,
		Target:   target,
		Type:     graph.EdgeTypeSmoothStep,
		Animated: true,
	}
}

// =============================================================================
// Node IDs
// =============================================================================

// PhaseID returns the id of phase i's box.
func PhaseID(i int) string { return fmt.Sprintf("phase-%d", i) }

// DescriptionID returns the id of phase i's description box.
func DescriptionID(i int) string { return fmt.Sprintf("description-%d", i) }

// CodeID returns the id of phase i's code box.
func CodeID(i int) string { return fmt.Sprintf("code-%d", i) }

// SubPhaseID returns the id of sub-phase j of phase i.
func SubPhaseID(i, j int) string { return fmt.Sprintf("phase-%d-sub-%d", i, j) }

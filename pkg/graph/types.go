package graph

import (
	"fmt"
	"slices"
)

// =============================================================================
// Constants
// =============================================================================

// Kind identifies what a node represents.
type Kind string

// Node kinds.
const (
	KindPhase       Kind = "phase"
	KindDescription Kind = "description"
	KindCode        Kind = "code"
	KindSubPhase    Kind = "subphase"
)

// Edge rendering hints carried on every edge.
const (
	EdgeTypeSmoothStep = "smoothstep"
)

// Valid reports whether k is one of the four known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindPhase, KindDescription, KindCode, KindSubPhase:
		return true
	}
	return false
}

// Toggleable reports whether nodes of this kind can be expanded at all.
// Description nodes never carry code.
func (k Kind) Toggleable() bool {
	return k == KindPhase || k == KindCode || k == KindSubPhase
}

// =============================================================================
// Graph
// =============================================================================

// Graph is an ordered, positioned node-link graph.
type Graph struct {
	Nodes []Node `json:"nodes" bson:"nodes"`
	Edges []Edge `json:"edges" bson:"edges"`
}

// Position is a 2D coordinate in layout space. Y grows downward.
type Position struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// Node is a positioned box in the diagram.
type Node struct {
	ID          string   `json:"id" bson:"id"`
	Kind        Kind     `json:"kind" bson:"kind"`
	Position    Position `json:"position" bson:"position"`
	Label       string   `json:"label" bson:"label"`
	Description string   `json:"description,omitempty" bson:"description,omitempty"`
	Code        []string `json:"code,omitempty" bson:"code,omitempty"`
	Expanded    bool     `json:"expanded" bson:"expanded"`
}

// HasCode reports whether the node carries at least one code line.
func (n Node) HasCode() bool { return len(n.Code) > 0 }

// CanToggle reports whether toggling this node changes anything.
func (n Node) CanToggle() bool { return n.Kind.Toggleable() && n.HasCode() }

// Equal reports value equality, including code lines.
func (n Node) Equal(o Node) bool {
	return n.ID == o.ID &&
		n.Kind == o.Kind &&
		n.Position == o.Position &&
		n.Label == o.Label &&
		n.Description == o.Description &&
		n.Expanded == o.Expanded &&
		slices.Equal(n.Code, o.Code)
}

// Edge is a directed connection between two nodes.
type Edge struct {
	ID       string `json:"id" bson:"id"`
	Source   string `json:"source" bson:"source"`
	Target   string `json:"target" bson:"target"`
	Type     string `json:"type,omitempty" bson:"type,omitempty"`
	Animated bool   `json:"animated,omitempty" bson:"animated,omitempty"`
}

// =============================================================================
// Queries
// =============================================================================

// Empty reports whether the graph has no nodes.
func (g Graph) Empty() bool { return len(g.Nodes) == 0 }

// Node returns the node with the given id.
func (g Graph) Node(id string) (Node, bool) {
	if i := g.NodeIndex(id); i >= 0 {
		return g.Nodes[i], true
	}
	return Node{}, false
}

// NodeIndex returns the position of the node with the given id, or -1.
func (g Graph) NodeIndex(id string) int {
	return slices.IndexFunc(g.Nodes, func(n Node) bool { return n.ID == id })
}

// CountKind returns how many nodes have kind k.
func (g Graph) CountKind(k Kind) int {
	c := 0
	for _, n := range g.Nodes {
		if n.Kind == k {
			c++
		}
	}
	return c
}

// Clone returns a deep copy of g.
func (g Graph) Clone() Graph {
	out := Graph{
		Nodes: make([]Node, len(g.Nodes)),
		Edges: slices.Clone(g.Edges),
	}
	for i, n := range g.Nodes {
		n.Code = slices.Clone(n.Code)
		out.Nodes[i] = n
	}
	if out.Edges == nil {
		out.Edges = []Edge{}
	}
	return out
}

// Validate checks structural invariants: node ids are unique and non-empty,
// kinds are known, edge ids are unique, and every edge endpoint names an
// existing node.
func (g Graph) Validate() error {
	ids := make(map[string]struct{}, len(g.Nodes))
	for i, n := range g.Nodes {
		if n.ID == "" {
			return fmt.Errorf("node %d: empty id", i)
		}
		if !n.Kind.Valid() {
			return fmt.Errorf("node %s: unknown kind %q", n.ID, n.Kind)
		}
		if _, dup := ids[n.ID]; dup {
			return fmt.Errorf("node %s: duplicate id", n.ID)
		}
		ids[n.ID] = struct{}{}
	}

	edges := make(map[string]struct{}, len(g.Edges))
	for _, e := range g.Edges {
		if _, dup := edges[e.ID]; dup {
			return fmt.Errorf("edge %s: duplicate id", e.ID)
		}
		edges[e.ID] = struct{}{}
		if _, ok := ids[e.Source]; !ok {
			return fmt.Errorf("edge %s: dangling source %q", e.ID, e.Source)
		}
		if _, ok := ids[e.Target]; !ok {
			return fmt.Errorf("edge %s: dangling target %q", e.ID, e.Target)
		}
	}
	return nil
}

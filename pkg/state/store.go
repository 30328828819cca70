package state

import (
	"slices"

	"github.com/matzehuels/phaseflow/pkg/graph"
)

// Store owns the current node and edge sequence.
//
// Every successful action replaces the node slice with a fresh copy; untouched
// nodes keep their values, so a renderer can diff old and new slices by value.
// Slices returned by [Store.Nodes] and [Store.Graph] are never mutated afterwards.
type Store struct {
	nodes []graph.Node
	edges []graph.Edge
	rev   uint64
}

// NewStore returns a store over g. Nodes that cannot toggle are forced
// collapsed.
func NewStore(g graph.Graph) *Store {
	g = g.Clone()
	for i := range g.Nodes {
		if !g.Nodes[i].CanToggle() {
			g.Nodes[i].Expanded = false
		}
	}
	return &Store{nodes: g.Nodes, edges: g.Edges}
}

// Nodes returns the current node sequence.
func (s *Store) Nodes() []graph.Node { return s.nodes }

// Edges returns the edge sequence. Actions never change edges.
func (s *Store) Edges() []graph.Edge { return s.edges }

// Graph returns the current nodes and edges.
func (s *Store) Graph() graph.Graph {
	return graph.Graph{Nodes: s.nodes, Edges: s.edges}
}

// Revision counts successful actions. It changes exactly when Nodes changes.
func (s *Store) Revision() uint64 { return s.rev }

// Dispatch applies a to the store and reports whether any node changed.
// Unknown actions, unknown ids and ineligible nodes are no-ops.
func (s *Store) Dispatch(a Action) bool {
	var next []graph.Node
	switch a := a.(type) {
	case Toggle:
		next = s.toggle(a.NodeID)
	case Collapse:
		next = s.restore(nil)
	case Restore:
		next = s.restore(a.NodeIDs)
	}
	if next == nil {
		return false
	}
	s.nodes = next
	s.rev++
	return true
}

// Toggle is shorthand for Dispatch(Toggle{NodeID: id}).
func (s *Store) Toggle(id string) bool {
	return s.Dispatch(Toggle{NodeID: id})
}

// Expanded returns the ids of expanded nodes in node order.
func (s *Store) Expanded() []string {
	var ids []string
	for _, n := range s.nodes {
		if n.Expanded {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// IsExpanded reports whether the node with id is expanded.
func (s *Store) IsExpanded(id string) bool {
	i := slices.IndexFunc(s.nodes, func(n graph.Node) bool { return n.ID == id })
	return i >= 0 && s.nodes[i].Expanded
}

// Restore is shorthand for Dispatch(Restore{NodeIDs: ids}).
func (s *Store) Restore(ids []string) bool {
	return s.Dispatch(Restore{NodeIDs: ids})
}

func (s *Store) toggle(id string) []graph.Node {
	i := slices.IndexFunc(s.nodes, func(n graph.Node) bool { return n.ID == id })
	if i < 0 || !s.nodes[i].CanToggle() {
		return nil
	}
	next := slices.Clone(s.nodes)
	next[i].Expanded = !next[i].Expanded
	return next
}

// restore returns nil when nothing would change.
func (s *Store) restore(ids []string) []graph.Node {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var next []graph.Node
	for i, n := range s.nodes {
		expanded := want[n.ID] && n.CanToggle()
		if n.Expanded == expanded {
			continue
		}
		if next == nil {
			next = slices.Clone(s.nodes)
		}
		next[i].Expanded = expanded
	}
	return next
}

// Package graph provides the positioned node-link graph produced by the layout
// engine and consumed by renderers, the state manager and the HTTP API.
//
// # Core Types
//
//   - [Graph]: ordered nodes and edges
//   - [Node]: a positioned box with a [Kind], label, description and code
//   - [Edge]: a directed connection carrying rendering hints
//
// # Node Kinds
//
//	graph.KindPhase        // "phase"
//	graph.KindDescription  // "description"
//	graph.KindCode         // "code"
//	graph.KindSubPhase     // "subphase"
//
// # Serialization
//
// Graphs use a flat JSON format:
//
//	{
//	  "nodes": [{"id": "phase-0", "kind": "phase", "position": {"x": 0, "y": 0}, "label": "Load"}],
//	  "edges": [{"id": "edge-phase-0-description", "source": "phase-0", "target": "description-0", "type": "smoothstep", "animated": true}]
//	}
//
// Common operations:
//
//	data, _ := graph.Marshal(g)
//	g, _ := graph.Unmarshal(data)
//	graph.WriteFile(g, "graph.json")
//
// # Concurrency
//
// Graph values are treated as immutable once built. [Graph.Clone] returns an
// independent copy for callers that need to mutate.
package graph

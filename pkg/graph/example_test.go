package graph_test

import (
	"bytes"
	"fmt"

	"github.com/matzehuels/phaseflow/pkg/graph"
)

func ExampleWrite() {
	g := graph.Graph{
		Nodes: []graph.Node{
			{ID: "phase-0", Kind: graph.KindPhase, Label: "Load"},
			{ID: "description-0", Kind: graph.KindDescription, Position: graph.Position{X: 600}, Label: "Description"},
		},
		Edges: []graph.Edge{
			{ID: "edge-phase-0-description", Source: "phase-0", Target: "description-0", Type: graph.EdgeTypeSmoothStep, Animated: true},
		},
	}

	var buf bytes.Buffer
	if err := graph.Write(g, &buf); err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Print(buf.String())
	// Output:
	// {
	//   "nodes": [
	//     {
	//       "id": "phase-0",
	//       "kind": "phase",
	//       "position": {
	//         "x": 0,
	//         "y": 0
	//       },
	//       "label": "Load",
	//       "expanded": false
	//     },
	//     {
	//       "id": "description-0",
	//       "kind": "description",
	//       "position": {
	//         "x": 600,
	//         "y": 0
	//       },
	//       "label": "Description",
	//       "expanded": false
	//     }
	//   ],
	//   "edges": [
	//     {
	//       "id": "edge-phase-0-description",
	//       "source": "phase-0",
	//       "target": "description-0",
	//       "type": "smoothstep",
	//       "animated": true
	//     }
	//   ]
	// }
}

func ExampleGraph_Validate() {
	g := graph.Graph{
		Nodes: []graph.Node{{ID: "phase-0", Kind: graph.KindPhase}},
		Edges: []graph.Edge{{ID: "e", Source: "phase-0", Target: "phase-1"}},
	}
	fmt.Println(g.Validate())
	// Output: edge e: dangling target "phase-1"
}

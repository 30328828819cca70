// Package layout places a [flow.ProcessFlow] on a fixed grid and returns the
// positioned [graph.Graph].
//
// Each phase occupies one row. The phase box sits in the first column, its
// description in the second and its code in the third. Sub-phases hang below
// the phase, halfway between the first two columns:
//
//	phase-0 ──> description-0 ──> code-0          y = 0
//	  │  └──> phase-0-sub-0                        y = S
//	  │  └──> phase-0-sub-1                        y = 2S
//	  v
//	phase-1 ──> description-1 ──> code-1          y = V
//
// [Build] is pure and total: every validated flow produces a graph, and the
// same flow always produces the same graph (ids, positions, order).
//
// Positions are absolute. Consumers must not re-layout; sub-phase boxes may
// overlap the next row when a phase has more than V/S - 1 sub-phases.
package layout

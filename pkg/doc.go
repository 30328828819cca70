// Package pkg provides the libraries behind phaseflow, a tool that turns
// process-flow descriptions into navigable node-link diagrams.
//
// # Overview
//
// A process flow is an ordered list of phases. Each phase has a name, a
// description, code snippets and optional sub-phases. phaseflow validates
// such documents, places them on a fixed grid and lets users expand nodes to
// reveal their code:
//
//	raw JSON text (typed, uploaded or returned by a summarizer)
//	         ↓
//	    [flow] package (extract, validate, normalize)
//	         ↓
//	    [layout] package (deterministic grid positions and edges)
//	         ↓
//	    [state] package (expand/collapse, submissions, pending requests)
//	         ↓
//	    [render/nodelink] package (DOT, SVG, PNG) and JSON
//
// # Quick Start
//
//	f, err := flow.Normalize(raw)
//	if err != nil {
//	    var verr *flow.ValidationError
//	    if errors.As(err, &verr) {
//	        fmt.Println(verr.Kind, verr.Index)
//	    }
//	    return err
//	}
//
//	g := layout.Build(f)
//	s := state.NewStore(g)
//	s.Toggle(layout.CodeID(0))
//	dot := nodelink.ToDOT(s.Graph(), nodelink.Options{})
//
// # Main Packages
//
// [flow] - The process-flow data model, its JSON Schema and the normalizer
// that turns arbitrary text into a validated flow or a typed error.
//
// [layout] - Pure, deterministic placement of phase, description, code and
// sub-phase nodes on a configurable grid.
//
// [graph] - The positioned node-link graph shared by layout, state, render
// and the HTTP API.
//
// [state] - The expand/collapse store and the submission controller that
// keeps the last good flow when a submission fails and drops stale responses.
//
// [summary] - HTTP client for the external summarization service that turns
// source code into a process flow.
//
// [pipeline] - normalize → layout → render with caching, used by the CLI, the
// watcher and the HTTP server alike.
//
// [cache], [session], [config], [observability] and [errors] provide the
// supporting infrastructure.
package pkg

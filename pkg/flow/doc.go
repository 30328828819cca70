// Package flow defines the process flow data model and the normalizer that
// turns raw, untrusted text into a validated [ProcessFlow].
//
// # Data Model
//
// A [ProcessFlow] is an ordered list of [Phase] values. Each phase has a
// label, a description, a list of code snippets and an optional ordered list
// of [SubPhase] values. Order is significant: it defines the vertical order of
// the laid-out diagram.
//
//	{
//	  "phases": [
//	    {
//	      "phase": "Initialize Project",
//	      "description": "Set up the development environment",
//	      "code": ["npm create vite@latest my-app"],
//	      "sub_phases": [
//	        {"sub_phase": "Install Dependencies", "description": "...", "code": ["npm install"]}
//	      ]
//	    }
//	  ]
//	}
//
// # Normalization
//
// [Normalize] parses the raw text, unwraps summarization service envelopes of
// the form {"text": "..."} (extracting a ```json fenced block when present),
// validates the payload against [Schema] and returns the typed value. Every
// failure is a [*ValidationError] whose [Kind] identifies what was wrong and,
// for per-phase failures, where.
//
//	f, err := flow.Normalize(raw)
//	var verr *flow.ValidationError
//	if errors.As(err, &verr) {
//	    fmt.Println(verr.Kind, verr.Index)
//	}
//
// # Concurrency
//
// Normalize is a pure function and safe for concurrent use. A [ProcessFlow]
// is treated as immutable once produced; a new submission replaces it.
package flow

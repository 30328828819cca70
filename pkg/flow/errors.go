package flow

import (
	"fmt"

	errs "github.com/matzehuels/phaseflow/pkg/errors"
)

// Kind classifies a validation failure.
type Kind int

// Validation failure kinds, in the order the normalizer checks them.
const (
	MalformedSyntax Kind = iota + 1
	MissingPhasesArray
	InvalidPhase
	InvalidSubPhases
	InvalidSubPhase
)

var kindNames = map[Kind]string{
	MalformedSyntax:    "MalformedSyntax",
	MissingPhasesArray: "MissingPhasesArray",
	InvalidPhase:       "InvalidPhase",
	InvalidSubPhases:   "InvalidSubPhases",
	InvalidSubPhase:    "InvalidSubPhase",
}

var kindCodes = map[Kind]errs.Code{
	MalformedSyntax:    errs.ErrCodeMalformedSyntax,
	MissingPhasesArray: errs.ErrCodeMissingPhasesArray,
	InvalidPhase:       errs.ErrCodeInvalidPhase,
	InvalidSubPhases:   errs.ErrCodeInvalidSubPhases,
	InvalidSubPhase:    errs.ErrCodeInvalidSubPhase,
}

// String returns the kind name.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ValidationError reports why raw input could not be turned into a [ProcessFlow].
//
// Index is the zero-based phase index for InvalidPhase, InvalidSubPhases and
// InvalidSubPhase; SubIndex is the sub-phase index for InvalidSubPhase. Both
// are -1 when not applicable.
type ValidationError struct {
	Kind     Kind
	Index    int
	SubIndex int
	Cause    error // parser error for MalformedSyntax
}

func newError(kind Kind, index, subIndex int) *ValidationError {
	return &ValidationError{Kind: kind, Index: index, SubIndex: subIndex}
}

func syntaxError(cause error) *ValidationError {
	return &ValidationError{Kind: MalformedSyntax, Index: -1, SubIndex: -1, Cause: cause}
}

// Error returns a short, human-readable message suitable for inline display.
func (e *ValidationError) Error() string {
	switch e.Kind {
	case MalformedSyntax:
		if e.Cause != nil {
			return fmt.Sprintf("invalid JSON: %v", e.Cause)
		}
		return "invalid JSON"
	case MissingPhasesArray:
		return `invalid structure: must contain a "phases" array`
	case InvalidPhase:
		return fmt.Sprintf("invalid phase structure at index %d", e.Index)
	case InvalidSubPhases:
		return fmt.Sprintf("invalid sub_phases structure at phase %d", e.Index)
	case InvalidSubPhase:
		return fmt.Sprintf("invalid sub-phase structure at phase %d, sub-phase %d", e.Index, e.SubIndex)
	default:
		return "invalid process flow"
	}
}

// Unwrap returns the underlying parser error, if any.
func (e *ValidationError) Unwrap() error { return e.Cause }

// Code maps the kind onto the shared error code space.
func (e *ValidationError) Code() errs.Code { return kindCodes[e.Kind] }

// Is matches another *ValidationError with the same kind and indices, so
// callers can write errors.Is(err, &flow.ValidationError{Kind: flow.InvalidPhase, Index: 0, SubIndex: -1}).
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Index == e.Index && t.SubIndex == e.SubIndex
}

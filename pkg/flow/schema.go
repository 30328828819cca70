package flow

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

const schemaURL = "https://phaseflow.dev/schemas/process-flow.json"

// schemaJSON is the JSON Schema for the process flow payload.
// sub_phases accepts null and treats it as absent.
const schemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://phaseflow.dev/schemas/process-flow.json",
  "title": "ProcessFlow",
  "type": "object",
  "required": ["phases"],
  "properties": {
    "phases": {
      "type": "array",
      "items": { "$ref": "#/$defs/phase" }
    }
  },
  "$defs": {
    "code": {
      "type": "array",
      "items": { "type": "string" }
    },
    "phase": {
      "type": "object",
      "required": ["phase", "description", "code"],
      "properties": {
        "phase": { "type": "string" },
        "description": { "type": "string" },
        "code": { "$ref": "#/$defs/code" },
        "sub_phases": {
          "type": ["array", "null"],
          "items": { "$ref": "#/$defs/subPhase" }
        }
      }
    },
    "subPhase": {
      "type": "object",
      "required": ["sub_phase", "description", "code"],
      "properties": {
        "sub_phase": { "type": "string" },
        "description": { "type": "string" },
        "code": { "$ref": "#/$defs/code" }
      }
    }
  }
}`

var (
	compiledOnce   sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

// Schema returns the JSON Schema document describing a valid payload.
func Schema() string { return schemaJSON }

func payloadSchema() (*jsonschema.Schema, error) {
	compiledOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(schemaJSON))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			compileErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile(schemaURL)
	})
	return compiledSchema, compileErr
}

// validate checks a parsed payload against the schema and converts the first
// violation in document order into a [*ValidationError].
func validate(v any) error {
	sch, err := payloadSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	err = sch.Validate(v)
	if err == nil {
		return nil
	}

	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return err
	}

	var locs [][]string
	collectLeaves(verr, &locs)

	var best *ValidationError
	for _, loc := range locs {
		cand := classify(loc)
		if best == nil || before(cand, best) {
			best = cand
		}
	}
	if best == nil {
		best = newError(MissingPhasesArray, -1, -1)
	}
	return best
}

// collectLeaves gathers the instance locations of the innermost causes.
func collectLeaves(e *jsonschema.ValidationError, out *[][]string) {
	if len(e.Causes) == 0 {
		*out = append(*out, e.InstanceLocation)
		return
	}
	for _, c := range e.Causes {
		collectLeaves(c, out)
	}
}

// classify maps a JSON pointer (as path segments) onto a validation kind.
//
//	[]                                   -> MissingPhasesArray
//	["phases"]                           -> MissingPhasesArray
//	["phases", i, ...]                   -> InvalidPhase{i}
//	["phases", i, "sub_phases"]          -> InvalidSubPhases{i}
//	["phases", i, "sub_phases", j, ...]  -> InvalidSubPhase{i, j}
func classify(loc []string) *ValidationError {
	if len(loc) < 2 || loc[0] != "phases" {
		return newError(MissingPhasesArray, -1, -1)
	}
	i, err := strconv.Atoi(loc[1])
	if err != nil {
		return newError(MissingPhasesArray, -1, -1)
	}
	if len(loc) < 3 || loc[2] != "sub_phases" {
		return newError(InvalidPhase, i, -1)
	}
	if len(loc) == 3 {
		return newError(InvalidSubPhases, i, -1)
	}
	j, err := strconv.Atoi(loc[3])
	if err != nil {
		return newError(InvalidSubPhases, i, -1)
	}
	return newError(InvalidSubPhase, i, j)
}

// before orders violations the way a sequential checker would find them:
// structural errors first, then by phase index, then phase fields before the
// sub_phases shape before individual sub-phases.
func before(a, b *ValidationError) bool {
	if (a.Kind == MissingPhasesArray) != (b.Kind == MissingPhasesArray) {
		return a.Kind == MissingPhasesArray
	}
	if a.Index != b.Index {
		return a.Index < b.Index
	}
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	return a.SubIndex < b.SubIndex
}

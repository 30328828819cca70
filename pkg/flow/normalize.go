package flow

import (
	"encoding/json"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// Normalize turns raw text into a validated [ProcessFlow].
//
// Steps, in order:
//  1. Parse raw as JSON (MalformedSyntax on failure).
//  2. If the value is a service envelope {"text": "..."}, extract the first
//     ```json fenced block from the text (or use the whole text) and parse that
//     as the payload (MalformedSyntax on failure).
//  3. Validate the payload: phases array present (MissingPhasesArray), each
//     phase well formed (InvalidPhase), sub_phases an array when present
//     (InvalidSubPhases), each sub-phase well formed (InvalidSubPhase).
//
// Strings are returned exactly as the JSON parser produced them. Normalize
// has no side effects; keeping the previous flow on failure is the caller's job.
func Normalize(raw string) (ProcessFlow, error) {
	v, err := parse(raw)
	if err != nil {
		return ProcessFlow{}, err
	}

	payload := raw
	if text, ok := unwrapEnvelope(v); ok {
		payload = text
		if v, err = parse(payload); err != nil {
			return ProcessFlow{}, err
		}
	}

	if err := validate(v); err != nil {
		return ProcessFlow{}, err
	}

	var f ProcessFlow
	if err := json.Unmarshal([]byte(payload), &f); err != nil {
		return ProcessFlow{}, syntaxError(err)
	}
	if f.Phases == nil {
		f.Phases = []Phase{}
	}
	return f, nil
}

// Validate reports whether raw normalizes successfully, discarding the flow.
func Validate(raw string) error {
	_, err := Normalize(raw)
	return err
}

func parse(s string) (any, error) {
	v, err := jsonschema.UnmarshalJSON(strings.NewReader(s))
	if err != nil {
		return nil, syntaxError(err)
	}
	return v, nil
}

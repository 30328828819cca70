package flow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// SubPhase is a nested refinement of a [Phase]. It has the same shape as a
// phase minus further nesting.
type SubPhase struct {
	SubPhase    string   `json:"sub_phase" bson:"sub_phase" yaml:"sub_phase"`
	Description string   `json:"description" bson:"description" yaml:"description"`
	Code        []string `json:"code" bson:"code" yaml:"code"`
}

// Phase is a top-level ordered stage of a described process.
type Phase struct {
	Phase       string     `json:"phase" bson:"phase" yaml:"phase"`
	Description string     `json:"description" bson:"description" yaml:"description"`
	Code        []string   `json:"code" bson:"code" yaml:"code"`
	SubPhases   []SubPhase `json:"sub_phases,omitempty" bson:"sub_phases,omitempty" yaml:"sub_phases,omitempty"`
}

// ProcessFlow is the validated, ordered collection of phases.
type ProcessFlow struct {
	Phases []Phase `json:"phases" bson:"phases" yaml:"phases"`
}

// Len returns the number of phases.
func (f ProcessFlow) Len() int { return len(f.Phases) }

// SubPhaseCount returns the total number of sub-phases across all phases.
func (f ProcessFlow) SubPhaseCount() int {
	n := 0
	for _, p := range f.Phases {
		n += len(p.SubPhases)
	}
	return n
}

// Empty returns a flow with zero phases. Its JSON form is {"phases":[]}.
func Empty() ProcessFlow {
	return ProcessFlow{Phases: []Phase{}}
}

// =============================================================================
// Serialization
// =============================================================================

// Marshal encodes f as indented JSON. A nil phase list is written as [].
func Marshal(f ProcessFlow) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(f, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write encodes f as indented JSON to w.
func Write(f ProcessFlow, w io.Writer) error {
	if f.Phases == nil {
		f.Phases = []Phase{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// Read reads all of r and normalizes it with [Normalize].
// The returned error is either an I/O error or a [*ValidationError].
func Read(r io.Reader) (ProcessFlow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return ProcessFlow{}, fmt.Errorf("read: %w", err)
	}
	return Normalize(string(data))
}

// ReadFile reads and normalizes the flow stored at path.
// The path "-" reads from standard input.
func ReadFile(path string) (ProcessFlow, error) {
	if path == "-" {
		return Read(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return ProcessFlow{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// WriteFile writes f as indented JSON to path with 0644 permissions.
func WriteFile(f ProcessFlow, path string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer out.Close()
	return Write(f, out)
}

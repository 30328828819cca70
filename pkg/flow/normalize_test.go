package flow

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	errs "github.com/matzehuels/phaseflow/pkg/errors"
)

const twoPhases = `{
  "phases": [
    {
      "phase": "Load",
      "description": "Read input",
      "code": ["open()", "read()"],
      "sub_phases": [
        {"sub_phase": "Open", "description": "o", "code": ["open()"]},
        {"sub_phase": "Read", "description": "r", "code": []}
      ]
    },
    {"phase": "Save", "description": "Write output", "code": []}
  ]
}`

func TestNormalizeValid(t *testing.T) {
	f, err := Normalize(twoPhases)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if f.Len() != 2 {
		t.Fatalf("Len = %d, want 2", f.Len())
	}
	if f.SubPhaseCount() != 2 {
		t.Errorf("SubPhaseCount = %d, want 2", f.SubPhaseCount())
	}
	if f.Phases[0].Phase != "Load" || f.Phases[1].Phase != "Save" {
		t.Errorf("phase order not preserved: %+v", f.Phases)
	}
	if got := f.Phases[0].SubPhases[1].SubPhase; got != "Read" {
		t.Errorf("sub-phase 1 = %q, want Read", got)
	}
	if !reflect.DeepEqual(f.Phases[0].Code, []string{"open()", "read()"}) {
		t.Errorf("code = %v", f.Phases[0].Code)
	}
}

func TestNormalizeEmptyPhases(t *testing.T) {
	f, err := Normalize(`{"phases": []}`)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if f.Phases == nil || f.Len() != 0 {
		t.Errorf("want empty non-nil phases, got %#v", f.Phases)
	}
}

func TestNormalizePreservesStrings(t *testing.T) {
	f, err := Normalize(`{"phases":[{"phase":"  padded  ","description":"","code":["  x = 1\n"]}]}`)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	p := f.Phases[0]
	if p.Phase != "  padded  " {
		t.Errorf("phase trimmed: %q", p.Phase)
	}
	if p.Code[0] != "  x = 1\n" {
		t.Errorf("code altered: %q", p.Code[0])
	}
}

func TestNormalizeAcceptsEmptyStrings(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty phase", `{"phases":[{"phase":"","description":"d","code":[]}]}`},
		{"empty description", `{"phases":[{"phase":"p","description":"","code":[]}]}`},
		{"empty code line", `{"phases":[{"phase":"p","description":"d","code":[""]}]}`},
		{"empty sub-phase", `{"phases":[{"phase":"p","description":"d","code":[],"sub_phases":[{"sub_phase":"","description":"","code":[]}]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Normalize(tt.raw); err != nil {
				t.Errorf("Normalize: %v", err)
			}
		})
	}
}

func TestNormalizeEnvelope(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		phase string
	}{
		{
			name:  "fenced",
			raw:   "{\"text\": \"Here you go:\\n```json\\n{\\\"phases\\\":[{\\\"phase\\\":\\\"A\\\",\\\"description\\\":\\\"d\\\",\\\"code\\\":[]}]}\\n```\\nDone.\"}",
			phase: "A",
		},
		{
			name:  "fence uppercase tag",
			raw:   "{\"text\": \"```JSON {\\\"phases\\\":[{\\\"phase\\\":\\\"B\\\",\\\"description\\\":\\\"d\\\",\\\"code\\\":[]}]} ```\"}",
			phase: "B",
		},
		{
			name:  "bare text",
			raw:   `{"text": "{\"phases\":[{\"phase\":\"C\",\"description\":\"d\",\"code\":[]}]}"}`,
			phase: "C",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Normalize(tt.raw)
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if f.Len() != 1 || f.Phases[0].Phase != tt.phase {
				t.Errorf("got %+v, want one phase %q", f.Phases, tt.phase)
			}
		})
	}
}

func TestNormalizeEnvelopeBadPayload(t *testing.T) {
	_, err := Normalize("{\"text\": \"```json\\n{not json}\\n```\"}")
	assertKind(t, err, MalformedSyntax, -1, -1)
}

func TestNormalizeObjectWithTextAndPhases(t *testing.T) {
	// "phases" wins: the object is treated as the payload, not an envelope.
	f, err := Normalize(`{"text":"ignored","phases":[]}`)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if f.Len() != 0 {
		t.Errorf("Len = %d, want 0", f.Len())
	}
}

func TestNormalizeErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		kind Kind
		i, j int
	}{
		{"truncated", `{"phases": [`, MalformedSyntax, -1, -1},
		{"empty input", ``, MalformedSyntax, -1, -1},
		{"not json", `phases`, MalformedSyntax, -1, -1},
		{"missing phases", `{}`, MissingPhasesArray, -1, -1},
		{"phases not array", `{"phases": {}}`, MissingPhasesArray, -1, -1},
		{"top-level array", `[]`, MissingPhasesArray, -1, -1},
		{"top-level string", `"x"`, MissingPhasesArray, -1, -1},
		{"phase not object", `{"phases": [1]}`, InvalidPhase, 0, -1},
		{"missing description", `{"phases":[{"phase":"A","code":[]}]}`, InvalidPhase, 0, -1},
		{"code not array", `{"phases":[{"phase":"A","description":"d","code":"x"}]}`, InvalidPhase, 0, -1},
		{"code item not string", `{"phases":[{"phase":"A","description":"d","code":[1]}]}`, InvalidPhase, 0, -1},
		{"second phase bad", `{"phases":[{"phase":"A","description":"d","code":[]},{"phase":2,"description":"d","code":[]}]}`, InvalidPhase, 1, -1},
		{"sub_phases not array", `{"phases":[{"phase":"A","description":"d","code":[],"sub_phases":"x"}]}`, InvalidSubPhases, 0, -1},
		{"sub-phase missing code", `{"phases":[{"phase":"A","description":"d","code":[],"sub_phases":[{"sub_phase":"s","description":"d"}]}]}`, InvalidSubPhase, 0, 0},
		{"second sub-phase bad", `{"phases":[{"phase":"A","description":"d","code":[],"sub_phases":[{"sub_phase":"s","description":"d","code":[]},{"sub_phase":"t","description":"d","code":[3]}]}]}`, InvalidSubPhase, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.raw)
			assertKind(t, err, tt.kind, tt.i, tt.j)
		})
	}
}

func TestNormalizeErrorOrdering(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		kind Kind
		i, j int
	}{
		{
			name: "lowest phase index wins",
			raw:  `{"phases":[{"phase":"A","description":"d","code":[]},{"phase":1},{"phase":2}]}`,
			kind: InvalidPhase, i: 1, j: -1,
		},
		{
			name: "phase fields before sub-phases",
			raw:  `{"phases":[{"phase":"A","code":[],"sub_phases":[{"sub_phase":1}]}]}`,
			kind: InvalidPhase, i: 0, j: -1,
		},
		{
			name: "earlier phase sub-phase before later phase",
			raw:  `{"phases":[{"phase":"A","description":"d","code":[],"sub_phases":[{}]},{"phase":1}]}`,
			kind: InvalidSubPhase, i: 0, j: 0,
		},
		{
			name: "lowest sub-phase index wins",
			raw:  `{"phases":[{"phase":"A","description":"d","code":[],"sub_phases":[{"sub_phase":"s","description":"d","code":[]},{},{}]}]}`,
			kind: InvalidSubPhase, i: 0, j: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.raw)
			assertKind(t, err, tt.kind, tt.i, tt.j)
		})
	}
}

func TestNormalizeNullSubPhases(t *testing.T) {
	f, err := Normalize(`{"phases":[{"phase":"A","description":"d","code":[],"sub_phases":null}]}`)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(f.Phases[0].SubPhases) != 0 {
		t.Errorf("want no sub-phases, got %v", f.Phases[0].SubPhases)
	}
}

func TestNormalizeRoundTrip(t *testing.T) {
	f, err := Normalize(twoPhases)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	data, err := Marshal(f)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	g, err := Normalize(string(data))
	if err != nil {
		t.Fatalf("Normalize round trip: %v", err)
	}
	if !reflect.DeepEqual(f, g) {
		t.Errorf("round trip mismatch:\n%+v\n%+v", f, g)
	}
}

func TestValidationErrorCode(t *testing.T) {
	_, err := Normalize(`{}`)
	if !errs.Is(err, errs.ErrCodeMissingPhasesArray) {
		t.Errorf("code = %q, want %q", errs.GetCode(err), errs.ErrCodeMissingPhasesArray)
	}
	if msg := errs.UserMessage(err); !strings.Contains(msg, "phases") {
		t.Errorf("user message %q should mention phases", msg)
	}

	_, err = Normalize(`{"phases":[{}]}`)
	if !errors.Is(err, &ValidationError{Kind: InvalidPhase, Index: 0, SubIndex: -1}) {
		t.Errorf("errors.Is did not match: %v", err)
	}
}

func TestExtractFenced(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"```json\n{}\n```", "{}"},
		{"before ```json {\"a\":1} ``` after", `{"a":1}`},
		{"```json\n1\n``` and ```json\n2\n```", "1"},
		{"no fence", "no fence"},
		{"```\n{}\n```", "```\n{}\n```"},
	}
	for _, tt := range tests {
		if got := ExtractFenced(tt.in); got != tt.want {
			t.Errorf("ExtractFenced(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSchemaCompiles(t *testing.T) {
	if _, err := payloadSchema(); err != nil {
		t.Fatalf("schema: %v", err)
	}
	if !strings.Contains(Schema(), `"sub_phases"`) {
		t.Error("schema document should describe sub_phases")
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/flow.json"
	f, err := Normalize(twoPhases)
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteFile(f, path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !reflect.DeepEqual(f, got) {
		t.Errorf("ReadFile mismatch")
	}
	if _, err := ReadFile(dir + "/missing.json"); err == nil {
		t.Error("expected error for missing file")
	}
}

func assertKind(t *testing.T, err error, kind Kind, i, j int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T: %v", err, err)
	}
	if ve.Kind != kind || ve.Index != i || ve.SubIndex != j {
		t.Errorf("got %s(%d,%d), want %s(%d,%d): %v", ve.Kind, ve.Index, ve.SubIndex, kind, i, j, err)
	}
}

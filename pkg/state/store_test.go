package state

import (
	"reflect"
	"testing"

	"github.com/matzehuels/phaseflow/pkg/flow"
	"github.com/matzehuels/phaseflow/pkg/graph"
	"github.com/matzehuels/phaseflow/pkg/layout"
)

const sample = `{"phases":[
	{"phase":"Load","description":"read","code":["open()"],
	 "sub_phases":[{"sub_phase":"Open","description":"","code":["os.open()"]},{"sub_phase":"Empty","description":"","code":[]}]},
	{"phase":"Save","description":"write","code":[]}]}`

func newTestStore(t *testing.T) *Store {
	t.Helper()
	f, err := flow.Normalize(sample)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	return NewStore(layout.Build(f))
}

func TestToggle(t *testing.T) {
	s := newTestStore(t)
	before := s.Nodes()

	if !s.Toggle("phase-0") {
		t.Fatal("Toggle(phase-0) should change state")
	}
	after := s.Nodes()
	for i := range before {
		if before[i].ID == "phase-0" {
			if !after[i].Expanded {
				t.Error("phase-0 should be expanded")
			}
			if before[i].Expanded {
				t.Error("previous slice was mutated")
			}
			continue
		}
		if !before[i].Equal(after[i]) {
			t.Errorf("node %s changed: %+v -> %+v", before[i].ID, before[i], after[i])
		}
	}

	if !s.Toggle("phase-0") || s.IsExpanded("phase-0") {
		t.Error("second toggle should collapse phase-0")
	}
}

func TestToggleNoOps(t *testing.T) {
	tests := []struct {
		name string
		id   string
	}{
		{"UnknownID", "phase-99"},
		{"Description", "description-0"},
		{"PhaseWithoutCode", "phase-1"},
		{"CodeWithoutCode", "code-1"},
		{"SubPhaseWithoutCode", "phase-0-sub-1"},
		{"EmptyID", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			before := s.Nodes()
			rev := s.Revision()
			if s.Toggle(tt.id) {
				t.Errorf("Toggle(%q) reported a change", tt.id)
			}
			if s.Revision() != rev {
				t.Error("revision changed on no-op")
			}
			if !reflect.DeepEqual(before, s.Nodes()) {
				t.Error("nodes changed on no-op")
			}
		})
	}
}

func TestToggleEligibleKinds(t *testing.T) {
	for _, id := range []string{"phase-0", "code-0", "phase-0-sub-0"} {
		s := newTestStore(t)
		if !s.Toggle(id) {
			t.Errorf("Toggle(%s) should succeed", id)
		}
	}
}

func TestEdgesUnchanged(t *testing.T) {
	s := newTestStore(t)
	edges := s.Edges()
	s.Toggle("code-0")
	if !reflect.DeepEqual(edges, s.Edges()) {
		t.Error("toggle changed edges")
	}
}

func TestExpandedAndRestore(t *testing.T) {
	s := newTestStore(t)
	s.Toggle("code-0")
	s.Toggle("phase-0-sub-0")

	got := s.Expanded()
	want := []string{"code-0", "phase-0-sub-0"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Expanded = %v, want %v", got, want)
	}

	// Ineligible and unknown ids are ignored.
	if !s.Restore([]string{"phase-0", "description-0", "nope"}) {
		t.Fatal("Restore should change state")
	}
	if got := s.Expanded(); !reflect.DeepEqual(got, []string{"phase-0"}) {
		t.Errorf("after Restore Expanded = %v", got)
	}

	if s.Restore([]string{"phase-0"}) {
		t.Error("Restore to the same set should be a no-op")
	}

	if !s.Dispatch(Collapse{}) || len(s.Expanded()) != 0 {
		t.Error("Collapse should clear all flags")
	}
	if s.Dispatch(Collapse{}) {
		t.Error("Collapse on collapsed store should be a no-op")
	}
}

func TestNewStoreClearsIneligible(t *testing.T) {
	g := graph.Graph{Nodes: []graph.Node{
		{ID: "description-0", Kind: graph.KindDescription, Expanded: true},
		{ID: "code-0", Kind: graph.KindCode, Code: []string{"x"}, Expanded: true},
	}}
	s := NewStore(g)
	if s.IsExpanded("description-0") {
		t.Error("description node should be collapsed")
	}
	if !s.IsExpanded("code-0") {
		t.Error("eligible node should keep its flag")
	}
	if !g.Nodes[0].Expanded {
		t.Error("NewStore mutated its input")
	}
}

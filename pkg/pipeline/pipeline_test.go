package pipeline

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/matzehuels/phaseflow/pkg/cache"
	errs "github.com/matzehuels/phaseflow/pkg/errors"
	"github.com/matzehuels/phaseflow/pkg/flow"
	"github.com/matzehuels/phaseflow/pkg/graph"
	"github.com/matzehuels/phaseflow/pkg/layout"
)

const sample = `{"phases":[
	{"phase":"Load","description":"read","code":["open()"],"sub_phases":[{"sub_phase":"Open","description":"","code":[]}]},
	{"phase":"Save","description":"write","code":["close()"]}]}`

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"json", false},
		{"dot", false},
		{"svg", false},
		{"png", false},
		{"pdf", false},
		{"invalid", true},
		{"SVG", true},
		{"", true},
	}
	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
		if err != nil && !errs.Is(err, errs.ErrCodeInvalidFormat) {
			t.Errorf("ValidateFormat(%q) code = %s", tt.format, errs.GetCode(err))
		}
	}
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		in      string
		want    []string
		wantErr bool
	}{
		{"svg", []string{"svg"}, false},
		{"svg, PNG ,svg", []string{"svg", "png"}, false},
		{"svg,gif", nil, true},
		{" , ", nil, true},
	}
	for _, tt := range tests {
		got, err := ParseFormats(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormats(%q) error = %v", tt.in, err)
			continue
		}
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("ParseFormats(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestExecute(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	res, err := r.Execute(context.Background(), sample, Options{Formats: []string{FormatJSON, FormatDOT}})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Stats.Phases != 2 || res.Stats.Nodes != 7 || res.Stats.Edges != 6 {
		t.Errorf("stats = %+v", res.Stats)
	}
	if len(res.FlowHash) != 64 {
		t.Errorf("FlowHash = %q", res.FlowHash)
	}

	var g graph.Graph
	if err := json.Unmarshal(res.Artifacts[FormatJSON], &g); err != nil {
		t.Fatalf("json artifact: %v", err)
	}
	if len(g.Nodes) != 7 {
		t.Errorf("json artifact has %d nodes", len(g.Nodes))
	}
	if !strings.HasPrefix(string(res.Artifacts[FormatDOT]), "digraph G {") {
		t.Error("dot artifact malformed")
	}
}

func TestExecuteValidationError(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	_, err := r.Execute(context.Background(), `{"phases":[{"phase":"x"}]}`, DefaultOptions())
	if !errs.Is(err, errs.ErrCodeInvalidPhase) {
		t.Errorf("err = %v, want INVALID_PHASE", err)
	}

	_, err = r.Execute(context.Background(), sample, Options{Formats: []string{"gif"}})
	if !errs.Is(err, errs.ErrCodeInvalidFormat) {
		t.Errorf("err = %v, want INVALID_FORMAT", err)
	}
}

func TestLayoutCache(t *testing.T) {
	ctx := context.Background()
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(fc, nil, nil)
	f, err := flow.Normalize(sample)
	if err != nil {
		t.Fatal(err)
	}

	g1, hit, err := r.Layout(ctx, f, DefaultOptions())
	if err != nil || hit {
		t.Fatalf("first Layout hit=%v err=%v", hit, err)
	}
	g2, hit, err := r.Layout(ctx, f, DefaultOptions())
	if err != nil || !hit {
		t.Fatalf("second Layout hit=%v err=%v", hit, err)
	}
	for i := range g1.Nodes {
		if !g1.Nodes[i].Equal(g2.Nodes[i]) {
			t.Errorf("cached node %d differs", i)
		}
	}

	// Different spacing is a different key.
	opts := DefaultOptions()
	opts.Layout.Vertical = 100
	if _, hit, _ := r.Layout(ctx, f, opts); hit {
		t.Error("changed options should miss")
	}

	// Zero options resolve to the defaults and share their key.
	if _, hit, _ := r.Layout(ctx, f, Options{}); !hit {
		t.Error("zero options should hit the default entry")
	}

	opts = DefaultOptions()
	opts.Refresh = true
	if _, hit, _ := r.Layout(ctx, f, opts); hit {
		t.Error("refresh should bypass the cache")
	}
}

func TestLayoutMatchesBuild(t *testing.T) {
	f, _ := flow.Normalize(sample)
	r := NewRunner(nil, nil, nil)
	got, _, err := r.Layout(context.Background(), f, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	want := layout.Build(f)
	if len(got.Nodes) != len(want.Nodes) {
		t.Fatalf("nodes = %d, want %d", len(got.Nodes), len(want.Nodes))
	}
	for i := range want.Nodes {
		if !got.Nodes[i].Equal(want.Nodes[i]) {
			t.Errorf("node %d = %+v, want %+v", i, got.Nodes[i], want.Nodes[i])
		}
	}
}

func TestLayoutConcurrent(t *testing.T) {
	f, _ := flow.Normalize(sample)
	r := NewRunner(nil, nil, nil)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g, _, err := r.Layout(context.Background(), f, DefaultOptions())
			if err != nil || len(g.Nodes) != 7 {
				t.Errorf("Layout = %d nodes, %v", len(g.Nodes), err)
			}
			// Each caller owns its copy.
			g.Nodes[0].Expanded = true
		}()
	}
	wg.Wait()
}

func TestRenderCache(t *testing.T) {
	ctx := context.Background()
	fc, _ := cache.NewFileCache(t.TempDir())
	r := NewRunner(fc, nil, nil)
	f, _ := flow.Normalize(sample)
	g := layout.Build(f)
	opts := Options{Formats: []string{FormatJSON, FormatDOT}}

	a1, hit, err := r.Render(ctx, g, opts)
	if err != nil || hit {
		t.Fatalf("first Render hit=%v err=%v", hit, err)
	}
	a2, hit, err := r.Render(ctx, g, opts)
	if err != nil || !hit {
		t.Fatalf("second Render hit=%v err=%v", hit, err)
	}
	if string(a1[FormatDOT]) != string(a2[FormatDOT]) {
		t.Error("cached DOT differs")
	}

	scaled := opts
	scaled.Render.Scale = 1
	if _, hit, _ := r.Render(ctx, g, scaled); hit {
		t.Error("changed render options should miss")
	}

	// Expanding a node changes the graph hash.
	g.Nodes[0].Expanded = true
	if _, hit, _ := r.Render(ctx, g, opts); hit {
		t.Error("changed expand state should miss")
	}
}

func TestFlowHash(t *testing.T) {
	a, _ := flow.Normalize(sample)
	b, _ := flow.Normalize(strings.ReplaceAll(sample, "\n", " "))
	ha, _ := FlowHash(a)
	hb, _ := FlowHash(b)
	if ha != hb {
		t.Error("whitespace should not change the flow hash")
	}
	c, _ := flow.Normalize(`{"phases":[]}`)
	if hc, _ := FlowHash(c); hc == ha {
		t.Error("different flows should hash differently")
	}
}

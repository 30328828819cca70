// Package pipeline runs the normalize → layout → render stages shared by the
// CLI, the watcher and the HTTP server.
//
// # Stages
//
//  1. Normalize: raw text (payload or service envelope) to a validated flow
//  2. Layout: flow to a positioned graph (cached by flow hash and options)
//  3. Render: graph to artifacts (json, dot, svg, png, pdf)
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	res, err := runner.Execute(ctx, raw, pipeline.Options{Formats: []string{"svg"}})
//	svg := res.Artifacts["svg"]
//
// Stages can also run on their own:
//
//	f, err := runner.Normalize(ctx, raw)
//	g, hit, err := runner.Layout(ctx, f, opts)
//	artifacts, hit, err := runner.Render(ctx, g, opts)
package pipeline

import (
	"fmt"
	"slices"
	"strings"
	"time"

	errs "github.com/matzehuels/phaseflow/pkg/errors"
	"github.com/matzehuels/phaseflow/pkg/flow"
	"github.com/matzehuels/phaseflow/pkg/graph"
	"github.com/matzehuels/phaseflow/pkg/layout"
	"github.com/matzehuels/phaseflow/pkg/render/nodelink"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatPDF  = "pdf"
)

// Formats lists every supported output format.
var Formats = []string{FormatJSON, FormatDOT, FormatSVG, FormatPNG, FormatPDF}

// ContentTypes maps each format to its MIME type.
var ContentTypes = map[string]string{
	FormatJSON: "application/json",
	FormatDOT:  "text/vnd.graphviz",
	FormatSVG:  "image/svg+xml",
	FormatPNG:  "image/png",
	FormatPDF:  "application/pdf",
}

// Options configures a pipeline run.
type Options struct {
	Layout  layout.Options
	Render  nodelink.Options
	Formats []string
	// Refresh bypasses cache reads. Results are still written.
	Refresh bool
}

// DefaultOptions returns the default grid and JSON output.
func DefaultOptions() Options {
	return Options{
		Layout:  layout.DefaultOptions(),
		Formats: []string{FormatJSON},
	}
}

// Result holds the outputs of [Runner.Execute].
type Result struct {
	Flow      flow.ProcessFlow
	FlowHash  string
	Graph     graph.Graph
	Artifacts map[string][]byte
	Stats     Stats
	CacheInfo CacheInfo
}

// Stats records stage timings and sizes.
type Stats struct {
	Phases        int
	Nodes         int
	Edges         int
	NormalizeTime time.Duration
	LayoutTime    time.Duration
	RenderTime    time.Duration
}

// CacheInfo records which stages were served from the cache.
type CacheInfo struct {
	LayoutHit bool
	RenderHit bool
}

// ValidateFormat checks that format is supported.
func ValidateFormat(format string) error {
	if !slices.Contains(Formats, format) {
		return errs.New(errs.ErrCodeInvalidFormat, "invalid format: %q (must be one of: %s)", format, strings.Join(Formats, ", "))
	}
	return nil
}

// ValidateFormats checks every format in formats.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ParseFormats splits a comma-separated list such as "svg,png" and validates
// each entry. Duplicates are dropped.
func ParseFormats(s string) ([]string, error) {
	var out []string
	for _, f := range strings.Split(s, ",") {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" || slices.Contains(out, f) {
			continue
		}
		if err := ValidateFormat(f); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no output format given")
	}
	return out, nil
}

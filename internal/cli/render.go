package cli

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/matzehuels/phaseflow/pkg/graph"
	"github.com/matzehuels/phaseflow/pkg/pipeline"
	"github.com/matzehuels/phaseflow/pkg/render"
	"github.com/matzehuels/phaseflow/pkg/state"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output    string   // output base path; the format is appended as extension
	formats   string   // comma-separated: svg, png, pdf, dot, json
	expand    []string // node ids to expand before rendering
	expandAll bool     // expand every node that has code
	scale     float64  // layout units to points
	maxLines  int      // code lines per expanded node
	noCache   bool
	refresh   bool
}

func (c *CLI) renderCommand() *cobra.Command {
	var (
		opts renderOpts
		lf   layoutFlags
	)

	cmd := &cobra.Command{
		Use:   "render <file|->",
		Short: "Render a process-flow document as a diagram",
		Long: `Render a process-flow document as a diagram.

Nodes are placed on the layout grid and drawn with Graphviz (neato, pinned
positions). Expanded nodes show their code snippets. PDF output needs
rsvg-convert on PATH.`,
		Example: `  phaseflow render flow.json
  phaseflow render flow.json -f svg,png --expand phase-0,code-0
  cat flow.json | phaseflow render - -f dot -o out`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			popts, err := c.pipelineOptions()
			if err != nil {
				return err
			}
			formats, err := pipeline.ParseFormats(opts.formats)
			if err != nil {
				return err
			}
			if slices.Contains(formats, pipeline.FormatPDF) && !render.Available() {
				return fmt.Errorf("pdf output requires rsvg-convert (librsvg)")
			}
			lf.apply(cmd, &popts.Layout)
			popts.Formats = formats
			popts.Refresh = opts.refresh
			popts.Render.Scale = opts.scale
			popts.Render.MaxCodeLines = opts.maxLines
			popts.Render.ExpandAll = opts.expandAll
			return c.runRender(cmd.Context(), args[0], popts, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output base path (default: input name)")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", pipeline.FormatSVG, "output format(s): svg, png, pdf, dot, json (comma-separated)")
	cmd.Flags().StringSliceVar(&opts.expand, "expand", nil, "node ids to expand (comma-separated)")
	cmd.Flags().BoolVar(&opts.expandAll, "expand-all", false, "expand every node that has code")
	cmd.Flags().Float64Var(&opts.scale, "scale", 0.5, "layout units to points")
	cmd.Flags().IntVar(&opts.maxLines, "max-lines", 12, "code lines shown per expanded node")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "recompute even when cached")
	lf.register(cmd)
	return cmd
}

func (c *CLI) runRender(ctx context.Context, input string, popts pipeline.Options, opts renderOpts) error {
	g, phases, hit, err := c.layoutFile(ctx, input, popts, opts.noCache)
	if err != nil {
		return err
	}
	g = applyExpand(g, opts.expand, opts.expandAll)

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, "Rendering...")
	spinner.Start()
	prog := newProgress(c.Logger)
	artifacts, renderHit, err := runner.Render(ctx, g, popts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return fmt.Errorf("render: %w", err)
	}
	spinner.Stop()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	prog.done("rendered", "formats", popts.Formats, "cached", renderHit)

	base := outputBase(input, opts.output)
	paths, err := writeArtifacts(base, popts.Formats, artifacts)
	if err != nil {
		return err
	}

	printSuccess("Rendered %d file(s)", len(paths))
	for _, p := range paths {
		printFile(p)
	}
	printStats(phases, len(g.Nodes), len(g.Edges), hit && renderHit)
	return nil
}

// applyExpand returns g with the listed nodes (or all eligible ones) expanded.
// Ids that cannot toggle are ignored, as they are in the viewer.
func applyExpand(g graph.Graph, ids []string, all bool) graph.Graph {
	if !all && len(ids) == 0 {
		return g
	}
	store := state.NewStore(g)
	if all {
		ids = ids[:0:0]
		for _, n := range g.Nodes {
			if n.CanToggle() {
				ids = append(ids, n.ID)
			}
		}
	}
	store.Restore(ids)
	return store.Graph()
}

// writeArtifacts writes base.<format> for each format in order.
func writeArtifacts(base string, formats []string, artifacts map[string][]byte) ([]string, error) {
	paths := make([]string, 0, len(formats))
	for _, format := range formats {
		path := base + "." + format
		if format == pipeline.FormatJSON {
			path = base + ".graph.json"
		}
		if err := os.WriteFile(path, artifacts[format], 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

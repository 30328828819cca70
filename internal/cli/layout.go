package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/phaseflow/pkg/graph"
	"github.com/matzehuels/phaseflow/pkg/layout"
	"github.com/matzehuels/phaseflow/pkg/pipeline"
)

// layoutFlags are the grid overrides shared by layout, render and view.
type layoutFlags struct {
	vertical, horizontal, subPhase float64
	originX, originY               float64
}

func (f *layoutFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.vertical, "vertical", 0, "vertical spacing between phases (default 300)")
	cmd.Flags().Float64Var(&f.horizontal, "horizontal", 0, "horizontal spacing between columns (default 600)")
	cmd.Flags().Float64Var(&f.subPhase, "sub-phase", 0, "vertical spacing between sub-phases (default 150)")
	cmd.Flags().Float64Var(&f.originX, "origin-x", 0, "x offset applied to every node")
	cmd.Flags().Float64Var(&f.originY, "origin-y", 0, "y offset applied to every node")
}

// apply overlays flags the user set on opts.
func (f *layoutFlags) apply(cmd *cobra.Command, opts *layout.Options) {
	layout.WithSpacing(f.vertical, f.horizontal, f.subPhase)(opts)
	if cmd.Flags().Changed("origin-x") || cmd.Flags().Changed("origin-y") {
		x, y := opts.Origin.X, opts.Origin.Y
		if cmd.Flags().Changed("origin-x") {
			x = f.originX
		}
		if cmd.Flags().Changed("origin-y") {
			y = f.originY
		}
		layout.WithOrigin(x, y)(opts)
	}
}

func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output  string
		table   bool
		noCache bool
		refresh bool
		lf      layoutFlags
	)

	cmd := &cobra.Command{
		Use:   "layout <file|->",
		Short: "Compute node positions for a process-flow document",
		Long: `Compute node positions for a process-flow document.

Each phase becomes a row of three nodes (phase, description, code snippets);
sub-phases hang below their phase. The result is written as graph JSON
(<input>.graph.json by default, "-" for stdout) or shown as a table.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.pipelineOptions()
			if err != nil {
				return err
			}
			lf.apply(cmd, &opts.Layout)
			opts.Refresh = refresh
			return c.runLayout(cmd, args[0], opts, output, table, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", `output file (default: <input>.graph.json, "-" for stdout)`)
	cmd.Flags().BoolVar(&table, "table", false, "print a node table instead of writing JSON")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "recompute even when cached")
	lf.register(cmd)
	return cmd
}

func (c *CLI) runLayout(cmd *cobra.Command, input string, opts pipeline.Options, output string, table, noCache bool) error {
	ctx := cmd.Context()
	g, phases, hit, err := c.layoutFile(ctx, input, opts, noCache)
	if err != nil {
		return err
	}

	if table {
		fmt.Fprintln(cmd.OutOrStdout(), nodeTable(g, false))
		return nil
	}
	if output == stdinPath {
		return graph.Write(g, cmd.OutOrStdout())
	}
	if output == "" {
		output = outputBase(input, "") + ".graph.json"
	}
	if err := graph.WriteFile(g, output); err != nil {
		return fmt.Errorf("write output %s: %w", output, err)
	}

	printSuccess("Layout complete")
	printFile(output)
	printStats(phases, len(g.Nodes), len(g.Edges), hit)
	printNewline()
	printNextStep("Render", appName+" render "+input)
	return nil
}

// layoutFile reads, normalizes and lays out input.
func (c *CLI) layoutFile(ctx context.Context, input string, opts pipeline.Options, noCache bool) (graph.Graph, int, bool, error) {
	raw, err := c.readInput(input)
	if err != nil {
		return graph.Graph{}, 0, false, err
	}
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return graph.Graph{}, 0, false, fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	prog := newProgress(c.Logger)
	f, err := runner.Normalize(ctx, raw)
	if err != nil {
		printError("%s", errorLine(err))
		return graph.Graph{}, 0, false, err
	}
	g, hit, err := runner.Layout(ctx, f, opts)
	if err != nil {
		return graph.Graph{}, 0, false, fmt.Errorf("compute layout: %w", err)
	}
	c.Logger.Debug("layout computed", "nodes", len(g.Nodes), "cached", hit, "took", prog.lap())
	return g, f.Len(), hit, nil
}

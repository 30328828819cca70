package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/phaseflow/pkg/flow"
	"github.com/matzehuels/phaseflow/pkg/graph"
	"github.com/matzehuels/phaseflow/pkg/summary"
)

type summarizeOpts struct {
	url     string
	output  string
	raw     bool
	noCache bool
}

func (c *CLI) summarizeCommand() *cobra.Command {
	var opts summarizeOpts

	cmd := &cobra.Command{
		Use:   "summarize <source.py|source.txt|->",
		Short: "Describe source code as a process flow using the summarization service",
		Long: `Send a source file to the summarization service and turn its answer into a
process-flow document and a laid-out graph.

The service is expected to answer POST {"code": "..."} with either a bare
{"phases": [...]} document or {"text": "..."} containing a fenced json block.
Writes <base>.flow.json and <base>.graph.json.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSummarize(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "", "summarization endpoint (default from config)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output base path (default: source name)")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "print the service response and stop")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	return cmd
}

func (c *CLI) runSummarize(cmd *cobra.Command, source string, opts summarizeOpts) error {
	ctx := cmd.Context()
	code, err := c.readSource(source)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()
	client, err := c.newSummaryClient(opts.url, runner.Cache)
	if err != nil {
		return err
	}

	raw, err := c.callService(ctx, client, code)
	if err != nil {
		return err
	}
	if opts.raw {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), raw)
		return err
	}

	f, err := runner.Normalize(ctx, raw)
	if err != nil {
		printError("%s", errorLine(err))
		printDetail("the service answered, but not with a valid process flow")
		return err
	}
	popts, err := c.pipelineOptions()
	if err != nil {
		return err
	}
	g, hit, err := runner.Layout(ctx, f, popts)
	if err != nil {
		return err
	}

	base := outputBase(source, opts.output)
	flowPath, graphPath := base+".flow.json", base+".graph.json"
	if err := flow.WriteFile(f, flowPath); err != nil {
		return fmt.Errorf("write %s: %w", flowPath, err)
	}
	if err := graph.WriteFile(g, graphPath); err != nil {
		return fmt.Errorf("write %s: %w", graphPath, err)
	}

	printSuccess("Summarized %s", source)
	printFile(flowPath)
	printFile(graphPath)
	printStats(f.Len(), len(g.Nodes), len(g.Edges), hit)
	printNewline()
	printNextStep("Explore", appName+" view "+flowPath)
	return nil
}

// readSource reads an uploaded source file; "-" reads stdin.
func (c *CLI) readSource(path string) (string, error) {
	if path == stdinPath {
		return c.readInput(path)
	}
	return summary.ReadSource(path)
}

func (c *CLI) callService(ctx context.Context, client *summary.Client, code string) (string, error) {
	spinner := newSpinnerWithContext(ctx, "Summarizing via "+client.URL()+"...")
	spinner.Start()
	prog := newProgress(c.Logger)

	raw, err := client.Summarize(ctx, code)
	if err != nil {
		spinner.StopWithError(errorLine(err))
		return "", err
	}
	took := prog.lap()
	spinner.StopWithSuccess(fmt.Sprintf("Service answered in %s", took.Round(time.Millisecond)))
	c.Logger.Debug("service response", "bytes", len(raw))
	return raw, nil
}

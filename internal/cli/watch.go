package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/matzehuels/phaseflow/pkg/pipeline"
)

const watchDebounce = 150 * time.Millisecond

func (c *CLI) watchCommand() *cobra.Command {
	var (
		output  string
		formats string
		lf      layoutFlags
	)

	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Re-render a process-flow document whenever it changes",
		Long: `Watch a process-flow document and re-render it on every save.

An invalid save prints the error and leaves the previous output in place, so
the last good diagram stays visible while the document is being edited.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			popts, err := c.pipelineOptions()
			if err != nil {
				return err
			}
			popts.Formats, err = pipeline.ParseFormats(formats)
			if err != nil {
				return err
			}
			lf.apply(cmd, &popts.Layout)
			return c.runWatch(cmd.Context(), args[0], outputBase(args[0], output), popts)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output base path (default: input name)")
	cmd.Flags().StringVarP(&formats, "format", "f", pipeline.FormatSVG, "output format(s), comma-separated")
	lf.register(cmd)
	return cmd
}

// runWatch renders once, then again after each change until ctx ends.
func (c *CLI) runWatch(ctx context.Context, input, base string, opts pipeline.Options) error {
	if input == stdinPath {
		return fmt.Errorf("watch needs a file, not stdin")
	}
	abs, err := filepath.Abs(input)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()
	// Editors often replace files by rename, so watch the directory.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	runner, err := c.newRunner(ctx, false)
	if err != nil {
		return err
	}
	defer runner.Close()

	rebuild := func() {
		if _, err := c.rebuild(ctx, runner, input, base, opts); err != nil {
			printError("%s", errorLine(err))
			printWarning("keeping previous output")
		}
	}
	rebuild()
	printInfo("Watching %s (ctrl+c to stop)", input)

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			c.Logger.Debug("change detected", "op", ev.Op.String())
			debounce = time.After(watchDebounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			c.Logger.Warn("watcher error", "err", err)
		case <-debounce:
			debounce = nil
			rebuild()
		}
	}
}

// rebuild runs the pipeline on input and writes the artifacts. Nothing is
// written when any stage fails.
func (c *CLI) rebuild(ctx context.Context, runner *pipeline.Runner, input, base string, opts pipeline.Options) ([]string, error) {
	raw, err := c.readInput(input)
	if err != nil {
		return nil, err
	}
	prog := newProgress(c.Logger)
	res, err := runner.Execute(ctx, raw, opts)
	if err != nil {
		return nil, err
	}
	paths, err := writeArtifacts(base, opts.Formats, res.Artifacts)
	if err != nil {
		return nil, err
	}
	prog.done("rebuilt", "phases", res.Stats.Phases, "nodes", res.Stats.Nodes)
	for _, p := range paths {
		printFile(p)
	}
	return paths, nil
}

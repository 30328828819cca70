package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/phaseflow/pkg/flow"
)

func (c *CLI) validateCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "validate <file|->",
		Short: "Check a process-flow document",
		Long: `Check a process-flow document against the phase schema.

The input may be a bare {"phases": [...]} document or a summarization service
response of the form {"text": "...` + "```json ... ```" + `..."}. On success the
normalized document can be written with --output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runValidate(cmd.Context(), args[0], output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the normalized document to this file")
	return cmd
}

func (c *CLI) runValidate(ctx context.Context, input, output string) error {
	raw, err := c.readInput(input)
	if err != nil {
		return err
	}
	f, err := flow.Normalize(raw)
	if err != nil {
		printError("%s", errorLine(err))
		return err
	}

	printSuccess("Valid process flow")
	printDetail("%d phases, %d sub-phases", f.Len(), f.SubPhaseCount())

	if output != "" {
		if err := flow.WriteFile(f, output); err != nil {
			return fmt.Errorf("write %s: %w", output, err)
		}
		printFile(output)
	}
	loggerFromContext(ctx).Debug("validated", "input", input)
	return nil
}

func (c *CLI) schemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema for process-flow documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), flow.Schema())
			return err
		},
	}
}

package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"
)

func NewProgressCommand(opts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "progress <workflow-id>",
		Short: "Show the progress of one workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgress(cmd.Context(), cmd.OutOrStdout(), opts, args[0], format)
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", outputText, "Output format: text, json or yaml")

	return cmd
}

func runProgress(ctx context.Context, out io.Writer, opts *rootOptions, workflowID, format string) error {
	_, container, err := opts.buildContainer(ctx, false)
	if err != nil {
		return err
	}
	defer container.Close()

	progress := container.GetMonitor().FetchProgress(ctx, workflowID)

	output, err := newProgressOutput(workflowID, progress)
	if err != nil {
		return err
	}

	return printProgress(out, format, output)
}

package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"
)

func NewListCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List running workflows once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	return cmd
}

func runList(ctx context.Context, out io.Writer, opts *rootOptions) error {
	_, container, err := opts.buildContainer(ctx, false)
	if err != nil {
		return err
	}
	defer container.Close()

	workflowMonitor := container.GetMonitor()

	if _, err := workflowMonitor.FetchActive(ctx); err != nil {
		return err
	}

	printWorkflows(out, workflowMonitor, workflowMonitor.Snapshot())
	return nil
}

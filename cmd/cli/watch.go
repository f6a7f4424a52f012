package cli

import (
	"context"
	"io"

	"github.com/flowbaker/workflow-monitor/internal/tui"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func NewWatchCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch running workflows live",
		Long: `Open a live view of the running workflows of the configured marketplace, refreshed on the
polling interval. Without a terminal a single snapshot is printed instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	return cmd
}

func runWatch(ctx context.Context, out io.Writer, opts *rootOptions) error {
	interactive := isTerminal()

	cfg, container, err := opts.buildContainer(ctx, interactive)
	if err != nil {
		return err
	}
	defer container.Close()

	workflowMonitor := container.GetMonitor()

	if !interactive || cfg.Headless {
		log.Debug().Msg("No terminal attached, printing a single snapshot")

		if _, err := workflowMonitor.FetchActive(ctx); err != nil {
			return err
		}
		printWorkflows(out, workflowMonitor, workflowMonitor.Snapshot())
		return nil
	}

	return tui.Run(workflowMonitor, cfg.PollInterval)
}

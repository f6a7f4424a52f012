package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/flowbaker/workflow-monitor/internal/monitor"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

type cancelOptions struct {
	all bool
	yes bool
}

func NewCancelCommand(opts *rootOptions) *cobra.Command {
	cancelOpts := &cancelOptions{}

	cmd := &cobra.Command{
		Use:   "cancel [workflow-id...]",
		Short: "Cancel workflows",
		Long: `Request the cancellation of the given workflows, or of every running workflow of the
marketplace with --all.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if cancelOpts.all && len(args) > 0 {
				return errors.New("--all cannot be combined with workflow ids")
			}
			if !cancelOpts.all && len(args) == 0 {
				return errors.New("at least one workflow id or --all is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCancel(cmd.Context(), cmd.OutOrStdout(), opts, cancelOpts, args)
		},
	}

	cmd.Flags().BoolVar(&cancelOpts.all, "all", false, "Cancel every running workflow of the marketplace")
	cmd.Flags().BoolVarP(&cancelOpts.yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

func runCancel(ctx context.Context, out io.Writer, opts *rootOptions, cancelOpts *cancelOptions, workflowIDs []string) error {
	_, container, err := opts.buildContainer(ctx, false)
	if err != nil {
		return err
	}
	defer container.Close()

	workflowMonitor := container.GetMonitor()

	if cancelOpts.all {
		return runCancelAll(ctx, out, workflowMonitor, cancelOpts.yes)
	}

	failed := 0
	for _, workflowID := range workflowIDs {
		if workflowMonitor.Cancel(ctx, workflowID) {
			fmt.Fprintf(out, "✅ Cancellation requested for %s\n", workflowID)
			continue
		}

		failed++
		fmt.Fprintf(out, "❌ Could not cancel %s\n", workflowID)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d cancellation(s) were not acknowledged", failed, len(workflowIDs))
	}
	return nil
}

func runCancelAll(ctx context.Context, out io.Writer, workflowMonitor *monitor.Monitor, skipConfirm bool) error {
	if _, err := workflowMonitor.FetchActive(ctx); err != nil {
		return err
	}

	state := workflowMonitor.Snapshot()
	if len(state.Workflows) == 0 {
		fmt.Fprintln(out, "No running workflows.")
		return nil
	}

	if !skipConfirm {
		confirmed, err := confirmCancelAll(workflowMonitor.Platform().Name, len(state.Workflows))
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	cancelled := workflowMonitor.CancelAll(ctx)
	fmt.Fprintf(out, "Cancellation requested for %d of %d workflow(s)\n", cancelled, len(state.Workflows))

	if cancelled < len(state.Workflows) {
		return fmt.Errorf("%d cancellation(s) were not acknowledged", len(state.Workflows)-cancelled)
	}
	return nil
}

func confirmCancelAll(platformName string, count int) (bool, error) {
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return false, errors.New("refusing to cancel all workflows without a terminal, pass --yes to confirm")
	}

	var confirmed bool
	err := huh.NewConfirm().
		Title(fmt.Sprintf("Cancel %d running %s workflow(s)?", count, platformName)).
		Affirmative("Cancel them").
		Negative("Keep them").
		Value(&confirmed).
		Run()
	if err != nil {
		return false, fmt.Errorf("confirmation prompt failed: %w", err)
	}

	return confirmed, nil
}

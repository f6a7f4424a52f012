package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/flowbaker/workflow-monitor/internal/domain"
	"github.com/flowbaker/workflow-monitor/internal/monitor"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func printWorkflows(w io.Writer, m *monitor.Monitor, state monitor.State) {
	platform := m.Platform()
	fmt.Fprintf(w, "%s: %d active workflow(s)\n", platform.Name, state.ActiveCount)

	if state.LastError != nil {
		fmt.Fprintf(w, "Last error: %v\n", state.LastError)
	}

	if len(state.Workflows) == 0 {
		fmt.Fprintln(w, "No running workflows.")
		return
	}

	labeler := m.Labeler()
	now := time.Now()

	rows := make([][]string, 0, len(state.Workflows))
	for _, workflow := range state.Workflows {
		started := "-"
		if workflow.StartTime != nil {
			started = workflow.StartTime.Local().Format("2006-01-02 15:04:05")
			if age := now.Sub(*workflow.StartTime); age > 0 {
				started += " (" + age.Truncate(time.Second).String() + ")"
			}
		}

		rows = append(rows, []string{
			workflow.ID,
			labeler.ActionLabel(workflow.Type),
			domain.StatusLabel(string(workflow.Status)),
			started,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "ACTION", "STATUT", "DÉMARRÉ").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	fmt.Fprintln(w, t.Render())

	if state.ActiveCount > len(state.Workflows) {
		fmt.Fprintf(w, "Showing %d of %d.\n", len(state.Workflows), state.ActiveCount)
	}
}

type progressOutput struct {
	WorkflowID  string         `json:"workflow_id" yaml:"workflow_id"`
	Status      string         `json:"status" yaml:"status"`
	StatusLabel string         `json:"status_label" yaml:"status_label"`
	Result      map[string]any `json:"result,omitempty" yaml:"result,omitempty"`
	Error       string         `json:"error,omitempty" yaml:"error,omitempty"`
}

func newProgressOutput(workflowID string, progress *domain.WorkflowProgress) (progressOutput, error) {
	if progress == nil {
		return progressOutput{WorkflowID: workflowID, Status: "unknown", StatusLabel: "unknown"}, nil
	}

	result, err := progress.ResultMap()
	if err != nil {
		return progressOutput{}, fmt.Errorf("failed to decode progress result: %w", err)
	}

	return progressOutput{
		WorkflowID:  progress.ID,
		Status:      string(progress.Status),
		StatusLabel: domain.StatusLabel(string(progress.Status)),
		Result:      result,
		Error:       progress.Error,
	}, nil
}

func printProgress(w io.Writer, format string, output progressOutput) error {
	switch format {
	case outputJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(output)
	case outputYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		defer encoder.Close()
		return encoder.Encode(output)
	case outputText, "":
		fmt.Fprintf(w, "%s: %s\n", output.WorkflowID, output.StatusLabel)
		if output.Error != "" {
			fmt.Fprintf(w, "  error: %s\n", output.Error)
		}
		for _, key := range slices.Sorted(maps.Keys(output.Result)) {
			fmt.Fprintf(w, "  %s: %v\n", key, output.Result[key])
		}
		return nil
	default:
		return fmt.Errorf("unsupported output format %q (text, json or yaml)", format)
	}
}

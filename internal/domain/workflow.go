package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	ErrWorkflowNotFound      = errors.New("workflow not found")
	ErrCancelNotAcknowledged = errors.New("cancellation not acknowledged")
)

// WorkflowStatus is the lowercase status token reported by the orchestration engine
type WorkflowStatus string

const (
	WorkflowStatusPending         WorkflowStatus = "pending"
	WorkflowStatusQueued          WorkflowStatus = "queued"
	WorkflowStatusRunning         WorkflowStatus = "running"
	WorkflowStatusCompleted       WorkflowStatus = "completed"
	WorkflowStatusFailed          WorkflowStatus = "failed"
	WorkflowStatusCancelled       WorkflowStatus = "cancelled"
	WorkflowStatusCanceled        WorkflowStatus = "canceled"
	WorkflowStatusCancelRequested WorkflowStatus = "cancel_requested"
	WorkflowStatusTerminated      WorkflowStatus = "terminated"
	WorkflowStatusTimedOut        WorkflowStatus = "timed_out"
)

// IsTerminal reports whether the engine will not move the workflow any further
func (s WorkflowStatus) IsTerminal() bool {
	switch WorkflowStatus(strings.ToLower(string(s))) {
	case WorkflowStatusCompleted, WorkflowStatusFailed, WorkflowStatusCancelled,
		WorkflowStatusCanceled, WorkflowStatusTerminated, WorkflowStatusTimedOut:
		return true
	}
	return false
}

// WorkflowSummary is an immutable snapshot of one workflow as returned by a list query.
type WorkflowSummary struct {
	ID          string         `json:"workflow_id"`
	Type        string         `json:"workflow_type"`
	Status      WorkflowStatus `json:"status"`
	StartTime   *time.Time     `json:"start_time,omitempty"`
	Marketplace string         `json:"marketplace,omitempty"`
}

// WorkflowProgress is the on-demand detail of a single workflow. Result is opaque to the
// monitor; its meaning depends on the workflow type.
type WorkflowProgress struct {
	ID     string          `json:"workflow_id" yaml:"workflow_id"`
	Status WorkflowStatus  `json:"status" yaml:"status"`
	Result json.RawMessage `json:"result,omitempty" yaml:"-"`
	Error  string          `json:"error,omitempty" yaml:"error,omitempty"`
}

// ResultMap decodes Result into a generic map, returning nil when there is none
func (p WorkflowProgress) ResultMap() (map[string]any, error) {
	if len(p.Result) == 0 || string(p.Result) == "null" {
		return nil, nil
	}

	var result map[string]any
	if err := json.Unmarshal(p.Result, &result); err != nil {
		return nil, err
	}

	return result, nil
}

// WorkflowPage is one page of a list query. Total is the engine's authoritative count
// and may exceed len(Workflows).
type WorkflowPage struct {
	Workflows []WorkflowSummary
	Total     int
}

// CancelAcknowledgment carries the engine's reply to a cancellation request
type CancelAcknowledgment struct {
	WorkflowID string
	Status     string
}

// Accepted reports whether the engine acknowledged the cancellation
func (a CancelAcknowledgment) Accepted() bool {
	return a.Status == string(WorkflowStatusCancelRequested)
}

func RemoveWorkflow(workflows []WorkflowSummary, workflowID string) []WorkflowSummary {
	remaining := make([]WorkflowSummary, 0, len(workflows))
	for _, workflow := range workflows {
		if workflow.ID != workflowID {
			remaining = append(remaining, workflow)
		}
	}
	return remaining
}

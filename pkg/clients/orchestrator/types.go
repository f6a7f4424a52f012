package orchestrator

import (
	"encoding/json"
	"time"
)

// CancelRequestedStatus is the only acknowledgment meaning the engine accepted a cancellation
const CancelRequestedStatus = "cancel_requested"

// DefaultListLimit is the page size used when ListWorkflowsRequest.Limit is zero
const DefaultListLimit = 50

type ListWorkflowsRequest struct {
	Marketplace string
	Status      string
	Limit       int
}

type Workflow struct {
	WorkflowID   string     `json:"workflow_id"`
	WorkflowType string     `json:"workflow_type"`
	Status       string     `json:"status"`
	StartTime    *time.Time `json:"start_time,omitempty"`
	Marketplace  string     `json:"marketplace,omitempty"`
}

type ListWorkflowsResponse struct {
	Workflows []Workflow `json:"workflows"`
	Total     int        `json:"total"`
}

type WorkflowProgress struct {
	WorkflowID string          `json:"workflow_id"`
	Status     string          `json:"status"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
}

type CancelWorkflowResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

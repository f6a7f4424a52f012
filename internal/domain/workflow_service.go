package domain

import "context"

type ListActiveWorkflowsParams struct {
	Marketplace string
	Limit       int
}

// WorkflowService is the request/response boundary toward the orchestration engine.
type WorkflowService interface {
	ListActiveWorkflows(ctx context.Context, params ListActiveWorkflowsParams) (WorkflowPage, error)
	// GetWorkflowProgress returns ErrWorkflowNotFound when the engine does not know the id.
	GetWorkflowProgress(ctx context.Context, workflowID string) (WorkflowProgress, error)
	CancelWorkflow(ctx context.Context, workflowID string) (CancelAcknowledgment, error)
}

package managers

import (
	"context"
	"fmt"

	"github.com/flowbaker/workflow-monitor/internal/domain"
	"github.com/flowbaker/workflow-monitor/pkg/clients/orchestrator"
)

type workflowService struct {
	client orchestrator.ClientInterface
}

type WorkflowServiceDependencies struct {
	Client orchestrator.ClientInterface
}

func NewWorkflowService(deps WorkflowServiceDependencies) domain.WorkflowService {
	return &workflowService{
		client: deps.Client,
	}
}

func (s *workflowService) ListActiveWorkflows(ctx context.Context, params domain.ListActiveWorkflowsParams) (domain.WorkflowPage, error) {
	response, err := s.client.ListWorkflows(ctx, &orchestrator.ListWorkflowsRequest{
		Marketplace: params.Marketplace,
		Status:      string(domain.WorkflowStatusRunning),
		Limit:       params.Limit,
	})
	if err != nil {
		return domain.WorkflowPage{}, fmt.Errorf("failed to list active workflows: %w", err)
	}

	workflows := make([]domain.WorkflowSummary, 0, len(response.Workflows))
	for _, workflow := range response.Workflows {
		workflows = append(workflows, domain.WorkflowSummary{
			ID:          workflow.WorkflowID,
			Type:        workflow.WorkflowType,
			Status:      domain.WorkflowStatus(workflow.Status),
			StartTime:   workflow.StartTime,
			Marketplace: workflow.Marketplace,
		})
	}

	return domain.WorkflowPage{
		Workflows: workflows,
		Total:     response.Total,
	}, nil
}

func (s *workflowService) GetWorkflowProgress(ctx context.Context, workflowID string) (domain.WorkflowProgress, error) {
	if workflowID == "" {
		return domain.WorkflowProgress{}, fmt.Errorf("workflow ID cannot be empty")
	}

	response, err := s.client.GetWorkflowProgress(ctx, workflowID)
	if err != nil {
		if orchestrator.IsNotFound(err) {
			return domain.WorkflowProgress{}, fmt.Errorf("%w: %s", domain.ErrWorkflowNotFound, workflowID)
		}
		return domain.WorkflowProgress{}, fmt.Errorf("failed to get workflow progress: %w", err)
	}

	progress := domain.WorkflowProgress{
		ID:     response.WorkflowID,
		Status: domain.WorkflowStatus(response.Status),
		Result: response.Result,
		Error:  response.Error,
	}
	if progress.ID == "" {
		progress.ID = workflowID
	}

	return progress, nil
}

func (s *workflowService) CancelWorkflow(ctx context.Context, workflowID string) (domain.CancelAcknowledgment, error) {
	if workflowID == "" {
		return domain.CancelAcknowledgment{}, fmt.Errorf("workflow ID cannot be empty")
	}

	response, err := s.client.CancelWorkflow(ctx, workflowID)
	if err != nil {
		return domain.CancelAcknowledgment{}, fmt.Errorf("failed to cancel workflow: %w", err)
	}

	return domain.CancelAcknowledgment{
		WorkflowID: workflowID,
		Status:     response.Status,
	}, nil
}

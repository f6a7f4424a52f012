package controllers

import (
	"time"

	"github.com/flowbaker/workflow-monitor/internal/domain"
	"github.com/flowbaker/workflow-monitor/internal/monitor"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
)

type WorkflowView struct {
	domain.WorkflowSummary
	StatusLabel  string `json:"status_label"`
	StatusColor  string `json:"status_color"`
	ActionLabel  string `json:"action_label"`
	PlatformName string `json:"platform_name"`
}

type MonitorStateResponse struct {
	Marketplace    string         `json:"marketplace"`
	Workflows      []WorkflowView `json:"workflows"`
	ActiveCount    int            `json:"active_count"`
	IsPolling      bool           `json:"is_polling"`
	PollIntervalMS int64          `json:"poll_interval_ms,omitempty"`
	LastError      string         `json:"last_error,omitempty"`
	LastRefresh    *time.Time     `json:"last_refresh,omitempty"`
}

type StartPollingRequest struct {
	IntervalMS int64 `json:"interval_ms"`
}

type LabelsResponse struct {
	Status       string `json:"status,omitempty"`
	StatusLabel  string `json:"status_label,omitempty"`
	StatusColor  string `json:"status_color,omitempty"`
	Type         string `json:"type,omitempty"`
	ActionKey    string `json:"action_key,omitempty"`
	ActionLabel  string `json:"action_label,omitempty"`
	PlatformName string `json:"platform_name,omitempty"`
}

// MonitorController exposes one monitor to a UI layer
type MonitorController struct {
	monitor *monitor.Monitor
}

type MonitorControllerDependencies struct {
	Monitor *monitor.Monitor
}

func NewMonitorController(deps MonitorControllerDependencies) *MonitorController {
	return &MonitorController{
		monitor: deps.Monitor,
	}
}

func (c *MonitorController) GetState(ctx fiber.Ctx) error {
	return ctx.JSON(c.stateResponse())
}

func (c *MonitorController) StartPolling(ctx fiber.Ctx) error {
	var req StartPollingRequest

	if len(ctx.Body()) > 0 {
		if err := ctx.Bind().Body(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
	}

	if req.IntervalMS < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "interval_ms cannot be negative")
	}

	interval := time.Duration(req.IntervalMS) * time.Millisecond

	if err := c.monitor.StartPolling(interval); err != nil {
		log.Error().Err(err).Msg("Failed to start polling")
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}

	return ctx.JSON(c.stateResponse())
}

func (c *MonitorController) StopPolling(ctx fiber.Ctx) error {
	c.monitor.StopPolling()

	return ctx.JSON(c.stateResponse())
}

func (c *MonitorController) Refresh(ctx fiber.Ctx) error {
	if _, err := c.monitor.FetchActive(ctx.RequestCtx()); err != nil {
		return ctx.Status(fiber.StatusBadGateway).JSON(c.stateResponse())
	}

	return ctx.JSON(c.stateResponse())
}

func (c *MonitorController) GetProgress(ctx fiber.Ctx) error {
	workflowID := ctx.Params("id")

	progress := c.monitor.FetchProgress(ctx.RequestCtx(), workflowID)
	if progress == nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"workflow_id": workflowID,
			"status":      "unknown",
		})
	}

	return ctx.JSON(progress)
}

func (c *MonitorController) CancelWorkflow(ctx fiber.Ctx) error {
	workflowID := ctx.Params("id")

	cancelled := c.monitor.Cancel(ctx.RequestCtx(), workflowID)

	return ctx.JSON(fiber.Map{
		"workflow_id": workflowID,
		"cancelled":   cancelled,
	})
}

func (c *MonitorController) CancelAll(ctx fiber.Ctx) error {
	cancelled := c.monitor.CancelAll(ctx.RequestCtx())

	return ctx.JSON(fiber.Map{
		"cancelled": cancelled,
	})
}

func (c *MonitorController) GetLabels(ctx fiber.Ctx) error {
	status := ctx.Query("status")
	workflowType := ctx.Query("type")

	if status == "" && workflowType == "" {
		return fiber.NewError(fiber.StatusBadRequest, "status or type query parameter is required")
	}

	var response LabelsResponse

	if status != "" {
		response.Status = status
		response.StatusLabel = domain.StatusLabel(status)
		response.StatusColor = domain.StatusColor(status)
	}

	if workflowType != "" {
		labeler := c.monitor.Labeler()
		response.Type = workflowType
		response.ActionKey = labeler.ActionKey(workflowType)
		response.ActionLabel = labeler.ActionLabel(workflowType)
		response.PlatformName = labeler.PlatformName(workflowType)
	}

	return ctx.JSON(response)
}

func (c *MonitorController) stateResponse() MonitorStateResponse {
	state := c.monitor.Snapshot()
	labeler := c.monitor.Labeler()

	views := make([]WorkflowView, 0, len(state.Workflows))
	for _, workflow := range state.Workflows {
		views = append(views, NewWorkflowView(labeler, workflow))
	}

	response := MonitorStateResponse{
		Marketplace:    c.monitor.Platform().Tag,
		Workflows:      views,
		ActiveCount:    state.ActiveCount,
		IsPolling:      state.IsPolling,
		PollIntervalMS: c.monitor.PollInterval().Milliseconds(),
	}

	if state.LastError != nil {
		response.LastError = state.LastError.Error()
	}

	if !state.LastRefresh.IsZero() {
		lastRefresh := state.LastRefresh.UTC()
		response.LastRefresh = &lastRefresh
	}

	return response
}

func NewWorkflowView(labeler *domain.Labeler, workflow domain.WorkflowSummary) WorkflowView {
	return WorkflowView{
		WorkflowSummary: workflow,
		StatusLabel:     domain.StatusLabel(string(workflow.Status)),
		StatusColor:     domain.StatusColor(string(workflow.Status)),
		ActionLabel:     labeler.ActionLabel(workflow.Type),
		PlatformName:    labeler.PlatformName(workflow.Type),
	}
}

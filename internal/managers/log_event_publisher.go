package managers

import (
	"context"

	"github.com/flowbaker/workflow-monitor/internal/domain"
	"github.com/rs/zerolog"
)

// LogEventPublisher writes monitor events as structured log entries
type LogEventPublisher struct {
	logger zerolog.Logger
}

func NewLogEventPublisher(logger zerolog.Logger) *LogEventPublisher {
	return &LogEventPublisher{
		logger: logger,
	}
}

func (p *LogEventPublisher) PublishEvent(ctx context.Context, event domain.Event) error {
	monitorEvent, ok := event.(*domain.MonitorEvent)
	if !ok {
		p.logger.Debug().Str("event_type", string(event.GetType())).Msg("monitor event")
		return nil
	}

	var entry *zerolog.Event
	switch {
	case monitorEvent.IsFailure():
		entry = p.logger.Error()
	case monitorEvent.Type == domain.WorkflowCancelRejected:
		entry = p.logger.Warn()
	default:
		entry = p.logger.Info()
	}

	entry = entry.
		Str("event_type", string(monitorEvent.Type)).
		Str("marketplace", monitorEvent.Marketplace)

	if monitorEvent.WorkflowID != "" {
		entry = entry.Str("workflow_id", monitorEvent.WorkflowID)
	}
	if monitorEvent.Status != "" {
		entry = entry.Str("status", monitorEvent.Status)
	}
	if monitorEvent.Type == domain.WorkflowsBulkCancelled {
		entry = entry.Int("attempted", monitorEvent.Attempted).Int("succeeded", monitorEvent.Succeeded)
	}
	if monitorEvent.Error != "" {
		entry = entry.Str("error", monitorEvent.Error)
	}

	entry.Msg(eventMessages[monitorEvent.Type])

	return nil
}

var eventMessages = map[domain.EventType]string{
	domain.WorkflowsFetchFailed:   "Failed to fetch active workflows",
	domain.ProgressFetchFailed:    "Failed to fetch workflow progress",
	domain.WorkflowCancelled:      "Workflow cancellation requested",
	domain.WorkflowCancelRejected: "Workflow cancellation not acknowledged",
	domain.WorkflowCancelFailed:   "Failed to cancel workflow",
	domain.WorkflowsBulkCancelled: "Bulk cancellation finished",
}

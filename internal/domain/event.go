package domain

import (
	"context"
	"errors"
	"time"
)

type EventPublisher interface {
	PublishEvent(ctx context.Context, event Event) error
}

type Event interface {
	GetType() EventType
}

type EventType string

const (
	WorkflowsFetchFailed   EventType = "workflows_fetch_failed"
	ProgressFetchFailed    EventType = "progress_fetch_failed"
	WorkflowCancelled      EventType = "workflow_cancelled"
	WorkflowCancelRejected EventType = "workflow_cancel_rejected"
	WorkflowCancelFailed   EventType = "workflow_cancel_failed"
	WorkflowsBulkCancelled EventType = "workflows_bulk_cancelled"
)

// MonitorEvent is what the workflow monitor reports to its observability sink.
type MonitorEvent struct {
	Type        EventType `json:"type"`
	Marketplace string    `json:"marketplace"`
	WorkflowID  string    `json:"workflow_id,omitempty"`
	Status      string    `json:"status,omitempty"`
	Error       string    `json:"error,omitempty"`
	Attempted   int       `json:"attempted,omitempty"`
	Succeeded   int       `json:"succeeded,omitempty"`
	Timestamp   int64     `json:"timestamp"`
}

func (e *MonitorEvent) GetType() EventType {
	return e.Type
}

// IsFailure reports whether the event describes an operation that did not go through
func (e *MonitorEvent) IsFailure() bool {
	switch e.Type {
	case WorkflowsFetchFailed, ProgressFetchFailed, WorkflowCancelFailed:
		return true
	}
	return false
}

func NewMonitorEvent(eventType EventType, marketplace string) *MonitorEvent {
	return &MonitorEvent{
		Type:        eventType,
		Marketplace: marketplace,
		Timestamp:   time.Now().UnixMilli(),
	}
}

func (e *MonitorEvent) WithWorkflow(workflowID string) *MonitorEvent {
	e.WorkflowID = workflowID
	return e
}

func (e *MonitorEvent) WithError(err error) *MonitorEvent {
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

func (e *MonitorEvent) WithStatus(status string) *MonitorEvent {
	e.Status = status
	return e
}

// FanoutEventPublisher forwards each event to every publisher, joining their errors.
type FanoutEventPublisher struct {
	publishers []EventPublisher
}

func NewFanoutEventPublisher(publishers ...EventPublisher) *FanoutEventPublisher {
	return &FanoutEventPublisher{
		publishers: publishers,
	}
}

func (p *FanoutEventPublisher) PublishEvent(ctx context.Context, event Event) error {
	var errs []error

	for _, publisher := range p.publishers {
		if err := publisher.PublishEvent(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

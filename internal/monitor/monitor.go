package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flowbaker/workflow-monitor/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	DefaultPollInterval = 3 * time.Second
	DefaultPageLimit    = 50
)

var ErrMonitorClosed = errors.New("monitor is closed")

// State is a consistent copy of what the monitor currently knows.
type State struct {
	Workflows   []domain.WorkflowSummary
	ActiveCount int
	IsPolling   bool
	LastError   error
	LastRefresh time.Time
}

type MonitorDependencies struct {
	Service        domain.WorkflowService
	EventPublisher domain.EventPublisher
	Scheduler      Scheduler
	Platform       domain.Platform
	Labeler        *domain.Labeler
	PageLimit      int
	// Interactive is false when no live owner consumes the view (batch or server-side
	// rendering); polling is then a no-op.
	Interactive bool
}

// Monitor keeps a near-real-time view of the running workflows of one marketplace and
// mediates their cancellation.
//
// Responses to list requests are applied in issuance order: every request takes a
// sequence number and a response older than the last applied one is dropped. Optimistic
// removals done by Cancel do not take part in that ordering, so a list response that
// was already in flight may bring a cancelled workflow back until the engine catches up.
type Monitor struct {
	service     domain.WorkflowService
	publisher   domain.EventPublisher
	scheduler   Scheduler
	platform    domain.Platform
	labeler     *domain.Labeler
	pageLimit   int
	interactive bool

	issuedSeq atomic.Uint64

	// pollMu serializes start, stop and close
	pollMu sync.Mutex

	mu          sync.RWMutex
	workflows   []domain.WorkflowSummary
	activeCount int
	lastErr     error
	lastRefresh time.Time
	appliedSeq  uint64
	poller      *poller
	closed      bool
}

// poller is one polling loop. Its context is cancelled on stop so that a request in
// flight is aborted and whatever it returns is dropped.
type poller struct {
	ctx      context.Context
	cancel   context.CancelFunc
	handle   PollHandle
	interval time.Duration
	busy     atomic.Bool
}

func NewMonitor(deps MonitorDependencies) *Monitor {
	scheduler := deps.Scheduler
	if scheduler == nil {
		scheduler = NewGocronScheduler()
	}

	labeler := deps.Labeler
	if labeler == nil {
		labeler = domain.NewLabeler([]domain.Platform{deps.Platform})
	}

	pageLimit := deps.PageLimit
	if pageLimit <= 0 {
		pageLimit = DefaultPageLimit
	}

	return &Monitor{
		service:     deps.Service,
		publisher:   deps.EventPublisher,
		scheduler:   scheduler,
		platform:    deps.Platform,
		labeler:     labeler,
		pageLimit:   pageLimit,
		interactive: deps.Interactive,
		workflows:   []domain.WorkflowSummary{},
	}
}

func (m *Monitor) Platform() domain.Platform {
	return m.platform
}

func (m *Monitor) Labeler() *domain.Labeler {
	return m.labeler
}

// FetchActive lists the running workflows of the monitor's marketplace and replaces the
// local view with the result. On failure the previous view is kept and the error is
// recorded as the last error.
func (m *Monitor) FetchActive(ctx context.Context) (domain.WorkflowPage, error) {
	return m.fetchActive(ctx, nil)
}

func (m *Monitor) fetchActive(ctx context.Context, owner *poller) (domain.WorkflowPage, error) {
	seq := m.issuedSeq.Add(1)

	page, err := m.service.ListActiveWorkflows(ctx, domain.ListActiveWorkflowsParams{
		Marketplace: m.platform.Tag,
		Limit:       m.pageLimit,
	})

	m.mu.Lock()

	if owner != nil && owner.ctx.Err() != nil {
		m.mu.Unlock()
		log.Debug().Str("marketplace", m.platform.Tag).Uint64("seq", seq).Msg("Dropping response of a stopped polling loop")
		return page, err
	}

	if seq < m.appliedSeq {
		applied := m.appliedSeq
		m.mu.Unlock()
		log.Debug().
			Str("marketplace", m.platform.Tag).
			Uint64("seq", seq).
			Uint64("applied_seq", applied).
			Msg("Dropping stale workflows response")
		return page, err
	}

	m.appliedSeq = seq

	if err != nil {
		m.lastErr = err
		m.mu.Unlock()

		m.publish(ctx, domain.NewMonitorEvent(domain.WorkflowsFetchFailed, m.platform.Tag).WithError(err))

		return domain.WorkflowPage{}, err
	}

	workflows := make([]domain.WorkflowSummary, len(page.Workflows))
	copy(workflows, page.Workflows)

	m.workflows = workflows
	m.activeCount = max(page.Total, len(workflows))
	m.lastErr = nil
	m.lastRefresh = time.Now()
	m.mu.Unlock()

	return page, nil
}

// FetchProgress returns the current progress of one workflow, or nil when it cannot be
// determined right now.
func (m *Monitor) FetchProgress(ctx context.Context, workflowID string) *domain.WorkflowProgress {
	progress, err := m.service.GetWorkflowProgress(ctx, workflowID)
	if err != nil {
		m.publish(ctx, domain.NewMonitorEvent(domain.ProgressFetchFailed, m.platform.Tag).
			WithWorkflow(workflowID).
			WithError(err))
		return nil
	}

	return &progress
}

// Cancel asks the engine to cancel a workflow. It returns true only when the engine
// acknowledges with cancel_requested, in which case the workflow leaves the local view
// at once and the active count becomes the size of the remaining view.
func (m *Monitor) Cancel(ctx context.Context, workflowID string) bool {
	ack, err := m.service.CancelWorkflow(ctx, workflowID)
	if err != nil {
		m.mu.Lock()
		m.lastErr = fmt.Errorf("failed to cancel workflow %s: %w", workflowID, err)
		m.mu.Unlock()

		m.publish(ctx, domain.NewMonitorEvent(domain.WorkflowCancelFailed, m.platform.Tag).
			WithWorkflow(workflowID).
			WithError(err))
		return false
	}

	if !ack.Accepted() {
		m.publish(ctx, domain.NewMonitorEvent(domain.WorkflowCancelRejected, m.platform.Tag).
			WithWorkflow(workflowID).
			WithStatus(ack.Status))
		return false
	}

	m.mu.Lock()
	m.workflows = domain.RemoveWorkflow(m.workflows, workflowID)
	m.activeCount = len(m.workflows)
	m.mu.Unlock()

	m.publish(ctx, domain.NewMonitorEvent(domain.WorkflowCancelled, m.platform.Tag).
		WithWorkflow(workflowID).
		WithStatus(ack.Status))

	return true
}

// CancelAll cancels every workflow of the current view one after the other and returns
// how many were acknowledged. The view is copied first, so removals made along the way
// do not change which workflows are attempted.
func (m *Monitor) CancelAll(ctx context.Context) int {
	targets := m.Snapshot().Workflows

	attempted := 0
	cancelled := 0
	for _, workflow := range targets {
		if ctx.Err() != nil {
			break
		}

		attempted++
		if m.Cancel(ctx, workflow.ID) {
			cancelled++
		}
	}

	event := domain.NewMonitorEvent(domain.WorkflowsBulkCancelled, m.platform.Tag)
	event.Attempted = attempted
	event.Succeeded = cancelled
	m.publish(ctx, event)

	return cancelled
}

// StartPolling fetches immediately and then every interval until StopPolling or Close.
// A loop already running is stopped first. Outside an interactive context it does nothing.
func (m *Monitor) StartPolling(interval time.Duration) error {
	if !m.interactive {
		log.Debug().Str("marketplace", m.platform.Tag).Msg("Not an interactive context, polling disabled")
		return nil
	}

	if interval <= 0 {
		interval = DefaultPollInterval
	}

	m.pollMu.Lock()
	defer m.pollMu.Unlock()

	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return ErrMonitorClosed
	}

	m.stopPollingLocked()

	ctx, cancel := context.WithCancel(context.Background())
	p := &poller{
		ctx:      ctx,
		cancel:   cancel,
		interval: interval,
	}

	handle, err := m.scheduler.Every(interval, func() { m.tick(p) })
	if err != nil {
		cancel()
		return fmt.Errorf("failed to start polling: %w", err)
	}
	p.handle = handle

	m.mu.Lock()
	m.poller = p
	m.mu.Unlock()

	log.Debug().
		Str("marketplace", m.platform.Tag).
		Dur("interval", interval).
		Msg("Polling started")

	return nil
}

func (m *Monitor) tick(p *poller) {
	if p.ctx.Err() != nil {
		return
	}

	if !p.busy.CompareAndSwap(false, true) {
		log.Debug().Str("marketplace", m.platform.Tag).Msg("Previous poll still in flight, skipping tick")
		return
	}
	defer p.busy.Store(false)

	// errors are recorded by fetchActive; the loop keeps going
	_, _ = m.fetchActive(p.ctx, p)
}

// StopPolling cancels the polling loop, if any.
func (m *Monitor) StopPolling() {
	m.pollMu.Lock()
	defer m.pollMu.Unlock()

	m.stopPollingLocked()
}

func (m *Monitor) stopPollingLocked() {
	m.mu.Lock()
	p := m.poller
	m.poller = nil
	m.mu.Unlock()

	if p == nil {
		return
	}

	p.cancel()
	p.handle.Stop()

	log.Debug().Str("marketplace", m.platform.Tag).Msg("Polling stopped")
}

// Close releases the polling loop. The monitor cannot poll again afterwards.
func (m *Monitor) Close() error {
	m.pollMu.Lock()
	defer m.pollMu.Unlock()

	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.stopPollingLocked()

	return nil
}

func (m *Monitor) IsPolling() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.poller != nil
}

// PollInterval returns the interval of the running loop, zero when not polling
func (m *Monitor) PollInterval() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.poller == nil {
		return 0
	}
	return m.poller.interval
}

func (m *Monitor) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.lastErr
}

func (m *Monitor) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	workflows := make([]domain.WorkflowSummary, len(m.workflows))
	copy(workflows, m.workflows)

	return State{
		Workflows:   workflows,
		ActiveCount: m.activeCount,
		IsPolling:   m.poller != nil,
		LastError:   m.lastErr,
		LastRefresh: m.lastRefresh,
	}
}

func (m *Monitor) publish(ctx context.Context, event *domain.MonitorEvent) {
	if m.publisher == nil {
		return
	}

	if err := m.publisher.PublishEvent(context.WithoutCancel(ctx), event); err != nil {
		log.Warn().
			Err(err).
			Str("event_type", string(event.Type)).
			Str("marketplace", m.platform.Tag).
			Msg("Failed to publish monitor event")
	}
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/flowbaker/workflow-monitor/internal/auth"
	"github.com/flowbaker/workflow-monitor/internal/controllers"
	"github.com/flowbaker/workflow-monitor/internal/domain"
	"github.com/flowbaker/workflow-monitor/internal/monitor"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	mu        sync.Mutex
	workflows []domain.WorkflowSummary
	listErr   error
	cancelled []string
}

func (s *stubService) ListActiveWorkflows(ctx context.Context, params domain.ListActiveWorkflowsParams) (domain.WorkflowPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listErr != nil {
		return domain.WorkflowPage{}, s.listErr
	}
	return domain.WorkflowPage{Workflows: s.workflows, Total: len(s.workflows)}, nil
}

func (s *stubService) GetWorkflowProgress(ctx context.Context, workflowID string) (domain.WorkflowProgress, error) {
	if workflowID != "wf-1" {
		return domain.WorkflowProgress{}, domain.ErrWorkflowNotFound
	}
	return domain.WorkflowProgress{
		ID:     "wf-1",
		Status: domain.WorkflowStatusRunning,
		Result: json.RawMessage(`{"published":3}`),
	}, nil
}

func (s *stubService) CancelWorkflow(ctx context.Context, workflowID string) (domain.CancelAcknowledgment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelled = append(s.cancelled, workflowID)
	if workflowID == "wf-done" {
		return domain.CancelAcknowledgment{WorkflowID: workflowID, Status: "completed"}, nil
	}
	return domain.CancelAcknowledgment{WorkflowID: workflowID, Status: "cancel_requested"}, nil
}

// onceScheduler runs the task once and never again
type onceScheduler struct{}

type noopHandle struct{}

func (noopHandle) Stop() {}

func (onceScheduler) Every(interval time.Duration, task func()) (monitor.PollHandle, error) {
	task()
	return noopHandle{}, nil
}

func newTestApp(t *testing.T, service *stubService, publicKey string) (*fiber.App, *monitor.Monitor) {
	t.Helper()

	workflowMonitor := monitor.NewMonitor(monitor.MonitorDependencies{
		Service:     service,
		Scheduler:   onceScheduler{},
		Platform:    domain.Platform{Tag: "vinted", Name: "Vinted", TypePrefix: "Vinted"},
		Labeler:     domain.NewLabeler(domain.DefaultPlatforms()),
		Interactive: true,
	})
	t.Cleanup(func() { workflowMonitor.Close() })

	app, err := NewHTTPServer(HTTPServerDependencies{
		MonitorController: controllers.NewMonitorController(controllers.MonitorControllerDependencies{
			Monitor: workflowMonitor,
		}),
		ControlPublicKey:  publicKey,
		DisableRequestLog: true,
	})
	require.NoError(t, err)

	return app, workflowMonitor
}

func doJSON(t *testing.T, app *fiber.App, req *http.Request, out any) *http.Response {
	t.Helper()

	resp, err := app.Test(req)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	if out != nil {
		require.NoError(t, json.Unmarshal(body, out), string(body))
	}
	return resp
}

func newRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func runningService() *stubService {
	return &stubService{
		workflows: []domain.WorkflowSummary{
			{ID: "wf-1", Type: "VintedPublishWorkflow", Status: domain.WorkflowStatusRunning},
			{ID: "wf-2", Type: "VintedSyncWorkflow", Status: domain.WorkflowStatusQueued},
		},
	}
}

func TestHealth(t *testing.T) {
	app, _ := newTestApp(t, runningService(), "")

	var body map[string]any
	resp := doJSON(t, app, newRequest(http.MethodGet, "/health", ""), &body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
}

func TestMonitorState_EmptyBeforeFirstFetch(t *testing.T) {
	app, _ := newTestApp(t, runningService(), "")

	var state controllers.MonitorStateResponse
	resp := doJSON(t, app, newRequest(http.MethodGet, "/monitor", ""), &state)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "vinted", state.Marketplace)
	assert.Empty(t, state.Workflows)
	assert.False(t, state.IsPolling)
	assert.Nil(t, state.LastRefresh)
}

func TestMonitorRefresh_LabelsWorkflows(t *testing.T) {
	app, _ := newTestApp(t, runningService(), "")

	var state controllers.MonitorStateResponse
	resp := doJSON(t, app, newRequest(http.MethodPost, "/monitor/refresh", ""), &state)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, state.Workflows, 2)
	assert.Equal(t, 2, state.ActiveCount)
	assert.NotNil(t, state.LastRefresh)

	first := state.Workflows[0]
	assert.Equal(t, "wf-1", first.ID)
	assert.Equal(t, "En cours", first.StatusLabel)
	assert.Equal(t, domain.ColorInfo, first.StatusColor)
	assert.Equal(t, "Publication", first.ActionLabel)
	assert.Equal(t, "Vinted", first.PlatformName)

	assert.Equal(t, "Synchronisation", state.Workflows[1].ActionLabel)
}

func TestMonitorRefresh_FailureKeepsView(t *testing.T) {
	service := runningService()
	app, _ := newTestApp(t, service, "")

	doJSON(t, app, newRequest(http.MethodPost, "/monitor/refresh", ""), nil)

	service.mu.Lock()
	service.listErr = errors.New("engine unavailable")
	service.mu.Unlock()

	var state controllers.MonitorStateResponse
	resp := doJSON(t, app, newRequest(http.MethodPost, "/monitor/refresh", ""), &state)

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Len(t, state.Workflows, 2)
	assert.Equal(t, "engine unavailable", state.LastError)
}

func TestMonitorPolling_StartAndStop(t *testing.T) {
	app, workflowMonitor := newTestApp(t, runningService(), "")

	var state controllers.MonitorStateResponse
	resp := doJSON(t, app, newRequest(http.MethodPost, "/monitor/polling", `{"interval_ms":1500}`), &state)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, state.IsPolling)
	assert.Equal(t, int64(1500), state.PollIntervalMS)
	assert.Len(t, state.Workflows, 2)

	resp = doJSON(t, app, newRequest(http.MethodDelete, "/monitor/polling", ""), &state)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, state.IsPolling)
	assert.False(t, workflowMonitor.IsPolling())
}

func TestMonitorPolling_DefaultInterval(t *testing.T) {
	app, _ := newTestApp(t, runningService(), "")

	var state controllers.MonitorStateResponse
	doJSON(t, app, newRequest(http.MethodPost, "/monitor/polling", ""), &state)

	assert.Equal(t, monitor.DefaultPollInterval.Milliseconds(), state.PollIntervalMS)
}

func TestMonitorPolling_RejectsNegativeInterval(t *testing.T) {
	app, _ := newTestApp(t, runningService(), "")

	resp := doJSON(t, app, newRequest(http.MethodPost, "/monitor/polling", `{"interval_ms":-5}`), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProgress(t *testing.T) {
	app, _ := newTestApp(t, runningService(), "")

	var progress domain.WorkflowProgress
	resp := doJSON(t, app, newRequest(http.MethodGet, "/monitor/workflows/wf-1/progress", ""), &progress)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.WorkflowStatusRunning, progress.Status)
	assert.JSONEq(t, `{"published":3}`, string(progress.Result))

	var unknown map[string]string
	resp = doJSON(t, app, newRequest(http.MethodGet, "/monitor/workflows/wf-404/progress", ""), &unknown)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "unknown", unknown["status"])
}

func TestCancel(t *testing.T) {
	service := runningService()
	app, workflowMonitor := newTestApp(t, service, "")
	doJSON(t, app, newRequest(http.MethodPost, "/monitor/refresh", ""), nil)

	var result map[string]any
	doJSON(t, app, newRequest(http.MethodPost, "/monitor/workflows/wf-1/cancel", ""), &result)
	assert.Equal(t, true, result["cancelled"])

	state := workflowMonitor.Snapshot()
	require.Len(t, state.Workflows, 1)
	assert.Equal(t, "wf-2", state.Workflows[0].ID)
	assert.Equal(t, 1, state.ActiveCount)

	doJSON(t, app, newRequest(http.MethodPost, "/monitor/workflows/wf-done/cancel", ""), &result)
	assert.Equal(t, false, result["cancelled"])
}

func TestCancelAll(t *testing.T) {
	service := runningService()
	app, workflowMonitor := newTestApp(t, service, "")
	doJSON(t, app, newRequest(http.MethodPost, "/monitor/refresh", ""), nil)

	var result map[string]int
	doJSON(t, app, newRequest(http.MethodPost, "/monitor/cancel-all", ""), &result)

	assert.Equal(t, 2, result["cancelled"])
	assert.Equal(t, []string{"wf-1", "wf-2"}, service.cancelled)
	assert.Empty(t, workflowMonitor.Snapshot().Workflows)
}

func TestLabels(t *testing.T) {
	app, _ := newTestApp(t, runningService(), "")

	var labels controllers.LabelsResponse
	resp := doJSON(t, app, newRequest(http.MethodGet, "/labels?status=RUNNING&type=EtsyOrderssyncWorkflow", ""), &labels)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "En cours", labels.StatusLabel)
	assert.Equal(t, "orderssync", labels.ActionKey)
	assert.Equal(t, "Sync commandes", labels.ActionLabel)
	assert.Equal(t, "Etsy", labels.PlatformName)

	resp = doJSON(t, app, newRequest(http.MethodGet, "/labels", ""), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSignedRoutes(t *testing.T) {
	publicKey, privateKey, err := auth.GenerateKeyPair()
	require.NoError(t, err)

	service := runningService()
	app, _ := newTestApp(t, service, publicKey)

	// reads stay open
	resp := doJSON(t, app, newRequest(http.MethodGet, "/monitor", ""), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, newRequest(http.MethodPost, "/monitor/cancel-all", ""), nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, service.cancelled)

	signer, err := auth.NewAPIRequestSigner(privateKey)
	require.NoError(t, err)

	req := newRequest(http.MethodPost, "/monitor/refresh", "")
	headers, err := signer.SignRequest(http.MethodPost, "/monitor/refresh", nil)
	require.NoError(t, err)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp = doJSON(t, app, req, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNewHTTPServer_InvalidControlKey(t *testing.T) {
	_, err := NewHTTPServer(HTTPServerDependencies{
		MonitorController: controllers.NewMonitorController(controllers.MonitorControllerDependencies{}),
		ControlPublicKey:  "not-a-key",
	})
	assert.Error(t, err)
}

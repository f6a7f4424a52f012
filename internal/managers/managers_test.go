package managers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/flowbaker/workflow-monitor/internal/domain"
	"github.com/flowbaker/workflow-monitor/pkg/clients/orchestrator"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServiceWithServer(t *testing.T, mux *http.ServeMux) domain.WorkflowService {
	t.Helper()

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := orchestrator.NewClient(
		orchestrator.WithBaseURL(server.URL),
		orchestrator.WithRetryAttempts(0),
	)
	require.NoError(t, err)

	return NewWorkflowService(WorkflowServiceDependencies{Client: client})
}

func TestWorkflowService_ListActiveWorkflows(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/workflows", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "running", r.URL.Query().Get("status"))
		assert.Equal(t, "etsy", r.URL.Query().Get("marketplace"))
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"workflows":[{"workflow_id":"wf-1","workflow_type":"EtsyOrderssyncWorkflow","status":"running","marketplace":"etsy"}],"total":42}`))
	})

	service := newServiceWithServer(t, mux)

	page, err := service.ListActiveWorkflows(context.Background(), domain.ListActiveWorkflowsParams{
		Marketplace: "etsy",
		Limit:       20,
	})
	require.NoError(t, err)

	assert.Equal(t, 42, page.Total)
	assert.Equal(t, []domain.WorkflowSummary{{
		ID:          "wf-1",
		Type:        "EtsyOrderssyncWorkflow",
		Status:      domain.WorkflowStatusRunning,
		Marketplace: "etsy",
	}}, page.Workflows)
}

func TestWorkflowService_GetWorkflowProgress(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/workflows/wf-1/progress", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"workflow_id":"wf-1","status":"running","result":{"published":3,"total":10}}`))
	})
	mux.HandleFunc("GET /api/v1/workflows/missing/progress", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	service := newServiceWithServer(t, mux)

	progress, err := service.GetWorkflowProgress(context.Background(), "wf-1")
	require.NoError(t, err)
	assert.Equal(t, domain.WorkflowStatusRunning, progress.Status)

	result, err := progress.ResultMap()
	require.NoError(t, err)
	assert.Equal(t, float64(3), result["published"])

	_, err = service.GetWorkflowProgress(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrWorkflowNotFound)
}

func TestWorkflowService_CancelWorkflow(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/workflows/wf-1/cancel", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"cancel_requested"}`))
	})
	mux.HandleFunc("POST /api/v1/workflows/wf-2/cancel", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"already_completed"}`))
	})

	service := newServiceWithServer(t, mux)

	ack, err := service.CancelWorkflow(context.Background(), "wf-1")
	require.NoError(t, err)
	assert.True(t, ack.Accepted())

	ack, err = service.CancelWorkflow(context.Background(), "wf-2")
	require.NoError(t, err)
	assert.False(t, ack.Accepted())
	assert.Equal(t, "already_completed", ack.Status)
}

func TestLogEventPublisher(t *testing.T) {
	var buf bytes.Buffer
	publisher := NewLogEventPublisher(zerolog.New(&buf))

	event := domain.NewMonitorEvent(domain.WorkflowCancelFailed, "vinted").
		WithWorkflow("wf-9").
		WithError(errors.New("connection refused"))

	require.NoError(t, publisher.PublishEvent(context.Background(), event))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "wf-9", entry["workflow_id"])
	assert.Equal(t, "connection refused", entry["error"])
	assert.Equal(t, "Failed to cancel workflow", entry["message"])
}

func TestLogEventPublisher_RejectedCancellationIsWarning(t *testing.T) {
	var buf bytes.Buffer
	publisher := NewLogEventPublisher(zerolog.New(&buf))

	event := domain.NewMonitorEvent(domain.WorkflowCancelRejected, "vinted").WithWorkflow("wf-1").WithStatus("not_running")
	require.NoError(t, publisher.PublishEvent(context.Background(), event))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "not_running", entry["status"])
}

func TestEncodeRedisEvent(t *testing.T) {
	event := domain.NewMonitorEvent(domain.WorkflowCancelled, "ebay").WithWorkflow("wf-3")

	payload, err := encodeRedisEvent(event)
	require.NoError(t, err)

	var decoded struct {
		EventType string             `json:"event_type"`
		Data      domain.MonitorEvent `json:"data"`
	}
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, "workflow_cancelled", decoded.EventType)
	assert.Equal(t, "wf-3", decoded.Data.WorkflowID)
	assert.Equal(t, "ebay", decoded.Data.Marketplace)
}

func TestRedisEventPublisher_UnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	publisher := NewRedisEventPublisher(RedisEventPublisherDependencies{Client: client})
	defer publisher.Close()

	err := publisher.PublishEvent(context.Background(), domain.NewMonitorEvent(domain.WorkflowCancelled, "vinted"))
	assert.ErrorContains(t, err, "failed to publish event to redis")
	assert.Equal(t, DefaultRedisChannel, publisher.channel)
}

func TestNewRedisClientFromURL(t *testing.T) {
	client, err := NewRedisClientFromURL("redis://localhost:6379/2")
	require.NoError(t, err)
	assert.Equal(t, 2, client.Options().DB)
	client.Close()

	_, err = NewRedisClientFromURL("http://nope")
	assert.Error(t, err)
}

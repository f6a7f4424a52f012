package initialization

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/flowbaker/workflow-monitor/internal/config"
	"github.com/flowbaker/workflow-monitor/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		APIBaseURL:     baseURL,
		Marketplace:    "etsy",
		PollInterval:   time.Second,
		PageLimit:      10,
		RequestTimeout: time.Second,
		Platforms:      domain.DefaultPlatforms(),
	}
}

func TestNewMonitorContainer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "etsy", r.URL.Query().Get("marketplace"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"workflows":[{"workflow_id":"wf-1","workflow_type":"EtsyImportWorkflow","status":"running"}],"total":1}`))
	}))
	defer server.Close()

	container, err := NewMonitorContainer(context.Background(), MonitorDependencyConfig{
		Config: testConfig(server.URL),
	})
	require.NoError(t, err)

	workflowMonitor := container.GetMonitor()
	assert.Equal(t, "Etsy", workflowMonitor.Platform().Name)
	assert.Equal(t, "Import", workflowMonitor.Labeler().ActionLabel("EtsyImportWorkflow"))

	page, err := workflowMonitor.FetchActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	// not interactive: polling stays off
	require.NoError(t, workflowMonitor.StartPolling(time.Second))
	assert.False(t, workflowMonitor.IsPolling())

	assert.NoError(t, container.Close())
}

func TestNewMonitorContainer_Errors(t *testing.T) {
	_, err := NewMonitorContainer(context.Background(), MonitorDependencyConfig{})
	assert.Error(t, err)

	cfg := testConfig("http://localhost:8080")
	cfg.Marketplace = "amazon"
	_, err = NewMonitorContainer(context.Background(), MonitorDependencyConfig{Config: cfg})
	assert.ErrorContains(t, err, `unknown marketplace "amazon"`)

	cfg = testConfig("http://localhost:8080")
	cfg.SigningKey = "not-a-key"
	_, err = NewMonitorContainer(context.Background(), MonitorDependencyConfig{Config: cfg})
	assert.ErrorContains(t, err, "failed to create orchestrator client")

	cfg = testConfig("http://localhost:8080")
	cfg.Redis.URL = "ftp://nope"
	_, err = NewMonitorContainer(context.Background(), MonitorDependencyConfig{Config: cfg})
	assert.Error(t, err)
}

func TestNewMonitorContainer_HeadlessDisablesPolling(t *testing.T) {
	cfg := testConfig("http://localhost:8080")
	cfg.Headless = true

	container, err := NewMonitorContainer(context.Background(), MonitorDependencyConfig{
		Config:      cfg,
		Interactive: true,
	})
	require.NoError(t, err)
	defer container.Close()

	require.NoError(t, container.GetMonitor().StartPolling(time.Second))
	assert.False(t, container.GetMonitor().IsPolling())
}

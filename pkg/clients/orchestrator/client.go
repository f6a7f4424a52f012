package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/flowbaker/workflow-monitor/internal/auth"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ClientInterface defines the operations the monitor needs from the orchestration API
type ClientInterface interface {
	ListWorkflows(ctx context.Context, req *ListWorkflowsRequest) (*ListWorkflowsResponse, error)
	GetWorkflowProgress(ctx context.Context, workflowID string) (*WorkflowProgress, error)
	CancelWorkflow(ctx context.Context, workflowID string) (*CancelWorkflowResponse, error)
}

// Client talks to the orchestration engine's workflow API
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	signer     *auth.APIRequestSigner
}

// NewClient creates a new orchestrator client with the given options
func NewClient(options ...ClientOption) (*Client, error) {
	config := DefaultConfig()

	for _, option := range options {
		option(config)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: config.Timeout,
		}
	}

	var signer *auth.APIRequestSigner
	if config.SigningKey != "" {
		var err error
		signer, err = auth.NewAPIRequestSigner(config.SigningKey)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize request signer: %w", err)
		}
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
		signer:     signer,
	}, nil
}

// ListWorkflows lists workflows for a marketplace filtered by status
func (c *Client) ListWorkflows(ctx context.Context, req *ListWorkflowsRequest) (*ListWorkflowsResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("list workflows request cannot be nil")
	}

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := url.Values{}
	if req.Marketplace != "" {
		query.Set("marketplace", req.Marketplace)
	}
	if req.Status != "" {
		query.Set("status", req.Status)
	}
	query.Set("limit", strconv.Itoa(limit))

	resp, err := c.doRequest(ctx, http.MethodGet, "/api/v1/workflows?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	var result ListWorkflowsResponse
	if err := c.handleResponse(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to process list workflows response: %w", err)
	}

	if result.Workflows == nil {
		result.Workflows = []Workflow{}
	}

	return &result, nil
}

// GetWorkflowProgress fetches the current progress of a single workflow
func (c *Client) GetWorkflowProgress(ctx context.Context, workflowID string) (*WorkflowProgress, error) {
	if workflowID == "" {
		return nil, fmt.Errorf("workflow ID cannot be empty")
	}

	path := fmt.Sprintf("/api/v1/workflows/%s/progress", url.PathEscape(workflowID))

	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow progress: %w", err)
	}

	var result WorkflowProgress
	if err := c.handleResponse(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to process workflow progress response: %w", err)
	}

	return &result, nil
}

// CancelWorkflow asks the engine to cancel a workflow. The returned status carries the
// engine's acknowledgment; only CancelRequestedStatus means the request was accepted.
func (c *Client) CancelWorkflow(ctx context.Context, workflowID string) (*CancelWorkflowResponse, error) {
	if workflowID == "" {
		return nil, fmt.Errorf("workflow ID cannot be empty")
	}

	path := fmt.Sprintf("/api/v1/workflows/%s/cancel", url.PathEscape(workflowID))

	resp, err := c.doRequest(ctx, http.MethodPost, path, struct{}{})
	if err != nil {
		return nil, fmt.Errorf("failed to cancel workflow: %w", err)
	}

	var result CancelWorkflowResponse
	if err := c.handleResponse(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to process cancel workflow response: %w", err)
	}

	return &result, nil
}

// doRequest performs an HTTP request with retry logic
func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	fullURL := c.config.BaseURL + path
	requestID := uuid.NewString()

	var lastErr error
	for attempt := 0; attempt <= c.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.config.RetryDelay):
			}
		}

		var requestBody io.Reader
		if bodyBytes != nil {
			requestBody = bytes.NewBuffer(bodyBytes)
		}

		req, err := http.NewRequestWithContext(ctx, method, fullURL, requestBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		for key, value := range c.config.DefaultHeaders {
			req.Header.Set(key, value)
		}

		if c.config.UserAgent != "" {
			req.Header.Set("User-Agent", c.config.UserAgent)
		}

		if c.config.APIToken != "" {
			req.Header.Set("Authorization", "Bearer "+c.config.APIToken)
		}

		req.Header.Set("X-Request-ID", requestID)

		if c.signer != nil {
			signatureHeaders, err := c.signer.SignRequest(method, req.URL.Path, bodyBytes)
			if err != nil {
				return nil, fmt.Errorf("failed to sign request: %w", err)
			}
			for key, value := range signatureHeaders {
				req.Header.Set(key, value)
			}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 {
			respBody, _ := io.ReadAll(resp.Body)
			resp.Body.Close()

			log.Debug().
				Int("status_code", resp.StatusCode).
				Str("request_id", requestID).
				Int("attempt", attempt).
				Msg("orchestrator server error")

			lastErr = &Error{
				StatusCode: resp.StatusCode,
				Message:    fmt.Sprintf("server error: %d", resp.StatusCode),
				Body:       string(respBody),
				RequestID:  requestID,
			}
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("request failed after %d retries: %w", c.config.RetryAttempts, lastErr)
}

// handleResponse processes the HTTP response and unmarshals JSON if successful
func (c *Client) handleResponse(resp *http.Response, result any) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	requestID := resp.Header.Get("X-Request-ID")
	if requestID == "" && resp.Request != nil {
		requestID = resp.Request.Header.Get("X-Request-ID")
	}

	if resp.StatusCode >= 400 {
		var errorResponse struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}

		errorMsg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if json.Unmarshal(body, &errorResponse) == nil {
			if errorResponse.Error != "" {
				errorMsg = errorResponse.Error
			} else if errorResponse.Message != "" {
				errorMsg = errorResponse.Message
			}
		}

		return &Error{
			StatusCode: resp.StatusCode,
			Message:    errorMsg,
			Body:       string(body),
			RequestID:  requestID,
		}
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}

// Package harness provides the HTTP client for the executor service that
// runs submitted job plans. The harness owns all step execution; this
// client only submits plans and reads back status and result documents.
package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/leadscout/leadscout/job"
)

// maxResponseSize caps harness response bodies at 10MB.
const maxResponseSize = 10 * 1024 * 1024

// StatusSnapshot is one observation of a running job. CurrentStep is
// 1-based; zero means no step has started yet.
type StatusSnapshot struct {
	Status      string       `json:"status"`
	CurrentStep int          `json:"currentStep"`
	TotalSteps  int          `json:"totalSteps"`
	Steps       []StepStatus `json:"steps"`
	Error       string       `json:"error,omitempty"`
}

// StepStatus is the per-step view inside a status snapshot.
type StepStatus struct {
	Action string `json:"action"`
	Status string `json:"status"`
}

// Terminal reports whether the snapshot's status means the job will not
// progress further. Unknown statuses are treated as still running.
func (s *StatusSnapshot) Terminal() bool {
	switch s.Status {
	case "completed", "failed", "cancelled":
		return true
	default:
		return false
	}
}

// Client talks to a harness instance over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client, typically shared with other
// components so connection pools are reused.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger for harness operations.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a harness client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type submitRequest struct {
	UserID      string     `json:"userId"`
	Description string     `json:"description"`
	Plan        []job.Step `json:"plan"`
}

type submitResponse struct {
	JobID string `json:"jobId"`
}

// Submit sends a plan to the harness for execution and returns the
// assigned job ID.
func (c *Client) Submit(ctx context.Context, userID string, plan *job.Plan) (string, error) {
	body, err := json.Marshal(submitRequest{
		UserID:      userID,
		Description: plan.Description,
		Plan:        plan.Steps,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling submit request: %w", err)
	}

	url := c.baseURL + "/jobs/execute"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("submitting job plan",
		"user_id", userID,
		"steps", len(plan.Steps))

	respBody, err := c.do(req)
	if err != nil {
		return "", err
	}

	var resp submitResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("parsing submit response: %w", err)
	}
	if resp.JobID == "" {
		return "", fmt.Errorf("no jobId in harness response")
	}

	c.logger.Info("job submitted", "job_id", resp.JobID)

	return resp.JobID, nil
}

// Status fetches the current status snapshot for a job.
func (c *Client) Status(ctx context.Context, jobID string) (*StatusSnapshot, error) {
	url := fmt.Sprintf("%s/autonomous-jobs/%s/status", c.baseURL, jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating status request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var snapshot StatusSnapshot
	if err := json.Unmarshal(body, &snapshot); err != nil {
		return nil, fmt.Errorf("parsing status response: %w", err)
	}

	return &snapshot, nil
}

// Results fetches the raw result document for a job. The shape varies by
// job type, so it is returned undecoded for callers to interpret.
func (c *Client) Results(ctx context.Context, jobID string) (json.RawMessage, error) {
	url := fmt.Sprintf("%s/autonomous-jobs/%s/results", c.baseURL, jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating results request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	return json.RawMessage(body), nil
}

// do executes a request and returns the response body, converting
// non-2xx statuses into errors that carry the body text.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("harness request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("reading harness response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("harness returned status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}

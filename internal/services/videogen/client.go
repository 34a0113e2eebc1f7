package videogen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultBaseURL      = "https://api.openai.com/v1/videos"
	defaultPollInterval = 5 * time.Second
	defaultJobTimeout   = 15 * time.Minute
	maxPollFailures     = 3
	errorBodyLimit      = 2048
)

// Job statuses reported by the generation API.
const (
	StatusQueued     = "queued"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// HTTPDoer describes the HTTP client used to reach the generation API.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config captures the runtime settings for the generation API.
type Config struct {
	APIKey              string
	BaseURL             string
	Model               string
	PollIntervalSeconds int
	TimeoutSeconds      int
}

// Job is the generation API's view of a submitted render.
type Job struct {
	ID       string    `json:"id"`
	Status   string    `json:"status"`
	Progress float64   `json:"progress"`
	Error    *JobError `json:"error,omitempty"`
}

// JobError carries the API's failure detail for a job.
type JobError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ProgressFunc receives poll updates while a job renders.
type ProgressFunc func(percent float64, status string)

// Client wraps the video generation job API.
type Client struct {
	cfg          Config
	httpClient   HTTPDoer
	pollInterval time.Duration
	jobTimeout   time.Duration
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithPollInterval overrides the status poll cadence.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Client) {
		if interval > 0 {
			c.pollInterval = interval
		}
	}
}

// WithJobTimeout overrides how long Await waits for a terminal status.
func WithJobTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.jobTimeout = timeout
		}
	}
}

// New constructs a generation client using the supplied configuration.
func New(cfg Config, opts ...Option) *Client {
	client := &Client{
		cfg: Config{
			APIKey:              strings.TrimSpace(cfg.APIKey),
			BaseURL:             strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:               strings.TrimSpace(cfg.Model),
			PollIntervalSeconds: cfg.PollIntervalSeconds,
			TimeoutSeconds:      cfg.TimeoutSeconds,
		},
		httpClient:   &http.Client{},
		pollInterval: defaultPollInterval,
		jobTimeout:   defaultJobTimeout,
	}
	if cfg.PollIntervalSeconds > 0 {
		client.pollInterval = time.Duration(cfg.PollIntervalSeconds) * time.Second
	}
	if cfg.TimeoutSeconds > 0 {
		client.jobTimeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{}
	}
	return client
}

type apiError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("videogen %s: http %d: %s", e.Op, e.StatusCode, strings.TrimSpace(e.Body))
}

type jobFailedError struct {
	ID      string
	Code    string
	Message string
}

func (e *jobFailedError) Error() string {
	detail := e.Message
	if detail == "" {
		detail = "no failure detail reported"
	}
	if e.Code != "" {
		return fmt.Sprintf("videogen: job %s failed: %s (%s)", e.ID, detail, e.Code)
	}
	return fmt.Sprintf("videogen: job %s failed: %s", e.ID, detail)
}

type submitRequest struct {
	Model      string `json:"model"`
	Prompt     string `json:"prompt"`
	Seconds    int    `json:"seconds"`
	Resolution string `json:"resolution"`
}

// Submit creates a render job for the prompt and returns it in its
// initial (usually queued) state.
func (c *Client) Submit(ctx context.Context, prompt string, durationSeconds int, resolution string) (*Job, error) {
	if c.cfg.APIKey == "" {
		return nil, errors.New("videogen: api key not configured")
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, errors.New("videogen: prompt is empty")
	}

	payload, err := json.Marshal(submitRequest{
		Model:      c.cfg.Model,
		Prompt:     prompt,
		Seconds:    durationSeconds,
		Resolution: resolution,
	})
	if err != nil {
		return nil, fmt.Errorf("videogen submit: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("videogen submit: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	job, err := c.doJob(req, "submit")
	if err != nil {
		return nil, err
	}
	if job.ID == "" {
		return nil, errors.New("videogen submit: response carries no job id")
	}
	return job, nil
}

// Status fetches the current state of a render job.
func (c *Client) Status(ctx context.Context, jobID string) (*Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.jobURL(jobID), nil)
	if err != nil {
		return nil, fmt.Errorf("videogen status: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	return c.doJob(req, "status")
}

// Await polls the job until it completes, fails, or the configured
// timeout elapses. Every successful poll reports the job's progress to
// onProgress. A short run of poll failures is tolerated so a flaky
// status read cannot sink a long render.
func (c *Client) Await(ctx context.Context, jobID string, onProgress ProgressFunc) (*Job, error) {
	deadline := time.Now().Add(c.jobTimeout)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		job, err := c.Status(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failures++
			if failures >= maxPollFailures {
				return nil, fmt.Errorf("videogen: poll job %s: %w", jobID, err)
			}
			continue
		}
		failures = 0

		if onProgress != nil {
			onProgress(job.Progress, job.Status)
		}
		switch job.Status {
		case StatusCompleted:
			return job, nil
		case StatusFailed:
			failure := &jobFailedError{ID: jobID}
			if job.Error != nil {
				failure.Code = job.Error.Code
				failure.Message = job.Error.Message
			}
			return nil, failure
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("videogen: job %s timed out after %s", jobID, c.jobTimeout)
		}
	}
}

// Download streams the finished artifact to destPath. The write goes
// through a partial file so an interrupted download never leaves a
// truncated artifact at the final path.
func (c *Client) Download(ctx context.Context, jobID, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.jobURL(jobID)+"/content", nil)
	if err != nil {
		return fmt.Errorf("videogen download: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("videogen download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return &apiError{Op: "download", StatusCode: resp.StatusCode, Body: readErrorBody(resp.Body)}
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("videogen download: create destination directory: %w", err)
	}
	partial := destPath + ".partial"
	out, err := os.Create(partial)
	if err != nil {
		return fmt.Errorf("videogen download: create file: %w", err)
	}

	written, err := io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(partial)
		return fmt.Errorf("videogen download: write artifact: %w", err)
	}
	if written == 0 {
		os.Remove(partial)
		return fmt.Errorf("videogen download: job %s returned an empty artifact", jobID)
	}
	if err := os.Rename(partial, destPath); err != nil {
		os.Remove(partial)
		return fmt.Errorf("videogen download: finalize artifact: %w", err)
	}
	return nil
}

func (c *Client) jobURL(jobID string) string {
	return c.cfg.BaseURL + "/" + url.PathEscape(jobID)
}

func (c *Client) doJob(req *http.Request, op string) (*Job, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("videogen %s: %w", op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &apiError{Op: op, StatusCode: resp.StatusCode, Body: readErrorBody(resp.Body)}
	}

	var job Job
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, fmt.Errorf("videogen %s: decode response: %w", op, err)
	}
	return &job, nil
}

func readErrorBody(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, errorBodyLimit))
	if err != nil {
		return ""
	}
	return string(body)
}

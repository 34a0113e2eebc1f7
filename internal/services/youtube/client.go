package youtube

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
	"strconv"
	"strings"
	"time"
)

const (
	defaultUploadBaseURL = "https://www.googleapis.com/upload/youtube/v3/videos"
	defaultTimeout       = 10 * time.Minute
	watchURLFormat       = "https://www.youtube.com/watch?v=%s"
	errorBodyLimit       = 2048
)

// ErrNoCredentials reports that neither an access token nor a token
// file is configured.
var ErrNoCredentials = errors.New("youtube: no credentials configured")

// HTTPDoer describes the HTTP client used to reach the upload API.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config captures the runtime settings for the upload API.
type Config struct {
	AccessToken    string
	TokenPath      string
	BaseURL        string
	TimeoutSeconds int
}

// UploadRequest describes one video upload.
type UploadRequest struct {
	FilePath    string
	Title       string
	Description string
	Tags        []string
	CategoryID  string
	Privacy     string
}

// Video is the upload API's view of the published video.
type Video struct {
	ID string `json:"id"`
}

// WatchURL returns the public watch page for a video id.
func WatchURL(id string) string {
	return fmt.Sprintf(watchURLFormat, id)
}

// Client wraps the YouTube upload API.
type Client struct {
	cfg        Config
	httpClient HTTPDoer
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

// New constructs an upload client using the supplied configuration.
func New(cfg Config, opts ...Option) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			AccessToken:    strings.TrimSpace(cfg.AccessToken),
			TokenPath:      strings.TrimSpace(cfg.TokenPath),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultUploadBaseURL
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return client
}

type apiError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("youtube %s: http %d: %s", e.Op, e.StatusCode, strings.TrimSpace(e.Body))
}

type uploadMetadata struct {
	Snippet uploadSnippet `json:"snippet"`
	Status  uploadStatus  `json:"status"`
}

type uploadSnippet struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
	CategoryID  string   `json:"categoryId,omitempty"`
}

type uploadStatus struct {
	PrivacyStatus           string `json:"privacyStatus"`
	SelfDeclaredMadeForKids bool   `json:"selfDeclaredMadeForKids"`
}

// Upload publishes the video file with the supplied metadata and
// returns the new video's id. onProgress receives transfer percent as
// the file bytes stream out.
func (c *Client) Upload(ctx context.Context, req UploadRequest, onProgress func(percent float64)) (*Video, error) {
	token, err := c.token()
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(req.FilePath)
	if err != nil {
		return nil, fmt.Errorf("youtube upload: open video: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("youtube upload: %s is a directory", req.FilePath)
	}

	sessionURL, err := c.beginSession(ctx, token, req, info.Size())
	if err != nil {
		return nil, err
	}
	return c.transfer(ctx, token, sessionURL, req.FilePath, info.Size(), onProgress)
}

// beginSession opens a resumable upload session and returns the
// session URL from the Location header.
func (c *Client) beginSession(ctx context.Context, token string, req UploadRequest, size int64) (string, error) {
	metadata, err := json.Marshal(uploadMetadata{
		Snippet: uploadSnippet{
			Title:       req.Title,
			Description: req.Description,
			Tags:        req.Tags,
			CategoryID:  req.CategoryID,
		},
		Status: uploadStatus{PrivacyStatus: req.Privacy},
	})
	if err != nil {
		return "", fmt.Errorf("youtube upload: encode metadata: %w", err)
	}

	query := url.Values{}
	query.Set("uploadType", "resumable")
	query.Set("part", "snippet,status")
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"?"+query.Encode(), bytes.NewReader(metadata))
	if err != nil {
		return "", fmt.Errorf("youtube upload: build session request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Upload-Content-Type", "video/mp4")
	httpReq.Header.Set("X-Upload-Content-Length", strconv.FormatInt(size, 10))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("youtube upload: open session: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", &apiError{Op: "open session", StatusCode: resp.StatusCode, Body: readErrorBody(resp.Body)}
	}

	sessionURL := resp.Header.Get("Location")
	if sessionURL == "" {
		return "", errors.New("youtube upload: session response carries no location")
	}
	return sessionURL, nil
}

func (c *Client) transfer(ctx context.Context, token, sessionURL, filePath string, size int64, onProgress func(percent float64)) (*Video, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("youtube upload: open video: %w", err)
	}
	defer file.Close()

	body := &progressReader{reader: file, total: size, onProgress: onProgress}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, sessionURL, body)
	if err != nil {
		return nil, fmt.Errorf("youtube upload: build transfer request: %w", err)
	}
	httpReq.ContentLength = size
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "video/mp4")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("youtube upload: transfer: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &apiError{Op: "transfer", StatusCode: resp.StatusCode, Body: readErrorBody(resp.Body)}
	}

	var video Video
	if err := json.NewDecoder(resp.Body).Decode(&video); err != nil {
		return nil, fmt.Errorf("youtube upload: decode response: %w", err)
	}
	if video.ID == "" {
		return nil, errors.New("youtube upload: response carries no video id")
	}
	return &video, nil
}

// token resolves the access token from config, falling back to the
// token cache file.
func (c *Client) token() (string, error) {
	if c.cfg.AccessToken != "" {
		return c.cfg.AccessToken, nil
	}
	if c.cfg.TokenPath == "" {
		return "", ErrNoCredentials
	}
	data, err := os.ReadFile(c.cfg.TokenPath)
	if err != nil {
		return "", fmt.Errorf("youtube: read token file: %w", err)
	}
	var parsed struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("youtube: parse token file: %w", err)
	}
	token := strings.TrimSpace(parsed.AccessToken)
	if token == "" {
		return "", fmt.Errorf("youtube: token file %s carries no access_token", c.cfg.TokenPath)
	}
	return token, nil
}

// progressReader reports whole-percent transfer progress as the body
// streams out.
type progressReader struct {
	reader     io.Reader
	total      int64
	read       int64
	lastWhole  int
	onProgress func(percent float64)
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.read += int64(n)
		if r.onProgress != nil && r.total > 0 {
			percent := float64(r.read) / float64(r.total) * 100
			if percent > 100 {
				percent = 100
			}
			if whole := int(percent); whole > r.lastWhole {
				r.lastWhole = whole
				r.onProgress(percent)
			}
		}
	}
	return n, err
}

func readErrorBody(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, errorBodyLimit))
	if err != nil {
		return ""
	}
	return string(body)
}

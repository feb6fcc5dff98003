// Package backend is the HTTP client of the story video backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/felixgeelhaar/taleyport/internal/errors"
	"github.com/felixgeelhaar/taleyport/internal/log"
	"github.com/felixgeelhaar/taleyport/internal/metrics"
	"github.com/felixgeelhaar/taleyport/internal/task"
	"github.com/felixgeelhaar/taleyport/internal/telemetry"
)

// DefaultBaseURL is used when no backend URL is configured.
const DefaultBaseURL = "http://localhost:5001"

// Backend routes.
const (
	PathStories       = "/stories"
	PathUploadImage   = "/upload-image"
	PathGenerateAudio = "/generate-audio"
	PathGenerateVideo = "/generate-specific-videos"
	PathTaskStatus    = "/get-task-status"
	PathUser          = "/user"
)

const maxErrorBody = 64 << 10

// Client talks JSON over HTTP to the story video backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cookie     string
	userAgent  string
	contract   *Contract
	metrics    *metrics.Metrics
	logger     *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithSessionCookie forwards an existing backend session cookie
// ("name=value") on every request.
func WithSessionCookie(cookie string) Option {
	return func(c *Client) {
		c.cookie = strings.TrimSpace(cookie)
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithContractValidation validates response bodies against contract before
// decoding them.
func WithContractValidation(contract *Contract) Option {
	return func(c *Client) {
		c.contract = contract
	}
}

// WithMetrics records request counts and latency.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger sets the logger used for request tracing at debug level.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a backend client. An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		userAgent: "taleyport",
		logger:    log.DefaultLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListStories returns the stories the backend can render.
func (c *Client) ListStories(ctx context.Context) ([]Story, error) {
	var resp ListStoriesResponse
	if err := c.doJSON(ctx, "list_stories", http.MethodGet, PathStories, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Stories, nil
}

// UploadImages uploads the full body photo as image1 and the close-up as
// image2. Both files must be images.
func (c *Client) UploadImages(ctx context.Context, fullBody, closeUp ImageFile) (*UploadResponse, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, part := range []struct {
		field string
		file  ImageFile
	}{
		{"image1", fullBody},
		{"image2", closeUp},
	} {
		contentType, err := imageContentType(part.file)
		if err != nil {
			return nil, err
		}

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, part.field, filepath.Base(part.file.Filename)))
		h.Set("Content-Type", contentType)
		pw, err := w.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("failed to create multipart field %s: %w", part.field, err)
		}
		if _, err := pw.Write(part.file.Data); err != nil {
			return nil, fmt.Errorf("failed to write multipart field %s: %w", part.field, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	var resp UploadResponse
	if err := c.do(ctx, "upload_image", http.MethodPost, PathUploadImage, &buf, w.FormDataContentType(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GenerateAudio requests narration for a story.
func (c *Client) GenerateAudio(ctx context.Context, req AudioRequest) (*AudioResponse, error) {
	var resp AudioResponse
	if err := c.doJSON(ctx, "generate_audio", http.MethodPost, PathGenerateAudio, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GenerateVideos submits the selected scenes and returns the resulting
// batch of pending tasks.
func (c *Client) GenerateVideos(ctx context.Context, req VideoRequest) (*task.TaskBatch, error) {
	var resp VideoResponse
	if err := c.doJSON(ctx, "generate_videos", http.MethodPost, PathGenerateVideo, req, &resp); err != nil {
		return nil, err
	}
	return task.NewBatch(req.StoryID, resp.OutputPrompts)
}

// GetTaskStatus asks for the current status of every task in the batch.
func (c *Client) GetTaskStatus(ctx context.Context, storyID string, tasks []task.SceneTask) (*TaskStatusResponse, error) {
	req := TaskStatusRequest{OutputPrompts: tasks, StoryID: storyID}
	if req.OutputPrompts == nil {
		req.OutputPrompts = []task.SceneTask{}
	}

	var resp TaskStatusResponse
	if err := c.doJSON(ctx, "get_task_status", http.MethodPost, PathTaskStatus, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchStatus implements poller.Fetcher.
func (c *Client) FetchStatus(ctx context.Context, storyID string, tasks []task.SceneTask) ([]task.StatusUpdate, error) {
	resp, err := c.GetTaskStatus(ctx, storyID, tasks)
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// CurrentUser reports who owns the forwarded session cookie.
func (c *Client) CurrentUser(ctx context.Context) (*UserResponse, error) {
	var resp UserResponse
	if err := c.doJSON(ctx, "current_user", http.MethodGet, PathUser, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, body, target any) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(errors.ErrCodeFileMarshal, "failed to marshal request body", err)
		}
		reader = bytes.NewReader(jsonBody)
		contentType = "application/json"
	}
	return c.do(ctx, op, method, path, reader, contentType, target)
}

func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string, target any) (err error) {
	ctx, span := telemetry.StartBackendSpan(ctx, op, method, path)
	defer span.End()

	start := time.Now()
	statusCode := 0
	defer func() {
		c.metrics.ObserveBackend(op, statusCode, time.Since(start))
		if err != nil {
			telemetry.RecordError(span, err)
			return
		}
		telemetry.RecordSuccess(span, attribute.Int("http.status_code", statusCode))
	}()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return errors.NewBackendUnreachableError(c.baseURL, err)
	}
	defer resp.Body.Close()
	statusCode = resp.StatusCode

	c.logger.Debug("backend response", "operation", op, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return errors.NewBackendStatusError(op, newAPIError(resp.StatusCode, raw))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBackendDecode, "failed to read "+op+" response", err)
	}

	if c.contract != nil {
		if err := c.contract.ValidateResponse(method, path, raw); err != nil {
			return errors.Wrap(errors.ErrCodeBackendContract, "unexpected "+op+" response", err)
		}
	}

	if target == nil {
		return nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return errors.Wrap(errors.ErrCodeBackendDecode, "failed to decode "+op+" response", err)
	}
	return nil
}

func imageContentType(f ImageFile) (string, error) {
	if len(f.Data) == 0 {
		return "", errors.New(errors.ErrCodeWizardImagesMissing, fmt.Sprintf("image %q is empty", f.Filename))
	}
	contentType := http.DetectContentType(f.Data)
	if !strings.HasPrefix(contentType, "image/") {
		return "", errors.New(errors.ErrCodeWizardNotImage, fmt.Sprintf("%s is not an image (detected %s)", f.Filename, contentType)).
			WithSuggestion("Upload a JPEG, PNG, GIF or WebP photo")
	}
	return contentType, nil
}

// AsAPIError extracts the backend status error from err's chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

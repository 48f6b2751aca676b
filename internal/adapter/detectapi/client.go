// Package detectapi is the HTTP client for the remote hazard-detection
// service.
package detectapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/detectaroad/hazard-capture/internal/domain"
	"github.com/detectaroad/hazard-capture/internal/observability"
)

// videoField is the multipart field name the detection service expects for
// evidence bytes. It must match exactly, for both uploads and frames.
const videoField = "video"

// RemoteError is a non-2xx response from the detection service. Error()
// returns the operator-facing message extracted from the body.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string { return e.Message }

// Client talks to the detection endpoint. A zero timeout leaves the request
// bounded only by its context, matching the transport default.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a detection-service client for the given base address.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		metrics:    metrics,
	}
}

// Detect submits evidence plus coordinates as a multipart form to POST
// /detect and returns the processed artifact. The artifact body is opaque to
// the client. Failures return a *RemoteError for endpoint rejections or a
// wrapped transport error otherwise; no retry is attempted.
func (c *Client) Detect(ctx context.Context, ev domain.Evidence, coords domain.Coordinates) ([]byte, error) {
	body, contentType, err := encodeForm(ev, coords)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/detect", body)
	if err != nil {
		return nil, fmt.Errorf("create detect request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detect request: %w", err)
	}
	defer resp.Body.Close()
	c.metrics.DetectRequestDuration.Observe(time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.remoteError(resp)
	}

	artifact, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read processed artifact: %w", err)
	}
	c.logger.Info("processed artifact received", "bytes", len(artifact), "status", resp.StatusCode)
	return artifact, nil
}

// Health probes GET / on the detection service. Any 2xx means alive. The
// probe is informational only and never gates a detect cycle.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("create health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health probe: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("health probe: status %d", resp.StatusCode)
	}
	return nil
}

// remoteError extracts an operator-facing message from an error body:
// JSON {"error": "..."} first, raw text as fallback, HTTP status as a last
// resort.
func (c *Client) remoteError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	message := string(bytes.TrimSpace(body))
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		message = payload.Error
	}
	if message == "" {
		message = resp.Status
	}

	c.logger.Warn("detection service rejected request", "status", resp.StatusCode, "message", message)
	return &RemoteError{Status: resp.StatusCode, Message: message}
}

// encodeForm builds the multipart body: evidence bytes under the fixed
// field name plus lat/lon as decimal strings.
func encodeForm(ev domain.Evidence, coords domain.Coordinates) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	part, err := w.CreateFormFile(videoField, ev.Name)
	if err != nil {
		return nil, "", fmt.Errorf("encode evidence: %w", err)
	}
	if _, err := part.Write(ev.Data); err != nil {
		return nil, "", fmt.Errorf("encode evidence: %w", err)
	}

	if err := w.WriteField("lat", strconv.FormatFloat(coords.Lat, 'f', -1, 64)); err != nil {
		return nil, "", fmt.Errorf("encode coordinates: %w", err)
	}
	if err := w.WriteField("lon", strconv.FormatFloat(coords.Lon, 'f', -1, 64)); err != nil {
		return nil, "", fmt.Errorf("encode coordinates: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize form: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}

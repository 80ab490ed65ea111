// Package ai is the HTTP client for the external detection service. It
// contains no inference logic; it forwards media and returns the
// service's structured results.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"vision-server/internal/config"
	"vision-server/internal/models"
)

// Client communicates with the AI detection service.
type Client struct {
	baseURL string
	// Separate clients because the two paths have very different
	// ceilings: uploads may carry video and take minutes, realtime
	// frames must come back in seconds.
	uploadClient   *http.Client
	realtimeClient *http.Client
}

// NewClient creates a new detection service client.
func NewClient(cfg config.AI) *Client {
	return &Client{
		baseURL:        strings.TrimRight(cfg.ServiceURL, "/"),
		uploadClient:   &http.Client{Timeout: cfg.UploadTimeout},
		realtimeClient: &http.Client{Timeout: cfg.RealtimeTimeout},
	}
}

// DetectRequest carries an uploaded file to the detection endpoint.
type DetectRequest struct {
	FileName      string
	MimeType      string
	Content       []byte
	DetectionType models.DetectionType
	// DetectionID is the record identifier, passed through so the
	// service can correlate logs with our records.
	DetectionID string
}

// detectResponse is the wire shape of both detection endpoints.
type detectResponse struct {
	Success bool            `json:"success"`
	Results json.RawMessage `json:"results"`
	Error   string          `json:"error,omitempty"`
}

// RealtimeResult is the relayed outcome of a realtime frame.
type RealtimeResult struct {
	Success bool            `json:"success"`
	Results json.RawMessage `json:"results"`
}

// Detect sends the file as a multipart payload to /api/detect and
// returns the parsed results. The wait is bounded by the upload timeout.
func (c *Client) Detect(ctx context.Context, req DetectRequest) (*models.DetectionResults, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, req.FileName))
	header.Set("Content-Type", req.MimeType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart payload: %w", err)
	}
	if _, err := part.Write(req.Content); err != nil {
		return nil, fmt.Errorf("failed to build multipart payload: %w", err)
	}
	if err := writer.WriteField("detection_type", string(req.DetectionType)); err != nil {
		return nil, fmt.Errorf("failed to build multipart payload: %w", err)
	}
	if err := writer.WriteField("detection_id", req.DetectionID); err != nil {
		return nil, fmt.Errorf("failed to build multipart payload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to build multipart payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/detect", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	wire, err := c.do(c.uploadClient, httpReq)
	if err != nil {
		return nil, err
	}

	var results models.DetectionResults
	if err := json.Unmarshal(wire.Results, &results); err != nil {
		return nil, fmt.Errorf("failed to parse detection results: %w", err)
	}
	return &results, nil
}

// DetectRealtime sends a single inline frame to /api/detect-realtime and
// returns the raw results for passthrough. The wait is bounded by the
// realtime timeout; no retry is attempted.
func (c *Client) DetectRealtime(ctx context.Context, imageData string, detectionType models.DetectionType) (*RealtimeResult, error) {
	payload, err := json.Marshal(map[string]string{
		"image_data":     imageData,
		"detection_type": string(detectionType),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/detect-realtime", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	wire, err := c.do(c.realtimeClient, httpReq)
	if err != nil {
		return nil, err
	}

	return &RealtimeResult{Success: wire.Success, Results: wire.Results}, nil
}

func (c *Client) do(client *http.Client, req *http.Request) (*detectResponse, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call AI service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("AI service error (status %d): %s", resp.StatusCode, string(body))
	}

	var wire detectResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if !wire.Success {
		if wire.Error != "" {
			return nil, fmt.Errorf("detection failed: %s", wire.Error)
		}
		return nil, fmt.Errorf("detection failed")
	}
	return &wire, nil
}

// Package vision provides the face detection capability used by the capture
// and attendance pipelines. Detection runs on an external embedding server;
// this package wraps its HTTP API and the frame geometry around it.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

const defaultVisionURL = "http://localhost:8000"

// Detection is a single face located in a frame.
type Detection struct {
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2] in pixel coordinates
	Score     float64   `json:"det_score"`
	Embedding []float32 `json:"embedding"`
	Dim       int       `json:"dim"`
}

// faceResponse is the wire format of the server's /embed/face endpoint.
type faceResponse struct {
	FacesCount int         `json:"faces_count"`
	Faces      []Detection `json:"faces"`
	Model      string      `json:"model"`
}

// Detector locates faces in a frame. Implementations must return every face
// the backing model finds; callers apply the confidence threshold.
type Detector interface {
	Detect(ctx context.Context, frame image.Image) ([]Detection, error)
}

// Client talks to the face embedding server.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for the face embedding server.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultVisionURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{},
	}
}

// Detect encodes the frame as JPEG and asks the server for face detections.
// Detections carry their embedding so a single round trip serves both the
// detection and recognition paths.
func (c *Client) Detect(ctx context.Context, frame image.Image) ([]Detection, error) {
	data, err := EncodeJPEG(frame)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	resp, err := c.detectBytes(ctx, data)
	if err != nil {
		return nil, err
	}
	return resp.Faces, nil
}

// DetectBytes is Detect for already-encoded image data, used when reading
// persisted samples during training.
func (c *Client) DetectBytes(ctx context.Context, imageData []byte) ([]Detection, error) {
	resp, err := c.detectBytes(ctx, imageData)
	if err != nil {
		return nil, err
	}
	return resp.Faces, nil
}

func (c *Client) detectBytes(ctx context.Context, imageData []byte) (*faceResponse, error) {
	body, err := c.postMultipartImage(ctx, "/embed/face", imageData)
	if err != nil {
		return nil, err
	}

	var faceResp faceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &faceResp, nil
}

// postMultipartImage constructs a multipart form with the image data and
// posts it to the given endpoint.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

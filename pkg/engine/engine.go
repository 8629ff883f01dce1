package engine

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"FramePipeline/internal/entity"
	jsoniter "github.com/json-iterator/go"
)

// Options are the per-call knobs of the detection engine.
type Options struct {
	Threshold       float64
	KeepAspectRatio bool
	TopK            int
}

type IEngine interface {
	Detect(ctx context.Context, img image.Image, opts Options) ([]entity.Detection, error)
}

type detectResponse struct {
	Detections []struct {
		BBox  []float64 `json:"bbox"`
		Score float64   `json:"score"`
	} `json:"detections"`
	Error string `json:"error,omitempty"`
}

// httpEngine talks to an inference service over HTTP. Each instance owns its
// own client so one instance per worker shares nothing.
type httpEngine struct {
	endpoint string
	client   *http.Client
}

func New(endpoint string, timeout time.Duration) IEngine {
	return &httpEngine{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (e *httpEngine) Detect(ctx context.Context, img image.Image, opts Options) ([]entity.Detection, error) {
	var frame bytes.Buffer
	if err := jpeg.Encode(&frame, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	fw, err := w.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := fw.Write(frame.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to write frame: %w", err)
	}

	fields := map[string]string{
		"threshold":         strconv.FormatFloat(opts.Threshold, 'f', 3, 64),
		"keep_aspect_ratio": strconv.FormatBool(opts.KeepAspectRatio),
		"top_k":             strconv.Itoa(opts.TopK),
		"relative_coord":    "false",
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("failed to write %s field: %w", k, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/detect", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detection request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var result detectResponse
	if err := jsoniter.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detection failed with status %d: %s", resp.StatusCode, result.Error)
	}

	detections := make([]entity.Detection, 0, len(result.Detections))
	for _, d := range result.Detections {
		if len(d.BBox) != 4 {
			return nil, fmt.Errorf("detection has %d box coordinates, want 4", len(d.BBox))
		}
		detections = append(detections, entity.Detection{
			Box:   entity.Box{X0: d.BBox[0], Y0: d.BBox[1], X1: d.BBox[2], Y1: d.BBox[3]},
			Score: d.Score,
		})
	}

	if opts.TopK > 0 && len(detections) > opts.TopK {
		detections = detections[:opts.TopK]
	}
	return detections, nil
}

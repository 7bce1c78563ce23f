package verify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// verifyRequest is the JSON payload of the remote /verify endpoint.
// Images travel as base64 data URIs.
type verifyRequest struct {
	Img1             string `json:"img1"`
	Img2             string `json:"img2"`
	ModelName        string `json:"model_name"`
	DetectorBackend  string `json:"detector_backend"`
	DistanceMetric   string `json:"distance_metric"`
	EnforceDetection bool   `json:"enforce_detection"`
}

type verifyResponse struct {
	Verified       bool    `json:"verified"`
	Distance       float64 `json:"distance"`
	Threshold      float64 `json:"threshold"`
	Model          string  `json:"model"`
	DistanceMetric string  `json:"distance_metric"`
	Error          string  `json:"error,omitempty"`
}

// HTTPVerifier calls a remote face-recognition service over HTTP.
type HTTPVerifier struct {
	baseURL string
	client  *http.Client
}

// NewHTTPVerifier creates a verifier for the service at baseURL.
// A timeout of zero disables the client timeout; cancellation is then
// driven by the request context only.
func NewHTTPVerifier(baseURL string, timeout time.Duration) *HTTPVerifier {
	return &HTTPVerifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Verify submits both images to the remote /verify endpoint and returns
// the reported embedding distance. A detection failure on either image
// is returned as ErrNoFace.
func (v *HTTPVerifier) Verify(ctx context.Context, imgA, imgB []byte, opts Options) (*Result, error) {
	opts = opts.WithDefaults()

	payload := verifyRequest{
		Img1:             encodeImage(imgA),
		Img2:             encodeImage(imgB),
		ModelName:        opts.Model,
		DetectorBackend:  opts.DetectorBackend,
		DistanceMetric:   opts.DistanceMetric,
		EnforceDetection: true,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/verify", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	slog.Debug("HTTPVerifier: sending verify request",
		"model", opts.Model,
		"distance_metric", opts.DistanceMetric,
		"detector_backend", opts.DetectorBackend,
		"img1_size_bytes", len(imgA),
		"img2_size_bytes", len(imgB))

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verify request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			slog.Error("HTTPVerifier: failed to close response body", "error", cerr)
		}
	}()

	var decoded verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode verify response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		if isNoFaceMessage(decoded.Error) {
			slog.Warn("HTTPVerifier: face detection failed", "error", decoded.Error)
			return nil, ErrNoFace
		}
		return nil, fmt.Errorf("verify service returned status %d: %s", resp.StatusCode, decoded.Error)
	}

	metric := decoded.DistanceMetric
	if metric == "" {
		metric = opts.DistanceMetric
	}

	return &Result{
		Verified:       decoded.Verified,
		Distance:       decoded.Distance,
		Threshold:      decoded.Threshold,
		Model:          decoded.Model,
		DistanceMetric: metric,
	}, nil
}

// encodeImage wraps raw image bytes in the data URI format the remote
// service expects. The concrete media type is not inspected remotely.
func encodeImage(data []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
}

// isNoFaceMessage matches the error text the remote service produces
// when its detector finds no face.
func isNoFaceMessage(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "face") && strings.Contains(lower, "detect")
}

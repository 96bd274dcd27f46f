package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/voxsentry/voxsentry/internal/core"
)

const (
	scorePath  = "/v1/analysis/score"
	verifyPath = "/v1/speakers/verify"
	sarPath    = "/v1/cases/sar"
)

// Client talks to the VoxSentry fraud-detection API. It implements the
// engine Transport contract: non-2xx responses come back as *core.APIError so
// the retry layer can classify them by status.
type Client struct {
	HTTPClient  *http.Client
	BaseURL     string
	APIKey      string
	ToolVersion string

	// MaxAudioBytes rejects oversized uploads before they hit the wire.
	// Zero applies the 25 MiB default.
	MaxAudioBytes int64

	Clock func() time.Time
}

// Send routes one logical request to the matching API endpoint.
func (c *Client) Send(ctx context.Context, req *core.Request) (*core.Response, error) {
	if c == nil {
		return nil, errors.New("api client is not configured")
	}
	if req == nil {
		return nil, errors.New("request is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	switch req.Kind {
	case core.RequestKindScore:
		return c.score(ctx, req)
	case core.RequestKindVerify:
		return c.verify(ctx, req)
	case core.RequestKindSAR:
		return c.submitSAR(ctx, req)
	default:
		return nil, fmt.Errorf("%w: unsupported request kind %q", core.ErrInvalidRequest, req.Kind)
	}
}

// score uploads the call audio for deepfake analysis.
func (c *Client) score(ctx context.Context, req *core.Request) (*core.Response, error) {
	if err := ValidateAudio(req.AudioPath, c.maxAudioBytes()); err != nil {
		return nil, err
	}

	audio, err := os.Open(req.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}
	defer audio.Close() // nolint:errcheck // best-effort cleanup of the upload handle

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("audio", filepath.Base(req.AudioPath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, audio); err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}

	if req.CallID != "" {
		if err := writer.WriteField("call_id", req.CallID); err != nil {
			return nil, err
		}
	}
	for key, value := range req.Metadata {
		if err := writer.WriteField("metadata["+key+"]", value); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	httpReq, err := c.newRequest(ctx, scorePath, &body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	return c.do(httpReq)
}

// verify asks the API to match the call audio against an enrolled speaker.
func (c *Client) verify(ctx context.Context, req *core.Request) (*core.Response, error) {
	if req.SpeakerID == "" {
		return nil, fmt.Errorf("%w: speaker id is required for verification", core.ErrInvalidRequest)
	}

	payload := map[string]any{
		"call_id":    req.CallID,
		"speaker_id": req.SpeakerID,
	}
	if len(req.Metadata) > 0 {
		payload["metadata"] = req.Metadata
	}

	httpReq, err := c.newJSONRequest(ctx, verifyPath, payload)
	if err != nil {
		return nil, err
	}
	return c.do(httpReq)
}

// submitSAR files a suspicious-activity report for a flagged call.
func (c *Client) submitSAR(ctx context.Context, req *core.Request) (*core.Response, error) {
	if req.CallID == "" {
		return nil, fmt.Errorf("%w: call id is required for a suspicious-activity report", core.ErrInvalidRequest)
	}

	payload := map[string]any{
		"call_id": req.CallID,
	}
	if req.SpeakerID != "" {
		payload["speaker_id"] = req.SpeakerID
	}
	if len(req.Metadata) > 0 {
		payload["metadata"] = req.Metadata
	}

	httpReq, err := c.newJSONRequest(ctx, sarPath, payload)
	if err != nil {
		return nil, err
	}
	return c.do(httpReq)
}

func (c *Client) newJSONRequest(ctx context.Context, path string, payload any) (*http.Request, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, path, bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) newRequest(ctx context.Context, path string, body io.Reader) (*http.Request, error) {
	base := c.baseURL()
	target := base.ResolveReference(&url.URL{Path: path}).String()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	if c.ToolVersion != "" {
		req.Header.Set("User-Agent", "voxsentry/"+c.ToolVersion)
	}
	return req, nil
}

func (c *Client) do(req *http.Request) (*core.Response, error) {
	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apiError(resp)
	}

	var payload struct {
		RequestID string  `json:"request_id"`
		Score     float64 `json:"score"`
		RiskBand  string  `json:"risk_band"`
		Verified  *bool   `json:"verified"`
		CaseID    string  `json:"case_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	out := &core.Response{
		RequestID:  payload.RequestID,
		Score:      payload.Score,
		RiskBand:   core.RiskBand(payload.RiskBand),
		Verified:   payload.Verified,
		CaseID:     payload.CaseID,
		StatusCode: resp.StatusCode,
		ReceivedAt: c.now(),
	}
	if out.RiskBand == "" {
		out.RiskBand = core.BandForScore(out.Score)
	}
	return out, nil
}

// apiError extracts the API error envelope, falling back to the raw body.
func apiError(resp *http.Response) *core.APIError {
	apiErr := &core.APIError{StatusCode: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil || len(raw) == 0 {
		apiErr.Message = http.StatusText(resp.StatusCode)
		return apiErr
	}

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
		return apiErr
	}

	apiErr.Message = string(bytes.TrimSpace(raw))
	return apiErr
}

func (c *Client) baseURL() *url.URL {
	if c != nil && c.BaseURL != "" {
		if parsed, err := url.Parse(c.BaseURL); err == nil {
			return parsed
		}
	}
	parsed, _ := url.Parse("https://api.voxsentry.io")
	return parsed
}

func (c *Client) maxAudioBytes() int64 {
	if c != nil && c.MaxAudioBytes > 0 {
		return c.MaxAudioBytes
	}
	return 25 << 20
}

func (c *Client) now() time.Time {
	if c != nil && c.Clock != nil {
		return c.Clock()
	}
	return time.Now().UTC()
}

package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRequest marks a request rejected before it reached the API.
// Failures wrapping it are never retried.
var ErrInvalidRequest = errors.New("invalid request")

// RequestKind identifies the type of fraud-API call.
type RequestKind string

const (
	RequestKindScore  RequestKind = "score"
	RequestKindVerify RequestKind = "verify"
	RequestKindSAR    RequestKind = "sar"
)

// RiskBand buckets a deepfake score for reporting.
type RiskBand string

const (
	RiskBandLow    RiskBand = "low"
	RiskBandMedium RiskBand = "medium"
	RiskBandHigh   RiskBand = "high"
)

// BandForScore maps a deepfake score (0..1) onto a risk band.
func BandForScore(score float64) RiskBand {
	switch {
	case score >= 0.7:
		return RiskBandHigh
	case score >= 0.35:
		return RiskBandMedium
	default:
		return RiskBandLow
	}
}

// TerminalReason is the closed set of ways a logical request can end.
type TerminalReason string

const (
	ReasonSuccess            TerminalReason = "success"
	ReasonMaxRetriesExceeded TerminalReason = "max_retries_exceeded"
	ReasonFatalClientError   TerminalReason = "fatal_client_error"
	ReasonBreakerOpen        TerminalReason = "breaker_open"
	ReasonRateLimited        TerminalReason = "rate_limited"
	ReasonCancelled          TerminalReason = "cancelled"
)

// Request is one logical call against the fraud API.
type Request struct {
	Kind      RequestKind       `json:"kind"`
	AudioPath string            `json:"audio_path,omitempty"`
	CallID    string            `json:"call_id,omitempty"`
	SpeakerID string            `json:"speaker_id,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Response reports the API result for a single request.
type Response struct {
	RequestID  string    `json:"request_id"`
	Score      float64   `json:"score"`
	RiskBand   RiskBand  `json:"risk_band,omitempty"`
	Verified   *bool     `json:"verified,omitempty"`
	CaseID     string    `json:"case_id,omitempty"`
	StatusCode int       `json:"status_code"`
	ReceivedAt time.Time `json:"received_at"`
}

// RequestOutcome is the uniform terminal result for one logical request.
type RequestOutcome struct {
	Item           string         `json:"item"`
	Succeeded      bool           `json:"succeeded"`
	AttemptsUsed   int            `json:"attempts_used"`
	TotalLatency   time.Duration  `json:"total_latency"`
	TerminalReason TerminalReason `json:"terminal_reason"`
	Message        string         `json:"message,omitempty"`
	Response       *Response      `json:"response,omitempty"`
}

// APIError is a status-tagged failure from the fraud API transport.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return "api error"
	}
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

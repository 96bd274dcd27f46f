package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/voxsentry/voxsentry/internal/core"
)

func writeAudioFile(t *testing.T, name string, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	return path
}

func TestClientScore(t *testing.T) {
	audioPath := writeAudioFile(t, "call.wav", 1024)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/analysis/score", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NotEmpty(t, r.Header.Get("X-Request-ID"))

		require.NoError(t, r.ParseMultipartForm(4<<20))
		require.Equal(t, "call-7", r.FormValue("call_id"))
		require.Equal(t, "fraud-desk", r.FormValue("metadata[team]"))

		file, header, err := r.FormFile("audio")
		require.NoError(t, err)
		defer file.Close()
		require.Equal(t, "call.wav", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"request_id": "req-42",
			"score":      0.83,
			"risk_band":  "high",
		})
	}))
	defer server.Close()

	c := &Client{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Clock:   func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) },
	}

	resp, err := c.Send(context.Background(), &core.Request{
		Kind:      core.RequestKindScore,
		AudioPath: audioPath,
		CallID:    "call-7",
		Metadata:  map[string]string{"team": "fraud-desk"},
	})
	require.NoError(t, err)
	require.Equal(t, "req-42", resp.RequestID)
	require.InDelta(t, 0.83, resp.Score, 1e-9)
	require.Equal(t, core.RiskBandHigh, resp.RiskBand)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 2025, resp.ReceivedAt.Year())
}

func TestClientRiskBandDerivedFromScore(t *testing.T) {
	audioPath := writeAudioFile(t, "call.mp3", 64)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"request_id": "req-1", "score": 0.5})
	}))
	defer server.Close()

	c := &Client{BaseURL: server.URL}
	resp, err := c.Send(context.Background(), &core.Request{
		Kind:      core.RequestKindScore,
		AudioPath: audioPath,
	})
	require.NoError(t, err)
	require.Equal(t, core.RiskBandMedium, resp.RiskBand)
}

func TestClientVerify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/speakers/verify", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "call-9", payload["call_id"])
		require.Equal(t, "spk-3", payload["speaker_id"])

		json.NewEncoder(w).Encode(map[string]any{
			"request_id": "req-9",
			"score":      0.02,
			"verified":   true,
		})
	}))
	defer server.Close()

	c := &Client{BaseURL: server.URL}
	resp, err := c.Send(context.Background(), &core.Request{
		Kind:      core.RequestKindVerify,
		CallID:    "call-9",
		SpeakerID: "spk-3",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Verified)
	require.True(t, *resp.Verified)
}

func TestClientVerifyRequiresSpeaker(t *testing.T) {
	c := &Client{}
	_, err := c.Send(context.Background(), &core.Request{Kind: core.RequestKindVerify, CallID: "call-9"})
	require.ErrorIs(t, err, core.ErrInvalidRequest)
}

func TestClientSubmitSAR(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/cases/sar", r.URL.Path)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "call-4", payload["call_id"])

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"request_id": "req-4",
			"case_id":    "case-1001",
		})
	}))
	defer server.Close()

	c := &Client{BaseURL: server.URL}
	resp, err := c.Send(context.Background(), &core.Request{
		Kind:   core.RequestKindSAR,
		CallID: "call-4",
	})
	require.NoError(t, err)
	require.Equal(t, "case-1001", resp.CaseID)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestClientAPIErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"code":    "audio_too_short",
				"message": "audio must be at least 3 seconds",
			},
		})
	}))
	defer server.Close()

	c := &Client{BaseURL: server.URL}
	_, err := c.Send(context.Background(), &core.Request{
		Kind:      core.RequestKindScore,
		AudioPath: writeAudioFile(t, "short.wav", 16),
	})
	require.Error(t, err)

	var apiErr *core.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	require.Equal(t, "audio_too_short", apiErr.Code)
	require.Contains(t, apiErr.Message, "3 seconds")
}

func TestClientAPIErrorPlainBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("maintenance window"))
	}))
	defer server.Close()

	c := &Client{BaseURL: server.URL}
	_, err := c.Send(context.Background(), &core.Request{
		Kind:      core.RequestKindScore,
		AudioPath: writeAudioFile(t, "call.wav", 16),
	})

	var apiErr *core.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	require.Equal(t, "maintenance window", apiErr.Message)
}

func TestValidateAudio(t *testing.T) {
	require.ErrorIs(t, ValidateAudio("", 0), core.ErrInvalidRequest)
	require.ErrorIs(t, ValidateAudio("call.txt", 0), core.ErrInvalidRequest)
	require.ErrorIs(t, ValidateAudio(filepath.Join(t.TempDir(), "missing.wav"), 0), core.ErrInvalidRequest)

	empty := writeAudioFile(t, "empty.wav", 0)
	require.ErrorIs(t, ValidateAudio(empty, 0), core.ErrInvalidRequest)

	big := writeAudioFile(t, "big.wav", 2048)
	require.ErrorIs(t, ValidateAudio(big, 1024), core.ErrInvalidRequest)
	require.NoError(t, ValidateAudio(big, 4096))
}

func TestClientUnsupportedKind(t *testing.T) {
	c := &Client{}
	_, err := c.Send(context.Background(), &core.Request{Kind: core.RequestKind("bogus")})
	require.ErrorIs(t, err, core.ErrInvalidRequest)
}

package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	apperrors "github.com/voxsentry/voxsentry/internal/errors"

	"github.com/voxsentry/voxsentry/internal/core/engine"
	"github.com/voxsentry/voxsentry/internal/metrics"
)

// StatsSource exposes the live resilience components to the stats endpoint.
type StatsSource struct {
	Collector *metrics.Collector
	Breaker   *engine.Breaker
	Limiter   *engine.TokenBucket
}

var statsSource *StatsSource

// SetStatsSource wires the running resilience components into the handler.
func SetStatsSource(source *StatsSource) {
	statsSource = source
}

// StatsResponse is the JSON body served at /stats.
type StatsResponse struct {
	Requests    metrics.Snapshot `json:"requests"`
	Breaker     BreakerStats     `json:"breaker"`
	RateLimiter RateLimiterStats `json:"rate_limiter"`
	Timestamp   time.Time        `json:"timestamp"`
}

// BreakerStats reports the current circuit state.
type BreakerStats struct {
	State string `json:"state"`
}

// RateLimiterStats reports current token availability.
type RateLimiterStats struct {
	AvailableTokens float64 `json:"available_tokens"`
}

// StatsHandler serves a JSON snapshot of the resilience counters, breaker
// state and rate limiter tokens.
func StatsHandler(w http.ResponseWriter, r *http.Request) {
	source := statsSource
	if source == nil {
		respondWithError(w, r, apperrors.NewServiceUnavailableError("stats source not initialized"))
		return
	}

	response := StatsResponse{
		Timestamp: time.Now().UTC(),
	}
	if source.Collector != nil {
		response.Requests = source.Collector.Snapshot()
	}
	if source.Breaker != nil {
		response.Breaker.State = source.Breaker.State().String()
	}
	if source.Limiter != nil {
		response.RateLimiter.AvailableTokens = source.Limiter.Tokens()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

package core

import "time"

// BatchSummary aggregates the outcomes of a batch run.
type BatchSummary struct {
	Total            int               `json:"total"`
	Succeeded        int               `json:"succeeded"`
	Failed           int               `json:"failed"`
	Retried          int               `json:"retried"`
	BreakerTrips     int               `json:"breaker_trips"`
	RateLimited      int               `json:"rate_limited"`
	Cancelled        int               `json:"cancelled"`
	AvgLatencyMs     float64           `json:"avg_latency_ms"`
	RiskDistribution map[RiskBand]int  `json:"risk_distribution,omitempty"`
	StartedAt        time.Time         `json:"started_at"`
	CompletedAt      time.Time         `json:"completed_at"`
	Outcomes         []*RequestOutcome `json:"outcomes,omitempty"`
}

// Record folds one outcome into the summary. Callers serialize access.
func (s *BatchSummary) Record(outcome *RequestOutcome) {
	if s == nil || outcome == nil {
		return
	}

	s.Total++
	if outcome.AttemptsUsed > 1 {
		s.Retried += outcome.AttemptsUsed - 1
	}

	switch outcome.TerminalReason {
	case ReasonSuccess:
		s.Succeeded++
		if outcome.Response != nil {
			if s.RiskDistribution == nil {
				s.RiskDistribution = make(map[RiskBand]int, 3)
			}
			s.RiskDistribution[BandForScore(outcome.Response.Score)]++
		}
	case ReasonBreakerOpen:
		s.BreakerTrips++
	case ReasonRateLimited:
		s.RateLimited++
	case ReasonCancelled:
		s.Cancelled++
	default:
		s.Failed++
	}
}

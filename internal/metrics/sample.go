package metrics

import (
	"net/http"
	"time"
)

// StatusTransportError marks a sample whose request never produced an HTTP response.
const StatusTransportError = 0

// Outcome classifies a Sample by its status code.
type Outcome string

const (
	OutcomeSuccess     Outcome = "success"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeError       Outcome = "error"
)

// Sample is one completed request attempt.
type Sample struct {
	Timestamp  time.Time     `json:"timestamp" yaml:"timestamp"`
	StatusCode int           `json:"status_code" yaml:"status_code"`
	Latency    time.Duration `json:"-" yaml:"-"`
	LatencyMs  float64       `json:"latency_ms" yaml:"latency_ms"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewSample builds a Sample with the millisecond latency field populated.
func NewSample(ts time.Time, status int, latency time.Duration, errDetail string) Sample {
	s := Sample{
		Timestamp:  ts,
		StatusCode: status,
		Latency:    latency,
		LatencyMs:  durationMs(latency),
	}
	if status == StatusTransportError {
		s.Error = errDetail
	}
	return s
}

// Outcome reports how the sample counts toward the run totals:
// 200 is a success, 429 is rate limited, everything else (including 0) is an error.
func (s Sample) Outcome() Outcome {
	return ClassifyStatus(s.StatusCode)
}

// ClassifyStatus maps an HTTP status code to an Outcome.
func ClassifyStatus(code int) Outcome {
	switch code {
	case http.StatusOK:
		return OutcomeSuccess
	case http.StatusTooManyRequests:
		return OutcomeRateLimited
	default:
		return OutcomeError
	}
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

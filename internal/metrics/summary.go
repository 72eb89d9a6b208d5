package metrics

import (
	"errors"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// ErrInsufficientData is returned when a statistic is requested over zero samples.
var ErrInsufficientData = errors.New("insufficient data")

// LatencyStats holds latency aggregates over every sample of a run.
type LatencyStats struct {
	Mean time.Duration `json:"-" yaml:"-"`
	Min  time.Duration `json:"-" yaml:"-"`
	Max  time.Duration `json:"-" yaml:"-"`
	P50  time.Duration `json:"-" yaml:"-"`
	P90  time.Duration `json:"-" yaml:"-"`
	P95  time.Duration `json:"-" yaml:"-"`
	P99  time.Duration `json:"-" yaml:"-"`

	MeanMs float64 `json:"mean_ms" yaml:"mean_ms"`
	MinMs  float64 `json:"min_ms" yaml:"min_ms"`
	MaxMs  float64 `json:"max_ms" yaml:"max_ms"`
	P50Ms  float64 `json:"p50_ms" yaml:"p50_ms"`
	P90Ms  float64 `json:"p90_ms" yaml:"p90_ms"`
	P95Ms  float64 `json:"p95_ms" yaml:"p95_ms"`
	P99Ms  float64 `json:"p99_ms" yaml:"p99_ms"`
}

// Summary is the read-only statistical view of a finished RunResult.
type Summary struct {
	Phase               string        `json:"phase" yaml:"phase"`
	Total               int64         `json:"total" yaml:"total"`
	Successes           int64         `json:"successes" yaml:"successes"`
	RateLimited         int64         `json:"rate_limited" yaml:"rate_limited"`
	Errors              int64         `json:"errors" yaml:"errors"`
	SuccessRate         float64       `json:"success_rate" yaml:"success_rate"`
	RateLimitPercentage float64       `json:"rate_limit_percentage" yaml:"rate_limit_percentage"`
	ErrorRate           float64       `json:"error_rate" yaml:"error_rate"`
	QPS                 float64       `json:"qps" yaml:"qps"`
	Duration            time.Duration `json:"-" yaml:"-"`
	DurationMs          float64       `json:"duration_ms" yaml:"duration_ms"`
	StatusCodes         map[int]int64 `json:"status_codes,omitempty" yaml:"status_codes,omitempty"`
	Latency             *LatencyStats `json:"latency,omitempty" yaml:"latency,omitempty"`
	NoData              bool          `json:"insufficient_data,omitempty" yaml:"insufficient_data,omitempty"`
}

// InsufficientData reports whether the run recorded no samples, in which case
// latency statistics are undefined.
func (s Summary) InsufficientData() bool {
	return s.Latency == nil
}

// Summarize reduces a RunResult to summary statistics. It does not modify r and
// always yields the same Summary for the same input.
//
// QPS divides the sample count by the nominal duration when the run has one and by
// the measured elapsed time otherwise.
func Summarize(r RunResult) Summary {
	total := r.Total()
	s := Summary{
		Phase:       r.Phase,
		Total:       total,
		Successes:   r.SuccessCount,
		RateLimited: r.RateLimitedCount,
		Errors:      r.ErrorCount,
	}

	if len(r.StatusCodes) > 0 {
		s.StatusCodes = make(map[int]int64, len(r.StatusCodes))
		for k, v := range r.StatusCodes {
			s.StatusCodes[k] = v
		}
	}

	if total > 0 {
		s.SuccessRate = percentOf(r.SuccessCount, total)
		s.RateLimitPercentage = percentOf(r.RateLimitedCount, total)
		s.ErrorRate = percentOf(r.ErrorCount, total)
	}

	window := r.Nominal
	if window <= 0 {
		window = r.Elapsed
	}
	s.Duration = window
	s.DurationMs = durationMs(window)
	if window > 0 {
		s.QPS = float64(total) / window.Seconds()
	}

	lat, err := ComputeLatencyStats(r.Latencies())
	if err == nil {
		s.Latency = &lat
	}
	s.NoData = s.Latency == nil
	return s
}

// ComputeLatencyStats aggregates latencies. The input slice is not modified.
func ComputeLatencyStats(latencies []time.Duration) (LatencyStats, error) {
	if len(latencies) == 0 {
		return LatencyStats{}, ErrInsufficientData
	}

	sorted := sortedNanos(latencies)
	stats := LatencyStats{
		Mean: time.Duration(math.Round(stat.Mean(sorted, nil))),
		Min:  time.Duration(sorted[0]),
		Max:  time.Duration(sorted[len(sorted)-1]),
		P50:  nearestRank(sorted, 50),
		P90:  nearestRank(sorted, 90),
		P95:  nearestRank(sorted, 95),
		P99:  nearestRank(sorted, 99),
	}
	stats.MeanMs = durationMs(stats.Mean)
	stats.MinMs = durationMs(stats.Min)
	stats.MaxMs = durationMs(stats.Max)
	stats.P50Ms = durationMs(stats.P50)
	stats.P90Ms = durationMs(stats.P90)
	stats.P95Ms = durationMs(stats.P95)
	stats.P99Ms = durationMs(stats.P99)
	return stats, nil
}

// Percentile returns the p-th percentile (0 < p <= 100) of latencies using the
// nearest-rank method: with the values sorted ascending, the result is the element
// at 1-based rank ceil(p/100 * n). The input slice is not modified.
func Percentile(latencies []time.Duration, p float64) (time.Duration, error) {
	if len(latencies) == 0 {
		return 0, ErrInsufficientData
	}
	return nearestRank(sortedNanos(latencies), p), nil
}

// sortedNanos copies latencies into an ascending slice of nanoseconds.
func sortedNanos(latencies []time.Duration) []float64 {
	out := make([]float64, len(latencies))
	for i, l := range latencies {
		out[i] = float64(l)
	}
	sort.Float64s(out)
	return out
}

// nearestRank uses gonum's empirical quantile, which selects the lowest sample
// whose cumulative count reaches p percent of the total.
func nearestRank(sorted []float64, p float64) time.Duration {
	q := math.Min(math.Max(p/100, 0), 1)
	return time.Duration(stat.Quantile(q, stat.Empirical, sorted, nil))
}

func percentOf(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

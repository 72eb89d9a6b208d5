// Package chart derives plot series from a finished run. All functions are
// pure; rendering is left to the output package.
package chart

import (
	"math"
	"sort"
	"time"

	"github.com/torosent/ratecheck/internal/metrics"
)

const (
	DefaultBins      = 50
	DefaultQPSWindow = 5 * time.Second
	DefaultQPSPoints = 20
	// MinQPSSamples is the smallest sample count for which a QPS series is produced.
	MinQPSSamples = 11
)

// Point is one (x, y) pair of a line series.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Bin is one bucket of a latency histogram, bounds in milliseconds.
type Bin struct {
	LowerMs float64 `json:"lower_ms" yaml:"lower_ms"`
	UpperMs float64 `json:"upper_ms" yaml:"upper_ms"`
	Count   int     `json:"count" yaml:"count"`
}

// Slice is one wedge of the status code distribution.
type Slice struct {
	Label   string  `json:"label" yaml:"label"`
	Count   int64   `json:"count" yaml:"count"`
	Percent float64 `json:"percent" yaml:"percent"`
}

// Series bundles every chart of one run.
type Series struct {
	Latency   []Point `json:"latency_over_time" yaml:"latency_over_time"`
	Status    []Slice `json:"status_distribution" yaml:"status_distribution"`
	Histogram []Bin   `json:"latency_histogram" yaml:"latency_histogram"`
	QPS       []Point `json:"qps_over_time" yaml:"qps_over_time"`
}

// Build computes all series with the default parameters.
func Build(r metrics.RunResult) Series {
	return Series{
		Latency:   LatencyOverTime(r),
		Status:    StatusDistribution(r),
		Histogram: LatencyHistogram(r, DefaultBins),
		QPS:       QPSOverTime(r, DefaultQPSWindow, DefaultQPSPoints),
	}
}

// LatencyOverTime plots each sample's latency in milliseconds against seconds
// since the earliest sample was dispatched, ordered by dispatch time.
func LatencyOverTime(r metrics.RunResult) []Point {
	if len(r.Samples) == 0 {
		return nil
	}
	samples := byTimestamp(r.Samples)
	origin := samples[0].Timestamp
	out := make([]Point, len(samples))
	for i, s := range samples {
		out[i] = Point{
			X: s.Timestamp.Sub(origin).Seconds(),
			Y: s.LatencyMs,
		}
	}
	return out
}

// StatusDistribution lists status codes by descending count with their share
// of all samples.
func StatusDistribution(r metrics.RunResult) []Slice {
	total := r.Total()
	if total == 0 {
		return nil
	}
	flat := metrics.FlattenStatusCodes(r.StatusCodes)
	out := make([]Slice, len(flat))
	for i, sc := range flat {
		out[i] = Slice{
			Label:   sc.Label(),
			Count:   sc.Count,
			Percent: float64(sc.Count) / float64(total) * 100,
		}
	}
	return out
}

// LatencyHistogram splits [min, max] latency into equally wide bins; the last
// bin includes max. When all latencies are equal the range is widened by half
// a millisecond on each side.
func LatencyHistogram(r metrics.RunResult, bins int) []Bin {
	if len(r.Samples) == 0 || bins <= 0 {
		return nil
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range r.Samples {
		lo = math.Min(lo, s.LatencyMs)
		hi = math.Max(hi, s.LatencyMs)
	}
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}

	width := (hi - lo) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i].LowerMs = lo + float64(i)*width
		out[i].UpperMs = lo + float64(i+1)*width
	}
	out[bins-1].UpperMs = hi

	for _, s := range r.Samples {
		idx := int((s.LatencyMs - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		if idx < 0 {
			idx = 0
		}
		out[idx].Count++
	}
	return out
}

// QPSOverTime samples roughly `points` windows across the run. Each window
// starts at a sample's dispatch time and spans `window`; its value is the
// number of samples dispatched inside it divided by the window length. X is
// the window start relative to the first sample, in window units. Runs with
// fewer than MinQPSSamples samples yield no series.
func QPSOverTime(r metrics.RunResult, window time.Duration, points int) []Point {
	n := len(r.Samples)
	if n < MinQPSSamples || window <= 0 || points <= 0 {
		return nil
	}
	samples := byTimestamp(r.Samples)
	origin := samples[0].Timestamp

	step := n / points
	if step < 1 {
		step = 1
	}

	var out []Point
	for i := 0; i < n; i += step {
		start := samples[i].Timestamp
		end := start.Add(window)
		// Samples are sorted, so the window is [i, j).
		j := sort.Search(n, func(k int) bool { return !samples[k].Timestamp.Before(end) })
		first := sort.Search(n, func(k int) bool { return !samples[k].Timestamp.Before(start) })
		out = append(out, Point{
			X: start.Sub(origin).Seconds() / window.Seconds(),
			Y: float64(j-first) / window.Seconds(),
		})
	}
	return out
}

func byTimestamp(samples []metrics.Sample) []metrics.Sample {
	sorted := make([]metrics.Sample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return sorted
}

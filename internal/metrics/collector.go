package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Collector keeps running aggregates of the current phase for progress output and the
// dashboard. It trades exactness for constant memory: percentiles come from an HDR
// histogram. Final figures are always computed by Summarize.
type Collector struct {
	mu          sync.Mutex
	phase       string
	hist        *hdrhistogram.Histogram
	successes   int64
	rateLimited int64
	errors      int64
	minLatency  time.Duration
	maxLatency  time.Duration
	sumLatency  time.Duration
	statusCodes map[int]int64
	start       time.Time
}

// LiveStats is a point-in-time view of a Collector.
type LiveStats struct {
	Phase          string
	Total          int64
	Successes      int64
	RateLimited    int64
	Errors         int64
	MinLatency     time.Duration
	MaxLatency     time.Duration
	MeanLatency    time.Duration
	P50Latency     time.Duration
	P95Latency     time.Duration
	P99Latency     time.Duration
	Elapsed        time.Duration
	RequestsPerSec float64
	StatusCodes    map[int]int64
}

func NewCollector() *Collector {
	return &Collector{
		hist:        newLatencyHistogram(),
		statusCodes: make(map[int]int64),
		start:       time.Now(),
	}
}

// Track latencies from 1µs up to 60s with 3 significant figures.
func newLatencyHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(1, 60_000_000, 3)
}

// Reset clears all aggregates and starts tracking a new phase.
func (c *Collector) Reset(phase string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = phase
	c.hist.Reset()
	c.successes, c.rateLimited, c.errors = 0, 0, 0
	c.minLatency, c.maxLatency, c.sumLatency = 0, 0, 0
	c.statusCodes = make(map[int]int64)
	c.start = time.Now()
}

// Observe implements Observer.
func (c *Collector) Observe(phase string, s Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase == "" {
		c.phase = phase
	}

	if s.Latency > 0 {
		us := s.Latency.Microseconds()
		if us < c.hist.LowestTrackableValue() {
			us = c.hist.LowestTrackableValue()
		}
		if us > c.hist.HighestTrackableValue() {
			us = c.hist.HighestTrackableValue()
		}
		_ = c.hist.RecordValue(us)
	}
	c.sumLatency += s.Latency
	if c.minLatency == 0 || s.Latency < c.minLatency {
		c.minLatency = s.Latency
	}
	if s.Latency > c.maxLatency {
		c.maxLatency = s.Latency
	}

	switch s.Outcome() {
	case OutcomeSuccess:
		c.successes++
	case OutcomeRateLimited:
		c.rateLimited++
	default:
		c.errors++
	}
	c.statusCodes[s.StatusCode]++
}

// Stats returns the current aggregates.
func (c *Collector) Stats() LiveStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.successes + c.rateLimited + c.errors
	elapsed := time.Since(c.start)
	stats := LiveStats{
		Phase:       c.phase,
		Total:       total,
		Successes:   c.successes,
		RateLimited: c.rateLimited,
		Errors:      c.errors,
		MinLatency:  c.minLatency,
		MaxLatency:  c.maxLatency,
		Elapsed:     elapsed,
		StatusCodes: make(map[int]int64, len(c.statusCodes)),
	}
	for k, v := range c.statusCodes {
		stats.StatusCodes[k] = v
	}

	if total > 0 {
		stats.MeanLatency = time.Duration(int64(c.sumLatency) / total)
		if elapsed > 0 {
			stats.RequestsPerSec = float64(total) / elapsed.Seconds()
		}
	}

	if c.hist.TotalCount() > 0 {
		stats.P50Latency = time.Duration(c.hist.ValueAtQuantile(50)) * time.Microsecond
		stats.P95Latency = time.Duration(c.hist.ValueAtQuantile(95)) * time.Microsecond
		stats.P99Latency = time.Duration(c.hist.ValueAtQuantile(99)) * time.Microsecond
	}

	return stats
}

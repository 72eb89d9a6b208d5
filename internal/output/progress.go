package output

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/torosent/ratecheck/internal/metrics"
)

// ProgressReporter displays real-time progress updates of the current phase.
type ProgressReporter struct {
	collector *metrics.Collector
	ticker    *time.Ticker
	done      chan struct{}
	finished  chan struct{}
	writer    io.Writer
	active    int32
}

// NewProgressReporter creates a progress reporter that updates at the given interval.
func NewProgressReporter(collector *metrics.Collector, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		collector: collector,
		ticker:    time.NewTicker(interval),
		done:      make(chan struct{}),
		finished:  make(chan struct{}),
		writer:    writer,
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	go p.run()
}

// Stop halts progress updates and prints the final line.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
		return
	}
	p.ticker.Stop()
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			fmt.Fprint(p.writer, "\r"+ProgressLine(p.collector.Stats()))
		case <-p.done:
			fmt.Fprint(p.writer, "\r"+ProgressLine(p.collector.Stats()))
			return
		}
	}
}

// ProgressLine formats one progress update.
func ProgressLine(stats metrics.LiveStats) string {
	phase := stats.Phase
	if phase == "" {
		phase = "waiting"
	}
	return fmt.Sprintf("[%s] Requests: %d | 200: %d | 429: %d | Errors: %d | RPS: %.1f | P95: %.1fms",
		phase,
		stats.Total,
		stats.Successes,
		stats.RateLimited,
		stats.Errors,
		stats.RequestsPerSec,
		float64(stats.P95Latency)/float64(time.Millisecond),
	)
}

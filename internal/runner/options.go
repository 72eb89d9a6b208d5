package runner

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/torosent/ratecheck/internal/metrics"
)

// Phase names recorded on every RunResult.
const (
	PhaseProbe     = "probe"
	PhaseSustained = "sustained"
)

const (
	// DefaultPaceEvery is how many probe requests are dispatched between pauses.
	DefaultPaceEvery = 10
	// DefaultPaceDelay is the pause inserted by the probe after each group.
	DefaultPaceDelay = 100 * time.Millisecond
	// DefaultThrottle is the pause each sustained worker takes between requests.
	DefaultThrottle = 100 * time.Millisecond
)

// Requester executes a single request and reports it as a Sample.
// Implementations must be safe for concurrent use and must not fail.
type Requester interface {
	Execute(ctx context.Context) metrics.Sample
}

// RequesterFunc adapts a function to the Requester interface.
type RequesterFunc func(ctx context.Context) metrics.Sample

func (f RequesterFunc) Execute(ctx context.Context) metrics.Sample { return f(ctx) }

// ProbeOptions configure a Probe.
type ProbeOptions struct {
	Requests  int                // number of requests to dispatch (0 yields an empty result)
	PaceEvery int                // pause after this many dispatches
	PaceDelay time.Duration      // length of each pause
	Requester Requester          // request executor (required)
	Observers []metrics.Observer // notified of every sample
}

func (o *ProbeOptions) normalize() {
	if o.Requests < 0 {
		o.Requests = 0
	}
	if o.PaceEvery <= 0 {
		o.PaceEvery = DefaultPaceEvery
	}
	if o.PaceDelay <= 0 {
		o.PaceDelay = DefaultPaceDelay
	}
}

// SustainedOptions configure a Sustained runner.
type SustainedOptions struct {
	Workers        int                         // concurrent closed-loop workers
	Duration       time.Duration               // length of the phase (required)
	Throttle       time.Duration               // pause after each request per worker
	RatePerSecond  int                         // shared cap across workers (0 means unlimited)
	Requester      Requester                   // request executor (required)
	Observers      []metrics.Observer          // notified of every sample
	LimiterFactory func(rps int) *rate.Limiter // optional injection for tests
}

func (o *SustainedOptions) normalize() {
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.Duration < 0 {
		o.Duration = 0
	}
	if o.Throttle <= 0 {
		o.Throttle = DefaultThrottle
	}
	if o.RatePerSecond < 0 {
		o.RatePerSecond = 0
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) *rate.Limiter {
			if rps <= 0 {
				return nil
			}
			// Burst equal to rps to smooth pacing under concurrency.
			return rate.NewLimiter(rate.Limit(rps), rps)
		}
	}
}

// pause blocks for d or until ctx is done, whichever comes first.
func pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

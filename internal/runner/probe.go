package runner

import (
	"context"
	"sync"
	"time"

	"github.com/torosent/ratecheck/internal/metrics"
)

// Probe fires a burst of independent requests to reveal rate limiting.
type Probe struct {
	opt ProbeOptions
}

func NewProbe(opt ProbeOptions) *Probe {
	opt.normalize()
	return &Probe{opt: opt}
}

// Run dispatches every request on its own goroutine, pausing after each group
// of PaceEvery dispatches, and returns once all of them have completed.
// Pacing bounds cadence, not concurrency. Cancelling ctx shortens the pauses
// and is passed to the requests, but every request is still dispatched and
// recorded.
func (p *Probe) Run(ctx context.Context) metrics.RunResult {
	n := p.opt.Requests
	acc := metrics.NewAccumulator(PhaseProbe, n, p.opt.Observers...)

	start := time.Now()
	acc.MarkStarted(start)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			acc.Add(p.opt.Requester.Execute(ctx))
		}()
		dispatched := i + 1
		if dispatched%p.opt.PaceEvery == 0 && dispatched < n {
			pause(ctx, p.opt.PaceDelay)
		}
	}
	wg.Wait()

	return acc.Result(time.Since(start), 0)
}

package runner

import (
	"context"
	"sync"
	"time"

	"github.com/torosent/ratecheck/internal/metrics"
)

// Sustained keeps a fixed number of closed-loop workers busy for a fixed duration.
type Sustained struct {
	opt     SustainedOptions
	arrival arrivalController
}

func NewSustained(opt SustainedOptions) *Sustained {
	opt.normalize()
	return &Sustained{opt: opt, arrival: newArrivalController(opt)}
}

// Run starts all workers at once. Each worker issues a request, records it,
// then pauses for the throttle delay; it stops issuing once the deadline
// (start + Duration) is reached. Requests in flight at the deadline run to
// completion and are recorded. Run returns after every worker has exited.
//
// The returned result carries the configured Duration as its nominal length,
// which is the denominator for QPS.
func (s *Sustained) Run(ctx context.Context) metrics.RunResult {
	acc := metrics.NewAccumulator(PhaseSustained, 0, s.opt.Observers...)

	start := time.Now()
	acc.MarkStarted(start)
	deadline := start.Add(s.opt.Duration)

	// Only pauses and limiter waits observe the deadline; requests use ctx.
	paceCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(s.opt.Workers)
	for i := 0; i < s.opt.Workers; i++ {
		go func() {
			defer wg.Done()
			s.work(ctx, paceCtx, deadline, acc)
		}()
	}
	wg.Wait()

	return acc.Result(time.Since(start), s.opt.Duration)
}

func (s *Sustained) work(ctx, paceCtx context.Context, deadline time.Time, acc *metrics.Accumulator) {
	for {
		if ctx.Err() != nil || !time.Now().Before(deadline) {
			return
		}
		if s.arrival != nil {
			if err := s.arrival.Wait(paceCtx); err != nil {
				// The next slot lies beyond the deadline; idle until it passes.
				<-paceCtx.Done()
				return
			}
			if !time.Now().Before(deadline) {
				return
			}
		}

		acc.Add(s.opt.Requester.Execute(ctx))

		pause(paceCtx, s.opt.Throttle)
	}
}

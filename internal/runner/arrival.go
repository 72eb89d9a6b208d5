package runner

import (
	"context"

	"golang.org/x/time/rate"
)

// arrivalController gates request starts shared across workers.
type arrivalController interface {
	Wait(ctx context.Context) error
}

func newArrivalController(opt SustainedOptions) arrivalController {
	limiter := opt.LimiterFactory(opt.RatePerSecond)
	if limiter == nil {
		return nil
	}
	return &uniformArrival{limiter: limiter}
}

// uniformArrival delegates pacing to a rate.Limiter (uniform spacing).
type uniformArrival struct {
	limiter *rate.Limiter
}

func (u *uniformArrival) Wait(ctx context.Context) error {
	if u == nil || u.limiter == nil {
		return nil
	}
	return u.limiter.Wait(ctx)
}

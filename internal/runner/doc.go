// Package runner generates load in two shapes.
//
// A [Probe] sends a fixed burst of requests, one goroutine per request, pausing
// briefly after every group of dispatches. It is used to find out whether and
// how quickly the target starts answering 429.
//
// A [Sustained] runner keeps a fixed number of workers issuing requests back to
// back, each pausing for a throttle delay between requests, until a deadline:
//
//	r := runner.NewSustained(runner.SustainedOptions{
//		Workers:   5,
//		Duration:  10 * time.Second,
//		Requester: executor,
//	})
//	result := r.Run(ctx)
//
// Both return a [metrics.RunResult] owned by the caller. Failures never abort a
// run; they are recorded as samples with status code 0.
package runner

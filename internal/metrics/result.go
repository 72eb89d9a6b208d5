package metrics

import (
	"sync"
	"time"
)

// Observer receives every Sample after it has been recorded by an Accumulator.
// Implementations must be safe for concurrent use.
type Observer interface {
	Observe(phase string, s Sample)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(phase string, s Sample)

func (f ObserverFunc) Observe(phase string, s Sample) { f(phase, s) }

// RunResult is the finished, caller-owned record of one test phase.
type RunResult struct {
	Phase            string        `json:"phase" yaml:"phase"`
	Samples          []Sample      `json:"samples" yaml:"samples"`
	SuccessCount     int64         `json:"success_count" yaml:"success_count"`
	RateLimitedCount int64         `json:"rate_limited_count" yaml:"rate_limited_count"`
	ErrorCount       int64         `json:"error_count" yaml:"error_count"`
	StatusCodes      map[int]int64 `json:"status_codes,omitempty" yaml:"status_codes,omitempty"`
	Started          time.Time     `json:"started" yaml:"started"`
	Elapsed          time.Duration `json:"-" yaml:"-"`
	Nominal          time.Duration `json:"-" yaml:"-"`
	ElapsedMs        float64       `json:"elapsed_ms" yaml:"elapsed_ms"`
	NominalMs        float64       `json:"nominal_ms,omitempty" yaml:"nominal_ms,omitempty"`
}

// Total returns the number of recorded samples.
func (r RunResult) Total() int64 {
	return int64(len(r.Samples))
}

// Latencies returns the latency of every sample in completion order.
func (r RunResult) Latencies() []time.Duration {
	out := make([]time.Duration, len(r.Samples))
	for i, s := range r.Samples {
		out[i] = s.Latency
	}
	return out
}

// Accumulator collects Samples from concurrent workers during a run.
type Accumulator struct {
	phase     string
	observers []Observer

	mu          sync.Mutex
	samples     []Sample
	successes   int64
	rateLimited int64
	errors      int64
	statusCodes map[int]int64
	started     time.Time
}

// NewAccumulator creates an Accumulator for the named phase. sizeHint preallocates
// the sample slice and may be zero.
func NewAccumulator(phase string, sizeHint int, observers ...Observer) *Accumulator {
	if sizeHint < 0 {
		sizeHint = 0
	}
	obs := make([]Observer, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			obs = append(obs, o)
		}
	}
	return &Accumulator{
		phase:       phase,
		observers:   obs,
		samples:     make([]Sample, 0, sizeHint),
		statusCodes: make(map[int]int64),
		started:     time.Now(),
	}
}

// Phase returns the phase name the accumulator was created for.
func (a *Accumulator) Phase() string { return a.phase }

// MarkStarted resets the phase start time.
func (a *Accumulator) MarkStarted(t time.Time) {
	a.mu.Lock()
	a.started = t
	a.mu.Unlock()
}

// Add records one Sample and notifies observers.
func (a *Accumulator) Add(s Sample) {
	a.mu.Lock()
	a.samples = append(a.samples, s)
	switch s.Outcome() {
	case OutcomeSuccess:
		a.successes++
	case OutcomeRateLimited:
		a.rateLimited++
	default:
		a.errors++
	}
	a.statusCodes[s.StatusCode]++
	a.mu.Unlock()

	for _, o := range a.observers {
		o.Observe(a.phase, s)
	}
}

// Len returns the number of samples recorded so far.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.samples)
}

// Result returns a deep copy of the accumulated state. elapsed is the measured wall
// time of the phase and nominal the configured duration (zero when the phase has none).
func (a *Accumulator) Result(elapsed, nominal time.Duration) RunResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	samples := make([]Sample, len(a.samples))
	copy(samples, a.samples)

	codes := make(map[int]int64, len(a.statusCodes))
	for k, v := range a.statusCodes {
		codes[k] = v
	}

	return RunResult{
		Phase:            a.phase,
		Samples:          samples,
		SuccessCount:     a.successes,
		RateLimitedCount: a.rateLimited,
		ErrorCount:       a.errors,
		StatusCodes:      codes,
		Started:          a.started,
		Elapsed:          elapsed,
		Nominal:          nominal,
		ElapsedMs:        durationMs(elapsed),
		NominalMs:        durationMs(nominal),
	}
}

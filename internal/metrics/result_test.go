package metrics_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/torosent/ratecheck/internal/metrics"
)

func TestSampleOutcome(t *testing.T) {
	tests := []struct {
		status int
		want   metrics.Outcome
	}{
		{200, metrics.OutcomeSuccess},
		{429, metrics.OutcomeRateLimited},
		{0, metrics.OutcomeError},
		{201, metrics.OutcomeError},
		{500, metrics.OutcomeError},
	}
	for _, tt := range tests {
		if got := sample(tt.status, time.Millisecond).Outcome(); got != tt.want {
			t.Errorf("Outcome(%d) = %s, want %s", tt.status, got, tt.want)
		}
	}
}

func TestNewSampleKeepsErrorOnlyForTransportFailures(t *testing.T) {
	s := metrics.NewSample(time.Now(), 500, 2*time.Millisecond, "ignored")
	if s.Error != "" {
		t.Fatalf("expected no error detail for HTTP responses, got %q", s.Error)
	}
	s = metrics.NewSample(time.Now(), 0, 2*time.Millisecond, "timeout: boom")
	if s.Error != "timeout: boom" {
		t.Fatalf("expected error detail, got %q", s.Error)
	}
	if s.LatencyMs != 2 {
		t.Fatalf("expected latency_ms 2, got %v", s.LatencyMs)
	}
}

func TestAccumulatorConcurrentAdds(t *testing.T) {
	var observed int64
	obs := metrics.ObserverFunc(func(phase string, s metrics.Sample) {
		if phase != "probe" {
			t.Errorf("unexpected phase %q", phase)
		}
		atomic.AddInt64(&observed, 1)
	})
	acc := metrics.NewAccumulator("probe", 0, obs, nil)

	var wg sync.WaitGroup
	workers := 20
	perWorker := 50
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				status := 200
				switch (i + j) % 3 {
				case 1:
					status = 429
				case 2:
					status = 0
				}
				acc.Add(sample(status, time.Millisecond))
			}
		}(i)
	}
	wg.Wait()

	r := acc.Result(time.Second, 0)
	want := int64(workers * perWorker)
	if r.Total() != want {
		t.Fatalf("expected %d samples, got %d", want, r.Total())
	}
	if sum := r.SuccessCount + r.RateLimitedCount + r.ErrorCount; sum != want {
		t.Fatalf("counters do not add up: %d != %d", sum, want)
	}
	var codes int64
	for _, c := range r.StatusCodes {
		codes += c
	}
	if codes != want {
		t.Fatalf("status code counts do not add up: %d != %d", codes, want)
	}
	if atomic.LoadInt64(&observed) != want {
		t.Fatalf("expected observer to see %d samples, got %d", want, observed)
	}
}

func TestAccumulatorResultIsACopy(t *testing.T) {
	acc := metrics.NewAccumulator("sustained", 0)
	acc.Add(sample(200, time.Millisecond))

	r := acc.Result(time.Second, time.Second)
	acc.Add(sample(429, time.Millisecond))

	if r.Total() != 1 {
		t.Fatalf("result changed after further adds: %d samples", r.Total())
	}
	if r.StatusCodes[429] != 0 {
		t.Fatalf("status codes changed after further adds")
	}
	if acc.Len() != 2 {
		t.Fatalf("expected accumulator to hold 2 samples, got %d", acc.Len())
	}
	if r.ElapsedMs != 1000 || r.NominalMs != 1000 {
		t.Fatalf("unexpected ms fields: %+v", r)
	}
}

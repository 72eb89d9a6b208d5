package metrics_test

import (
	"sync"
	"testing"
	"time"

	"github.com/torosent/ratecheck/internal/metrics"
)

func sample(status int, latency time.Duration) metrics.Sample {
	return metrics.NewSample(time.Now(), status, latency, "")
}

func TestCollectorLatencyStats(t *testing.T) {
	c := metrics.NewCollector()

	c.Observe("sustained", sample(200, 10*time.Millisecond))
	c.Observe("sustained", sample(200, 20*time.Millisecond))
	c.Observe("sustained", sample(429, 30*time.Millisecond))
	c.Observe("sustained", sample(500, 40*time.Millisecond))
	c.Observe("sustained", sample(0, 50*time.Millisecond))

	stats := c.Stats()

	if stats.Total != 5 {
		t.Errorf("expected total 5, got %d", stats.Total)
	}
	if stats.Successes != 2 {
		t.Errorf("expected successes 2, got %d", stats.Successes)
	}
	if stats.RateLimited != 1 {
		t.Errorf("expected rate limited 1, got %d", stats.RateLimited)
	}
	if stats.Errors != 2 {
		t.Errorf("expected errors 2, got %d", stats.Errors)
	}
	if stats.MinLatency != 10*time.Millisecond {
		t.Errorf("expected min 10ms, got %s", stats.MinLatency)
	}
	if stats.MaxLatency != 50*time.Millisecond {
		t.Errorf("expected max 50ms, got %s", stats.MaxLatency)
	}
	if stats.MeanLatency != 30*time.Millisecond {
		t.Errorf("expected mean 30ms, got %s", stats.MeanLatency)
	}
	if stats.Phase != "sustained" {
		t.Errorf("expected phase sustained, got %q", stats.Phase)
	}
}

func TestCollectorPercentilesApproximate(t *testing.T) {
	c := metrics.NewCollector()
	for i := 1; i <= 100; i++ {
		c.Observe("sustained", sample(200, time.Duration(i)*time.Millisecond))
	}

	stats := c.Stats()
	if stats.P50Latency < 49*time.Millisecond || stats.P50Latency > 51*time.Millisecond {
		t.Errorf("expected P50 ~50ms, got %s", stats.P50Latency)
	}
	if stats.P95Latency < 94*time.Millisecond || stats.P95Latency > 96*time.Millisecond {
		t.Errorf("expected P95 ~95ms, got %s", stats.P95Latency)
	}
	if stats.P99Latency < 98*time.Millisecond || stats.P99Latency > 100*time.Millisecond {
		t.Errorf("expected P99 ~99ms, got %s", stats.P99Latency)
	}
}

func TestCollectorReset(t *testing.T) {
	c := metrics.NewCollector()
	c.Observe("probe", sample(429, time.Millisecond))
	c.Reset("sustained")

	stats := c.Stats()
	if stats.Total != 0 {
		t.Fatalf("expected reset collector to be empty, got %d", stats.Total)
	}
	if stats.Phase != "sustained" {
		t.Fatalf("expected phase sustained after reset, got %q", stats.Phase)
	}
	if stats.P99Latency != 0 {
		t.Fatalf("expected zero percentile after reset, got %s", stats.P99Latency)
	}
}

func TestCollectorConcurrentRecording(t *testing.T) {
	c := metrics.NewCollector()

	var wg sync.WaitGroup
	workers := 10
	recordsPerWorker := 100

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < recordsPerWorker; j++ {
				c.Observe("sustained", sample(200, time.Millisecond))
			}
		}()
	}
	wg.Wait()

	stats := c.Stats()
	expected := int64(workers * recordsPerWorker)
	if stats.Total != expected {
		t.Errorf("expected total %d, got %d", expected, stats.Total)
	}
	if stats.StatusCodes[200] != expected {
		t.Errorf("expected %d status 200 entries, got %d", expected, stats.StatusCodes[200])
	}
}

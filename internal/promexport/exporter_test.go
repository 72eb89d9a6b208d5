package promexport_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/torosent/ratecheck/internal/metrics"
	"github.com/torosent/ratecheck/internal/promexport"
)

func TestExporterCountsOutcomes(t *testing.T) {
	e := promexport.New()
	now := time.Now()
	e.Observe("probe", metrics.NewSample(now, 200, 10*time.Millisecond, ""))
	e.Observe("probe", metrics.NewSample(now, 429, 2*time.Millisecond, ""))
	e.Observe("probe", metrics.NewSample(now, 429, 2*time.Millisecond, ""))
	e.Observe("sustained", metrics.NewSample(now, 0, time.Millisecond, "timeout: x"))

	expected := `
# HELP ratecheck_requests_total Requests completed, by phase and outcome.
# TYPE ratecheck_requests_total counter
ratecheck_requests_total{outcome="error",phase="sustained"} 1
ratecheck_requests_total{outcome="rate_limited",phase="probe"} 2
ratecheck_requests_total{outcome="success",phase="probe"} 1
`
	if err := testutil.GatherAndCompare(e.Registry(), strings.NewReader(expected), "ratecheck_requests_total"); err != nil {
		t.Fatalf("unexpected requests_total: %v", err)
	}

	codes := `
# HELP ratecheck_status_codes_total Responses by HTTP status code; code 0 means no response.
# TYPE ratecheck_status_codes_total counter
ratecheck_status_codes_total{code="0",phase="sustained"} 1
ratecheck_status_codes_total{code="200",phase="probe"} 1
ratecheck_status_codes_total{code="429",phase="probe"} 2
`
	if err := testutil.GatherAndCompare(e.Registry(), strings.NewReader(codes), "ratecheck_status_codes_total"); err != nil {
		t.Fatalf("unexpected status_codes_total: %v", err)
	}

	n, err := testutil.GatherAndCount(e.Registry(), "ratecheck_request_duration_seconds")
	if err != nil {
		t.Fatalf("GatherAndCount() error = %v", err)
	}
	if n != 2 {
		t.Fatalf("expected duration histograms for 2 phases, got %d", n)
	}
}

func TestExportersAreIndependent(t *testing.T) {
	a, b := promexport.New(), promexport.New()
	a.Observe("probe", metrics.NewSample(time.Now(), 200, time.Millisecond, ""))

	n, err := testutil.GatherAndCount(b.Registry(), "ratecheck_requests_total")
	if err != nil {
		t.Fatalf("GatherAndCount() error = %v", err)
	}
	if n != 0 {
		t.Fatalf("expected empty second exporter, got %d series", n)
	}
}

func TestServeExposesMetrics(t *testing.T) {
	e := promexport.New()
	e.Observe("probe", metrics.NewSample(time.Now(), 200, time.Millisecond, ""))

	ctx, cancel := context.WithCancel(context.Background())
	addr, done, err := e.Serve(ctx, "127.0.0.1:0", nil)
	if err != nil {
		t.Fatalf("Serve() error = %v", err)
	}

	resp, err := http.Get("http://" + addr.String() + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if !strings.Contains(string(body), `ratecheck_requests_total{outcome="success",phase="probe"} 1`) {
		t.Fatalf("metric missing from scrape:\n%s", body)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("metrics server did not stop")
	}
}

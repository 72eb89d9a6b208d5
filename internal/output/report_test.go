package output_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/torosent/ratecheck/internal/engine"
	"github.com/torosent/ratecheck/internal/metrics"
	"github.com/torosent/ratecheck/internal/output"
	"github.com/torosent/ratecheck/internal/threshold"
)

const fixtureRunID = "01HF3V5E2X0000000000000000"

// fixtureReport mirrors a typical run: a probe of 150 requests where 50 are
// limited, then 40 sustained samples over 2s with some limiting and timeouts.
func fixtureReport() *engine.Report {
	t0 := time.Unix(1700000000, 0)

	probe := metrics.NewAccumulator("probe", 150)
	for i := 0; i < 150; i++ {
		status := 200
		if i >= 100 {
			status = 429
		}
		probe.Add(metrics.NewSample(t0, status, 10*time.Millisecond, ""))
	}

	sustained := metrics.NewAccumulator("sustained", 40)
	for i := 0; i < 40; i++ {
		status, detail := 200, ""
		switch {
		case i%8 == 6:
			status = 429
		case i%8 == 7:
			status, detail = 0, "timeout: context deadline exceeded"
		}
		ts := t0.Add(time.Duration(i) * 50 * time.Millisecond)
		sustained.Add(metrics.NewSample(ts, status, time.Duration(i+1)*time.Millisecond, detail))
	}

	pr := probe.Result(time.Second, 0)
	sr := sustained.Result(2*time.Second, 2*time.Second)
	return &engine.Report{
		RunID:            fixtureRunID,
		Target:           "http://localhost:8080/api/hello",
		HealthURL:        "http://localhost:8080/api/health",
		StartedAt:        t0,
		FinishedAt:       t0.Add(13 * time.Second),
		Users:            20,
		Duration:         2 * time.Second,
		Cooldown:         10 * time.Second,
		ProbeRequests:    150,
		Probe:            pr,
		Sustained:        sr,
		ProbeSummary:     metrics.Summarize(pr),
		SustainedSummary: metrics.Summarize(sr),
	}
}

func fixtureThresholds(t *testing.T) []threshold.Result {
	t.Helper()
	ths, err := threshold.ParseMultiple([]string{
		"http_req_duration:p95 < 100",
		"http_req_failed:rate < 0.01",
	})
	if err != nil {
		t.Fatalf("ParseMultiple: %v", err)
	}
	return threshold.NewEvaluator(ths).Evaluate(fixtureReport().SustainedSummary)
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	output.PrintReport(&buf, output.NewDocument(fixtureReport(), fixtureThresholds(t)), nil)
	out := buf.String()

	for _, want := range []string{
		"LOAD TEST SUMMARY",
		"Run ID: " + fixtureRunID,
		"Rate Limiting Test Results:",
		"Successful (200): 100",
		"Rate Limited (429): 50",
		"Rate Limit Percentage: 33.33%",
		"Average Response Time: 0.010s",
		"Sustained Load Test Results:",
		"Total Requests: 40",
		"Successful Requests: 30",
		"Rate Limited Requests: 5",
		"Error Requests: 5",
		"Success Rate: 75.00%",
		"Average QPS: 20.00",
		"Min Response Time: 0.001s",
		"Max Response Time: 0.040s",
		"95th Percentile: 0.038s",
		"ERR: 5",
		"timeout: 5",
		"✓ http_req_duration:p95 < 100",
		"✗ http_req_failed:rate < 0.01",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in report:\n%s", want, out)
		}
	}
	if strings.Contains(out, "   Errors: ") {
		t.Errorf("probe error line printed without probe errors")
	}
}

func TestPrintReportNoData(t *testing.T) {
	rep := fixtureReport()
	rep.Sustained = metrics.NewAccumulator("sustained", 0).Result(0, 2*time.Second)
	rep.SustainedSummary = metrics.Summarize(rep.Sustained)

	var buf bytes.Buffer
	output.PrintReport(&buf, output.NewDocument(rep, nil), nil)
	out := buf.String()

	for _, want := range []string{
		"Average Response Time: no data",
		"Min Response Time: no data",
		"95th Percentile: no data",
		"Average QPS: 0.00",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in report:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Thresholds:") {
		t.Errorf("threshold block printed without thresholds")
	}
}

func TestPrintJSONReport(t *testing.T) {
	var buf bytes.Buffer
	if err := output.PrintJSONReport(&buf, output.NewDocument(fixtureReport(), fixtureThresholds(t))); err != nil {
		t.Fatalf("PrintJSONReport failed: %v", err)
	}

	var doc struct {
		RunID         string `json:"run_id"`
		RateLimitTest struct {
			Summary struct {
				Total               int64   `json:"total"`
				RateLimitPercentage float64 `json:"rate_limit_percentage"`
			} `json:"summary"`
		} `json:"rate_limit_test"`
		Sustained struct {
			Summary struct {
				QPS     float64 `json:"qps"`
				Latency struct {
					P95Ms float64 `json:"p95_ms"`
				} `json:"latency"`
			} `json:"summary"`
			ErrorBreakdown map[string]int    `json:"error_breakdown"`
			Charts         map[string][]any  `json:"charts"`
			Samples        []json.RawMessage `json:"samples"`
		} `json:"sustained_load_test"`
		Thresholds       []map[string]any `json:"thresholds"`
		ThresholdsPassed bool             `json:"thresholds_passed"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}

	if doc.RunID != fixtureRunID {
		t.Errorf("run_id = %q", doc.RunID)
	}
	if doc.RateLimitTest.Summary.Total != 150 {
		t.Errorf("probe total = %d", doc.RateLimitTest.Summary.Total)
	}
	if got := doc.RateLimitTest.Summary.RateLimitPercentage; got < 33.33 || got > 33.34 {
		t.Errorf("rate_limit_percentage = %v", got)
	}
	if doc.Sustained.Summary.QPS != 20 {
		t.Errorf("qps = %v", doc.Sustained.Summary.QPS)
	}
	if doc.Sustained.Summary.Latency.P95Ms != 38 {
		t.Errorf("p95_ms = %v", doc.Sustained.Summary.Latency.P95Ms)
	}
	if doc.Sustained.ErrorBreakdown["timeout"] != 5 {
		t.Errorf("error_breakdown = %v", doc.Sustained.ErrorBreakdown)
	}
	if len(doc.Sustained.Samples) != 40 {
		t.Errorf("expected 40 raw samples, got %d", len(doc.Sustained.Samples))
	}
	if len(doc.Sustained.Charts["latency_histogram"]) != 50 {
		t.Errorf("expected 50 histogram bins, got %d", len(doc.Sustained.Charts["latency_histogram"]))
	}
	if len(doc.Sustained.Charts["qps_over_time"]) == 0 {
		t.Errorf("expected a qps series")
	}
	if len(doc.Thresholds) != 2 || doc.ThresholdsPassed {
		t.Errorf("unexpected threshold output: %v passed=%v", doc.Thresholds, doc.ThresholdsPassed)
	}
}

func TestPrintYAMLReport(t *testing.T) {
	var buf bytes.Buffer
	if err := output.PrintYAMLReport(&buf, output.NewDocument(fixtureReport(), nil)); err != nil {
		t.Fatalf("PrintYAMLReport failed: %v", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if doc["run_id"] != fixtureRunID {
		t.Errorf("run_id = %v", doc["run_id"])
	}
	if doc["thresholds_passed"] != true {
		t.Errorf("thresholds_passed = %v", doc["thresholds_passed"])
	}
	sustained, ok := doc["sustained_load_test"].(map[string]any)
	if !ok {
		t.Fatalf("missing sustained_load_test in:\n%s", buf.String())
	}
	summary := sustained["summary"].(map[string]any)
	if summary["total"] != 40 {
		t.Errorf("total = %v (%T)", summary["total"], summary["total"])
	}
	cfg := doc["config"].(map[string]any)
	if cfg["users"] != 20 {
		t.Errorf("config.users = %v", cfg["users"])
	}
}

func TestNewDocumentEmptySamples(t *testing.T) {
	rep := fixtureReport()
	rep.Sustained = metrics.NewAccumulator("sustained", 0).Result(0, time.Second)
	doc := output.NewDocument(rep, nil)

	if doc.Sustained.Samples == nil || len(doc.Sustained.Samples) != 0 {
		t.Fatalf("expected an empty, non-nil sample list")
	}
	if doc.Sustained.ErrorBreakdown != nil {
		t.Errorf("expected no error breakdown")
	}
	if !doc.ThresholdsPassed {
		t.Errorf("no thresholds should count as passed")
	}
}

func TestPrintReportColored(t *testing.T) {
	p := output.DefaultPalette()
	p.Heading.EnableColor()
	p.Pass.EnableColor()
	p.Fail.EnableColor()
	p.Warn.EnableColor()

	var buf bytes.Buffer
	output.PrintReport(&buf, output.NewDocument(fixtureReport(), fixtureThresholds(t)), p)
	out := buf.String()

	if !strings.Contains(out, "\x1b[") {
		t.Fatalf("expected ANSI escapes in colored report:\n%q", out)
	}
	if !strings.Contains(out, "\x1b[31;1m✗ http_req_failed:rate < 0.01") {
		t.Errorf("failed threshold not rendered in fail color:\n%q", out)
	}
	if !strings.Contains(out, "Rate Limited (429): "+p.Warn.Sprint(int64(50))) {
		t.Errorf("rate limited count not highlighted:\n%q", out)
	}
}

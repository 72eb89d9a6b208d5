package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/torosent/ratecheck/internal/chart"
	"github.com/torosent/ratecheck/internal/engine"
	"github.com/torosent/ratecheck/internal/metrics"
	"github.com/torosent/ratecheck/internal/threshold"
)

const (
	rule   = "============================================================"
	noData = "no data"
)

// Document is the report shape shared by the JSON, YAML and HTML outputs.
type Document struct {
	RunID            string             `json:"run_id" yaml:"run_id"`
	Target           string             `json:"target" yaml:"target"`
	HealthURL        string             `json:"health_url" yaml:"health_url"`
	StartedAt        time.Time          `json:"started_at" yaml:"started_at"`
	FinishedAt       time.Time          `json:"finished_at" yaml:"finished_at"`
	Config           RunConfig          `json:"config" yaml:"config"`
	Probe            Phase              `json:"rate_limit_test" yaml:"rate_limit_test"`
	Sustained        Phase              `json:"sustained_load_test" yaml:"sustained_load_test"`
	Thresholds       []threshold.Result `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
	ThresholdsPassed bool               `json:"thresholds_passed" yaml:"thresholds_passed"`
}

// RunConfig records the load shape of the run.
type RunConfig struct {
	Users             int     `json:"users" yaml:"users"`
	DurationSeconds   float64 `json:"duration_seconds" yaml:"duration_seconds"`
	RateLimitRequests int     `json:"rate_limit_requests" yaml:"rate_limit_requests"`
	CooldownSeconds   float64 `json:"cooldown_seconds" yaml:"cooldown_seconds"`
}

// Phase holds everything reported about one phase.
type Phase struct {
	Summary        metrics.Summary  `json:"summary" yaml:"summary"`
	ErrorBreakdown map[string]int   `json:"error_breakdown,omitempty" yaml:"error_breakdown,omitempty"`
	Charts         chart.Series     `json:"charts" yaml:"charts"`
	Samples        []metrics.Sample `json:"samples" yaml:"samples"`
}

// NewDocument assembles the report document from an engine run and the
// threshold results evaluated against it.
func NewDocument(r *engine.Report, results []threshold.Result) Document {
	return Document{
		RunID:      r.RunID,
		Target:     r.Target,
		HealthURL:  r.HealthURL,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Config: RunConfig{
			Users:             r.Users,
			DurationSeconds:   r.Duration.Seconds(),
			RateLimitRequests: r.ProbeRequests,
			CooldownSeconds:   r.Cooldown.Seconds(),
		},
		Probe:            newPhase(r.Probe, r.ProbeSummary),
		Sustained:        newPhase(r.Sustained, r.SustainedSummary),
		Thresholds:       results,
		ThresholdsPassed: threshold.AllPassed(results),
	}
}

func newPhase(result metrics.RunResult, summary metrics.Summary) Phase {
	samples := result.Samples
	if samples == nil {
		samples = []metrics.Sample{}
	}
	return Phase{
		Summary:        summary,
		ErrorBreakdown: metrics.ErrorBreakdown(result.Samples),
		Charts:         chart.Build(result),
		Samples:        samples,
	}
}

// PrintReport outputs a human-readable summary of both phases. A nil palette
// prints without color.
func PrintReport(w io.Writer, doc Document, p *Palette) {
	if p == nil {
		p = PlainPalette()
	}
	fmt.Fprintln(w, "\n"+rule)
	fmt.Fprintln(w, p.Heading.Sprint("LOAD TEST SUMMARY"))
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Run ID: %s\n", doc.RunID)
	fmt.Fprintf(w, "Target: %s\n", doc.Target)

	probe := doc.Probe.Summary
	fmt.Fprintln(w, "\nRate Limiting Test Results:")
	fmt.Fprintf(w, "   Total Requests: %d\n", probe.Total)
	fmt.Fprintf(w, "   Successful (200): %d\n", probe.Successes)
	fmt.Fprintf(w, "   Rate Limited (429): %s\n", p.count(probe.RateLimited))
	if probe.Errors > 0 {
		fmt.Fprintf(w, "   Errors: %d\n", probe.Errors)
	}
	fmt.Fprintf(w, "   Rate Limit Percentage: %.2f%%\n", probe.RateLimitPercentage)
	fmt.Fprintf(w, "   Average Response Time: %s\n", latencyView(probe.Latency).mean)

	sustained := doc.Sustained.Summary
	fmt.Fprintln(w, "\nSustained Load Test Results:")
	fmt.Fprintf(w, "   Total Requests: %d\n", sustained.Total)
	fmt.Fprintf(w, "   Successful Requests: %d\n", sustained.Successes)
	fmt.Fprintf(w, "   Rate Limited Requests: %s\n", p.count(sustained.RateLimited))
	fmt.Fprintf(w, "   Error Requests: %s\n", p.count(sustained.Errors))
	fmt.Fprintf(w, "   Success Rate: %.2f%%\n", sustained.SuccessRate)
	fmt.Fprintf(w, "   Average QPS: %.2f\n", sustained.QPS)
	lat := latencyView(sustained.Latency)
	fmt.Fprintf(w, "   Average Response Time: %s\n", lat.mean)
	fmt.Fprintf(w, "   Min Response Time: %s\n", lat.fastest)
	fmt.Fprintf(w, "   Max Response Time: %s\n", lat.slowest)
	fmt.Fprintf(w, "   95th Percentile: %s\n", lat.p95)

	if rows := metrics.FlattenStatusCodes(sustained.StatusCodes); len(rows) > 0 {
		fmt.Fprintln(w, "\nStatus Codes:")
		for _, row := range rows {
			fmt.Fprintf(w, "   %s: %d\n", row.Label(), row.Count)
		}
	}

	if errs := mergeBreakdowns(doc.Probe.ErrorBreakdown, doc.Sustained.ErrorBreakdown); len(errs) > 0 {
		fmt.Fprintln(w, "\nErrors:")
		for _, kind := range metrics.SortedErrorKinds(errs) {
			fmt.Fprintf(w, "   %s: %d\n", kind, errs[kind])
		}
	}

	if len(doc.Thresholds) > 0 {
		fmt.Fprintln(w, "\nThresholds:")
		for _, r := range doc.Thresholds {
			fmt.Fprintf(w, "   %s\n", p.threshold(r.Pass, r.Message))
		}
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// PrintYAMLReport outputs a YAML-formatted report.
func PrintYAMLReport(w io.Writer, doc Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

type latencyLines struct {
	mean, fastest, slowest, p95 string
}

// latencyView renders latency aggregates as fractional seconds, or "no data"
// when the phase recorded no samples.
func latencyView(l *metrics.LatencyStats) latencyLines {
	if l == nil {
		return latencyLines{mean: noData, fastest: noData, slowest: noData, p95: noData}
	}
	return latencyLines{
		mean:    formatSeconds(l.Mean),
		fastest: formatSeconds(l.Min),
		slowest: formatSeconds(l.Max),
		p95:     formatSeconds(l.P95),
	}
}

func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.3fs", d.Seconds())
}

func mergeBreakdowns(parts ...map[string]int) map[string]int {
	out := make(map[string]int)
	for _, p := range parts {
		for k, v := range p {
			out[k] += v
		}
	}
	return out
}

package dashboard

import (
	"strings"
	"testing"
	"time"

	"github.com/gizak/termui/v3/widgets"

	"github.com/torosent/ratecheck/internal/metrics"
)

func newTestDashboard(cfg TestConfig) *Dashboard {
	d := &Dashboard{testConfig: cfg}
	sparkline := widgets.NewSparkline()
	d.latencySparkle = widgets.NewSparklineGroup(sparkline)
	d.latencyPara = widgets.NewParagraph()
	d.limitGauge = widgets.NewGauge()
	d.statusList = widgets.NewList()
	d.summaryPara = widgets.NewParagraph()
	d.metricsPara = widgets.NewParagraph()
	return d
}

func TestFormatStatusListRows(t *testing.T) {
	rows := formatStatusListRows(map[int]int64{200: 80, 429: 15, 0: 5})
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0] != "[200](fg:green) 80" {
		t.Errorf("unexpected first row %q", rows[0])
	}
	if rows[1] != "[429](fg:yellow) 15" {
		t.Errorf("unexpected second row %q", rows[1])
	}
	if rows[2] != "[ERR](fg:red) 5" {
		t.Errorf("unexpected third row %q", rows[2])
	}
}

func TestFormatStatusListRowsEmpty(t *testing.T) {
	rows := formatStatusListRows(nil)
	if len(rows) != 1 || !strings.Contains(rows[0], "Awaiting data") {
		t.Fatalf("unexpected rows %v", rows)
	}
}

func TestFormatStatusListRowsCapped(t *testing.T) {
	codes := make(map[int]int64)
	for i := 0; i < 15; i++ {
		codes[500+i] = int64(i + 1)
	}
	if rows := formatStatusListRows(codes); len(rows) != maxStatusRows {
		t.Fatalf("expected %d rows, got %d", maxStatusRows, len(rows))
	}
}

func TestUpdate(t *testing.T) {
	d := newTestDashboard(TestConfig{TargetURL: "http://localhost:8080/api/hello", Users: 20})

	d.update(metrics.LiveStats{
		Phase:          "sustained",
		Total:          200,
		Successes:      150,
		RateLimited:    50,
		MinLatency:     2 * time.Millisecond,
		MaxLatency:     40 * time.Millisecond,
		MeanLatency:    10 * time.Millisecond,
		P95Latency:     30 * time.Millisecond,
		Elapsed:        5 * time.Second,
		RequestsPerSec: 40,
		StatusCodes:    map[int]int64{200: 150, 429: 50},
	})

	if d.limitGauge.Percent != 25 {
		t.Errorf("expected 25%% limited, got %d", d.limitGauge.Percent)
	}
	if !strings.Contains(d.limitGauge.Label, "50 of 200") {
		t.Errorf("unexpected gauge label %q", d.limitGauge.Label)
	}
	if !strings.Contains(d.summaryPara.Text, "Phase: sustained") || !strings.Contains(d.summaryPara.Text, "Success Rate: 75.0%") {
		t.Errorf("unexpected summary %q", d.summaryPara.Text)
	}
	if !strings.Contains(d.latencyPara.Text, "P95:  30.00ms") {
		t.Errorf("unexpected latency text %q", d.latencyPara.Text)
	}
	if len(d.latencyHistory) != 1 || d.latencyHistory[0] != 10 {
		t.Errorf("unexpected latency history %v", d.latencyHistory)
	}
	if len(d.statusList.Rows) != 2 {
		t.Errorf("expected 2 status rows, got %v", d.statusList.Rows)
	}
}

func TestUpdateBeforeFirstSample(t *testing.T) {
	d := newTestDashboard(TestConfig{})
	d.update(metrics.LiveStats{})

	if len(d.latencyHistory) != 0 {
		t.Errorf("expected no latency history, got %v", d.latencyHistory)
	}
	if !strings.Contains(d.summaryPara.Text, "Phase: starting") {
		t.Errorf("unexpected summary %q", d.summaryPara.Text)
	}
	if d.limitGauge.Percent != 0 {
		t.Errorf("expected empty gauge, got %d", d.limitGauge.Percent)
	}
}

func TestLatencyHistoryIsBounded(t *testing.T) {
	d := newTestDashboard(TestConfig{})
	for i := 0; i < historyLen+20; i++ {
		d.update(metrics.LiveStats{Total: 1, MeanLatency: time.Duration(i) * time.Millisecond})
	}
	if len(d.latencyHistory) != historyLen {
		t.Fatalf("expected %d history points, got %d", historyLen, len(d.latencyHistory))
	}
	if d.latencyHistory[historyLen-1] != float64(historyLen+19) {
		t.Errorf("expected newest point last, got %v", d.latencyHistory[historyLen-1])
	}
}

func TestFormatTestParams(t *testing.T) {
	tests := []struct {
		name     string
		config   TestConfig
		contains []string
		excludes []string
	}{
		{
			name: "basic config",
			config: TestConfig{
				Users:             10,
				Rate:              100,
				Duration:          30 * time.Second,
				RateLimitRequests: 150,
			},
			contains: []string{"Probe: 150", "Users: 10", "Rate: 100/s", "Duration: 30s"},
			excludes: []string{"Config:"},
		},
		{
			name: "unlimited rate",
			config: TestConfig{
				Users: 5,
				Rate:  0,
			},
			contains: []string{"Users: 5", "Rate: unlimited"},
			excludes: []string{"Probe:"},
		},
		{
			name: "with config file",
			config: TestConfig{
				Users:      5,
				ConfigFile: "test.yml",
			},
			contains: []string{"Config: test.yml"},
		},
		{
			name: "with timeout",
			config: TestConfig{
				Users:   5,
				Timeout: 10 * time.Second,
			},
			contains: []string{"Timeout: 10s"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &Dashboard{testConfig: tt.config}
			result := d.formatTestParams()

			for _, s := range tt.contains {
				if !strings.Contains(result, s) {
					t.Errorf("expected result to contain %q, got %q", s, result)
				}
			}

			for _, s := range tt.excludes {
				if strings.Contains(result, s) {
					t.Errorf("expected result NOT to contain %q, got %q", s, result)
				}
			}
		})
	}
}

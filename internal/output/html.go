package output

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/torosent/ratecheck/internal/chart"
	"github.com/torosent/ratecheck/internal/threshold"
)

// HTMLReportData contains all data needed for the HTML report template.
type HTMLReportData struct {
	GeneratedAt      string
	Doc              Document
	ThresholdSummary *ThresholdSummary
	ChartsJSON       string
	HasSamples       bool
}

// ThresholdSummary aggregates threshold results for the report.
type ThresholdSummary struct {
	Total   int                   `json:"total"`
	Passed  int                   `json:"passed"`
	Failed  int                   `json:"failed"`
	Results []ThresholdResultJSON `json:"results"`
}

// ThresholdResultJSON is one threshold row of the report.
type ThresholdResultJSON struct {
	Threshold string  `json:"threshold"`
	Metric    string  `json:"metric"`
	Aggregate string  `json:"aggregate"`
	Operator  string  `json:"operator"`
	Expected  float64 `json:"expected"`
	Actual    float64 `json:"actual"`
	Pass      bool    `json:"pass"`
	Message   string  `json:"message"`
}

// GenerateHTMLReport generates a standalone HTML report with embedded charts of
// the sustained phase.
func GenerateHTMLReport(w io.Writer, doc Document) error {
	chartsJSON, err := json.Marshal(doc.Sustained.Charts)
	if err != nil {
		return fmt.Errorf("failed to marshal charts: %w", err)
	}

	data := HTMLReportData{
		GeneratedAt:      time.Now().Format(time.RFC3339),
		Doc:              doc,
		ThresholdSummary: summarizeThresholds(doc.Thresholds),
		ChartsJSON:       string(chartsJSON),
		HasSamples:       len(doc.Sustained.Samples) > 0,
	}

	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"formatMs": func(ms float64) string {
			return fmt.Sprintf("%.2f ms", ms)
		},
		"formatFloat": func(f float64) string {
			return fmt.Sprintf("%.2f", f)
		},
		"formatPercent": func(p float64) string {
			return fmt.Sprintf("%.1f", p)
		},
		"barWidth": func(s chart.Slice) template.CSS {
			return template.CSS(fmt.Sprintf("width: %.1f%%", s.Percent))
		},
	}).Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	return nil
}

func summarizeThresholds(results []threshold.Result) *ThresholdSummary {
	if len(results) == 0 {
		return nil
	}
	summary := &ThresholdSummary{
		Total:   len(results),
		Results: make([]ThresholdResultJSON, len(results)),
	}
	for i, tr := range results {
		summary.Results[i] = ThresholdResultJSON{
			Threshold: tr.Raw,
			Metric:    tr.Threshold.Metric,
			Aggregate: tr.Threshold.Aggregate,
			Operator:  tr.Threshold.Operator,
			Expected:  tr.Threshold.Value,
			Actual:    tr.Actual,
			Pass:      tr.Pass,
			Message:   tr.Message,
		}
		if tr.Pass {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}
	return summary
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Ratecheck Load Test Report</title>
    <style>
        * {
            margin: 0;
            padding: 0;
            box-sizing: border-box;
        }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background: #f5f7fa;
            color: #2c3e50;
            line-height: 1.6;
            padding: 20px;
        }
        .container {
            max-width: 1400px;
            margin: 0 auto;
            background: white;
            border-radius: 8px;
            box-shadow: 0 2px 8px rgba(0,0,0,0.1);
            overflow: hidden;
        }
        header {
            background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
            color: white;
            padding: 30px 40px;
        }
        header h1 {
            font-size: 2rem;
            margin-bottom: 10px;
        }
        header .meta {
            opacity: 0.9;
            font-size: 0.9rem;
        }
        .content {
            padding: 40px;
        }
        .grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(250px, 1fr));
            gap: 20px;
            margin-bottom: 40px;
        }
        .card {
            background: #f8f9fa;
            border-radius: 8px;
            padding: 20px;
            border-left: 4px solid #667eea;
        }
        .card h3 {
            font-size: 0.9rem;
            color: #6c757d;
            text-transform: uppercase;
            letter-spacing: 0.5px;
            margin-bottom: 10px;
        }
        .card .value {
            font-size: 2rem;
            font-weight: bold;
            color: #2c3e50;
        }
        .card .subvalue {
            font-size: 0.85rem;
            color: #6c757d;
            margin-top: 5px;
        }
        .card.success {
            border-left-color: #10b981;
        }
        .card.error {
            border-left-color: #ef4444;
        }
        .card.warning {
            border-left-color: #f59e0b;
        }
        .section {
            margin-bottom: 40px;
        }
        .section h2 {
            font-size: 1.5rem;
            margin-bottom: 20px;
            padding-bottom: 10px;
            border-bottom: 2px solid #e5e7eb;
        }
        .chart-container {
            background: white;
            border-radius: 8px;
            padding: 20px;
            margin-bottom: 30px;
            border: 1px solid #e5e7eb;
        }
        .chart-container h3 {
            font-size: 1.1rem;
            margin-bottom: 15px;
            color: #4b5563;
        }
        .chart {
            width: 100%;
            height: 300px;
        }
        table {
            width: 100%;
            border-collapse: collapse;
            background: white;
        }
        th, td {
            text-align: left;
            padding: 12px;
            border-bottom: 1px solid #e5e7eb;
        }
        th {
            background: #f8f9fa;
            font-weight: 600;
            color: #4b5563;
            font-size: 0.9rem;
            text-transform: uppercase;
            letter-spacing: 0.5px;
        }
        tr:hover {
            background: #f8f9fa;
        }
        .badge {
            display: inline-block;
            padding: 4px 12px;
            border-radius: 12px;
            font-size: 0.85rem;
            font-weight: 600;
        }
        .badge-success {
            background: #d1fae5;
            color: #065f46;
        }
        .badge-error {
            background: #fee2e2;
            color: #991b1b;
        }
        .latency-grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(150px, 1fr));
            gap: 15px;
            margin-top: 20px;
        }
        .latency-item {
            background: #f8f9fa;
            padding: 15px;
            border-radius: 6px;
            text-align: center;
        }
        .latency-item .label {
            font-size: 0.85rem;
            color: #6c757d;
            margin-bottom: 5px;
        }
        .latency-item .value {
            font-size: 1.3rem;
            font-weight: bold;
            color: #2c3e50;
        }
        .bar {
            height: 10px;
            background: #667eea;
            border-radius: 4px;
        }
        .no-data {
            text-align: center;
            padding: 40px;
            color: #6c757d;
            font-style: italic;
        }
    </style>
    <script src="https://cdn.jsdelivr.net/npm/uplot@1.6.24/dist/uPlot.iife.min.js"></script>
    <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/uplot@1.6.24/dist/uPlot.min.css">
</head>
<body>
    <div class="container">
        <header>
            <h1>Ratecheck Load Test Report</h1>
            <div class="meta" style="margin-top: 5px;">Target: <a href="{{.Doc.Target}}" style="color: white; text-decoration: underline;">{{.Doc.Target}}</a></div>
            <div class="meta">Run: {{.Doc.RunID}} | Generated: {{.GeneratedAt}} | Users: {{.Doc.Config.Users}} | Duration: {{.Doc.Config.DurationSeconds}}s</div>
        </header>

        <div class="content">
            <!-- Rate Limit Probe -->
            {{with .Doc.Probe.Summary}}
            <div class="section">
                <h2>Rate Limiting Test</h2>
                <div class="grid">
                    <div class="card">
                        <h3>Total Requests</h3>
                        <div class="value">{{.Total}}</div>
                    </div>
                    <div class="card success">
                        <h3>Successful (200)</h3>
                        <div class="value">{{.Successes}}</div>
                        <div class="subvalue">{{formatPercent .SuccessRate}}%</div>
                    </div>
                    <div class="card warning">
                        <h3>Rate Limited (429)</h3>
                        <div class="value">{{.RateLimited}}</div>
                        <div class="subvalue">{{formatPercent .RateLimitPercentage}}%</div>
                    </div>
                    <div class="card">
                        <h3>Average Response Time</h3>
                        <div class="value">{{if .Latency}}{{formatMs .Latency.MeanMs}}{{else}}no data{{end}}</div>
                    </div>
                </div>
            </div>
            {{end}}

            <!-- Sustained Load -->
            {{with .Doc.Sustained.Summary}}
            <div class="section">
                <h2>Sustained Load Test</h2>
                <div class="grid">
                    <div class="card">
                        <h3>Total Requests</h3>
                        <div class="value">{{.Total}}</div>
                    </div>
                    <div class="card success">
                        <h3>Successful</h3>
                        <div class="value">{{.Successes}}</div>
                        <div class="subvalue">{{formatPercent .SuccessRate}}%</div>
                    </div>
                    <div class="card warning">
                        <h3>Rate Limited</h3>
                        <div class="value">{{.RateLimited}}</div>
                        <div class="subvalue">{{formatPercent .RateLimitPercentage}}%</div>
                    </div>
                    <div class="card error">
                        <h3>Errors</h3>
                        <div class="value">{{.Errors}}</div>
                        <div class="subvalue">{{formatPercent .ErrorRate}}%</div>
                    </div>
                    <div class="card">
                        <h3>Average QPS</h3>
                        <div class="value">{{formatFloat .QPS}}</div>
                    </div>
                </div>

                <h2>Latency Statistics</h2>
                {{if .Latency}}
                <div class="latency-grid">
                    <div class="latency-item">
                        <div class="label">Min</div>
                        <div class="value">{{formatMs .Latency.MinMs}}</div>
                    </div>
                    <div class="latency-item">
                        <div class="label">Max</div>
                        <div class="value">{{formatMs .Latency.MaxMs}}</div>
                    </div>
                    <div class="latency-item">
                        <div class="label">Mean</div>
                        <div class="value">{{formatMs .Latency.MeanMs}}</div>
                    </div>
                    <div class="latency-item">
                        <div class="label">P50</div>
                        <div class="value">{{formatMs .Latency.P50Ms}}</div>
                    </div>
                    <div class="latency-item">
                        <div class="label">P90</div>
                        <div class="value">{{formatMs .Latency.P90Ms}}</div>
                    </div>
                    <div class="latency-item">
                        <div class="label">P95</div>
                        <div class="value">{{formatMs .Latency.P95Ms}}</div>
                    </div>
                    <div class="latency-item">
                        <div class="label">P99</div>
                        <div class="value">{{formatMs .Latency.P99Ms}}</div>
                    </div>
                </div>
                {{else}}
                <div class="no-data">No samples were recorded during the sustained phase.</div>
                {{end}}
            </div>
            {{end}}

            <!-- Charts Section -->
            {{if .HasSamples}}
            <div class="section">
                <h2>Performance Over Time</h2>

                <div class="chart-container">
                    <h3>Response Time Over Time (ms)</h3>
                    <div id="latency-chart" class="chart"></div>
                </div>

                <div class="chart-container">
                    <h3>Status Code Distribution</h3>
                    <table>
                        <thead>
                            <tr>
                                <th>Status</th>
                                <th>Count</th>
                                <th>Share</th>
                                <th></th>
                            </tr>
                        </thead>
                        <tbody>
                            {{range .Doc.Sustained.Charts.Status}}
                            <tr>
                                <td><strong>{{.Label}}</strong></td>
                                <td>{{.Count}}</td>
                                <td>{{formatPercent .Percent}}%</td>
                                <td style="width: 50%;"><div class="bar" style="{{barWidth .}}"></div></td>
                            </tr>
                            {{end}}
                        </tbody>
                    </table>
                </div>

                <div class="chart-container">
                    <h3>Response Time Distribution</h3>
                    <div id="histogram-chart" class="chart"></div>
                </div>

                {{if .Doc.Sustained.Charts.QPS}}
                <div class="chart-container">
                    <h3>QPS Over Time</h3>
                    <div id="qps-chart" class="chart"></div>
                </div>
                {{end}}
            </div>
            {{end}}

            <!-- Thresholds -->
            {{if .ThresholdSummary}}
            <div class="section">
                <h2>Thresholds ({{.ThresholdSummary.Passed}}/{{.ThresholdSummary.Total}} Passed)</h2>
                <table>
                    <thead>
                        <tr>
                            <th>Threshold</th>
                            <th>Metric</th>
                            <th>Expected</th>
                            <th>Actual</th>
                            <th>Status</th>
                        </tr>
                    </thead>
                    <tbody>
                        {{range .ThresholdSummary.Results}}
                        <tr>
                            <td>{{.Threshold}}</td>
                            <td>{{.Metric}} ({{.Aggregate}})</td>
                            <td>{{.Operator}} {{formatFloat .Expected}}</td>
                            <td>{{formatFloat .Actual}}</td>
                            <td>
                                {{if .Pass}}
                                <span class="badge badge-success">✓ PASS</span>
                                {{else}}
                                <span class="badge badge-error" title="{{.Message}}">✗ FAIL</span>
                                {{end}}
                            </td>
                        </tr>
                        {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}
        </div>
    </div>

    {{if .HasSamples}}
    <script>
        const chartsJSON = {{.ChartsJSON}};
        const charts = JSON.parse(chartsJSON);

        function lineChart(id, title, xLabel, yLabel, points, stroke) {
            const el = document.getElementById(id);
            if (!el || !points || points.length === 0) {
                return;
            }
            new uPlot({
                title: title,
                width: el.offsetWidth,
                height: 300,
                scales: { x: { time: false } },
                series: [
                    { label: xLabel },
                    { label: yLabel, stroke: stroke, fill: "rgba(102, 126, 234, 0.1)", width: 2 }
                ],
                axes: [
                    { label: xLabel },
                    { label: yLabel }
                ]
            }, [points.map(p => p.x), points.map(p => p.y)], el);
        }

        lineChart("latency-chart", "Response Time Over Time", "Time (seconds)", "Response Time (ms)", charts.latency_over_time, "#667eea");
        lineChart("qps-chart", "QPS Over Time", "Time Window (5s intervals)", "Requests per Second", charts.qps_over_time, "#10b981");

        const bins = charts.latency_histogram;
        const histEl = document.getElementById("histogram-chart");
        if (histEl && bins && bins.length > 0) {
            new uPlot({
                title: "Response Time Distribution",
                width: histEl.offsetWidth,
                height: 300,
                scales: { x: { time: false } },
                series: [
                    { label: "Response Time (ms)" },
                    {
                        label: "Frequency",
                        stroke: "#f59e0b",
                        fill: "rgba(245, 158, 11, 0.4)",
                        paths: uPlot.paths.bars({ size: [0.9] })
                    }
                ],
                axes: [
                    { label: "Response Time (ms)" },
                    { label: "Frequency" }
                ]
            }, [bins.map(b => b.lower_ms), bins.map(b => b.count)], histEl);
        }
    </script>
    {{end}}
</body>
</html>
`

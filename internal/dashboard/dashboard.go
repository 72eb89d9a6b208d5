package dashboard

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/torosent/ratecheck/internal/metrics"
)

const (
	refreshInterval = 500 * time.Millisecond
	historyLen      = 100
	maxStatusRows   = 10
)

// TestConfig holds load test configuration parameters for display.
type TestConfig struct {
	TargetURL         string        // Full target URL
	Users             int           // Sustained workers
	Duration          time.Duration // Sustained phase length
	RateLimitRequests int           // Probe burst size
	Rate              int           // Sustained cap in requests per second (0 = unlimited)
	Timeout           time.Duration // Request timeout
	ConfigFile        string        // Path to config file if used
}

// Dashboard renders a live terminal UI for the current phase.
type Dashboard struct {
	collector    *metrics.Collector
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownFunc func()
	wg           sync.WaitGroup
	mu           sync.Mutex

	// Widgets
	grid           *ui.Grid
	latencySparkle *widgets.SparklineGroup
	latencyPara    *widgets.Paragraph
	limitGauge     *widgets.Gauge
	statusList     *widgets.List
	summaryPara    *widgets.Paragraph
	metricsPara    *widgets.Paragraph
	latencyHistory []float64
	testConfig     TestConfig
}

// New creates a new Dashboard. shutdownFunc is invoked when the user presses q
// or Ctrl-C.
func New(collector *metrics.Collector, cfg TestConfig, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Dashboard{
		collector:      collector,
		ctx:            ctx,
		cancel:         cancel,
		shutdownFunc:   shutdownFunc,
		latencyHistory: make([]float64, 0, historyLen),
		testConfig:     cfg,
	}

	d.initWidgets()
	d.setupGrid()

	return d, nil
}

// initWidgets initializes all dashboard widgets.
func (d *Dashboard) initWidgets() {
	sparkline := widgets.NewSparkline()
	sparkline.Title = "Latency (ms)"
	sparkline.LineColor = ui.ColorGreen
	sparkline.Data = []float64{0}

	d.latencySparkle = widgets.NewSparklineGroup(sparkline)
	d.latencySparkle.Title = "Real-time Latency"
	d.latencySparkle.BorderStyle.Fg = ui.ColorCyan

	d.latencyPara = widgets.NewParagraph()
	d.latencyPara.Title = "Latency Stats"
	d.latencyPara.Text = "Min: 0ms\nMean: 0ms\nP50: 0ms\nP95: 0ms\nP99: 0ms"
	d.latencyPara.BorderStyle.Fg = ui.ColorCyan

	d.limitGauge = widgets.NewGauge()
	d.limitGauge.Title = "Rate Limited (429)"
	d.limitGauge.Percent = 0
	d.limitGauge.BarColor = ui.ColorYellow
	d.limitGauge.BorderStyle.Fg = ui.ColorCyan
	d.limitGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	d.statusList = widgets.NewList()
	d.statusList.Title = "Status Codes"
	d.statusList.Rows = []string{"Awaiting data"}
	d.statusList.TextStyle = ui.NewStyle(ui.ColorYellow)
	d.statusList.BorderStyle.Fg = ui.ColorCyan

	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Test Summary"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan

	d.metricsPara = widgets.NewParagraph()
	d.metricsPara.Title = "Metrics"
	d.metricsPara.Text = "Waiting for data..."
	d.metricsPara.BorderStyle.Fg = ui.ColorCyan
}

// setupGrid configures the layout grid.
func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)

	d.grid.Set(
		ui.NewRow(0.16,
			ui.NewCol(1.0, d.summaryPara),
		),
		ui.NewRow(0.26,
			ui.NewCol(0.5, d.limitGauge),
			ui.NewCol(0.5, d.metricsPara),
		),
		ui.NewRow(0.30,
			ui.NewCol(0.65, d.latencySparkle),
			ui.NewCol(0.35, d.latencyPara),
		),
		ui.NewRow(0.28,
			ui.NewCol(1.0, d.statusList),
		),
	)
}

// Start begins the dashboard update loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop stops the dashboard and restores the terminal.
func (d *Dashboard) Stop() {
	d.cancel()
	d.wg.Wait()
	ui.Close()
	// Give terminal time to restore
	time.Sleep(100 * time.Millisecond)
}

// run is the main dashboard update loop.
func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()

	d.render()

	for {
		select {
		case <-d.ctx.Done():
			// Drain any remaining events
			for len(uiEvents) > 0 {
				<-uiEvents
			}
			return
		case e := <-uiEvents:
			select {
			case <-d.ctx.Done():
				return
			default:
			}

			switch e.ID {
			case "q", "<C-c>":
				if d.shutdownFunc != nil {
					d.shutdownFunc()
				}
				// Do not return here; wait for Stop() to cancel context
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				ui.Clear()
				d.render()
			}
		case <-ticker.C:
			d.update(d.collector.Stats())
			d.render()
		}
	}
}

// update refreshes all widget data from a collector snapshot.
func (d *Dashboard) update(stats metrics.LiveStats) {
	d.mu.Lock()
	defer d.mu.Unlock()

	meanMs := toMs(stats.MeanLatency)
	if stats.Total > 0 {
		d.latencyHistory = append(d.latencyHistory, meanMs)
		if len(d.latencyHistory) > historyLen {
			d.latencyHistory = d.latencyHistory[1:]
		}
		d.latencySparkle.Sparklines[0].Data = d.latencyHistory
		d.latencySparkle.Title = fmt.Sprintf(
			"Real-time Latency | Current: %.2fms | Min: %.2fms | Max: %.2fms",
			meanMs,
			toMs(stats.MinLatency),
			toMs(stats.MaxLatency),
		)
	}

	limitedPct := percent(stats.RateLimited, stats.Total)
	d.limitGauge.Percent = int(limitedPct)
	d.limitGauge.Label = fmt.Sprintf("%.1f%% (%d of %d)", limitedPct, stats.RateLimited, stats.Total)

	d.summaryPara.Text = fmt.Sprintf(
		"Target: %s\n%s\nPhase: %s | Elapsed: %s | Total: %d | Success Rate: %.1f%%",
		d.testConfig.TargetURL,
		d.formatTestParams(),
		phaseLabel(stats.Phase),
		stats.Elapsed.Round(time.Second),
		stats.Total,
		percent(stats.Successes, stats.Total),
	)

	d.metricsPara.Text = fmt.Sprintf(
		"Total Requests:    %d\nSuccessful (200):  %d\nRate Limited:      %d\nErrors:            %d\nCurrent RPS:       %.2f",
		stats.Total,
		stats.Successes,
		stats.RateLimited,
		stats.Errors,
		stats.RequestsPerSec,
	)

	d.latencyPara.Text = fmt.Sprintf(
		"Min:  %.2fms\nMean: %.2fms\nP50:  %.2fms\nP95:  %.2fms\nP99:  %.2fms",
		toMs(stats.MinLatency),
		meanMs,
		toMs(stats.P50Latency),
		toMs(stats.P95Latency),
		toMs(stats.P99Latency),
	)

	d.statusList.Rows = formatStatusListRows(stats.StatusCodes)
}

// render draws all widgets to the screen.
func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()

	ui.Render(d.grid)
}

func formatStatusListRows(codes map[int]int64) []string {
	rows := metrics.FlattenStatusCodes(codes)
	if len(rows) == 0 {
		return []string{"[Awaiting data](fg:green)"}
	}
	if len(rows) > maxStatusRows {
		rows = rows[:maxStatusRows]
	}
	formatted := make([]string, 0, len(rows))
	for _, row := range rows {
		formatted = append(formatted, fmt.Sprintf("[%s](fg:%s) %d", row.Label(), statusColor(row.Code), row.Count))
	}
	return formatted
}

func statusColor(code int) string {
	switch metrics.ClassifyStatus(code) {
	case metrics.OutcomeSuccess:
		return "green"
	case metrics.OutcomeRateLimited:
		return "yellow"
	default:
		return "red"
	}
}

func phaseLabel(phase string) string {
	if phase == "" {
		return "starting"
	}
	return phase
}

// formatTestParams formats the test configuration parameters for display.
func (d *Dashboard) formatTestParams() string {
	var parts []string

	if d.testConfig.RateLimitRequests > 0 {
		parts = append(parts, fmt.Sprintf("Probe: %d", d.testConfig.RateLimitRequests))
	}

	if d.testConfig.Users > 0 {
		parts = append(parts, fmt.Sprintf("Users: %d", d.testConfig.Users))
	}

	if d.testConfig.Rate > 0 {
		parts = append(parts, fmt.Sprintf("Rate: %d/s", d.testConfig.Rate))
	} else {
		parts = append(parts, "Rate: unlimited")
	}

	if d.testConfig.Duration > 0 {
		parts = append(parts, fmt.Sprintf("Duration: %s", d.testConfig.Duration))
	}

	if d.testConfig.Timeout > 0 {
		parts = append(parts, fmt.Sprintf("Timeout: %s", d.testConfig.Timeout))
	}

	// Config file (only show if used)
	if d.testConfig.ConfigFile != "" {
		parts = append(parts, fmt.Sprintf("Config: %s", d.testConfig.ConfigFile))
	}

	return strings.Join(parts, " | ")
}

func toMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func percent(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

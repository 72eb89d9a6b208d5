package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/torosent/ratecheck/internal/config"
	"github.com/torosent/ratecheck/internal/dashboard"
	"github.com/torosent/ratecheck/internal/metrics"
	"github.com/torosent/ratecheck/internal/output"
	"github.com/torosent/ratecheck/internal/runner"
)

// liveView switches the progress line and the dashboard on and off as the
// engine moves between phases.
type liveView struct {
	cfg       *config.Config
	collector *metrics.Collector
	stdout    io.Writer
	cancel    context.CancelFunc
	logger    *zap.Logger

	mu       sync.Mutex
	progress *output.ProgressReporter
	dash     *dashboard.Dashboard
}

func newLiveView(cfg *config.Config, collector *metrics.Collector, stdout io.Writer, cancel context.CancelFunc, logger *zap.Logger) *liveView {
	return &liveView{
		cfg:       cfg,
		collector: collector,
		stdout:    stdout,
		cancel:    cancel,
		logger:    logger,
	}
}

func (v *liveView) onPhase(phase string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stopLocked()

	if v.cfg.Dashboard && phase == runner.PhaseSustained {
		dash, err := dashboard.New(v.collector, dashboard.TestConfig{
			TargetURL:         v.cfg.HelloURL(),
			Users:             v.cfg.Users,
			Duration:          v.cfg.Duration,
			RateLimitRequests: v.cfg.RateLimitRequests,
			Rate:              v.cfg.Rate,
			Timeout:           v.cfg.Timeout,
			ConfigFile:        v.cfg.ConfigFile,
		}, v.cancel)
		if err == nil {
			v.dash = dash
			dash.Start()
			return
		}
		v.logger.Warn("dashboard unavailable, falling back to progress output", zap.Error(err))
	}

	if v.cfg.JSONOutput || v.cfg.YAMLOutput {
		return
	}
	v.progress = output.NewProgressReporter(v.collector, progressInterval, v.stdout)
	v.progress.Start()
}

func (v *liveView) stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stopLocked()
}

func (v *liveView) stopLocked() {
	if v.progress != nil {
		v.progress.Stop()
		fmt.Fprintln(v.stdout)
		v.progress = nil
	}
	if v.dash != nil {
		v.dash.Stop()
		v.dash = nil
	}
}

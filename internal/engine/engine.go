// Package engine sequences a full rate-limit check: health gate, burst probe,
// cooldown and sustained load, then summarizes both phases into a Report.
package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/torosent/ratecheck/internal/config"
	"github.com/torosent/ratecheck/internal/health"
	"github.com/torosent/ratecheck/internal/httpclient"
	"github.com/torosent/ratecheck/internal/metrics"
	"github.com/torosent/ratecheck/internal/runner"
	"github.com/torosent/ratecheck/internal/tracing"
)

// ErrUnhealthy is returned when the target fails the health gate. No load is
// generated in that case.
var ErrUnhealthy = errors.New("target is not healthy")

// Report is the outcome of one engine run.
type Report struct {
	RunID            string
	Target           string
	HealthURL        string
	StartedAt        time.Time
	FinishedAt       time.Time
	Users            int
	Duration         time.Duration
	Cooldown         time.Duration
	ProbeRequests    int
	Probe            metrics.RunResult
	Sustained        metrics.RunResult
	ProbeSummary     metrics.Summary
	SustainedSummary metrics.Summary
}

// Options wire an Engine. Only Config is required.
type Options struct {
	Config    *config.Config
	Client    *http.Client       // shared by the health gate and the requester
	Requester runner.Requester   // overrides the HTTP executor for the load phases
	Tracing   *tracing.Provider  // nil disables spans
	Logger    *zap.Logger        // nil disables logging
	Collector *metrics.Collector // reset at the start of each phase
	Observers []metrics.Observer // notified of every sample in both phases
	OnPhase   func(phase string) // called before each load phase starts
}

// Engine runs the phases of a check in order.
type Engine struct {
	cfg       *config.Config
	checker   *health.Checker
	requester runner.Requester
	tracing   *tracing.Provider
	logger    *zap.Logger
	collector *metrics.Collector
	observers []metrics.Observer
	onPhase   func(string)
}

// New validates the configuration and builds an Engine. An invalid
// configuration is rejected with a config.ValidationError before anything is
// dispatched.
func New(opts Options) (*Engine, error) {
	if opts.Config == nil {
		return nil, errors.New("engine: config is required")
	}
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, w := range cfg.Warnings() {
		logger.Warn(w)
	}

	client := opts.Client
	if client == nil {
		client = httpclient.NewClient(cfg.Timeout)
	}

	requester := opts.Requester
	if requester == nil {
		builder, err := httpclient.NewRequestBuilder(cfg.HelloURL(), cfg.Headers)
		if err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
		requester = httpclient.NewExecutor(client, builder, opts.Tracing)
	}

	observers := make([]metrics.Observer, 0, len(opts.Observers)+1)
	if opts.Collector != nil {
		observers = append(observers, opts.Collector)
	}
	observers = append(observers, opts.Observers...)

	return &Engine{
		cfg:       cfg,
		checker:   health.NewChecker(client, cfg.HealthURL(), logger),
		requester: requester,
		tracing:   opts.Tracing,
		logger:    logger,
		collector: opts.Collector,
		observers: observers,
		onPhase:   opts.OnPhase,
	}, nil
}

// Run executes health gate, probe, cooldown and sustained phase. When ctx is
// cancelled during the cooldown the report holds the probe results only and the
// context error is returned alongside it. The whole run is one span; each load
// phase is a child span and request spans carry the run ID and phase.
func (e *Engine) Run(ctx context.Context) (report *Report, err error) {
	report = &Report{
		RunID:         ulid.Make().String(),
		Target:        e.cfg.HelloURL(),
		HealthURL:     e.checker.URL(),
		StartedAt:     time.Now(),
		Users:         e.cfg.Users,
		Duration:      e.cfg.Duration,
		Cooldown:      e.cfg.Cooldown,
		ProbeRequests: e.cfg.RateLimitRequests,
	}
	log := e.logger.With(zap.String("run_id", report.RunID))

	ctx, span := e.tracing.StartRun(ctx, report.RunID, report.Target)
	defer func() { tracing.EndSpan(span, err) }()

	healthy, err := e.checker.Check(ctx)
	if !healthy {
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrUnhealthy, e.checker.URL(), err)
		}
		return nil, fmt.Errorf("%w: %s", ErrUnhealthy, e.checker.URL())
	}

	report.Probe = e.runProbe(ctx, log)
	report.ProbeSummary = metrics.Summarize(report.Probe)

	if err := e.cooldown(ctx, log); err != nil {
		report.Sustained = metrics.NewAccumulator(runner.PhaseSustained, 0).Result(0, e.cfg.Duration)
		report.SustainedSummary = metrics.Summarize(report.Sustained)
		report.FinishedAt = time.Now()
		return report, fmt.Errorf("cooldown interrupted: %w", err)
	}

	report.Sustained = e.runSustained(ctx, log)
	report.SustainedSummary = metrics.Summarize(report.Sustained)
	report.FinishedAt = time.Now()
	return report, nil
}

func (e *Engine) runProbe(ctx context.Context, log *zap.Logger) metrics.RunResult {
	e.startPhase(runner.PhaseProbe)
	ctx, span := e.tracing.StartPhase(ctx, runner.PhaseProbe)
	log.Info("probe started", zap.Int("requests", e.cfg.RateLimitRequests))

	result := runner.NewProbe(runner.ProbeOptions{
		Requests:  e.cfg.RateLimitRequests,
		Requester: e.requester,
		Observers: e.observers,
	}).Run(ctx)

	summary := metrics.Summarize(result)
	log.Info("probe finished",
		zap.Int64("total", summary.Total),
		zap.Int64("successes", summary.Successes),
		zap.Int64("rate_limited", summary.RateLimited),
		zap.Float64("rate_limit_percentage", summary.RateLimitPercentage),
		zap.Duration("elapsed", result.Elapsed),
	)
	tracing.EndSpan(span, nil, phaseAttributes(summary)...)
	return result
}

func (e *Engine) runSustained(ctx context.Context, log *zap.Logger) metrics.RunResult {
	e.startPhase(runner.PhaseSustained)
	ctx, span := e.tracing.StartPhase(ctx, runner.PhaseSustained)
	log.Info("sustained load started",
		zap.Int("users", e.cfg.Users),
		zap.Duration("duration", e.cfg.Duration),
		zap.Int("rate", e.cfg.Rate),
	)

	result := runner.NewSustained(runner.SustainedOptions{
		Workers:       e.cfg.Users,
		Duration:      e.cfg.Duration,
		RatePerSecond: e.cfg.Rate,
		Requester:     e.requester,
		Observers:     e.observers,
	}).Run(ctx)

	summary := metrics.Summarize(result)
	log.Info("sustained load finished",
		zap.Int64("total", summary.Total),
		zap.Float64("success_rate", summary.SuccessRate),
		zap.Float64("qps", summary.QPS),
		zap.Duration("elapsed", result.Elapsed),
	)
	tracing.EndSpan(span, nil, phaseAttributes(summary)...)
	return result
}

func phaseAttributes(s metrics.Summary) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64("ratecheck.total", s.Total),
		attribute.Int64("ratecheck.successes", s.Successes),
		attribute.Int64("ratecheck.rate_limited", s.RateLimited),
		attribute.Int64("ratecheck.errors", s.Errors),
	}
}

func (e *Engine) cooldown(ctx context.Context, log *zap.Logger) error {
	if e.cfg.Cooldown <= 0 {
		return ctx.Err()
	}
	log.Info("cooldown", zap.Duration("wait", e.cfg.Cooldown))

	timer := time.NewTimer(e.cfg.Cooldown)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (e *Engine) startPhase(phase string) {
	if e.collector != nil {
		e.collector.Reset(phase)
	}
	if e.onPhase != nil {
		e.onPhase(phase)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/torosent/ratecheck/internal/config"
	"github.com/torosent/ratecheck/internal/engine"
	"github.com/torosent/ratecheck/internal/logging"
	"github.com/torosent/ratecheck/internal/metrics"
	"github.com/torosent/ratecheck/internal/output"
	"github.com/torosent/ratecheck/internal/promexport"
	"github.com/torosent/ratecheck/internal/threshold"
	"github.com/torosent/ratecheck/internal/tracing"
)

const (
	progressInterval = time.Second
	shutdownTimeout  = 5 * time.Second
)

var errThresholdsFailed = errors.New("one or more thresholds failed")

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ratecheck",
		Short:         "Probe a service's rate limiter and measure it under sustained load",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.NewLoader().FromFlags(cmd.Flags())
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	config.RegisterFlags(cmd)
	cmd.AddCommand(newDemoCmd(stderr))
	return cmd
}

func run(parent context.Context, cfg *config.Config, stdout, stderr io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tp, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	collector := metrics.NewCollector()
	var observers []metrics.Observer
	if cfg.MetricsAddr != "" {
		exporter := promexport.New()
		if _, _, err := exporter.Serve(ctx, cfg.MetricsAddr, logger); err != nil {
			return fmt.Errorf("metrics server: %w", err)
		}
		observers = append(observers, exporter)
	}
	if cfg.LogErrors {
		observers = append(observers, logging.NewFailureLogger(logger))
	}

	view := newLiveView(cfg, collector, stdout, cancel, logger)
	eng, err := engine.New(engine.Options{
		Config:    cfg,
		Tracing:   tp,
		Logger:    logger,
		Collector: collector,
		Observers: observers,
		OnPhase:   view.onPhase,
	})
	if err != nil {
		return err
	}

	report, runErr := eng.Run(ctx)
	view.stop()
	if report == nil {
		return runErr
	}

	results := threshold.NewEvaluator(thresholds).Evaluate(report.SustainedSummary)
	doc := output.NewDocument(report, results)
	if err := writeReports(cfg, doc, stdout); err != nil {
		return err
	}

	if runErr != nil {
		return runErr
	}
	if !threshold.AllPassed(results) {
		return errThresholdsFailed
	}
	return nil
}

func writeReports(cfg *config.Config, doc output.Document, stdout io.Writer) error {
	switch {
	case cfg.JSONOutput:
		if err := output.PrintJSONReport(stdout, doc); err != nil {
			return err
		}
	case cfg.YAMLOutput:
		if err := output.PrintYAMLReport(stdout, doc); err != nil {
			return err
		}
	default:
		output.PrintReport(stdout, doc, output.DefaultPalette())
	}

	if cfg.HTMLOutput == "" {
		return nil
	}
	f, err := os.Create(cfg.HTMLOutput)
	if err != nil {
		return fmt.Errorf("create html report: %w", err)
	}
	if err := output.GenerateHTMLReport(f, doc); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write html report: %w", err)
	}
	if !cfg.JSONOutput && !cfg.YAMLOutput {
		fmt.Fprintf(stdout, "\nHTML report saved to %s\n", cfg.HTMLOutput)
	}
	return nil
}

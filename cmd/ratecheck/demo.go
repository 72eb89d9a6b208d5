package main

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/torosent/ratecheck/internal/config"
	"github.com/torosent/ratecheck/internal/demoserver"
	"github.com/torosent/ratecheck/internal/logging"
)

func newDemoCmd(stderr io.Writer) *cobra.Command {
	var (
		addr      string
		rps       float64
		burst     int
		logLevel  string
		logFormat string
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Serve a rate-limited demo target on /api/hello and /api/health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := logging.New(logLevel, logFormat, stderr)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			srv := demoserver.New(demoserver.Options{RatePerSecond: rps, Burst: burst, Logger: logger})
			_, done, err := srv.Serve(ctx, addr)
			if err != nil {
				return err
			}
			<-done
			logger.Info("demo server stopped", zap.String("addr", addr))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&addr, "addr", demoserver.DefaultAddr, "Listen address")
	flags.Float64Var(&rps, "rate", demoserver.DefaultRatePerSecond, "Requests per second allowed on /api/hello")
	flags.IntVar(&burst, "burst", demoserver.DefaultBurst, "Token bucket capacity")
	flags.StringVar(&logLevel, "log-level", config.DefaultLogLevel, "Log level: debug, info, warn or error")
	flags.StringVar(&logFormat, "log-format", config.DefaultLogFormat, "Log format: console or json")
	return cmd
}

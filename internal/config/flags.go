package config

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all CLI flags to a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Target flags
	flags.String("base-url", DefaultBaseURL, "Base URL of the service under test")
	flags.String("hello-path", DefaultHelloPath, "Path of the endpoint that receives load")
	flags.String("health-path", DefaultHealthPath, "Path of the health endpoint checked before the run")
	flags.StringSlice("header", nil, "Additional request header in key=value form")

	// Load control flags
	flags.IntP("users", "u", DefaultUsers, "Number of concurrent workers in the sustained phase")
	flags.DurationP("duration", "d", DefaultDuration, "Length of the sustained phase (e.g. 30s, 1m)")
	flags.IntP("rate-limit-requests", "n", DefaultRateLimitRequests, "Number of requests sent by the rate limit probe")
	flags.Duration("cooldown", DefaultCooldown, "Pause between the probe and the sustained phase")
	flags.Duration("timeout", DefaultTimeout, "Per-request timeout")
	flags.IntP("rate", "r", 0, "Requests per second cap for the sustained phase (0 means unlimited)")

	// Output flags
	flags.Bool("json-output", false, "Emit JSON formatted output")
	flags.Bool("yaml-output", false, "Emit YAML formatted output")
	flags.String("html-output", "", "Generate HTML report to the specified file path")
	flags.Bool("dashboard", false, "Show live terminal dashboard during the sustained phase")
	flags.Bool("log-errors", false, "Log each failed request")
	flags.String("log-level", DefaultLogLevel, "Log level: debug, info, warn or error")
	flags.String("log-format", DefaultLogFormat, "Log format: console or json")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Threshold flags
	flags.StringSlice("threshold", nil, "Performance thresholds (repeatable, e.g., 'http_req_duration:p95 < 500')")

	// Tracing flags
	flags.String("tracing-endpoint", "", "OTLP collector endpoint (enables tracing)")
	flags.String("tracing-protocol", "grpc", "OTLP protocol: grpc or http")
	flags.String("tracing-service-name", "", "Service name reported with spans")
	flags.Float64("tracing-sample-rate", 1.0, "Fraction of requests traced (0.0 to 1.0)")
	flags.Bool("tracing-insecure", false, "Disable TLS towards the OTLP collector")
	flags.Bool("tracing-propagate", false, "Inject W3C trace headers into requests")
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file and the environment.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	strFlags := map[string]*string{
		"base-url":             &cfg.BaseURL,
		"hello-path":           &cfg.HelloPath,
		"health-path":          &cfg.HealthPath,
		"html-output":          &cfg.HTMLOutput,
		"log-level":            &cfg.LogLevel,
		"log-format":           &cfg.LogFormat,
		"metrics-addr":         &cfg.MetricsAddr,
		"tracing-endpoint":     &cfg.Tracing.Endpoint,
		"tracing-protocol":     &cfg.Tracing.Protocol,
		"tracing-service-name": &cfg.Tracing.ServiceName,
	}
	for name, dst := range strFlags {
		if !fs.Changed(name) {
			continue
		}
		val, err := fs.GetString(name)
		if err != nil {
			return err
		}
		*dst = strings.TrimSpace(val)
	}

	intFlags := map[string]*int{
		"users":               &cfg.Users,
		"rate-limit-requests": &cfg.RateLimitRequests,
		"rate":                &cfg.Rate,
	}
	for name, dst := range intFlags {
		if !fs.Changed(name) {
			continue
		}
		val, err := fs.GetInt(name)
		if err != nil {
			return err
		}
		*dst = val
	}

	if fs.Changed("duration") {
		val, err := fs.GetDuration("duration")
		if err != nil {
			return err
		}
		cfg.Duration = val
	}
	if fs.Changed("cooldown") {
		val, err := fs.GetDuration("cooldown")
		if err != nil {
			return err
		}
		cfg.Cooldown = val
	}
	if fs.Changed("timeout") {
		val, err := fs.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = val
	}

	boolFlags := map[string]*bool{
		"json-output":      &cfg.JSONOutput,
		"yaml-output":      &cfg.YAMLOutput,
		"dashboard":        &cfg.Dashboard,
		"log-errors":       &cfg.LogErrors,
		"tracing-insecure": &cfg.Tracing.Insecure,
	}
	for name, dst := range boolFlags {
		if !fs.Changed(name) {
			continue
		}
		val, err := fs.GetBool(name)
		if err != nil {
			return err
		}
		*dst = val
	}

	if fs.Changed("tracing-propagate") {
		val, err := fs.GetBool("tracing-propagate")
		if err != nil {
			return err
		}
		cfg.Tracing.Propagate = &val
	}
	if fs.Changed("tracing-sample-rate") {
		val, err := fs.GetFloat64("tracing-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = val
	}

	if fs.Changed("threshold") {
		vals, err := fs.GetStringSlice("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = vals
	}

	vals, err := fs.GetStringSlice("header")
	if err != nil {
		return err
	}
	if len(vals) > 0 {
		if cfg.Headers == nil {
			cfg.Headers = map[string]string{}
		}
		for _, entry := range vals {
			parts := strings.SplitN(entry, "=", 2)
			if len(parts) != 2 {
				return fmt.Errorf("header must be in key=value format: %s", entry)
			}
			key := http.CanonicalHeaderKey(strings.TrimSpace(parts[0]))
			if key == "" {
				return fmt.Errorf("header key cannot be empty")
			}
			cfg.Headers[key] = strings.TrimSpace(parts[1])
		}
	}

	return nil
}

package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

// Defaults applied by the Loader before file, environment and flag values.
const (
	DefaultBaseURL           = "http://localhost:8080"
	DefaultHelloPath         = "/api/hello"
	DefaultHealthPath        = "/api/health"
	DefaultUsers             = 20
	DefaultDuration          = 60 * time.Second
	DefaultRateLimitRequests = 150
	DefaultCooldown          = 10 * time.Second
	DefaultTimeout           = 30 * time.Second
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "console"
)

type Config struct {
	BaseURL           string            `mapstructure:"base_url"`
	HelloPath         string            `mapstructure:"hello_path"`
	HealthPath        string            `mapstructure:"health_path"`
	Users             int               `mapstructure:"users"`
	Duration          time.Duration     `mapstructure:"duration"`
	RateLimitRequests int               `mapstructure:"rate_limit_requests"`
	Cooldown          time.Duration     `mapstructure:"cooldown"`
	Timeout           time.Duration     `mapstructure:"timeout"`
	Rate              int               `mapstructure:"rate"`
	Headers           map[string]string `mapstructure:"headers"`
	JSONOutput        bool              `mapstructure:"json_output"`
	YAMLOutput        bool              `mapstructure:"yaml_output"`
	HTMLOutput        string            `mapstructure:"html_output"`
	Dashboard         bool              `mapstructure:"dashboard"`
	LogErrors         bool              `mapstructure:"log_errors"`
	LogLevel          string            `mapstructure:"log_level"`
	LogFormat         string            `mapstructure:"log_format"`
	Thresholds        []string          `mapstructure:"thresholds"`
	MetricsAddr       string            `mapstructure:"metrics_addr"`
	Tracing           TracingConfig     `mapstructure:"tracing"`
	ConfigFile        string            `mapstructure:"-"`
}

// TracingConfig controls OpenTelemetry export. Tracing is off unless an endpoint
// is configured here or through OTEL_EXPORTER_OTLP_ENDPOINT.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
	Propagate   *bool   `mapstructure:"propagate"`
}

func (t TracingConfig) Enabled() bool {
	if strings.TrimSpace(t.Endpoint) != "" {
		return true
	}
	return os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != ""
}

// ShouldPropagate reports whether W3C trace headers are injected into requests.
// It follows Enabled unless Propagate is set explicitly.
func (t TracingConfig) ShouldPropagate() bool {
	if t.Propagate != nil {
		return *t.Propagate
	}
	return t.Enabled()
}

// HelloURL is the endpoint exercised by the probe and the sustained phase.
func (c Config) HelloURL() string {
	return joinURL(c.BaseURL, c.HelloPath)
}

// HealthURL is the endpoint consulted before any load is generated.
func (c Config) HealthURL() string {
	return joinURL(c.BaseURL, c.HealthPath)
}

func joinURL(base, path string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	path = strings.TrimSpace(path)
	if path == "" {
		return base
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

// HighConcurrencyUsers is the worker count above which Warnings flags the run.
const HighConcurrencyUsers = 500

// Warnings returns problems that do not block the run but should be logged.
func (c Config) Warnings() []string {
	var warnings []string
	if c.Users > HighConcurrencyUsers {
		warnings = append(warnings, fmt.Sprintf("high concurrency configured (%d users); ensure you have authorization to test the target system", c.Users))
	}
	return warnings
}

func (c Config) Validate() error {
	var issues []string

	if strings.TrimSpace(c.BaseURL) == "" {
		issues = append(issues, "base-url is required (use --help for usage information)")
	} else if u, err := url.Parse(strings.TrimSpace(c.BaseURL)); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		issues = append(issues, fmt.Sprintf("base-url %q must be an absolute http or https URL", c.BaseURL))
	}

	if c.Users < 1 {
		issues = append(issues, "users must be >= 1")
	}
	if c.Duration <= 0 {
		issues = append(issues, "duration must be > 0")
	}
	if c.RateLimitRequests < 0 {
		issues = append(issues, "rate-limit-requests must be >= 0")
	}
	if c.Cooldown < 0 {
		issues = append(issues, "cooldown must be >= 0")
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate must be >= 0")
	}
	if c.Dashboard && (c.JSONOutput || c.YAMLOutput) {
		issues = append(issues, "dashboard cannot be combined with json-output or yaml-output")
	}
	if c.JSONOutput && c.YAMLOutput {
		issues = append(issues, "json-output and yaml-output are mutually exclusive")
	}
	for key := range c.Headers {
		if strings.TrimSpace(key) == "" {
			issues = append(issues, "header key cannot be empty")
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		issues = append(issues, fmt.Sprintf("log-level %q is not supported", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "console", "json":
	default:
		issues = append(issues, fmt.Sprintf("log-format must be 'console' or 'json', got %q", c.LogFormat))
	}

	issues = append(issues, validateTracingConfig(c.Tracing)...)

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}

	return nil
}

func validateTracingConfig(t TracingConfig) []string {
	var issues []string
	switch strings.ToLower(t.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing: protocol must be 'grpc' or 'http', got %q", t.Protocol))
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing: sample_rate must be between 0.0 and 1.0, got %g", t.SampleRate))
	}
	return issues
}

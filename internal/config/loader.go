package config

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable the Loader reads, e.g. RATECHECK_USERS.
const EnvPrefix = "RATECHECK"

// envKeys lists the settings that may be supplied through the environment.
var envKeys = []string{
	"base_url", "hello_path", "health_path",
	"users", "duration", "rate_limit_requests", "cooldown", "timeout", "rate",
	"json_output", "yaml_output", "html_output", "dashboard",
	"log_errors", "log_level", "log_format", "metrics_addr", "thresholds",
	"tracing.endpoint", "tracing.protocol", "tracing.service_name",
	"tracing.sample_rate", "tracing.insecure", "tracing.propagate",
}

// Loader handles loading configuration from files, the environment and
// command-line arguments.
type Loader struct{}

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// FromFlags builds a Config from an already parsed flag set registered with
// RegisterFlags. Precedence is defaults, then the config file, then RATECHECK_*
// environment variables, then explicitly set flags.
func (Loader) FromFlags(flagSet *pflag.FlagSet) (*Config, error) {
	configPath := ""
	if f := flagSet.Lookup("config"); f != nil {
		configPath = strings.TrimSpace(f.Value.String())
	}

	cfgViper := viper.New()
	cfgViper.SetEnvPrefix(EnvPrefix)
	cfgViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := cfgViper.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	settings := cfgViper.AllSettings()

	cfg := Defaults()
	cfg.ConfigFile = configPath

	if err := applyConfigSettings(cfg, settings); err != nil {
		return nil, err
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))

	if cfg.Headers == nil {
		cfg.Headers = map[string]string{}
	}

	return cfg, nil
}

// Defaults returns a Config populated with the built-in defaults.
func Defaults() *Config {
	return &Config{
		BaseURL:           DefaultBaseURL,
		HelloPath:         DefaultHelloPath,
		HealthPath:        DefaultHealthPath,
		Users:             DefaultUsers,
		Duration:          DefaultDuration,
		RateLimitRequests: DefaultRateLimitRequests,
		Cooldown:          DefaultCooldown,
		Timeout:           DefaultTimeout,
		Headers:           map[string]string{},
		LogLevel:          DefaultLogLevel,
		LogFormat:         DefaultLogFormat,
		Tracing:           TracingConfig{Protocol: "grpc", SampleRate: 1.0},
	}
}

// applyConfigSettings applies settings from a config file or the environment
// to the Config struct.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	strSettings := []struct {
		keys []string
		dst  *string
	}{
		{[]string{"base_url", "baseurl", "base-url", "target"}, &cfg.BaseURL},
		{[]string{"hello_path", "hellopath", "hello-path"}, &cfg.HelloPath},
		{[]string{"health_path", "healthpath", "health-path"}, &cfg.HealthPath},
		{[]string{"html_output", "htmloutput", "html-output"}, &cfg.HTMLOutput},
		{[]string{"log_level", "loglevel", "log-level"}, &cfg.LogLevel},
		{[]string{"log_format", "logformat", "log-format"}, &cfg.LogFormat},
		{[]string{"metrics_addr", "metricsaddr", "metrics-addr"}, &cfg.MetricsAddr},
	}
	for _, s := range strSettings {
		raw, ok := lookupSetting(settings, s.keys...)
		if !ok {
			continue
		}
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", s.keys[0], err)
		}
		*s.dst = strings.TrimSpace(val)
	}

	intSettings := []struct {
		keys []string
		dst  *int
	}{
		{[]string{"users", "concurrency"}, &cfg.Users},
		{[]string{"rate_limit_requests", "ratelimitrequests", "rate-limit-requests"}, &cfg.RateLimitRequests},
		{[]string{"rate"}, &cfg.Rate},
	}
	for _, s := range intSettings {
		raw, ok := lookupSetting(settings, s.keys...)
		if !ok {
			continue
		}
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", s.keys[0], err)
		}
		*s.dst = val
	}

	if raw, ok := lookupSetting(settings, "duration"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("duration: %w", err)
		}
		cfg.Duration = dur
	}

	if raw, ok := lookupSetting(settings, "cooldown"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("cooldown: %w", err)
		}
		cfg.Cooldown = dur
	}

	if raw, ok := lookupSetting(settings, "timeout"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = dur
	}

	boolSettings := []struct {
		keys []string
		dst  *bool
	}{
		{[]string{"json_output", "jsonoutput", "json-output"}, &cfg.JSONOutput},
		{[]string{"yaml_output", "yamloutput", "yaml-output"}, &cfg.YAMLOutput},
		{[]string{"dashboard"}, &cfg.Dashboard},
		{[]string{"log_errors", "logerrors", "log-errors"}, &cfg.LogErrors},
	}
	for _, s := range boolSettings {
		raw, ok := lookupSetting(settings, s.keys...)
		if !ok {
			continue
		}
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", s.keys[0], err)
		}
		*s.dst = val
	}

	if raw, ok := lookupSetting(settings, "headers"); ok {
		hdrs, err := asStringMap(raw)
		if err != nil {
			return fmt.Errorf("headers: %w", err)
		}
		if cfg.Headers == nil {
			cfg.Headers = map[string]string{}
		}
		for k, v := range hdrs {
			cfg.Headers[http.CanonicalHeaderKey(strings.TrimSpace(k))] = v
		}
	}

	if raw, ok := lookupSetting(settings, "thresholds"); ok {
		vals, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("thresholds: %w", err)
		}
		cfg.Thresholds = vals
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		if err := applyTracingSettings(&cfg.Tracing, raw); err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
	}

	return nil
}

func applyTracingSettings(t *TracingConfig, raw interface{}) error {
	m, err := toStringKeyMap(raw)
	if err != nil {
		return err
	}

	if v, ok := lookupSetting(m, "endpoint"); ok {
		s, err := asString(v)
		if err != nil {
			return fmt.Errorf("endpoint: %w", err)
		}
		t.Endpoint = strings.TrimSpace(s)
	}
	if v, ok := lookupSetting(m, "protocol"); ok {
		s, err := asString(v)
		if err != nil {
			return fmt.Errorf("protocol: %w", err)
		}
		t.Protocol = strings.ToLower(strings.TrimSpace(s))
	}
	if v, ok := lookupSetting(m, "service_name", "servicename", "service-name"); ok {
		s, err := asString(v)
		if err != nil {
			return fmt.Errorf("service_name: %w", err)
		}
		t.ServiceName = strings.TrimSpace(s)
	}
	if v, ok := lookupSetting(m, "sample_rate", "samplerate", "sample-rate"); ok {
		f, err := asFloat64(v)
		if err != nil {
			return fmt.Errorf("sample_rate: %w", err)
		}
		t.SampleRate = f
	}
	if v, ok := lookupSetting(m, "insecure"); ok {
		b, err := asBool(v)
		if err != nil {
			return fmt.Errorf("insecure: %w", err)
		}
		t.Insecure = b
	}
	if v, ok := lookupSetting(m, "propagate"); ok {
		b, err := asBool(v)
		if err != nil {
			return fmt.Errorf("propagate: %w", err)
		}
		t.Propagate = &b
	}
	return nil
}

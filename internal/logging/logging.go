// Package logging builds the zap loggers used across ratecheck.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/torosent/ratecheck/internal/metrics"
)

// New builds a logger writing to w (stderr when nil) at the given level.
// format is "console" or "json".
func New(level, format string, w io.Writer) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = os.Stderr
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeDuration = zapcore.StringDurationEncoder

	var enc zapcore.Encoder
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "console":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	case "json":
		enc = zapcore.NewJSONEncoder(encCfg)
	default:
		return nil, fmt.Errorf("unsupported log format %q", format)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(w), zap.NewAtomicLevelAt(lvl))
	return zap.New(core), nil
}

// ParseLevel maps a level name to a zap level. The empty string means info.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unsupported log level %q", level)
	}
}

// FailureLogger is a metrics.Observer that logs every sample counted as an
// error. Rate limited responses are expected during a probe and are not logged.
type FailureLogger struct {
	logger *zap.Logger
}

func NewFailureLogger(logger *zap.Logger) *FailureLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FailureLogger{logger: logger}
}

func (f *FailureLogger) Observe(phase string, s metrics.Sample) {
	if s.Outcome() != metrics.OutcomeError {
		return
	}
	fields := []zap.Field{
		zap.String("phase", phase),
		zap.Int("status_code", s.StatusCode),
		zap.Duration("latency", s.Latency.Round(time.Microsecond)),
	}
	if s.Error != "" {
		fields = append(fields, zap.String("error", s.Error))
	}
	f.logger.Warn("request failed", fields...)
}

// Package promexport exposes live request counters in the Prometheus text format.
package promexport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/torosent/ratecheck/internal/metrics"
)

const namespace = "ratecheck"

// Exporter is a metrics.Observer backed by its own registry, so several
// exporters can coexist in one process (and in tests).
type Exporter struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	codes    *prometheus.CounterVec
}

func New() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Requests completed, by phase and outcome.",
		}, []string{"phase", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Request latency, including failed requests.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
		}, []string{"phase"}),
		codes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_codes_total",
			Help:      "Responses by HTTP status code; code 0 means no response.",
		}, []string{"phase", "code"}),
	}
	e.registry.MustRegister(e.requests, e.duration, e.codes)
	return e
}

// Observe implements metrics.Observer.
func (e *Exporter) Observe(phase string, s metrics.Sample) {
	e.requests.WithLabelValues(phase, string(s.Outcome())).Inc()
	e.duration.WithLabelValues(phase).Observe(s.Latency.Seconds())
	e.codes.WithLabelValues(phase, strconv.Itoa(s.StatusCode)).Inc()
}

// Registry returns the registry holding the exporter's collectors.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Serve listens on addr and serves /metrics until ctx is cancelled.
// The returned channel is closed once the server has stopped.
func (e *Exporter) Serve(ctx context.Context, addr string, logger *zap.Logger) (net.Addr, <-chan struct{}, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", zap.String("addr", ln.Addr().String()))
	return ln.Addr(), done, nil
}

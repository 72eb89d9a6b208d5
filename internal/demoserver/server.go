// Package demoserver is a small rate-limited HTTP service to aim ratecheck at.
// It exposes GET /api/hello behind a shared token bucket and GET /api/health.
package demoserver

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultAddr          = ":8080"
	DefaultRatePerSecond = 100
	DefaultBurst         = 100
	ServiceName          = "cloud-native-app"
)

// Options configure a Server.
type Options struct {
	RatePerSecond float64     // sustained token refill rate
	Burst         int         // bucket capacity
	Logger        *zap.Logger // nil disables logging
}

// Server serves the demo endpoints.
type Server struct {
	limiter *rate.Limiter
	logger  *zap.Logger
	mux     *http.ServeMux
}

// New builds a Server. Zero options fall back to 100 requests per second with
// a burst of 100.
func New(opts Options) *Server {
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = DefaultRatePerSecond
	}
	if opts.Burst <= 0 {
		opts.Burst = DefaultBurst
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := &Server{
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSecond), opts.Burst),
		logger:  opts.Logger,
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /api/hello", s.hello)
	s.mux.HandleFunc("GET /api/health", s.health)
	return s
}

// Handler returns the HTTP handler for all demo routes.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) hello(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{
			"error":   "Too Many Requests",
			"message": "Rate limit exceeded. Please try again later.",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"msg": "hello"})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "UP",
		"service": ServiceName,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Serve listens on addr until ctx is cancelled. The returned channel is closed
// once the server has stopped.
func (s *Server) Serve(ctx context.Context, addr string) (net.Addr, <-chan struct{}, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, err
	}
	srv := &http.Server{Handler: s.mux, ReadHeaderTimeout: 5 * time.Second}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("demo server stopped", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("demo server listening",
		zap.String("addr", ln.Addr().String()),
		zap.Float64("rate", float64(s.limiter.Limit())),
		zap.Int("burst", s.limiter.Burst()),
	)
	return ln.Addr(), done, nil
}

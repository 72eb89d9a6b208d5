package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/torosent/ratecheck/internal/metrics"
	"github.com/torosent/ratecheck/internal/tracing"
)

// Executor performs single requests and turns every outcome into a Sample.
// It is safe for concurrent use.
type Executor struct {
	client  *http.Client
	builder *RequestBuilder
	tracing *tracing.Provider
}

// NewExecutor wires a shared client to a builder. tp may be nil, in which case
// no spans are created and no trace headers are injected.
func NewExecutor(client *http.Client, builder *RequestBuilder, tp *tracing.Provider) *Executor {
	if client == nil {
		client = NewClient(0)
	}
	return &Executor{client: client, builder: builder, tracing: tp}
}

// Execute sends one GET and returns its Sample. It never fails: transport
// errors, timeouts and body read failures yield StatusCode 0 with the error
// described in Sample.Error. Latency runs from just before dispatch until the
// body has been drained or the failure is known.
func (e *Executor) Execute(ctx context.Context) metrics.Sample {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := tracing.StartRequestSpan(ctx, e.tracing.Tracer(), "http", e.builder.Target())

	started := time.Now()
	status, err := e.do(ctx)
	latency := time.Since(started)

	s := metrics.NewSample(started, status, latency, metrics.DescribeError(err))
	tracing.EndRequestSpan(span, s)
	return s
}

func (e *Executor) do(ctx context.Context) (int, error) {
	req, err := e.builder.Build(ctx)
	if err != nil {
		return metrics.StatusTransportError, err
	}
	if e.tracing.ShouldPropagate() {
		tracing.InjectHTTPHeaders(ctx, req.Header)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return metrics.StatusTransportError, err
	}
	defer resp.Body.Close()

	if _, err := drainBody(resp.Body); err != nil {
		return metrics.StatusTransportError, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, nil
}

// drainBody reads r to EOF so the connection can return to the pool.
func drainBody(r io.Reader) (int64, error) {
	return io.Copy(io.Discard, r)
}

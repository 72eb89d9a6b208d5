package tracing

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/torosent/ratecheck/internal/metrics"
)

// StartRequestSpan starts a client span for one load request. The run ID and
// phase carried by ctx become span attributes.
func StartRequestSpan(ctx context.Context, tracer trace.Tracer, protocol, endpoint string) (context.Context, trace.Span) {
	name := protocol + " request"
	if endpoint != "" {
		name = protocol + " " + endpoint
	}
	attrs := append([]attribute.KeyValue{
		attribute.String("network.protocol.name", protocol),
	}, runAttributes(ctx)...)
	if endpoint != "" {
		attrs = append(attrs, AttrTarget.String(endpoint))
	}
	return tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

// EndRequestSpan records the outcome of s on span and ends it. Transport
// failures and unexpected statuses mark the span as an error; a 429 is the
// behaviour under test and leaves the status unset.
func EndRequestSpan(span trace.Span, s metrics.Sample) {
	span.SetAttributes(
		attribute.Int("http.status_code", s.StatusCode),
		AttrOutcome.String(string(s.Outcome())),
	)
	switch {
	case s.StatusCode == metrics.StatusTransportError:
		span.RecordError(errors.New(s.Error))
		span.SetStatus(codes.Error, s.Error)
	case s.Outcome() == metrics.OutcomeSuccess:
		span.SetStatus(codes.Ok, "")
	case s.Outcome() == metrics.OutcomeError:
		span.SetStatus(codes.Error, fmt.Sprintf("unexpected status %d", s.StatusCode))
	}
	span.End()
}

// EndSpan finishes a span, recording error status if applicable.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// InjectHTTPHeaders injects W3C trace context into HTTP headers.
func InjectHTTPHeaders(ctx context.Context, headers http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(headers))
}

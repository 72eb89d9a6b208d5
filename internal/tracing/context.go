package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys attached to ratecheck spans.
const (
	AttrRunID   = attribute.Key("ratecheck.run_id")
	AttrPhase   = attribute.Key("ratecheck.phase")
	AttrTarget  = attribute.Key("ratecheck.target")
	AttrOutcome = attribute.Key("ratecheck.outcome")
)

type runIDKey struct{}
type phaseKey struct{}

// WithRunID returns a context carrying the run ID stamped on request spans.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// WithPhase returns a context carrying the phase stamped on request spans.
func WithPhase(ctx context.Context, phase string) context.Context {
	return context.WithValue(ctx, phaseKey{}, phase)
}

// RunID returns the run ID carried by ctx, or "".
func RunID(ctx context.Context) string {
	v, _ := ctx.Value(runIDKey{}).(string)
	return v
}

// Phase returns the phase carried by ctx, or "".
func Phase(ctx context.Context) string {
	v, _ := ctx.Value(phaseKey{}).(string)
	return v
}

func runAttributes(ctx context.Context) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if id := RunID(ctx); id != "" {
		attrs = append(attrs, AttrRunID.String(id))
	}
	if phase := Phase(ctx); phase != "" {
		attrs = append(attrs, AttrPhase.String(phase))
	}
	return attrs
}

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const PACKAGE = "rtcbridge"

// The tracer installed by SetupTelemetry.
var tracer trace.Tracer = otel.Tracer(PACKAGE)

// Span is a traced activity together with the context it has been started in.
//
// A nil *Span is a disabled span: all methods can be called on it and do nothing, and its
// children are disabled as well. Components take an optional *Span from their owner and
// use it unconditionally.
type Span struct {
	span trace.Span
	ctx  context.Context //nolint:containedctx
}

// Starts a span in the given context. The span is a child of the span in `ctx`, if any.
func Start(ctx context.Context, name string, attributes ...attribute.KeyValue) *Span {
	ctx, span := otel.Tracer(PACKAGE).Start(ctx, name, trace.WithAttributes(attributes...))
	return &Span{span: span, ctx: ctx}
}

// Starts a child span. The child of a disabled span is disabled.
func (s *Span) Child(name string, attributes ...attribute.KeyValue) *Span {
	if s == nil {
		return nil
	}

	return Start(s.ctx, name, attributes...)
}

// The context that carries the span, a background context for a disabled span.
func (s *Span) Context() context.Context {
	if s == nil {
		return context.Background()
	}

	return s.ctx
}

func (s *Span) Event(name string, attributes ...attribute.KeyValue) {
	if s == nil {
		return
	}

	s.span.AddEvent(name, trace.WithAttributes(attributes...))
}

// Marks the span as failed. A nil error is ignored.
func (s *Span) Fail(err error) {
	if s == nil || err == nil {
		return
	}

	s.span.SetStatus(codes.Error, err.Error())
	s.span.RecordError(err)
}

func (s *Span) End() {
	if s == nil {
		return
	}

	s.span.End()
}

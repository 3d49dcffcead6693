package pulse

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// defaultTracerName identifies scheduler spans in trace backends.
const defaultTracerName = "pulse"

// WithTracer attaches an OpenTelemetry tracer to the scheduler. Every drain
// produces one span covering all of its passes, with pass and reaction
// counts as attributes; a budget trip records the error on the span.
func WithTracer(tracer trace.Tracer) SchedulerOption {
	return func(s *Scheduler) {
		s.tracer = tracer
	}
}

// WithTracerName attaches a tracer from the global OpenTelemetry tracer
// provider under the given name. Configure the provider in main() before
// scheduling work.
func WithTracerName(name string) SchedulerOption {
	return func(s *Scheduler) {
		if name == "" {
			name = defaultTracerName
		}
		s.tracer = otel.Tracer(name)
	}
}

func (s *Scheduler) startFlushSpan() trace.Span {
	if s.tracer == nil {
		return nil
	}
	_, span := s.tracer.Start(context.Background(), "pulse.flush")
	return span
}

func (s *Scheduler) endFlushSpan(span trace.Span, passes, reactions int, err error) {
	if span == nil {
		return
	}

	span.SetAttributes(
		attribute.Int("pulse.flush.passes", passes),
		attribute.Int("pulse.flush.reactions", reactions),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

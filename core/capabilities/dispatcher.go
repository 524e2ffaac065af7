// Package capabilities executes the device side effects a backend reply asks
// for.
package capabilities

import (
	"context"
	"errors"
	"fmt"

	"github.com/koscakluka/lola/core/conversations"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Report summarises one [Dispatcher.Execute] call.
type Report struct {
	Executed int
	Failed   int
	Ignored  int
	Errors   []error
}

type Dispatcher struct {
	handlers map[string]Handler
}

type DispatcherOption func(*Dispatcher)

// WithHandler registers h under its kind, replacing any earlier handler for
// the same kind.
func WithHandler(h Handler) DispatcherOption {
	return func(d *Dispatcher) { d.handlers[h.Kind()] = h }
}

func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{handlers: map[string]Handler{}}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Kinds lists the registered capability kinds.
func (d *Dispatcher) Kinds() []string {
	kinds := make([]string, 0, len(d.handlers))
	for kind := range d.handlers {
		kinds = append(kinds, kind)
	}
	return kinds
}

// Execute runs every call independently. A malformed, failing or panicking
// call never prevents the others from running.
func (d *Dispatcher) Execute(ctx context.Context, calls []conversations.ToolMessage) Report {
	ctx, span := tracer.Start(ctx, "execute capabilities")
	defer span.End()
	span.SetAttributes(attribute.Int("capabilities.calls", len(calls)))

	var report Report
	for i, call := range calls {
		if ctx.Err() != nil {
			span.AddEvent("dispatch cancelled")
			break
		}

		err := d.executeOne(ctx, call)
		switch {
		case err == nil:
			report.Executed++
		case errors.Is(err, ErrUnknownCapability):
			report.Ignored++
			logger.Debug("ignoring tool call", "index", i, "error", err)
		default:
			report.Failed++
			report.Errors = append(report.Errors, fmt.Errorf("tool call %d: %w", i, err))
			span.RecordError(err)
			logger.Warn("tool call failed", "index", i, "error", err)
		}
	}

	span.SetAttributes(
		attribute.Int("capabilities.executed", report.Executed),
		attribute.Int("capabilities.failed", report.Failed),
		attribute.Int("capabilities.ignored", report.Ignored),
	)
	if report.Failed > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d tool calls failed", report.Failed))
	}
	return report
}

func (d *Dispatcher) executeOne(ctx context.Context, call conversations.ToolMessage) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("capability handler panicked: %v", recovered)
		}
	}()

	envelope, err := ParseEnvelope(call.Content)
	if err != nil {
		return err
	}

	handler, ok := d.handlers[envelope.Kind]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCapability, envelope.Kind)
	}

	ctx, span := tracer.Start(ctx, "execute capability")
	defer span.End()
	span.SetAttributes(attribute.String("capability.kind", envelope.Kind))

	if err := handler.Handle(ctx, envelope.Data); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%s: %w", envelope.Kind, err)
	}
	return nil
}

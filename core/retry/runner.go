package retry

import (
	"context"
	"errors"
	"fmt"

	goretry "github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrAttemptsExhausted is returned when a bounded policy runs out of attempts.
var ErrAttemptsExhausted = errors.New("retry attempts exhausted")

type Operation func(ctx context.Context) error

// Runner invokes fallible operations until they succeed.
type Runner struct {
	policy      Policy
	onFailure   func(name string, attempt uint64, err error)
	onRecovered func(name string, attempts uint64)
}

type RunnerOption func(*Runner)

func WithPolicy(policy Policy) RunnerOption {
	return func(r *Runner) { r.policy = policy }
}

// WithFailureCallback registers a callback invoked after every failed
// attempt, before the runner pauses.
func WithFailureCallback(callback func(name string, attempt uint64, err error)) RunnerOption {
	return func(r *Runner) { r.onFailure = callback }
}

// WithRecoveryCallback registers a callback invoked once when an operation
// succeeds after at least one failed attempt.
func WithRecoveryCallback(callback func(name string, attempts uint64)) RunnerOption {
	return func(r *Runner) { r.onRecovered = callback }
}

func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{policy: DefaultPolicy()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) Policy() Policy { return r.policy }

// Run invokes op until it returns nil.
//
// With an unbounded policy the only error Run can return is the context
// error. With a bounded policy the last failure is wrapped together with
// [ErrAttemptsExhausted].
func (r *Runner) Run(ctx context.Context, name string, op Operation) error {
	ctx, span := tracer.Start(ctx, "retry "+name)
	defer span.End()

	var attempts uint64
	err := goretry.Do(ctx, r.policy.newBackoff(), func(ctx context.Context) error {
		attempts++
		if err := op(ctx); err != nil {
			span.AddEvent("attempt failed", trace.WithAttributes(
				attribute.Int64("retry.attempt", int64(attempts)),
				attribute.String("error", err.Error()),
			))
			logger.WarnContext(ctx, "operation failed, trying again",
				"operation", name,
				"attempt", attempts,
				"error", err)
			if r.onFailure != nil {
				r.onFailure(name, attempts, err)
			}
			return goretry.RetryableError(err)
		}
		return nil
	})
	span.SetAttributes(attribute.Int64("retry.attempts", int64(attempts)))

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		} else {
			err = fmt.Errorf("%s: %w: %w", name, ErrAttemptsExhausted, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if attempts > 1 {
		logger.InfoContext(ctx, "operation recovered", "operation", name, "attempts", attempts)
		if r.onRecovered != nil {
			r.onRecovered(name, attempts)
		}
	}

	return nil
}

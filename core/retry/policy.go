package retry

import (
	"time"

	goretry "github.com/sethvargo/go-retry"
)

// DefaultDelay is the pause between two attempts of the default policy.
const DefaultDelay = time.Second

type BackoffKind string

const (
	BackoffConstant    BackoffKind = "constant"
	BackoffExponential BackoffKind = "exponential"
)

// Policy describes how often and how long a [Runner] keeps retrying.
//
// The zero value is not the default policy, use [DefaultPolicy].
type Policy struct {
	// MaxAttempts bounds the total number of invocations. Zero means the
	// operation is retried until it succeeds or the context is cancelled.
	MaxAttempts uint64
	// Delay is the constant pause, or the base for exponential backoff.
	Delay   time.Duration
	Backoff BackoffKind
	// MaxDelay caps a single pause, zero disables the cap.
	MaxDelay time.Duration
	// JitterPercent randomizes each pause by up to +/- the given percent.
	JitterPercent uint64
}

// DefaultPolicy retries forever with a fixed one second pause and no jitter.
func DefaultPolicy() Policy {
	return Policy{Delay: DefaultDelay, Backoff: BackoffConstant}
}

// IsUnbounded reports whether the policy never gives up on its own.
func (p Policy) IsUnbounded() bool { return p.MaxAttempts == 0 }

// newBackoff builds a fresh backoff, backoffs are stateful so every run
// needs its own.
func (p Policy) newBackoff() goretry.Backoff {
	delay := p.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}

	var backoff goretry.Backoff
	switch p.Backoff {
	case BackoffExponential:
		backoff = goretry.NewExponential(delay)
	default:
		backoff = goretry.NewConstant(delay)
	}

	if p.MaxDelay > 0 {
		backoff = goretry.WithCappedDuration(p.MaxDelay, backoff)
	}
	if p.JitterPercent > 0 {
		backoff = goretry.WithJitterPercent(p.JitterPercent, backoff)
	}
	if p.MaxAttempts > 0 {
		backoff = goretry.WithMaxRetries(p.MaxAttempts-1, backoff)
	}

	return backoff
}

// Package retry wraps a single fallible operation with bounded
// exponential-backoff retries. Only errors classified transient by
// utils/faults are retried; permanent errors propagate immediately.
package retry

import (
	"context"
	"math/rand"
	"time"

	"github.com/lunatools/luna-setup/utils/faults"
)

// Policy bounds a retry loop. The delay before attempt k (k >= 2) is
// InitialDelay * Multiplier^(k-2), before jitter.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	Jitter       bool
}

// DefaultPolicy suits transient network and filesystem hiccups: three
// attempts with jittered 1s/2s backoff.
var DefaultPolicy = Policy{
	MaxAttempts:  3,
	InitialDelay: time.Second,
	Multiplier:   2,
	Jitter:       true,
}

func (p Policy) validate() error {
	if p.MaxAttempts < 1 {
		return PolicyError{Reason: "max attempts must be at least 1"}
	}
	if p.Multiplier < 1.0 {
		return PolicyError{Reason: "multiplier must be at least 1.0"}
	}
	if p.InitialDelay < 0 {
		return PolicyError{Reason: "initial delay must not be negative"}
	}
	return nil
}

// delay computes the backoff before attempt k (k >= 2), without jitter.
func (p Policy) delay(attempt int) time.Duration {
	d := float64(p.InitialDelay)
	for i := 2; i < attempt; i++ {
		d *= p.Multiplier
	}
	return time.Duration(d)
}

// OnRetry is invoked before each retry sleep with the attempt number that
// just failed and its error.
type OnRetry func(attempt int, err error)

// Sleeper pauses for d or returns early when ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Option mutates an Executor during construction.
type Option func(*Executor)

// WithOnRetry registers a callback notified before each retry sleep.
func WithOnRetry(fn OnRetry) Option {
	return func(e *Executor) {
		if fn != nil {
			e.onRetry = fn
		}
	}
}

// WithSleeper replaces the real clock, used by tests.
func WithSleeper(fn Sleeper) Option {
	return func(e *Executor) {
		if fn != nil {
			e.sleep = fn
		}
	}
}

// WithRand seeds the jitter source, used by tests.
func WithRand(r *rand.Rand) Option {
	return func(e *Executor) {
		if r != nil {
			e.rand = r
		}
	}
}

// Executor runs operations under a Policy. Attempts are strictly sequential:
// most wrapped operations (partial downloads, UAC prompts) are neither
// idempotent nor safe to run in parallel.
type Executor struct {
	onRetry OnRetry
	sleep   Sleeper
	rand    *rand.Rand
}

// New constructs an Executor.
func New(opts ...Option) *Executor {
	e := &Executor{
		sleep: func(ctx context.Context, d time.Duration) error {
			if d <= 0 {
				return ctx.Err()
			}
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-timer.C:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Do runs op until it succeeds, returns a non-transient error, the policy is
// exhausted, or ctx is cancelled. Exhaustion wraps the last error in an
// ExhaustedError carrying the attempt count and total elapsed time.
func (e *Executor) Do(ctx context.Context, policy Policy, op func(ctx context.Context) error) error {
	if err := policy.validate(); err != nil {
		return err
	}
	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return faults.Cancelled(err)
		}
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !faults.IsTransient(lastErr) {
			return lastErr
		}
		if attempt == policy.MaxAttempts {
			break
		}
		if e.onRetry != nil {
			e.onRetry(attempt, lastErr)
		}
		if err := e.sleep(ctx, e.backoff(policy, attempt+1)); err != nil {
			return faults.Cancelled(err)
		}
	}
	return ExhaustedError{
		Attempts: policy.MaxAttempts,
		Elapsed:  time.Since(start),
		Err:      lastErr,
	}
}

// Value runs op under exec and policy, returning its result alongside any
// retry-loop error.
func Value[T any](ctx context.Context, exec *Executor, policy Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := exec.Do(ctx, policy, func(ctx context.Context) error {
		v, opErr := op(ctx)
		if opErr != nil {
			return opErr
		}
		out = v
		return nil
	})
	return out, err
}

// backoff returns the sleep before the given attempt, with optional uniform
// jitter in [0, delay/2).
func (e *Executor) backoff(policy Policy, attempt int) time.Duration {
	d := policy.delay(attempt)
	if policy.Jitter {
		if half := int64(d) / 2; half > 0 {
			d += time.Duration(e.rand.Int63n(half))
		}
	}
	return d
}

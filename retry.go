// SPDX-License-Identifier: Apache-2.0

package actio

import (
	"math/rand/v2"
	"time"
)

// A RetryPredicate decides whether a failed action should be retried,
// and if so, how long to wait first.
//
// It receives the orchestrator, the number of attempts so far, and the
// error from the last attempt, and returns whether to retry and the
// delay to wait before doing so.
//
// Predicates report a delay rather than blocking on it, because
// blocking here would stall the orchestrator's single worker goroutine
// for the whole backoff window, freezing every other queued action
// along with it. Returning the delay instead lets [Retry] wait for it
// with [Delay], which reschedules rather than blocks.
type RetryPredicate func(m *Orchestrator, attempts int, err error) (retry bool, delay time.Duration)

// BackoffOption configures backoff behavior for retry predicates.
type BackoffOption func(*backoffConfig)

// backoffConfig holds configuration for backoff strategies.
type backoffConfig struct {
	fullJitter    bool
	percentJitter float64
	maxDelay      time.Duration
	multiplier    float64
}

// WithFullJitter applies full jitter to backoff delays: the actual
// delay is a random value between 0 and the calculated delay. This is
// the AWS-recommended approach for desynchronizing retries across
// clients. Cancels out [WithPercentageJitter] if both are given; the
// last option wins.
func WithFullJitter() BackoffOption {
	return func(c *backoffConfig) {
		c.fullJitter = true
		c.percentJitter = 0
	}
}

// WithPercentageJitter applies percentage-based jitter: for example,
// WithPercentageJitter(0.2) adds ±20% randomness to the delay. Cancels
// out [WithFullJitter] if both are given; the last option wins.
func WithPercentageJitter(percent float64) BackoffOption {
	return func(c *backoffConfig) {
		c.fullJitter = false
		c.percentJitter = percent
	}
}

// WithMaxDelay caps the maximum backoff delay, applied after jitter.
func WithMaxDelay(max time.Duration) BackoffOption {
	return func(c *backoffConfig) { c.maxDelay = max }
}

// WithMultiplier sets the exponential growth rate for
// [ExponentialBackoff]. The default is 2.0. Ignored by [FixedBackoff].
func WithMultiplier(m float64) BackoffOption {
	return func(c *backoffConfig) { c.multiplier = m }
}

// applyJitter applies jitter to a delay based on the configuration.
//
// Uses math/rand/v2, auto-seeded with OS entropy — sufficient for
// backoff jitter, which has no security requirement.
func applyJitter(delay time.Duration, cfg *backoffConfig) time.Duration {
	if cfg.fullJitter {
		if delay <= 0 {
			return 0
		}
		return time.Duration(rand.Int64N(int64(delay) + 1))
	}
	if cfg.percentJitter > 0 {
		if delay <= 0 {
			return 0
		}
		jitterRange := float64(delay) * cfg.percentJitter
		jitterAmount := (rand.Float64() * 2 * jitterRange) - jitterRange
		result := float64(delay) + jitterAmount
		if result < 0 {
			return 0
		}
		return time.Duration(result)
	}
	return delay
}

// Retry wraps action so that a failure is retried according to
// predicates, built on [Catch] and its handler's Restart continuation:
// each retry re-enters action from the top via [*IOError].Restart,
// re-entering the protected region from the top, waiting the longest
// delay any predicate asked for first. If no predicates are given, this
// defaults to up to 3 attempts with exponential backoff starting at
// 100ms and full jitter.
//
// This is not new scheduling semantics — it is retry sugar over
// Catch+Restart, the natural library-level convenience for repeated
// re-entry into a failed region.
func Retry[V any](action Action[V], predicates ...RetryPredicate) Action[V] {
	if len(predicates) == 0 {
		predicates = []RetryPredicate{
			UpTo(3),
			ExponentialBackoff(100*time.Millisecond, WithFullJitter()),
		}
	}

	attempts := 0
	return Catch(action, func(m *Orchestrator, ioerr *IOError[V], _ Success[V], _ Failure[V]) {
		attempts++
		var wait time.Duration
		for _, p := range predicates {
			ok, delay := p(m, attempts, ioerr.Err)
			if !ok {
				ioerr.Rollback(ioerr.Err)
				return
			}
			if delay > wait {
				wait = delay
			}
		}
		Delay(m, wait, func() { ioerr.Restart(ioerr.Input) })
	})
}

// UpTo limits retries to a maximum number of attempts, with no delay
// contribution of its own.
func UpTo(maxAttempts int) RetryPredicate {
	return func(_ *Orchestrator, attempts int, _ error) (bool, time.Duration) {
		return attempts < maxAttempts, 0
	}
}

// FixedBackoff waits a fixed duration before each retry.
//
// Options: [WithFullJitter] and [WithPercentageJitter] randomize the
// delay; [WithMaxDelay] caps it. [WithMultiplier] is ignored.
func FixedBackoff(delay time.Duration, opts ...BackoffOption) RetryPredicate {
	cfg := backoffConfig{multiplier: 2.0}
	for _, opt := range opts {
		opt(&cfg)
	}
	return func(_ *Orchestrator, _ int, _ error) (bool, time.Duration) {
		actual := applyJitter(delay, &cfg)
		if cfg.maxDelay > 0 && actual > cfg.maxDelay {
			actual = cfg.maxDelay
		}
		return true, actual
	}
}

// ExponentialBackoff waits with exponentially increasing delays: by
// default, attempt N waits base × 2^(N-1).
//
// Options: [WithFullJitter]/[WithPercentageJitter] randomize the
// delay, [WithMaxDelay] caps it, [WithMultiplier] changes the growth
// rate (default 2.0).
func ExponentialBackoff(base time.Duration, opts ...BackoffOption) RetryPredicate {
	cfg := backoffConfig{multiplier: 2.0}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(_ *Orchestrator, attempts int, _ error) (bool, time.Duration) {
		if attempts < 1 {
			attempts = 1
		}

		var delay time.Duration
		if cfg.multiplier == 2.0 {
			shift := uint(attempts) - 1
			if shift > 62 {
				shift = 62
			}
			delay = base * time.Duration(1<<shift)
			if delay.Seconds() == 0 {
				delay = base
			}
		} else {
			multiplier := cfg.multiplier
			b := base
			for i := 1; i < attempts; i++ {
				b = time.Duration(float64(b) * multiplier)
				if b.Seconds() == 0 || b < 0 {
					b = time.Hour * 24 * 365
					break
				}
			}
			delay = b
		}

		delay = applyJitter(delay, &cfg)
		if cfg.maxDelay > 0 && delay > cfg.maxDelay {
			delay = cfg.maxDelay
		}
		return true, delay
	}
}

// OnlyIf conditionally retries based on the error, useful for retrying
// only transient errors while failing immediately on permanent ones.
// Contributes no delay of its own.
func OnlyIf(check func(error) bool) RetryPredicate {
	return func(_ *Orchestrator, _ int, err error) (bool, time.Duration) {
		return check(err), 0
	}
}

// Package retry applies one retry policy to any fallible storage operation.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 5, BaseDelay: 20 * time.Millisecond, MaxDelay: time.Second}
}

// Do runs op until it succeeds, returns an error retryable rejects, the
// attempt budget is spent, or ctx is done. The last error is returned.
func Do(ctx context.Context, policy Policy, retryable func(error) bool, op func() error) error {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if retryable == nil || !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.Retry(wrapped, backoff.WithContext(backoff.WithMaxRetries(policy.backOff(), uint64(attempts-1)), ctx))
}

func (p Policy) backOff() backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.BaseDelay
	exp.MaxInterval = p.MaxDelay
	if exp.MaxInterval < exp.InitialInterval {
		exp.MaxInterval = exp.InitialInterval
	}
	exp.MaxElapsedTime = 0
	return exp
}

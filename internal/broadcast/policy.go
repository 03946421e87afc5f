package broadcast

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ReconnectPolicy bounds connection attempts.
type ReconnectPolicy struct {
	MaxAttempts int
	Initial     time.Duration
	Multiplier  float64
	MaxInterval time.Duration
}

// DefaultReconnectPolicy tries five times starting at two seconds.
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		MaxAttempts: 5,
		Initial:     2 * time.Second,
		Multiplier:  2,
		MaxInterval: 30 * time.Second,
	}
}

func (p ReconnectPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Initial
	b.Multiplier = p.Multiplier
	b.MaxInterval = p.MaxInterval
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	retries := p.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

// Retry runs op until it succeeds, the attempts are exhausted or ctx ends.
// notify is called before each wait.
func (p ReconnectPolicy) Retry(ctx context.Context, op func() error, notify func(err error, wait time.Duration)) error {
	return backoff.RetryNotify(op, p.backOff(ctx), notify)
}

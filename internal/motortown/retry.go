package motortown

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy is a caller-side retry policy for API calls. Only TransportErrors
// are retried; auth, protocol and not-found errors are returned immediately.
// The zero value makes a single attempt.
type RetryPolicy struct {
	Attempts        int           // total attempts, values below 1 mean 1
	InitialInterval time.Duration // delay before the first retry, doubled afterwards
	MaxInterval     time.Duration
}

// DefaultPollRetry mirrors the refresh loop's historical behaviour: three
// attempts, starting at one second with jitter.
var DefaultPollRetry = RetryPolicy{Attempts: 3, InitialInterval: time.Second, MaxInterval: 4 * time.Second}

// Do runs op until it succeeds, fails with a non-transport error, the attempts
// are used up, or ctx is done. The last error from op is returned.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	if p.Attempts <= 1 {
		return op()
	}

	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.Attempts-1)), ctx)

	var last error
	err := backoff.Retry(func() error {
		last = op()
		if last != nil && !IsTransport(last) {
			return backoff.Permanent(last)
		}
		return last
	}, policy)
	if err != nil && last != nil {
		return last
	}
	return err
}

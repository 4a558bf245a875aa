package embedder

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const defaultMaxRetries = 3

// retryPolicy is the backoff every remote embedder uses for one batch.
type retryPolicy struct {
	maxRetries int
	initial    time.Duration
	max        time.Duration
}

func defaultRetryPolicy(maxRetries int) retryPolicy {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return retryPolicy{maxRetries: maxRetries, initial: 200 * time.Millisecond, max: 5 * time.Second}
}

// do runs fn until it succeeds, fails with anything but
// ErrProviderUnavailable, runs out of retries or ctx ends. fn must return
// errors already passed through wrapProviderError.
func (p retryPolicy) do(ctx context.Context, provider string, fn batchFunc, batch []string) ([][]float32, error) {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.initial
	exp.MaxInterval = p.max
	exp.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(p.maxRetries)), ctx)

	vectors, err := backoff.RetryWithData(func() ([][]float32, error) {
		vectors, err := fn(ctx, batch)
		if err != nil && !errors.Is(err, ErrProviderUnavailable) {
			return nil, backoff.Permanent(err)
		}
		return vectors, err
	}, b)
	if err != nil {
		return nil, wrapProviderError(provider, err)
	}
	return vectors, nil
}

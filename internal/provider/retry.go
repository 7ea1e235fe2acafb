package provider

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"fixter/pkg/logger"
)

// RetryPolicy configures retries of transient provider errors.
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy returns the policy used by the CLI and gateway.
func DefaultRetryPolicy(maxRetries int) RetryPolicy {
	return RetryPolicy{
		MaxRetries:      maxRetries,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

type retrying struct {
	Provider
	policy RetryPolicy
}

// WithRetry wraps p so Chat retries errors for which IsRetryable holds.
// Non-retryable errors are returned from the first attempt.
func WithRetry(p Provider, policy RetryPolicy) Provider {
	if policy.MaxRetries <= 0 {
		return p
	}
	return &retrying{Provider: p, policy: policy}
}

func (r *retrying) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.policy.InitialInterval
	b.MaxInterval = r.policy.MaxInterval

	op := func() (*ChatResponse, error) {
		resp, err := r.Provider.Chat(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !IsRetryable(err) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(r.policy.MaxRetries+1)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, d time.Duration) {
			logger.Warn().Err(err).Str("provider", r.Name()).Dur("delay", d).Msg("Retrying chat request")
		}),
	)
}

package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedProvider struct {
	errs  []error
	calls int
}

func (s *scriptedProvider) Name() string     { return "scripted" }
func (s *scriptedProvider) Models() []string { return nil }

func (s *scriptedProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return &ChatResponse{Content: "ok"}, nil
}

func fastPolicy(n int) RetryPolicy {
	return RetryPolicy{MaxRetries: n, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func TestWithRetry_RecoversFromTransientErrors(t *testing.T) {
	sp := &scriptedProvider{errs: []error{
		NewProviderError(ErrCodeServiceUnavailable, "503", "scripted", true),
		NewProviderError(ErrCodeEmptyResponse, "empty", "scripted", true),
	}}

	resp, err := WithRetry(sp, fastPolicy(2)).Chat(context.Background(), ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 3, sp.calls)
}

func TestWithRetry_GivesUpAfterMaxRetries(t *testing.T) {
	transient := NewProviderError(ErrCodeTimeout, "slow", "scripted", true)
	sp := &scriptedProvider{errs: []error{transient, transient, transient, transient}}

	_, err := WithRetry(sp, fastPolicy(2)).Chat(context.Background(), ChatRequest{})
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, 3, sp.calls)
}

func TestWithRetry_PermanentErrorNotRetried(t *testing.T) {
	sp := &scriptedProvider{errs: []error{NewProviderError(ErrCodeAuthFailed, "bad key", "scripted", false)}}

	_, err := WithRetry(sp, fastPolicy(3)).Chat(context.Background(), ChatRequest{})
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, ErrCodeAuthFailed, pe.Code)
	assert.Equal(t, 1, sp.calls)
}

func TestWithRetry_ZeroRetriesReturnsSame(t *testing.T) {
	sp := &scriptedProvider{}
	assert.Same(t, Provider(sp), WithRetry(sp, fastPolicy(0)))
}

func TestComplete(t *testing.T) {
	sp := &scriptedProvider{}
	out, err := Complete(context.Background(), sp, ChatRequest{}, "hi")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context) error { return nil }

func TestValidateSchedule(t *testing.T) {
	tests := []struct {
		schedule string
		valid    bool
	}{
		{"0 3 * * *", true},
		{"0 0 3 * * *", true},
		{"@daily", true},
		{"@every 1h", true},
		{"not a schedule", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.schedule, func(t *testing.T) {
			err := ValidateSchedule(tt.schedule)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidSchedule)
			}
		})
	}
}

func TestScheduler_AddRemove(t *testing.T) {
	s := NewScheduler(time.UTC)

	require.NoError(t, s.Add(Job{Name: "a", Schedule: "@daily", Task: noop}))
	assert.ErrorIs(t, s.Add(Job{Name: "a", Schedule: "@daily", Task: noop}), ErrJobExists)
	assert.Error(t, s.Add(Job{Name: "b", Schedule: "bogus", Task: noop}))
	assert.Equal(t, []string{"a"}, s.Jobs())

	require.NoError(t, s.Remove("a"))
	assert.ErrorIs(t, s.Remove("a"), ErrJobNotFound)
	assert.Empty(t, s.Jobs())
}

func TestScheduler_RunNow(t *testing.T) {
	s := NewScheduler(nil)
	var calls atomic.Int32
	require.NoError(t, s.Add(Job{Name: "count", Schedule: "@hourly", Task: func(context.Context) error {
		calls.Add(1)
		return nil
	}}))

	require.NoError(t, s.RunNow(context.Background(), "count"))
	assert.Equal(t, int32(1), calls.Load())
	assert.ErrorIs(t, s.RunNow(context.Background(), "missing"), ErrJobNotFound)
}

func TestScheduler_RunNowFailure(t *testing.T) {
	s := NewScheduler(nil)
	boom := errors.New("boom")
	require.NoError(t, s.Add(Job{Name: "fail", Schedule: "@hourly", Task: func(context.Context) error {
		return boom
	}}))

	err := s.RunNow(context.Background(), "fail")
	var execErr *ExecutionFailedError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "fail", execErr.JobName)
	assert.ErrorIs(t, err, boom)
}

func TestScheduler_NoOverlap(t *testing.T) {
	s := NewScheduler(nil)
	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, s.Add(Job{Name: "slow", Schedule: "@hourly", Task: func(context.Context) error {
		close(started)
		<-release
		return nil
	}}))

	done := make(chan error, 1)
	go func() { done <- s.RunNow(context.Background(), "slow") }()
	<-started

	assert.ErrorIs(t, s.RunNow(context.Background(), "slow"), ErrJobRunning)
	close(release)
	require.NoError(t, <-done)
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler(time.UTC)
	require.NoError(t, s.Add(Job{Name: "a", Schedule: "@daily", Task: noop}))

	_, ok := s.NextRun("a")
	assert.False(t, ok)

	require.NoError(t, s.Start())
	assert.ErrorIs(t, s.Start(), ErrSchedulerRunning)

	next, ok := s.NextRun("a")
	assert.True(t, ok)
	assert.True(t, next.After(time.Now()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx))
}

func TestScheduler_List(t *testing.T) {
	s := NewScheduler(time.UTC)
	require.NoError(t, s.Add(Job{Name: "zeta", Schedule: "@daily", Task: noop}))
	require.NoError(t, s.Add(Job{Name: "alpha", Schedule: "0 4 * * *", Task: noop}))

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Name)
	assert.Equal(t, "0 4 * * *", list[0].Schedule)
	assert.True(t, list[0].NextRun.IsZero())
	assert.False(t, list[0].Running)
}

package cron

import (
	"errors"
	"fmt"
)

// Sentinel errors for cron operations.
var (
	// ErrJobNotFound indicates the requested job does not exist.
	ErrJobNotFound = errors.New("cron: job not found")

	// ErrJobExists indicates a job with the same name already exists.
	ErrJobExists = errors.New("cron: job already exists")

	// ErrJobRunning indicates a previous execution is still active.
	ErrJobRunning = errors.New("cron: job already running")

	// ErrSchedulerRunning indicates Start was called twice.
	ErrSchedulerRunning = errors.New("cron: scheduler already running")
)

// InvalidScheduleError indicates an invalid cron schedule expression.
type InvalidScheduleError struct {
	Schedule string
	Message  string
}

func (e *InvalidScheduleError) Error() string {
	return fmt.Sprintf("cron: invalid schedule '%s': %s", e.Schedule, e.Message)
}

// Is implements errors.Is for InvalidScheduleError.
func (e *InvalidScheduleError) Is(target error) bool {
	_, ok := target.(*InvalidScheduleError)
	return ok
}

// ErrInvalidSchedule is a sentinel for errors.Is matching.
var ErrInvalidSchedule = &InvalidScheduleError{}

// ExecutionFailedError indicates a job execution failed.
type ExecutionFailedError struct {
	JobName string
	Cause   error
}

func (e *ExecutionFailedError) Error() string {
	return fmt.Sprintf("cron: job '%s' execution failed: %v", e.JobName, e.Cause)
}

func (e *ExecutionFailedError) Unwrap() error {
	return e.Cause
}

package cron

import (
	"context"
	"fmt"
	"time"

	"fixter/internal/metrics"
	"fixter/pkg/logger"
)

// Built-in maintenance job names.
const (
	JobPruneSessions = "prune-sessions"
	JobCleanKV       = "clean-kv"
)

// SessionPruner removes sessions older than a given age.
type SessionPruner interface {
	ClearOld(maxAge time.Duration) ([]string, error)
}

// KVCleaner drops expired key-value entries.
type KVCleaner interface {
	KVCleanExpired() (int64, error)
}

// PruneSessions returns a task that deletes sessions idle for more than maxAge.
func PruneSessions(p SessionPruner, maxAge time.Duration) Task {
	return func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		removed, err := p.ClearOld(maxAge)
		if err != nil {
			return err
		}
		metrics.RecordPruned(len(removed))
		return nil
	}
}

// CleanKV returns a task that removes expired kv entries.
func CleanKV(c KVCleaner) Task {
	return func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := c.KVCleanExpired()
		if err != nil {
			return fmt.Errorf("clean kv: %w", err)
		}
		if n > 0 {
			logger.Debug().Int64("count", n).Msg("Removed expired kv entries")
		}
		return nil
	}
}

// MaintenanceJobs builds the standard job set.
func MaintenanceJobs(schedule string, p SessionPruner, c KVCleaner, maxAge time.Duration) []Job {
	return []Job{
		{Name: JobPruneSessions, Schedule: schedule, Task: PruneSessions(p, maxAge)},
		{Name: JobCleanKV, Schedule: schedule, Task: CleanKV(c)},
	}
}

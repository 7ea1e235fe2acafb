// Package cron runs periodic maintenance jobs such as session pruning.
package cron

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"fixter/pkg/logger"
)

// hardTimeout bounds a single job execution.
const hardTimeout = 10 * time.Minute

// Task is the body of a job.
type Task func(ctx context.Context) error

// Job is a named task on a schedule.
type Job struct {
	Name     string
	Schedule string
	Task     Task
}

var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ValidateSchedule checks a 5 or 6 field expression or a descriptor such
// as @daily.
func ValidateSchedule(schedule string) error {
	if _, err := parser.Parse(schedule); err != nil {
		return &InvalidScheduleError{Schedule: schedule, Message: err.Error()}
	}
	return nil
}

// Scheduler manages scheduled job execution with robfig/cron.
type Scheduler struct {
	cron    *cron.Cron
	mu      sync.RWMutex
	jobs    map[string]Job
	entries map[string]cron.EntryID
	running bool

	wg sync.WaitGroup

	// executing tracks active jobs to prevent overlapping executions
	executing sync.Map // job name -> start time
}

// NewScheduler creates a scheduler using loc, or time.Local when nil.
func NewScheduler(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLocation(loc),
			cron.WithLogger(cron.PrintfLogger(logger.Component("cron"))),
		),
		jobs:    make(map[string]Job),
		entries: make(map[string]cron.EntryID),
	}
}

// Add registers a job. Jobs added after Start are scheduled immediately.
func (s *Scheduler) Add(job Job) error {
	if err := ValidateSchedule(job.Schedule); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.Name]; ok {
		return ErrJobExists
	}
	entryID, err := s.cron.AddFunc(job.Schedule, func() {
		_ = s.execute(context.Background(), job)
	})
	if err != nil {
		return &InvalidScheduleError{Schedule: job.Schedule, Message: err.Error()}
	}
	s.jobs[job.Name] = job
	s.entries[job.Name] = entryID

	logger.Info().Str("job_name", job.Name).Str("schedule", job.Schedule).Msg("Job registered")
	return nil
}

// Remove unregisters a job.
func (s *Scheduler) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryID, ok := s.entries[name]
	if !ok {
		return ErrJobNotFound
	}
	s.cron.Remove(entryID)
	delete(s.entries, name)
	delete(s.jobs, name)
	return nil
}

// Start begins running registered jobs on their schedules.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrSchedulerRunning
	}
	s.cron.Start()
	s.running = true
	logger.Info().Int("jobs", len(s.jobs)).Msg("Scheduler started")
	return nil
}

// Stop stops scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	stopped := s.cron.Stop()
	s.running = false
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		<-stopped.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Msg("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow executes a job immediately, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.RLock()
	job, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return ErrJobNotFound
	}
	return s.execute(ctx, job)
}

// NextRun returns the next scheduled run time for a job.
func (s *Scheduler) NextRun(name string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entryID, ok := s.entries[name]
	if !ok || !s.running {
		return time.Time{}, false
	}
	entry := s.cron.Entry(entryID)
	if entry.ID == 0 {
		return time.Time{}, false
	}
	return entry.Next, true
}

// Jobs returns the registered job names.
func (s *Scheduler) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}

// JobInfo describes a registered job.
type JobInfo struct {
	Name     string    `json:"name"`
	Schedule string    `json:"schedule"`
	NextRun  time.Time `json:"next_run,omitempty"`
	Running  bool      `json:"running"`
}

// List returns registered jobs sorted by name.
func (s *Scheduler) List() []JobInfo {
	s.mu.RLock()
	out := make([]JobInfo, 0, len(s.jobs))
	for name, job := range s.jobs {
		info := JobInfo{Name: name, Schedule: job.Schedule}
		if s.running {
			info.NextRun = s.cron.Entry(s.entries[name]).Next
		}
		_, info.Running = s.executing.Load(name)
		out = append(out, info)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// execute runs job unless a previous execution is still active.
func (s *Scheduler) execute(ctx context.Context, job Job) error {
	if _, loaded := s.executing.LoadOrStore(job.Name, time.Now()); loaded {
		logger.Warn().Str("job_name", job.Name).Msg("Skipping overlapping execution, previous run still active")
		return ErrJobRunning
	}
	defer s.executing.Delete(job.Name)

	s.wg.Add(1)
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(ctx, hardTimeout)
	defer cancel()

	start := time.Now()
	if err := job.Task(ctx); err != nil {
		logger.Error().Err(err).Str("job_name", job.Name).Msg("Job execution failed")
		return &ExecutionFailedError{JobName: job.Name, Cause: err}
	}
	logger.Info().Str("job_name", job.Name).Dur("duration", time.Since(start)).Msg("Job execution completed")
	return nil
}

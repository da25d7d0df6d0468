// Package scheduler runs the ERP jobs on fixed intervals inside the server
// process.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobStatus represents the status of a single task run
type JobStatus string

const (
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// Task is a named unit of periodic work
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Job records one execution of a task
type Job struct {
	ID          uuid.UUID
	Task        string
	Status      JobStatus
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
}

func newJob(task string) *Job {
	return &Job{
		ID:        uuid.New(),
		Task:      task,
		Status:    JobStatusRunning,
		StartedAt: time.Now(),
	}
}

func (j *Job) finish(err error) {
	now := time.Now()
	j.CompletedAt = &now
	if err != nil {
		j.Status = JobStatusFailed
		j.Error = err.Error()
		return
	}
	j.Status = JobStatusSuccess
}

// Config holds scheduler configuration
type Config struct {
	JobTimeout time.Duration
	// RunOnStart fires every task once right after Start
	RunOnStart bool
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() Config {
	return Config{
		JobTimeout: 30 * time.Minute,
	}
}

// Scheduler fires each registered task on its own ticker. Runs of the same
// task never overlap.
type Scheduler struct {
	config Config
	logger *zap.Logger

	tasks     []Task
	lastRuns  map[string]Job
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// New creates a scheduler with no tasks
func New(config Config, logger *zap.Logger) *Scheduler {
	if config.JobTimeout <= 0 {
		config.JobTimeout = DefaultConfig().JobTimeout
	}
	return &Scheduler{
		config:   config,
		logger:   logger,
		lastRuns: make(map[string]Job),
	}
}

// Register adds a task. It must be called before Start.
func (s *Scheduler) Register(task Task) error {
	if task.Name == "" || task.Interval <= 0 || task.Run == nil {
		return fmt.Errorf("%w: %q", ErrInvalidTask, task.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return ErrSchedulerRunning
	}
	for _, t := range s.tasks {
		if t.Name == task.Name {
			return fmt.Errorf("%w: %q", ErrDuplicateTask, task.Name)
		}
	}
	s.tasks = append(s.tasks, task)
	return nil
}

// Start launches one loop per task. It is a no-op when already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	for _, task := range s.tasks {
		s.wg.Add(1)
		go s.loop(ctx, task)
	}

	s.logger.Info("Scheduler started",
		zap.Int("tasks", len(s.tasks)),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop cancels running tasks and waits for them until ctx expires
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

// LastRun returns the most recent finished run of a task
func (s *Scheduler) LastRun(task string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.lastRuns[task]
	return job, ok
}

func (s *Scheduler) loop(ctx context.Context, task Task) {
	defer s.wg.Done()

	if s.config.RunOnStart {
		s.execute(ctx, task)
	}

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.execute(ctx, task)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, task Task) {
	if ctx.Err() != nil {
		return
	}
	job := newJob(task.Name)
	log := s.logger.With(
		zap.String("task", task.Name),
		zap.String("job_id", job.ID.String()),
	)
	log.Debug("Scheduled task started")

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	err := s.safeRun(jobCtx, task)
	job.finish(err)

	s.mu.Lock()
	s.lastRuns[task.Name] = *job
	s.mu.Unlock()

	if err != nil {
		log.Error("Scheduled task failed", zap.Error(err))
		return
	}
	log.Info("Scheduled task completed", zap.Duration("duration", job.CompletedAt.Sub(job.StartedAt)))
}

func (s *Scheduler) safeRun(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", task.Name, r)
		}
	}()
	return task.Run(ctx)
}

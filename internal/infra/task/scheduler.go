package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is a unit of periodic work.
type Job struct {
	Name     string
	Interval time.Duration
	// Timeout bounds a single run; zero means the run is only bounded by Stop.
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// Scheduler runs registered jobs on fixed intervals. A job never overlaps
// with itself; a run that outlasts its interval delays the next tick.
type Scheduler struct {
	mu      sync.Mutex
	jobs    []Job
	started bool

	logger *zap.Logger
	cancel context.CancelFunc
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewScheduler creates a new scheduler.
func NewScheduler(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{logger: logger.Named("scheduler")}
}

// Register adds a job. Jobs must be registered before Start.
func (s *Scheduler) Register(job Job) error {
	if job.Name == "" || job.Run == nil {
		return errors.New("job needs a name and a run function")
	}
	if job.Interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", job.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("job %s: scheduler already started", job.Name)
	}
	s.jobs = append(s.jobs, job)
	return nil
}

// Start launches one goroutine per job. Runs use a context derived from ctx
// that is cancelled by Stop. A stopped scheduler may be started again.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.stopCh = make(chan struct{})

	ctx, s.cancel = context.WithCancel(ctx)
	for _, job := range s.jobs {
		s.logger.Info("starting job",
			zap.String("job", job.Name),
			zap.Duration("interval", job.Interval))

		s.wg.Add(1)
		go s.loop(ctx, s.stopCh, job)
	}
}

// Stop cancels in-flight runs and waits for every job to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel, stopCh := s.cancel, s.stopCh
	s.mu.Unlock()

	s.logger.Info("stopping scheduler")
	close(stopCh)
	cancel()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, stopCh <-chan struct{}, job Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx, job)
		}
	}
}

// RunOnce executes a single run of job, logging its outcome.
func (s *Scheduler) RunOnce(ctx context.Context, job Job) {
	runCtx := ctx
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := job.Run(runCtx)
	fields := []zap.Field{
		zap.String("job", job.Name),
		zap.Duration("elapsed", time.Since(start)),
	}
	if err != nil {
		s.logger.Warn("job failed", append(fields, zap.Error(err))...)
		return
	}
	s.logger.Debug("job finished", fields...)
}

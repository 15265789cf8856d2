package runner

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Scheduler runs jobs on a small bounded pool of execution slots, one
// job per slot. It is a local cooperative batch loop, not a distributed
// scheduler. Stopping a job cancels its context, which the runner turns
// into a PAUSED record.
type Scheduler struct {
	runner *Runner
	slots  *semaphore.Weighted
	wg     sync.WaitGroup

	mu      sync.Mutex
	cancels map[int64]context.CancelFunc
	errs    map[int64]error
}

// NewScheduler creates a scheduler with the given slot count.
func NewScheduler(r *Runner, slots int) *Scheduler {
	if slots <= 0 {
		slots = 1
	}
	return &Scheduler{
		runner:  r,
		slots:   semaphore.NewWeighted(int64(slots)),
		cancels: make(map[int64]context.CancelFunc),
		errs:    make(map[int64]error),
	}
}

// Launch blocks until a slot frees up, then runs the job in the
// background. Cancelling ctx while waiting abandons the submission;
// after the job starts, Stop pauses it cooperatively.
func (s *Scheduler) Launch(ctx context.Context, jobID int64, w Worker) error {
	if err := s.slots.Acquire(ctx, 1); err != nil {
		return err
	}
	jobCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancels[jobID] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.slots.Release(1)
		defer func() {
			s.mu.Lock()
			delete(s.cancels, jobID)
			s.mu.Unlock()
			cancel()
		}()

		if err := s.runner.Run(jobCtx, jobID, w); err != nil {
			s.mu.Lock()
			s.errs[jobID] = err
			s.mu.Unlock()
			slog.Error("scheduled_job_error",
				slog.Int64("job_id", jobID),
				slog.String("error", err.Error()))
		}
	}()
	return nil
}

// Stop requests a cooperative pause of one running job. Unknown or
// already-finished jobs are a no-op.
func (s *Scheduler) Stop(jobID int64) {
	s.mu.Lock()
	cancel, ok := s.cancels[jobID]
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

// StopAll requests a cooperative pause of every running job.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(s.cancels))
	for _, c := range s.cancels {
		cancels = append(cancels, c)
	}
	s.mu.Unlock()
	for _, c := range cancels {
		c()
	}
}

// Wait blocks until every launched job has finished and returns the
// per-job errors collected along the way.
func (s *Scheduler) Wait() map[int64]error {
	s.wg.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]error, len(s.errs))
	for id, err := range s.errs {
		out[id] = err
	}
	return out
}

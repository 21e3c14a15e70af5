// Package scheduler runs periodic desk tasks against an injected clock.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rxtech-lab/trading-desk/internal/clock"
	"github.com/rxtech-lab/trading-desk/internal/logger"
	"github.com/rxtech-lab/trading-desk/pkg/errors"
	"go.uber.org/zap"
)

// Task is a unit of periodic work.
type Task struct {
	Name     string
	Interval time.Duration
	// Immediate makes the first run happen at Start instead of one interval later.
	Immediate bool
	Run       func(ctx context.Context) error
}

type entry struct {
	task Task
	next time.Time
	runs int
}

// Scheduler runs tasks one at a time in due order. The next run of a task is
// scheduled one interval after its previous run completed.
type Scheduler struct {
	clock  clock.Clock
	logger *logger.Logger

	mu      sync.Mutex
	entries []*entry
}

func New(clk clock.Clock, log *logger.Logger) *Scheduler {
	return &Scheduler{
		clock:   clk,
		logger:  log,
		mu:      sync.Mutex{},
		entries: make([]*entry, 0),
	}
}

// Add registers a task. Names must be unique and intervals positive.
func (s *Scheduler) Add(task Task) error {
	if task.Name == "" || task.Run == nil {
		return errors.New(errors.ErrCodeInvalidParameter, "task needs a name and a run function")
	}

	if task.Interval <= 0 {
		return errors.Newf(errors.ErrCodeInvalidParameter, "task %s: interval must be positive, got %s", task.Name, task.Interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.task.Name == task.Name {
			return errors.Newf(errors.ErrCodeInvalidParameter, "task %s already registered", task.Name)
		}
	}

	next := s.clock.Now()
	if !task.Immediate {
		next = next.Add(task.Interval)
	}

	s.entries = append(s.entries, &entry{task: task, next: next, runs: 0})

	return nil
}

// Runs returns how many times the named task has run.
func (s *Scheduler) Runs(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.task.Name == name {
			return e.runs
		}
	}

	return 0
}

// due returns the entries whose next run is at or before now, in registration order.
func (s *Scheduler) due(now time.Time) []*entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*entry, 0)

	for _, e := range s.entries {
		if !e.next.After(now) {
			out = append(out, e)
		}
	}

	return out
}

// RunDue runs every task that is due now and returns their names. Task errors are
// logged and do not stop other tasks.
func (s *Scheduler) RunDue(ctx context.Context) []string {
	ran := make([]string, 0)

	for _, e := range s.due(s.clock.Now()) {
		if ctx.Err() != nil {
			break
		}

		if err := e.task.Run(ctx); err != nil {
			s.logger.Warn("Scheduled task failed",
				zap.String("task", e.task.Name),
				zap.Error(err),
			)
		}

		s.mu.Lock()
		e.runs++
		e.next = s.clock.Now().Add(e.task.Interval)
		s.mu.Unlock()

		ran = append(ran, e.task.Name)
	}

	return ran
}

// nextWake returns the earliest scheduled run.
func (s *Scheduler) nextWake() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var earliest time.Time

	for i, e := range s.entries {
		if i == 0 || e.next.Before(earliest) {
			earliest = e.next
		}
	}

	return earliest, len(s.entries) > 0
}

// Run loops until ctx is cancelled, sleeping on the clock between due runs.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("Scheduler started")

	for {
		s.RunDue(ctx)

		wake, ok := s.nextWake()
		if !ok {
			<-ctx.Done()

			return nil
		}

		if err := s.clock.Sleep(ctx, wake.Sub(s.clock.Now())); err != nil {
			if ctx.Err() != nil {
				s.logger.Info("Scheduler stopped")

				return nil
			}

			return err
		}
	}
}

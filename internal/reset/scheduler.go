// Package reset clears the completion and claim sets of repeating tasks and
// rewards once their interval has elapsed, opening a new cycle.
package reset

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/chorepoints/internal/model"
	"github.com/dukerupert/chorepoints/internal/store"
)

// Interval thresholds. Monthly is a 30-day approximation.
const (
	dailyThreshold   = 24 * time.Hour
	weeklyThreshold  = 7 * 24 * time.Hour
	monthlyThreshold = 30 * 24 * time.Hour
)

// Scheduler periodically sweeps repeating tasks and rewards.
type Scheduler struct {
	mu       sync.RWMutex
	tasks    *store.TaskStore
	rewards  *store.RewardStore
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewScheduler creates a reset scheduler with an hourly sweep interval.
func NewScheduler(taskStore *store.TaskStore, rewardStore *store.RewardStore, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		tasks:    taskStore,
		rewards:  rewardStore,
		interval: time.Hour,
		now:      time.Now,
		logger:   logger,
	}
}

// Start runs one sweep immediately, then begins the periodic loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	s.Sweep()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Sweep resets every repeating task and reward whose interval has elapsed.
// A failed entity is logged and skipped; the sweep continues.
func (s *Scheduler) Sweep() {
	s.mu.RLock()
	clock := s.now
	s.mu.RUnlock()

	now := clock().UTC()
	s.sweepTasks(now)
	s.sweepRewards(now)
}

func (s *Scheduler) sweepTasks(now time.Time) {
	tasks, err := s.tasks.ListRepeating()
	if err != nil {
		s.logger.Error("reset sweep: list repeating tasks", "error", err)
		return
	}

	for _, t := range tasks {
		threshold, ok := threshold(t.Repeat)
		if !ok {
			continue
		}

		// First sweep after creation: stamp the cycle start and move on.
		if t.LastReset == nil {
			if err := s.tasks.StampReset(t.ID, now); err != nil {
				s.logger.Error("reset sweep: stamp task", "task_id", t.ID, "error", err)
			}
			continue
		}

		if now.Sub(t.LastReset.UTC()) < threshold {
			continue
		}

		if err := s.tasks.ResetCompletions(t.ID, now); err != nil {
			s.logger.Error("reset sweep: reset task", "task_id", t.ID, "error", err)
			continue
		}
		s.logger.Info("task cycle reset", "task_id", t.ID, "repeat", t.Repeat)
	}
}

func (s *Scheduler) sweepRewards(now time.Time) {
	rewards, err := s.rewards.ListRepeating()
	if err != nil {
		s.logger.Error("reset sweep: list repeating rewards", "error", err)
		return
	}

	for _, r := range rewards {
		threshold, ok := threshold(r.Repeat)
		if !ok {
			continue
		}

		if r.LastReset == nil {
			if err := s.rewards.StampReset(r.ID, now); err != nil {
				s.logger.Error("reset sweep: stamp reward", "reward_id", r.ID, "error", err)
			}
			continue
		}

		if now.Sub(r.LastReset.UTC()) < threshold {
			continue
		}

		if err := s.rewards.ResetClaims(r.ID, now); err != nil {
			s.logger.Error("reset sweep: reset reward", "reward_id", r.ID, "error", err)
			continue
		}
		s.logger.Info("reward cycle reset", "reward_id", r.ID, "repeat", r.Repeat)
	}
}

func threshold(repeat string) (time.Duration, bool) {
	switch repeat {
	case model.RepeatDaily:
		return dailyThreshold, true
	case model.RepeatWeekly:
		return weeklyThreshold, true
	case model.RepeatMonthly:
		return monthlyThreshold, true
	}
	return 0, false
}

// SetClock overrides the scheduler's time source. Tests use this to simulate
// elapsed intervals without waiting.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// Package backup takes periodic snapshots of the SQLite database so a family
// can recover from a bad disk or a botched upgrade. Snapshots are written with
// VACUUM INTO, which produces a consistent copy without blocking writers.
package backup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	snapshotPrefix = "chorepoints-"
	snapshotExt    = ".db"
)

// Scheduler writes a snapshot once per interval and prunes old ones.
type Scheduler struct {
	mu       sync.RWMutex
	db       *sql.DB
	dir      string
	interval time.Duration
	keep     int
	now      func() time.Time
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewScheduler creates a backup scheduler that snapshots daily and keeps the
// seven most recent copies.
func NewScheduler(db *sql.DB, dir string, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		db:       db,
		dir:      dir,
		interval: 24 * time.Hour,
		keep:     7,
		now:      time.Now,
		logger:   logger,
	}
}

// Start takes one snapshot immediately, then begins the periodic loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	if err := s.Snapshot(); err != nil {
		s.logger.Error("initial backup", "error", err)
	}

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.Snapshot(); err != nil {
					s.logger.Error("backup", "error", err)
				}
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

// Snapshot writes a timestamped copy of the database and prunes snapshots
// beyond the retention count.
func (s *Scheduler) Snapshot() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}

	s.mu.RLock()
	clock := s.now
	s.mu.RUnlock()

	name := snapshotPrefix + clock().UTC().Format("20060102-150405") + snapshotExt
	path := filepath.Join(s.dir, name)

	// VACUUM INTO refuses to overwrite, so a stale partial file must go first.
	os.Remove(path)

	if _, err := s.db.Exec(`VACUUM INTO ?`, path); err != nil {
		return fmt.Errorf("vacuum into %s: %w", path, err)
	}
	s.logger.Info("database snapshot written", "path", path)

	return s.prune()
}

func (s *Scheduler) prune() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read backup dir: %w", err)
	}

	var snapshots []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, snapshotPrefix) && strings.HasSuffix(name, snapshotExt) {
			snapshots = append(snapshots, name)
		}
	}
	if len(snapshots) <= s.keep {
		return nil
	}

	// Timestamped names sort chronologically
	sort.Strings(snapshots)
	for _, name := range snapshots[:len(snapshots)-s.keep] {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			s.logger.Error("prune snapshot", "name", name, "error", err)
		}
	}
	return nil
}

// SetClock overrides the scheduler's time source for tests.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

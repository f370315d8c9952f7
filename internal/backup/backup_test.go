package backup

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/chorepoints/internal/database"
)

func setupBackupTest(t *testing.T) *Scheduler {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "source.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewScheduler(db, t.TempDir(), logger)
}

func countSnapshots(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read backup dir: %v", err)
	}
	count := 0
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), snapshotPrefix) {
			count++
		}
	}
	return count
}

func TestSnapshotWritesCopy(t *testing.T) {
	s := setupBackupTest(t)

	if err := s.Snapshot(); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if got := countSnapshots(t, s.dir); got != 1 {
		t.Errorf("got %d snapshots, want 1", got)
	}
}

func TestSnapshotPrunesOldCopies(t *testing.T) {
	s := setupBackupTest(t)
	s.keep = 2

	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		offset := i
		s.SetClock(func() time.Time { return base.Add(time.Duration(offset) * time.Hour) })
		if err := s.Snapshot(); err != nil {
			t.Fatalf("snapshot %d: %v", i, err)
		}
	}

	if got := countSnapshots(t, s.dir); got != 2 {
		t.Errorf("got %d snapshots, want 2 after prune", got)
	}

	// The survivors are the newest two
	entries, _ := os.ReadDir(s.dir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), snapshotPrefix) && strings.Contains(e.Name(), "120000") {
			t.Errorf("oldest snapshot %s survived prune", e.Name())
		}
	}
}

package reset

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dukerupert/chorepoints/internal/database"
	"github.com/dukerupert/chorepoints/internal/model"
	"github.com/dukerupert/chorepoints/internal/store"
)

type resetFixture struct {
	db        *sql.DB
	scheduler *Scheduler
	tasks     *store.TaskStore
	rewards   *store.RewardStore
	parent    *model.Account
	kid       *model.Account
}

func setupResetTest(t *testing.T) *resetFixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	// In-memory SQLite gives each connection its own database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	accounts := store.NewAccountStore(db)
	parent, err := accounts.CreateParent("alice@example.com", "hash")
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	kid, err := accounts.CreateKid("timmy", "alice@example.com", "hash")
	if err != nil {
		t.Fatalf("create kid: %v", err)
	}

	tasks := store.NewTaskStore(db)
	rewards := store.NewRewardStore(db)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &resetFixture{
		db:        db,
		scheduler: NewScheduler(tasks, rewards, logger),
		tasks:     tasks,
		rewards:   rewards,
		parent:    parent,
		kid:       kid,
	}
}

func (f *resetFixture) completeTask(t *testing.T, taskID int64) {
	t.Helper()
	if _, err := f.db.Exec(
		`INSERT INTO task_completions (task_id, kid_id) VALUES (?, ?)`,
		taskID, f.kid.ID,
	); err != nil {
		t.Fatalf("insert completion: %v", err)
	}
}

func TestSweepResetsElapsedDailyTask(t *testing.T) {
	f := setupResetTest(t)

	task, err := f.tasks.Create("Dishes", "", "", 10, "", f.parent.ID, "daily", []int64{f.kid.ID})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	f.completeTask(t, task.ID)

	stamped := time.Now().UTC().Add(-25 * time.Hour)
	if err := f.tasks.StampReset(task.ID, stamped); err != nil {
		t.Fatalf("stamp reset: %v", err)
	}

	f.scheduler.Sweep()

	got, _ := f.tasks.GetByID(task.ID)
	if len(got.CompletedBy) != 0 {
		t.Errorf("completed_by = %v, want empty after sweep", got.CompletedBy)
	}
	if got.LastReset == nil || !got.LastReset.After(stamped) {
		t.Error("expected last_reset to advance")
	}
}

func TestSweepLeavesFreshDailyTaskAlone(t *testing.T) {
	f := setupResetTest(t)

	task, err := f.tasks.Create("Dishes", "", "", 10, "", f.parent.ID, "daily", []int64{f.kid.ID})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	f.completeTask(t, task.ID)

	if err := f.tasks.StampReset(task.ID, time.Now().UTC().Add(-10*time.Hour)); err != nil {
		t.Fatalf("stamp reset: %v", err)
	}

	f.scheduler.Sweep()

	got, _ := f.tasks.GetByID(task.ID)
	if len(got.CompletedBy) != 1 {
		t.Errorf("completed_by = %v, want completion to survive", got.CompletedBy)
	}
}

func TestSweepStampsUnstampedTaskWithoutResetting(t *testing.T) {
	f := setupResetTest(t)

	task, err := f.tasks.Create("Dishes", "", "", 10, "", f.parent.ID, "daily", []int64{f.kid.ID})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	f.completeTask(t, task.ID)

	f.scheduler.Sweep()

	got, _ := f.tasks.GetByID(task.ID)
	if got.LastReset == nil {
		t.Fatal("expected bootstrap stamp")
	}
	if len(got.CompletedBy) != 1 {
		t.Errorf("completed_by = %v, want completion to survive bootstrap", got.CompletedBy)
	}
}

func TestSweepWithFakeClockResetsWeeklyTask(t *testing.T) {
	f := setupResetTest(t)

	task, err := f.tasks.Create("Mow lawn", "", "", 20, "", f.parent.ID, "weekly", []int64{f.kid.ID})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	f.completeTask(t, task.ID)

	base := time.Now().UTC()
	if err := f.tasks.StampReset(task.ID, base); err != nil {
		t.Fatalf("stamp reset: %v", err)
	}

	// Six days later: nothing happens
	f.scheduler.SetClock(func() time.Time { return base.Add(6 * 24 * time.Hour) })
	f.scheduler.Sweep()
	got, _ := f.tasks.GetByID(task.ID)
	if len(got.CompletedBy) != 1 {
		t.Fatalf("completed_by = %v, want completion to survive day six", got.CompletedBy)
	}

	// Eight days later: the cycle resets
	f.scheduler.SetClock(func() time.Time { return base.Add(8 * 24 * time.Hour) })
	f.scheduler.Sweep()
	got, _ = f.tasks.GetByID(task.ID)
	if len(got.CompletedBy) != 0 {
		t.Errorf("completed_by = %v, want empty on day eight", got.CompletedBy)
	}
}

func TestSweepResetsElapsedDailyReward(t *testing.T) {
	f := setupResetTest(t)

	reward, err := f.rewards.Create("Ice cream", "", 20, f.parent.Email, "daily")
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}
	if _, err := f.db.Exec(
		`INSERT INTO reward_claims (reward_id, kid_id) VALUES (?, ?)`,
		reward.ID, f.kid.ID,
	); err != nil {
		t.Fatalf("insert claim: %v", err)
	}

	if err := f.rewards.StampReset(reward.ID, time.Now().UTC().Add(-25*time.Hour)); err != nil {
		t.Fatalf("stamp reset: %v", err)
	}

	f.scheduler.Sweep()

	got, _ := f.rewards.GetByID(reward.ID)
	if len(got.ClaimedBy) != 0 {
		t.Errorf("claimed_by = %v, want empty after sweep", got.ClaimedBy)
	}
}

func TestSweepIgnoresNonRepeating(t *testing.T) {
	f := setupResetTest(t)

	task, err := f.tasks.Create("One-off", "", "", 10, "", f.parent.ID, "none", []int64{f.kid.ID})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	f.completeTask(t, task.ID)

	reward, err := f.rewards.Create("Candy", "", 5, f.parent.Email, "unlimited")
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}
	if _, err := f.db.Exec(
		`INSERT INTO reward_claims (reward_id, kid_id) VALUES (?, ?)`,
		reward.ID, f.kid.ID,
	); err != nil {
		t.Fatalf("insert claim: %v", err)
	}

	f.scheduler.SetClock(func() time.Time { return time.Now().UTC().Add(40 * 24 * time.Hour) })
	f.scheduler.Sweep()

	gotTask, _ := f.tasks.GetByID(task.ID)
	if len(gotTask.CompletedBy) != 1 {
		t.Errorf("one-off completion swept: %v", gotTask.CompletedBy)
	}
	gotReward, _ := f.rewards.GetByID(reward.ID)
	if len(gotReward.ClaimedBy) != 1 {
		t.Errorf("unlimited claim swept: %v", gotReward.ClaimedBy)
	}
}

func TestSchedulerStartStop(t *testing.T) {
	f := setupResetTest(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.scheduler.Start(ctx)
	f.scheduler.Stop()
}

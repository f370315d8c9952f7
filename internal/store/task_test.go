package store

import (
	"testing"
	"time"
)

func TestTaskCreateWithAssignments(t *testing.T) {
	db := setupStoreTestDB(t)
	parent := createTestParent(t, db, "alice@example.com")
	kid := createTestKid(t, db, "timmy", "alice@example.com")
	s := NewTaskStore(db)

	task, err := s.Create("Dishes", "load and run", "", 10, "Chores", parent.ID, "daily", []int64{kid.ID})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.Points != 10 {
		t.Errorf("points = %d, want 10", task.Points)
	}
	if task.Repeat != "daily" {
		t.Errorf("repeat = %q, want %q", task.Repeat, "daily")
	}
	if len(task.AssignedTo) != 1 || task.AssignedTo[0] != kid.ID {
		t.Errorf("assigned_to = %v, want [%d]", task.AssignedTo, kid.ID)
	}
	if len(task.CompletedBy) != 0 {
		t.Errorf("completed_by = %v, want empty", task.CompletedBy)
	}
	if task.LastReset != nil {
		t.Error("expected nil last_reset on new task")
	}
}

func TestTaskListByAssignee(t *testing.T) {
	db := setupStoreTestDB(t)
	parent := createTestParent(t, db, "alice@example.com")
	timmy := createTestKid(t, db, "timmy", "alice@example.com")
	zoe := createTestKid(t, db, "zoe", "alice@example.com")
	s := NewTaskStore(db)

	s.Create("Dishes", "", "", 10, "", parent.ID, "none", []int64{timmy.ID})
	s.Create("Vacuum", "", "", 15, "", parent.ID, "none", []int64{timmy.ID, zoe.ID})
	s.Create("Mow lawn", "", "", 20, "", parent.ID, "none", []int64{zoe.ID})

	tasks, err := s.ListByAssignee(timmy.ID)
	if err != nil {
		t.Fatalf("list by assignee: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}
	if tasks[0].Name != "Dishes" || tasks[1].Name != "Vacuum" {
		t.Errorf("tasks not ordered by name: %q, %q", tasks[0].Name, tasks[1].Name)
	}
}

func TestTaskListByCreator(t *testing.T) {
	db := setupStoreTestDB(t)
	alice := createTestParent(t, db, "alice@example.com")
	bob := createTestParent(t, db, "bob@example.com")
	s := NewTaskStore(db)

	s.Create("Dishes", "", "", 10, "", alice.ID, "none", nil)
	s.Create("Mow lawn", "", "", 20, "", bob.ID, "none", nil)

	tasks, err := s.ListByCreator(alice.ID)
	if err != nil {
		t.Fatalf("list by creator: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(tasks))
	}
	if tasks[0].Name != "Dishes" {
		t.Errorf("name = %q, want %q", tasks[0].Name, "Dishes")
	}
}

func TestTaskListRepeating(t *testing.T) {
	db := setupStoreTestDB(t)
	parent := createTestParent(t, db, "alice@example.com")
	s := NewTaskStore(db)

	s.Create("Dishes", "", "", 10, "", parent.ID, "daily", nil)
	s.Create("Mow lawn", "", "", 20, "", parent.ID, "weekly", nil)
	s.Create("One-off", "", "", 5, "", parent.ID, "none", nil)

	tasks, err := s.ListRepeating()
	if err != nil {
		t.Fatalf("list repeating: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}
}

func TestTaskUpdateReplacesAssignments(t *testing.T) {
	db := setupStoreTestDB(t)
	parent := createTestParent(t, db, "alice@example.com")
	timmy := createTestKid(t, db, "timmy", "alice@example.com")
	zoe := createTestKid(t, db, "zoe", "alice@example.com")
	s := NewTaskStore(db)

	task, err := s.Create("Dishes", "", "", 10, "", parent.ID, "none", []int64{timmy.ID})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO task_completions (task_id, kid_id) VALUES (?, ?)`, task.ID, timmy.ID); err != nil {
		t.Fatalf("insert completion: %v", err)
	}

	updated, err := s.Update(task.ID, "Dishes", "", "", 10, "", "none", []int64{zoe.ID})
	if err != nil {
		t.Fatalf("update task: %v", err)
	}
	if len(updated.AssignedTo) != 1 || updated.AssignedTo[0] != zoe.ID {
		t.Errorf("assigned_to = %v, want [%d]", updated.AssignedTo, zoe.ID)
	}
	// Unassigning timmy cascades away the completion row
	if len(updated.CompletedBy) != 0 {
		t.Errorf("completed_by = %v, want empty after reassignment", updated.CompletedBy)
	}
}

func TestTaskResetCompletions(t *testing.T) {
	db := setupStoreTestDB(t)
	parent := createTestParent(t, db, "alice@example.com")
	kid := createTestKid(t, db, "timmy", "alice@example.com")
	s := NewTaskStore(db)

	task, err := s.Create("Dishes", "", "", 10, "", parent.ID, "daily", []int64{kid.ID})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO task_completions (task_id, kid_id) VALUES (?, ?)`, task.ID, kid.ID); err != nil {
		t.Fatalf("insert completion: %v", err)
	}

	at := time.Now().UTC()
	if err := s.ResetCompletions(task.ID, at); err != nil {
		t.Fatalf("reset completions: %v", err)
	}

	got, _ := s.GetByID(task.ID)
	if len(got.CompletedBy) != 0 {
		t.Errorf("completed_by = %v, want empty after reset", got.CompletedBy)
	}
	if got.LastReset == nil {
		t.Fatal("expected last_reset to be stamped")
	}
	// Assignment set survives the reset
	if len(got.AssignedTo) != 1 {
		t.Errorf("assigned_to = %v, want 1 entry", got.AssignedTo)
	}
}

func TestTaskStampReset(t *testing.T) {
	db := setupStoreTestDB(t)
	parent := createTestParent(t, db, "alice@example.com")
	s := NewTaskStore(db)

	task, _ := s.Create("Dishes", "", "", 10, "", parent.ID, "daily", nil)

	at := time.Now().UTC()
	if err := s.StampReset(task.ID, at); err != nil {
		t.Fatalf("stamp reset: %v", err)
	}

	got, _ := s.GetByID(task.ID)
	if got.LastReset == nil {
		t.Fatal("expected last_reset to be stamped")
	}
}

func TestTaskDelete(t *testing.T) {
	db := setupStoreTestDB(t)
	parent := createTestParent(t, db, "alice@example.com")
	s := NewTaskStore(db)

	task, _ := s.Create("Dishes", "", "", 10, "", parent.ID, "none", nil)
	if err := s.Delete(task.ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}

	got, err := s.GetByID(task.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}
}

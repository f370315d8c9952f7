package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/chorepoints/internal/model"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var lastReset sql.NullTime

	err := scanner.Scan(
		&t.ID, &t.Name, &t.Details, &t.Image, &t.Points, &t.CategoryName,
		&t.CreatedBy, &t.Repeat, &lastReset, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastReset.Valid {
		t.LastReset = &lastReset.Time
	}
	return &t, nil
}

const taskCols = `id, name, details, image, points, category_name, created_by, repeat, last_reset, created_at, updated_at`

func (s *TaskStore) Create(name, details, image string, points int, categoryName string, createdBy int64, repeat string, assignedTo []int64) (*model.Task, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO tasks (name, details, image, points, category_name, created_by, repeat) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		name, details, image, points, categoryName, createdBy, repeat,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	for _, kidID := range assignedTo {
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO task_assignments (task_id, kid_id) VALUES (?, ?)`,
			id, kidID,
		); err != nil {
			return nil, fmt.Errorf("insert assignment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) GetByID(id int64) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if err := s.loadSets(t); err != nil {
		return nil, err
	}
	return t, nil
}

// ListByCreator returns all tasks created by a parent, ordered by name.
func (s *TaskStore) ListByCreator(parentID int64) ([]model.Task, error) {
	return s.list(`SELECT `+taskCols+` FROM tasks WHERE created_by = ? ORDER BY name ASC`, parentID)
}

// ListByAssignee returns all tasks a kid is assigned to, ordered by name.
func (s *TaskStore) ListByAssignee(kidID int64) ([]model.Task, error) {
	return s.list(
		`SELECT `+taskCols+` FROM tasks WHERE id IN (SELECT task_id FROM task_assignments WHERE kid_id = ?) ORDER BY name ASC`,
		kidID,
	)
}

// ListRepeating returns all tasks with a repeat schedule.
func (s *TaskStore) ListRepeating() ([]model.Task, error) {
	return s.list(`SELECT ` + taskCols + ` FROM tasks WHERE repeat != 'none' ORDER BY id ASC`)
}

func (s *TaskStore) list(query string, args ...any) ([]model.Task, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range tasks {
		if err := s.loadSets(&tasks[i]); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

// loadSets populates the assignment and completion sets of a task.
func (s *TaskStore) loadSets(t *model.Task) error {
	assigned, err := s.queryIDs(`SELECT kid_id FROM task_assignments WHERE task_id = ? ORDER BY kid_id`, t.ID)
	if err != nil {
		return fmt.Errorf("load assignments: %w", err)
	}
	completed, err := s.queryIDs(`SELECT kid_id FROM task_completions WHERE task_id = ? ORDER BY kid_id`, t.ID)
	if err != nil {
		return fmt.Errorf("load completions: %w", err)
	}
	t.AssignedTo = assigned
	t.CompletedBy = completed
	return nil
}

func (s *TaskStore) queryIDs(query string, args ...any) ([]int64, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *TaskStore) Update(id int64, name, details, image string, points int, categoryName, repeat string, assignedTo []int64) (*model.Task, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`UPDATE tasks SET name = ?, details = ?, image = ?, points = ?, category_name = ?, repeat = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, details, image, points, categoryName, repeat, id,
	); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	// Replace the assignment set. Removing an assignment cascades away any
	// completion row for that kid.
	if _, err := tx.Exec(`DELETE FROM task_assignments WHERE task_id = ?`, id); err != nil {
		return nil, fmt.Errorf("clear assignments: %w", err)
	}
	for _, kidID := range assignedTo {
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO task_assignments (task_id, kid_id) VALUES (?, ?)`,
			id, kidID,
		); err != nil {
			return nil, fmt.Errorf("insert assignment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// StampReset records a reset timestamp without touching the completion set.
// Used to bootstrap repeating tasks that have never been swept.
func (s *TaskStore) StampReset(id int64, at time.Time) error {
	_, err := s.db.Exec(`UPDATE tasks SET last_reset = ? WHERE id = ?`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("stamp task reset: %w", err)
	}
	return nil
}

// ResetCompletions clears the completion set and re-stamps last_reset in one
// transaction, opening a new cycle for a repeating task.
func (s *TaskStore) ResetCompletions(id int64, at time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM task_completions WHERE task_id = ?`, id); err != nil {
		return fmt.Errorf("clear completions: %w", err)
	}
	if _, err := tx.Exec(`UPDATE tasks SET last_reset = ? WHERE id = ?`, at.UTC(), id); err != nil {
		return fmt.Errorf("stamp task reset: %w", err)
	}
	return tx.Commit()
}

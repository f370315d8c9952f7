package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/chorepoints/internal/model"
)

type CategoryStore struct {
	db *sql.DB
}

func NewCategoryStore(db *sql.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

func scanCategory(scanner interface{ Scan(...any) error }) (*model.Category, error) {
	var c model.Category
	err := scanner.Scan(&c.ID, &c.Name, &c.Color, &c.ParentID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const categoryCols = `id, name, color, parent_id, created_at, updated_at`

func (s *CategoryStore) Create(name, color string, parentID int64) (*model.Category, error) {
	result, err := s.db.Exec(
		`INSERT INTO categories (name, color, parent_id) VALUES (?, ?, ?)`,
		name, color, parentID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert category: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *CategoryStore) GetByID(id int64) (*model.Category, error) {
	row := s.db.QueryRow(`SELECT `+categoryCols+` FROM categories WHERE id = ?`, id)
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

// ListByParent returns the categories owned by a parent, ordered by name.
func (s *CategoryStore) ListByParent(parentID int64) ([]model.Category, error) {
	rows, err := s.db.Query(
		`SELECT `+categoryCols+` FROM categories WHERE parent_id = ? ORDER BY name ASC`,
		parentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}

// Update renames a category and cascades the new name to every task that
// referenced the old one. Tasks hold the category by name, so the rename and
// the cascade must land in the same transaction.
func (s *CategoryStore) Update(id int64, name, color string) (*model.Category, error) {
	existing, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`UPDATE categories SET name = ?, color = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, color, id,
	); err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}

	if name != existing.Name {
		if _, err := tx.Exec(
			`UPDATE tasks SET category_name = ?, updated_at = CURRENT_TIMESTAMP WHERE category_name = ?`,
			name, existing.Name,
		); err != nil {
			return nil, fmt.Errorf("cascade category rename: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return s.GetByID(id)
}

func (s *CategoryStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

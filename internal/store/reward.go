package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/chorepoints/internal/model"
)

type RewardStore struct {
	db *sql.DB
}

func NewRewardStore(db *sql.DB) *RewardStore {
	return &RewardStore{db: db}
}

func scanReward(scanner interface{ Scan(...any) error }) (*model.Reward, error) {
	var r model.Reward
	var lastReset sql.NullTime

	err := scanner.Scan(
		&r.ID, &r.Title, &r.Description, &r.PointsNeeded, &r.ParentEmail,
		&r.Repeat, &lastReset, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastReset.Valid {
		r.LastReset = &lastReset.Time
	}
	return &r, nil
}

const rewardCols = `id, title, description, points_needed, parent_email, repeat, last_reset, created_at, updated_at`

func (s *RewardStore) Create(title, description string, pointsNeeded int, parentEmail, repeat string) (*model.Reward, error) {
	result, err := s.db.Exec(
		`INSERT INTO rewards (title, description, points_needed, parent_email, repeat) VALUES (?, ?, ?, ?, ?)`,
		title, description, pointsNeeded, parentEmail, repeat,
	)
	if err != nil {
		return nil, fmt.Errorf("insert reward: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *RewardStore) GetByID(id int64) (*model.Reward, error) {
	row := s.db.QueryRow(`SELECT `+rewardCols+` FROM rewards WHERE id = ?`, id)
	r, err := scanReward(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}
	if err := s.loadClaims(r); err != nil {
		return nil, err
	}
	return r, nil
}

// ListByParentEmail returns a parent's rewards, ordered by title.
func (s *RewardStore) ListByParentEmail(parentEmail string) ([]model.Reward, error) {
	return s.list(`SELECT `+rewardCols+` FROM rewards WHERE parent_email = ? ORDER BY title ASC`, parentEmail)
}

// ListRepeating returns rewards swept by the reset scheduler. Unlimited
// rewards have no claim cap to reset, so they are excluded.
func (s *RewardStore) ListRepeating() ([]model.Reward, error) {
	return s.list(`SELECT ` + rewardCols + ` FROM rewards WHERE repeat IN ('daily', 'weekly') ORDER BY id ASC`)
}

func (s *RewardStore) list(query string, args ...any) ([]model.Reward, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []model.Reward
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		rewards = append(rewards, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range rewards {
		if err := s.loadClaims(&rewards[i]); err != nil {
			return nil, err
		}
	}
	return rewards, nil
}

func (s *RewardStore) loadClaims(r *model.Reward) error {
	rows, err := s.db.Query(`SELECT kid_id FROM reward_claims WHERE reward_id = ? ORDER BY kid_id`, r.ID)
	if err != nil {
		return fmt.Errorf("load claims: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("scan claim: %w", err)
		}
		ids = append(ids, id)
	}
	r.ClaimedBy = ids
	return rows.Err()
}

func (s *RewardStore) Update(id int64, title, description string, pointsNeeded int, repeat string) (*model.Reward, error) {
	_, err := s.db.Exec(
		`UPDATE rewards SET title = ?, description = ?, points_needed = ?, repeat = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		title, description, pointsNeeded, repeat, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update reward: %w", err)
	}
	return s.GetByID(id)
}

func (s *RewardStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM rewards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reward: %w", err)
	}
	return nil
}

// StampReset records a reset timestamp without touching the claim set.
func (s *RewardStore) StampReset(id int64, at time.Time) error {
	_, err := s.db.Exec(`UPDATE rewards SET last_reset = ? WHERE id = ?`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("stamp reward reset: %w", err)
	}
	return nil
}

// ResetClaims clears the claim set and re-stamps last_reset in one
// transaction, opening a new claim interval.
func (s *RewardStore) ResetClaims(id int64, at time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM reward_claims WHERE reward_id = ?`, id); err != nil {
		return fmt.Errorf("clear claims: %w", err)
	}
	if _, err := tx.Exec(`UPDATE rewards SET last_reset = ? WHERE id = ?`, at.UTC(), id); err != nil {
		return fmt.Errorf("stamp reward reset: %w", err)
	}
	return tx.Commit()
}

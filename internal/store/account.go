package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/chorepoints/internal/model"
)

type AccountStore struct {
	db *sql.DB
}

func NewAccountStore(db *sql.DB) *AccountStore {
	return &AccountStore{db: db}
}

func scanAccount(scanner interface{ Scan(...any) error }) (*model.Account, error) {
	var a model.Account
	var email, username sql.NullString

	err := scanner.Scan(
		&a.ID, &email, &username, &a.ParentEmail, &a.PasswordHash,
		&a.Role, &a.Points, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Email = email.String
	a.Username = username.String
	return &a, nil
}

const accountCols = `id, email, username, parent_email, password_hash, role, points, created_at, updated_at`

// CreateParent registers a parent account identified by email.
func (s *AccountStore) CreateParent(email, passwordHash string) (*model.Account, error) {
	result, err := s.db.Exec(
		`INSERT INTO accounts (email, role, password_hash) VALUES (?, ?, ?)`,
		email, model.RoleParent, passwordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("insert parent account: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

// CreateKid registers a kid account identified by username, linked to a
// parent by email.
func (s *AccountStore) CreateKid(username, parentEmail, passwordHash string) (*model.Account, error) {
	result, err := s.db.Exec(
		`INSERT INTO accounts (username, parent_email, role, password_hash) VALUES (?, ?, ?, ?)`,
		username, parentEmail, model.RoleKid, passwordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("insert kid account: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *AccountStore) GetByID(id int64) (*model.Account, error) {
	row := s.db.QueryRow(`SELECT `+accountCols+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func (s *AccountStore) GetByEmail(email string) (*model.Account, error) {
	row := s.db.QueryRow(`SELECT `+accountCols+` FROM accounts WHERE email = ?`, email)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account by email: %w", err)
	}
	return a, nil
}

func (s *AccountStore) GetByUsername(username string) (*model.Account, error) {
	row := s.db.QueryRow(`SELECT `+accountCols+` FROM accounts WHERE username = ?`, username)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account by username: %w", err)
	}
	return a, nil
}

// ListKids returns the kid accounts linked to the given parent email,
// ordered by username.
func (s *AccountStore) ListKids(parentEmail string) ([]model.Account, error) {
	rows, err := s.db.Query(
		`SELECT `+accountCols+` FROM accounts WHERE role = ? AND parent_email = ? ORDER BY username ASC`,
		model.RoleKid, parentEmail,
	)
	if err != nil {
		return nil, fmt.Errorf("list kids: %w", err)
	}
	defer rows.Close()

	var kids []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		kids = append(kids, *a)
	}
	return kids, rows.Err()
}

func (s *AccountStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

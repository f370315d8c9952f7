package model

import "time"

const (
	RoleParent = "parent"
	RoleKid    = "kid"
)

// Account is a parent or kid identity. Parents are identified by email,
// kids by username with an optional parent_email link back to their parent.
// Points are only meaningful for kids and are mutated by the ledger alone.
type Account struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email,omitempty"`
	Username     string    `json:"username,omitempty"`
	ParentEmail  string    `json:"parent_email,omitempty"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Points       int       `json:"points"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

package model

import "time"

// Category groups tasks. Tasks reference it by name, so renaming a category
// cascades to every referencing task in the same transaction.
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	ParentID  int64     `json:"parent_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

package model

import "time"

type Session struct {
	ID        int64     `json:"id"`
	Token     string    `json:"-"`
	AccountID int64     `json:"account_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

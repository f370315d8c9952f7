package model

import "time"

const (
	KindTask   = "task"
	KindReward = "reward"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Notification records a provisional point change awaiting parent audit, or
// the outcome of an audit addressed back to the kid. Recipient is a parent
// email or kid username. After audit only the read flag may change.
type Notification struct {
	ID             int64     `json:"id"`
	SenderID       int64     `json:"sender_id"`
	Recipient      string    `json:"recipient"`
	SubjectID      int64     `json:"subject_id"`
	Kind           string    `json:"kind"`
	Status         string    `json:"status"`
	Points         int       `json:"points"`
	ModifiedPoints *int      `json:"modified_points"`
	Note           string    `json:"note"`
	Read           bool      `json:"read"`
	RewardTitle    string    `json:"reward_title,omitempty"`
	RewardDesc     string    `json:"reward_description,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// EffectivePoints returns the parent-adjusted amount when set, otherwise the
// amount proposed at completion/claim time.
func (n *Notification) EffectivePoints() int {
	if n.ModifiedPoints != nil {
		return *n.ModifiedPoints
	}
	return n.Points
}

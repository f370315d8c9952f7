package model

import "time"

// Reward is something a kid can spend points on. The claim set holds the
// kids who have claimed it; its meaning depends on the repeat schedule:
// none admits one claim per kid ever, daily/weekly one claim per kid per
// interval (cleared by the reset scheduler), unlimited never blocks.
type Reward struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	PointsNeeded int        `json:"points_needed"`
	ParentEmail  string     `json:"parent_email"`
	Repeat       string     `json:"repeat"`
	LastReset    *time.Time `json:"last_reset"`
	ClaimedBy    []int64    `json:"claimed_by"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ValidRewardRepeat reports whether r is a repeat schedule a reward accepts.
func ValidRewardRepeat(r string) bool {
	switch r {
	case RepeatNone, RepeatUnlimited, RepeatDaily, RepeatWeekly:
		return true
	}
	return false
}

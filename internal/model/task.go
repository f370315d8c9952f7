package model

import "time"

// Repeat intervals for tasks and rewards. Tasks support none/daily/weekly/
// monthly; rewards support none/unlimited/daily/weekly.
const (
	RepeatNone      = "none"
	RepeatUnlimited = "unlimited"
	RepeatDaily     = "daily"
	RepeatWeekly    = "weekly"
	RepeatMonthly   = "monthly"
)

// Task is a chore defined by a parent and assigned to kids. The completion
// set holds the kids who completed it in the current cycle; the reset
// scheduler clears it for repeating tasks once the interval has elapsed.
type Task struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Details      string     `json:"details"`
	Image        string     `json:"image"`
	Points       int        `json:"points"`
	CategoryName string     `json:"category_name"`
	CreatedBy    int64      `json:"created_by"`
	Repeat       string     `json:"repeat"`
	LastReset    *time.Time `json:"last_reset"`
	AssignedTo   []int64    `json:"assigned_to"`
	CompletedBy  []int64    `json:"completed_by"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ValidTaskRepeat reports whether r is a repeat schedule a task accepts.
func ValidTaskRepeat(r string) bool {
	switch r {
	case RepeatNone, RepeatDaily, RepeatWeekly, RepeatMonthly:
		return true
	}
	return false
}

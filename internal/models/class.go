package models

import "time"

// DefaultTargetPercentage applies when a class is created without a target.
const DefaultTargetPercentage = 75

// Bounds accepted for a class target percentage.
const (
	MinTargetPercentage = 50
	MaxTargetPercentage = 100
)

// ClassRecord is a user's tracked class together with its attendance log.
// Attendance maps YYYY-MM-DD keys to a status; an absent key means unmarked.
type ClassRecord struct {
	ID               string                      `db:"id" json:"id"`
	UserID           string                      `db:"user_id" json:"-"`
	Name             string                      `db:"name" json:"name"`
	StartDate        time.Time                   `db:"start_date" json:"start_date"`
	TargetPercentage int                         `db:"target_percentage" json:"target_percentage"`
	Attendance       map[string]AttendanceStatus `db:"-" json:"attendance"`
	CreatedAt        time.Time                   `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time                   `db:"updated_at" json:"updated_at"`
}

// Target returns the class target, falling back to the default for unset rows.
func (c ClassRecord) Target() int {
	if c.TargetPercentage <= 0 {
		return DefaultTargetPercentage
	}
	return c.TargetPercentage
}

// ClassFilter defines filter criteria for listing classes.
type ClassFilter struct {
	UserID   string
	Search   string
	Page     int
	PageSize int
}

// ClassUpdate carries the mutable class fields; nil fields are left untouched.
type ClassUpdate struct {
	Name             *string
	StartDate        *time.Time
	TargetPercentage *int
}

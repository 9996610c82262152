package dto

import (
	"time"

	"github.com/sankalp-sachan/ATTENDLY/internal/models"
)

// ClassStats is the per-class view rendered by the dashboard and stats endpoints.
type ClassStats struct {
	ClassID          string                 `json:"class_id"`
	Name             string                 `json:"name"`
	StartDate        string                 `json:"start_date"`
	TargetPercentage int                    `json:"target_percentage"`
	Stats            models.AttendanceStats `json:"stats"`
	Tier             models.Tier            `json:"tier"`
	BelowTarget      bool                   `json:"below_target"`
	LastAlertDate    string                 `json:"last_alert_date,omitempty"`
}

// OverallStats aggregates classes that have at least one working day.
type OverallStats struct {
	TrackedClasses     int     `json:"tracked_classes"`
	AveragePercentage  float64 `json:"average_percentage"`
	AverageTarget      float64 `json:"average_target"`
	ClassesBelowTarget int     `json:"classes_below_target"`
	TotalPresent       int     `json:"total_present"`
	TotalWorkingDays   int     `json:"total_working_days"`
}

// Dashboard is the response of GET /dashboard.
type Dashboard struct {
	AsOf                string       `json:"as_of"`
	Classes             []ClassStats `json:"classes"`
	Overall             OverallStats `json:"overall"`
	UnreadNotifications int          `json:"unread_notifications"`
	GeneratedAt         time.Time    `json:"generated_at"`
}

package models

import "time"

// DateLayout is the calendar date format used for attendance keys.
const DateLayout = "2006-01-02"

// AttendanceStatus is the status recorded for a single calendar date.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
	AttendanceStatusHoliday AttendanceStatus = "holiday"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusHoliday:
		return true
	default:
		return false
	}
}

// CountsAsWorkingDay reports whether the status contributes to the percentage denominator.
func (s AttendanceStatus) CountsAsWorkingDay() bool {
	return s == AttendanceStatusPresent || s == AttendanceStatusAbsent
}

// AttendanceEntry is one persisted row of a class attendance log.
type AttendanceEntry struct {
	ClassID   string           `db:"class_id" json:"class_id"`
	Date      time.Time        `db:"date" json:"date"`
	Status    AttendanceStatus `db:"status" json:"status"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// DateKey returns the entry date formatted as an attendance key.
func (e AttendanceEntry) DateKey() string {
	return e.Date.Format(DateLayout)
}

// AttendanceStats summarises a class attendance log as of a given day.
type AttendanceStats struct {
	TotalWorkingDays int     `json:"total_working_days"`
	PresentCount     int     `json:"present_count"`
	AbsentCount      int     `json:"absent_count"`
	HolidayCount     int     `json:"holiday_count"`
	Percentage       float64 `json:"percentage"`
}

// Tier is the traffic-light classification of a percentage against a target.
type Tier string

const (
	TierOK       Tier = "ok"
	TierWarning  Tier = "warning"
	TierCritical Tier = "critical"
)

// rank orders tiers from best to worst.
func (t Tier) rank() int {
	switch t {
	case TierOK:
		return 0
	case TierWarning:
		return 1
	default:
		return 2
	}
}

// WorseThan reports whether t is a worse classification than other.
func (t Tier) WorseThan(other Tier) bool {
	return t.rank() > other.rank()
}

// Package attendance turns a class attendance log into counts, a percentage
// and a tier. Everything here is pure and safe to call on every request.
package attendance

import (
	"math"
	"time"

	"github.com/sankalp-sachan/ATTENDLY/internal/models"
)

// StartOfDay truncates t to midnight of its calendar date, expressed in UTC so
// that dates compare by value regardless of the zone they were produced in.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD key into a UTC calendar date.
func ParseDate(key string) (time.Time, bool) {
	d, err := time.Parse(models.DateLayout, key)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// FormatDate renders the calendar date of t as a YYYY-MM-DD key.
func FormatDate(t time.Time) string {
	return t.Format(models.DateLayout)
}

// Round2 rounds to two decimals, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ComputeStats summarises record as of the calendar date of asOf.
//
// Only entries inside [StartDate, asOf] count. Holidays are tallied but never
// count as working days, and unmarked dates are invisible. Malformed keys and
// unknown statuses are skipped.
func ComputeStats(record models.ClassRecord, asOf time.Time) models.AttendanceStats {
	today := StartOfDay(asOf)
	start := today
	if !record.StartDate.IsZero() {
		start = StartOfDay(record.StartDate)
	}

	var stats models.AttendanceStats
	if start.After(today) {
		return stats
	}

	for key, status := range record.Attendance {
		d, ok := ParseDate(key)
		if !ok || d.Before(start) || d.After(today) {
			continue
		}
		switch status {
		case models.AttendanceStatusPresent:
			stats.PresentCount++
			stats.TotalWorkingDays++
		case models.AttendanceStatusAbsent:
			stats.AbsentCount++
			stats.TotalWorkingDays++
		case models.AttendanceStatusHoliday:
			stats.HolidayCount++
		}
	}

	if stats.TotalWorkingDays > 0 {
		stats.Percentage = Round2(float64(stats.PresentCount) / float64(stats.TotalWorkingDays) * 100)
	}
	return stats
}

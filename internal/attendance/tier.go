package attendance

import (
	"time"

	"github.com/sankalp-sachan/ATTENDLY/internal/models"
)

// WarningMargin is the width of the near-miss band below the target.
const WarningMargin = 5

// Classify maps a percentage to a tier for the given target.
func Classify(percentage float64, target int) models.Tier {
	t := float64(target)
	switch {
	case percentage >= t:
		return models.TierOK
	case percentage >= t-WarningMargin:
		return models.TierWarning
	default:
		return models.TierCritical
	}
}

// BelowTarget is the binary gate used for alerts. Warning and critical are
// treated alike.
func BelowTarget(stats models.AttendanceStats, target int) bool {
	return stats.Percentage < float64(target)
}

// Summary pairs a class with its computed stats and tier.
type Summary struct {
	Class models.ClassRecord
	Stats models.AttendanceStats
	Tier  models.Tier
}

// Summarize computes stats and tier for every class as of asOf.
func Summarize(classes []models.ClassRecord, asOf time.Time) []Summary {
	out := make([]Summary, 0, len(classes))
	for _, class := range classes {
		stats := ComputeStats(class, asOf)
		out = append(out, Summary{Class: class, Stats: stats, Tier: Classify(stats.Percentage, class.Target())})
	}
	return out
}

// Averages returns the mean percentage and mean target over classes that have
// at least one working day. ok is false when no class qualifies.
func Averages(summaries []Summary) (percentage, target float64, ok bool) {
	var n int
	for _, s := range summaries {
		if s.Stats.TotalWorkingDays == 0 {
			continue
		}
		percentage += s.Stats.Percentage
		target += float64(s.Class.Target())
		n++
	}
	if n == 0 {
		return 0, 0, false
	}
	return Round2(percentage / float64(n)), Round2(target / float64(n)), true
}

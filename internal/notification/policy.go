package notification

import (
	"fmt"
	"time"

	"github.com/sankalp-sachan/ATTENDLY/internal/attendance"
	"github.com/sankalp-sachan/ATTENDLY/internal/models"
)

// Policy holds the daily slot configuration.
type Policy struct {
	MorningReminder TimeOfDay
	EveningReminder TimeOfDay
	Motivation      Window
	Seed            string
}

// DefaultPolicy returns 10:00 and 17:00 reminders and an 08:00-20:00 motivation window.
func DefaultPolicy() Policy {
	return Policy{
		MorningReminder: TimeOfDay{Hour: 10},
		EveningReminder: TimeOfDay{Hour: 17},
		Motivation:      Window{Start: TimeOfDay{Hour: 8}, End: TimeOfDay{Hour: 20}},
		Seed:            "attendly",
	}
}

// NewPolicy parses HH:MM settings into a policy.
func NewPolicy(morning, evening, motivationStart, motivationEnd, seed string) (Policy, error) {
	var (
		p   Policy
		err error
	)
	if p.MorningReminder, err = ParseTimeOfDay(morning); err != nil {
		return Policy{}, fmt.Errorf("morning reminder: %w", err)
	}
	if p.EveningReminder, err = ParseTimeOfDay(evening); err != nil {
		return Policy{}, fmt.Errorf("evening reminder: %w", err)
	}
	if p.Motivation.Start, err = ParseTimeOfDay(motivationStart); err != nil {
		return Policy{}, fmt.Errorf("motivation start: %w", err)
	}
	if p.Motivation.End, err = ParseTimeOfDay(motivationEnd); err != nil {
		return Policy{}, fmt.Errorf("motivation end: %w", err)
	}
	if !p.Motivation.Start.Before(p.Motivation.End) {
		return Policy{}, fmt.Errorf("motivation window %s-%s is empty", p.Motivation.Start, p.Motivation.End)
	}
	p.Seed = seed
	return p, nil
}

// Plan lists the notifications due for one tick. Every entry is evaluated
// against the same Date.
type Plan struct {
	UserID     string
	Date       string
	RandomSlot TimeOfDay
	Due        []models.NotificationMessage
}

// Empty reports whether nothing is due.
func (p Plan) Empty() bool {
	return len(p.Due) == 0
}

// Stamp returns state with the day's random slot persisted.
func (p Plan) Stamp(state models.SchedulerState) models.SchedulerState {
	out := state.Clone()
	out.UserID = p.UserID
	out.RandomSlotDate = p.Date
	out.RandomSlotTime = p.RandomSlot.String()
	return out
}

// Reserve returns state with every due message recorded as sent.
func (p Plan) Reserve(state models.SchedulerState) models.SchedulerState {
	for _, n := range p.Due {
		state = state.Record(n)
	}
	return state
}

// RandomSlot returns the motivation time for the state's user on date, reusing
// the time already stored for that date.
func (p Policy) RandomSlot(state models.SchedulerState, date string) TimeOfDay {
	if state.RandomSlotDate == date {
		if t, err := ParseTimeOfDay(state.RandomSlotTime); err == nil {
			return t
		}
	}
	return DailyRandomSlot(state.UserID, date, p.Seed, p.Motivation)
}

// Evaluate returns every notification due at now. now must already be in the
// user's time zone; the calendar date of now is "today" for all checks.
func (p Policy) Evaluate(now time.Time, classes []models.ClassRecord, state models.SchedulerState) Plan {
	plan := p.newPlan(now, state)
	summaries := attendance.Summarize(classes, now)

	for _, s := range summaries {
		if msg, ok := p.classAlert(now, plan.Date, s, state); ok {
			plan.Due = append(plan.Due, msg)
		}
	}

	for _, slot := range []struct {
		slot models.Slot
		at   TimeOfDay
	}{
		{models.SlotMorningReminder, p.MorningReminder},
		{models.SlotEveningReminder, p.EveningReminder},
	} {
		if !slot.at.ReachedBy(now) || state.SentOn(slot.slot, "") == plan.Date {
			continue
		}
		title, body := ReminderMessage(slot.slot)
		plan.Due = append(plan.Due, p.message(now, plan, slot.slot, title, body))
	}

	if plan.RandomSlot.ReachedBy(now) && state.MotivationDate != plan.Date {
		title, body := QuoteMessage(now)
		if avg, target, ok := attendance.Averages(summaries); ok && avg < target {
			title, body = UrgencyMessage(avg, target)
		}
		plan.Due = append(plan.Due, p.message(now, plan, models.SlotMotivation, title, body))
	}

	return plan
}

// EvaluateClass runs only the below-target check for one class. It is used
// right after an attendance mutation.
func (p Policy) EvaluateClass(now time.Time, record models.ClassRecord, state models.SchedulerState) Plan {
	plan := p.newPlan(now, state)
	stats := attendance.ComputeStats(record, now)
	summary := attendance.Summary{Class: record, Stats: stats, Tier: attendance.Classify(stats.Percentage, record.Target())}
	if msg, ok := p.classAlert(now, plan.Date, summary, state); ok {
		plan.Due = append(plan.Due, msg)
	}
	return plan
}

func (p Policy) newPlan(now time.Time, state models.SchedulerState) Plan {
	date := attendance.FormatDate(now)
	return Plan{UserID: state.UserID, Date: date, RandomSlot: p.RandomSlot(state, date)}
}

func (p Policy) classAlert(now time.Time, date string, s attendance.Summary, state models.SchedulerState) (models.NotificationMessage, bool) {
	if s.Class.ID == "" || s.Stats.TotalWorkingDays == 0 {
		return models.NotificationMessage{}, false
	}
	if !attendance.BelowTarget(s.Stats, s.Class.Target()) || state.SentOn(models.SlotClassAlert, s.Class.ID) == date {
		return models.NotificationMessage{}, false
	}
	title, body := AlertMessage(s.Class.Name, s.Stats.Percentage, s.Class.Target())
	return models.NotificationMessage{
		UserID:    state.UserID,
		Slot:      models.SlotClassAlert,
		ClassID:   s.Class.ID,
		Date:      date,
		Title:     title,
		Body:      body,
		CreatedAt: now.UTC(),
	}, true
}

func (p Policy) message(now time.Time, plan Plan, slot models.Slot, title, body string) models.NotificationMessage {
	return models.NotificationMessage{
		UserID:    plan.UserID,
		Slot:      slot,
		Date:      plan.Date,
		Title:     title,
		Body:      body,
		CreatedAt: now.UTC(),
	}
}

package models

import "time"

// Slot names an at-most-once-per-day notification opportunity.
type Slot string

const (
	SlotClassAlert      Slot = "class_alert"
	SlotMorningReminder Slot = "morning_reminder"
	SlotEveningReminder Slot = "evening_reminder"
	SlotMotivation      Slot = "motivation"
)

// Valid returns true when the slot is a known value.
func (s Slot) Valid() bool {
	switch s {
	case SlotClassAlert, SlotMorningReminder, SlotEveningReminder, SlotMotivation:
		return true
	default:
		return false
	}
}

// SchedulerState is the persisted per-user dedup record consulted on every tick.
// Dates are YYYY-MM-DD strings in the session time zone; ClassAlerts maps a class
// id to the last date a below-target alert was sent for it.
type SchedulerState struct {
	UserID              string            `db:"user_id" json:"user_id"`
	MorningReminderDate string            `db:"last_morning_reminder_date" json:"last_morning_reminder_date,omitempty"`
	EveningReminderDate string            `db:"last_evening_reminder_date" json:"last_evening_reminder_date,omitempty"`
	MotivationDate      string            `db:"last_motivation_date" json:"last_motivation_date,omitempty"`
	RandomSlotDate      string            `db:"last_random_slot_date" json:"last_random_slot_date,omitempty"`
	RandomSlotTime      string            `db:"last_random_slot_time" json:"last_random_slot_time,omitempty"`
	ClassAlerts         map[string]string `db:"-" json:"class_alerts,omitempty"`
	UpdatedAt           time.Time         `db:"updated_at" json:"updated_at"`
}

// ClassAlertState is one persisted row of the per-class alert dedup table.
type ClassAlertState struct {
	UserID               string `db:"user_id"`
	ClassID              string `db:"class_id"`
	LastNotificationDate string `db:"last_notification_date"`
}

// NotificationMessage is a single notification handed to a Notifier.
type NotificationMessage struct {
	UserID    string    `json:"user_id"`
	Recipient string    `json:"recipient,omitempty"`
	Slot      Slot      `json:"slot"`
	ClassID   string    `json:"class_id,omitempty"`
	Date      string    `json:"date"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// InboxNotification is a notification stored in the in-app inbox.
type InboxNotification struct {
	ID        string     `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"-"`
	Slot      Slot       `db:"slot" json:"slot"`
	ClassID   *string    `db:"class_id" json:"class_id,omitempty"`
	Title     string     `db:"title" json:"title"`
	Body      string     `db:"body" json:"body"`
	ReadAt    *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// Session describes a signed-in user whose notification ticker is running.
type Session struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	FullName  string    `json:"full_name,omitempty"`
	TimeZone  string    `json:"time_zone"`
	StartedAt time.Time `json:"started_at"`
}

// Location resolves the session time zone, falling back to the provided default.
func (s Session) Location(fallback *time.Location) *time.Location {
	if s.TimeZone != "" {
		if loc, err := time.LoadLocation(s.TimeZone); err == nil {
			return loc
		}
	}
	if fallback == nil {
		return time.UTC
	}
	return fallback
}

// TickResult summarises a single scheduler tick.
type TickResult struct {
	UserID    string                `json:"user_id"`
	Date      string                `json:"date"`
	Delivered []NotificationMessage `json:"delivered"`
	Failed    []NotificationMessage `json:"failed,omitempty"`
	Shared    bool                  `json:"shared,omitempty"`
}

// SystemMetrics represents process level metrics captured from instrumentation.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	NotificationsSent        uint64    `json:"notifications_sent"`
	NotificationsFailed      uint64    `json:"notifications_failed"`
	TicksTotal               uint64    `json:"ticks_total"`
	ActiveSessions           int64     `json:"active_sessions"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// Clone returns a copy of the state that shares no map with the receiver.
func (s SchedulerState) Clone() SchedulerState {
	out := s
	out.ClassAlerts = make(map[string]string, len(s.ClassAlerts))
	for k, v := range s.ClassAlerts {
		out.ClassAlerts[k] = v
	}
	return out
}

// SentOn returns the last date the slot fired. classID only applies to class alerts.
func (s SchedulerState) SentOn(slot Slot, classID string) string {
	switch slot {
	case SlotClassAlert:
		return s.ClassAlerts[classID]
	case SlotMorningReminder:
		return s.MorningReminderDate
	case SlotEveningReminder:
		return s.EveningReminderDate
	case SlotMotivation:
		return s.MotivationDate
	default:
		return ""
	}
}

// Record returns a new state with n marked as sent on n.Date.
func (s SchedulerState) Record(n NotificationMessage) SchedulerState {
	out := s.Clone()
	switch n.Slot {
	case SlotClassAlert:
		out.ClassAlerts[n.ClassID] = n.Date
	case SlotMorningReminder:
		out.MorningReminderDate = n.Date
	case SlotEveningReminder:
		out.EveningReminderDate = n.Date
	case SlotMotivation:
		out.MotivationDate = n.Date
	}
	return out
}

// Release returns a new state with n's slot restored to its value in prev. A
// class alert absent from prev is kept with an empty date so stores can drop it.
func (s SchedulerState) Release(n NotificationMessage, prev SchedulerState) SchedulerState {
	out := s.Clone()
	switch n.Slot {
	case SlotClassAlert:
		out.ClassAlerts[n.ClassID] = prev.ClassAlerts[n.ClassID]
	case SlotMorningReminder:
		out.MorningReminderDate = prev.MorningReminderDate
	case SlotEveningReminder:
		out.EveningReminderDate = prev.EveningReminderDate
	case SlotMotivation:
		out.MotivationDate = prev.MotivationDate
	}
	return out
}

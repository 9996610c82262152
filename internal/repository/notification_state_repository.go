package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sankalp-sachan/ATTENDLY/internal/models"
)

// NotificationStateRepository persists the scheduler dedup state per user.
type NotificationStateRepository struct {
	db *sqlx.DB
}

// NewNotificationStateRepository constructs the repository.
func NewNotificationStateRepository(db *sqlx.DB) *NotificationStateRepository {
	return &NotificationStateRepository{db: db}
}

// Get loads the user's state. A user without a stored row gets an empty state.
func (r *NotificationStateRepository) Get(ctx context.Context, userID string) (models.SchedulerState, error) {
	const query = `SELECT user_id, last_morning_reminder_date, last_evening_reminder_date, last_motivation_date, last_random_slot_date, last_random_slot_time, updated_at FROM notification_state WHERE user_id = $1`
	var state models.SchedulerState
	if err := r.db.GetContext(ctx, &state, query, userID); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return models.SchedulerState{}, fmt.Errorf("get notification state: %w", err)
		}
		state = models.SchedulerState{UserID: userID}
	}

	var alerts []models.ClassAlertState
	if err := r.db.SelectContext(ctx, &alerts, `SELECT user_id, class_id, last_notification_date FROM class_alert_state WHERE user_id = $1`, userID); err != nil {
		return models.SchedulerState{}, fmt.Errorf("get class alert state: %w", err)
	}
	state.ClassAlerts = make(map[string]string, len(alerts))
	for _, a := range alerts {
		state.ClassAlerts[a.ClassID] = a.LastNotificationDate
	}
	return state, nil
}

// Save upserts the state in a single transaction. Alerts for classes that no
// longer exist are dropped, and an alert with an empty date is deleted.
func (r *NotificationStateRepository) Save(ctx context.Context, state models.SchedulerState) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save notification state: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	state.UpdatedAt = time.Now().UTC()
	const upsert = `INSERT INTO notification_state (user_id, last_morning_reminder_date, last_evening_reminder_date, last_motivation_date, last_random_slot_date, last_random_slot_time, updated_at)
VALUES (:user_id, :last_morning_reminder_date, :last_evening_reminder_date, :last_motivation_date, :last_random_slot_date, :last_random_slot_time, :updated_at)
ON CONFLICT (user_id) DO UPDATE SET
	last_morning_reminder_date = EXCLUDED.last_morning_reminder_date,
	last_evening_reminder_date = EXCLUDED.last_evening_reminder_date,
	last_motivation_date = EXCLUDED.last_motivation_date,
	last_random_slot_date = EXCLUDED.last_random_slot_date,
	last_random_slot_time = EXCLUDED.last_random_slot_time,
	updated_at = EXCLUDED.updated_at`
	if _, err := tx.NamedExecContext(ctx, upsert, state); err != nil {
		return fmt.Errorf("save notification state: %w", err)
	}

	const alertUpsert = `INSERT INTO class_alert_state (user_id, class_id, last_notification_date)
SELECT $1::text, $2::uuid, $3::text WHERE EXISTS (SELECT 1 FROM classes WHERE id = $2::uuid)
ON CONFLICT (user_id, class_id) DO UPDATE SET last_notification_date = EXCLUDED.last_notification_date`
	for classID, date := range state.ClassAlerts {
		if date == "" {
			if _, err := tx.ExecContext(ctx, `DELETE FROM class_alert_state WHERE user_id = $1 AND class_id = $2::uuid`, state.UserID, classID); err != nil {
				return fmt.Errorf("clear class alert state %s: %w", classID, err)
			}
			continue
		}
		if _, err := tx.ExecContext(ctx, alertUpsert, state.UserID, classID, date); err != nil {
			return fmt.Errorf("save class alert state %s: %w", classID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit notification state: %w", err)
	}
	return nil
}

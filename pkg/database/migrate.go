package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is applied in order; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS classes (
	id UUID PRIMARY KEY,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	start_date DATE NOT NULL,
	target_percentage INTEGER NOT NULL DEFAULT 75 CHECK (target_percentage BETWEEN 50 AND 100),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE INDEX IF NOT EXISTS idx_classes_user ON classes (user_id)`,
	`CREATE TABLE IF NOT EXISTS class_attendance (
	class_id UUID NOT NULL REFERENCES classes (id) ON DELETE CASCADE,
	date DATE NOT NULL,
	status TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (class_id, date)
)`,
	`CREATE TABLE IF NOT EXISTS notification_state (
	user_id TEXT PRIMARY KEY,
	last_morning_reminder_date TEXT NOT NULL DEFAULT '',
	last_evening_reminder_date TEXT NOT NULL DEFAULT '',
	last_motivation_date TEXT NOT NULL DEFAULT '',
	last_random_slot_date TEXT NOT NULL DEFAULT '',
	last_random_slot_time TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE TABLE IF NOT EXISTS class_alert_state (
	user_id TEXT NOT NULL,
	class_id UUID NOT NULL REFERENCES classes (id) ON DELETE CASCADE,
	last_notification_date TEXT NOT NULL,
	PRIMARY KEY (user_id, class_id)
)`,
	`CREATE TABLE IF NOT EXISTS notifications (
	id UUID PRIMARY KEY,
	user_id TEXT NOT NULL,
	slot TEXT NOT NULL,
	class_id UUID NULL,
	title TEXT NOT NULL,
	body TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	read_at TIMESTAMPTZ NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications (user_id, created_at DESC)`,
}

// Migrate creates the tables used by the service when they are missing.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for i, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}

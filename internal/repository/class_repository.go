package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sankalp-sachan/ATTENDLY/internal/models"
)

const classColumns = "id, user_id, name, start_date, target_percentage, created_at, updated_at"

// ClassRepository manages persistence for classes and their attendance logs.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a new class repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// List returns a page of the user's classes, attendance included.
func (r *ClassRepository) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassRecord, int, error) {
	base := "FROM classes WHERE user_id = $1"
	args := []interface{}{filter.UserID}

	if filter.Search != "" {
		base += fmt.Sprintf(" AND LOWER(name) LIKE $%d", len(args)+1)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at ASC, id ASC LIMIT %d OFFSET %d", classColumns, base, size, offset)
	var classes []models.ClassRecord
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}

	if err := r.loadAttendance(ctx, classes); err != nil {
		return nil, 0, err
	}
	return classes, total, nil
}

// ListByUser returns every class owned by the user, attendance included.
func (r *ClassRepository) ListByUser(ctx context.Context, userID string) ([]models.ClassRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM classes WHERE user_id = $1 ORDER BY created_at ASC, id ASC", classColumns)
	var classes []models.ClassRecord
	if err := r.db.SelectContext(ctx, &classes, query, userID); err != nil {
		return nil, fmt.Errorf("list user classes: %w", err)
	}
	if err := r.loadAttendance(ctx, classes); err != nil {
		return nil, err
	}
	return classes, nil
}

// FindByID returns the user's class by id. sql.ErrNoRows is returned unwrapped
// when the class does not exist or belongs to someone else.
func (r *ClassRepository) FindByID(ctx context.Context, userID, id string) (*models.ClassRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM classes WHERE id = $1 AND user_id = $2", classColumns)
	var class models.ClassRecord
	if err := r.db.GetContext(ctx, &class, query, id, userID); err != nil {
		return nil, err
	}
	classes := []models.ClassRecord{class}
	if err := r.loadAttendance(ctx, classes); err != nil {
		return nil, err
	}
	return &classes[0], nil
}

// Create persists a class record.
func (r *ClassRepository) Create(ctx context.Context, class *models.ClassRecord) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if class.CreatedAt.IsZero() {
		class.CreatedAt = now
	}
	class.UpdatedAt = now
	if class.Attendance == nil {
		class.Attendance = map[string]models.AttendanceStatus{}
	}

	const query = `INSERT INTO classes (id, user_id, name, start_date, target_percentage, created_at, updated_at) VALUES (:id, :user_id, :name, :start_date, :target_percentage, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Update modifies the mutable fields of a class record.
func (r *ClassRepository) Update(ctx context.Context, class *models.ClassRecord) error {
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classes SET name = :name, start_date = :start_date, target_percentage = :target_percentage, updated_at = :updated_at WHERE id = :id AND user_id = :user_id`
	res, err := r.db.NamedExecContext(ctx, query, class)
	if err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return expectAffected(res)
}

// Delete removes a class record and, through the foreign keys, its attendance.
func (r *ClassRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM classes WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	return expectAffected(res)
}

// SetAttendance records status for a date, replacing any previous status.
func (r *ClassRepository) SetAttendance(ctx context.Context, classID string, date time.Time, status models.AttendanceStatus) error {
	const query = `INSERT INTO class_attendance (class_id, date, status, updated_at) VALUES ($1, $2, $3, $4)
ON CONFLICT (class_id, date) DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, classID, date, string(status), time.Now().UTC()); err != nil {
		return fmt.Errorf("set attendance: %w", err)
	}
	return r.touch(ctx, classID)
}

// ClearAttendance removes the entry for a date. Clearing an unmarked date is a no-op.
func (r *ClassRepository) ClearAttendance(ctx context.Context, classID string, date time.Time) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM class_attendance WHERE class_id = $1 AND date = $2`, classID, date); err != nil {
		return fmt.Errorf("clear attendance: %w", err)
	}
	return r.touch(ctx, classID)
}

// PruneAttendanceBefore deletes entries dated before start.
func (r *ClassRepository) PruneAttendanceBefore(ctx context.Context, classID string, start time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM class_attendance WHERE class_id = $1 AND date < $2`, classID, start)
	if err != nil {
		return 0, fmt.Errorf("prune attendance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune attendance rows affected: %w", err)
	}
	return n, nil
}

func (r *ClassRepository) touch(ctx context.Context, classID string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE classes SET updated_at = $2 WHERE id = $1`, classID, time.Now().UTC()); err != nil {
		return fmt.Errorf("touch class: %w", err)
	}
	return nil
}

func (r *ClassRepository) loadAttendance(ctx context.Context, classes []models.ClassRecord) error {
	if len(classes) == 0 {
		return nil
	}
	ids := make([]string, len(classes))
	index := make(map[string]int, len(classes))
	for i := range classes {
		ids[i] = classes[i].ID
		index[classes[i].ID] = i
		classes[i].Attendance = map[string]models.AttendanceStatus{}
	}

	const query = `SELECT class_id, date, status, updated_at FROM class_attendance WHERE class_id = ANY($1)`
	var entries []models.AttendanceEntry
	if err := r.db.SelectContext(ctx, &entries, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("load attendance: %w", err)
	}
	for _, e := range entries {
		if i, ok := index[e.ClassID]; ok {
			classes[i].Attendance[e.DateKey()] = e.Status
		}
	}
	return nil
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

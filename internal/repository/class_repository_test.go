package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sankalp-sachan/ATTENDLY/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		_ = sqlxDB.Close()
	}
	return sqlxDB, mock, cleanup
}

var classRowColumns = []string{"id", "user_id", "name", "start_date", "target_percentage", "created_at", "updated_at"}

func TestClassRepositoryListLoadsAttendance(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Now()
	mock.ExpectQuery(`SELECT id, user_id, name, start_date, target_percentage, created_at, updated_at FROM classes WHERE user_id = \$1 AND LOWER\(name\) LIKE \$2 ORDER BY created_at ASC, id ASC LIMIT 10 OFFSET 10`).
		WithArgs("user-1", "%phy%").
		WillReturnRows(sqlmock.NewRows(classRowColumns).
			AddRow("class-1", "user-1", "Physics", start, 75, now, now).
			AddRow("class-2", "user-1", "Physical Education", start, 60, now, now))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM classes WHERE user_id = \$1`).
		WithArgs("user-1", "%phy%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery(`SELECT class_id, date, status, updated_at FROM class_attendance WHERE class_id = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"class_id", "date", "status", "updated_at"}).
			AddRow("class-1", time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), "present", now).
			AddRow("class-1", time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC), "absent", now).
			AddRow("class-2", time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), "holiday", now))

	classes, total, err := repo.List(context.Background(), models.ClassFilter{UserID: "user-1", Search: "Phy", Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 12, total)
	require.Len(t, classes, 2)
	assert.Equal(t, map[string]models.AttendanceStatus{
		"2025-01-02": models.AttendanceStatusPresent,
		"2025-01-03": models.AttendanceStatusAbsent,
	}, classes[0].Attendance)
	assert.Equal(t, models.AttendanceStatusHoliday, classes[1].Attendance["2025-01-02"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryListByUserEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectQuery(`FROM classes WHERE user_id = \$1`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(classRowColumns))

	classes, err := repo.ListByUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, classes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectQuery(`FROM classes WHERE id = \$1 AND user_id = \$2`).
		WithArgs("class-9", "user-1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "user-1", "class-9")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestClassRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectExec(`INSERT INTO classes`).WillReturnResult(sqlmock.NewResult(1, 1))

	class := &models.ClassRecord{UserID: "user-1", Name: "Physics", StartDate: time.Now(), TargetPercentage: 75}
	require.NoError(t, repo.Create(context.Background(), class))
	assert.NotEmpty(t, class.ID)
	assert.NotNil(t, class.Attendance)
	assert.False(t, class.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectExec(`DELETE FROM classes WHERE id = \$1 AND user_id = \$2`).
		WithArgs("class-1", "user-2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "user-2", "class-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestClassRepositorySetAndClearAttendance(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)
	day := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO class_attendance .* ON CONFLICT \(class_id, date\) DO UPDATE`).
		WithArgs("class-1", day, "present", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`UPDATE classes SET updated_at`).WithArgs("class-1", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM class_attendance WHERE class_id = \$1 AND date = \$2`).
		WithArgs("class-1", day).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE classes SET updated_at`).WithArgs("class-1", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetAttendance(context.Background(), "class-1", day, models.AttendanceStatusPresent))
	require.NoError(t, repo.ClearAttendance(context.Background(), "class-1", day))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryPruneAttendanceBefore(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)
	start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`DELETE FROM class_attendance WHERE class_id = \$1 AND date < \$2`).
		WithArgs("class-1", start).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.PruneAttendanceBefore(context.Background(), "class-1", start)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

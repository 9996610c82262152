package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sankalp-sachan/ATTENDLY/internal/models"
	appErrors "github.com/sankalp-sachan/ATTENDLY/pkg/errors"
)

func dashboardFixture() []models.ClassRecord {
	p := physics()
	p.Attendance = map[string]models.AttendanceStatus{
		"2025-01-02": models.AttendanceStatusPresent,
		"2025-01-03": models.AttendanceStatusPresent,
		"2025-01-06": models.AttendanceStatusAbsent,
		"2025-01-07": models.AttendanceStatusHoliday,
		"2025-02-01": models.AttendanceStatusAbsent, // after asOf
	}
	maths := models.ClassRecord{ID: "class-2", UserID: alice.ID, Name: "Maths", StartDate: day("2025-01-01"), TargetPercentage: 60}
	return []models.ClassRecord{p, maths}
}

func TestDashboardServiceComposesAndCaches(t *testing.T) {
	repo := newFakeClassRepo(dashboardFixture()...)
	cacheRepo := &stubCacheRepo{}
	states := &fakeStateStore{state: models.SchedulerState{ClassAlerts: map[string]string{"class-1": "2025-01-09"}}}
	svc := NewDashboardService(DashboardServiceParams{
		Classes: repo,
		States:  states,
		Inbox:   &fakeInbox{unread: 3},
		Cache:   NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true),
		Logger:  zap.NewNop(),
	})
	asOf := time.Date(2025, 1, 10, 18, 30, 0, 0, time.UTC)

	board, hit, err := svc.Dashboard(context.Background(), alice, asOf)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "2025-01-10", board.AsOf)
	require.Len(t, board.Classes, 2)

	phys := board.Classes[0]
	assert.Equal(t, "class-1", phys.ClassID)
	assert.Equal(t, "2025-01-01", phys.StartDate)
	assert.Equal(t, models.AttendanceStats{TotalWorkingDays: 3, PresentCount: 2, AbsentCount: 1, HolidayCount: 1, Percentage: 66.67}, phys.Stats)
	assert.Equal(t, models.TierCritical, phys.Tier)
	assert.True(t, phys.BelowTarget)
	assert.Equal(t, "2025-01-09", phys.LastAlertDate)

	maths := board.Classes[1]
	assert.Zero(t, maths.Stats.TotalWorkingDays)
	assert.False(t, maths.BelowTarget)

	assert.Equal(t, 1, board.Overall.TrackedClasses)
	assert.Equal(t, 66.67, board.Overall.AveragePercentage)
	assert.Equal(t, 75.0, board.Overall.AverageTarget)
	assert.Equal(t, 1, board.Overall.ClassesBelowTarget)
	assert.Equal(t, 2, board.Overall.TotalPresent)
	assert.Equal(t, 3, board.Overall.TotalWorkingDays)
	assert.Equal(t, 3, board.UnreadNotifications)

	repo.listErr = errBoom
	cached, hit, err := svc.Dashboard(context.Background(), alice, asOf)
	require.NoError(t, err, "second call is served from cache")
	assert.True(t, hit)
	assert.Equal(t, board.Overall, cached.Overall)
}

func TestDashboardServiceStateFailureIsNotFatal(t *testing.T) {
	svc := NewDashboardService(DashboardServiceParams{
		Classes: newFakeClassRepo(dashboardFixture()...),
		States:  &fakeStateStore{getErr: errBoom},
	})

	board, _, err := svc.Dashboard(context.Background(), alice, time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, board.Classes[0].LastAlertDate)
}

func TestDashboardServiceClassStats(t *testing.T) {
	svc := NewDashboardService(DashboardServiceParams{Classes: newFakeClassRepo(dashboardFixture()...)})

	stats, err := svc.ClassStats(context.Background(), alice, "class-1", time.Date(2025, 1, 3, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 100.0, stats.Stats.Percentage)
	assert.Equal(t, models.TierOK, stats.Tier)

	_, err = svc.ClassStats(context.Background(), alice, "nope", time.Now())
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestDashboardServiceEmpty(t *testing.T) {
	svc := NewDashboardService(DashboardServiceParams{Classes: newFakeClassRepo()})

	board, _, err := svc.Dashboard(context.Background(), alice, time.Now())
	require.NoError(t, err)
	assert.Empty(t, board.Classes)
	assert.Zero(t, board.Overall.AveragePercentage)
}

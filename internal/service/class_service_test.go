package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sankalp-sachan/ATTENDLY/internal/models"
	appErrors "github.com/sankalp-sachan/ATTENDLY/pkg/errors"
)

type fakeChecks struct {
	scheduled []string
}

func (f *fakeChecks) ScheduleClassCheck(userID, classID string) bool {
	f.scheduled = append(f.scheduled, userID+"/"+classID)
	return true
}

var alice = models.User{ID: "user-1", Role: models.RoleUser, FullName: "Alice"}

func newClassService(t *testing.T, classes ...models.ClassRecord) (*ClassService, *fakeClassRepo, *stubCacheRepo, *fakeChecks) {
	t.Helper()
	repo := newFakeClassRepo(classes...)
	cacheRepo := &stubCacheRepo{}
	cache := NewCacheService(cacheRepo, nil, 0, zap.NewNop(), true)
	checks := &fakeChecks{}
	return NewClassService(repo, cache, checks, nil, zap.NewNop(), 0), repo, cacheRepo, checks
}

func physics() models.ClassRecord {
	return models.ClassRecord{ID: "class-1", UserID: alice.ID, Name: "Physics", StartDate: day("2025-01-01"), TargetPercentage: 75}
}

func TestClassServiceCreateAppliesDefaultTarget(t *testing.T) {
	svc, _, cacheRepo, _ := newClassService(t)

	class, err := svc.Create(context.Background(), alice, CreateClassRequest{Name: "  Chemistry ", StartDate: "2025-02-03"})
	require.NoError(t, err)
	assert.Equal(t, "Chemistry", class.Name)
	assert.Equal(t, models.DefaultTargetPercentage, class.TargetPercentage)
	assert.Equal(t, day("2025-02-03"), class.StartDate)
	assert.Equal(t, alice.ID, class.UserID)
	assert.Equal(t, []string{UserCachePattern(alice.ID)}, cacheRepo.invalidated)
}

func TestClassServiceCreateValidation(t *testing.T) {
	svc, _, _, _ := newClassService(t)
	low, high := 49, 101

	cases := map[string]CreateClassRequest{
		"missing name":    {StartDate: "2025-01-01"},
		"bad date":        {Name: "Physics", StartDate: "2025-13-01"},
		"target too low":  {Name: "Physics", StartDate: "2025-01-01", TargetPercentage: &low},
		"target too high": {Name: "Physics", StartDate: "2025-01-01", TargetPercentage: &high},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), alice, req)
			require.Error(t, err)
			assert.ErrorIs(t, err, appErrors.ErrValidation)
		})
	}
}

func TestClassServiceGetScopedToUser(t *testing.T) {
	svc, _, _, _ := newClassService(t, physics())

	_, err := svc.Get(context.Background(), models.User{ID: "user-2"}, "class-1")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	class, err := svc.Get(context.Background(), alice, "class-1")
	require.NoError(t, err)
	assert.Equal(t, "Physics", class.Name)
}

func TestClassServiceListPagination(t *testing.T) {
	svc, _, _, _ := newClassService(t, physics())

	classes, pagination, err := svc.List(context.Background(), alice, models.ClassFilter{PageSize: 500})
	require.NoError(t, err)
	assert.Len(t, classes, 1)
	assert.Equal(t, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, pagination)
}

func TestClassServiceMarkAttendance(t *testing.T) {
	svc, repo, cacheRepo, checks := newClassService(t, physics())
	ctx := context.Background()

	class, err := svc.MarkAttendance(ctx, alice, "class-1", MarkAttendanceRequest{Date: "2025-01-02", Status: "PRESENT"})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusPresent, class.Attendance["2025-01-02"])
	assert.Equal(t, models.AttendanceStatusPresent, repo.classes["class-1"].Attendance["2025-01-02"])
	assert.Equal(t, []string{"user-1/class-1"}, checks.scheduled)
	assert.NotEmpty(t, cacheRepo.invalidated)

	_, err = svc.MarkAttendance(ctx, alice, "class-1", MarkAttendanceRequest{Date: "2025-01-03", Status: "holiday"})
	require.NoError(t, err)
	assert.Len(t, checks.scheduled, 1, "holiday marks do not trigger a check")

	class, err = svc.MarkAttendance(ctx, alice, "class-1", MarkAttendanceRequest{Date: "2025-01-02"})
	require.NoError(t, err)
	_, marked := class.Attendance["2025-01-02"]
	assert.False(t, marked)
	assert.Len(t, checks.scheduled, 2)
}

func TestClassServiceMarkAttendanceRejectsInvalidInput(t *testing.T) {
	svc, _, _, checks := newClassService(t, physics())
	ctx := context.Background()

	_, err := svc.MarkAttendance(ctx, alice, "class-1", MarkAttendanceRequest{Date: "2024-12-31", Status: "present"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.MarkAttendance(ctx, alice, "class-1", MarkAttendanceRequest{Date: "2025-01-05", Status: "late"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.MarkAttendance(ctx, alice, "class-1", MarkAttendanceRequest{Date: "05/01/2025", Status: "present"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.MarkAttendance(ctx, alice, "missing", MarkAttendanceRequest{Date: "2025-01-05", Status: "present"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Empty(t, checks.scheduled)
}

func TestClassServiceUpdatePrunesBeforeNewStart(t *testing.T) {
	record := physics()
	record.Attendance = map[string]models.AttendanceStatus{
		"2025-01-02": models.AttendanceStatusAbsent,
		"2025-01-10": models.AttendanceStatusPresent,
	}
	svc, repo, _, _ := newClassService(t, record)
	start := "2025-01-05"
	target := 80

	class, err := svc.Update(context.Background(), alice, "class-1", UpdateClassRequest{StartDate: &start, TargetPercentage: &target})
	require.NoError(t, err)
	assert.Equal(t, 80, class.TargetPercentage)
	assert.Equal(t, map[string]models.AttendanceStatus{"2025-01-10": models.AttendanceStatusPresent}, class.Attendance)
	assert.Equal(t, day("2025-01-05"), repo.pruned["class-1"])
}

func TestClassServiceUpdateEarlierStartKeepsAttendance(t *testing.T) {
	record := physics()
	record.Attendance = map[string]models.AttendanceStatus{"2025-01-02": models.AttendanceStatusAbsent}
	svc, repo, _, _ := newClassService(t, record)
	start := "2024-12-01"

	class, err := svc.Update(context.Background(), alice, "class-1", UpdateClassRequest{StartDate: &start})
	require.NoError(t, err)
	assert.Len(t, class.Attendance, 1)
	assert.Empty(t, repo.pruned)
}

func TestClassServiceDelete(t *testing.T) {
	svc, repo, _, _ := newClassService(t, physics())

	assert.ErrorIs(t, svc.Delete(context.Background(), models.User{ID: "user-2"}, "class-1"), appErrors.ErrNotFound)
	require.NoError(t, svc.Delete(context.Background(), alice, "class-1"))
	assert.Empty(t, repo.classes)
}

func TestClassServiceListErrorIsInternal(t *testing.T) {
	svc, repo, _, _ := newClassService(t)
	repo.listErr = errBoom

	_, err := svc.ListAll(context.Background(), alice)
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

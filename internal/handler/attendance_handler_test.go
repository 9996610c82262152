package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sankalp-sachan/ATTENDLY/internal/dto"
	"github.com/sankalp-sachan/ATTENDLY/internal/models"
)

func attendanceParams(id, date string) []gin.Param {
	return []gin.Param{{Key: "id", Value: id}, {Key: "date", Value: date}}
}

func TestAttendanceHandlerMark(t *testing.T) {
	srv := &fakeClassSrv{}
	h := NewAttendanceHandler(srv, srv, fixedZones{})
	c, rec := newContext(http.MethodPut, "/classes/class-1/attendance/2025-01-06", map[string]string{"status": "present"}, &testUser, attendanceParams("class-1", "2025-01-06")...)

	h.Mark(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "class-1", srv.lastID)
	assert.Equal(t, "2025-01-06", srv.lastMark.Date)
	assert.Equal(t, "present", srv.lastMark.Status)
}

func TestAttendanceHandlerMarkRequiresStatus(t *testing.T) {
	srv := &fakeClassSrv{}
	h := NewAttendanceHandler(srv, srv, fixedZones{})
	c, rec := newContext(http.MethodPut, "/classes/class-1/attendance/2025-01-06", map[string]string{}, &testUser, attendanceParams("class-1", "2025-01-06")...)

	h.Mark(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, srv.lastID, "service not called")
}

func TestAttendanceHandlerClear(t *testing.T) {
	srv := &fakeClassSrv{}
	h := NewAttendanceHandler(srv, srv, fixedZones{})
	c, rec := newContext(http.MethodDelete, "/classes/class-1/attendance/2025-01-06", nil, &testUser, attendanceParams("class-1", "2025-01-06")...)

	h.Clear(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2025-01-06", srv.lastMark.Date)
	assert.Empty(t, srv.lastMark.Status)
}

func TestAttendanceHandlerStatsAsOf(t *testing.T) {
	srv := &fakeClassSrv{stats: &dto.ClassStats{
		ClassID: "class-1",
		Stats:   models.AttendanceStats{TotalWorkingDays: 3, PresentCount: 2, AbsentCount: 1, Percentage: 66.67},
		Tier:    models.TierCritical,
	}}
	h := NewAttendanceHandler(srv, srv, fixedZones{})
	c, rec := newContext(http.MethodGet, "/classes/class-1/stats?as_of=2025-01-10", nil, &testUser, gin.Param{Key: "id", Value: "class-1"})

	h.Stats(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2025-01-10", srv.lastAsOf.Format("2006-01-02"))
	var stats dto.ClassStats
	decodeData(rec, &stats)
	assert.Equal(t, models.TierCritical, stats.Tier)
	assert.Equal(t, 66.67, stats.Stats.Percentage)
	assert.Equal(t, "2025-01-10", decode(rec).Meta["as_of"])
}

func TestAttendanceHandlerStatsDefaultsToUserZone(t *testing.T) {
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	srv := &fakeClassSrv{stats: &dto.ClassStats{ClassID: "class-1"}}
	h := NewAttendanceHandler(srv, srv, fixedZones{loc: kolkata})
	c, rec := newContext(http.MethodGet, "/classes/class-1/stats", nil, &testUser, gin.Param{Key: "id", Value: "class-1"})

	h.Stats(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, kolkata, srv.lastAsOf.Location())
}

func TestAttendanceHandlerStatsBadDate(t *testing.T) {
	srv := &fakeClassSrv{}
	h := NewAttendanceHandler(srv, srv, fixedZones{})
	c, rec := newContext(http.MethodGet, "/classes/class-1/stats?as_of=10-01-2025", nil, &testUser, gin.Param{Key: "id", Value: "class-1"})

	h.Stats(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

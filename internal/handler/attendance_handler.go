package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sankalp-sachan/ATTENDLY/internal/attendance"
	"github.com/sankalp-sachan/ATTENDLY/internal/dto"
	"github.com/sankalp-sachan/ATTENDLY/internal/models"
	"github.com/sankalp-sachan/ATTENDLY/internal/service"
	appErrors "github.com/sankalp-sachan/ATTENDLY/pkg/errors"
	"github.com/sankalp-sachan/ATTENDLY/pkg/response"
)

type attendanceMarker interface {
	MarkAttendance(ctx context.Context, user models.User, classID string, req service.MarkAttendanceRequest) (*models.ClassRecord, error)
}

type classStatsService interface {
	ClassStats(ctx context.Context, user models.User, classID string, asOf time.Time) (*dto.ClassStats, error)
}

type markAttendancePayload struct {
	Status string `json:"status"`
}

// AttendanceHandler marks dates and reports per-class statistics.
type AttendanceHandler struct {
	marker attendanceMarker
	stats  classStatsService
	zones  zoneResolver
}

// NewAttendanceHandler constructs an attendance handler.
func NewAttendanceHandler(marker attendanceMarker, stats classStatsService, zones zoneResolver) *AttendanceHandler {
	return &AttendanceHandler{marker: marker, stats: stats, zones: zones}
}

// Mark godoc
// @Summary Mark attendance for a date
// @Description Status is one of present, absent or holiday.
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param date path string true "Date (YYYY-MM-DD)"
// @Param payload body markAttendancePayload true "Status"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/attendance/{date} [put]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var payload markAttendancePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if payload.Status == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "status is required"))
		return
	}
	h.apply(c, user, payload.Status)
}

// Clear godoc
// @Summary Clear the attendance mark for a date
// @Tags Attendance
// @Produce json
// @Param id path string true "Class ID"
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/attendance/{date} [delete]
func (h *AttendanceHandler) Clear(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	h.apply(c, user, "")
}

func (h *AttendanceHandler) apply(c *gin.Context, user models.User, status string) {
	class, err := h.marker.MarkAttendance(c.Request.Context(), user, c.Param("id"), service.MarkAttendanceRequest{
		Date:   c.Param("date"),
		Status: status,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// Stats godoc
// @Summary Attendance statistics and tier for a class
// @Tags Attendance
// @Produce json
// @Param id path string true "Class ID"
// @Param as_of query string false "Reference date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/stats [get]
func (h *AttendanceHandler) Stats(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	day, ok := asOf(c, h.zones, user.ID)
	if !ok {
		return
	}
	stats, err := h.stats.ClassStats(c.Request.Context(), user, c.Param("id"), day)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil, map[string]interface{}{"as_of": attendance.FormatDate(day)})
}

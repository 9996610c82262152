package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sankalp-sachan/ATTENDLY/internal/attendance"
	"github.com/sankalp-sachan/ATTENDLY/internal/middleware"
	"github.com/sankalp-sachan/ATTENDLY/internal/models"
	appErrors "github.com/sankalp-sachan/ATTENDLY/pkg/errors"
	"github.com/sankalp-sachan/ATTENDLY/pkg/response"
)

// zoneResolver returns the time zone "today" is computed in for a user.
type zoneResolver interface {
	Location(userID string) *time.Location
}

// currentUser writes a 401 and returns false when the request is anonymous.
func currentUser(c *gin.Context) (models.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.User{}, false
	}
	return user, true
}

// asOf reads the optional as_of=YYYY-MM-DD query, defaulting to now in the
// user's zone.
func asOf(c *gin.Context, zones zoneResolver, userID string) (time.Time, bool) {
	if raw := strings.TrimSpace(c.Query("as_of")); raw != "" {
		day, ok := attendance.ParseDate(raw)
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "as_of must be YYYY-MM-DD"))
			return time.Time{}, false
		}
		return day, true
	}
	loc := time.UTC
	if zones != nil {
		loc = zones.Location(userID)
	}
	return time.Now().In(loc), true
}

func pageParams(c *gin.Context) (int, int) {
	page, size := 1, 20
	if v, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		page = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		size = v
	}
	return page, size
}

func withMeta(c *gin.Context) map[string]interface{} {
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	return meta
}

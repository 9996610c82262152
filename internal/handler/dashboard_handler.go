package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sankalp-sachan/ATTENDLY/internal/dto"
	"github.com/sankalp-sachan/ATTENDLY/internal/middleware"
	"github.com/sankalp-sachan/ATTENDLY/internal/models"
	"github.com/sankalp-sachan/ATTENDLY/pkg/response"
)

type dashboardService interface {
	Dashboard(ctx context.Context, user models.User, asOf time.Time) (*dto.Dashboard, bool, error)
}

// DashboardHandler serves the per-user attendance overview.
type DashboardHandler struct {
	service dashboardService
	zones   zoneResolver
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(svc dashboardService, zones zoneResolver) *DashboardHandler {
	return &DashboardHandler{service: svc, zones: zones}
}

// Get godoc
// @Summary Attendance dashboard
// @Description Stats for every class plus overall averages. Cached per user and date.
// @Tags Dashboard
// @Produce json
// @Param as_of query string false "Reference date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Get(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	day, ok := asOf(c, h.zones, user.ID)
	if !ok {
		return
	}
	board, hit, err := h.service.Dashboard(c.Request.Context(), user, day)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, board, nil, withMeta(c))
}

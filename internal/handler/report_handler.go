package handler

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sankalp-sachan/ATTENDLY/internal/dto"
	"github.com/sankalp-sachan/ATTENDLY/internal/models"
	appErrors "github.com/sankalp-sachan/ATTENDLY/pkg/errors"
	"github.com/sankalp-sachan/ATTENDLY/pkg/response"
)

type reportService interface {
	Export(ctx context.Context, user models.User, asOf time.Time, format dto.ReportFormat) (*dto.ReportFile, error)
}

// ReportHandler streams attendance exports.
type ReportHandler struct {
	service reportService
	zones   zoneResolver
}

// NewReportHandler constructs the handler.
func NewReportHandler(svc reportService, zones zoneResolver) *ReportHandler {
	return &ReportHandler{service: svc, zones: zones}
}

// Attendance godoc
// @Summary Export attendance report
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Param as_of query string false "Reference date (YYYY-MM-DD)"
// @Success 200 {file} file
// @Router /reports/attendance [get]
func (h *ReportHandler) Attendance(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	format := dto.ReportFormat(strings.ToLower(c.DefaultQuery("format", string(dto.ReportFormatCSV))))
	if !format.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
		return
	}
	day, ok := asOf(c, h.zones, user.ID)
	if !ok {
		return
	}
	file, err := h.service.Export(c.Request.Context(), user, day, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

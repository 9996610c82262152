package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/sankalp-sachan/ATTENDLY/internal/attendance"
	"github.com/sankalp-sachan/ATTENDLY/internal/dto"
	"github.com/sankalp-sachan/ATTENDLY/internal/models"
	appErrors "github.com/sankalp-sachan/ATTENDLY/pkg/errors"
	"github.com/sankalp-sachan/ATTENDLY/pkg/export"
)

var reportColumns = []export.Column{
	{Key: "class", Label: "Class", Width: 3},
	{Key: "start_date", Label: "Start date", Width: 1.5},
	{Key: "working_days", Label: "Working days"},
	{Key: "present", Label: "Present"},
	{Key: "absent", Label: "Absent"},
	{Key: "holiday", Label: "Holiday"},
	{Key: "percentage", Label: "Attendance %"},
	{Key: "target", Label: "Target %"},
	{Key: "tier", Label: "Status"},
}

// ReportService renders the per-class attendance table for download.
type ReportService struct {
	classes classReader
	logger  *zap.Logger
	now     func() time.Time
}

// NewReportService constructs ReportService.
func NewReportService(classes classReader, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{classes: classes, logger: logger, now: time.Now}
}

// Export renders every class of the user as of asOf in the requested format.
func (s *ReportService) Export(ctx context.Context, user models.User, asOf time.Time, format dto.ReportFormat) (*dto.ReportFile, error) {
	if !format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	classes, err := s.classes.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes")
	}

	date := attendance.FormatDate(asOf)
	table := s.buildTable(user, classes, asOf)

	var (
		body        []byte
		contentType string
	)
	switch format {
	case dto.ReportFormatPDF:
		body, err = export.PDF(table)
		contentType = "application/pdf"
	default:
		body, err = export.CSV(table)
		contentType = "text/csv"
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	s.logger.Debug("report rendered", zap.String("user_id", user.ID), zap.String("format", string(format)), zap.Int("classes", len(classes)), zap.Int("bytes", len(body)))

	return &dto.ReportFile{
		Filename:    fmt.Sprintf("attendance-%s.%s", date, format),
		ContentType: contentType,
		Body:        body,
	}, nil
}

func (s *ReportService) buildTable(user models.User, classes []models.ClassRecord, asOf time.Time) export.Table {
	subtitle := "As of " + attendance.FormatDate(asOf)
	if user.FullName != "" {
		subtitle = user.FullName + " - " + subtitle
	}
	table := export.Table{
		Title:       "Attendance report",
		Subtitle:    subtitle,
		Columns:     reportColumns,
		Rows:        make([]export.Row, 0, len(classes)),
		GeneratedAt: s.now().UTC(),
	}
	for _, summary := range attendance.Summarize(classes, asOf) {
		stats := summary.Stats
		row := export.Row{Cells: map[string]string{
			"class":        summary.Class.Name,
			"working_days": strconv.Itoa(stats.TotalWorkingDays),
			"present":      strconv.Itoa(stats.PresentCount),
			"absent":       strconv.Itoa(stats.AbsentCount),
			"holiday":      strconv.Itoa(stats.HolidayCount),
			"percentage":   strconv.FormatFloat(stats.Percentage, 'f', 2, 64),
			"target":       strconv.Itoa(summary.Class.Target()),
			"tier":         string(summary.Tier),
		}}
		if !summary.Class.StartDate.IsZero() {
			row.Cells["start_date"] = attendance.FormatDate(summary.Class.StartDate)
		}
		row.Highlight = stats.TotalWorkingDays > 0 && summary.Tier == models.TierCritical
		table.Rows = append(table.Rows, row)
	}
	return table
}

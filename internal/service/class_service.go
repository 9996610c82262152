package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sankalp-sachan/ATTENDLY/internal/attendance"
	"github.com/sankalp-sachan/ATTENDLY/internal/models"
	appErrors "github.com/sankalp-sachan/ATTENDLY/pkg/errors"
)

type classRepository interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.ClassRecord, int, error)
	ListByUser(ctx context.Context, userID string) ([]models.ClassRecord, error)
	FindByID(ctx context.Context, userID, id string) (*models.ClassRecord, error)
	Create(ctx context.Context, class *models.ClassRecord) error
	Update(ctx context.Context, class *models.ClassRecord) error
	Delete(ctx context.Context, userID, id string) error
	SetAttendance(ctx context.Context, classID string, date time.Time, status models.AttendanceStatus) error
	ClearAttendance(ctx context.Context, classID string, date time.Time) error
	PruneAttendanceBefore(ctx context.Context, classID string, start time.Time) (int64, error)
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

// classCheckScheduler queues the immediate threshold check after a mark.
type classCheckScheduler interface {
	ScheduleClassCheck(userID, classID string) bool
}

// CreateClassRequest captures creation payload.
type CreateClassRequest struct {
	Name             string `json:"name" validate:"required,max=120"`
	StartDate        string `json:"start_date" validate:"required,calendar_date"`
	TargetPercentage *int   `json:"target_percentage" validate:"omitempty,min=50,max=100"`
}

// UpdateClassRequest modifies class fields. Omitted fields are left untouched.
type UpdateClassRequest struct {
	Name             *string `json:"name" validate:"omitempty,min=1,max=120"`
	StartDate        *string `json:"start_date" validate:"omitempty,calendar_date"`
	TargetPercentage *int    `json:"target_percentage" validate:"omitempty,min=50,max=100"`
}

// MarkAttendanceRequest sets or clears the status of one date. An empty status clears it.
type MarkAttendanceRequest struct {
	Date   string `json:"-" validate:"required,calendar_date"`
	Status string `json:"status" validate:"omitempty,attendance_status"`
}

// ClassService coordinates class and attendance mutations.
type ClassService struct {
	repo          classRepository
	cache         cacheInvalidator
	checks        classCheckScheduler
	validator     *validator.Validate
	logger        *zap.Logger
	defaultTarget int
}

// NewClassService constructs ClassService.
func NewClassService(repo classRepository, cache cacheInvalidator, checks classCheckScheduler, validate *validator.Validate, logger *zap.Logger, defaultTarget int) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultTarget < models.MinTargetPercentage || defaultTarget > models.MaxTargetPercentage {
		defaultTarget = models.DefaultTargetPercentage
	}
	svc := &ClassService{repo: repo, cache: cache, checks: checks, validator: validate, logger: logger, defaultTarget: defaultTarget}
	svc.validator.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
		return models.AttendanceStatus(strings.ToLower(fl.Field().String())).Valid()
	})
	svc.validator.RegisterValidation("calendar_date", func(fl validator.FieldLevel) bool {
		_, ok := attendance.ParseDate(fl.Field().String())
		return ok
	})
	return svc
}

// SetScheduler wires the class check scheduler once the session manager exists.
func (s *ClassService) SetScheduler(checks classCheckScheduler) {
	s.checks = checks
}

// List returns the user's classes with pagination metadata.
func (s *ClassService) List(ctx context.Context, user models.User, filter models.ClassFilter) ([]models.ClassRecord, *models.Pagination, error) {
	filter.UserID = user.ID
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	classes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	if classes == nil {
		classes = []models.ClassRecord{}
	}
	return classes, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// ListAll returns every class of the user.
func (s *ClassService) ListAll(ctx context.Context, user models.User) ([]models.ClassRecord, error) {
	classes, err := s.repo.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, nil
}

// Get returns a single class with its attendance log.
func (s *ClassService) Get(ctx context.Context, user models.User, id string) (*models.ClassRecord, error) {
	class, err := s.repo.FindByID(ctx, user.ID, id)
	if err != nil {
		return nil, classLoadError(err)
	}
	return class, nil
}

// Create adds a new class.
func (s *ClassService) Create(ctx context.Context, user models.User, req CreateClassRequest) (*models.ClassRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	start, _ := attendance.ParseDate(req.StartDate)
	target := s.defaultTarget
	if req.TargetPercentage != nil {
		target = *req.TargetPercentage
	}

	class := &models.ClassRecord{
		UserID:           user.ID,
		Name:             strings.TrimSpace(req.Name),
		StartDate:        start,
		TargetPercentage: target,
		Attendance:       map[string]models.AttendanceStatus{},
	}
	if class.Name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class name is required")
	}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	s.invalidate(ctx, user.ID)
	return class, nil
}

// Update modifies a class. Moving the start date forward drops attendance
// marked before the new start.
func (s *ClassService) Update(ctx context.Context, user models.User, id string, req UpdateClassRequest) (*models.ClassRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	class, err := s.repo.FindByID(ctx, user.ID, id)
	if err != nil {
		return nil, classLoadError(err)
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "class name is required")
		}
		class.Name = name
	}
	if req.TargetPercentage != nil {
		class.TargetPercentage = *req.TargetPercentage
	}
	var pruneFrom time.Time
	if req.StartDate != nil {
		start, _ := attendance.ParseDate(*req.StartDate)
		if start.After(attendance.StartOfDay(class.StartDate)) {
			pruneFrom = start
		}
		class.StartDate = start
	}

	if err := s.repo.Update(ctx, class); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	if !pruneFrom.IsZero() {
		removed, err := s.repo.PruneAttendanceBefore(ctx, class.ID, pruneFrom)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to prune attendance")
		}
		for key := range class.Attendance {
			if day, ok := attendance.ParseDate(key); !ok || day.Before(pruneFrom) {
				delete(class.Attendance, key)
			}
		}
		if removed > 0 {
			s.logger.Info("pruned attendance before new start date", zap.String("class_id", class.ID), zap.Int64("removed", removed))
		}
	}
	s.invalidate(ctx, user.ID)
	return class, nil
}

// Delete removes a class and its attendance.
func (s *ClassService) Delete(ctx context.Context, user models.User, id string) error {
	if err := s.repo.Delete(ctx, user.ID, id); err != nil {
		return classLoadError(err)
	}
	s.invalidate(ctx, user.ID)
	return nil
}

// MarkAttendance records, replaces or clears the status of one date. Any
// mutation other than a holiday mark queues an immediate threshold check.
func (s *ClassService) MarkAttendance(ctx context.Context, user models.User, classID string, req MarkAttendanceRequest) (*models.ClassRecord, error) {
	req.Status = strings.ToLower(strings.TrimSpace(req.Status))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}

	class, err := s.repo.FindByID(ctx, user.ID, classID)
	if err != nil {
		return nil, classLoadError(err)
	}
	day, _ := attendance.ParseDate(req.Date)
	if day.Before(attendance.StartOfDay(class.StartDate)) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date is before the class start date")
	}

	status := models.AttendanceStatus(req.Status)
	if class.Attendance == nil {
		class.Attendance = map[string]models.AttendanceStatus{}
	}
	if status == "" {
		if err := s.repo.ClearAttendance(ctx, class.ID, day); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear attendance")
		}
		delete(class.Attendance, req.Date)
	} else {
		if err := s.repo.SetAttendance(ctx, class.ID, day, status); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark attendance")
		}
		class.Attendance[req.Date] = status
	}
	s.invalidate(ctx, user.ID)

	if status != models.AttendanceStatusHoliday && s.checks != nil {
		if !s.checks.ScheduleClassCheck(user.ID, class.ID) {
			s.logger.Debug("class check not scheduled", zap.String("user_id", user.ID), zap.String("class_id", class.ID))
		}
	}
	return class, nil
}

func (s *ClassService) invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, UserCachePattern(userID)); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.String("user_id", userID), zap.Error(err))
	}
}

func classLoadError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
}

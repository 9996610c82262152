package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sankalp-sachan/ATTENDLY/internal/attendance"
	"github.com/sankalp-sachan/ATTENDLY/internal/dto"
	"github.com/sankalp-sachan/ATTENDLY/internal/models"
	appErrors "github.com/sankalp-sachan/ATTENDLY/pkg/errors"
)

type classReader interface {
	ListByUser(ctx context.Context, userID string) ([]models.ClassRecord, error)
	FindByID(ctx context.Context, userID, id string) (*models.ClassRecord, error)
}

type stateReader interface {
	Get(ctx context.Context, userID string) (models.SchedulerState, error)
}

type unreadCounter interface {
	CountUnread(ctx context.Context, userID string) (int, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardService composes per-class stats and overall averages.
type DashboardService struct {
	classes classReader
	states  stateReader
	inbox   unreadCounter
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
	cfg     DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Classes classReader
	States  stateReader
	Inbox   unreadCounter
	Cache   *CacheService
	Metrics *MetricsService
	Logger  *zap.Logger
	Config  DashboardServiceConfig
}

// NewDashboardService constructs the dashboard service.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &DashboardService{
		classes: params.Classes,
		states:  params.States,
		inbox:   params.Inbox,
		cache:   params.Cache,
		metrics: params.Metrics,
		logger:  logger,
		now:     time.Now,
		cfg:     cfg,
	}
}

// Dashboard returns stats for every class of the user as of asOf. The payload is
// cached per user and calendar date; the bool reports a cache hit.
func (s *DashboardService) Dashboard(ctx context.Context, user models.User, asOf time.Time) (*dto.Dashboard, bool, error) {
	date := attendance.FormatDate(asOf)
	key := DashboardCacheKey(user.ID, date)

	var cached dto.Dashboard
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, true, nil
	}

	start := time.Now()
	classes, err := s.classes.ListByUser(ctx, user.ID)
	s.metrics.ObserveDBQuery("dashboard_classes", time.Since(start))
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes")
	}
	state := s.loadState(ctx, user.ID)

	summaries := attendance.Summarize(classes, asOf)
	result := &dto.Dashboard{
		AsOf:        date,
		Classes:     make([]dto.ClassStats, 0, len(summaries)),
		GeneratedAt: s.now().UTC(),
	}
	for _, summary := range summaries {
		stats := BuildClassStats(summary, state)
		result.Classes = append(result.Classes, stats)
		if summary.Stats.TotalWorkingDays == 0 {
			continue
		}
		result.Overall.TrackedClasses++
		result.Overall.TotalPresent += summary.Stats.PresentCount
		result.Overall.TotalWorkingDays += summary.Stats.TotalWorkingDays
		if stats.BelowTarget {
			result.Overall.ClassesBelowTarget++
		}
	}
	if avg, target, ok := attendance.Averages(summaries); ok {
		result.Overall.AveragePercentage = avg
		result.Overall.AverageTarget = target
	}

	if s.inbox != nil {
		unread, err := s.inbox.CountUnread(ctx, user.ID)
		if err != nil {
			s.logger.Warn("failed to count unread notifications", zap.String("user_id", user.ID), zap.Error(err))
		}
		result.UnreadNotifications = unread
	}

	if err := s.cache.Set(ctx, key, result, s.cfg.CacheTTL); err != nil {
		s.logger.Debug("dashboard cache set skipped", zap.String("key", key), zap.Error(err))
	}
	return result, false, nil
}

// ClassStats returns stats and tier for one class.
func (s *DashboardService) ClassStats(ctx context.Context, user models.User, classID string, asOf time.Time) (*dto.ClassStats, error) {
	class, err := s.classes.FindByID(ctx, user.ID, classID)
	if err != nil {
		return nil, classLoadError(err)
	}
	state := s.loadState(ctx, user.ID)
	summaries := attendance.Summarize([]models.ClassRecord{*class}, asOf)
	stats := BuildClassStats(summaries[0], state)
	return &stats, nil
}

// loadState is best effort; the last alert date is informational only.
func (s *DashboardService) loadState(ctx context.Context, userID string) models.SchedulerState {
	if s.states == nil {
		return models.SchedulerState{UserID: userID}
	}
	state, err := s.states.Get(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to load notification state", zap.String("user_id", userID), zap.Error(err))
		return models.SchedulerState{UserID: userID}
	}
	return state
}

// BuildClassStats renders a summary into its response shape.
func BuildClassStats(summary attendance.Summary, state models.SchedulerState) dto.ClassStats {
	class := summary.Class
	stats := dto.ClassStats{
		ClassID:          class.ID,
		Name:             class.Name,
		TargetPercentage: class.Target(),
		Stats:            summary.Stats,
		Tier:             summary.Tier,
		BelowTarget:      summary.Stats.TotalWorkingDays > 0 && attendance.BelowTarget(summary.Stats, class.Target()),
		LastAlertDate:    state.ClassAlerts[class.ID],
	}
	if !class.StartDate.IsZero() {
		stats.StartDate = attendance.FormatDate(class.StartDate)
	}
	return stats
}

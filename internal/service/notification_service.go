package service

import (
	"context"
	"database/sql"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sankalp-sachan/ATTENDLY/internal/models"
	"github.com/sankalp-sachan/ATTENDLY/internal/notification"
	"github.com/sankalp-sachan/ATTENDLY/internal/notifier"
	appErrors "github.com/sankalp-sachan/ATTENDLY/pkg/errors"
)

type stateStore interface {
	Get(ctx context.Context, userID string) (models.SchedulerState, error)
	Save(ctx context.Context, state models.SchedulerState) error
}

type inboxStore interface {
	ListByUser(ctx context.Context, userID string, page, size int) ([]models.InboxNotification, int, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, id string, at time.Time) error
}

// NotificationServiceConfig tunes delivery behaviour.
type NotificationServiceConfig struct {
	DefaultLocation *time.Location
	// RetryFailed leaves a slot unrecorded when every channel failed so the
	// next tick tries again.
	RetryFailed     bool
	DeliveryTimeout time.Duration
}

// NotificationService runs scheduler ticks and serves the in-app inbox.
type NotificationService struct {
	classes  classReader
	states   stateStore
	inbox    inboxStore
	notifier notifier.Notifier
	policy   notification.Policy
	cache    cacheInvalidator
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      NotificationServiceConfig
	now      func() time.Time

	group singleflight.Group
	locks [lockStripes]sync.Mutex
}

// lockStripes bounds the per-user locks; users hashing to the same stripe
// serialise their ticks.
const lockStripes = 64

// NotificationServiceParams groups constructor dependencies.
type NotificationServiceParams struct {
	Classes  classReader
	States   stateStore
	Inbox    inboxStore
	Notifier notifier.Notifier
	Policy   notification.Policy
	Cache    cacheInvalidator
	Metrics  *MetricsService
	Logger   *zap.Logger
	Config   NotificationServiceConfig
}

// NewNotificationService constructs the service.
func NewNotificationService(params NotificationServiceParams) *NotificationService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := params.Config
	if cfg.DefaultLocation == nil {
		cfg.DefaultLocation = time.UTC
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = 10 * time.Second
	}
	n := params.Notifier
	if n == nil {
		n = notifier.NewLogNotifier(logger)
	}
	return &NotificationService{
		classes:  params.Classes,
		states:   params.States,
		inbox:    params.Inbox,
		notifier: n,
		policy:   params.Policy,
		cache:    params.Cache,
		metrics:  params.Metrics,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Tick evaluates and delivers everything due for the session's user. Concurrent
// calls for the same user share one evaluation.
func (s *NotificationService) Tick(ctx context.Context, session models.Session) (*models.TickResult, error) {
	v, err, shared := s.group.Do("tick:"+session.UserID, func() (interface{}, error) {
		return s.tick(ctx, session)
	})
	if err != nil {
		return nil, err
	}
	result := *v.(*models.TickResult)
	result.Shared = shared
	return &result, nil
}

func (s *NotificationService) tick(ctx context.Context, session models.Session) (*models.TickResult, error) {
	unlock := s.lock(session.UserID)
	defer unlock()

	started := time.Now()
	defer func() { s.metrics.ObserveTick(time.Since(started)) }()

	now := s.now().In(session.Location(s.cfg.DefaultLocation))
	loadStart := time.Now()
	classes, err := s.classes.ListByUser(ctx, session.UserID)
	s.metrics.ObserveDBQuery("scheduler_classes", time.Since(loadStart))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes")
	}
	state, err := s.loadState(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	plan := s.policy.Evaluate(now, classes, state)
	stamped := plan.Stamp(state)
	if plan.Empty() {
		if state.RandomSlotDate != stamped.RandomSlotDate || state.RandomSlotTime != stamped.RandomSlotTime {
			if err := s.saveState(ctx, stamped); err != nil {
				return nil, err
			}
		}
		return &models.TickResult{UserID: session.UserID, Date: plan.Date, Delivered: []models.NotificationMessage{}}, nil
	}
	return s.dispatch(ctx, session, plan, stamped)
}

// CheckClass runs the immediate below-target check for one class.
func (s *NotificationService) CheckClass(ctx context.Context, session models.Session, classID string) (*models.TickResult, error) {
	unlock := s.lock(session.UserID)
	defer unlock()

	now := s.now().In(session.Location(s.cfg.DefaultLocation))
	class, err := s.classes.FindByID(ctx, session.UserID, classID)
	if err != nil {
		return nil, classLoadError(err)
	}
	state, err := s.loadState(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	plan := s.policy.EvaluateClass(now, *class, state)
	if plan.Empty() {
		return &models.TickResult{UserID: session.UserID, Date: plan.Date, Delivered: []models.NotificationMessage{}}, nil
	}
	return s.dispatch(ctx, session, plan, state)
}

// dispatch persists the due slots as sent before anything is delivered, so a
// failed save never leads to a second delivery. Failed slots are released
// afterwards when RetryFailed is set.
func (s *NotificationService) dispatch(ctx context.Context, session models.Session, plan notification.Plan, base models.SchedulerState) (*models.TickResult, error) {
	reserved := plan.Reserve(base)
	if err := s.saveState(ctx, reserved); err != nil {
		return nil, err
	}

	result := s.deliver(ctx, session, plan)
	if !s.cfg.RetryFailed || len(result.Failed) == 0 {
		return result, nil
	}

	released := reserved
	for _, msg := range result.Failed {
		released = released.Release(msg, base)
	}
	if err := s.saveState(ctx, released); err != nil {
		// The slots stay recorded: they are skipped for today rather than risk
		// a duplicate.
		s.logger.Warn("failed to release undelivered slots",
			zap.String("user_id", session.UserID),
			zap.Int("failed", len(result.Failed)),
			zap.Error(err))
	}
	return result, nil
}

// deliver sends every due message concurrently.
func (s *NotificationService) deliver(ctx context.Context, session models.Session, plan notification.Plan) *models.TickResult {
	result := &models.TickResult{UserID: session.UserID, Date: plan.Date, Delivered: []models.NotificationMessage{}}

	errs := make([]error, len(plan.Due))
	var wg sync.WaitGroup
	for i := range plan.Due {
		plan.Due[i].Recipient = session.Email
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sendCtx, cancel := context.WithTimeout(ctx, s.cfg.DeliveryTimeout)
			defer cancel()
			errs[i] = s.notifier.Notify(sendCtx, plan.Due[i])
		}(i)
	}
	wg.Wait()

	for i, msg := range plan.Due {
		delivered := errs[i] == nil
		s.metrics.RecordNotification(msg.Slot, delivered)
		if delivered {
			result.Delivered = append(result.Delivered, msg)
			continue
		}
		result.Failed = append(result.Failed, msg)
		log := s.logger.Warn
		if errors.Is(errs[i], notifier.ErrSkipped) {
			log = s.logger.Debug
		}
		log("notification not delivered",
			zap.String("user_id", msg.UserID),
			zap.String("slot", string(msg.Slot)),
			zap.String("class_id", msg.ClassID),
			zap.Bool("retry", s.cfg.RetryFailed),
			zap.Error(errs[i]))
	}

	if len(result.Delivered) > 0 && s.cache != nil {
		if err := s.cache.Invalidate(ctx, UserCachePattern(session.UserID)); err != nil {
			s.logger.Debug("dashboard cache invalidate failed", zap.String("user_id", session.UserID), zap.Error(err))
		}
	}
	return result
}

// Inbox lists the user's stored notifications.
func (s *NotificationService) Inbox(ctx context.Context, user models.User, page, size int) ([]models.InboxNotification, *models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	items, total, err := s.inbox.ListByUser(ctx, user.ID, page, size)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	if items == nil {
		items = []models.InboxNotification{}
	}
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// MarkRead marks an inbox entry as read.
func (s *NotificationService) MarkRead(ctx context.Context, user models.User, id string) error {
	if err := s.inbox.MarkRead(ctx, user.ID, id, s.now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update notification")
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, UserCachePattern(user.ID)); err != nil {
			s.logger.Debug("dashboard cache invalidate failed", zap.String("user_id", user.ID), zap.Error(err))
		}
	}
	return nil
}

func (s *NotificationService) loadState(ctx context.Context, userID string) (models.SchedulerState, error) {
	state, err := s.states.Get(ctx, userID)
	if err != nil {
		return models.SchedulerState{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notification state")
	}
	state.UserID = userID
	if state.ClassAlerts == nil {
		state.ClassAlerts = map[string]string{}
	}
	return state, nil
}

func (s *NotificationService) saveState(ctx context.Context, state models.SchedulerState) error {
	state.UpdatedAt = s.now().UTC()
	if err := s.states.Save(ctx, state); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save notification state")
	}
	return nil
}

func (s *NotificationService) lock(userID string) func() {
	mu := &s.locks[stripe(userID)]
	mu.Lock()
	return mu.Unlock
}

func stripe(userID string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return h.Sum32() % lockStripes
}

package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sankalp-sachan/ATTENDLY/internal/models"
	appErrors "github.com/sankalp-sachan/ATTENDLY/pkg/errors"
	"github.com/sankalp-sachan/ATTENDLY/pkg/jobs"
)

// Job kinds handled by the session queue.
const (
	JobKindTick       = "tick"
	JobKindClassCheck = "class_check"
)

type notificationRunner interface {
	Tick(ctx context.Context, session models.Session) (*models.TickResult, error)
	CheckClass(ctx context.Context, session models.Session, classID string) (*models.TickResult, error)
}

// SessionManagerConfig tunes the per-user tickers.
type SessionManagerConfig struct {
	TickInterval     time.Duration
	DefaultTimeZone  string
	ImmediateOnStart bool
	Queue            jobs.QueueConfig
}

type activeSession struct {
	session models.Session
	cancel  context.CancelFunc
}

// SessionManager keeps one ticker per signed-in user. Tickers only enqueue
// jobs; the queue workers run the actual scheduler ticks.
type SessionManager struct {
	runner  notificationRunner
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger
	cfg     SessionManagerConfig
	now     func() time.Time

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	sessions map[string]*activeSession
	wg       sync.WaitGroup
}

// NewSessionManager constructs the manager and its worker queue.
func NewSessionManager(runner notificationRunner, cfg SessionManagerConfig, metrics *MetricsService, logger *zap.Logger) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Minute
	}
	if cfg.Queue.Logger == nil {
		cfg.Queue.Logger = logger
	}
	m := &SessionManager{
		runner:   runner,
		metrics:  metrics,
		logger:   logger.Named("sessions"),
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[string]*activeSession),
	}
	m.queue = jobs.NewQueue("notifications", m.handle, cfg.Queue)
	return m
}

// Run starts the worker queue. Sessions started before Run are rejected.
func (m *SessionManager) Run(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctx != nil {
		return
	}
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.queue.Start(m.ctx)
}

// Start registers the session and starts its ticker, replacing any running one.
func (m *SessionManager) Start(session models.Session) (models.Session, error) {
	if session.UserID == "" {
		return models.Session{}, appErrors.Clone(appErrors.ErrValidation, "user id is required")
	}
	if session.TimeZone == "" {
		session.TimeZone = m.cfg.DefaultTimeZone
	}
	if session.TimeZone != "" {
		if _, err := time.LoadLocation(session.TimeZone); err != nil {
			return models.Session{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unknown time zone")
		}
	}
	session.StartedAt = m.now().UTC()

	m.mu.Lock()
	if m.ctx == nil {
		m.mu.Unlock()
		return models.Session{}, appErrors.Clone(appErrors.ErrUnavailable, "notification scheduler is not running")
	}
	if prev, ok := m.sessions[session.UserID]; ok {
		prev.cancel()
	}
	ctx, cancel := context.WithCancel(m.ctx)
	m.sessions[session.UserID] = &activeSession{session: session, cancel: cancel}
	count := len(m.sessions)
	m.mu.Unlock()

	m.metrics.SetActiveSessions(count)
	m.wg.Add(1)
	go m.loop(ctx, session.UserID)

	if m.cfg.ImmediateOnStart {
		m.enqueue(jobs.Job{Kind: JobKindTick, UserID: session.UserID})
	}
	m.logger.Info("session started", zap.String("user_id", session.UserID), zap.String("time_zone", session.TimeZone))
	return session, nil
}

// Stop cancels the user's ticker. It reports whether a session was running.
func (m *SessionManager) Stop(userID string) bool {
	m.mu.Lock()
	active, ok := m.sessions[userID]
	if ok {
		active.cancel()
		delete(m.sessions, userID)
	}
	count := len(m.sessions)
	m.mu.Unlock()

	if ok {
		m.metrics.SetActiveSessions(count)
		m.logger.Info("session stopped", zap.String("user_id", userID))
	}
	return ok
}

// Session returns the user's active session.
func (m *SessionManager) Session(userID string) (models.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	active, ok := m.sessions[userID]
	if !ok {
		return models.Session{}, false
	}
	return active.session, true
}

// Active returns the number of running sessions.
func (m *SessionManager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Location returns the time zone of the user's session or the default zone.
func (m *SessionManager) Location(userID string) *time.Location {
	fallback := time.UTC
	if m.cfg.DefaultTimeZone != "" {
		if loc, err := time.LoadLocation(m.cfg.DefaultTimeZone); err == nil {
			fallback = loc
		}
	}
	if session, ok := m.Session(userID); ok {
		return session.Location(fallback)
	}
	return fallback
}

// TickInterval is the configured ticker period.
func (m *SessionManager) TickInterval() time.Duration {
	return m.cfg.TickInterval
}

// ScheduleClassCheck queues the immediate alert check for a class. Users
// without a running session get no notifications, so nothing is queued.
func (m *SessionManager) ScheduleClassCheck(userID, classID string) bool {
	if _, ok := m.Session(userID); !ok {
		return false
	}
	return m.enqueue(jobs.Job{Kind: JobKindClassCheck, UserID: userID, Payload: classID})
}

// Shutdown stops every ticker and waits for the workers to exit.
func (m *SessionManager) Shutdown() {
	m.mu.Lock()
	for userID, active := range m.sessions {
		active.cancel()
		delete(m.sessions, userID)
	}
	cancel := m.cancel
	m.mu.Unlock()

	m.wg.Wait()
	m.queue.Stop()
	if cancel != nil {
		cancel()
	}
	m.metrics.SetActiveSessions(0)
}

func (m *SessionManager) loop(ctx context.Context, userID string) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.enqueue(jobs.Job{Kind: JobKindTick, UserID: userID})
		}
	}
}

func (m *SessionManager) enqueue(job jobs.Job) bool {
	job.ID = uuid.NewString()
	if err := m.queue.TryEnqueue(job); err != nil {
		m.metrics.RecordDroppedJob(job.Kind)
		if errors.Is(err, jobs.ErrQueueFull) {
			m.logger.Warn("scheduler queue full, job dropped", zap.String("kind", job.Kind), zap.String("user_id", job.UserID))
		} else {
			m.logger.Debug("job not queued", zap.String("kind", job.Kind), zap.Error(err))
		}
		return false
	}
	return true
}

func (m *SessionManager) handle(ctx context.Context, job jobs.Job) error {
	session, ok := m.Session(job.UserID)
	if !ok {
		m.logger.Debug("dropping job for ended session", zap.String("kind", job.Kind), zap.String("user_id", job.UserID))
		return nil
	}

	switch job.Kind {
	case JobKindTick:
		result, err := m.runner.Tick(ctx, session)
		if err != nil {
			return err
		}
		if len(result.Delivered) > 0 || len(result.Failed) > 0 {
			m.logger.Info("tick delivered notifications",
				zap.String("user_id", job.UserID),
				zap.Int("delivered", len(result.Delivered)),
				zap.Int("failed", len(result.Failed)))
		}
		return nil
	case JobKindClassCheck:
		classID, _ := job.Payload.(string)
		if classID == "" {
			return nil
		}
		_, err := m.runner.CheckClass(ctx, session, classID)
		if errors.Is(err, appErrors.ErrNotFound) {
			return nil
		}
		return err
	default:
		m.logger.Warn("unknown job kind", zap.String("kind", job.Kind))
		return nil
	}
}

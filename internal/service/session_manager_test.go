package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sankalp-sachan/ATTENDLY/internal/models"
	appErrors "github.com/sankalp-sachan/ATTENDLY/pkg/errors"
	"github.com/sankalp-sachan/ATTENDLY/pkg/jobs"
)

type countingRunner struct {
	mu     sync.Mutex
	ticks  map[string]int
	checks []string
	zones  []string
}

func newCountingRunner() *countingRunner {
	return &countingRunner{ticks: map[string]int{}}
}

func (r *countingRunner) Tick(_ context.Context, session models.Session) (*models.TickResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks[session.UserID]++
	r.zones = append(r.zones, session.TimeZone)
	return &models.TickResult{UserID: session.UserID}, nil
}

func (r *countingRunner) CheckClass(_ context.Context, session models.Session, classID string) (*models.TickResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks = append(r.checks, session.UserID+"/"+classID)
	return &models.TickResult{UserID: session.UserID}, nil
}

func (r *countingRunner) tickCount(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ticks[userID]
}

func (r *countingRunner) checkCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.checks)
}

func newTestSessionManager(runner *countingRunner, interval time.Duration, immediate bool) *SessionManager {
	return NewSessionManager(runner, SessionManagerConfig{
		TickInterval:     interval,
		DefaultTimeZone:  "Asia/Kolkata",
		ImmediateOnStart: immediate,
		Queue:            jobs.QueueConfig{Workers: 2, BufferSize: 16, MaxRetries: -1},
	}, NewMetricsService(), zap.NewNop())
}

func TestSessionManagerRequiresRun(t *testing.T) {
	m := newTestSessionManager(newCountingRunner(), time.Hour, false)

	_, err := m.Start(models.Session{UserID: "user-1"})
	assert.ErrorIs(t, err, appErrors.ErrUnavailable)
}

func TestSessionManagerImmediateTickAndTicker(t *testing.T) {
	runner := newCountingRunner()
	m := newTestSessionManager(runner, 20*time.Millisecond, true)
	m.Run(context.Background())
	defer m.Shutdown()

	session, err := m.Start(models.Session{UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", session.TimeZone)
	assert.False(t, session.StartedAt.IsZero())
	assert.Equal(t, 1, m.Active())

	assert.Eventually(t, func() bool { return runner.tickCount("user-1") >= 3 }, 2*time.Second, 5*time.Millisecond)
	runner.mu.Lock()
	firstZone := runner.zones[0]
	runner.mu.Unlock()
	assert.Equal(t, "Asia/Kolkata", firstZone)

	require.True(t, m.Stop("user-1"))
	assert.False(t, m.Stop("user-1"))
	assert.Zero(t, m.Active())
	assert.Equal(t, int64(0), m.metrics.Snapshot().ActiveSessions)

	stopped := runner.tickCount("user-1")
	time.Sleep(80 * time.Millisecond)
	assert.LessOrEqual(t, runner.tickCount("user-1"), stopped+1, "at most one in-flight job after stop")
}

func TestSessionManagerRejectsUnknownTimeZone(t *testing.T) {
	m := newTestSessionManager(newCountingRunner(), time.Hour, false)
	m.Run(context.Background())
	defer m.Shutdown()

	_, err := m.Start(models.Session{UserID: "user-1", TimeZone: "Mars/Olympus"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Zero(t, m.Active())
}

func TestSessionManagerClassChecksNeedSession(t *testing.T) {
	runner := newCountingRunner()
	m := newTestSessionManager(runner, time.Hour, false)
	m.Run(context.Background())
	defer m.Shutdown()

	assert.False(t, m.ScheduleClassCheck("user-1", "class-1"))

	_, err := m.Start(models.Session{UserID: "user-1", TimeZone: "UTC"})
	require.NoError(t, err)
	assert.True(t, m.ScheduleClassCheck("user-1", "class-1"))
	assert.Eventually(t, func() bool { return runner.checkCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"user-1/class-1"}, runner.checks)
}

func TestSessionManagerRestartReplacesSession(t *testing.T) {
	m := newTestSessionManager(newCountingRunner(), time.Hour, false)
	m.Run(context.Background())
	defer m.Shutdown()

	_, err := m.Start(models.Session{UserID: "user-1", TimeZone: "UTC"})
	require.NoError(t, err)
	_, err = m.Start(models.Session{UserID: "user-1", TimeZone: "Europe/Berlin"})
	require.NoError(t, err)

	session, ok := m.Session("user-1")
	require.True(t, ok)
	assert.Equal(t, "Europe/Berlin", session.TimeZone)
	assert.Equal(t, 1, m.Active())
	assert.Equal(t, "Europe/Berlin", m.Location("user-1").String())
	assert.Equal(t, "Asia/Kolkata", m.Location("user-2").String())
}

func TestSessionManagerDropsJobsForEndedSessions(t *testing.T) {
	runner := newCountingRunner()
	m := newTestSessionManager(runner, time.Hour, false)

	err := m.handle(context.Background(), jobs.Job{Kind: JobKindTick, UserID: "ghost"})
	require.NoError(t, err)
	assert.Zero(t, runner.tickCount("ghost"))
}

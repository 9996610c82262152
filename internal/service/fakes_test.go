package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sankalp-sachan/ATTENDLY/internal/models"
	appErrors "github.com/sankalp-sachan/ATTENDLY/pkg/errors"
)

var errBoom = errors.New("boom")

type fakeClassRepo struct {
	mu      sync.Mutex
	classes map[string]*models.ClassRecord
	listErr error
	pruned  map[string]time.Time
}

func newFakeClassRepo(classes ...models.ClassRecord) *fakeClassRepo {
	repo := &fakeClassRepo{classes: map[string]*models.ClassRecord{}, pruned: map[string]time.Time{}}
	for i := range classes {
		c := classes[i]
		if c.Attendance == nil {
			c.Attendance = map[string]models.AttendanceStatus{}
		}
		repo.classes[c.ID] = &c
	}
	return repo
}

func (f *fakeClassRepo) copyOf(c *models.ClassRecord) models.ClassRecord {
	out := *c
	out.Attendance = make(map[string]models.AttendanceStatus, len(c.Attendance))
	for k, v := range c.Attendance {
		out.Attendance[k] = v
	}
	return out
}

func (f *fakeClassRepo) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassRecord, int, error) {
	all, err := f.ListByUser(ctx, filter.UserID)
	if err != nil {
		return nil, 0, err
	}
	var out []models.ClassRecord
	for _, c := range all {
		if filter.Search == "" || strings.Contains(strings.ToLower(c.Name), strings.ToLower(filter.Search)) {
			out = append(out, c)
		}
	}
	return out, len(out), nil
}

func (f *fakeClassRepo) ListByUser(_ context.Context, userID string) ([]models.ClassRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.ClassRecord
	for _, c := range f.classes {
		if c.UserID == userID {
			out = append(out, f.copyOf(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeClassRepo) FindByID(_ context.Context, userID, id string) (*models.ClassRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.classes[id]
	if !ok || c.UserID != userID {
		return nil, sql.ErrNoRows
	}
	out := f.copyOf(c)
	return &out, nil
}

func (f *fakeClassRepo) Create(_ context.Context, class *models.ClassRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if class.ID == "" {
		class.ID = "class-new"
	}
	c := *class
	f.classes[c.ID] = &c
	return nil
}

func (f *fakeClassRepo) Update(_ context.Context, class *models.ClassRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.classes[class.ID]
	if !ok || existing.UserID != class.UserID {
		return sql.ErrNoRows
	}
	existing.Name = class.Name
	existing.StartDate = class.StartDate
	existing.TargetPercentage = class.TargetPercentage
	return nil
}

func (f *fakeClassRepo) Delete(_ context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.classes[id]
	if !ok || c.UserID != userID {
		return sql.ErrNoRows
	}
	delete(f.classes, id)
	return nil
}

func (f *fakeClassRepo) SetAttendance(_ context.Context, classID string, date time.Time, status models.AttendanceStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.classes[classID].Attendance[date.Format(models.DateLayout)] = status
	return nil
}

func (f *fakeClassRepo) ClearAttendance(_ context.Context, classID string, date time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.classes[classID].Attendance, date.Format(models.DateLayout))
	return nil
}

func (f *fakeClassRepo) PruneAttendanceBefore(_ context.Context, classID string, start time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pruned[classID] = start
	var n int64
	for key := range f.classes[classID].Attendance {
		if key < start.Format(models.DateLayout) {
			delete(f.classes[classID].Attendance, key)
			n++
		}
	}
	return n, nil
}

type stubCacheRepo struct {
	mu          sync.Mutex
	store       map[string]interface{}
	invalidated []string
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		s.store = map[string]interface{}{}
	}
	s.store[key] = value
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidated = append(s.invalidated, pattern)
	s.store = nil
	return nil
}

type fakeStateStore struct {
	mu      sync.Mutex
	state   models.SchedulerState
	saves   int
	getErr  error
	saveErr error
	// failSave fails only the nth save attempt, counting from 1.
	failSave int
	attempts int
}

func (f *fakeStateStore) Get(_ context.Context, userID string) (models.SchedulerState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return models.SchedulerState{}, f.getErr
	}
	st := f.state.Clone()
	st.UserID = userID
	return st, nil
}

func (f *fakeStateStore) Save(_ context.Context, state models.SchedulerState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.failSave == f.attempts {
		return errBoom
	}
	f.saves++
	f.state = state.Clone()
	return nil
}

type fakeInbox struct {
	items   []models.InboxNotification
	unread  int
	readIDs []string
	err     error
}

func (f *fakeInbox) ListByUser(context.Context, string, int, int) ([]models.InboxNotification, int, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.items, len(f.items), nil
}

func (f *fakeInbox) CountUnread(context.Context, string) (int, error) {
	return f.unread, f.err
}

func (f *fakeInbox) MarkRead(_ context.Context, _ string, id string, _ time.Time) error {
	if f.err != nil {
		return f.err
	}
	for _, item := range f.items {
		if item.ID == id {
			f.readIDs = append(f.readIDs, id)
			return nil
		}
	}
	return sql.ErrNoRows
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []models.NotificationMessage
	fail map[models.Slot]bool
}

func (r *recordingNotifier) Notify(_ context.Context, msg models.NotificationMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail[msg.Slot] {
		return errBoom
	}
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recordingNotifier) slots() []models.Slot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Slot, 0, len(r.sent))
	for _, m := range r.sent {
		out = append(out, m.Slot)
	}
	return out
}

func day(s string) time.Time {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

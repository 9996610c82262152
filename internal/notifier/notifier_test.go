package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sankalp-sachan/ATTENDLY/internal/models"
	appErrors "github.com/sankalp-sachan/ATTENDLY/pkg/errors"
)

type inboxStub struct {
	mu      sync.Mutex
	entries []*models.InboxNotification
	err     error
}

func (s *inboxStub) Create(_ context.Context, n *models.InboxNotification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, n)
	return nil
}

func sampleMessage() models.NotificationMessage {
	return models.NotificationMessage{
		UserID:  "user-1",
		Slot:    models.SlotClassAlert,
		ClassID: "class-1",
		Date:    "2025-01-10",
		Title:   "⚠️ Attendance Alert!",
		Body:    "Your attendance in 'Physics' is 50%. Maintain at least 75%.",
	}
}

func TestLogNotifierWritesStructuredLine(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewLogNotifier(zap.New(core))

	require.NoError(t, n.Notify(context.Background(), sampleMessage()))
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "user-1", fields["user_id"])
	assert.Equal(t, "class_alert", fields["slot"])
}

func TestInboxNotifierPersistsEntry(t *testing.T) {
	store := &inboxStub{}
	n := NewInboxNotifier(store)

	require.NoError(t, n.Notify(context.Background(), sampleMessage()))
	require.Len(t, store.entries, 1)
	entry := store.entries[0]
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "user-1", entry.UserID)
	require.NotNil(t, entry.ClassID)
	assert.Equal(t, "class-1", *entry.ClassID)

	msg := sampleMessage()
	msg.Slot = models.SlotMorningReminder
	msg.ClassID = ""
	require.NoError(t, n.Notify(context.Background(), msg))
	assert.Nil(t, store.entries[1].ClassID)
}

func TestEmailNotifierPostsToSendGrid(t *testing.T) {
	var (
		auth    string
		payload map[string]interface{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &payload)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := NewEmailNotifier(EmailOptions{APIKey: "sg-key", Host: srv.URL, FromEmail: "no-reply@attendly.app"})
	msg := sampleMessage()
	msg.Recipient = "student@example.com"

	require.NoError(t, n.Notify(context.Background(), msg))
	assert.Equal(t, "Bearer sg-key", auth)
	personalizations := payload["personalizations"].([]interface{})
	first := personalizations[0].(map[string]interface{})
	assert.Equal(t, "[Attendly] ⚠️ Attendance Alert!", first["subject"])
}

func TestEmailNotifierReportsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer srv.Close()

	n := NewEmailNotifier(EmailOptions{APIKey: "bad", Host: srv.URL, FromEmail: "no-reply@attendly.app"})
	msg := sampleMessage()
	msg.Recipient = "student@example.com"

	err := n.Notify(context.Background(), msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestEmailNotifierSkipsWithoutRecipient(t *testing.T) {
	n := NewEmailNotifier(EmailOptions{APIKey: "k"})
	assert.ErrorIs(t, n.Notify(context.Background(), sampleMessage()), ErrSkipped)
}

func TestMultiSucceedsWhenAnyChannelDelivers(t *testing.T) {
	failing := Func(func(context.Context, models.NotificationMessage) error { return errors.New("boom") })
	ok := Func(func(context.Context, models.NotificationMessage) error { return nil })

	m := NewMulti(map[string]Notifier{"a": failing, "b": ok}, nil)
	assert.NoError(t, m.Notify(context.Background(), sampleMessage()))
}

func TestMultiFailsWhenEveryChannelFails(t *testing.T) {
	first := Func(func(context.Context, models.NotificationMessage) error { return errors.New("first") })
	second := Func(func(context.Context, models.NotificationMessage) error { return errors.New("second") })
	skipped := Func(func(context.Context, models.NotificationMessage) error { return ErrSkipped })

	m := NewMulti(map[string]Notifier{"a": first, "b": second, "c": skipped}, nil)
	err := m.Notify(context.Background(), sampleMessage())
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrDeliveryFailed)
	assert.Contains(t, err.Error(), "first")
	assert.Contains(t, err.Error(), "second")
}

func TestMultiIgnoresSkippedChannels(t *testing.T) {
	skipped := Func(func(context.Context, models.NotificationMessage) error { return ErrSkipped })
	ok := Func(func(context.Context, models.NotificationMessage) error { return nil })
	m := NewMulti(map[string]Notifier{"email": skipped, "log": ok}, nil)
	assert.NoError(t, m.Notify(context.Background(), sampleMessage()))
}

func TestMultiSkippedWhenNothingDelivered(t *testing.T) {
	skipped := Func(func(context.Context, models.NotificationMessage) error { return ErrSkipped })
	m := NewMulti(map[string]Notifier{"email": skipped}, nil)
	assert.ErrorIs(t, m.Notify(context.Background(), sampleMessage()), ErrSkipped)
}

func TestNewBuildsConfiguredChannels(t *testing.T) {
	m, err := New([]string{"log", " Inbox ", "email"}, Options{Inbox: &inboxStub{}})
	require.NoError(t, err)
	names := m.Channels()
	sort.Strings(names)
	assert.Equal(t, []string{"inbox", "log"}, names)

	m, err = New(nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"log"}, m.Channels())

	_, err = New([]string{"pager"}, Options{})
	assert.Error(t, err)
}

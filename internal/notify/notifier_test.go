// internal/notify/notifier_test.go
package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formative-notifications/internal/common/logger"
	"formative-notifications/internal/models"
	"formative-notifications/internal/notify/push"
)

type stubPrefs struct {
	prefs *models.NotificationPreferences
	err   error
}

func (s *stubPrefs) Get(ctx context.Context, userID string) (*models.NotificationPreferences, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.prefs != nil {
		return s.prefs, nil
	}
	return models.DefaultPreferences(userID), nil
}

type stubInApp struct {
	created []string
	err     error
}

func (s *stubInApp) Create(ctx context.Context, userID, category, title, message, actionURL string) (*models.Notification, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created = append(s.created, userID)
	return &models.Notification{ID: "n-1", UserID: userID, Category: category}, nil
}

type stubEmail struct {
	enqueued []map[string]interface{}
	err      error
}

func (s *stubEmail) Enqueue(ctx context.Context, userID, template, title, message string, data map[string]interface{}) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.enqueued = append(s.enqueued, data)
	return "job-1", nil
}

type stubPush struct {
	sent []map[string]interface{}
}

func (s *stubPush) SendToUser(ctx context.Context, userID, title, body string, data map[string]interface{}) push.SendResult {
	s.sent = append(s.sent, data)
	return push.SendResult{Success: true, Sent: 1, Total: 1}
}

type fixture struct {
	prefs    *stubPrefs
	inApp    *stubInApp
	email    *stubEmail
	push     *stubPush
	notifier *Notifier
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		prefs: &stubPrefs{},
		inApp: &stubInApp{},
		email: &stubEmail{},
		push:  &stubPush{},
	}
	f.notifier = NewNotifier(f.prefs, f.inApp, f.email, f.push, logger.NewTestLogger(t))
	return f
}

func testEvent() Event {
	return Event{
		UserID:    "user-001",
		Category:  models.CategoryMessages,
		Template:  "message_received",
		Title:     "New message",
		Message:   "Ana sent you a message",
		ActionURL: "/messages/42",
		Data:      map[string]interface{}{"senderName": "Ana"},
	}
}

func TestNotify_AllChannelsEnabled(t *testing.T) {
	f := newFixture(t)

	out := f.notifier.Notify(context.Background(), testEvent())

	assert.True(t, out.InApp)
	assert.Equal(t, "job-1", out.EmailJobID)
	assert.Equal(t, 1, out.Push.Sent)

	// Each channel gets the action URL under its own key.
	require.Len(t, f.email.enqueued, 1)
	assert.Equal(t, "/messages/42", f.email.enqueued[0]["actionUrl"])
	assert.Equal(t, "Ana", f.email.enqueued[0]["senderName"])
	require.Len(t, f.push.sent, 1)
	assert.Equal(t, "/messages/42", f.push.sent[0]["url"])
}

func TestNotify_OptOutSkipsChannel(t *testing.T) {
	f := newFixture(t)
	p := models.DefaultPreferences("user-001")
	p.EmailMessages = false
	f.prefs.prefs = p

	out := f.notifier.Notify(context.Background(), testEvent())

	assert.True(t, out.InApp)
	assert.Empty(t, out.EmailJobID)
	assert.Equal(t, 1, out.Push.Sent, "push opt-in is independent of email")
	assert.Empty(t, f.email.enqueued)
}

func TestNotify_CategoryGatingIsIndependent(t *testing.T) {
	f := newFixture(t)
	p := models.DefaultPreferences("user-001")
	p.EmailMessages = false
	f.prefs.prefs = p

	ev := testEvent()
	ev.Category = models.CategoryPayments
	ev.Template = "payment_received"

	out := f.notifier.Notify(context.Background(), ev)

	assert.Equal(t, "job-1", out.EmailJobID, "payments email is still on")
}

func TestNotify_QuietHoursSuppressEmailAndPushOnly(t *testing.T) {
	f := newFixture(t)
	p := models.DefaultPreferences("user-001")
	p.QuietHoursEnabled = true
	p.QuietHoursStart = "22:00"
	p.QuietHoursEnd = "08:00"
	p.Timezone = "UTC"
	f.prefs.prefs = p
	f.notifier.now = func() time.Time { return time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC) }

	out := f.notifier.Notify(context.Background(), testEvent())

	assert.True(t, out.InApp, "in-app makes no noise, never suppressed")
	assert.Empty(t, out.EmailJobID)
	assert.Zero(t, out.Push.Sent)
	assert.Empty(t, f.email.enqueued)
	assert.Empty(t, f.push.sent)
}

func TestNotify_QuietHoursEvaluatedAtEventTime(t *testing.T) {
	f := newFixture(t)
	p := models.DefaultPreferences("user-001")
	p.QuietHoursEnabled = true
	p.QuietHoursStart = "22:00"
	p.QuietHoursEnd = "08:00"
	p.Timezone = "UTC"
	f.prefs.prefs = p
	f.notifier.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }

	out := f.notifier.Notify(context.Background(), testEvent())

	assert.Equal(t, "job-1", out.EmailJobID, "noon is outside the window")

	f.notifier.now = func() time.Time { return time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC) }
	out = f.notifier.Notify(context.Background(), testEvent())
	assert.Empty(t, out.EmailJobID)
}

func TestNotify_PreferenceReadFailureDefaultsOn(t *testing.T) {
	f := newFixture(t)
	f.prefs.err = errors.New("connection refused")

	out := f.notifier.Notify(context.Background(), testEvent())

	assert.True(t, out.InApp)
	assert.Equal(t, "job-1", out.EmailJobID)
	assert.Equal(t, 1, out.Push.Sent)
}

func TestNotify_ChannelFailureDoesNotBlockOthers(t *testing.T) {
	f := newFixture(t)
	f.inApp.err = errors.New("insert failed")
	f.email.err = errors.New("no such user")

	var out Outcome
	assert.NotPanics(t, func() {
		out = f.notifier.Notify(context.Background(), testEvent())
	})

	assert.False(t, out.InApp)
	assert.Empty(t, out.EmailJobID)
	assert.Equal(t, 1, out.Push.Sent)
}

func TestNotifyAll(t *testing.T) {
	f := newFixture(t)

	ev := testEvent()
	ev.UserID = ""
	outcomes := f.notifier.NotifyAll(context.Background(), []string{"u1", "u2", "u3"}, ev)

	require.Len(t, outcomes, 3)
	assert.Equal(t, []string{"u1", "u2", "u3"}, f.inApp.created)
	for _, out := range outcomes {
		assert.True(t, out.InApp)
		assert.Equal(t, "job-1", out.EmailJobID)
	}
}

// internal/notify/notifier.go
package notify

import (
	"context"
	"time"

	"formative-notifications/internal/models"
	"formative-notifications/internal/notify/prefs"
	"formative-notifications/internal/notify/push"

	"formative-notifications/internal/common/logger"
)

// Event is one application occurrence worth telling a user about: a message
// sent, a payment recorded, a deadline passed.
type Event struct {
	UserID    string                 `json:"userId"`
	Category  string                 `json:"category"` // models.Category*
	Template  string                 `json:"template"` // email template name; generic fallback when unknown
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	ActionURL string                 `json:"actionUrl,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Outcome reports what each channel did for one event.
type Outcome struct {
	InApp      bool            `json:"inApp"`
	EmailJobID string          `json:"emailJobId,omitempty"`
	Push       push.SendResult `json:"push"`
}

// PreferenceSource yields a user's opt-in matrix.
type PreferenceSource interface {
	Get(ctx context.Context, userID string) (*models.NotificationPreferences, error)
}

// InAppSink persists in-app feed rows.
type InAppSink interface {
	Create(ctx context.Context, userID, category, title, message, actionURL string) (*models.Notification, error)
}

// EmailSink enqueues deferred email jobs.
type EmailSink interface {
	Enqueue(ctx context.Context, userID, template, title, message string, data map[string]interface{}) (string, error)
}

// PushSink fans a notification out to a user's devices.
type PushSink interface {
	SendToUser(ctx context.Context, userID, title, body string, data map[string]interface{}) push.SendResult
}

// Notifier is the caller-facing entry point of the pipeline. It is the one
// place preference gating happens: the queue, dispatchers and stores below it
// trust their caller and perform no gating of their own.
//
// Quiet hours suppress email and push; the in-app row is always eligible since
// it makes no noise.
type Notifier struct {
	prefs  PreferenceSource
	inApp  InAppSink
	email  EmailSink
	push   PushSink
	logger logger.Logger
	now    func() time.Time
}

func NewNotifier(p PreferenceSource, inApp InAppSink, emailSink EmailSink, pushSink PushSink, log logger.Logger) *Notifier {
	return &Notifier{
		prefs:  p,
		inApp:  inApp,
		email:  emailSink,
		push:   pushSink,
		logger: log.WithFields(map[string]interface{}{"component": "notifier"}),
		now:    time.Now,
	}
}

// Notify runs one event through preference gating and every enabled channel.
// Channel failures are absorbed and logged; the outcome records what actually
// happened. A notification the user opted out of is not a failure.
func (n *Notifier) Notify(ctx context.Context, ev Event) Outcome {
	p, err := n.prefs.Get(ctx, ev.UserID)
	if err != nil {
		// Default-on applies to unreachable preferences too: losing a
		// notification over a settings read is the worse outcome.
		n.logger.Warn("preference read failed, using defaults", map[string]interface{}{
			"userId": ev.UserID,
			"error":  err.Error(),
		})
		p = models.DefaultPreferences(ev.UserID)
	}

	var out Outcome
	quiet := prefs.InQuietHours(p, n.now())

	if p.Enabled(models.ChannelInApp, ev.Category) {
		if _, err := n.inApp.Create(ctx, ev.UserID, ev.Category, ev.Title, ev.Message, ev.ActionURL); err != nil {
			n.logger.Error("in-app notification failed", map[string]interface{}{
				"userId": ev.UserID,
				"error":  err.Error(),
			})
		} else {
			out.InApp = true
		}
	}

	if quiet {
		n.logger.Debug("quiet hours, suppressing email and push", map[string]interface{}{
			"userId": ev.UserID,
		})
		return out
	}

	if p.Enabled(models.ChannelEmail, ev.Category) {
		data := ev.Data
		if ev.ActionURL != "" {
			data = cloneWith(ev.Data, "actionUrl", ev.ActionURL)
		}
		jobID, err := n.email.Enqueue(ctx, ev.UserID, ev.Template, ev.Title, ev.Message, data)
		if err != nil {
			n.logger.Error("email enqueue failed", map[string]interface{}{
				"userId": ev.UserID,
				"error":  err.Error(),
			})
		} else {
			out.EmailJobID = jobID
		}
	}

	if p.Enabled(models.ChannelPush, ev.Category) {
		data := ev.Data
		if ev.ActionURL != "" {
			data = cloneWith(ev.Data, "url", ev.ActionURL)
		}
		out.Push = n.push.SendToUser(ctx, ev.UserID, ev.Title, ev.Message, data)
	}

	return out
}

// NotifyAll runs the same event for several recipients sequentially. Push
// fan-out across devices already runs concurrently inside SendToUser.
func (n *Notifier) NotifyAll(ctx context.Context, userIDs []string, ev Event) []Outcome {
	outcomes := make([]Outcome, 0, len(userIDs))
	for _, id := range userIDs {
		e := ev
		e.UserID = id
		outcomes = append(outcomes, n.Notify(ctx, e))
	}
	return outcomes
}

func cloneWith(data map[string]interface{}, key string, value interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data)+1)
	for k, v := range data {
		out[k] = v
	}
	out[key] = value
	return out
}

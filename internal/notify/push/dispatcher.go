// internal/notify/push/dispatcher.go
package push

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"formative-notifications/internal/common/config"
	"formative-notifications/internal/common/errors"
	"formative-notifications/internal/common/logger"
	"formative-notifications/internal/common/metrics"
	"formative-notifications/internal/models"
)

// WebPushService sends one encrypted payload to one subscription endpoint.
type WebPushService interface {
	Send(ctx context.Context, message []byte, sub *webpush.Subscription, opts *webpush.Options) (*http.Response, error)
}

type webPushClient struct{}

func (webPushClient) Send(ctx context.Context, message []byte, sub *webpush.Subscription, opts *webpush.Options) (*http.Response, error) {
	return webpush.SendNotificationWithContext(ctx, message, sub, opts)
}

// NewWebPushClient returns the production Web Push sender.
func NewWebPushClient() WebPushService {
	return webPushClient{}
}

// payload is the wire shape ultimately delivered to the service worker.
type payload struct {
	Title              string                 `json:"title"`
	Body               string                 `json:"body"`
	Icon               string                 `json:"icon"`
	Badge              string                 `json:"badge"`
	Tag                string                 `json:"tag"`
	Data               map[string]interface{} `json:"data"`
	Actions            []payloadAction        `json:"actions"`
	Timestamp          int64                  `json:"timestamp"`
	RequireInteraction bool                   `json:"requireInteraction"`
}

type payloadAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

// SendResult summarizes one user's fan-out. Sent and Failed count devices;
// an expired endpoint counts as failed and is additionally purged.
type SendResult struct {
	Success bool   `json:"success"`
	Sent    int    `json:"sent"`
	Failed  int    `json:"failed"`
	Total   int    `json:"total"`
	Error   string `json:"error,omitempty"`
}

// FanoutResult aggregates SendToUsers. Users counts recipients; Sent/Failed
// count messages, since one user may have multiple devices.
type FanoutResult struct {
	Users  int `json:"users"`
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
	Total  int `json:"total"`
}

// Dispatcher fans a notification out to every registered device of a user.
// The provider is nil when VAPID keys are absent; SendToUser is then a no-op
// success with zero sends.
type Dispatcher struct {
	provider WebPushService
	registry *Registry
	cfg      config.PushConfig
	logger   logger.Logger
}

func NewDispatcher(provider WebPushService, registry *Registry, cfg config.PushConfig, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		provider: provider,
		registry: registry,
		cfg:      cfg,
		logger:   log.WithFields(map[string]interface{}{"component": "push-dispatcher"}),
	}
}

// Configured reports whether a provider is present.
func (d *Dispatcher) Configured() bool {
	return d.provider != nil
}

// SendToUser sends one payload to every subscription of the user
// independently. Partial failure of one device never blocks others, and
// per-device provider errors never propagate: the function always returns a
// summary. Only a registry failure outside the per-device loop yields
// Success=false.
func (d *Dispatcher) SendToUser(ctx context.Context, userID, title, body string, data map[string]interface{}) SendResult {
	if d.provider == nil {
		stdErr := errors.NewPushNotConfiguredError()
		d.logger.Debug("push skipped", map[string]interface{}{
			"userId": userID,
			"code":   string(stdErr.Code),
		})
		return SendResult{Success: true}
	}

	subs, err := d.registry.ListByUser(ctx, userID)
	if err != nil {
		d.logger.Error("failed to list subscriptions", map[string]interface{}{
			"userId": userID,
			"error":  err.Error(),
		})
		return SendResult{Success: false, Error: err.Error()}
	}
	if len(subs) == 0 {
		return SendResult{Success: true}
	}

	message, err := json.Marshal(d.buildPayload(title, body, data))
	if err != nil {
		return SendResult{Success: false, Error: fmt.Sprintf("marshal payload: %v", err)}
	}

	opts := &webpush.Options{
		Subscriber:      d.cfg.Subscriber,
		VAPIDPublicKey:  d.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: d.cfg.VAPIDPrivateKey,
		TTL:             d.cfg.TTL,
	}

	result := SendResult{Success: true, Total: len(subs)}
	var expired []string

	for _, sub := range subs {
		ok, gone := d.sendOne(ctx, message, sub, opts)
		if ok {
			result.Sent++
			metrics.PushMessages.WithLabelValues("sent").Inc()
			if err := d.registry.Touch(ctx, sub.ID); err != nil {
				d.logger.Warn("failed to update last_used_at", map[string]interface{}{
					"subscriptionId": sub.ID,
					"error":          err.Error(),
				})
			}
			continue
		}
		result.Failed++
		if gone {
			expired = append(expired, sub.ID)
			metrics.PushMessages.WithLabelValues("expired").Inc()
		} else {
			metrics.PushMessages.WithLabelValues("failed").Inc()
		}
	}

	if len(expired) > 0 {
		if err := d.registry.DeleteExpired(ctx, expired); err != nil {
			d.logger.Error("failed to purge expired subscriptions", map[string]interface{}{
				"userId": userID,
				"error":  err.Error(),
			})
		} else {
			metrics.PushSubscriptionsPurged.Add(float64(len(expired)))
		}
	}

	return result
}

// sendOne reports (delivered, endpointGone). A transport error or a non-2xx
// status other than 404/410 is a transient failure: the subscription is kept
// and the next scheduled notification is the implicit retry.
func (d *Dispatcher) sendOne(ctx context.Context, message []byte, sub *models.PushSubscription, opts *webpush.Options) (bool, bool) {
	resp, err := d.provider.Send(ctx, message, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}, opts)
	if err != nil {
		stdErr := errors.NewPushSendFailedError(err)
		d.logger.Warn("push send failed", map[string]interface{}{
			"subscriptionId": sub.ID,
			"code":           string(stdErr.Code),
			"error":          err.Error(),
		})
		return false, false
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		stdErr := errors.NewPushEndpointGoneError(sub.Endpoint, resp.StatusCode)
		d.logger.Info("push endpoint gone, flagging subscription", map[string]interface{}{
			"subscriptionId": sub.ID,
			"code":           string(stdErr.Code),
			"statusCode":     resp.StatusCode,
		})
		return false, true
	case resp.StatusCode >= 400:
		d.logger.Warn("push service rejected send", map[string]interface{}{
			"subscriptionId": sub.ID,
			"statusCode":     resp.StatusCode,
		})
		return false, false
	}
	return true, false
}

// SendToUsers fans SendToUser out concurrently across the given users and sums
// the per-user counts.
func (d *Dispatcher) SendToUsers(ctx context.Context, userIDs []string, title, body string, data map[string]interface{}) FanoutResult {
	result := FanoutResult{Users: len(userIDs)}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, userID := range userIDs {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			r := d.SendToUser(ctx, id, title, body, data)
			mu.Lock()
			result.Sent += r.Sent
			result.Failed += r.Failed
			result.Total += r.Total
			mu.Unlock()
		}(userID)
	}
	wg.Wait()

	return result
}

func (d *Dispatcher) buildPayload(title, body string, data map[string]interface{}) payload {
	if data == nil {
		data = map[string]interface{}{}
	}

	now := time.Now()
	tag := fmt.Sprintf("formative-%d", now.UnixMilli())
	if t, ok := data["tag"].(string); ok && t != "" {
		tag = t
	}

	return payload{
		Title: title,
		Body:  body,
		Icon:  d.cfg.DefaultIcon,
		Badge: d.cfg.DefaultBadge,
		Tag:   tag,
		Data:  data,
		Actions: []payloadAction{
			{Action: "open", Title: "Open"},
			{Action: "dismiss", Title: "Dismiss"},
		},
		Timestamp:          now.UnixMilli(),
		RequireInteraction: false,
	}
}

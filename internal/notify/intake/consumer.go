// internal/notify/intake/consumer.go
package intake

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"formative-notifications/internal/common/logger"
	"formative-notifications/internal/notify"
)

// EventQueueKey is the redis list the marketplace backend pushes notification
// events onto.
const EventQueueKey = "notify:events"

// Dispatcher is the part of notify.Notifier the consumer drives.
type Dispatcher interface {
	Notify(ctx context.Context, ev notify.Event) notify.Outcome
}

// Consumer drains notification events from a redis list and hands each one to
// the notifier. It is the service's only ingress: the HTTP application pushes
// serialized events and never talks to the pipeline directly.
type Consumer struct {
	client   *redis.Client
	notifier Dispatcher
	logger   logger.Logger

	wg      sync.WaitGroup
	cancel  context.CancelFunc
	started bool
}

func NewConsumer(client *redis.Client, notifier Dispatcher, log logger.Logger) *Consumer {
	return &Consumer{
		client:   client,
		notifier: notifier,
		logger:   log.WithFields(map[string]interface{}{"component": "event-intake"}),
	}
}

// Start launches the blocking-pop loop. Calling Start twice is a no-op.
func (c *Consumer) Start(ctx context.Context) {
	if c.started {
		return
	}
	c.started = true

	ctx, c.cancel = context.WithCancel(ctx)

	c.logger.Info("event intake started", map[string]interface{}{"queue": EventQueueKey})

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			res, err := c.client.BLPop(ctx, 5*time.Second, EventQueueKey).Result()
			if err != nil {
				if err == redis.Nil || ctx.Err() != nil {
					continue
				}
				c.logger.Error("event pop failed", map[string]interface{}{"error": err.Error()})
				// Back off so a dead redis doesn't spin the loop.
				select {
				case <-ctx.Done():
					return
				case <-time.After(2 * time.Second):
				}
				continue
			}
			if len(res) < 2 {
				continue
			}
			c.handle(ctx, []byte(res[1]))
		}
	}()
}

// Stop cancels the loop and waits for the in-flight event to finish.
func (c *Consumer) Stop() {
	if !c.started {
		return
	}
	c.cancel()
	c.wg.Wait()
	c.logger.Info("event intake stopped", nil)
}

func (c *Consumer) handle(ctx context.Context, raw []byte) {
	var ev notify.Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		c.logger.Warn("dropping malformed event", map[string]interface{}{"error": err.Error()})
		return
	}
	if ev.UserID == "" {
		c.logger.Warn("dropping event without user", nil)
		return
	}

	outcome := c.notifier.Notify(ctx, ev)
	c.logger.Debug("event handled", map[string]interface{}{
		"userId":     ev.UserID,
		"category":   ev.Category,
		"inApp":      outcome.InApp,
		"emailJobId": outcome.EmailJobID,
		"pushSent":   outcome.Push.Sent,
	})
}

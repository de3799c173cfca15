// internal/notify/email/processor.go
package email

import (
	"context"
	"sync"
	"time"

	"formative-notifications/internal/common/logger"
	"formative-notifications/internal/common/metrics"
	"formative-notifications/internal/common/observability"
)

// queueDrainer is the part of Queue the processor drives.
type queueDrainer interface {
	ProcessQueue(ctx context.Context) ProcessResult
}

// Processor is the scheduler handle for the email queue: a repeating timer
// that drains one batch per tick. It is constructed and started only when the
// email channel is configured; an unconfigured channel simply never gets a
// processor.
//
// At most one tick runs at a time. A tick that fires while the previous one
// is still in flight is dropped and counted, so overlapping ticks can never
// race on the same rows.
type Processor struct {
	queue    queueDrainer
	logger   logger.Logger
	obs      *observability.Observability
	interval time.Duration

	inFlight sync.Mutex
	wg       sync.WaitGroup
	cancel   context.CancelFunc
	started  bool
}

func NewProcessor(queue queueDrainer, log logger.Logger, obs *observability.Observability, interval time.Duration) *Processor {
	return &Processor{
		queue:    queue,
		logger:   log.WithFields(map[string]interface{}{"component": "queue-processor"}),
		obs:      obs,
		interval: interval,
	}
}

// Start launches the timer loop. Calling Start twice is a no-op.
func (p *Processor) Start(ctx context.Context) {
	if p.started {
		return
	}
	p.started = true

	ctx, p.cancel = context.WithCancel(ctx)

	p.logger.Info("queue processor started", map[string]interface{}{
		"interval": p.interval.String(),
	})

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.wg.Add(1)
				go func() {
					defer p.wg.Done()
					p.tick(ctx)
				}()
			}
		}
	}()
}

// Stop cancels the loop and waits for an in-flight tick to finish.
func (p *Processor) Stop() {
	if !p.started {
		return
	}
	p.cancel()
	p.wg.Wait()
	p.logger.Info("queue processor stopped", nil)
}

func (p *Processor) tick(ctx context.Context) {
	if !p.inFlight.TryLock() {
		metrics.EmailQueueTicksSkipped.Inc()
		p.logger.Warn("tick skipped, previous tick still in flight", nil)
		return
	}
	defer p.inFlight.Unlock()

	start := time.Now()
	result := p.queue.ProcessQueue(ctx)
	elapsed := time.Since(start)

	metrics.EmailQueueTickDuration.Observe(elapsed.Seconds())

	status := "ok"
	if result.Error != "" {
		status = "error"
	}
	if p.obs != nil {
		p.obs.RecordTick(ctx, status)
		p.obs.RecordTickDuration(ctx, elapsed, status)
	}

	// Silent on empty ticks.
	if result.Processed > 0 || result.Failed > 0 || result.Error != "" {
		p.logger.Info("queue tick", map[string]interface{}{
			"processed": result.Processed,
			"failed":    result.Failed,
			"total":     result.Total,
			"error":     result.Error,
			"duration":  elapsed.String(),
		})
	}
}

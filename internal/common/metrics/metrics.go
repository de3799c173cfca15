// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EmailJobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_email_jobs_total",
			Help: "Total number of email jobs processed by outcome",
		},
		[]string{"outcome"}, // sent, failed, exhausted
	)

	EmailQueueTickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "notification_email_queue_tick_duration_seconds",
			Help: "Duration of one email queue processing tick",
		},
	)

	EmailQueueTicksSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_email_queue_ticks_skipped_total",
			Help: "Ticks skipped because a previous tick was still in flight",
		},
	)

	PushMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_push_messages_total",
			Help: "Total number of per-subscription push sends by outcome",
		},
		[]string{"outcome"}, // sent, failed, expired
	)

	PushSubscriptionsPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_push_subscriptions_purged_total",
			Help: "Push subscriptions deleted after the provider reported them gone",
		},
	)

	InAppNotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_inapp_created_total",
			Help: "Total number of in-app notification rows created",
		},
		[]string{"category"},
	)
)

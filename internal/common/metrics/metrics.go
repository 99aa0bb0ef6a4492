// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NotificationsScheduled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_scheduled_total",
			Help: "Total number of notifications inserted by the reminder cascade",
		},
		[]string{"type"},
	)

	NotificationsCancelled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_cancelled_total",
			Help: "Total number of pending notifications cancelled",
		},
		[]string{"reason"},
	)

	DispatcherProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatcher_notifications_processed_total",
			Help: "Total number of due notifications processed per terminal outcome",
		},
		[]string{"status"},
	)

	DispatcherTickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "dispatcher_tick_duration_seconds",
			Help: "Duration of one due-notification sweep in seconds",
		},
	)

	DispatcherBatchSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dispatcher_batch_size",
			Help: "Number of due rows picked up by the last sweep",
		},
	)

	CommentNotificationsRouted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comment_notifications_routed_total",
			Help: "Total number of comment notifications routed per kind",
		},
		[]string{"kind"},
	)
)

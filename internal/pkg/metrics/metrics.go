// Package metrics exposes prometheus collectors for the webhook pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callflow_events_received_total",
		Help: "Inbound webhook deliveries by provider.",
	}, []string{"provider"})

	EventsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callflow_events_rejected_total",
		Help: "Deliveries rejected before storage, by reason.",
	}, []string{"reason"})

	EventsDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callflow_events_duplicate_total",
		Help: "Re-deliveries short-circuited by the idempotency check.",
	})

	EventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callflow_events_processed_total",
		Help: "Events that reached a terminal processing status.",
	}, []string{"event_type", "status"})

	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callflow_notifications_created_total",
		Help: "Notifications persisted, by priority.",
	}, []string{"priority"})

	NotificationsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callflow_notifications_delivered_total",
		Help: "Successful sink deliveries.",
	})

	NotificationsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callflow_notifications_failed_total",
		Help: "Failed sink delivery attempts.",
	})

	NotifyQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "callflow_notify_queue_depth",
		Help: "Notifications waiting in the delivery queue.",
	})
)

package notify

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"callflow/internal/pkg/metrics"
	"callflow/internal/platform/models"
	"callflow/internal/platform/repositories"
)

// Queue is a bounded in-memory handoff between the dispatcher and the
// delivery workers. Enqueue never blocks: webhook acknowledgments must not
// wait on sink I/O, and anything the queue cannot hold is picked up later
// by the sweeper from the notifications table.
type Queue struct {
	ch     chan *models.Notification
	mu     sync.RWMutex
	closed bool
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 1024
	}
	return &Queue{ch: make(chan *models.Notification, size)}
}

func (q *Queue) Enqueue(n *models.Notification) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return false
	}

	select {
	case q.ch <- n:
		metrics.NotifyQueueDepth.Set(float64(len(q.ch)))
		return true
	default:
		return false
	}
}

func (q *Queue) Dequeue() <-chan *models.Notification {
	return q.ch
}

func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}

// DeliveryWorker drains the queue and runs sink deliveries, recording the
// outcome of every attempt on the notification row.
type DeliveryWorker struct {
	queue       *Queue
	sink        Sink
	repo        *repositories.NotificationRepository
	maxAttempts int
}

func NewDeliveryWorker(queue *Queue, sink Sink, repo *repositories.NotificationRepository, maxAttempts int) *DeliveryWorker {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &DeliveryWorker{queue: queue, sink: sink, repo: repo, maxAttempts: maxAttempts}
}

// Run processes deliveries until the context is canceled or the queue is
// closed.
func (w *DeliveryWorker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-w.queue.Dequeue():
			if !ok {
				return
			}
			metrics.NotifyQueueDepth.Set(float64(len(w.queue.ch)))
			w.deliver(ctx, n)
		}
	}
}

func (w *DeliveryWorker) deliver(ctx context.Context, n *models.Notification) {
	if err := w.sink.Deliver(ctx, n); err != nil {
		metrics.NotificationsFailed.Inc()
		log.Warn().Err(err).Str("notification_id", n.ID).Msg("notification delivery failed")
		if err := w.repo.MarkAttemptFailed(ctx, n.ID, err.Error(), w.maxAttempts); err != nil {
			log.Error().Err(err).Str("notification_id", n.ID).Msg("failed to record delivery attempt")
		}
		return
	}

	metrics.NotificationsDelivered.Inc()
	if err := w.repo.MarkDelivered(ctx, n.ID); err != nil {
		log.Error().Err(err).Str("notification_id", n.ID).Msg("failed to record delivery")
	}
}

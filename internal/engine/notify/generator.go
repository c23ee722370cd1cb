// Package notify turns high-relevance processing results into prioritized
// notifications and hands them to a delivery sink.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"callflow/internal/pkg/metrics"
	"callflow/internal/platform/models"
	"callflow/internal/platform/repositories"
)

const (
	highPriorityScore   = 0.8
	mediumPriorityScore = 0.6

	maxMessageInsights    = 3
	maxMessageActionItems = 2

	defaultMessage = "New conversation activity detected"
)

type Generator struct {
	repo  *repositories.NotificationRepository
	queue *Queue // nil disables delivery handoff (batch producers)
}

func NewGenerator(repo *repositories.NotificationRepository, queue *Queue) *Generator {
	return &Generator{repo: repo, queue: queue}
}

// Generate persists a notification for a relevant result and enqueues it
// for delivery. Returns nil for irrelevant results. Enqueueing is
// best-effort: a full queue leaves the row pending for the sweeper, it
// never blocks the webhook acknowledgment.
func (g *Generator) Generate(ctx context.Context, event *models.WebhookEvent, result *models.ProcessingResult) (*models.Notification, error) {
	if result == nil || !result.Relevant {
		return nil, nil
	}

	n := &models.Notification{
		ID:             "ntf_" + uuid.New().String(),
		EventID:        event.EventID,
		WorkspaceID:    event.WorkspaceID,
		Priority:       PriorityFor(result.RelevanceScore),
		Title:          buildTitle(event),
		Message:        buildMessage(result),
		ActionRequired: len(result.ActionItems) > 0,
		DeliveryStatus: models.DeliveryPending,
		CreatedAt:      time.Now().Unix(),
	}

	if err := g.repo.Create(ctx, n); err != nil {
		return nil, err
	}
	metrics.NotificationsCreated.WithLabelValues(n.Priority).Inc()

	if g.queue != nil {
		if !g.queue.Enqueue(n) {
			log.Warn().Str("notification_id", n.ID).Msg("delivery queue full, leaving notification for sweeper")
		}
	}

	return n, nil
}

// PriorityFor maps a relevance score onto the notification priority scale.
func PriorityFor(score float64) string {
	switch {
	case score > highPriorityScore:
		return models.PriorityHigh
	case score > mediumPriorityScore:
		return models.PriorityMedium
	default:
		return models.PriorityNormal
	}
}

func buildTitle(event *models.WebhookEvent) string {
	return fmt.Sprintf("Relevant conversation activity (%s)", event.EventType)
}

// buildMessage joins up to three insights and two action items into a
// human-readable summary.
func buildMessage(result *models.ProcessingResult) string {
	var parts []string

	insights := result.Insights
	if len(insights) > maxMessageInsights {
		insights = insights[:maxMessageInsights]
	}
	parts = append(parts, insights...)

	actions := result.ActionItems
	if len(actions) > maxMessageActionItems {
		actions = actions[:maxMessageActionItems]
	}
	if len(actions) > 0 {
		parts = append(parts, "Next steps: "+strings.Join(actions, "; "))
	}

	if len(parts) == 0 {
		return defaultMessage
	}
	return strings.Join(parts, ". ")
}

package repositories

import (
	"context"
	"database/sql"
	"time"

	"callflow/internal/platform/models"
)

type NotificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (id, event_id, workspace_id, priority, title, message, action_required, delivery_status, delivery_attempts, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		n.ID, n.EventID, n.WorkspaceID, n.Priority, n.Title, n.Message,
		boolToInt(n.ActionRequired), n.DeliveryStatus, n.CreatedAt)
	return err
}

// ListByCustomer returns the customer's notifications, most recent first.
// Customer scoping goes through the subscriptions table since notification
// rows only carry the workspace.
func (r *NotificationRepository) ListByCustomer(ctx context.Context, customerID string, limit int) ([]*models.Notification, error) {
	query := `
		SELECT n.id, n.event_id, n.workspace_id, n.priority, n.title, n.message, n.action_required, n.delivery_status, n.delivery_attempts, n.last_error, n.created_at, n.delivered_at
		FROM notifications n
		JOIN subscriptions s ON s.workspace_id = n.workspace_id
		WHERE s.customer_id = ?
		ORDER BY n.created_at DESC, n.id DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, customerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanNotifications(rows)
}

// ListUndelivered returns pending notifications still under the attempt cap,
// oldest first, for the sweeper.
func (r *NotificationRepository) ListUndelivered(ctx context.Context, maxAttempts, limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, event_id, workspace_id, priority, title, message, action_required, delivery_status, delivery_attempts, last_error, created_at, delivered_at
		FROM notifications
		WHERE delivery_status = 'pending' AND delivery_attempts < ?
		ORDER BY created_at ASC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, maxAttempts, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanNotifications(rows)
}

func (r *NotificationRepository) MarkDelivered(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE notifications
		SET delivery_status = ?, delivery_attempts = delivery_attempts + 1, delivered_at = ?, last_error = NULL
		WHERE id = ?
	`, models.DeliveryDelivered, time.Now().Unix(), id)
	return err
}

// MarkAttemptFailed records a failed delivery attempt. The row stays pending
// for the sweeper until the attempt cap is reached, then flips to failed.
func (r *NotificationRepository) MarkAttemptFailed(ctx context.Context, id, lastError string, maxAttempts int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE notifications
		SET delivery_attempts = delivery_attempts + 1,
		    last_error = ?,
		    delivery_status = CASE WHEN delivery_attempts + 1 >= ? THEN ? ELSE ? END
		WHERE id = ?
	`, lastError, maxAttempts, models.DeliveryFailed, models.DeliveryPending, id)
	return err
}

func (r *NotificationRepository) CountByEvent(ctx context.Context, eventID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE event_id = ?`, eventID).Scan(&n)
	return n, err
}

func scanNotifications(rows *sql.Rows) ([]*models.Notification, error) {
	var out []*models.Notification
	for rows.Next() {
		var n models.Notification
		var actionRequired int
		var lastError sql.NullString
		var deliveredAt sql.NullInt64

		if err := rows.Scan(&n.ID, &n.EventID, &n.WorkspaceID, &n.Priority, &n.Title, &n.Message,
			&actionRequired, &n.DeliveryStatus, &n.DeliveryAttempts, &lastError, &n.CreatedAt, &deliveredAt); err != nil {
			return nil, err
		}

		n.ActionRequired = actionRequired != 0
		if lastError.Valid {
			n.LastError = lastError.String
		}
		if deliveredAt.Valid {
			n.DeliveredAt = deliveredAt.Int64
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

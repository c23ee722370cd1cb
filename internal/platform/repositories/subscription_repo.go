package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"callflow/internal/platform/models"
)

type SubscriptionRepository struct {
	db *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Upsert inserts or updates on the (customer_id, workspace_id) composite key.
// The secret column is deliberately excluded from the update set: in-flight
// deliveries are verified against the secret handed out at first
// registration, so re-registering must never rotate it.
func (r *SubscriptionRepository) Upsert(ctx context.Context, s *models.Subscription) error {
	eventTypes, err := json.Marshal(s.EventTypes)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO subscriptions (id, customer_id, workspace_id, event_types, target_url, secret, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(customer_id, workspace_id) DO UPDATE SET
			event_types = excluded.event_types,
			target_url = excluded.target_url,
			active = excluded.active,
			updated_at = excluded.updated_at
	`
	_, err = r.db.ExecContext(ctx, query,
		s.ID, s.CustomerID, s.WorkspaceID, string(eventTypes), s.TargetURL, s.Secret,
		boolToInt(s.Active), s.CreatedAt, s.UpdatedAt)
	return err
}

func (r *SubscriptionRepository) GetByKey(ctx context.Context, customerID, workspaceID string) (*models.Subscription, error) {
	query := `
		SELECT id, customer_id, workspace_id, event_types, target_url, secret, active, created_at, updated_at
		FROM subscriptions WHERE customer_id = ? AND workspace_id = ?
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, customerID, workspaceID))
}

// GetByWorkspace returns the active subscription covering a workspace.
// The verifier uses this to resolve the shared secret before the payload
// is trusted.
func (r *SubscriptionRepository) GetByWorkspace(ctx context.Context, workspaceID string) (*models.Subscription, error) {
	query := `
		SELECT id, customer_id, workspace_id, event_types, target_url, secret, active, created_at, updated_at
		FROM subscriptions
		WHERE workspace_id = ? AND active = 1
		ORDER BY created_at ASC
		LIMIT 1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, workspaceID))
}

func (r *SubscriptionRepository) Deactivate(ctx context.Context, customerID, workspaceID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions SET active = 0, updated_at = ?
		WHERE customer_id = ? AND workspace_id = ?
	`, time.Now().Unix(), customerID, workspaceID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *SubscriptionRepository) scanOne(row *sql.Row) (*models.Subscription, error) {
	var s models.Subscription
	var eventTypes string
	var active int

	err := row.Scan(&s.ID, &s.CustomerID, &s.WorkspaceID, &eventTypes, &s.TargetURL, &s.Secret,
		&active, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	s.Active = active != 0
	json.Unmarshal([]byte(eventTypes), &s.EventTypes)

	return &s, nil
}

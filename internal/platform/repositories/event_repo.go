package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/mattn/go-sqlite3"

	"callflow/internal/platform/models"
)

type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// InsertIfAbsent stores the event unless its event_id already exists.
// Returns false for a duplicate delivery. This is the sole idempotency
// boundary: a constraint violation on the primary key counts as a
// duplicate, never as a failure.
func (r *EventRepository) InsertIfAbsent(ctx context.Context, event *models.WebhookEvent) (bool, error) {
	insights, err := json.Marshal(event.Insights)
	if err != nil {
		return false, err
	}

	query := `
		INSERT OR IGNORE INTO events (event_id, event_type, workspace_id, call_id, user_id, received_at, payload, processing_status, insights)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := r.db.ExecContext(ctx, query,
		event.EventID, string(event.EventType), event.WorkspaceID,
		nullable(event.CallID), nullable(event.UserID),
		event.ReceivedAt, string(event.Payload), models.StatusPending, string(insights))
	if err != nil {
		if isConstraintViolation(err) {
			return false, nil
		}
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkProcessed writes the scoring outcome and the terminal status. A nil
// result updates the status only, which is how failed scoring attempts are
// recorded without clobbering anything. Safe to retry.
func (r *EventRepository) MarkProcessed(ctx context.Context, eventID string, result *models.ProcessingResult, status string) error {
	if result == nil {
		_, err := r.db.ExecContext(ctx,
			`UPDATE events SET processing_status = ? WHERE event_id = ?`, status, eventID)
		return err
	}

	insights, err := json.Marshal(result.Insights)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE events
		SET processing_status = ?, relevance_score = ?, insights = ?
		WHERE event_id = ?
	`, status, result.RelevanceScore, string(insights), eventID)
	return err
}

func (r *EventRepository) GetByID(ctx context.Context, eventID string) (*models.WebhookEvent, error) {
	query := `
		SELECT event_id, event_type, workspace_id, call_id, user_id, received_at, payload, processing_status, relevance_score, insights
		FROM events WHERE event_id = ?
	`
	row := r.db.QueryRowContext(ctx, query, eventID)

	var e models.WebhookEvent
	var eventType, payload, insightsStr string
	var callID, userID sql.NullString
	var score sql.NullFloat64

	err := row.Scan(&e.EventID, &eventType, &e.WorkspaceID, &callID, &userID,
		&e.ReceivedAt, &payload, &e.ProcessingStatus, &score, &insightsStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	e.EventType = models.EventType(eventType)
	e.Payload = json.RawMessage(payload)
	if callID.Valid {
		e.CallID = callID.String
	}
	if userID.Valid {
		e.UserID = userID.String
	}
	if score.Valid {
		s := score.Float64
		e.RelevanceScore = &s
	}
	json.Unmarshal([]byte(insightsStr), &e.Insights)

	return &e, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func isConstraintViolation(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.Code == sqlite3.ErrConstraint
	}
	return false
}

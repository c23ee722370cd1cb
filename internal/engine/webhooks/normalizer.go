package webhooks

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"callflow/internal/platform/models"
)

var ErrMalformedEvent = errors.New("malformed event")

type envelope struct {
	EventID     string          `json:"event_id"`
	EventType   string          `json:"event_type"`
	WorkspaceID string          `json:"workspace_id"`
	CallID      string          `json:"call_id"`
	UserID      string          `json:"user_id"`
	Timestamp   json.RawMessage `json:"timestamp"`
}

// PeekWorkspace extracts the workspace id from a still-unverified envelope.
// It is trusted only enough to look up the subscription secret; nothing
// else is read before the signature check passes.
func PeekWorkspace(raw []byte) string {
	var env struct {
		WorkspaceID string `json:"workspace_id"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return ""
	}
	return env.WorkspaceID
}

// Normalize parses a raw envelope into a canonical WebhookEvent. A missing
// event_id is derived from a content hash of the body rather than the
// clock, so re-deliveries without an id still dedupe and concurrent
// deliveries of distinct events can never collide.
func Normalize(raw []byte, now time.Time) (*models.WebhookEvent, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	if env.EventType == "" {
		return nil, fmt.Errorf("%w: event_type is required", ErrMalformedEvent)
	}
	if env.WorkspaceID == "" {
		return nil, fmt.Errorf("%w: workspace_id is required", ErrMalformedEvent)
	}

	eventID := env.EventID
	if eventID == "" {
		sum := sha256.Sum256(raw)
		eventID = "evt_" + hex.EncodeToString(sum[:])[:16]
	}

	return &models.WebhookEvent{
		EventID:          eventID,
		EventType:        models.EventType(env.EventType),
		WorkspaceID:      env.WorkspaceID,
		CallID:           env.CallID,
		UserID:           env.UserID,
		ReceivedAt:       parseTimestamp(env.Timestamp, now).Unix(),
		Payload:          json.RawMessage(raw),
		ProcessingStatus: models.StatusPending,
	}, nil
}

// parseTimestamp accepts RFC3339 strings or unix seconds and falls back to
// the ingestion time for anything missing or unparseable.
func parseTimestamp(raw json.RawMessage, now time.Time) time.Time {
	if len(raw) == 0 {
		return now
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t
		}
		return now
	}

	var unix int64
	if err := json.Unmarshal(raw, &unix); err == nil && unix > 0 {
		return time.Unix(unix, 0)
	}

	return now
}

package models

import "encoding/json"

type EventType string

const (
	EventCallRecorded     EventType = "call.recorded"
	EventCallTranscribed  EventType = "call.transcribed"
	EventCallAnalyzed     EventType = "call.analyzed"
	EventCallShared       EventType = "call.shared"
	EventUserCreated      EventType = "user.created"
	EventWorkspaceUpdated EventType = "workspace.updated"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// WebhookEvent is a normalized inbound event. EventID is the idempotency key;
// the raw envelope is retained in Payload for the type-specific analyzers.
type WebhookEvent struct {
	EventID          string          `json:"event_id"`
	EventType        EventType       `json:"event_type"`
	WorkspaceID      string          `json:"workspace_id"`
	CallID           string          `json:"call_id,omitempty"`
	UserID           string          `json:"user_id,omitempty"`
	ReceivedAt       int64           `json:"received_at"`
	Payload          json.RawMessage `json:"payload"`
	ProcessingStatus string          `json:"processing_status"`
	RelevanceScore   *float64        `json:"relevance_score,omitempty"`
	Insights         []string        `json:"insights,omitempty"`
}

// ProcessingResult is produced by the scoring engine and consumed by the
// dispatcher and notification generator. It is never persisted as-is.
type ProcessingResult struct {
	Relevant       bool               `json:"relevant"`
	RelevanceScore float64            `json:"relevance_score"`
	Insights       []string           `json:"insights"`
	ActionItems    []string           `json:"action_items"`
	Metrics        map[string]float64 `json:"type_specific_metrics,omitempty"`
}

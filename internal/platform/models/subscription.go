package models

type Subscription struct {
	ID          string   `json:"id"`
	CustomerID  string   `json:"customer_id"`
	WorkspaceID string   `json:"workspace_id"`
	EventTypes  []string `json:"event_types"` // JSON array in DB
	TargetURL   string   `json:"target_url"`
	Secret      string   `json:"secret,omitempty"`
	Active      bool     `json:"active"`
	CreatedAt   int64    `json:"created_at"`
	UpdatedAt   int64    `json:"updated_at"`
}

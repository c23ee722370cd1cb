package models

const (
	PriorityNormal = "normal"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

const (
	DeliveryPending   = "pending"
	DeliveryDelivered = "delivered"
	DeliveryFailed    = "failed"
)

type Notification struct {
	ID               string `json:"id"`
	EventID          string `json:"event_id"`
	WorkspaceID      string `json:"workspace_id"`
	Priority         string `json:"priority"` // normal, medium, high
	Title            string `json:"title"`
	Message          string `json:"message"`
	ActionRequired   bool   `json:"action_required"`
	DeliveryStatus   string `json:"delivery_status"` // pending, delivered, failed
	DeliveryAttempts int    `json:"delivery_attempts"`
	LastError        string `json:"last_error,omitempty"`
	CreatedAt        int64  `json:"created_at"`
	DeliveredAt      int64  `json:"delivered_at,omitempty"`
}

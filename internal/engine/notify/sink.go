package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"callflow/internal/platform/models"
	"callflow/internal/platform/repositories"
)

// Sink is the delivery capability. Chat and email channels are external
// collaborators behind this interface; the built-in implementation posts
// to the subscription's registered target URL.
type Sink interface {
	Deliver(ctx context.Context, n *models.Notification) error
}

// WebhookSink delivers notifications as signed HTTP POSTs to the target
// URL registered for the notification's workspace.
type WebhookSink struct {
	subs   *repositories.SubscriptionRepository
	client *http.Client
}

func NewWebhookSink(subs *repositories.SubscriptionRepository, timeout time.Duration) *WebhookSink {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookSink{
		subs:   subs,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *WebhookSink) Deliver(ctx context.Context, n *models.Notification) error {
	sub, err := s.subs.GetByWorkspace(ctx, n.WorkspaceID)
	if err != nil {
		return err
	}
	if sub == nil {
		return fmt.Errorf("no active subscription for workspace %s", n.WorkspaceID)
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.TargetURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", signPayload(sub.Secret, payload))
	req.Header.Set("X-Callflow-Delivery", n.ID)
	req.Header.Set("X-Callflow-Priority", n.Priority)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("target returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func signPayload(secret string, payload []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

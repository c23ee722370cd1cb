// Package subscriptions owns per-customer event subscriptions and the
// shared secrets webhook deliveries are verified against.
package subscriptions

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"

	"callflow/internal/pkg/validator"
	"callflow/internal/platform/models"
	"callflow/internal/platform/repositories"
)

var (
	ErrNotFound     = errors.New("subscription not found")
	ErrInvalidInput = errors.New("invalid subscription input")
)

const secretBytes = 24

type Registry struct {
	repo       *repositories.SubscriptionRepository
	signingKey []byte
	cache      *secretCache
}

func NewRegistry(repo *repositories.SubscriptionRepository, signingKey string, cacheTTL time.Duration) *Registry {
	return &Registry{
		repo:       repo,
		signingKey: []byte(signingKey),
		cache:      newSecretCache(cacheTTL),
	}
}

// Register upserts a subscription on the (customer_id, workspace_id) key.
// The secret is derived deterministically from those identifiers, so
// re-registering with different event types or a new target URL hands back
// the same secret and in-flight deliveries keep verifying.
func (g *Registry) Register(ctx context.Context, customerID, workspaceID string, eventTypes []string, targetURL string) (*models.Subscription, error) {
	if customerID == "" || workspaceID == "" {
		return nil, ErrInvalidInput
	}
	if len(eventTypes) == 0 {
		return nil, ErrInvalidInput
	}
	if err := validator.ValidateTargetURL(targetURL); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	now := time.Now().Unix()
	sub := &models.Subscription{
		ID:          "sub_" + uuid.New().String(),
		CustomerID:  customerID,
		WorkspaceID: workspaceID,
		EventTypes:  eventTypes,
		TargetURL:   targetURL,
		Secret:      g.deriveSecret(customerID, workspaceID),
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := g.repo.Upsert(ctx, sub); err != nil {
		return nil, err
	}

	g.cache.invalidate(workspaceID)

	// Re-registration keeps the existing row id and secret, so hand back
	// the persisted row rather than the candidate insert.
	stored, err := g.repo.GetByKey(ctx, customerID, workspaceID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, ErrNotFound
	}
	return stored, nil
}

// ResolveSecret returns the shared secret for a workspace. The signature
// verifier calls this on every delivery, so lookups go through a short
// TTL cache.
func (g *Registry) ResolveSecret(ctx context.Context, workspaceID string) (string, error) {
	if secret, ok := g.cache.get(workspaceID); ok {
		return secret, nil
	}

	sub, err := g.repo.GetByWorkspace(ctx, workspaceID)
	if err != nil {
		return "", err
	}
	if sub == nil {
		return "", ErrNotFound
	}

	g.cache.set(workspaceID, sub.Secret)
	return sub.Secret, nil
}

func (g *Registry) Get(ctx context.Context, customerID, workspaceID string) (*models.Subscription, error) {
	sub, err := g.repo.GetByKey(ctx, customerID, workspaceID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrNotFound
	}
	return sub, nil
}

func (g *Registry) Deactivate(ctx context.Context, customerID, workspaceID string) error {
	if err := g.repo.Deactivate(ctx, customerID, workspaceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	g.cache.invalidate(workspaceID)
	return nil
}

// deriveSecret expands the service signing key over the registration
// identity with HKDF-SHA256. Deterministic: the same customer and
// workspace always derive the same secret, which is what makes secret
// stability across re-registration hold.
func (g *Registry) deriveSecret(customerID, workspaceID string) string {
	info := []byte("callflow/webhook-secret:" + customerID + ":" + workspaceID)
	kdf := hkdf.New(sha256.New, g.signingKey, []byte(workspaceID), info)

	key := make([]byte, secretBytes)
	if _, err := io.ReadFull(kdf, key); err != nil {
		// hkdf only errors past its output limit, far beyond 24 bytes
		panic(err)
	}
	return "whsec_" + hex.EncodeToString(key)
}

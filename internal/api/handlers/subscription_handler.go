package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	apiContext "callflow/internal/api/context"
	"callflow/internal/engine/subscriptions"
	apiErrors "callflow/internal/pkg/errors"
)

type SubscriptionHandler struct {
	registry *subscriptions.Registry
}

func NewSubscriptionHandler(registry *subscriptions.Registry) *SubscriptionHandler {
	return &SubscriptionHandler{registry: registry}
}

// Register handles POST /webhooks/register. Upserts on the
// (customer_id, workspace_id) key; the returned secret is stable across
// re-registration.
func (h *SubscriptionHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CustomerID  string   `json:"customer_id"`
		WorkspaceID string   `json:"workspace_id"`
		EventTypes  []string `json:"event_types"`
		TargetURL   string   `json:"target_url"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiErrors.WriteError(w, http.StatusBadRequest, apiErrors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	sub, err := h.registry.Register(r.Context(), req.CustomerID, req.WorkspaceID, req.EventTypes, req.TargetURL)
	if err != nil {
		if errors.Is(err, subscriptions.ErrInvalidInput) {
			apiErrors.WriteError(w, http.StatusBadRequest, apiErrors.ErrCodeInvalidInput, err.Error(), nil)
			return
		}
		log.Error().Err(err).Msg("subscription registration failed")
		apiErrors.WriteError(w, http.StatusInternalServerError, apiErrors.ErrCodeInternal, "Registration failed", nil)
		return
	}

	log.Info().Str("customer_id", sub.CustomerID).Str("workspace_id", sub.WorkspaceID).Msg("subscription registered")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"webhook_secret":    sub.Secret,
		"registered_events": sub.EventTypes,
	})
}

// Deactivate handles DELETE /subscriptions/:customer_id/:workspace_id.
func (h *SubscriptionHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)
	customerID := params.ByName("customer_id")
	workspaceID := params.ByName("workspace_id")

	if err := h.registry.Deactivate(r.Context(), customerID, workspaceID); err != nil {
		if errors.Is(err, subscriptions.ErrNotFound) {
			apiErrors.WriteError(w, http.StatusNotFound, apiErrors.ErrCodeNotFound, "Subscription not found", nil)
			return
		}
		log.Error().Err(err).Msg("subscription deactivation failed")
		apiErrors.WriteError(w, http.StatusInternalServerError, apiErrors.ErrCodeInternal, "Deactivation failed", nil)
		return
	}

	w.WriteHeader(http.StatusOK)
}

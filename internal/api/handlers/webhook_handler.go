package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	apiContext "callflow/internal/api/context"
	"callflow/internal/engine/subscriptions"
	"callflow/internal/engine/webhooks"
	apiErrors "callflow/internal/pkg/errors"
)

type WebhookHandler struct {
	pipeline *webhooks.Pipeline
	maxBody  int64
}

func NewWebhookHandler(pipeline *webhooks.Pipeline, maxBody int64) *WebhookHandler {
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	return &WebhookHandler{pipeline: pipeline, maxBody: maxBody}
}

// Receive is the ingestion endpoint: POST /webhooks/:provider. The
// response maps the pipeline's terminal states onto status codes; a
// duplicate delivery is a success, the endpoint is idempotent and senders
// may retry freely.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)
	provider := params.ByName("provider")

	body, err := io.ReadAll(io.LimitReader(r.Body, h.maxBody))
	if err != nil {
		apiErrors.WriteError(w, http.StatusBadRequest, apiErrors.ErrCodeInvalidInput, "Unable to read request body", nil)
		return
	}

	signature := r.Header.Get("X-Signature")

	outcome, err := h.pipeline.Process(r.Context(), provider, body, signature)
	if err != nil {
		switch {
		case errors.Is(err, webhooks.ErrMissingSignature), errors.Is(err, webhooks.ErrBadSignature):
			// Never log payload contents on signature failures.
			apiErrors.WriteError(w, http.StatusUnauthorized, apiErrors.ErrCodeInvalidSignature, "Signature verification failed", nil)
		case errors.Is(err, webhooks.ErrMalformedEvent):
			apiErrors.WriteError(w, http.StatusBadRequest, apiErrors.ErrCodeInvalidInput, err.Error(), nil)
		case errors.Is(err, subscriptions.ErrNotFound):
			apiErrors.WriteError(w, http.StatusNotFound, apiErrors.ErrCodeNotFound, "No subscription registered for workspace", nil)
		default:
			log.Error().Err(err).Str("provider", provider).Msg("webhook processing failed")
			apiErrors.WriteError(w, http.StatusInternalServerError, apiErrors.ErrCodeInternal, "Event processing failed", nil)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":   "processed",
		"event_id": outcome.EventID,
	})
}

package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"pos-backoffice/internal/reconcile/application"
	reconcile "pos-backoffice/internal/reconcile/domain"
)

// WebhookHandler receives gateway notifications and feeds them into the
// confirmation flow. The idempotency guard makes redelivered webhooks
// harmless.
type WebhookHandler struct {
	orchestrator *application.Orchestrator
	logger       *log.Logger
}

// NewWebhookHandler constructs a webhook handler.
func NewWebhookHandler(orchestrator *application.Orchestrator, logger *log.Logger) (*WebhookHandler, error) {
	if orchestrator == nil {
		return nil, errors.New("webhook handler: nil orchestrator")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &WebhookHandler{orchestrator: orchestrator, logger: logger}, nil
}

type webhookPayload struct {
	IntentID string `json:"intent_id"`
	Type     string `json:"type"`
}

// ServeHTTP handles POST /webhooks/gateway.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.IntentID == "" {
		http.Error(w, "intent_id is required", http.StatusBadRequest)
		return
	}

	// The orchestrator re-reads the intent from the gateway, so the
	// webhook body is a trigger, not a source of truth.
	_, err := h.orchestrator.ConfirmPayment(r.Context(), payload.IntentID)
	switch {
	case err == nil,
		errors.Is(err, reconcile.ErrPaymentFailed),
		errors.Is(err, reconcile.ErrConfirmationInProgress):
		// Settled one way or the other; acknowledge so the gateway
		// stops redelivering.
		w.WriteHeader(http.StatusOK)
	case errors.Is(err, reconcile.ErrPaymentPending),
		errors.Is(err, reconcile.ErrRequiresManualReview):
		w.WriteHeader(http.StatusAccepted)
	default:
		h.logger.Printf("webhook confirm failed intent=%s err=%v", payload.IntentID, err)
		http.Error(w, "confirmation failed", http.StatusInternalServerError)
	}
}

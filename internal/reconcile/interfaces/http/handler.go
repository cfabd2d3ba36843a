package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pos-backoffice/internal/audit"
	"pos-backoffice/internal/auth"
	"pos-backoffice/internal/eventing"
	"pos-backoffice/internal/gateway"
	idempotency "pos-backoffice/internal/idempotency"
	ordersdomain "pos-backoffice/internal/order/domain"
	"pos-backoffice/internal/reconcile/application"
	reconcile "pos-backoffice/internal/reconcile/domain"
)

// Handler provides payment reconciliation HTTP endpoints.
type Handler struct {
	orchestrator *application.Orchestrator
	auditor      audit.Logger
}

// NewHandler constructs a handler.
func NewHandler(orchestrator *application.Orchestrator, auditor audit.Logger) (*Handler, error) {
	if orchestrator == nil {
		return nil, errors.New("reconcile handler: nil orchestrator")
	}
	return &Handler{orchestrator: orchestrator, auditor: auditor}, nil
}

// Register mounts the reconciliation routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/payment-intents", h.createIntent)
	r.Post("/payment-confirmations", h.confirmPayment)
	r.Get("/transactions/{id}", h.getTransaction)
	r.Post("/transactions/{id}/reverse", h.reverse)
	r.Get("/reviews", h.listReviews)
	r.Post("/reviews/{id}/resolve", h.resolveReview)
}

type createIntentRequest struct {
	OrderID string `json:"order_id"`
}

func (h *Handler) createIntent(w http.ResponseWriter, r *http.Request) {
	var req createIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == "" {
		http.Error(w, "order_id is required", http.StatusBadRequest)
		return
	}

	intent, err := h.orchestrator.CreatePaymentIntent(r.Context(), req.OrderID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, intent)
}

type confirmRequest struct {
	IntentID string `json:"intent_id"`
}

func (h *Handler) confirmPayment(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IntentID == "" {
		http.Error(w, "intent_id is required", http.StatusBadRequest)
		return
	}

	// Events published while settling this confirmation share the intent
	// id as correlation id.
	ctx := eventing.WithCorrelationID(r.Context(), req.IntentID)
	result, err := h.orchestrator.ConfirmPayment(ctx, req.IntentID)
	if err != nil {
		if errors.Is(err, reconcile.ErrPaymentFailed) && result.Outcome == application.OutcomeFailed {
			writeJSON(w, http.StatusUnprocessableEntity, result)
			return
		}
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) getTransaction(w http.ResponseWriter, r *http.Request) {
	txn, err := h.orchestrator.Transaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

func (h *Handler) reverse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entryID, err := h.orchestrator.Reverse(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}

	if h.auditor != nil {
		_ = h.auditor.Log(r.Context(), audit.Entry{
			TenantID:     auth.TenantIDFromContext(r.Context()),
			Actor:        auth.SubjectFromContext(r.Context()),
			Role:         string(auth.RoleFromContext(r.Context())),
			Action:       "transaction.reverse",
			ResourceType: "transaction",
			ResourceID:   id,
			IP:           r.RemoteAddr,
			UserAgent:    r.UserAgent(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"transaction_id":    id,
		"reversal_entry_id": string(entryID),
	})
}

func (h *Handler) listReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.orchestrator.OpenReviews(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	if reviews == nil {
		reviews = []reconcile.ManualReview{}
	}
	writeJSON(w, http.StatusOK, reviews)
}

type resolveRequest struct {
	Note string `json:"note"`
}

func (h *Handler) resolveReview(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "id")
	resolvedBy := auth.SubjectFromContext(r.Context())
	if err := h.orchestrator.ResolveReview(r.Context(), id, resolvedBy, req.Note); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ordersdomain.ErrOrderNotFound),
		errors.Is(err, reconcile.ErrTransactionNotFound),
		errors.Is(err, reconcile.ErrReviewNotFound),
		errors.Is(err, gateway.ErrUnknownIntent):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, reconcile.ErrConfirmationInProgress),
		errors.Is(err, reconcile.ErrAlreadyReversed),
		errors.Is(err, reconcile.ErrReviewResolved):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, reconcile.ErrOrderNotPayable),
		errors.Is(err, reconcile.ErrAmountMismatch),
		errors.Is(err, reconcile.ErrPaymentFailed):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, reconcile.ErrPaymentPending),
		errors.Is(err, reconcile.ErrRequiresManualReview):
		http.Error(w, err.Error(), http.StatusAccepted)
	case errors.Is(err, idempotency.ErrEmptyKey):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	invoiceapp "pos-backoffice/internal/invoice/application"
	invoice "pos-backoffice/internal/invoice/domain"
	"pos-backoffice/internal/invoice/interfaces"
	"pos-backoffice/internal/money"
	"pos-backoffice/internal/observability/metrics"
)

// Handler provides invoice HTTP endpoints.
type Handler struct {
	service *invoiceapp.Service
}

// NewHandler constructs a handler.
func NewHandler(service *invoiceapp.Service) (*Handler, error) {
	if service == nil {
		return nil, errors.New("invoice handler: nil service")
	}
	return &Handler{service: service}, nil
}

// Register mounts the invoice routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/invoices/{id}", h.get)
	r.Get("/invoices/{id}/export.pdf", h.exportPDF)
	r.Post("/invoices/{id}/payments", h.recordPayment)
	r.Post("/invoices/{id}/refunds", h.recordRefund)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	inv, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (h *Handler) exportPDF(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	inv, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	data, err := interfaces.BuildInvoicePDF(inv)
	if err != nil {
		metrics.ObserveExport("pdf", metrics.ResultError, time.Since(started))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	metrics.ObserveExport("pdf", metrics.ResultSuccess, time.Since(started))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "invoice-"+inv.ID+".pdf"))
	_, _ = w.Write(data)
}

type amountRequest struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	amount, ok := decodeAmount(w, r)
	if !ok {
		return
	}
	inv, err := h.service.RecordPayment(r.Context(), chi.URLParam(r, "id"), amount)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (h *Handler) recordRefund(w http.ResponseWriter, r *http.Request) {
	amount, ok := decodeAmount(w, r)
	if !ok {
		return
	}
	inv, err := h.service.RecordRefund(r.Context(), chi.URLParam(r, "id"), amount)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func decodeAmount(w http.ResponseWriter, r *http.Request) (money.Money, bool) {
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return money.Money{}, false
	}
	amount, err := money.Parse(req.Amount, req.Currency)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return money.Money{}, false
	}
	return amount, true
}

func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, invoice.ErrInvoiceNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, invoice.ErrOverpayment),
		errors.Is(err, invoice.ErrInvalidRefund),
		errors.Is(err, invoice.ErrIllegalStatus),
		errors.Is(err, money.ErrCurrencyMismatch):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, invoice.ErrStaleInvoice):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, invoice.ErrEmptyInvoiceID):
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

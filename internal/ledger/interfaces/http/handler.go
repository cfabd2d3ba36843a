package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	ledgerapp "pos-backoffice/internal/ledger/application"
	ledger "pos-backoffice/internal/ledger/domain"
	"pos-backoffice/internal/ledger/interfaces"
	"pos-backoffice/internal/observability/metrics"
)

const timeLayout = time.RFC3339

// Handler provides ledger report HTTP endpoints.
type Handler struct {
	engine   *ledgerapp.Engine
	currency string
}

// NewHandler constructs a handler.
func NewHandler(engine *ledgerapp.Engine, currency string) (*Handler, error) {
	if engine == nil {
		return nil, errors.New("ledger handler: nil engine")
	}
	if currency == "" {
		return nil, errors.New("ledger handler: empty currency")
	}
	return &Handler{engine: engine, currency: currency}, nil
}

// Register mounts the report routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/ledger/accounts", h.accounts)
	r.Get("/ledger/trial-balance", h.trialBalance)
	r.Get("/ledger/trial-balance/export.xlsx", h.exportTrialBalance)
	r.Get("/ledger/profit-loss", h.profitLoss)
	r.Get("/ledger/balance-sheet", h.balanceSheet)
	// Kept for dashboards still calling the old report paths.
	r.Get("/reports/profit-loss", h.profitLoss)
	r.Get("/reports/balance-sheet", h.balanceSheet)
}

func (h *Handler) accounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.engine.Accounts(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

type trialBalanceRow struct {
	AccountID ledger.AccountID   `json:"account_id"`
	Code      string             `json:"code"`
	Name      string             `json:"name"`
	Type      ledger.AccountType `json:"type"`
	Balance   string             `json:"balance"`
	Currency  string             `json:"currency"`
}

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	asOf, err := parseTimeQuery(r, "as_of", time.Now().UTC())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rows, err := h.trialBalanceRows(r, asOf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"as_of":    asOf.Format(timeLayout),
		"accounts": rows,
	})
}

func (h *Handler) exportTrialBalance(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	asOf, err := parseTimeQuery(r, "as_of", time.Now().UTC())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	accounts, err := h.engine.Accounts(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	balances, err := h.engine.TrialBalance(r.Context(), asOf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	data, err := interfaces.BuildTrialBalanceXLSX(asOf, accounts, balances)
	if err != nil {
		metrics.ObserveExport("xlsx", metrics.ResultError, time.Since(started))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	metrics.ObserveExport("xlsx", metrics.ResultSuccess, time.Since(started))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="trial-balance.xlsx"`)
	_, _ = w.Write(data)
}

func (h *Handler) profitLoss(w http.ResponseWriter, r *http.Request) {
	from, err := parseTimeQuery(r, "from", time.Time{})
	if err != nil || from.IsZero() {
		http.Error(w, "from is required", http.StatusBadRequest)
		return
	}
	to, err := parseTimeQuery(r, "to", time.Time{})
	if err != nil || to.IsZero() {
		http.Error(w, "to is required", http.StatusBadRequest)
		return
	}
	if !to.After(from) {
		http.Error(w, "to must be after from", http.StatusBadRequest)
		return
	}

	report, err := h.engine.ProfitAndLoss(r.Context(), from, to, h.currency)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"from":    from.Format(timeLayout),
		"to":      to.Format(timeLayout),
		"revenue": report.Revenue,
		"expense": report.Expense,
		"net":     report.Net,
	})
}

func (h *Handler) balanceSheet(w http.ResponseWriter, r *http.Request) {
	asOf, err := parseTimeQuery(r, "as_of", time.Now().UTC())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sheet, err := h.engine.BalanceSheet(r.Context(), asOf, h.currency)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"as_of":       asOf.Format(timeLayout),
		"assets":      sheet.Assets,
		"liabilities": sheet.Liabilities,
		"equity":      sheet.Equity,
	})
}

func (h *Handler) trialBalanceRows(r *http.Request, asOf time.Time) ([]trialBalanceRow, error) {
	accounts, err := h.engine.Accounts(r.Context())
	if err != nil {
		return nil, err
	}
	balances, err := h.engine.TrialBalance(r.Context(), asOf)
	if err != nil {
		return nil, err
	}
	rows := make([]trialBalanceRow, 0, len(accounts))
	for _, account := range accounts {
		balance := balances[account.ID]
		rows = append(rows, trialBalanceRow{
			AccountID: account.ID,
			Code:      account.Code,
			Name:      account.Name,
			Type:      account.Type,
			Balance:   balance.Format(),
			Currency:  account.Currency,
		})
	}
	return rows, nil
}

func parseTimeQuery(r *http.Request, key string, fallback time.Time) (time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	parsed, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}, errors.New(key + " must be RFC3339")
	}
	return parsed.UTC(), nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

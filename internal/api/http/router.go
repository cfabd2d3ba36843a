package apihttp

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pos-backoffice/internal/auth"
	invoicehttp "pos-backoffice/internal/invoice/interfaces/http"
	ledgerhttp "pos-backoffice/internal/ledger/interfaces/http"
	reconcilehttp "pos-backoffice/internal/reconcile/interfaces/http"
)

// RouterDeps carries everything the router mounts.
type RouterDeps struct {
	Reconcile *reconcilehttp.Handler
	Invoices  *invoicehttp.Handler
	Ledger    *ledgerhttp.Handler
	Webhook   *reconcilehttp.WebhookHandler

	AuthMiddleware    *auth.Middleware
	WebhookMiddleware *auth.WebhookAuthMiddleware

	DB *sql.DB
}

// NewRouter creates the chi router with all API routes mounted.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", healthz(deps.DB))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	if deps.Webhook != nil {
		webhook := http.Handler(deps.Webhook)
		if deps.WebhookMiddleware != nil {
			webhook = deps.WebhookMiddleware.Wrap(webhook)
		}
		r.Method(http.MethodPost, "/webhooks/gateway", webhook)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if deps.AuthMiddleware != nil {
			r.Use(deps.AuthMiddleware.Wrap)
		}
		if deps.Reconcile != nil {
			deps.Reconcile.Register(r)
		}
		if deps.Invoices != nil {
			deps.Invoices.Register(r)
		}
		if deps.Ledger != nil {
			deps.Ledger.Register(r)
		}
	})

	return r
}

func healthz(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				http.Error(w, "db unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"pos-backoffice/internal/money"
)

func newTestAdapter(t *testing.T, baseURL string, opts ...Option) *Adapter {
	t.Helper()
	client, err := NewClient(baseURL, "test-key")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	adapter, err := NewAdapter(client, opts...)
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	return adapter
}

func writeIntent(w http.ResponseWriter, status string) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":       "pi_1",
		"order_id": "ord_1",
		"amount":   1999,
		"currency": "USD",
		"status":   status,
	})
}

func TestRetrieveIntent_RetriesTransientThenSucceeds(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeIntent(w, "succeeded")
	}))
	defer srv.Close()

	adapter := newTestAdapter(t, srv.URL, WithMaxAttempts(5), WithBackoffBase(time.Millisecond))
	intent, err := adapter.RetrieveIntent(context.Background(), "pi_1")
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if intent.Status != StatusSucceeded {
		t.Fatalf("expected succeeded, got %s", intent.Status)
	}
	if got := atomic.LoadInt64(&calls); got != 3 {
		t.Fatalf("expected 3 calls, got %d", got)
	}
	want, _ := money.New(1999, "USD")
	if !intent.Amount.Equal(want) {
		t.Fatalf("expected amount %s, got %s", want.Format(), intent.Amount.Format())
	}
}

func TestRetrieveIntent_IndeterminateAfterBudget(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	adapter := newTestAdapter(t, srv.URL, WithMaxAttempts(3), WithBackoffBase(time.Millisecond))
	intent, err := adapter.RetrieveIntent(context.Background(), "pi_1")
	if err != nil {
		t.Fatalf("exhausted retries must not surface an error, got %v", err)
	}
	if intent.Status != StatusIndeterminate {
		t.Fatalf("expected indeterminate, got %s", intent.Status)
	}
	if intent.Status.Definitive() {
		t.Fatalf("indeterminate must not be definitive")
	}
	if got := atomic.LoadInt64(&calls); got != 3 {
		t.Fatalf("expected 3 calls, got %d", got)
	}
}

func TestRetrieveIntent_UnknownIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	adapter := newTestAdapter(t, srv.URL)
	_, err := adapter.RetrieveIntent(context.Background(), "pi_missing")
	if !errors.Is(err, ErrUnknownIntent) {
		t.Fatalf("expected ErrUnknownIntent, got %v", err)
	}
}

func TestRetrieveIntent_ReportedFailureIsDefinitive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeIntent(w, "failed")
	}))
	defer srv.Close()

	adapter := newTestAdapter(t, srv.URL)
	intent, err := adapter.RetrieveIntent(context.Background(), "pi_1")
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if intent.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", intent.Status)
	}
	if !intent.Status.Definitive() {
		t.Fatalf("reported failure must be definitive")
	}
}

func TestRetrieveIntent_ClientErrorNotRetried(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	adapter := newTestAdapter(t, srv.URL, WithMaxAttempts(4), WithBackoffBase(time.Millisecond))
	_, err := adapter.RetrieveIntent(context.Background(), "pi_1")
	if err == nil {
		t.Fatalf("expected error for http 422")
	}
	if IsTransient(err) {
		t.Fatalf("4xx must not be transient")
	}
	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Fatalf("expected no retries, got %d calls", got)
	}
}

func TestCreateIntent_NormalizesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("expected bearer auth, got %q", got)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["order_id"] != "ord_1" {
			t.Errorf("expected order_id ord_1, got %v", body["order_id"])
		}
		writeIntent(w, "requires_payment_method")
	}))
	defer srv.Close()

	adapter := newTestAdapter(t, srv.URL)
	amount, _ := money.New(1999, "USD")
	intent, err := adapter.CreateIntent(context.Background(), "ord_1", amount)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if intent.Status != StatusRequiresAction {
		t.Fatalf("expected requires_action, got %s", intent.Status)
	}
}

func TestNormalizeStatus(t *testing.T) {
	cases := []struct {
		raw  string
		want Status
	}{
		{"requires_action", StatusRequiresAction},
		{"requires_confirmation", StatusRequiresAction},
		{"processing", StatusProcessing},
		{"succeeded", StatusSucceeded},
		{"failed", StatusFailed},
		{"canceled", StatusCanceled},
		{"cancelled", StatusCanceled},
	}
	for _, tc := range cases {
		got, err := normalizeStatus(tc.raw)
		if err != nil {
			t.Fatalf("normalize %q: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("normalize %q: expected %s, got %s", tc.raw, tc.want, got)
		}
	}
	if _, err := normalizeStatus("exploded"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}

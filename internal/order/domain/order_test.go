package order

import (
	"errors"
	"testing"
	"time"

	"pos-backoffice/internal/money"
)

func usd(t *testing.T, amount int64) money.Money {
	t.Helper()
	m, err := money.New(amount, "USD")
	if err != nil {
		t.Fatalf("money: %v", err)
	}
	return m
}

func testItems(t *testing.T) []LineItem {
	t.Helper()
	return []LineItem{
		{ProductID: "sku_espresso", Description: "Espresso", Quantity: 2, UnitPrice: usd(t, 350)},
		{ProductID: "sku_croissant", Description: "Croissant", Quantity: 1, UnitPrice: usd(t, 425)},
	}
}

func TestNew_ComputesTotal(t *testing.T) {
	at := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	ord, err := New("ord_1", "cust_1", testItems(t), at)
	if err != nil {
		t.Fatalf("new order: %v", err)
	}
	if ord.Status != StatusDraft {
		t.Fatalf("expected draft, got %s", ord.Status)
	}
	if ord.Total.Amount != 2*350+425 {
		t.Fatalf("expected total 1125, got %d", ord.Total.Amount)
	}
	if ord.Total.Currency != "USD" {
		t.Fatalf("expected USD, got %s", ord.Total.Currency)
	}
}

func TestNew_Validation(t *testing.T) {
	at := time.Now()
	items := testItems(t)

	if _, err := New("", "cust_1", items, at); !errors.Is(err, ErrEmptyOrderID) {
		t.Fatalf("expected ErrEmptyOrderID, got %v", err)
	}
	if _, err := New("ord_1", "", items, at); !errors.Is(err, ErrEmptyCustomerID) {
		t.Fatalf("expected ErrEmptyCustomerID, got %v", err)
	}
	if _, err := New("ord_1", "cust_1", nil, at); !errors.Is(err, ErrNoLineItems) {
		t.Fatalf("expected ErrNoLineItems, got %v", err)
	}

	bad := []LineItem{{ProductID: "sku_1", Quantity: 0, UnitPrice: usd(t, 100)}}
	if _, err := New("ord_1", "cust_1", bad, at); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestNew_RejectsMixedCurrencies(t *testing.T) {
	eur, err := money.New(500, "EUR")
	if err != nil {
		t.Fatalf("money: %v", err)
	}
	items := []LineItem{
		{ProductID: "sku_1", Quantity: 1, UnitPrice: usd(t, 100)},
		{ProductID: "sku_2", Quantity: 1, UnitPrice: eur},
	}
	if _, err := New("ord_1", "cust_1", items, time.Now()); !errors.Is(err, money.ErrCurrencyMismatch) {
		t.Fatalf("expected currency mismatch, got %v", err)
	}
}

func TestTransitionTo(t *testing.T) {
	cases := []struct {
		from Status
		next Status
		ok   bool
	}{
		{StatusDraft, StatusAwaitingPayment, true},
		{StatusDraft, StatusCancelled, true},
		{StatusDraft, StatusPaid, false},
		{StatusAwaitingPayment, StatusPaid, true},
		{StatusAwaitingPayment, StatusFailed, true},
		{StatusAwaitingPayment, StatusCancelled, true},
		{StatusAwaitingPayment, StatusDraft, false},
		{StatusFailed, StatusAwaitingPayment, true},
		{StatusFailed, StatusPaid, false},
		{StatusPaid, StatusCancelled, false},
		{StatusPaid, StatusAwaitingPayment, false},
		{StatusCancelled, StatusAwaitingPayment, false},
	}
	for _, tc := range cases {
		ord := Order{ID: "ord_1", Status: tc.from}
		err := ord.TransitionTo(tc.next, time.Now())
		if tc.ok && err != nil {
			t.Fatalf("%s -> %s: unexpected error %v", tc.from, tc.next, err)
		}
		if !tc.ok && !errors.Is(err, ErrIllegalTransition) {
			t.Fatalf("%s -> %s: expected ErrIllegalTransition, got %v", tc.from, tc.next, err)
		}
	}
}

func TestTransitionTo_SameStatusNoOp(t *testing.T) {
	at := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	ord, err := New("ord_1", "cust_1", testItems(t), at)
	if err != nil {
		t.Fatalf("new order: %v", err)
	}
	if err := ord.TransitionTo(StatusDraft, at.Add(time.Hour)); err != nil {
		t.Fatalf("same-status transition: %v", err)
	}
	if !ord.UpdatedAt.Equal(at) {
		t.Fatalf("no-op transition must not touch UpdatedAt")
	}
}

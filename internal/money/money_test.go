package money

import (
	"errors"
	"testing"
)

func TestParse_MinorUnits(t *testing.T) {
	cases := []struct {
		name     string
		amount   string
		currency string
		want     int64
	}{
		{"two decimal places", "19.99", "USD", 1999},
		{"whole amount", "20", "EUR", 2000},
		{"zero decimal currency", "250", "JPY", 250},
		{"three decimal currency", "1.234", "BHD", 1234},
		{"lowercase currency", "5.00", "usd", 500},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.amount, tc.currency)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if got.Amount != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got.Amount)
			}
		})
	}
}

func TestParse_RejectsSubMinorPrecision(t *testing.T) {
	if _, err := Parse("19.999", "USD"); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := Parse("0.5", "JPY"); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestParse_RejectsBadCurrency(t *testing.T) {
	for _, currency := range []string{"", "US", "DOLLARS"} {
		if _, err := Parse("1.00", currency); !errors.Is(err, ErrInvalidCurrency) {
			t.Fatalf("currency %q: expected ErrInvalidCurrency, got %v", currency, err)
		}
	}
}

func TestAdd_CurrencyMismatch(t *testing.T) {
	usd, _ := New(100, "USD")
	eur, _ := New(100, "EUR")
	if _, err := usd.Add(eur); !errors.Is(err, ErrCurrencyMismatch) {
		t.Fatalf("expected ErrCurrencyMismatch, got %v", err)
	}
}

func TestSubtract_SignedAndStrict(t *testing.T) {
	five, _ := New(500, "USD")
	ten, _ := New(1000, "USD")

	diff, err := five.Subtract(ten)
	if err != nil {
		t.Fatalf("subtract: %v", err)
	}
	if diff.Amount != -500 {
		t.Fatalf("expected -500, got %d", diff.Amount)
	}

	if _, err := five.SubtractStrict(ten); !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}
}

func TestMultiplyQuantity(t *testing.T) {
	price, _ := New(1999, "USD")
	total, err := price.MultiplyQuantity(3)
	if err != nil {
		t.Fatalf("multiply: %v", err)
	}
	if total.Amount != 5997 {
		t.Fatalf("expected 5997, got %d", total.Amount)
	}

	if _, err := price.MultiplyQuantity(-1); !errors.Is(err, ErrNegativeQuantity) {
		t.Fatalf("expected ErrNegativeQuantity, got %v", err)
	}
}

func TestFormat(t *testing.T) {
	cases := []struct {
		amount   int64
		currency string
		want     string
	}{
		{1999, "USD", "19.99"},
		{500, "USD", "5.00"},
		{250, "JPY", "250"},
		{1234, "BHD", "1.234"},
		{-1999, "USD", "-19.99"},
	}
	for _, tc := range cases {
		m := Money{Amount: tc.amount, Currency: tc.currency}
		if got := m.Format(); got != tc.want {
			t.Fatalf("%d %s: expected %q, got %q", tc.amount, tc.currency, tc.want, got)
		}
	}
}

func TestCompare(t *testing.T) {
	small, _ := New(100, "USD")
	big, _ := New(200, "USD")

	cmp, err := small.Compare(big)
	if err != nil || cmp != -1 {
		t.Fatalf("expected -1, got %d err=%v", cmp, err)
	}
	cmp, err = big.Compare(small)
	if err != nil || cmp != 1 {
		t.Fatalf("expected 1, got %d err=%v", cmp, err)
	}

	eur, _ := New(100, "EUR")
	if _, err := small.Compare(eur); !errors.Is(err, ErrCurrencyMismatch) {
		t.Fatalf("expected ErrCurrencyMismatch, got %v", err)
	}
}

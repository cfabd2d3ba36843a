package ledger

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

func salePostings(t *testing.T, amount int64) []Posting {
	t.Helper()
	return []Posting{
		{AccountID: AccountCash, Side: SideDebit, Amount: usd(t, amount)},
		{AccountID: AccountSalesRevenue, Side: SideCredit, Amount: usd(t, amount)},
	}
}

func TestNewJournalEntry_Balanced(t *testing.T) {
	at := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	entry, err := NewJournalEntry("je_1", at, "txn_1", salePostings(t, 1999))
	if err != nil {
		t.Fatalf("new entry: %v", err)
	}
	if entry.Currency() != "USD" {
		t.Fatalf("expected USD, got %s", entry.Currency())
	}
	if len(entry.Postings) != 2 {
		t.Fatalf("expected 2 postings, got %d", len(entry.Postings))
	}
}

func TestNewJournalEntry_Rejections(t *testing.T) {
	at := time.Now()
	eur, err := money.New(1999, "EUR")
	if err != nil {
		t.Fatalf("money: %v", err)
	}

	cases := []struct {
		name     string
		id       JournalEntryID
		source   string
		postings []Posting
		want     error
	}{
		{"empty id", "", "txn_1", salePostings(t, 100), ErrEmptyEntryID},
		{"empty source", "je_1", "", salePostings(t, 100), ErrEmptySource},
		{"single posting", "je_1", "txn_1", salePostings(t, 100)[:1], ErrNoPostings},
		{"unbalanced", "je_1", "txn_1", []Posting{
			{AccountID: AccountCash, Side: SideDebit, Amount: usd(t, 1999)},
			{AccountID: AccountSalesRevenue, Side: SideCredit, Amount: usd(t, 1899)},
		}, ErrUnbalancedEntry},
		{"negative posting", "je_1", "txn_1", []Posting{
			{AccountID: AccountCash, Side: SideDebit, Amount: money.Money{Amount: -5, Currency: "USD"}},
			{AccountID: AccountSalesRevenue, Side: SideCredit, Amount: money.Money{Amount: -5, Currency: "USD"}},
		}, ErrNegativePosting},
		{"mixed currency", "je_1", "txn_1", []Posting{
			{AccountID: AccountCash, Side: SideDebit, Amount: usd(t, 1999)},
			{AccountID: AccountSalesRevenue, Side: SideCredit, Amount: eur},
		}, money.ErrCurrencyMismatch},
		{"bad side", "je_1", "txn_1", []Posting{
			{AccountID: AccountCash, Side: "sideways", Amount: usd(t, 100)},
			{AccountID: AccountSalesRevenue, Side: SideCredit, Amount: usd(t, 100)},
		}, ErrInvalidSide},
		{"empty account", "je_1", "txn_1", []Posting{
			{AccountID: "", Side: SideDebit, Amount: usd(t, 100)},
			{AccountID: AccountSalesRevenue, Side: SideCredit, Amount: usd(t, 100)},
		}, ErrEmptyAccountID},
	}
	for _, tc := range cases {
		if _, err := NewJournalEntry(tc.id, at, tc.source, tc.postings); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestReversal_SwapsSides(t *testing.T) {
	at := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	entry, err := NewJournalEntry("je_1", at, "txn_1", salePostings(t, 1999))
	if err != nil {
		t.Fatalf("new entry: %v", err)
	}

	reversal, err := entry.Reversal("je_2", at.Add(time.Hour))
	if err != nil {
		t.Fatalf("reversal: %v", err)
	}
	if reversal.ID != "je_2" {
		t.Fatalf("expected new id, got %s", reversal.ID)
	}
	if reversal.SourceTransactionID != "txn_1" {
		t.Fatalf("reversal must keep the source transaction")
	}
	for i, posting := range reversal.Postings {
		original := entry.Postings[i]
		if posting.AccountID != original.AccountID {
			t.Fatalf("posting %d: account changed", i)
		}
		if posting.Side == original.Side {
			t.Fatalf("posting %d: side not swapped", i)
		}
		if !posting.Amount.Equal(original.Amount) {
			t.Fatalf("posting %d: amount changed", i)
		}
	}
	if err := reversal.Validate(); err != nil {
		t.Fatalf("reversal must be balanced: %v", err)
	}
}

func TestNormalSideFor(t *testing.T) {
	debitTypes := []AccountType{TypeAsset, TypeExpense}
	for _, at := range debitTypes {
		side, err := NormalSideFor(at)
		if err != nil || side != SideDebit {
			t.Fatalf("%s: expected debit, got %s (%v)", at, side, err)
		}
	}
	creditTypes := []AccountType{TypeLiability, TypeEquity, TypeRevenue}
	for _, at := range creditTypes {
		side, err := NormalSideFor(at)
		if err != nil || side != SideCredit {
			t.Fatalf("%s: expected credit, got %s (%v)", at, side, err)
		}
	}
	if _, err := NormalSideFor("contra"); !errors.Is(err, ErrInvalidAccountType) {
		t.Fatalf("expected ErrInvalidAccountType, got %v", err)
	}
}

func TestDefaultChart(t *testing.T) {
	chart := DefaultChart("USD")
	if len(chart) != 6 {
		t.Fatalf("expected 6 accounts, got %d", len(chart))
	}
	byID := make(map[AccountID]Account, len(chart))
	for _, account := range chart {
		byID[account.ID] = account
	}
	cash, ok := byID[AccountCash]
	if !ok || cash.NormalSide != SideDebit || cash.Type != TypeAsset {
		t.Fatalf("unexpected cash account %+v", cash)
	}
	sales, ok := byID[AccountSalesRevenue]
	if !ok || sales.NormalSide != SideCredit || sales.Type != TypeRevenue {
		t.Fatalf("unexpected sales account %+v", sales)
	}
}

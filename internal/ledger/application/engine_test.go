package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	ledger "pos-backoffice/internal/ledger/domain"
	ledgermem "pos-backoffice/internal/ledger/infrastructure/memory"
	"pos-backoffice/internal/money"
)

func newTestEngine(t *testing.T) (*Engine, *ledgermem.JournalRepository) {
	t.Helper()
	repo := ledgermem.NewJournalRepository()
	if err := repo.SeedAccounts(context.Background(), ledger.DefaultChart("USD")); err != nil {
		t.Fatalf("seed accounts: %v", err)
	}
	engine, err := NewEngine(repo)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine, repo
}

func usd(t *testing.T, amount int64) money.Money {
	t.Helper()
	m, err := money.New(amount, "USD")
	if err != nil {
		t.Fatalf("money: %v", err)
	}
	return m
}

func saleEntry(t *testing.T, id, source string, amount int64, at time.Time) ledger.JournalEntry {
	t.Helper()
	entry, err := ledger.NewJournalEntry(ledger.JournalEntryID(id), at, source, []ledger.Posting{
		{AccountID: ledger.AccountCash, Side: ledger.SideDebit, Amount: usd(t, amount)},
		{AccountID: ledger.AccountSalesRevenue, Side: ledger.SideCredit, Amount: usd(t, amount)},
	})
	if err != nil {
		t.Fatalf("sale entry: %v", err)
	}
	return entry
}

func TestPost_AndAccountBalance(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)
	at := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	id, err := engine.Post(ctx, saleEntry(t, "je_1", "txn_1", 1999, at))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if id != "je_1" {
		t.Fatalf("expected je_1, got %s", id)
	}

	cash, err := engine.AccountBalance(ctx, ledger.AccountCash, at)
	if err != nil {
		t.Fatalf("cash balance: %v", err)
	}
	if cash.Amount != 1999 {
		t.Fatalf("expected cash 1999, got %d", cash.Amount)
	}
	sales, err := engine.AccountBalance(ctx, ledger.AccountSalesRevenue, at)
	if err != nil {
		t.Fatalf("sales balance: %v", err)
	}
	if sales.Amount != 1999 {
		t.Fatalf("expected sales 1999, got %d", sales.Amount)
	}

	before, err := engine.AccountBalance(ctx, ledger.AccountCash, at.Add(-time.Second))
	if err != nil {
		t.Fatalf("balance before posting: %v", err)
	}
	if before.Amount != 0 {
		t.Fatalf("expected zero balance before the posting, got %d", before.Amount)
	}
}

func TestPost_RejectsUnknownAccount(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)
	at := time.Now()

	entry, err := ledger.NewJournalEntry("je_1", at, "txn_1", []ledger.Posting{
		{AccountID: "acct-ghost", Side: ledger.SideDebit, Amount: usd(t, 100)},
		{AccountID: ledger.AccountSalesRevenue, Side: ledger.SideCredit, Amount: usd(t, 100)},
	})
	if err != nil {
		t.Fatalf("new entry: %v", err)
	}
	if _, err := engine.Post(ctx, entry); !errors.Is(err, ledger.ErrUnknownAccount) {
		t.Fatalf("expected ErrUnknownAccount, got %v", err)
	}

	entries, err := engine.EntriesBySource(ctx, "txn_1")
	if err != nil {
		t.Fatalf("entries by source: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("rejected entry must not be stored")
	}
}

func TestValidate_RejectsCurrencyMismatchWithAccount(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	eur, err := money.New(100, "EUR")
	if err != nil {
		t.Fatalf("money: %v", err)
	}
	entry := ledger.JournalEntry{
		ID:                  "je_1",
		PostedAt:            time.Now(),
		SourceTransactionID: "txn_1",
		Postings: []ledger.Posting{
			{AccountID: ledger.AccountCash, Side: ledger.SideDebit, Amount: eur},
			{AccountID: ledger.AccountSalesRevenue, Side: ledger.SideCredit, Amount: eur},
		},
	}
	if err := engine.Validate(ctx, entry); !errors.Is(err, money.ErrCurrencyMismatch) {
		t.Fatalf("expected currency mismatch, got %v", err)
	}
}

func TestTrialBalance_NetsToZero(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)
	at := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	amounts := []int64{1999, 425, 10050}
	for i, amount := range amounts {
		id := fmt.Sprintf("je_%d", i)
		entry := saleEntry(t, id, fmt.Sprintf("txn_%d", i), amount, at.Add(time.Duration(i)*time.Minute))
		if _, err := engine.Post(ctx, entry); err != nil {
			t.Fatalf("post %d: %v", i, err)
		}
	}

	balances, err := engine.TrialBalance(ctx, at.Add(time.Hour))
	if err != nil {
		t.Fatalf("trial balance: %v", err)
	}
	accounts, err := engine.Accounts(ctx)
	if err != nil {
		t.Fatalf("accounts: %v", err)
	}
	var debits, credits int64
	for _, account := range accounts {
		balance := balances[account.ID]
		if account.NormalSide == ledger.SideDebit {
			debits += balance.Amount
		} else {
			credits += balance.Amount
		}
	}
	if debits != credits {
		t.Fatalf("trial balance out of balance: debits %d, credits %d", debits, credits)
	}
	if debits != 1999+425+10050 {
		t.Fatalf("expected total 12474, got %d", debits)
	}
}

func TestProfitAndLoss_HalfOpenWindow(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)
	from := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)

	// One sale before the window, two inside, one exactly at the upper bound.
	posts := []struct {
		id     string
		amount int64
		at     time.Time
	}{
		{"je_before", 100, from.Add(-time.Second)},
		{"je_start", 1999, from},
		{"je_mid", 425, from.Add(15 * 24 * time.Hour)},
		{"je_end", 777, to},
	}
	for _, p := range posts {
		if _, err := engine.Post(ctx, saleEntry(t, p.id, "txn_"+p.id, p.amount, p.at)); err != nil {
			t.Fatalf("post %s: %v", p.id, err)
		}
	}

	report, err := engine.ProfitAndLoss(ctx, from, to, "USD")
	if err != nil {
		t.Fatalf("profit and loss: %v", err)
	}
	if report.Revenue.Amount != 1999+425 {
		t.Fatalf("expected revenue 2424, got %d", report.Revenue.Amount)
	}
	if report.Expense.Amount != 0 {
		t.Fatalf("expected zero expense, got %d", report.Expense.Amount)
	}
	if report.Net.Amount != 2424 {
		t.Fatalf("expected net 2424, got %d", report.Net.Amount)
	}
}

func TestBalanceSheet_EquationHolds(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)
	at := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	first := saleEntry(t, "je_1", "txn_1", 1999, at)
	if _, err := engine.Post(ctx, first); err != nil {
		t.Fatalf("post: %v", err)
	}
	if _, err := engine.Post(ctx, saleEntry(t, "je_2", "txn_2", 500, at.Add(time.Minute))); err != nil {
		t.Fatalf("post: %v", err)
	}

	reversal, err := first.Reversal("je_3", at.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("reversal: %v", err)
	}
	if _, err := engine.Post(ctx, reversal); err != nil {
		t.Fatalf("post reversal: %v", err)
	}

	sheet, err := engine.BalanceSheet(ctx, at.Add(time.Hour), "USD")
	if err != nil {
		t.Fatalf("balance sheet: %v", err)
	}
	if sheet.Assets.Amount != 500 {
		t.Fatalf("expected assets 500 after reversal, got %d", sheet.Assets.Amount)
	}
	if sheet.Assets.Amount != sheet.Liabilities.Amount+sheet.Equity.Amount {
		t.Fatalf("accounting equation violated: assets %d, liabilities %d, equity %d",
			sheet.Assets.Amount, sheet.Liabilities.Amount, sheet.Equity.Amount)
	}
}

func TestEntriesBySource(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)
	at := time.Now()

	entry := saleEntry(t, "je_1", "txn_1", 1999, at)
	if _, err := engine.Post(ctx, entry); err != nil {
		t.Fatalf("post: %v", err)
	}
	reversal, err := entry.Reversal("je_2", at.Add(time.Minute))
	if err != nil {
		t.Fatalf("reversal: %v", err)
	}
	if _, err := engine.Post(ctx, reversal); err != nil {
		t.Fatalf("post reversal: %v", err)
	}

	entries, err := engine.EntriesBySource(ctx, "txn_1")
	if err != nil {
		t.Fatalf("entries by source: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
}

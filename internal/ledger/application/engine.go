package application

import (
	"context"
	"errors"
	"time"

	ledger "pos-backoffice/internal/ledger/domain"
	"pos-backoffice/internal/money"
	"pos-backoffice/internal/observability/metrics"
)

// Engine posts balanced journal entries and answers balance and report
// queries. Every query replays the append-only posting log; there is no
// mutable running-balance field that could drift from the postings.
type Engine struct {
	repo ledger.Repository
}

// NewEngine constructs an engine.
func NewEngine(repo ledger.Repository) (*Engine, error) {
	if repo == nil {
		return nil, errors.New("ledger engine: nil repository")
	}
	return &Engine{repo: repo}, nil
}

// Validate checks a candidate entry against the invariants Post enforces:
// balance, known accounts and account currency, all before any write. The
// reconciliation unit of work validates through this before committing.
func (e *Engine) Validate(ctx context.Context, entry ledger.JournalEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	for _, posting := range entry.Postings {
		account, err := e.repo.AccountByID(ctx, posting.AccountID)
		if err != nil {
			return err
		}
		if account == nil {
			return ledger.ErrUnknownAccount
		}
		if account.Currency != posting.Amount.Currency {
			return money.ErrCurrencyMismatch
		}
	}
	return nil
}

// Post validates and appends a journal entry. On success the entry is
// immediately visible to balance queries.
func (e *Engine) Post(ctx context.Context, entry ledger.JournalEntry) (ledger.JournalEntryID, error) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveLedgerPost(result, time.Since(start))
	}()

	if err := e.Validate(ctx, entry); err != nil {
		result = metrics.ResultError
		return "", err
	}
	if err := e.repo.AppendEntry(ctx, entry); err != nil {
		result = metrics.ResultError
		return "", err
	}
	return entry.ID, nil
}

// AccountBalance replays postings on the account up to asOf, signed by the
// account's normal balance side.
func (e *Engine) AccountBalance(ctx context.Context, accountID ledger.AccountID, asOf time.Time) (money.Money, error) {
	account, err := e.repo.AccountByID(ctx, accountID)
	if err != nil {
		return money.Money{}, err
	}
	if account == nil {
		return money.Money{}, ledger.ErrUnknownAccount
	}
	entries, err := e.repo.EntriesThrough(ctx, asOf)
	if err != nil {
		return money.Money{}, err
	}
	balance := money.Zero(account.Currency)
	for _, entry := range entries {
		for _, posting := range entry.Postings {
			if posting.AccountID != accountID {
				continue
			}
			balance.Amount += signedAmount(posting, account.NormalSide)
		}
	}
	return balance, nil
}

// TrialBalance returns the balance of every account as of the timestamp. The
// sum of debit-normal balances always equals the sum of credit-normal ones.
func (e *Engine) TrialBalance(ctx context.Context, asOf time.Time) (map[ledger.AccountID]money.Money, error) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveReport("trial_balance", result, time.Since(start))
	}()

	accounts, entries, err := e.load(ctx, asOf)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	balances := make(map[ledger.AccountID]money.Money, len(accounts))
	for _, account := range accounts {
		balances[account.ID] = money.Zero(account.Currency)
	}
	for _, entry := range entries {
		for _, posting := range entry.Postings {
			account, ok := accounts[posting.AccountID]
			if !ok {
				result = metrics.ResultError
				return nil, ledger.ErrUnknownAccount
			}
			balance := balances[account.ID]
			balance.Amount += signedAmount(posting, account.NormalSide)
			balances[account.ID] = balance
		}
	}
	return balances, nil
}

// ProfitAndLoss sums revenue and expense postings within the half-open window
// [from, to).
type ProfitAndLoss struct {
	Revenue money.Money
	Expense money.Money
	Net     money.Money
}

// ProfitAndLoss computes the P&L report for the period.
func (e *Engine) ProfitAndLoss(ctx context.Context, from, to time.Time, currency string) (ProfitAndLoss, error) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveReport("profit_loss", result, time.Since(start))
	}()

	accounts, err := e.accountIndex(ctx)
	if err != nil {
		result = metrics.ResultError
		return ProfitAndLoss{}, err
	}
	entries, err := e.repo.EntriesBetween(ctx, from, to)
	if err != nil {
		result = metrics.ResultError
		return ProfitAndLoss{}, err
	}
	report := ProfitAndLoss{
		Revenue: money.Zero(currency),
		Expense: money.Zero(currency),
		Net:     money.Zero(currency),
	}
	for _, entry := range entries {
		for _, posting := range entry.Postings {
			account, ok := accounts[posting.AccountID]
			if !ok {
				result = metrics.ResultError
				return ProfitAndLoss{}, ledger.ErrUnknownAccount
			}
			switch account.Type {
			case ledger.TypeRevenue:
				report.Revenue.Amount += signedAmount(posting, account.NormalSide)
			case ledger.TypeExpense:
				report.Expense.Amount += signedAmount(posting, account.NormalSide)
			}
		}
	}
	report.Net.Amount = report.Revenue.Amount - report.Expense.Amount
	return report, nil
}

// BalanceSheet is the assets/liabilities/equity snapshot. Equity includes
// retained earnings (revenue minus expense through asOf) so that
// Assets = Liabilities + Equity holds at every timestamp.
type BalanceSheet struct {
	Assets      money.Money
	Liabilities money.Money
	Equity      money.Money
}

// BalanceSheet computes the balance sheet as of the timestamp.
func (e *Engine) BalanceSheet(ctx context.Context, asOf time.Time, currency string) (BalanceSheet, error) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveReport("balance_sheet", result, time.Since(start))
	}()

	accounts, entries, err := e.load(ctx, asOf)
	if err != nil {
		result = metrics.ResultError
		return BalanceSheet{}, err
	}
	sheet := BalanceSheet{
		Assets:      money.Zero(currency),
		Liabilities: money.Zero(currency),
		Equity:      money.Zero(currency),
	}
	for _, entry := range entries {
		for _, posting := range entry.Postings {
			account, ok := accounts[posting.AccountID]
			if !ok {
				result = metrics.ResultError
				return BalanceSheet{}, ledger.ErrUnknownAccount
			}
			signed := signedAmount(posting, account.NormalSide)
			switch account.Type {
			case ledger.TypeAsset:
				sheet.Assets.Amount += signed
			case ledger.TypeLiability:
				sheet.Liabilities.Amount += signed
			case ledger.TypeEquity:
				sheet.Equity.Amount += signed
			case ledger.TypeRevenue:
				sheet.Equity.Amount += signed
			case ledger.TypeExpense:
				sheet.Equity.Amount -= signed
			}
		}
	}
	return sheet, nil
}

// EntriesBySource exposes the journal history for a source transaction.
func (e *Engine) EntriesBySource(ctx context.Context, sourceTransactionID string) ([]ledger.JournalEntry, error) {
	return e.repo.EntriesBySource(ctx, sourceTransactionID)
}

// Accounts returns the chart of accounts.
func (e *Engine) Accounts(ctx context.Context) ([]ledger.Account, error) {
	return e.repo.Accounts(ctx)
}

func (e *Engine) load(ctx context.Context, asOf time.Time) (map[ledger.AccountID]ledger.Account, []ledger.JournalEntry, error) {
	accounts, err := e.accountIndex(ctx)
	if err != nil {
		return nil, nil, err
	}
	entries, err := e.repo.EntriesThrough(ctx, asOf)
	if err != nil {
		return nil, nil, err
	}
	return accounts, entries, nil
}

func (e *Engine) accountIndex(ctx context.Context) (map[ledger.AccountID]ledger.Account, error) {
	accounts, err := e.repo.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[ledger.AccountID]ledger.Account, len(accounts))
	for _, account := range accounts {
		index[account.ID] = account
	}
	return index, nil
}

// signedAmount applies the account's normal balance side to a posting.
func signedAmount(posting ledger.Posting, normalSide ledger.Side) int64 {
	if posting.Side == normalSide {
		return posting.Amount.Amount
	}
	return -posting.Amount.Amount
}

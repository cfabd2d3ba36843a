package interfaces

import (
	"bytes"
	"testing"
	"time"

	ledger "pos-backoffice/internal/ledger/domain"
	"pos-backoffice/internal/money"
)

func TestBuildTrialBalanceXLSX(t *testing.T) {
	accounts := ledger.DefaultChart("USD")
	balances := make(map[ledger.AccountID]money.Money, len(accounts))
	for _, account := range accounts {
		balances[account.ID] = money.Zero("USD")
	}
	cash := balances[ledger.AccountCash]
	cash.Amount = 1999
	balances[ledger.AccountCash] = cash
	sales := balances[ledger.AccountSalesRevenue]
	sales.Amount = 1999
	balances[ledger.AccountSalesRevenue] = sales

	data, err := BuildTrialBalanceXLSX(time.Now(), accounts, balances)
	if err != nil {
		t.Fatalf("build xlsx: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected non-empty workbook")
	}
	// XLSX files are zip archives.
	if !bytes.HasPrefix(data, []byte("PK")) {
		t.Fatalf("expected zip header, got %q", data[:2])
	}
}

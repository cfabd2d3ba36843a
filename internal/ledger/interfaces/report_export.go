package interfaces

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	ledger "pos-backoffice/internal/ledger/domain"
	"pos-backoffice/internal/money"
)

// BuildTrialBalanceXLSX renders a minimal XLSX for a trial balance.
func BuildTrialBalanceXLSX(asOf time.Time, accounts []ledger.Account, balances map[ledger.AccountID]money.Money) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "trial_balance"
	f.SetSheetName("Sheet1", sheet)

	_ = f.SetCellValue(sheet, "A1", "Trial Balance")
	_ = f.SetCellValue(sheet, "A2", "As Of")
	_ = f.SetCellValue(sheet, "B2", asOf.Format(time.RFC3339))

	_ = f.SetCellValue(sheet, "A4", "Code")
	_ = f.SetCellValue(sheet, "B4", "Account")
	_ = f.SetCellValue(sheet, "C4", "Type")
	_ = f.SetCellValue(sheet, "D4", "Balance")
	_ = f.SetCellValue(sheet, "E4", "Currency")

	for i, account := range accounts {
		row := i + 5
		balance := balances[account.ID]
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), account.Code)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), account.Name)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), string(account.Type))
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), balance.Format())
		_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", row), balance.Currency)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

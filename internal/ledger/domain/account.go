package ledger

// AccountType classifies a ledger account.
type AccountType string

const (
	TypeAsset     AccountType = "asset"
	TypeLiability AccountType = "liability"
	TypeEquity    AccountType = "equity"
	TypeRevenue   AccountType = "revenue"
	TypeExpense   AccountType = "expense"
)

// Side is the debit or credit side of a posting.
type Side string

const (
	SideDebit  Side = "debit"
	SideCredit Side = "credit"
)

// AccountID identifies a ledger account.
type AccountID string

// Account is static chart-of-accounts reference data. The reconciliation flow
// never mutates accounts.
type Account struct {
	ID         AccountID
	Code       string
	Name       string
	Type       AccountType
	NormalSide Side
	Currency   string
}

// NormalSideFor returns the normal balance side for an account type.
func NormalSideFor(accountType AccountType) (Side, error) {
	switch accountType {
	case TypeAsset, TypeExpense:
		return SideDebit, nil
	case TypeLiability, TypeEquity, TypeRevenue:
		return SideCredit, nil
	default:
		return "", ErrInvalidAccountType
	}
}

// NewAccount validates and constructs an account.
func NewAccount(id AccountID, code, name string, accountType AccountType, currency string) (Account, error) {
	if id == "" {
		return Account{}, ErrEmptyAccountID
	}
	normalSide, err := NormalSideFor(accountType)
	if err != nil {
		return Account{}, err
	}
	return Account{
		ID:         id,
		Code:       code,
		Name:       name,
		Type:       accountType,
		NormalSide: normalSide,
		Currency:   currency,
	}, nil
}

// Well-known account ids of the default chart.
const (
	AccountCash               AccountID = "acct-cash"
	AccountAccountsReceivable AccountID = "acct-receivable"
	AccountAccountsPayable    AccountID = "acct-payable"
	AccountOwnersEquity       AccountID = "acct-equity"
	AccountSalesRevenue       AccountID = "acct-sales"
	AccountProcessingFees     AccountID = "acct-fees"
)

// DefaultChart returns the seed chart of accounts in the given currency.
func DefaultChart(currency string) []Account {
	build := func(id AccountID, code, name string, accountType AccountType) Account {
		account, _ := NewAccount(id, code, name, accountType, currency)
		return account
	}
	return []Account{
		build(AccountCash, "1000", "Cash", TypeAsset),
		build(AccountAccountsReceivable, "1100", "Accounts Receivable", TypeAsset),
		build(AccountAccountsPayable, "2000", "Accounts Payable", TypeLiability),
		build(AccountOwnersEquity, "3000", "Owner's Equity", TypeEquity),
		build(AccountSalesRevenue, "4000", "Sales Revenue", TypeRevenue),
		build(AccountProcessingFees, "5000", "Payment Processing Fees", TypeExpense),
	}
}

package memory

import (
	"context"
	"errors"

	idemmem "pos-backoffice/internal/idempotency/infrastructure/memory"
	invoicemem "pos-backoffice/internal/invoice/infrastructure/memory"
	ledger "pos-backoffice/internal/ledger/domain"
	ledgermem "pos-backoffice/internal/ledger/infrastructure/memory"
	ordermem "pos-backoffice/internal/order/infrastructure/memory"
	"pos-backoffice/internal/reconcile/application"
	reconcile "pos-backoffice/internal/reconcile/domain"
)

// UnitOfWork is the in-memory counterpart of the transactional unit of
// work. Writes are staged and applied all at once, so a commit hook that
// fails leaves no partial records, mirroring a rolled-back database
// transaction.
type UnitOfWork struct {
	transactions *TransactionRepository
	invoices     *invoicemem.Repository
	journal      *ledgermem.JournalRepository
	orders       *ordermem.OrderStore
	keys         *idemmem.Store

	// BeforeCommit runs after staging and before anything is applied.
	// Tests use it to simulate a crash mid-capture.
	BeforeCommit func() error
}

// NewUnitOfWork constructs an in-memory unit of work.
func NewUnitOfWork(
	transactions *TransactionRepository,
	invoices *invoicemem.Repository,
	journal *ledgermem.JournalRepository,
	orders *ordermem.OrderStore,
	keys *idemmem.Store,
) (*UnitOfWork, error) {
	if transactions == nil || invoices == nil || journal == nil || orders == nil || keys == nil {
		return nil, errors.New("unit of work: nil store")
	}
	return &UnitOfWork{
		transactions: transactions,
		invoices:     invoices,
		journal:      journal,
		orders:       orders,
		keys:         keys,
	}, nil
}

// CommitCapture applies the capture write set atomically.
func (u *UnitOfWork) CommitCapture(ctx context.Context, set application.CaptureSet) error {
	if u.BeforeCommit != nil {
		if err := u.BeforeCommit(); err != nil {
			return reconcile.ErrPartialWrite
		}
	}

	// The invoice insert enforces the one-capture-per-transaction rule,
	// so it goes first and nothing else is touched when it rejects.
	if err := u.invoices.Insert(ctx, set.Invoice); err != nil {
		return err
	}
	u.transactions.apply(set.Transaction)
	u.journal.ApplyStaged([]ledger.JournalEntry{set.Entry})
	if err := u.orders.UpdateStatus(ctx, set.Transaction.OrderID, set.OrderStatus, set.At); err != nil {
		return err
	}
	return u.keys.MarkCompleted(ctx, set.IdempotencyKey, set.Result)
}

// CommitReversal applies the reversal write set atomically. The status
// flip goes first and only succeeds while the transaction is still
// completed, so concurrent reversals post exactly one reversing entry.
func (u *UnitOfWork) CommitReversal(ctx context.Context, set application.ReversalSet) error {
	if u.BeforeCommit != nil {
		if err := u.BeforeCommit(); err != nil {
			return reconcile.ErrPartialWrite
		}
	}
	if err := u.transactions.applyIf(set.Transaction, reconcile.TransactionStatusCompleted); err != nil {
		return err
	}
	u.journal.ApplyStaged([]ledger.JournalEntry{set.Entry})
	return u.invoices.Update(ctx, set.Invoice, set.InvoiceReadAt)
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	invoicedom "pos-backoffice/internal/invoice/domain"
	invoicepg "pos-backoffice/internal/invoice/infrastructure/postgres"
	ledgerpg "pos-backoffice/internal/ledger/infrastructure/postgres"
	"pos-backoffice/internal/reconcile/application"
	reconcile "pos-backoffice/internal/reconcile/domain"
)

// UnitOfWork commits the capture and reversal write sets in a single
// database transaction.
type UnitOfWork struct {
	db *sql.DB
}

// NewUnitOfWork constructs a unit of work.
func NewUnitOfWork(db *sql.DB) (*UnitOfWork, error) {
	if db == nil {
		return nil, errors.New("unit of work: nil db")
	}
	return &UnitOfWork{db: db}, nil
}

// CommitCapture writes transaction, invoice, journal entry, order status
// and the idempotency completion together. Either all rows land or none.
func (u *UnitOfWork) CommitCapture(ctx context.Context, set application.CaptureSet) error {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	txn := set.Transaction
	if _, err := tx.ExecContext(ctx, `
INSERT INTO transactions (id, order_id, intent_id, amount, currency, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		txn.ID, txn.OrderID, txn.IntentID, txn.Amount.Amount, txn.Amount.Currency,
		string(txn.Status), txn.CreatedAt, txn.UpdatedAt); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	if err := invoicepg.InsertTx(ctx, tx, "", set.Invoice); err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}

	if err := ledgerpg.AppendEntryTx(ctx, tx, set.Entry); err != nil {
		return fmt.Errorf("append journal entry: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE orders
SET status = $1, updated_at = $2
WHERE id = $3`,
		string(set.OrderStatus), set.At, txn.OrderID); err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	// Completing the key inside the same transaction makes the capture
	// and its dedup record crash-consistent.
	result, err := tx.ExecContext(ctx, `
UPDATE idempotency_keys
SET state = 'completed', result = $1, updated_at = $2
WHERE key = $3 AND state = 'in_progress'`,
		set.Result, set.At, set.IdempotencyKey)
	if err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.New("unit of work: idempotency key not reserved")
	}

	return tx.Commit()
}

// CommitReversal writes the reversal entry, invoice annotation and
// transaction status together. The status flip is conditional on the
// transaction still being completed, so a concurrent reversal loses the
// race here and rolls back instead of posting a second reversing entry.
func (u *UnitOfWork) CommitReversal(ctx context.Context, set application.ReversalSet) error {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	txn := set.Transaction
	result, err := tx.ExecContext(ctx, `
UPDATE transactions
SET status = $1, updated_at = $2
WHERE id = $3 AND status = $4`,
		string(txn.Status), txn.UpdatedAt, txn.ID, string(reconcile.TransactionStatusCompleted))
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return reconcile.ErrAlreadyReversed
	}

	if err := ledgerpg.AppendEntryTx(ctx, tx, set.Entry); err != nil {
		return fmt.Errorf("append reversal entry: %w", err)
	}

	inv := set.Invoice
	invResult, err := tx.ExecContext(ctx, `
UPDATE invoices
SET amount_paid = $1, amount_refunded = $2, payment_status = $3, updated_at = $4
WHERE id = $5 AND updated_at = $6`,
		inv.AmountPaid.Amount, inv.AmountRefunded.Amount, string(inv.PaymentStatus), inv.UpdatedAt, inv.ID, set.InvoiceReadAt)
	if err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	affected, err = invResult.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return invoicedom.ErrStaleInvoice
	}

	return tx.Commit()
}

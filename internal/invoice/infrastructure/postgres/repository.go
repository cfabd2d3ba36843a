package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	invoice "pos-backoffice/internal/invoice/domain"
	"pos-backoffice/internal/money"
)

const defaultInvoiceTable = "invoices"

// Repository is a Postgres implementation of the invoice repository.
type Repository struct {
	db    *sql.DB
	table string
}

// NewRepository constructs an invoice repository.
func NewRepository(db *sql.DB, opts ...Option) *Repository {
	repo := &Repository{db: db, table: defaultInvoiceTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Option configures the repository.
type Option func(*Repository)

// WithTable overrides the table name.
func WithTable(table string) Option {
	return func(repo *Repository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Insert stores a new invoice. The unique transaction_id constraint
// enforces the one-invoice-per-transaction rule.
func (r *Repository) Insert(ctx context.Context, inv *invoice.Invoice) error {
	if r == nil || r.db == nil {
		return errors.New("invoice repository: nil db")
	}
	return InsertTx(ctx, r.db, r.table, inv)
}

// execer covers both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// InsertTx inserts an invoice using the given executor so the write can
// join a larger storage transaction.
func InsertTx(ctx context.Context, ex execer, table string, inv *invoice.Invoice) error {
	if table == "" {
		table = defaultInvoiceTable
	}
	items, err := json.Marshal(inv.Items)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	transaction_id,
	order_id,
	customer_id,
	line_items,
	total_amount,
	amount_paid,
	amount_refunded,
	currency,
	payment_status,
	issued_at,
	updated_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
)
ON CONFLICT (transaction_id)
DO NOTHING`, table)

	result, err := ex.ExecContext(ctx, query,
		inv.ID,
		inv.TransactionID,
		inv.OrderID,
		inv.CustomerID,
		items,
		inv.Total.Amount,
		inv.AmountPaid.Amount,
		inv.AmountRefunded.Amount,
		inv.Total.Currency,
		string(inv.PaymentStatus),
		inv.IssuedAt,
		inv.UpdatedAt,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return invoice.ErrDuplicateInvoice
	}
	return nil
}

// Get returns the invoice by id.
func (r *Repository) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("invoice repository: nil db")
	}
	query := fmt.Sprintf(`
SELECT id, transaction_id, order_id, customer_id, line_items,
	total_amount, amount_paid, amount_refunded, currency,
	payment_status, issued_at, updated_at
FROM %s
WHERE id = $1`, r.table)
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetByTransaction returns the invoice issued for a transaction.
func (r *Repository) GetByTransaction(ctx context.Context, transactionID string) (*invoice.Invoice, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("invoice repository: nil db")
	}
	query := fmt.Sprintf(`
SELECT id, transaction_id, order_id, customer_id, line_items,
	total_amount, amount_paid, amount_refunded, currency,
	payment_status, issued_at, updated_at
FROM %s
WHERE transaction_id = $1`, r.table)
	return r.scanOne(r.db.QueryRowContext(ctx, query, transactionID))
}

// Update persists the payment annotation fields. The update time read by
// the caller is the optimistic lock: a row touched in between no longer
// matches and the write is rejected.
func (r *Repository) Update(ctx context.Context, inv *invoice.Invoice, expect time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("invoice repository: nil db")
	}
	query := fmt.Sprintf(`
UPDATE %s
SET amount_paid = $1, amount_refunded = $2, payment_status = $3, updated_at = $4
WHERE id = $5 AND updated_at = $6`, r.table)
	result, err := r.db.ExecContext(ctx, query,
		inv.AmountPaid.Amount,
		inv.AmountRefunded.Amount,
		string(inv.PaymentStatus),
		inv.UpdatedAt,
		inv.ID,
		expect,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var exists bool
		check := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, r.table)
		if err := r.db.QueryRowContext(ctx, check, inv.ID).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return invoice.ErrStaleInvoice
		}
		return invoice.ErrInvoiceNotFound
	}
	return nil
}

func (r *Repository) scanOne(row *sql.Row) (*invoice.Invoice, error) {
	var inv invoice.Invoice
	var items []byte
	var totalAmount, paidAmount, refundedAmount int64
	var currency, status string
	err := row.Scan(
		&inv.ID,
		&inv.TransactionID,
		&inv.OrderID,
		&inv.CustomerID,
		&items,
		&totalAmount,
		&paidAmount,
		&refundedAmount,
		&currency,
		&status,
		&inv.IssuedAt,
		&inv.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, invoice.ErrInvoiceNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &inv.Items); err != nil {
		return nil, err
	}
	inv.Total = money.Money{Amount: totalAmount, Currency: currency}
	inv.AmountPaid = money.Money{Amount: paidAmount, Currency: currency}
	inv.AmountRefunded = money.Money{Amount: refundedAmount, Currency: currency}
	inv.PaymentStatus = invoice.PaymentStatus(status)
	return &inv, nil
}

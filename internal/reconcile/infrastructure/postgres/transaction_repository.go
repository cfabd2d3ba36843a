package postgres

import (
	"context"
	"database/sql"
	"errors"

	"pos-backoffice/internal/money"
	reconcile "pos-backoffice/internal/reconcile/domain"
)

// TransactionRepository reads transaction records. Inserts go through the
// unit of work so they commit with invoice and journal entry.
type TransactionRepository struct {
	db *sql.DB
}

// NewTransactionRepository constructs a transaction repository.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `id, order_id, intent_id, amount, currency, status, created_at, updated_at`

// Get returns a transaction by id.
func (r *TransactionRepository) Get(ctx context.Context, id string) (*reconcile.Transaction, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("transaction repository: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+transactionColumns+`
FROM transactions
WHERE id = $1`, id)
	return scanTransaction(row)
}

// GetByIntent returns the transaction captured for an intent.
func (r *TransactionRepository) GetByIntent(ctx context.Context, intentID string) (*reconcile.Transaction, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("transaction repository: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+transactionColumns+`
FROM transactions
WHERE intent_id = $1`, intentID)
	return scanTransaction(row)
}

// List returns recent transactions newest first.
func (r *TransactionRepository) List(ctx context.Context, limit int) ([]reconcile.Transaction, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("transaction repository: nil db")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+transactionColumns+`
FROM transactions
ORDER BY created_at DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []reconcile.Transaction
	for rows.Next() {
		var txn reconcile.Transaction
		var amount int64
		var currency, status string
		if err := rows.Scan(&txn.ID, &txn.OrderID, &txn.IntentID, &amount, &currency, &status, &txn.CreatedAt, &txn.UpdatedAt); err != nil {
			return nil, err
		}
		txn.Amount = money.Money{Amount: amount, Currency: currency}
		txn.Status = reconcile.TransactionStatus(status)
		result = append(result, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanTransaction(row *sql.Row) (*reconcile.Transaction, error) {
	var txn reconcile.Transaction
	var amount int64
	var currency, status string
	err := row.Scan(&txn.ID, &txn.OrderID, &txn.IntentID, &amount, &currency, &status, &txn.CreatedAt, &txn.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, reconcile.ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	txn.Amount = money.Money{Amount: amount, Currency: currency}
	txn.Status = reconcile.TransactionStatus(status)
	return &txn, nil
}

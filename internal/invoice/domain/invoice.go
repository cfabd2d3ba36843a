package domain

import (
	"context"
	"time"

	"pos-backoffice/internal/money"
	order "pos-backoffice/internal/order/domain"
)

// PaymentStatus is the only mutable annotation on an issued invoice.
type PaymentStatus string

const (
	PaymentStatusUnpaid            PaymentStatus = "unpaid"
	PaymentStatusPaid              PaymentStatus = "paid"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
	PaymentStatusRefunded          PaymentStatus = "refunded"
)

// LineItem is an immutable snapshot of an order line at issuance time.
// Later catalog changes never alter an issued invoice.
type LineItem struct {
	ProductID   string      `json:"product_id"`
	Description string      `json:"description"`
	Quantity    int64       `json:"quantity"`
	UnitPrice   money.Money `json:"unit_price"`
	Total       money.Money `json:"total"`
}

// Invoice is issued once per completed transaction.
type Invoice struct {
	ID             string        `json:"id"`
	TransactionID  string        `json:"transaction_id"`
	OrderID        string        `json:"order_id"`
	CustomerID     string        `json:"customer_id"`
	Items          []LineItem    `json:"items"`
	Total          money.Money   `json:"total"`
	AmountPaid     money.Money   `json:"amount_paid"`
	AmountRefunded money.Money   `json:"amount_refunded"`
	PaymentStatus  PaymentStatus `json:"payment_status"`
	IssuedAt       time.Time     `json:"issued_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// NewInvoice snapshots the order's line items into a fresh unpaid invoice.
func NewInvoice(id, transactionID string, ord *order.Order, issuedAt time.Time) (*Invoice, error) {
	if id == "" {
		return nil, ErrEmptyInvoiceID
	}
	if transactionID == "" {
		return nil, ErrEmptyTransactionID
	}
	if ord == nil || len(ord.Items) == 0 {
		return nil, ErrNoLineItems
	}

	items := make([]LineItem, 0, len(ord.Items))
	for _, item := range ord.Items {
		total, err := item.Total()
		if err != nil {
			return nil, err
		}
		items = append(items, LineItem{
			ProductID:   item.ProductID,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Total:       total,
		})
	}

	issuedAt = issuedAt.UTC()
	return &Invoice{
		ID:             id,
		TransactionID:  transactionID,
		OrderID:        ord.ID,
		CustomerID:     ord.CustomerID,
		Items:          items,
		Total:          ord.Total,
		AmountPaid:     money.Zero(ord.Total.Currency),
		AmountRefunded: money.Zero(ord.Total.Currency),
		PaymentStatus:  PaymentStatusUnpaid,
		IssuedAt:       issuedAt,
		UpdatedAt:      issuedAt,
	}, nil
}

// RecordPayment applies a payment against the open balance.
// Paying past the invoice total is rejected.
func (inv *Invoice) RecordPayment(amount money.Money, at time.Time) error {
	if inv.PaymentStatus == PaymentStatusRefunded {
		return ErrIllegalStatus
	}
	paid, err := inv.AmountPaid.Add(amount)
	if err != nil {
		return err
	}
	cmp, err := paid.Compare(inv.Total)
	if err != nil {
		return err
	}
	if cmp > 0 {
		return ErrOverpayment
	}
	inv.AmountPaid = paid
	if cmp == 0 {
		inv.PaymentStatus = PaymentStatusPaid
	}
	inv.UpdatedAt = at.UTC()
	return nil
}

// RecordRefund applies a refund against the paid amount.
func (inv *Invoice) RecordRefund(amount money.Money, at time.Time) error {
	if inv.PaymentStatus != PaymentStatusPaid && inv.PaymentStatus != PaymentStatusPartiallyRefunded {
		return ErrIllegalStatus
	}
	refunded, err := inv.AmountRefunded.Add(amount)
	if err != nil {
		return err
	}
	cmp, err := refunded.Compare(inv.AmountPaid)
	if err != nil {
		return err
	}
	if cmp > 0 {
		return ErrInvalidRefund
	}
	inv.AmountRefunded = refunded
	if cmp == 0 {
		inv.PaymentStatus = PaymentStatusRefunded
	} else {
		inv.PaymentStatus = PaymentStatusPartiallyRefunded
	}
	inv.UpdatedAt = at.UTC()
	return nil
}

// Repository provides invoice persistence.
type Repository interface {
	// Insert stores a new invoice. ErrDuplicateInvoice when the
	// transaction already has one.
	Insert(ctx context.Context, inv *Invoice) error
	Get(ctx context.Context, id string) (*Invoice, error)
	GetByTransaction(ctx context.Context, transactionID string) (*Invoice, error)
	// Update persists the payment annotation fields. The write only lands
	// while the stored row still carries expect as its update time;
	// ErrStaleInvoice otherwise.
	Update(ctx context.Context, inv *Invoice, expect time.Time) error
}

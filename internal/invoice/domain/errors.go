package domain

import "errors"

var (
	// ErrEmptyInvoiceID indicates a missing invoice id.
	ErrEmptyInvoiceID = errors.New("invoice: empty invoice id")
	// ErrEmptyTransactionID indicates a missing transaction reference.
	ErrEmptyTransactionID = errors.New("invoice: empty transaction id")
	// ErrNoLineItems indicates an invoice without line items.
	ErrNoLineItems = errors.New("invoice: no line items")
	// ErrDuplicateInvoice indicates an invoice already exists for the transaction.
	ErrDuplicateInvoice = errors.New("invoice: duplicate invoice for transaction")
	// ErrInvoiceNotFound indicates the invoice does not exist.
	ErrInvoiceNotFound = errors.New("invoice: not found")
	// ErrOverpayment indicates a payment exceeding the open balance.
	ErrOverpayment = errors.New("invoice: overpayment not allowed")
	// ErrInvalidRefund indicates a refund exceeding the paid amount.
	ErrInvalidRefund = errors.New("invoice: refund exceeds paid amount")
	// ErrIllegalStatus indicates an operation not valid for the current payment status.
	ErrIllegalStatus = errors.New("invoice: operation not allowed in current status")
	// ErrStaleInvoice indicates the invoice changed since it was read.
	ErrStaleInvoice = errors.New("invoice: concurrent modification, reload and retry")
)

package domain

import "errors"

var (
	// ErrOrderNotPayable indicates the order is not in a payable status.
	ErrOrderNotPayable = errors.New("reconcile: order not payable")
	// ErrConfirmationInProgress indicates another confirmation holds the intent.
	ErrConfirmationInProgress = errors.New("reconcile: confirmation already in progress")
	// ErrAmountMismatch indicates the gateway amount differs from the order total.
	ErrAmountMismatch = errors.New("reconcile: gateway amount does not match order total")
	// ErrPaymentFailed indicates the gateway reported a definitive failure.
	ErrPaymentFailed = errors.New("reconcile: payment failed")
	// ErrPaymentPending indicates the gateway has not settled the payment yet.
	ErrPaymentPending = errors.New("reconcile: payment not settled yet")
	// ErrRequiresManualReview indicates an indeterminate gateway outcome.
	ErrRequiresManualReview = errors.New("reconcile: indeterminate gateway outcome, manual review opened")
	// ErrTransactionNotFound indicates the transaction does not exist.
	ErrTransactionNotFound = errors.New("reconcile: transaction not found")
	// ErrAlreadyReversed indicates the transaction was reversed before.
	ErrAlreadyReversed = errors.New("reconcile: transaction already reversed")
	// ErrReviewNotFound indicates the manual review does not exist.
	ErrReviewNotFound = errors.New("reconcile: manual review not found")
	// ErrReviewResolved indicates the manual review was resolved before.
	ErrReviewResolved = errors.New("reconcile: manual review already resolved")
	// ErrPartialWrite indicates the storage transaction did not commit fully.
	ErrPartialWrite = errors.New("reconcile: partial write, transaction rolled back")
)

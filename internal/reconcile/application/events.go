package application

import (
	"time"

	"pos-backoffice/internal/money"
)

// PaymentConfirmed is emitted after the capture triple commits.
type PaymentConfirmed struct {
	OrderID        string      `json:"OrderID"`
	IntentID       string      `json:"IntentID"`
	TransactionID  string      `json:"TransactionID"`
	InvoiceID      string      `json:"InvoiceID"`
	JournalEntryID string      `json:"JournalEntryID"`
	Amount         money.Money `json:"Amount"`
	OccurredAt     time.Time   `json:"OccurredAt"`
}

// PaymentFailed is emitted when the gateway reports a definitive failure.
type PaymentFailed struct {
	OrderID    string    `json:"OrderID"`
	IntentID   string    `json:"IntentID"`
	Reason     string    `json:"Reason"`
	OccurredAt time.Time `json:"OccurredAt"`
}

// TransactionReversed is emitted after a compensating entry commits.
type TransactionReversed struct {
	OrderID         string    `json:"OrderID"`
	TransactionID   string    `json:"TransactionID"`
	ReversalEntryID string    `json:"ReversalEntryID"`
	OccurredAt      time.Time `json:"OccurredAt"`
}

// ManualReviewOpened is emitted when an intent needs operator attention.
type ManualReviewOpened struct {
	OrderID    string    `json:"OrderID"`
	IntentID   string    `json:"IntentID"`
	ReviewID   string    `json:"ReviewID"`
	Reason     string    `json:"Reason"`
	OccurredAt time.Time `json:"OccurredAt"`
}

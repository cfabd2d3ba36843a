package gateway

import (
	"context"
	"errors"
	"time"

	"pos-backoffice/internal/money"
)

// Status is the normalized payment intent state.
type Status string

const (
	StatusRequiresAction Status = "requires_action"
	StatusProcessing     Status = "processing"
	StatusSucceeded      Status = "succeeded"
	StatusFailed         Status = "failed"
	StatusCanceled       Status = "canceled"
	// StatusIndeterminate means the gateway could not be reached within the
	// retry budget. It is never a definitive failure.
	StatusIndeterminate Status = "indeterminate"
)

// Definitive reports whether the status is a terminal gateway answer.
func (s Status) Definitive() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCanceled
}

// Intent is a gateway payment intent normalized into local types.
type Intent struct {
	ID           string
	OrderID      string
	Amount       money.Money
	Status       Status
	ClientSecret string
}

// ErrUnknownIntent is returned when the gateway does not know the intent id.
var ErrUnknownIntent = errors.New("gateway: unknown intent")

const (
	defaultMaxAttempts = 5
	defaultBackoffBase = 200 * time.Millisecond
)

// Adapter wraps the gateway client and normalizes its intent lifecycle.
// Reads are retried with bounded exponential backoff; an exhausted retry
// budget yields StatusIndeterminate, distinct from a reported failure.
type Adapter struct {
	client      *Client
	maxAttempts int
	backoffBase time.Duration
}

// Option configures the adapter.
type Option func(*Adapter)

// WithMaxAttempts overrides the read retry budget.
func WithMaxAttempts(attempts int) Option {
	return func(a *Adapter) {
		if attempts > 0 {
			a.maxAttempts = attempts
		}
	}
}

// WithBackoffBase overrides the first backoff delay.
func WithBackoffBase(base time.Duration) Option {
	return func(a *Adapter) {
		if base > 0 {
			a.backoffBase = base
		}
	}
}

// NewAdapter constructs an adapter around a client.
func NewAdapter(client *Client, opts ...Option) (*Adapter, error) {
	if client == nil {
		return nil, errors.New("gateway: nil client")
	}
	adapter := &Adapter{
		client:      client,
		maxAttempts: defaultMaxAttempts,
		backoffBase: defaultBackoffBase,
	}
	for _, opt := range opts {
		opt(adapter)
	}
	return adapter, nil
}

// CreateIntent registers a payment intent for an order at the gateway.
func (a *Adapter) CreateIntent(ctx context.Context, orderID string, amount money.Money) (Intent, error) {
	resp, err := a.client.createIntent(ctx, orderID, amount.Amount, amount.Currency)
	if err != nil {
		return Intent{}, err
	}
	return a.normalize(resp)
}

// RetrieveIntent reads an intent, retrying transient failures.
func (a *Adapter) RetrieveIntent(ctx context.Context, intentID string) (Intent, error) {
	var resp intentResponse
	err := a.withRetry(ctx, func() error {
		var callErr error
		resp, callErr = a.client.retrieveIntent(ctx, intentID)
		return callErr
	})
	if err != nil {
		if errors.Is(err, errNotFound) {
			return Intent{}, ErrUnknownIntent
		}
		if IsTransient(err) {
			return Intent{Status: StatusIndeterminate}, nil
		}
		return Intent{}, err
	}
	return a.normalize(resp)
}

// IntentStatus reads the current status, retrying transient failures. When the
// retry budget is exhausted without a definitive answer the status is
// StatusIndeterminate with a nil error.
func (a *Adapter) IntentStatus(ctx context.Context, intentID string) (Status, error) {
	intent, err := a.RetrieveIntent(ctx, intentID)
	if err != nil {
		return "", err
	}
	return intent.Status, nil
}

func (a *Adapter) withRetry(ctx context.Context, call func() error) error {
	var lastErr error
	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := a.backoffBase << (attempt - 1)
			select {
			case <-ctx.Done():
				return &transientError{err: ctx.Err()}
			case <-time.After(delay):
			}
		}
		lastErr = call()
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func (a *Adapter) normalize(resp intentResponse) (Intent, error) {
	amount, err := money.New(resp.Amount, resp.Currency)
	if err != nil {
		return Intent{}, err
	}
	status, err := normalizeStatus(resp.Status)
	if err != nil {
		return Intent{}, err
	}
	return Intent{
		ID:           resp.ID,
		OrderID:      resp.OrderID,
		Amount:       amount,
		Status:       status,
		ClientSecret: resp.ClientSecret,
	}, nil
}

func normalizeStatus(raw string) (Status, error) {
	switch raw {
	case "requires_action", "requires_payment_method", "requires_confirmation":
		return StatusRequiresAction, nil
	case "processing":
		return StatusProcessing, nil
	case "succeeded":
		return StatusSucceeded, nil
	case "failed", "requires_capture_failed":
		return StatusFailed, nil
	case "canceled", "cancelled":
		return StatusCanceled, nil
	default:
		return "", errors.New("gateway: unknown status " + raw)
	}
}

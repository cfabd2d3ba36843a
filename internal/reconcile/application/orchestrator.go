package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"pos-backoffice/internal/gateway"
	"pos-backoffice/internal/idempotency"
	invoice "pos-backoffice/internal/invoice/domain"
	ledgerapp "pos-backoffice/internal/ledger/application"
	ledger "pos-backoffice/internal/ledger/domain"
	"pos-backoffice/internal/money"
	"pos-backoffice/internal/observability/metrics"
	order "pos-backoffice/internal/order/domain"
	reconcile "pos-backoffice/internal/reconcile/domain"
)

// PaymentGateway is the slice of the gateway adapter the orchestrator needs.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, orderID string, amount money.Money) (gateway.Intent, error)
	RetrieveIntent(ctx context.Context, intentID string) (gateway.Intent, error)
}

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

// Confirmation outcomes recorded against the idempotency key.
const (
	OutcomePosted = "posted"
	OutcomeFailed = "failed"
)

// ConfirmResult is the answer to a confirmation call. Replays of the same
// intent id get the same result back.
type ConfirmResult struct {
	Outcome        string `json:"outcome"`
	TransactionID  string `json:"transaction_id,omitempty"`
	InvoiceID      string `json:"invoice_id,omitempty"`
	JournalEntryID string `json:"journal_entry_id,omitempty"`
}

// Orchestrator drives the payment-to-ledger reconciliation flow.
type Orchestrator struct {
	cfg          Config
	guard        *idempotency.Guard
	gateway      PaymentGateway
	orders       order.Store
	transactions reconcile.TransactionStore
	invoices     invoice.Repository
	engine       *ledgerapp.Engine
	uow          UnitOfWork
	reviews      reconcile.ReviewStore
	publisher    EventPublisher
	logger       *log.Logger
	now          func() time.Time
	newID        func() string
}

// NewOrchestrator constructs the orchestrator.
func NewOrchestrator(
	cfg Config,
	guard *idempotency.Guard,
	pg PaymentGateway,
	orders order.Store,
	transactions reconcile.TransactionStore,
	invoices invoice.Repository,
	engine *ledgerapp.Engine,
	uow UnitOfWork,
	reviews reconcile.ReviewStore,
	publisher EventPublisher,
	logger *log.Logger,
) (*Orchestrator, error) {
	if guard == nil {
		return nil, errors.New("orchestrator: nil idempotency guard")
	}
	if pg == nil {
		return nil, errors.New("orchestrator: nil payment gateway")
	}
	if orders == nil {
		return nil, errors.New("orchestrator: nil order store")
	}
	if transactions == nil {
		return nil, errors.New("orchestrator: nil transaction store")
	}
	if invoices == nil {
		return nil, errors.New("orchestrator: nil invoice repository")
	}
	if engine == nil {
		return nil, errors.New("orchestrator: nil ledger engine")
	}
	if uow == nil {
		return nil, errors.New("orchestrator: nil unit of work")
	}
	if reviews == nil {
		return nil, errors.New("orchestrator: nil review store")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		cfg:          cfg,
		guard:        guard,
		gateway:      pg,
		orders:       orders,
		transactions: transactions,
		invoices:     invoices,
		engine:       engine,
		uow:          uow,
		reviews:      reviews,
		publisher:    publisher,
		logger:       logger,
		now:          time.Now,
		newID:        uuid.NewString,
	}, nil
}

// CreatePaymentIntent registers an intent with the gateway for the order
// total and moves the order to awaiting_payment.
func (o *Orchestrator) CreatePaymentIntent(ctx context.Context, orderID string) (gateway.Intent, error) {
	ord, err := o.orders.Get(ctx, orderID)
	if err != nil {
		return gateway.Intent{}, err
	}

	switch ord.Status {
	case order.StatusDraft, order.StatusFailed:
		if err := ord.TransitionTo(order.StatusAwaitingPayment, o.now()); err != nil {
			return gateway.Intent{}, err
		}
		if err := o.orders.UpdateStatus(ctx, ord.ID, order.StatusAwaitingPayment, ord.UpdatedAt); err != nil {
			return gateway.Intent{}, err
		}
	case order.StatusAwaitingPayment:
		// Re-requesting an intent for a pending order is allowed.
	default:
		return gateway.Intent{}, reconcile.ErrOrderNotPayable
	}

	intent, err := o.gateway.CreateIntent(ctx, ord.ID, ord.Total)
	if err != nil {
		return gateway.Intent{}, fmt.Errorf("create payment intent: %w", err)
	}
	o.logger.Printf("payment intent created order=%s intent=%s amount=%s", ord.ID, intent.ID, ord.Total.String())
	return intent, nil
}

// ConfirmPayment settles an intent against the gateway and, on success,
// writes the transaction, invoice and journal entry in one storage
// transaction. The intent id is the idempotency key: replays return the
// recorded result instead of re-running the capture.
func (o *Orchestrator) ConfirmPayment(ctx context.Context, intentID string) (ConfirmResult, error) {
	started := o.now()

	res, err := o.guard.Reserve(ctx, intentID)
	if err != nil {
		return ConfirmResult{}, err
	}
	switch res.State {
	case idempotency.StateCompleted:
		return o.replay(res.Result)
	case idempotency.StateInProgress:
		return ConfirmResult{}, reconcile.ErrConfirmationInProgress
	}

	// The reservation is held. A client disconnect must not abort the
	// capture halfway, so the remaining work ignores caller cancellation.
	ctx = context.WithoutCancel(ctx)

	intent, err := o.gateway.RetrieveIntent(ctx, intentID)
	if err != nil {
		_ = o.guard.Release(ctx, intentID)
		metrics.ObserveConfirm(metrics.ResultError, o.now().Sub(started))
		return ConfirmResult{}, err
	}
	metrics.IncGatewayPoll(string(intent.Status))

	switch intent.Status {
	case gateway.StatusSucceeded:
		result, err := o.capture(ctx, intentID, intent)
		if err != nil {
			metrics.ObserveConfirm(metrics.ResultError, o.now().Sub(started))
			return ConfirmResult{}, err
		}
		metrics.ObserveConfirm(metrics.ResultSuccess, o.now().Sub(started))
		return result, nil

	case gateway.StatusFailed, gateway.StatusCanceled:
		return o.recordFailure(ctx, intentID, intent, started)

	case gateway.StatusIndeterminate:
		o.openReview(ctx, intent.OrderID, intentID, "gateway outcome indeterminate after retries")
		_ = o.guard.Release(ctx, intentID)
		metrics.ObserveConfirm(metrics.ResultError, o.now().Sub(started))
		return ConfirmResult{}, reconcile.ErrRequiresManualReview

	default:
		// requires_action or processing: nothing settled yet, free the
		// key so the client can try again later.
		_ = o.guard.Release(ctx, intentID)
		return ConfirmResult{}, reconcile.ErrPaymentPending
	}
}

func (o *Orchestrator) capture(ctx context.Context, intentID string, intent gateway.Intent) (ConfirmResult, error) {
	ord, err := o.orders.Get(ctx, intent.OrderID)
	if err != nil {
		_ = o.guard.Release(ctx, intentID)
		return ConfirmResult{}, err
	}
	if ord.Status != order.StatusAwaitingPayment {
		_ = o.guard.Release(ctx, intentID)
		return ConfirmResult{}, reconcile.ErrOrderNotPayable
	}
	if !intent.Amount.Equal(ord.Total) {
		o.openReview(ctx, ord.ID, intentID, fmt.Sprintf("amount mismatch: gateway=%s order=%s", intent.Amount.String(), ord.Total.String()))
		_ = o.guard.Release(ctx, intentID)
		return ConfirmResult{}, reconcile.ErrAmountMismatch
	}

	at := o.now().UTC()
	txn := &reconcile.Transaction{
		ID:        o.newID(),
		OrderID:   ord.ID,
		IntentID:  intentID,
		Amount:    ord.Total,
		Status:    reconcile.TransactionStatusCompleted,
		CreatedAt: at,
		UpdatedAt: at,
	}

	inv, err := invoice.NewInvoice(o.newID(), txn.ID, ord, at)
	if err != nil {
		_ = o.guard.Release(ctx, intentID)
		return ConfirmResult{}, err
	}
	if err := inv.RecordPayment(ord.Total, at); err != nil {
		_ = o.guard.Release(ctx, intentID)
		return ConfirmResult{}, err
	}

	entry, err := ledger.NewJournalEntry(ledger.JournalEntryID(o.newID()), at, txn.ID, []ledger.Posting{
		{AccountID: ledger.AccountCash, Side: ledger.SideDebit, Amount: ord.Total},
		{AccountID: ledger.AccountSalesRevenue, Side: ledger.SideCredit, Amount: ord.Total},
	})
	if err != nil {
		_ = o.guard.Release(ctx, intentID)
		return ConfirmResult{}, err
	}
	if err := o.engine.Validate(ctx, entry); err != nil {
		_ = o.guard.Release(ctx, intentID)
		return ConfirmResult{}, err
	}

	encoded, err := idempotency.EncodeResult(idempotency.Result{
		Outcome:        OutcomePosted,
		TransactionID:  txn.ID,
		InvoiceID:      inv.ID,
		JournalEntryID: string(entry.ID),
	})
	if err != nil {
		_ = o.guard.Release(ctx, intentID)
		return ConfirmResult{}, err
	}

	set := CaptureSet{
		IdempotencyKey: intentID,
		Result:         encoded,
		Transaction:    txn,
		Invoice:        inv,
		Entry:          entry,
		OrderStatus:    order.StatusPaid,
		At:             at,
	}
	if err := o.uow.CommitCapture(ctx, set); err != nil {
		_ = o.guard.Release(ctx, intentID)
		return ConfirmResult{}, fmt.Errorf("commit capture: %w", err)
	}

	o.logger.Printf("payment confirmed order=%s intent=%s transaction=%s invoice=%s entry=%s",
		ord.ID, intentID, txn.ID, inv.ID, entry.ID)
	o.publish(ctx, PaymentConfirmed{
		OrderID:        ord.ID,
		IntentID:       intentID,
		TransactionID:  txn.ID,
		InvoiceID:      inv.ID,
		JournalEntryID: string(entry.ID),
		Amount:         ord.Total,
		OccurredAt:     at,
	})

	return ConfirmResult{
		Outcome:        OutcomePosted,
		TransactionID:  txn.ID,
		InvoiceID:      inv.ID,
		JournalEntryID: string(entry.ID),
	}, nil
}

func (o *Orchestrator) recordFailure(ctx context.Context, intentID string, intent gateway.Intent, started time.Time) (ConfirmResult, error) {
	at := o.now()
	if err := o.guard.Complete(ctx, intentID, idempotency.Result{
		Outcome: OutcomeFailed,
		Detail:  string(intent.Status),
	}); err != nil {
		return ConfirmResult{}, err
	}

	if intent.OrderID != "" {
		ord, err := o.orders.Get(ctx, intent.OrderID)
		switch {
		case err != nil:
			o.logger.Printf("failed payment: load order order=%s intent=%s: %v", intent.OrderID, intentID, err)
		case ord.Status == order.StatusAwaitingPayment:
			if err := ord.TransitionTo(order.StatusFailed, at); err != nil {
				o.logger.Printf("failed payment: transition order=%s intent=%s: %v", ord.ID, intentID, err)
			} else if err := o.orders.UpdateStatus(ctx, ord.ID, order.StatusFailed, ord.UpdatedAt); err != nil {
				o.logger.Printf("failed payment: update order status order=%s intent=%s: %v", ord.ID, intentID, err)
			}
		}
	}

	o.logger.Printf("payment failed intent=%s status=%s", intentID, intent.Status)
	o.publish(ctx, PaymentFailed{
		OrderID:    intent.OrderID,
		IntentID:   intentID,
		Reason:     string(intent.Status),
		OccurredAt: at.UTC(),
	})
	metrics.ObserveConfirm(metrics.ResultError, o.now().Sub(started))
	return ConfirmResult{Outcome: OutcomeFailed}, reconcile.ErrPaymentFailed
}

// Reverse posts a compensating journal entry for a completed transaction,
// marks the invoice refunded and the transaction reversed. The original
// entry stays untouched.
func (o *Orchestrator) Reverse(ctx context.Context, transactionID string) (ledger.JournalEntryID, error) {
	txn, err := o.transactions.Get(ctx, transactionID)
	if err != nil {
		metrics.IncReversal(metrics.ResultError)
		return "", err
	}
	if txn.Status == reconcile.TransactionStatusReversed {
		metrics.IncReversal(metrics.ResultError)
		return "", reconcile.ErrAlreadyReversed
	}

	inv, err := o.invoices.GetByTransaction(ctx, txn.ID)
	if err != nil {
		metrics.IncReversal(metrics.ResultError)
		return "", err
	}

	entries, err := o.engine.EntriesBySource(ctx, txn.ID)
	if err != nil {
		metrics.IncReversal(metrics.ResultError)
		return "", err
	}
	if len(entries) == 0 {
		metrics.IncReversal(metrics.ResultError)
		return "", ledger.ErrEntryNotFound
	}

	at := o.now().UTC()
	reversal, err := entries[0].Reversal(ledger.JournalEntryID(o.newID()), at)
	if err != nil {
		metrics.IncReversal(metrics.ResultError)
		return "", err
	}
	invReadAt := inv.UpdatedAt
	if err := inv.RecordRefund(inv.AmountPaid, at); err != nil {
		metrics.IncReversal(metrics.ResultError)
		// A concurrent reversal may have refunded the invoice between our
		// status check and here. The transaction record settles the race.
		if current, gerr := o.transactions.Get(ctx, txn.ID); gerr == nil && current.Status == reconcile.TransactionStatusReversed {
			return "", reconcile.ErrAlreadyReversed
		}
		return "", err
	}
	txn.Status = reconcile.TransactionStatusReversed
	txn.UpdatedAt = at

	if err := o.uow.CommitReversal(ctx, ReversalSet{
		Transaction:   txn,
		Invoice:       inv,
		InvoiceReadAt: invReadAt,
		Entry:         reversal,
		At:            at,
	}); err != nil {
		metrics.IncReversal(metrics.ResultError)
		if errors.Is(err, reconcile.ErrAlreadyReversed) {
			return "", reconcile.ErrAlreadyReversed
		}
		return "", fmt.Errorf("commit reversal: %w", err)
	}

	o.logger.Printf("transaction reversed transaction=%s entry=%s", txn.ID, reversal.ID)
	o.publish(ctx, TransactionReversed{
		OrderID:         txn.OrderID,
		TransactionID:   txn.ID,
		ReversalEntryID: string(reversal.ID),
		OccurredAt:      at,
	})
	metrics.IncReversal(metrics.ResultSuccess)
	return reversal.ID, nil
}

// Transaction returns a transaction by id.
func (o *Orchestrator) Transaction(ctx context.Context, id string) (*reconcile.Transaction, error) {
	return o.transactions.Get(ctx, id)
}

// OpenReviews lists unresolved manual reviews.
func (o *Orchestrator) OpenReviews(ctx context.Context) ([]reconcile.ManualReview, error) {
	return o.reviews.ListOpen(ctx)
}

// ResolveReview closes a manual review.
func (o *Orchestrator) ResolveReview(ctx context.Context, id, resolvedBy, note string) error {
	return o.reviews.Resolve(ctx, id, resolvedBy, note, o.now())
}

func (o *Orchestrator) replay(result *idempotency.Result) (ConfirmResult, error) {
	if result == nil {
		return ConfirmResult{}, reconcile.ErrConfirmationInProgress
	}
	replayed := ConfirmResult{
		Outcome:        result.Outcome,
		TransactionID:  result.TransactionID,
		InvoiceID:      result.InvoiceID,
		JournalEntryID: result.JournalEntryID,
	}
	if result.Outcome == OutcomeFailed {
		return replayed, reconcile.ErrPaymentFailed
	}
	return replayed, nil
}

func (o *Orchestrator) openReview(ctx context.Context, orderID, intentID, reason string) {
	review := &reconcile.ManualReview{
		ID:       o.newID(),
		IntentID: intentID,
		OrderID:  orderID,
		Reason:   reason,
		OpenedAt: o.now().UTC(),
	}
	if err := o.reviews.Insert(ctx, review); err != nil {
		o.logger.Printf("open manual review failed intent=%s err=%v", intentID, err)
		return
	}
	metrics.IncReviewOpened()
	o.logger.Printf("manual review opened review=%s intent=%s reason=%q", review.ID, intentID, reason)
	o.publish(ctx, ManualReviewOpened{
		OrderID:    orderID,
		IntentID:   intentID,
		ReviewID:   review.ID,
		Reason:     reason,
		OccurredAt: review.OpenedAt,
	})
}

func (o *Orchestrator) publish(ctx context.Context, event any) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.Publish(ctx, event); err != nil {
		o.logger.Printf("publish event failed: %v", err)
	}
}

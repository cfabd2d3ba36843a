package application_test

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"pos-backoffice/internal/gateway"
	"pos-backoffice/internal/idempotency"
	idemmem "pos-backoffice/internal/idempotency/infrastructure/memory"
	invoicedom "pos-backoffice/internal/invoice/domain"
	invoicemem "pos-backoffice/internal/invoice/infrastructure/memory"
	ledgerapp "pos-backoffice/internal/ledger/application"
	ledger "pos-backoffice/internal/ledger/domain"
	ledgermem "pos-backoffice/internal/ledger/infrastructure/memory"
	"pos-backoffice/internal/money"
	order "pos-backoffice/internal/order/domain"
	ordermem "pos-backoffice/internal/order/infrastructure/memory"
	"pos-backoffice/internal/reconcile/application"
	reconcile "pos-backoffice/internal/reconcile/domain"
	reconcilemem "pos-backoffice/internal/reconcile/infrastructure/memory"
)

type fakeGateway struct {
	intents     map[string]gateway.Intent
	createErr   error
	retrieveErr error
}

func (f *fakeGateway) CreateIntent(_ context.Context, orderID string, amount money.Money) (gateway.Intent, error) {
	if f.createErr != nil {
		return gateway.Intent{}, f.createErr
	}
	intent := gateway.Intent{ID: "pi_" + orderID, OrderID: orderID, Amount: amount, Status: gateway.StatusRequiresAction}
	f.intents[intent.ID] = intent
	return intent, nil
}

func (f *fakeGateway) RetrieveIntent(_ context.Context, intentID string) (gateway.Intent, error) {
	if f.retrieveErr != nil {
		return gateway.Intent{}, f.retrieveErr
	}
	intent, ok := f.intents[intentID]
	if !ok {
		return gateway.Intent{}, gateway.ErrUnknownIntent
	}
	return intent, nil
}

func (f *fakeGateway) setStatus(intentID string, status gateway.Status) {
	intent := f.intents[intentID]
	intent.Status = status
	f.intents[intentID] = intent
}

type capturedEvents struct {
	events []any
}

func (c *capturedEvents) Publish(_ context.Context, event any) error {
	c.events = append(c.events, event)
	return nil
}

type harness struct {
	orch         *application.Orchestrator
	gateway      *fakeGateway
	orders       *ordermem.OrderStore
	transactions *reconcilemem.TransactionRepository
	invoices     *invoicemem.Repository
	journal      *ledgermem.JournalRepository
	reviews      *reconcilemem.ReviewRepository
	uow          *reconcilemem.UnitOfWork
	engine       *ledgerapp.Engine
	events       *capturedEvents
	logs         *bytes.Buffer
}

func usd(t *testing.T, amount int64) money.Money {
	t.Helper()
	m, err := money.New(amount, "USD")
	if err != nil {
		t.Fatalf("money: %v", err)
	}
	return m
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	keys := idemmem.NewStore()
	guard, err := idempotency.NewGuard(keys)
	if err != nil {
		t.Fatalf("guard: %v", err)
	}

	journal := ledgermem.NewJournalRepository()
	if err := journal.SeedAccounts(ctx, ledger.DefaultChart("USD")); err != nil {
		t.Fatalf("seed accounts: %v", err)
	}
	engine, err := ledgerapp.NewEngine(journal)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}

	orders := ordermem.NewOrderStore()
	transactions := reconcilemem.NewTransactionRepository()
	invoices := invoicemem.NewRepository()
	reviews := reconcilemem.NewReviewRepository()
	uow, err := reconcilemem.NewUnitOfWork(transactions, invoices, journal, orders, keys)
	if err != nil {
		t.Fatalf("unit of work: %v", err)
	}

	gw := &fakeGateway{intents: make(map[string]gateway.Intent)}
	events := &capturedEvents{}
	logs := &bytes.Buffer{}
	logger := log.New(logs, "", 0)

	orch, err := application.NewOrchestrator(
		application.Config{Currency: "USD"},
		guard, gw, orders, transactions, invoices, engine, uow, reviews, events, logger,
	)
	if err != nil {
		t.Fatalf("orchestrator: %v", err)
	}

	return &harness{
		orch:         orch,
		gateway:      gw,
		orders:       orders,
		transactions: transactions,
		invoices:     invoices,
		journal:      journal,
		reviews:      reviews,
		uow:          uow,
		engine:       engine,
		events:       events,
		logs:         logs,
	}
}

// seedOrder stores an order awaiting payment and registers its intent at the
// fake gateway with the given status.
func (h *harness) seedOrder(t *testing.T, orderID string, total int64, status gateway.Status) string {
	t.Helper()
	items := []order.LineItem{
		{ProductID: "sku_1", Description: "Widget", Quantity: 1, UnitPrice: usd(t, total)},
	}
	ord, err := order.New(orderID, "cust_1", items, time.Now())
	if err != nil {
		t.Fatalf("order: %v", err)
	}
	if err := ord.TransitionTo(order.StatusAwaitingPayment, time.Now()); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if err := h.orders.Put(context.Background(), &ord); err != nil {
		t.Fatalf("put order: %v", err)
	}
	intentID := "pi_" + orderID
	h.gateway.intents[intentID] = gateway.Intent{
		ID:      intentID,
		OrderID: orderID,
		Amount:  usd(t, total),
		Status:  status,
	}
	return intentID
}

func (h *harness) countRecords(t *testing.T, intentID string) (transactions, invoices int, entries int) {
	t.Helper()
	transactions = h.transactions.Count()
	invoices = h.invoices.Count()
	txn, err := h.transactions.GetByIntent(context.Background(), intentID)
	if err == nil {
		list, err := h.journal.EntriesBySource(context.Background(), txn.ID)
		if err != nil {
			t.Fatalf("entries by source: %v", err)
		}
		entries = len(list)
	}
	return transactions, invoices, entries
}

func TestCreatePaymentIntent_MovesDraftToAwaitingPayment(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	items := []order.LineItem{{ProductID: "sku_1", Quantity: 1, UnitPrice: usd(t, 1999)}}
	ord, err := order.New("ord_1", "cust_1", items, time.Now())
	if err != nil {
		t.Fatalf("order: %v", err)
	}
	if err := h.orders.Put(ctx, &ord); err != nil {
		t.Fatalf("put: %v", err)
	}

	intent, err := h.orch.CreatePaymentIntent(ctx, "ord_1")
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}
	if intent.OrderID != "ord_1" {
		t.Fatalf("expected order id on intent, got %q", intent.OrderID)
	}

	stored, err := h.orders.Get(ctx, "ord_1")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if stored.Status != order.StatusAwaitingPayment {
		t.Fatalf("expected awaiting_payment, got %s", stored.Status)
	}
}

func TestCreatePaymentIntent_RejectsPaidOrder(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	intentID := h.seedOrder(t, "ord_1", 1999, gateway.StatusSucceeded)
	if _, err := h.orch.ConfirmPayment(ctx, intentID); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	if _, err := h.orch.CreatePaymentIntent(ctx, "ord_1"); !errors.Is(err, reconcile.ErrOrderNotPayable) {
		t.Fatalf("expected ErrOrderNotPayable, got %v", err)
	}
}

func TestConfirmPayment_WritesTripleAtomically(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	intentID := h.seedOrder(t, "ord_1", 1999, gateway.StatusSucceeded)

	result, err := h.orch.ConfirmPayment(ctx, intentID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if result.Outcome != application.OutcomePosted {
		t.Fatalf("expected posted, got %s", result.Outcome)
	}
	if result.TransactionID == "" || result.InvoiceID == "" || result.JournalEntryID == "" {
		t.Fatalf("expected all record ids, got %+v", result)
	}

	txns, invs, entries := h.countRecords(t, intentID)
	if txns != 1 || invs != 1 || entries != 1 {
		t.Fatalf("expected exactly one of each record, got txns=%d invoices=%d entries=%d", txns, invs, entries)
	}

	ord, err := h.orders.Get(ctx, "ord_1")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if ord.Status != order.StatusPaid {
		t.Fatalf("expected paid, got %s", ord.Status)
	}

	inv, err := h.invoices.Get(ctx, result.InvoiceID)
	if err != nil {
		t.Fatalf("get invoice: %v", err)
	}
	if inv.PaymentStatus != invoicedom.PaymentStatusPaid {
		t.Fatalf("expected paid invoice, got %s", inv.PaymentStatus)
	}

	cash, err := h.engine.AccountBalance(ctx, ledger.AccountCash, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("cash balance: %v", err)
	}
	if cash.Amount != 1999 {
		t.Fatalf("expected cash 1999, got %d", cash.Amount)
	}

	if len(h.events.events) != 1 {
		t.Fatalf("expected one published event, got %d", len(h.events.events))
	}
	if _, ok := h.events.events[0].(application.PaymentConfirmed); !ok {
		t.Fatalf("expected PaymentConfirmed, got %T", h.events.events[0])
	}
}

func TestConfirmPayment_ReplayReturnsSameResult(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	intentID := h.seedOrder(t, "ord_1", 1999, gateway.StatusSucceeded)

	first, err := h.orch.ConfirmPayment(ctx, intentID)
	if err != nil {
		t.Fatalf("first confirm: %v", err)
	}
	second, err := h.orch.ConfirmPayment(ctx, intentID)
	if err != nil {
		t.Fatalf("replayed confirm: %v", err)
	}
	if first != second {
		t.Fatalf("replay must return the recorded result: first=%+v second=%+v", first, second)
	}

	txns, invs, entries := h.countRecords(t, intentID)
	if txns != 1 || invs != 1 || entries != 1 {
		t.Fatalf("replay must not write again: txns=%d invoices=%d entries=%d", txns, invs, entries)
	}
	if len(h.events.events) != 1 {
		t.Fatalf("replay must not publish again, got %d events", len(h.events.events))
	}
}

func TestConfirmPayment_FailedIsDurable(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	intentID := h.seedOrder(t, "ord_1", 1999, gateway.StatusFailed)

	result, err := h.orch.ConfirmPayment(ctx, intentID)
	if !errors.Is(err, reconcile.ErrPaymentFailed) {
		t.Fatalf("expected ErrPaymentFailed, got %v", err)
	}
	if result.Outcome != application.OutcomeFailed {
		t.Fatalf("expected failed outcome, got %s", result.Outcome)
	}

	txns, invs, _ := h.countRecords(t, intentID)
	if txns != 0 || invs != 0 {
		t.Fatalf("failed payment must write no financial records: txns=%d invoices=%d", txns, invs)
	}

	ord, err := h.orders.Get(ctx, "ord_1")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if ord.Status != order.StatusFailed {
		t.Fatalf("expected failed order, got %s", ord.Status)
	}

	// The gateway later flips to succeeded; the recorded failure still wins.
	h.gateway.setStatus(intentID, gateway.StatusSucceeded)
	replay, err := h.orch.ConfirmPayment(ctx, intentID)
	if !errors.Is(err, reconcile.ErrPaymentFailed) {
		t.Fatalf("expected replayed failure, got %v", err)
	}
	if replay.Outcome != application.OutcomeFailed {
		t.Fatalf("expected replayed failed outcome, got %s", replay.Outcome)
	}
}

func TestConfirmPayment_FailedWithBrokenOrderIsLogged(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	// The intent references an order the store has never seen, so the
	// failure transition cannot be applied.
	intentID := "pi_orphan"
	h.gateway.intents[intentID] = gateway.Intent{
		ID:      intentID,
		OrderID: "ord_ghost",
		Amount:  usd(t, 1999),
		Status:  gateway.StatusFailed,
	}

	_, err := h.orch.ConfirmPayment(ctx, intentID)
	if !errors.Is(err, reconcile.ErrPaymentFailed) {
		t.Fatalf("expected ErrPaymentFailed, got %v", err)
	}
	if !strings.Contains(h.logs.String(), "load order order=ord_ghost") {
		t.Fatalf("expected order lookup failure in log, got %q", h.logs.String())
	}
}

func TestConfirmPayment_PendingReleasesKey(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	intentID := h.seedOrder(t, "ord_1", 1999, gateway.StatusProcessing)

	if _, err := h.orch.ConfirmPayment(ctx, intentID); !errors.Is(err, reconcile.ErrPaymentPending) {
		t.Fatalf("expected ErrPaymentPending, got %v", err)
	}

	h.gateway.setStatus(intentID, gateway.StatusSucceeded)
	result, err := h.orch.ConfirmPayment(ctx, intentID)
	if err != nil {
		t.Fatalf("confirm after settling: %v", err)
	}
	if result.Outcome != application.OutcomePosted {
		t.Fatalf("expected posted, got %s", result.Outcome)
	}
}

func TestConfirmPayment_IndeterminateOpensReview(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	intentID := h.seedOrder(t, "ord_1", 1999, gateway.StatusIndeterminate)

	if _, err := h.orch.ConfirmPayment(ctx, intentID); !errors.Is(err, reconcile.ErrRequiresManualReview) {
		t.Fatalf("expected ErrRequiresManualReview, got %v", err)
	}

	reviews, err := h.orch.OpenReviews(ctx)
	if err != nil {
		t.Fatalf("open reviews: %v", err)
	}
	if len(reviews) != 1 {
		t.Fatalf("expected one open review, got %d", len(reviews))
	}
	if reviews[0].IntentID != intentID {
		t.Fatalf("review references wrong intent: %s", reviews[0].IntentID)
	}

	txns, invs, _ := h.countRecords(t, intentID)
	if txns != 0 || invs != 0 {
		t.Fatalf("indeterminate outcome must write nothing: txns=%d invoices=%d", txns, invs)
	}

	// The gateway recovers; a later confirmation captures exactly once.
	h.gateway.setStatus(intentID, gateway.StatusSucceeded)
	if _, err := h.orch.ConfirmPayment(ctx, intentID); err != nil {
		t.Fatalf("confirm after recovery: %v", err)
	}
	txns, invs, entries := h.countRecords(t, intentID)
	if txns != 1 || invs != 1 || entries != 1 {
		t.Fatalf("expected exactly one capture after recovery: txns=%d invoices=%d entries=%d", txns, invs, entries)
	}
}

func TestConfirmPayment_AmountMismatchOpensReview(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	intentID := h.seedOrder(t, "ord_1", 1999, gateway.StatusSucceeded)
	intent := h.gateway.intents[intentID]
	intent.Amount = usd(t, 1899)
	h.gateway.intents[intentID] = intent

	if _, err := h.orch.ConfirmPayment(ctx, intentID); !errors.Is(err, reconcile.ErrAmountMismatch) {
		t.Fatalf("expected ErrAmountMismatch, got %v", err)
	}

	reviews, err := h.orch.OpenReviews(ctx)
	if err != nil {
		t.Fatalf("open reviews: %v", err)
	}
	if len(reviews) != 1 {
		t.Fatalf("expected one open review, got %d", len(reviews))
	}
	txns, invs, _ := h.countRecords(t, intentID)
	if txns != 0 || invs != 0 {
		t.Fatalf("mismatch must write nothing: txns=%d invoices=%d", txns, invs)
	}
}

func TestConfirmPayment_CommitFailureLeavesNoPartialWrites(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	intentID := h.seedOrder(t, "ord_1", 1999, gateway.StatusSucceeded)

	h.uow.BeforeCommit = func() error { return errors.New("storage down") }
	if _, err := h.orch.ConfirmPayment(ctx, intentID); !errors.Is(err, reconcile.ErrPartialWrite) {
		t.Fatalf("expected ErrPartialWrite, got %v", err)
	}

	txns, invs, _ := h.countRecords(t, intentID)
	if txns != 0 || invs != 0 {
		t.Fatalf("aborted commit must leave zero records: txns=%d invoices=%d", txns, invs)
	}
	ord, err := h.orders.Get(ctx, "ord_1")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if ord.Status != order.StatusAwaitingPayment {
		t.Fatalf("aborted commit must not touch the order, got %s", ord.Status)
	}

	// Storage recovers; the retry captures exactly once.
	h.uow.BeforeCommit = nil
	result, err := h.orch.ConfirmPayment(ctx, intentID)
	if err != nil {
		t.Fatalf("retry confirm: %v", err)
	}
	if result.Outcome != application.OutcomePosted {
		t.Fatalf("expected posted after retry, got %s", result.Outcome)
	}
	txns, invs, entries := h.countRecords(t, intentID)
	if txns != 1 || invs != 1 || entries != 1 {
		t.Fatalf("expected one capture after retry: txns=%d invoices=%d entries=%d", txns, invs, entries)
	}
}

func TestConfirmPayment_GatewayErrorReleasesKey(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	intentID := h.seedOrder(t, "ord_1", 1999, gateway.StatusSucceeded)

	h.gateway.retrieveErr = errors.New("connection refused")
	if _, err := h.orch.ConfirmPayment(ctx, intentID); err == nil {
		t.Fatalf("expected gateway error")
	}

	h.gateway.retrieveErr = nil
	if _, err := h.orch.ConfirmPayment(ctx, intentID); err != nil {
		t.Fatalf("retry after gateway error: %v", err)
	}
}

func TestReverse(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	intentID := h.seedOrder(t, "ord_1", 1999, gateway.StatusSucceeded)

	result, err := h.orch.ConfirmPayment(ctx, intentID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}

	reversalID, err := h.orch.Reverse(ctx, result.TransactionID)
	if err != nil {
		t.Fatalf("reverse: %v", err)
	}
	if reversalID == "" {
		t.Fatalf("expected reversal entry id")
	}

	cash, err := h.engine.AccountBalance(ctx, ledger.AccountCash, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("cash balance: %v", err)
	}
	if cash.Amount != 0 {
		t.Fatalf("expected zeroed cash after reversal, got %d", cash.Amount)
	}

	entries, err := h.engine.EntriesBySource(ctx, result.TransactionID)
	if err != nil {
		t.Fatalf("entries by source: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("reversal must append, not edit: expected 2 entries, got %d", len(entries))
	}

	txn, err := h.orch.Transaction(ctx, result.TransactionID)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if txn.Status != reconcile.TransactionStatusReversed {
		t.Fatalf("expected reversed, got %s", txn.Status)
	}

	inv, err := h.invoices.Get(ctx, result.InvoiceID)
	if err != nil {
		t.Fatalf("get invoice: %v", err)
	}
	if inv.PaymentStatus != invoicedom.PaymentStatusRefunded {
		t.Fatalf("expected refunded invoice, got %s", inv.PaymentStatus)
	}

	if _, err := h.orch.Reverse(ctx, result.TransactionID); !errors.Is(err, reconcile.ErrAlreadyReversed) {
		t.Fatalf("expected ErrAlreadyReversed, got %v", err)
	}
}

func TestReverse_ConcurrentCallsPostOneReversal(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	intentID := h.seedOrder(t, "ord_1", 1999, gateway.StatusSucceeded)

	result, err := h.orch.ConfirmPayment(ctx, intentID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}

	const callers = 4
	start := make(chan struct{})
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := h.orch.Reverse(ctx, result.TransactionID)
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	var reversed, rejected int
	for err := range errs {
		switch {
		case err == nil:
			reversed++
		case errors.Is(err, reconcile.ErrAlreadyReversed):
			rejected++
		default:
			t.Fatalf("unexpected reverse error: %v", err)
		}
	}
	if reversed != 1 || rejected != callers-1 {
		t.Fatalf("expected 1 reversal and %d rejections, got %d and %d", callers-1, reversed, rejected)
	}

	entries, err := h.engine.EntriesBySource(ctx, result.TransactionID)
	if err != nil {
		t.Fatalf("entries by source: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected original plus one reversal, got %d entries", len(entries))
	}
	cash, err := h.engine.AccountBalance(ctx, ledger.AccountCash, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("cash balance: %v", err)
	}
	if cash.Amount != 0 {
		t.Fatalf("expected zeroed cash, got %d", cash.Amount)
	}
}

func TestResolveReview(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	intentID := h.seedOrder(t, "ord_1", 1999, gateway.StatusIndeterminate)

	if _, err := h.orch.ConfirmPayment(ctx, intentID); !errors.Is(err, reconcile.ErrRequiresManualReview) {
		t.Fatalf("expected ErrRequiresManualReview, got %v", err)
	}
	reviews, err := h.orch.OpenReviews(ctx)
	if err != nil || len(reviews) != 1 {
		t.Fatalf("open reviews: %v (%d)", err, len(reviews))
	}

	if err := h.orch.ResolveReview(ctx, reviews[0].ID, "ops@example.com", "gateway confirmed out of band"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	reviews, err = h.orch.OpenReviews(ctx)
	if err != nil {
		t.Fatalf("open reviews: %v", err)
	}
	if len(reviews) != 0 {
		t.Fatalf("expected no open reviews, got %d", len(reviews))
	}

	if err := h.orch.ResolveReview(ctx, "rev_ghost", "ops@example.com", ""); !errors.Is(err, reconcile.ErrReviewNotFound) {
		t.Fatalf("expected ErrReviewNotFound, got %v", err)
	}
}

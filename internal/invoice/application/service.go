package application

import (
	"context"
	"errors"
	"log"
	"time"

	invoice "pos-backoffice/internal/invoice/domain"
	"pos-backoffice/internal/money"
)

// Service exposes invoice queries and payment-status annotation updates.
// Issuing invoices is owned by the reconciliation pipeline; everything
// here operates on already-issued invoices.
type Service struct {
	repo   invoice.Repository
	logger *log.Logger
	now    func() time.Time
}

// NewService constructs an invoice service.
func NewService(repo invoice.Repository, logger *log.Logger) (*Service, error) {
	if repo == nil {
		return nil, errors.New("invoice service: nil repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}, nil
}

// Get returns the invoice by id.
func (s *Service) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	if id == "" {
		return nil, invoice.ErrEmptyInvoiceID
	}
	return s.repo.Get(ctx, id)
}

// ByTransaction returns the invoice issued for a transaction.
func (s *Service) ByTransaction(ctx context.Context, transactionID string) (*invoice.Invoice, error) {
	if transactionID == "" {
		return nil, invoice.ErrEmptyTransactionID
	}
	return s.repo.GetByTransaction(ctx, transactionID)
}

// annotateRetries bounds the optimistic update loop. Contention on one
// invoice is rare, so a losing writer reloads at most twice.
const annotateRetries = 3

// RecordPayment applies a payment annotation and persists it.
func (s *Service) RecordPayment(ctx context.Context, id string, amount money.Money) (*invoice.Invoice, error) {
	inv, err := s.annotate(ctx, id, func(inv *invoice.Invoice) error {
		return inv.RecordPayment(amount, s.now())
	})
	if err != nil {
		return nil, err
	}
	s.logger.Printf("invoice payment recorded invoice=%s amount=%s status=%s", inv.ID, amount.String(), inv.PaymentStatus)
	return inv, nil
}

// RecordRefund applies a refund annotation and persists it.
func (s *Service) RecordRefund(ctx context.Context, id string, amount money.Money) (*invoice.Invoice, error) {
	inv, err := s.annotate(ctx, id, func(inv *invoice.Invoice) error {
		return inv.RecordRefund(amount, s.now())
	})
	if err != nil {
		return nil, err
	}
	s.logger.Printf("invoice refund recorded invoice=%s amount=%s status=%s", inv.ID, amount.String(), inv.PaymentStatus)
	return inv, nil
}

// annotate reloads, mutates and conditionally writes the invoice. The
// update is guarded by the update time observed at read, so two writers
// racing on one invoice cannot both pass the domain checks and land.
func (s *Service) annotate(ctx context.Context, id string, mutate func(*invoice.Invoice) error) (*invoice.Invoice, error) {
	var lastErr error
	for attempt := 0; attempt < annotateRetries; attempt++ {
		inv, err := s.repo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		readAt := inv.UpdatedAt
		if err := mutate(inv); err != nil {
			return nil, err
		}
		err = s.repo.Update(ctx, inv, readAt)
		if err == nil {
			return inv, nil
		}
		if !errors.Is(err, invoice.ErrStaleInvoice) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

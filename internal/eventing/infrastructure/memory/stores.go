package memory

import (
	"context"
	"sync"

	"pos-backoffice/internal/eventing"
)

// OutboxStore is an in-memory outbox for tests and single-node setups.
type OutboxStore struct {
	mu      sync.Mutex
	records map[string]*outboxRecord
	order   []string
}

type outboxRecord struct {
	env    eventing.Envelope
	status string
}

// NewOutboxStore constructs an in-memory outbox store.
func NewOutboxStore() *OutboxStore {
	return &OutboxStore{records: make(map[string]*outboxRecord)}
}

// Insert writes an envelope to the outbox.
func (s *OutboxStore) Insert(_ context.Context, env eventing.Envelope) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := eventing.NewEventID()
	s.records[id] = &outboxRecord{env: env, status: "pending"}
	s.order = append(s.order, id)
	return id, nil
}

// ListPending returns pending records in insertion order.
func (s *OutboxStore) ListPending(_ context.Context, limit int) ([]eventing.OutboxRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	var result []eventing.OutboxRecord
	for _, id := range s.order {
		record := s.records[id]
		if record == nil || record.status != "pending" {
			continue
		}
		result = append(result, eventing.OutboxRecord{ID: id, Envelope: record.env})
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

// MarkSent marks a record sent.
func (s *OutboxStore) MarkSent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record := s.records[id]; record != nil {
		record.status = "sent"
	}
	return nil
}

// MarkFailed marks a record failed.
func (s *OutboxStore) MarkFailed(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record := s.records[id]; record != nil {
		record.status = "failed"
	}
	return nil
}

// ProcessedStore is an in-memory processed-events store.
type ProcessedStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewProcessedStore constructs an in-memory processed store.
func NewProcessedStore() *ProcessedStore {
	return &ProcessedStore{seen: make(map[string]struct{})}
}

// HasProcessed reports whether the consumer already handled the event.
func (s *ProcessedStore) HasProcessed(_ context.Context, eventID, consumerName string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[eventID+"|"+consumerName]
	return ok, nil
}

// MarkProcessed records the event as handled.
func (s *ProcessedStore) MarkProcessed(_ context.Context, eventID, consumerName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[eventID+"|"+consumerName] = struct{}{}
	return nil
}

// DLQStore is an in-memory dead letter store.
type DLQStore struct {
	mu       sync.Mutex
	failures []eventing.Envelope
}

// NewDLQStore constructs an in-memory DLQ store.
func NewDLQStore() *DLQStore {
	return &DLQStore{}
}

// RecordFailure appends the envelope to the failure list.
func (s *DLQStore) RecordFailure(_ context.Context, env eventing.Envelope, _ error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, env)
	return nil
}

// Failures returns recorded failures.
func (s *DLQStore) Failures() []eventing.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]eventing.Envelope, len(s.failures))
	copy(out, s.failures)
	return out
}

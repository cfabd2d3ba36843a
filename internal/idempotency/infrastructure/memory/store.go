package memory

import (
	"context"
	"sync"
	"time"

	"pos-backoffice/internal/idempotency"
)

type record struct {
	state      idempotency.State
	result     []byte
	reservedAt time.Time
}

// Store is an in-memory idempotency key store for tests.
type Store struct {
	mu   sync.Mutex
	keys map[string]*record
}

// NewStore constructs a store.
func NewStore() *Store {
	return &Store{keys: make(map[string]*record)}
}

// TryAcquire claims the key if absent.
func (s *Store) TryAcquire(ctx context.Context, key string) (bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.keys[key]; exists {
		return false, nil
	}
	s.keys[key] = &record{state: idempotency.StateInProgress, reservedAt: time.Now()}
	return true, nil
}

// Lookup returns state and result for a key.
func (s *Store) Lookup(ctx context.Context, key string) (idempotency.State, []byte, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, exists := s.keys[key]
	if !exists {
		return "", nil, idempotency.ErrKeyNotReserved
	}
	if rec.state == idempotency.StateCompleted {
		return idempotency.StateCompleted, append([]byte(nil), rec.result...), nil
	}
	return idempotency.StateInProgress, nil, nil
}

// MarkCompleted records the outcome for a key.
func (s *Store) MarkCompleted(ctx context.Context, key string, result []byte) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, exists := s.keys[key]
	if !exists || rec.state != idempotency.StateInProgress {
		return idempotency.ErrKeyNotReserved
	}
	rec.state = idempotency.StateCompleted
	rec.result = append([]byte(nil), result...)
	return nil
}

// Release frees an in-progress key.
func (s *Store) Release(ctx context.Context, key string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, exists := s.keys[key]
	if exists && rec.state == idempotency.StateInProgress {
		delete(s.keys, key)
	}
	return nil
}

// ReleaseStale frees in-progress keys reserved before the cutoff.
func (s *Store) ReleaseStale(ctx context.Context, olderThan time.Time) (int, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	released := 0
	for key, rec := range s.keys {
		if rec.state == idempotency.StateInProgress && rec.reservedAt.Before(olderThan) {
			delete(s.keys, key)
			released++
		}
	}
	return released, nil
}

package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrEmptyKey is returned when a reservation key is missing.
	ErrEmptyKey = errors.New("idempotency: empty key")
	// ErrNilStore is returned when the guard has no backing store.
	ErrNilStore = errors.New("idempotency: nil store")
	// ErrKeyNotReserved is returned when completing a key that was never acquired.
	ErrKeyNotReserved = errors.New("idempotency: key not reserved")
)

// State describes the outcome of a Reserve call.
type State string

const (
	// StateAcquired means the caller owns the key and must run the operation.
	StateAcquired State = "acquired"
	// StateInProgress means another caller holds the key; poll for the result.
	StateInProgress State = "in_progress"
	// StateCompleted means the operation already ran; Result carries its outcome.
	StateCompleted State = "completed"
)

// Result is the recorded outcome of a guarded operation. Failures are recorded
// too, so a retried call short-circuits instead of re-running the operation.
type Result struct {
	Outcome        string `json:"outcome"`
	TransactionID  string `json:"transaction_id,omitempty"`
	InvoiceID      string `json:"invoice_id,omitempty"`
	JournalEntryID string `json:"journal_entry_id,omitempty"`
	Detail         string `json:"detail,omitempty"`
}

// Reservation is the answer to a Reserve call.
type Reservation struct {
	Key    string
	State  State
	Result *Result
}

// Store persists key reservations. The production store is durable; a crash
// mid-operation must not allow a second execution after restart.
type Store interface {
	// TryAcquire atomically claims the key, reporting whether the caller won.
	TryAcquire(ctx context.Context, key string) (bool, error)
	// Lookup returns the stored state and encoded result for the key.
	Lookup(ctx context.Context, key string) (State, []byte, error)
	// MarkCompleted records the final outcome for the key.
	MarkCompleted(ctx context.Context, key string, result []byte) error
	// Release frees an in-progress key whose operation did not commit.
	Release(ctx context.Context, key string) error
	// ReleaseStale frees in-progress keys reserved before the cutoff.
	// Completed keys are never touched.
	ReleaseStale(ctx context.Context, olderThan time.Time) (int, error)
}

// Guard deduplicates retried operations keyed by a caller-supplied key.
// At most one execution completes per key.
type Guard struct {
	store Store
}

// NewGuard constructs a guard.
func NewGuard(store Store) (*Guard, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	return &Guard{store: store}, nil
}

// Reserve claims the key or reports what happened to it.
func (g *Guard) Reserve(ctx context.Context, key string) (Reservation, error) {
	if key == "" {
		return Reservation{}, ErrEmptyKey
	}
	acquired, err := g.store.TryAcquire(ctx, key)
	if err != nil {
		return Reservation{}, err
	}
	if acquired {
		return Reservation{Key: key, State: StateAcquired}, nil
	}
	state, payload, err := g.store.Lookup(ctx, key)
	if err != nil {
		return Reservation{}, err
	}
	if state == StateCompleted {
		result := &Result{}
		if err := json.Unmarshal(payload, result); err != nil {
			return Reservation{}, err
		}
		return Reservation{Key: key, State: StateCompleted, Result: result}, nil
	}
	return Reservation{Key: key, State: StateInProgress}, nil
}

// Complete records the outcome for an acquired key.
func (g *Guard) Complete(ctx context.Context, key string, result Result) error {
	if key == "" {
		return ErrEmptyKey
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return g.store.MarkCompleted(ctx, key, payload)
}

// Release frees an acquired key after a failed execution so a retry may run.
func (g *Guard) Release(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return g.store.Release(ctx, key)
}

// SweepStale releases reservations abandoned by a process that crashed
// between acquiring a key and committing. Their intents stay wedged in
// in_progress until a sweep or an operator frees them.
func (g *Guard) SweepStale(ctx context.Context, olderThan time.Time) (int, error) {
	return g.store.ReleaseStale(ctx, olderThan)
}

// EncodeResult marshals a result the way the guard stores it. Unit-of-work
// implementations use it to complete the key inside their own transaction.
func EncodeResult(result Result) ([]byte, error) {
	return json.Marshal(result)
}

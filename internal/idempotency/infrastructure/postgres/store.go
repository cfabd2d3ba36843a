package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pos-backoffice/internal/idempotency"
)

const defaultKeysTable = "idempotency_keys"

// Store is a durable idempotency key store backed by database/sql.
type Store struct {
	db    *sql.DB
	table string
}

// NewStore constructs an idempotency store.
func NewStore(db *sql.DB, opts ...Option) *Store {
	store := &Store{db: db, table: defaultKeysTable}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Option configures the store.
type Option func(*Store)

// WithTable overrides the table name.
func WithTable(table string) Option {
	return func(store *Store) {
		if table != "" {
			store.table = table
		}
	}
}

// TryAcquire claims the key via insert-if-absent.
func (s *Store) TryAcquire(ctx context.Context, key string) (bool, error) {
	if s == nil || s.db == nil {
		return false, errors.New("idempotency store: nil db")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (key, state, created_at, updated_at)
VALUES ($1, 'in_progress', $2, $2)
ON CONFLICT (key)
DO NOTHING`, s.table)
	res, err := s.db.ExecContext(ctx, query, key, time.Now().UTC())
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// Lookup returns the state and recorded result for a key.
func (s *Store) Lookup(ctx context.Context, key string) (idempotency.State, []byte, error) {
	if s == nil || s.db == nil {
		return "", nil, errors.New("idempotency store: nil db")
	}
	query := fmt.Sprintf(`SELECT state, result FROM %s WHERE key = $1`, s.table)
	var state string
	var result []byte
	err := s.db.QueryRowContext(ctx, query, key).Scan(&state, &result)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, idempotency.ErrKeyNotReserved
	}
	if err != nil {
		return "", nil, err
	}
	if state == "completed" {
		return idempotency.StateCompleted, result, nil
	}
	return idempotency.StateInProgress, nil, nil
}

// MarkCompleted records the final outcome for the key.
func (s *Store) MarkCompleted(ctx context.Context, key string, result []byte) error {
	if s == nil || s.db == nil {
		return errors.New("idempotency store: nil db")
	}
	query := fmt.Sprintf(`
UPDATE %s
SET state = 'completed', result = $1, updated_at = $2
WHERE key = $3 AND state = 'in_progress'`, s.table)
	res, err := s.db.ExecContext(ctx, query, result, time.Now().UTC(), key)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return idempotency.ErrKeyNotReserved
	}
	return nil
}

// Release frees an in-progress key so a retry may acquire it again.
func (s *Store) Release(ctx context.Context, key string) error {
	if s == nil || s.db == nil {
		return errors.New("idempotency store: nil db")
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = $1 AND state = 'in_progress'`, s.table)
	_, err := s.db.ExecContext(ctx, query, key)
	return err
}

// ReleaseStale frees in-progress keys reserved before the cutoff. A key
// left behind by a crash mid-operation wedges its intent until this runs.
func (s *Store) ReleaseStale(ctx context.Context, olderThan time.Time) (int, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("idempotency store: nil db")
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE state = 'in_progress' AND updated_at < $1`, s.table)
	res, err := s.db.ExecContext(ctx, query, olderThan.UTC())
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

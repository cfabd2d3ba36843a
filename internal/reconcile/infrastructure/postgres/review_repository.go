package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	reconcile "pos-backoffice/internal/reconcile/domain"
)

// ReviewRepository is a Postgres implementation of the review store.
type ReviewRepository struct {
	db *sql.DB
}

// NewReviewRepository constructs a review repository.
func NewReviewRepository(db *sql.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Insert stores a new manual review.
func (r *ReviewRepository) Insert(ctx context.Context, review *reconcile.ManualReview) error {
	if r == nil || r.db == nil {
		return errors.New("review repository: nil db")
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO manual_reviews (id, intent_id, order_id, reason, opened_at)
VALUES ($1, $2, $3, $4, $5)`,
		review.ID, review.IntentID, review.OrderID, review.Reason, review.OpenedAt)
	return err
}

// Get returns a review by id.
func (r *ReviewRepository) Get(ctx context.Context, id string) (*reconcile.ManualReview, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("review repository: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, intent_id, order_id, reason, opened_at, resolved_at, resolved_by, note
FROM manual_reviews
WHERE id = $1`, id)
	return scanReview(row.Scan)
}

// ListOpen returns unresolved reviews oldest first.
func (r *ReviewRepository) ListOpen(ctx context.Context) ([]reconcile.ManualReview, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("review repository: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, intent_id, order_id, reason, opened_at, resolved_at, resolved_by, note
FROM manual_reviews
WHERE resolved_at IS NULL
ORDER BY opened_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []reconcile.ManualReview
	for rows.Next() {
		review, err := scanReview(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *review)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Resolve closes an open review.
func (r *ReviewRepository) Resolve(ctx context.Context, id, resolvedBy, note string, at time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("review repository: nil db")
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE manual_reviews
SET resolved_at = $1, resolved_by = $2, note = $3
WHERE id = $4 AND resolved_at IS NULL`,
		at.UTC(), resolvedBy, note, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return getErr
		}
		return reconcile.ErrReviewResolved
	}
	return nil
}

func scanReview(scan func(dest ...any) error) (*reconcile.ManualReview, error) {
	var review reconcile.ManualReview
	var resolvedAt sql.NullTime
	var resolvedBy, note sql.NullString
	err := scan(&review.ID, &review.IntentID, &review.OrderID, &review.Reason, &review.OpenedAt, &resolvedAt, &resolvedBy, &note)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, reconcile.ErrReviewNotFound
	}
	if err != nil {
		return nil, err
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		review.ResolvedAt = &t
	}
	review.ResolvedBy = resolvedBy.String
	review.Note = note.String
	return &review, nil
}

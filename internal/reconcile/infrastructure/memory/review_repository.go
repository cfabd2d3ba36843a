package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	reconcile "pos-backoffice/internal/reconcile/domain"
)

// ReviewRepository is an in-memory review store.
type ReviewRepository struct {
	mu      sync.Mutex
	reviews map[string]*reconcile.ManualReview
}

// NewReviewRepository constructs an in-memory review repository.
func NewReviewRepository() *ReviewRepository {
	return &ReviewRepository{reviews: make(map[string]*reconcile.ManualReview)}
}

// Insert stores a new manual review.
func (r *ReviewRepository) Insert(_ context.Context, review *reconcile.ManualReview) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *review
	r.reviews[review.ID] = &clone
	return nil
}

// Get returns a review by id.
func (r *ReviewRepository) Get(_ context.Context, id string) (*reconcile.ManualReview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	review, ok := r.reviews[id]
	if !ok {
		return nil, reconcile.ErrReviewNotFound
	}
	clone := *review
	return &clone, nil
}

// ListOpen returns unresolved reviews oldest first.
func (r *ReviewRepository) ListOpen(_ context.Context) ([]reconcile.ManualReview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []reconcile.ManualReview
	for _, review := range r.reviews {
		if review.ResolvedAt == nil {
			result = append(result, *review)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].OpenedAt.Before(result[j].OpenedAt)
	})
	return result, nil
}

// Resolve closes an open review.
func (r *ReviewRepository) Resolve(_ context.Context, id, resolvedBy, note string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	review, ok := r.reviews[id]
	if !ok {
		return reconcile.ErrReviewNotFound
	}
	if review.ResolvedAt != nil {
		return reconcile.ErrReviewResolved
	}
	resolved := at.UTC()
	review.ResolvedAt = &resolved
	review.ResolvedBy = resolvedBy
	review.Note = note
	return nil
}

package domain

import (
	"context"
	"time"
)

// ManualReview records an intent whose outcome the gateway could not settle.
// An operator resolves it once the true outcome is known.
type ManualReview struct {
	ID         string     `json:"id"`
	IntentID   string     `json:"intent_id"`
	OrderID    string     `json:"order_id"`
	Reason     string     `json:"reason"`
	OpenedAt   time.Time  `json:"opened_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy string     `json:"resolved_by,omitempty"`
	Note       string     `json:"note,omitempty"`
}

// Resolved reports whether the review has been closed.
func (m *ManualReview) Resolved() bool {
	return m.ResolvedAt != nil
}

// ReviewStore persists manual reviews.
type ReviewStore interface {
	Insert(ctx context.Context, review *ManualReview) error
	Get(ctx context.Context, id string) (*ManualReview, error)
	ListOpen(ctx context.Context) ([]ManualReview, error)
	Resolve(ctx context.Context, id, resolvedBy, note string, at time.Time) error
}

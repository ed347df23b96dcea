package review

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no review matches the lookup for the
// requesting user.
var ErrNotFound = errors.New("review not found")

// Store is the persistence surface for reviews. Every lookup is scoped
// to the owning user; there is no cross-user access at this layer.
type Store interface {
	Put(ctx context.Context, rec *Review) error
	Get(ctx context.Context, userID, id string) (*Review, error)
	LatestByUser(ctx context.Context, userID string) (*Review, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Summary, error)
	// SetRating updates the rating and, when note is non-nil, the note
	// on a review. A missing or foreign reviewID falls back to the
	// user's most recent review. Returns the id actually updated.
	SetRating(ctx context.Context, userID, reviewID string, rating *int, note *string) (string, error)
}

package leads

import (
	"context"
	"time"
)

// Store is the persistence contract for leads.
type Store interface {
	Create(ctx context.Context, l Lead) error
	Get(ctx context.Context, leadID string) (Lead, error)
	ListByCampaign(ctx context.Context, campaignID string) ([]Lead, error)

	// SetStatus applies a transition only if the stored status still equals
	// from; a concurrent transition in the read/write gap fails
	// ErrInvalidTransition instead of overwriting it.
	SetStatus(ctx context.Context, leadID string, from, to Status, now time.Time) (Lead, error)

	// RecordAttempt applies ApplyAttempt atomically against the stored lead.
	RecordAttempt(ctx context.Context, leadID string, maxAttempts, durationSeconds int, now time.Time) (Lead, error)
}

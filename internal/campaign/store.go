package campaign

import (
	"context"
	"time"
)

// Store is the persistence contract for campaigns.
type Store interface {
	Create(ctx context.Context, c Campaign) error
	Get(ctx context.Context, campaignID string) (Campaign, error)
	ListByWorkspace(ctx context.Context, workspaceID string) ([]Campaign, error)

	// SetStatus applies a transition only if the stored status still equals
	// from; a concurrent transition in the read/write gap fails
	// ErrInvalidTransition instead of overwriting it.
	SetStatus(ctx context.Context, campaignID string, from, to Status, now time.Time) (Campaign, error)

	// AddCounters applies deltas to the campaign counters. The billing
	// backend calls this inside its atomic charge unit.
	AddCounters(ctx context.Context, campaignID string, completedDelta, successfulDelta int, now time.Time) (Campaign, error)

	// AddLeads bumps TotalLeads after an import or manual entry.
	AddLeads(ctx context.Context, campaignID string, delta int, now time.Time) (Campaign, error)
}

package pricing

import (
	"context"
	"time"
)

// MemoryRepo is a simple in-memory repository useful for tests and early development.
//
// NOTE: This is not intended for production; replace with Postgres implementation.
type MemoryRepo struct {
	Rates []Rate
}

func (r *MemoryRepo) ListEffective(ctx context.Context, workspaceID string, at time.Time) ([]Rate, error) {
	_ = ctx

	out := make([]Rate, 0)
	for _, p := range r.Rates {
		if p.WorkspaceID != workspaceID {
			continue
		}
		if p.Status != RateStatusActive {
			continue
		}
		if at.Before(p.EffectiveFrom) {
			continue
		}
		if p.EffectiveTo != nil && !at.Before(*p.EffectiveTo) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

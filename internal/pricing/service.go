package pricing

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrRateNotFound       = errors.New("pricing: rate not found")
	ErrInvalidRateRequest = errors.New("pricing: invalid rate request")
)

// RateRepository abstracts rate persistence.
type RateRepository interface {
	// ListEffective returns the active rates whose effective window covers at.
	ListEffective(ctx context.Context, workspaceID string, at time.Time) ([]Rate, error)
}

// Service resolves the per-minute rate for an outbound destination.
//
// Resolution picks the longest DestinationPrefix matching the dialed number;
// ties on prefix length go to the most recently effective rate.
type Service struct {
	repo  RateRepository
	clock func() time.Time
}

func NewService(repo RateRepository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// Resolve returns the effective rate for dialing phone from the workspace.
// If at is zero the service clock is used.
func (s *Service) Resolve(ctx context.Context, workspaceID, phone string, at time.Time) (Rate, error) {
	if workspaceID == "" || strings.TrimSpace(phone) == "" {
		return Rate{}, ErrInvalidRateRequest
	}
	if at.IsZero() {
		at = s.clock().UTC()
	}

	rates, err := s.repo.ListEffective(ctx, workspaceID, at)
	if err != nil {
		return Rate{}, err
	}

	var best Rate
	found := false
	for _, r := range rates {
		if !strings.HasPrefix(phone, r.DestinationPrefix) {
			continue
		}
		if !found ||
			len(r.DestinationPrefix) > len(best.DestinationPrefix) ||
			(len(r.DestinationPrefix) == len(best.DestinationPrefix) && r.EffectiveFrom.After(best.EffectiveFrom)) {
			best = r
			found = true
		}
	}
	if !found {
		return Rate{}, ErrRateNotFound
	}
	return best, nil
}

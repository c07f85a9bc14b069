package leads

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and early development.
type MemoryStore struct {
	mu    sync.Mutex
	leads map[string]Lead
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{leads: map[string]Lead{}}
}

func (s *MemoryStore) Create(ctx context.Context, l Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.leads[l.ID]; ok {
		return ErrInvalidArgument
	}
	s.leads[l.ID] = l
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, leadID string) (Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[leadID]
	if !ok {
		return Lead{}, ErrNotFound
	}
	return l, nil
}

func (s *MemoryStore) ListByCampaign(ctx context.Context, campaignID string) ([]Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Lead, 0)
	for _, l := range s.leads {
		if l.CampaignID == campaignID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *MemoryStore) SetStatus(ctx context.Context, leadID string, from, to Status, now time.Time) (Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[leadID]
	if !ok {
		return Lead{}, ErrNotFound
	}
	if l.Status != from {
		return Lead{}, ErrInvalidTransition
	}
	l.Status = to
	l.UpdatedAt = now
	s.leads[leadID] = l
	return l, nil
}

func (s *MemoryStore) RecordAttempt(ctx context.Context, leadID string, maxAttempts, durationSeconds int, now time.Time) (Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[leadID]
	if !ok {
		return Lead{}, ErrNotFound
	}
	updated, err := ApplyAttempt(l, maxAttempts, durationSeconds, now)
	if err != nil {
		return Lead{}, err
	}
	s.leads[leadID] = updated
	return updated, nil
}

package campaign

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and early development.
type MemoryStore struct {
	mu        sync.Mutex
	campaigns map[string]Campaign
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{campaigns: map[string]Campaign{}}
}

func (s *MemoryStore) Create(ctx context.Context, c Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.campaigns[c.ID]; ok {
		return ErrInvalidArgument
	}
	s.campaigns[c.ID] = c
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, campaignID string) (Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[campaignID]
	if !ok {
		return Campaign{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) ListByWorkspace(ctx context.Context, workspaceID string) ([]Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Campaign, 0)
	for _, c := range s.campaigns {
		if c.WorkspaceID == workspaceID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *MemoryStore) SetStatus(ctx context.Context, campaignID string, from, to Status, now time.Time) (Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[campaignID]
	if !ok {
		return Campaign{}, ErrNotFound
	}
	if c.Status != from {
		return Campaign{}, ErrInvalidTransition
	}
	c.Status = to
	c.UpdatedAt = now
	s.campaigns[campaignID] = c
	return c, nil
}

func (s *MemoryStore) AddCounters(ctx context.Context, campaignID string, completedDelta, successfulDelta int, now time.Time) (Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[campaignID]
	if !ok {
		return Campaign{}, ErrNotFound
	}
	c.CompletedCalls += completedDelta
	c.SuccessfulCalls += successfulDelta
	c.UpdatedAt = now
	s.campaigns[campaignID] = c
	return c, nil
}

func (s *MemoryStore) AddLeads(ctx context.Context, campaignID string, delta int, now time.Time) (Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[campaignID]
	if !ok {
		return Campaign{}, ErrNotFound
	}
	c.TotalLeads += delta
	c.UpdatedAt = now
	s.campaigns[campaignID] = c
	return c, nil
}

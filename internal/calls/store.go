package calls

import (
	"context"
	"sync"
	"time"
)

// Store is the persistence contract for call records. Insert-only; there is
// no update or delete by design.
type Store interface {
	Insert(ctx context.Context, c Call) error
	Get(ctx context.Context, callID string) (Call, error)
	ListByCampaign(ctx context.Context, workspaceID, campaignID string, from, to time.Time) ([]Call, error)
}

// MemoryStore is an in-memory Store for tests and early development.
type MemoryStore struct {
	mu    sync.Mutex
	calls []Call
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Insert(ctx context.Context, c Call) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, c)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, callID string) (Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.calls {
		if c.CallID == callID {
			return c, nil
		}
	}
	return Call{}, ErrNotFound
}

func (s *MemoryStore) ListByCampaign(ctx context.Context, workspaceID, campaignID string, from, to time.Time) ([]Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, 0)
	for _, c := range s.calls {
		if c.WorkspaceID != workspaceID {
			continue
		}
		if campaignID != "" && c.CampaignID != campaignID {
			continue
		}
		if !c.CreatedAt.IsZero() && !from.IsZero() {
			if c.CreatedAt.Before(from) || !c.CreatedAt.Before(to) {
				continue
			}
		}
		out = append(out, c)
	}
	return out, nil
}

// Count returns the number of stored calls. Test helper.
func (s *MemoryStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

package reporting

import (
	"context"
	"errors"
	"sync"
	"time"

	"dialer-platform/internal/calls"
	"dialer-platform/internal/leads"
	"dialer-platform/internal/ledger"
)

// MemoryRepo is a simple in-memory reporting repository for tests and early
// development. It enforces workspace isolation on reads.
type MemoryRepo struct {
	mu sync.Mutex

	Calls   []calls.Call
	Entries []ledger.Entry
	Leads   []leads.Lead
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) ListCalls(ctx context.Context, workspaceID string, from, to time.Time, campaignID string) ([]calls.Call, error) {
	if workspaceID == "" {
		return nil, errors.New("workspace_id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]calls.Call, 0)
	for _, c := range r.Calls {
		if c.WorkspaceID != workspaceID {
			continue
		}
		if !inRange(c.CreatedAt, from, to) {
			continue
		}
		if campaignID != "" && c.CampaignID != campaignID {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *MemoryRepo) ListLedgerEntries(ctx context.Context, workspaceID string, from, to time.Time, accountID string) ([]ledger.Entry, error) {
	if workspaceID == "" {
		return nil, errors.New("workspace_id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ledger.Entry, 0)
	for _, e := range r.Entries {
		if e.WorkspaceID != workspaceID {
			continue
		}
		if !inRange(e.CreatedAt, from, to) {
			continue
		}
		if accountID != "" && e.AccountID != accountID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *MemoryRepo) ListLeads(ctx context.Context, workspaceID, campaignID string) ([]leads.Lead, error) {
	if workspaceID == "" {
		return nil, errors.New("workspace_id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]leads.Lead, 0)
	for _, l := range r.Leads {
		if l.WorkspaceID != workspaceID {
			continue
		}
		if campaignID != "" && l.CampaignID != campaignID {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func inRange(ts, from, to time.Time) bool {
	if ts.IsZero() {
		return true
	}
	return !ts.Before(from) && ts.Before(to)
}

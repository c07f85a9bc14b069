package billing

import (
	"context"
	"sync"

	"dialer-platform/internal/calls"
	"dialer-platform/internal/campaign"
	"dialer-platform/internal/leads"
	"dialer-platform/internal/ledger"
)

// MemoryBackend commits the billing unit against the in-memory stores.
// One mutex serializes composite commits; the per-entity locks inside the
// individual stores keep plain credits/debits safe alongside it.
type MemoryBackend struct {
	mu sync.Mutex

	Ledger    *ledger.MemoryStore
	Campaigns *campaign.MemoryStore
	Leads     *leads.MemoryStore
	Calls     *calls.MemoryStore
}

func NewMemoryBackend(l *ledger.MemoryStore, c *campaign.MemoryStore, ld *leads.MemoryStore, ca *calls.MemoryStore) *MemoryBackend {
	return &MemoryBackend{Ledger: l, Campaigns: c, Leads: ld, Calls: ca}
}

func (b *MemoryBackend) ChargeCall(ctx context.Context, p ChargeParams) (PlaceCallResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return PlaceCallResult{}, ErrAborted
	}

	// Re-validate inside the lock: the service's reads are stale by now.
	c, err := b.Campaigns.Get(ctx, p.Call.CampaignID)
	if err != nil {
		return PlaceCallResult{}, err
	}
	if c.Status != campaign.StatusActive {
		return PlaceCallResult{}, ErrCampaignNotActive
	}
	l, err := b.Leads.Get(ctx, p.Call.LeadID)
	if err != nil {
		return PlaceCallResult{}, err
	}
	if l.CallAttempts >= p.MaxAttempts {
		return PlaceCallResult{}, leads.ErrMaxAttemptsExceeded
	}

	// The debit is the first write: funds check and balance decrement are
	// one atomic step, and nothing else has been touched if it fails.
	acct, err := b.Ledger.Post(ctx, p.Entry)
	if err != nil {
		return PlaceCallResult{}, err
	}

	if err := b.Calls.Insert(ctx, p.Call); err != nil {
		return PlaceCallResult{}, ledger.ErrLedgerInconsistency
	}
	updatedLead, err := b.Leads.RecordAttempt(ctx, l.ID, p.MaxAttempts, p.Call.DurationSeconds, p.Now)
	if err != nil {
		return PlaceCallResult{}, ledger.ErrLedgerInconsistency
	}
	successDelta := 0
	if p.Successful {
		successDelta = 1
	}
	updatedCampaign, err := b.Campaigns.AddCounters(ctx, c.ID, 1, successDelta, p.Now)
	if err != nil {
		return PlaceCallResult{}, ledger.ErrLedgerInconsistency
	}

	return PlaceCallResult{
		Call:     p.Call,
		Lead:     updatedLead,
		Campaign: updatedCampaign,
		Balance: ledger.Balance{
			AccountID:     acct.ID,
			Currency:      acct.Currency,
			RealMinor:     acct.RealMinor,
			InflatedMinor: acct.Factor.Apply(acct.RealMinor),
			UpdatedAt:     acct.UpdatedAt,
		},
	}, nil
}

package billing

import (
	"context"
	"time"

	"dialer-platform/internal/calls"
	"dialer-platform/internal/campaign"
	"dialer-platform/internal/leads"
	"dialer-platform/internal/ledger"

	"github.com/google/uuid"
)

// Service orchestrates a single billed dial attempt.
//
// PlaceCall composes the campaign gate, the call window, the lead attempt
// budget and the ledger debit. The money-touching tail (debit + call record
// + lead attempt + campaign counters) is one atomic Backend commit: a debit
// without its call, or a call without its debit, must never be observable.
type Service struct {
	ledger    *ledger.Service
	campaigns campaign.Store
	leadStore leads.Store
	backend   Backend
	limiter   ConcurrencyLimiter // optional; nil disables the cap
	clock     func() time.Time
}

func NewService(ledgerSvc *ledger.Service, campaigns campaign.Store, leadStore leads.Store, backend Backend) *Service {
	return &Service{
		ledger:    ledgerSvc,
		campaigns: campaigns,
		leadStore: leadStore,
		backend:   backend,
		clock:     time.Now,
	}
}

// WithLimiter enables a per-campaign concurrent-call cap.
func (s *Service) WithLimiter(l ConcurrencyLimiter) *Service {
	s.limiter = l
	return s
}

// Backend executes the composite charge as one atomic unit. Implementations
// must re-validate funds and the attempt cap inside their own lock scope;
// the service's gate checks alone would be a check-then-act race.
type Backend interface {
	ChargeCall(ctx context.Context, p ChargeParams) (PlaceCallResult, error)
}

// ChargeParams carries the fully prepared records for one billing unit.
type ChargeParams struct {
	Entry       ledger.Entry // charge entry, negative amount
	Call        calls.Call   // call record, LedgerEntryID already set
	MaxAttempts int
	Successful  bool // outcome == completed
	Now         time.Time
}

type PlaceCallRequest struct {
	CampaignID string `json:"campaign_id"`
	LeadID     string `json:"lead_id"`

	// Outcome is the terminal result reported by the dialing layer.
	Outcome calls.Outcome `json:"outcome"`

	// EstimatedDurationSeconds is the billed duration.
	EstimatedDurationSeconds int `json:"estimated_duration_seconds"`

	// RatePerMinuteMinor is the real per-minute rate in minor units.
	RatePerMinuteMinor int64 `json:"rate_per_minute_minor"`
}

type PlaceCallResult struct {
	Call     calls.Call        `json:"call"`
	Lead     leads.Lead        `json:"lead"`
	Campaign campaign.Campaign `json:"campaign"`
	Balance  ledger.Balance    `json:"balance"`
}

// PlaceCall runs the gate checks in order (campaign active, call window,
// attempt budget), each with its own failure, then commits the charge.
// ErrInsufficientFunds from the debit propagates unchanged with zero side
// effects. A context already canceled before the commit maps to ErrAborted.
func (s *Service) PlaceCall(ctx context.Context, req PlaceCallRequest) (PlaceCallResult, error) {
	if req.CampaignID == "" || req.LeadID == "" {
		return PlaceCallResult{}, ErrInvalidArgument
	}
	if !req.Outcome.Valid() {
		return PlaceCallResult{}, ErrInvalidArgument
	}
	if req.EstimatedDurationSeconds <= 0 || req.RatePerMinuteMinor <= 0 {
		return PlaceCallResult{}, ErrInvalidArgument
	}

	now := s.clock().UTC()

	c, err := s.campaigns.Get(ctx, req.CampaignID)
	if err != nil {
		return PlaceCallResult{}, err
	}
	if c.Status != campaign.StatusActive {
		return PlaceCallResult{}, ErrCampaignNotActive
	}
	within, err := campaign.IsWithinCallWindow(c, now)
	if err != nil {
		return PlaceCallResult{}, err
	}
	if !within {
		return PlaceCallResult{}, ErrOutsideCallWindow
	}

	l, err := s.leadStore.Get(ctx, req.LeadID)
	if err != nil {
		return PlaceCallResult{}, err
	}
	if l.CampaignID != c.ID {
		return PlaceCallResult{}, ErrInvalidArgument
	}
	if l.CallAttempts >= c.MaxAttempts {
		return PlaceCallResult{}, leads.ErrMaxAttemptsExceeded
	}

	if s.limiter != nil {
		ok, err := s.limiter.Acquire(ctx, c.ID)
		if err != nil {
			return PlaceCallResult{}, err
		}
		if !ok {
			return PlaceCallResult{}, ErrTooManyActiveCalls
		}
		defer func() { _ = s.limiter.Release(context.WithoutCancel(ctx), c.ID) }()
	}

	acct, err := s.ledger.Account(ctx, c.OwnerAccountID)
	if err != nil {
		return PlaceCallResult{}, err
	}

	cost := CallCostMinor(req.EstimatedDurationSeconds, req.RatePerMinuteMinor)
	entryID := uuid.NewString()
	callID := uuid.NewString()

	p := ChargeParams{
		Entry: ledger.Entry{
			ID:          entryID,
			WorkspaceID: acct.WorkspaceID,
			AccountID:   acct.ID,
			Kind:        ledger.EntryKindCharge,
			AmountMinor: -cost,
			Currency:    acct.Currency,
			Factor:      acct.Factor,
			CampaignID:  c.ID,
			CallID:      callID,
			Reason:      "call charge",
			CreatedAt:   now,
		},
		Call: calls.Call{
			CallID:          callID,
			WorkspaceID:     c.WorkspaceID,
			CampaignID:      c.ID,
			LeadID:          l.ID,
			Outcome:         req.Outcome,
			DurationSeconds: req.EstimatedDurationSeconds,
			RealCostMinor:   cost,
			Factor:          acct.Factor,
			LedgerEntryID:   entryID,
			CreatedAt:       now,
		},
		MaxAttempts: c.MaxAttempts,
		Successful:  req.Outcome == calls.OutcomeCompleted,
		Now:         now,
	}

	return s.backend.ChargeCall(ctx, p)
}

package leads

import (
	"context"
	"errors"
	"time"

	"dialer-platform/internal/campaign"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("leads: not found")
	ErrInvalidArgument   = errors.New("leads: invalid argument")
	ErrInvalidTransition = errors.New("leads: invalid status transition")

	// ErrMaxAttemptsExceeded means the lead already consumed the campaign's
	// attempt budget. Further dial attempts must not be recorded.
	ErrMaxAttemptsExceeded = errors.New("leads: max attempts exceeded")
)

// transitions is the only legal status table.
var transitions = map[Status][]Status{
	StatusNew:         {StatusContacted, StatusUnqualified},
	StatusContacted:   {StatusQualified, StatusUnqualified},
	StatusQualified:   {StatusConverted, StatusUnqualified},
	StatusUnqualified: {},
	StatusConverted:   {},
}

func canTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CampaignDirectory is the campaign surface the workflow needs: attempt cap
// lookup and the per-campaign lead counter. Satisfied by campaign.Store.
type CampaignDirectory interface {
	Get(ctx context.Context, campaignID string) (campaign.Campaign, error)
	AddLeads(ctx context.Context, campaignID string, delta int, now time.Time) (campaign.Campaign, error)
}

// Workflow owns lead status transitions and attempt accounting.
type Workflow struct {
	store     Store
	campaigns CampaignDirectory
	clock     func() time.Time
}

func NewWorkflow(store Store, campaigns CampaignDirectory) *Workflow {
	return &Workflow{store: store, campaigns: campaigns, clock: time.Now}
}

type CreateRequest struct {
	WorkspaceID string            `json:"workspace_id"`
	CampaignID  string            `json:"campaign_id"`
	Name        string            `json:"name,omitempty"`
	Phone       string            `json:"phone"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// Create registers a lead against a campaign (import row or manual entry).
func (w *Workflow) Create(ctx context.Context, req CreateRequest) (Lead, error) {
	if req.WorkspaceID == "" || req.CampaignID == "" || req.Phone == "" {
		return Lead{}, ErrInvalidArgument
	}
	if _, err := w.campaigns.Get(ctx, req.CampaignID); err != nil {
		return Lead{}, err
	}
	now := w.clock().UTC()
	l := Lead{
		ID:          uuid.NewString(),
		WorkspaceID: req.WorkspaceID,
		CampaignID:  req.CampaignID,
		Name:        req.Name,
		Phone:       req.Phone,
		Status:      StatusNew,
		Attributes:  req.Attributes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := w.store.Create(ctx, l); err != nil {
		return Lead{}, err
	}
	if _, err := w.campaigns.AddLeads(ctx, req.CampaignID, 1, now); err != nil {
		return Lead{}, err
	}
	return l, nil
}

func (w *Workflow) Get(ctx context.Context, leadID string) (Lead, error) {
	if leadID == "" {
		return Lead{}, ErrInvalidArgument
	}
	return w.store.Get(ctx, leadID)
}

// Transition applies a status change per the legal table.
func (w *Workflow) Transition(ctx context.Context, leadID string, to Status) (Lead, error) {
	l, err := w.Get(ctx, leadID)
	if err != nil {
		return Lead{}, err
	}
	if !canTransition(l.Status, to) {
		return Lead{}, ErrInvalidTransition
	}
	return w.store.SetStatus(ctx, leadID, l.Status, to, w.clock().UTC())
}

// RecordAttempt books one dial attempt: increments the attempt counter,
// stamps the last-call time and accumulates talk seconds. When the attempt
// reaches the campaign cap while the lead is still new/contacted, the lead
// is forced to unqualified regardless of outcome.
func (w *Workflow) RecordAttempt(ctx context.Context, leadID string, durationSeconds int, now time.Time) (Lead, error) {
	if leadID == "" || durationSeconds < 0 {
		return Lead{}, ErrInvalidArgument
	}
	l, err := w.Get(ctx, leadID)
	if err != nil {
		return Lead{}, err
	}
	c, err := w.campaigns.Get(ctx, l.CampaignID)
	if err != nil {
		return Lead{}, err
	}
	if now.IsZero() {
		now = w.clock().UTC()
	}
	return w.store.RecordAttempt(ctx, leadID, c.MaxAttempts, durationSeconds, now)
}

// ApplyAttempt is the pure attempt-accounting rule shared by every store
// implementation: one increment, one timestamp, forced unqualified at the
// cap. It fails ErrMaxAttemptsExceeded when the budget is already spent.
func ApplyAttempt(l Lead, maxAttempts, durationSeconds int, now time.Time) (Lead, error) {
	if l.CallAttempts >= maxAttempts {
		return Lead{}, ErrMaxAttemptsExceeded
	}
	l.CallAttempts++
	l.LastCallAt = &now
	l.TalkSeconds += durationSeconds
	if l.CallAttempts >= maxAttempts && (l.Status == StatusNew || l.Status == StatusContacted) {
		l.Status = StatusUnqualified
	}
	l.UpdatedAt = now
	return l, nil
}

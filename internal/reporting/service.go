package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"dialer-platform/internal/calls"
	"dialer-platform/internal/leads"
	"dialer-platform/internal/ledger"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

const DefaultTTL = 24 * time.Hour

// Repository abstracts read-only access to the immutable sources reports
// aggregate over. Implementations must enforce workspace filtering.
type Repository interface {
	ListCalls(ctx context.Context, workspaceID string, from, to time.Time, campaignID string) ([]calls.Call, error)
	ListLedgerEntries(ctx context.Context, workspaceID string, from, to time.Time, accountID string) ([]ledger.Entry, error)
	ListLeads(ctx context.Context, workspaceID, campaignID string) ([]leads.Lead, error)
}

// Service computes aggregate reports behind a TTL cache. Entries younger
// than the TTL are returned verbatim without recomputation; stale entries
// are recomputed and overwritten.
type Service struct {
	repo  Repository
	cache Cache
	ttl   time.Duration
	clock func() time.Time
}

func NewService(repo Repository, cache Cache) *Service {
	return &Service{repo: repo, cache: cache, ttl: DefaultTTL, clock: time.Now}
}

// WithTTL overrides the default cache lifetime.
func (s *Service) WithTTL(ttl time.Duration) *Service {
	s.ttl = ttl
	return s
}

// Generate returns the report for (requester, type, filters), serving from
// the cache when a fresh entry exists and computing otherwise.
func (s *Service) Generate(ctx context.Context, requesterAccountID string, typ ReportType, f Filters) (Report, error) {
	if requesterAccountID == "" || !typ.Valid() || f.WorkspaceID == "" {
		return Report{}, ErrInvalidRequest
	}

	key := cacheKey(requesterAccountID, typ, f)
	if data, ok, err := s.cache.Get(ctx, key); err != nil {
		return Report{}, err
	} else if ok {
		var cached Report
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
		// Unreadable entry: drop it and recompute.
		_ = s.cache.Delete(ctx, key)
	}

	data, err := s.compute(ctx, typ, f)
	if err != nil {
		return Report{}, err
	}
	report := Report{
		RequesterAccountID: requesterAccountID,
		Type:               typ,
		Filters:            f,
		GeneratedAt:        s.clock().UTC(),
		Data:               data,
	}
	raw, err := json.Marshal(report)
	if err != nil {
		return Report{}, err
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
		return Report{}, err
	}
	return report, nil
}

func (s *Service) compute(ctx context.Context, typ ReportType, f Filters) (json.RawMessage, error) {
	var (
		out any
		err error
	)
	switch typ {
	case ReportCallsSummary:
		out, err = s.callsSummary(ctx, f)
	case ReportSpendSummary:
		out, err = s.spendSummary(ctx, f)
	case ReportLeadFunnel:
		out, err = s.leadFunnel(ctx, f)
	default:
		return nil, ErrInvalidRequest
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

func (s *Service) callsSummary(ctx context.Context, f Filters) (CallsSummary, error) {
	if err := validateRange(f.Range); err != nil {
		return CallsSummary{}, err
	}
	rows, err := s.repo.ListCalls(ctx, f.WorkspaceID, f.Range.From, f.Range.To, f.CampaignID)
	if err != nil {
		return CallsSummary{}, err
	}

	out := CallsSummary{WorkspaceID: f.WorkspaceID, CampaignID: f.CampaignID}
	for _, c := range rows {
		out.TotalCalls++
		out.TotalDurationSeconds += c.DurationSeconds
		switch c.Outcome {
		case calls.OutcomeCompleted:
			out.CompletedCalls++
		case calls.OutcomeFailed:
			out.FailedCalls++
		case calls.OutcomeBusy:
			out.BusyCalls++
		case calls.OutcomeNoAnswer:
			out.NoAnswerCalls++
		}
	}
	if out.TotalCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / out.TotalCalls
	}
	return out, nil
}

func (s *Service) spendSummary(ctx context.Context, f Filters) (SpendSummary, error) {
	if err := validateRange(f.Range); err != nil {
		return SpendSummary{}, err
	}
	entries, err := s.repo.ListLedgerEntries(ctx, f.WorkspaceID, f.Range.From, f.Range.To, f.AccountID)
	if err != nil {
		return SpendSummary{}, err
	}

	out := SpendSummary{WorkspaceID: f.WorkspaceID, AccountID: f.AccountID, Currency: f.Currency}
	for _, e := range entries {
		if out.Currency == "" {
			out.Currency = e.Currency
		}
		if f.Currency != "" && e.Currency != f.Currency {
			continue
		}
		if e.AmountMinor > 0 {
			out.TotalCreditMinor += e.AmountMinor
			out.InflatedCreditMinor += e.Factor.Apply(e.AmountMinor)
		} else {
			out.TotalDebitMinor += -e.AmountMinor
			out.InflatedDebitMinor += e.Factor.Apply(-e.AmountMinor)
		}
		if e.Kind == ledger.EntryKindAdjustment {
			out.AdminAdjustMinor += e.AmountMinor
		}
	}
	out.NetDeltaMinor = out.TotalCreditMinor - out.TotalDebitMinor
	if out.Currency == "" {
		out.Currency = "UNKNOWN"
	}
	return out, nil
}

func (s *Service) leadFunnel(ctx context.Context, f Filters) (LeadFunnel, error) {
	rows, err := s.repo.ListLeads(ctx, f.WorkspaceID, f.CampaignID)
	if err != nil {
		return LeadFunnel{}, err
	}

	out := LeadFunnel{WorkspaceID: f.WorkspaceID, CampaignID: f.CampaignID}
	for _, l := range rows {
		out.TotalLeads++
		out.TotalCallAttempts += l.CallAttempts
		out.TotalTalkSeconds += l.TalkSeconds
		switch l.Status {
		case leads.StatusNew:
			out.NewLeads++
		case leads.StatusContacted:
			out.ContactedLeads++
		case leads.StatusQualified:
			out.QualifiedLeads++
		case leads.StatusUnqualified:
			out.UnqualifiedLeads++
		case leads.StatusConverted:
			out.ConvertedLeads++
		}
	}
	if out.TotalLeads > 0 {
		out.ConversionRate = float64(out.ConvertedLeads) / float64(out.TotalLeads)
	}
	return out, nil
}

func validateRange(r TimeRange) error {
	if r.From.IsZero() || r.To.IsZero() || !r.To.After(r.From) {
		return ErrInvalidRequest
	}
	return nil
}

package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"dialer-platform/internal/calls"
	"dialer-platform/internal/campaign"
	"dialer-platform/internal/leads"
	"dialer-platform/internal/ledger"
)

type fixture struct {
	svc         *Service
	ledgerSvc   *ledger.Service
	ledgerStore *ledger.MemoryStore
	campStore   *campaign.MemoryStore
	leadStore   *leads.MemoryStore
	callStore   *calls.MemoryStore
	campaignID  string
	leadID      string
}

// tuesdayNoon is inside an always-on weekday window in UTC.
var tuesdayNoon = time.Date(2023, 11, 14, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T, balanceMinor int64) *fixture {
	t.Helper()

	ledgerStore := ledger.NewMemoryStore()
	ledgerSvc := ledger.NewService(ledgerStore)
	if _, err := ledgerSvc.CreateAccount(context.Background(), "ws", "owner", "USD", ledger.Factor{Num: 2, Den: 1}); err != nil {
		t.Fatalf("create account: %v", err)
	}
	if balanceMinor > 0 {
		if _, _, err := ledgerSvc.Credit(context.Background(), "owner", ledger.CreditRequest{AmountMinor: balanceMinor, Reason: "topup"}); err != nil {
			t.Fatalf("credit: %v", err)
		}
	}

	campStore := campaign.NewMemoryStore()
	c := campaign.Campaign{
		ID:             "camp",
		WorkspaceID:    "ws",
		OwnerAccountID: "owner",
		Name:           "test",
		Status:         campaign.StatusActive,
		Timezone:       "UTC",
		Window: campaign.CallWindow{
			StartMinute: 9 * 60,
			EndMinute:   18 * 60,
			Weekdays:    [7]bool{false, true, true, true, true, true, false},
		},
		MaxAttempts: 3,
		CreatedAt:   tuesdayNoon,
		UpdatedAt:   tuesdayNoon,
	}
	if err := campStore.Create(context.Background(), c); err != nil {
		t.Fatalf("create campaign: %v", err)
	}

	leadStore := leads.NewMemoryStore()
	l := leads.Lead{
		ID:          "lead",
		WorkspaceID: "ws",
		CampaignID:  "camp",
		Phone:       "+15550100",
		Status:      leads.StatusNew,
		CreatedAt:   tuesdayNoon,
		UpdatedAt:   tuesdayNoon,
	}
	if err := leadStore.Create(context.Background(), l); err != nil {
		t.Fatalf("create lead: %v", err)
	}

	callStore := calls.NewMemoryStore()
	backend := NewMemoryBackend(ledgerStore, campStore, leadStore, callStore)
	svc := NewService(ledgerSvc, campStore, leadStore, backend)
	svc.clock = func() time.Time { return tuesdayNoon }

	return &fixture{
		svc:         svc,
		ledgerSvc:   ledgerSvc,
		ledgerStore: ledgerStore,
		campStore:   campStore,
		leadStore:   leadStore,
		callStore:   callStore,
		campaignID:  "camp",
		leadID:      "lead",
	}
}

func placeReq(f *fixture, outcome calls.Outcome) PlaceCallRequest {
	return PlaceCallRequest{
		CampaignID:               f.campaignID,
		LeadID:                   f.leadID,
		Outcome:                  outcome,
		EstimatedDurationSeconds: 120,
		RatePerMinuteMinor:       25,
	}
}

// assertUntouched verifies that a rejected attempt left no trace anywhere:
// no debit, no call record, no attempt increment, no counter bump.
func assertUntouched(t *testing.T, f *fixture, wantBalance int64) {
	t.Helper()
	bal, err := f.ledgerSvc.GetBalance(context.Background(), "owner")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.RealMinor != wantBalance {
		t.Fatalf("balance moved: %d want %d", bal.RealMinor, wantBalance)
	}
	if n := f.callStore.Count(); n != 0 {
		t.Fatalf("call record written on failure: %d", n)
	}
	l, _ := f.leadStore.Get(context.Background(), f.leadID)
	if l.CallAttempts != 0 {
		t.Fatalf("attempt recorded on failure: %d", l.CallAttempts)
	}
	c, _ := f.campStore.Get(context.Background(), f.campaignID)
	if c.CompletedCalls != 0 || c.SuccessfulCalls != 0 {
		t.Fatalf("counters moved on failure: %+v", c)
	}
}

func TestPlaceCall_ChargesAndUpdatesEverythingOnce(t *testing.T) {
	f := newFixture(t, 1000)

	res, err := f.svc.PlaceCall(context.Background(), placeReq(f, calls.OutcomeCompleted))
	if err != nil {
		t.Fatalf("place call: %v", err)
	}

	// 120s at 25/min = 50 real cost.
	if res.Call.RealCostMinor != 50 {
		t.Fatalf("expected real cost 50, got %d", res.Call.RealCostMinor)
	}
	if res.Call.InflatedCostMinor() != 100 {
		t.Fatalf("expected inflated cost 100, got %d", res.Call.InflatedCostMinor())
	}
	if res.Balance.RealMinor != 950 || res.Balance.InflatedMinor != 1900 {
		t.Fatalf("unexpected balance: %+v", res.Balance)
	}
	if res.Lead.CallAttempts != 1 || res.Lead.TalkSeconds != 120 {
		t.Fatalf("unexpected lead: %+v", res.Lead)
	}
	if res.Campaign.CompletedCalls != 1 || res.Campaign.SuccessfulCalls != 1 {
		t.Fatalf("unexpected counters: %+v", res.Campaign)
	}

	// The call and its charge entry reference each other.
	stored, err := f.callStore.Get(context.Background(), res.Call.CallID)
	if err != nil {
		t.Fatalf("call lookup: %v", err)
	}
	entries, err := f.ledgerStore.ListEntries(context.Background(), "owner", 0, 10)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	var charge *ledger.Entry
	for i := range entries {
		if entries[i].Kind == ledger.EntryKindCharge {
			charge = &entries[i]
		}
	}
	if charge == nil {
		t.Fatalf("no charge entry written")
	}
	if charge.CallID != stored.CallID || stored.LedgerEntryID != charge.ID {
		t.Fatalf("call/entry linkage broken: %+v / %+v", stored, charge)
	}
	if charge.AmountMinor != -50 {
		t.Fatalf("expected charge -50, got %d", charge.AmountMinor)
	}
}

func TestPlaceCall_NonConnectedOutcomeOnlyCountsCompleted(t *testing.T) {
	f := newFixture(t, 1000)

	res, err := f.svc.PlaceCall(context.Background(), placeReq(f, calls.OutcomeBusy))
	if err != nil {
		t.Fatalf("place call: %v", err)
	}
	if res.Campaign.CompletedCalls != 1 {
		t.Fatalf("completed counter should increment, got %d", res.Campaign.CompletedCalls)
	}
	if res.Campaign.SuccessfulCalls != 0 {
		t.Fatalf("successful counter should not increment for busy, got %d", res.Campaign.SuccessfulCalls)
	}
}

func TestPlaceCall_RequiresActiveCampaign(t *testing.T) {
	f := newFixture(t, 1000)
	if _, err := f.campStore.SetStatus(context.Background(), f.campaignID, campaign.StatusActive, campaign.StatusPaused, tuesdayNoon); err != nil {
		t.Fatalf("pause: %v", err)
	}

	_, err := f.svc.PlaceCall(context.Background(), placeReq(f, calls.OutcomeCompleted))
	if !errors.Is(err, ErrCampaignNotActive) {
		t.Fatalf("expected ErrCampaignNotActive, got %v", err)
	}
	assertUntouched(t, f, 1000)
}

func TestPlaceCall_RejectsOutsideCallWindow(t *testing.T) {
	f := newFixture(t, 1000)
	// Saturday noon: weekday disabled.
	f.svc.clock = func() time.Time { return time.Date(2023, 11, 18, 12, 0, 0, 0, time.UTC) }

	_, err := f.svc.PlaceCall(context.Background(), placeReq(f, calls.OutcomeCompleted))
	if !errors.Is(err, ErrOutsideCallWindow) {
		t.Fatalf("expected ErrOutsideCallWindow, got %v", err)
	}
	assertUntouched(t, f, 1000)
}

func TestPlaceCall_EnforcesAttemptBudget(t *testing.T) {
	f := newFixture(t, 100000)

	for i := 0; i < 3; i++ {
		if _, err := f.svc.PlaceCall(context.Background(), placeReq(f, calls.OutcomeNoAnswer)); err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}

	l, _ := f.leadStore.Get(context.Background(), f.leadID)
	if l.CallAttempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", l.CallAttempts)
	}
	if l.Status != leads.StatusUnqualified {
		t.Fatalf("lead should be forced unqualified at the cap, got %s", l.Status)
	}

	_, err := f.svc.PlaceCall(context.Background(), placeReq(f, calls.OutcomeNoAnswer))
	if !errors.Is(err, leads.ErrMaxAttemptsExceeded) {
		t.Fatalf("expected ErrMaxAttemptsExceeded, got %v", err)
	}
	if n := f.callStore.Count(); n != 3 {
		t.Fatalf("expected 3 call records, got %d", n)
	}
}

func TestPlaceCall_InsufficientFundsLeavesNoTrace(t *testing.T) {
	f := newFixture(t, 30) // cost will be 50

	_, err := f.svc.PlaceCall(context.Background(), placeReq(f, calls.OutcomeCompleted))
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	assertUntouched(t, f, 30)

	entries, _ := f.ledgerStore.ListEntries(context.Background(), "owner", 0, 10)
	for _, e := range entries {
		if e.Kind == ledger.EntryKindCharge {
			t.Fatalf("charge entry written on failed debit: %+v", e)
		}
	}
}

func TestPlaceCall_CanceledContextAborts(t *testing.T) {
	f := newFixture(t, 1000)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.PlaceCall(ctx, placeReq(f, calls.OutcomeCompleted))
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
	assertUntouched(t, f, 1000)
}

type fakeLimiter struct {
	allow    bool
	acquired int
	released int
}

func (l *fakeLimiter) Acquire(ctx context.Context, campaignID string) (bool, error) {
	l.acquired++
	return l.allow, nil
}

func (l *fakeLimiter) Release(ctx context.Context, campaignID string) error {
	l.released++
	return nil
}

func TestPlaceCall_ConcurrencyCap(t *testing.T) {
	f := newFixture(t, 1000)
	lim := &fakeLimiter{allow: false}
	f.svc.WithLimiter(lim)

	_, err := f.svc.PlaceCall(context.Background(), placeReq(f, calls.OutcomeCompleted))
	if !errors.Is(err, ErrTooManyActiveCalls) {
		t.Fatalf("expected ErrTooManyActiveCalls, got %v", err)
	}
	assertUntouched(t, f, 1000)
	if lim.released != 0 {
		t.Fatalf("release called without acquire")
	}

	lim.allow = true
	if _, err := f.svc.PlaceCall(context.Background(), placeReq(f, calls.OutcomeCompleted)); err != nil {
		t.Fatalf("place call with cap slot: %v", err)
	}
	if lim.released != 1 {
		t.Fatalf("slot not released after commit: %d", lim.released)
	}
}

func TestCallCostMinor_BillsPerStartedMinute(t *testing.T) {
	cases := []struct {
		seconds int
		rate    int64
		want    int64
	}{
		{60, 25, 25},
		{61, 25, 50},
		{120, 25, 50},
		{1, 100, 100},
		{0, 25, 0},
	}
	for _, tc := range cases {
		if got := CallCostMinor(tc.seconds, tc.rate); got != tc.want {
			t.Fatalf("cost(%d,%d) = %d, want %d", tc.seconds, tc.rate, got, tc.want)
		}
	}
}

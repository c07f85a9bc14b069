package campaign

import (
	"context"
	"errors"
	"testing"
	"time"

	"dialer-platform/internal/ledger"
)

func newTestLifecycle(t *testing.T, realMinor int64) (*Lifecycle, *MemoryStore) {
	t.Helper()
	ledgerStore := ledger.NewMemoryStore()
	ledgerSvc := ledger.NewService(ledgerStore)
	if _, err := ledgerSvc.CreateAccount(context.Background(), "ws", "owner", "USD", ledger.Factor{Num: 2, Den: 1}); err != nil {
		t.Fatalf("create account: %v", err)
	}
	if realMinor > 0 {
		if _, _, err := ledgerSvc.Credit(context.Background(), "owner", ledger.CreditRequest{AmountMinor: realMinor, Reason: "topup"}); err != nil {
			t.Fatalf("credit: %v", err)
		}
	}
	store := NewMemoryStore()
	return NewLifecycle(store, ledgerSvc), store
}

func weekdayWindow() CallWindow {
	return CallWindow{
		StartMinute: 9 * 60,
		EndMinute:   18 * 60,
		Weekdays:    [7]bool{false, true, true, true, true, true, false},
	}
}

func mustCreate(t *testing.T, l *Lifecycle) Campaign {
	t.Helper()
	c, err := l.Create(context.Background(), CreateRequest{
		WorkspaceID:    "ws",
		OwnerAccountID: "owner",
		Name:           "q4-outreach",
		Timezone:       "America/New_York",
		Window:         weekdayWindow(),
		MaxAttempts:    3,
	})
	if err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	return c
}

func TestLifecycle_ActivatePauseComplete(t *testing.T) {
	l, _ := newTestLifecycle(t, 100)
	c := mustCreate(t, l)
	if c.Status != StatusInactive {
		t.Fatalf("new campaign should be inactive, got %s", c.Status)
	}

	c, err := l.Activate(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if c.Status != StatusActive {
		t.Fatalf("expected active, got %s", c.Status)
	}

	c, err = l.Pause(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("pause: %v", err)
	}
	if c.Status != StatusPaused {
		t.Fatalf("expected paused, got %s", c.Status)
	}

	// paused campaigns can be re-activated
	if _, err := l.Activate(context.Background(), c.ID); err != nil {
		t.Fatalf("re-activate from paused: %v", err)
	}

	c, err = l.Complete(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if c.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", c.Status)
	}
}

func TestLifecycle_IllegalTransitionsRejected(t *testing.T) {
	l, _ := newTestLifecycle(t, 100)
	c := mustCreate(t, l)

	// inactive cannot pause
	if _, err := l.Pause(context.Background(), c.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	if _, err := l.Complete(context.Background(), c.ID); err != nil {
		t.Fatalf("complete from inactive: %v", err)
	}

	// completed is terminal
	if _, err := l.Activate(context.Background(), c.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition after completion, got %v", err)
	}
	if _, err := l.Pause(context.Background(), c.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition after completion, got %v", err)
	}
	if _, err := l.Complete(context.Background(), c.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition after completion, got %v", err)
	}
}

func TestLifecycle_ActivateRequiresFunds(t *testing.T) {
	l, _ := newTestLifecycle(t, 0)
	c := mustCreate(t, l)

	_, err := l.Activate(context.Background(), c.ID)
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	got, err := l.Get(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusInactive {
		t.Fatalf("status changed on failed activation: %s", got.Status)
	}
}

func TestIsWithinCallWindow(t *testing.T) {
	c := Campaign{Timezone: "America/New_York", Window: weekdayWindow()}
	ny, _ := time.LoadLocation("America/New_York")

	// Tuesday 10:30 local: inside.
	ok, err := IsWithinCallWindow(c, time.Date(2023, 11, 14, 10, 30, 0, 0, ny))
	if err != nil || !ok {
		t.Fatalf("expected within window, ok=%v err=%v", ok, err)
	}

	// Tuesday 18:00 local: end minute is exclusive.
	ok, _ = IsWithinCallWindow(c, time.Date(2023, 11, 14, 18, 0, 0, 0, ny))
	if ok {
		t.Fatalf("18:00 should be outside the half-open window")
	}

	// Tuesday 08:59 local: before start.
	ok, _ = IsWithinCallWindow(c, time.Date(2023, 11, 14, 8, 59, 0, 0, ny))
	if ok {
		t.Fatalf("08:59 should be outside the window")
	}

	// Saturday 10:30 local: weekday disabled.
	ok, _ = IsWithinCallWindow(c, time.Date(2023, 11, 18, 10, 30, 0, 0, ny))
	if ok {
		t.Fatalf("saturday should be outside the window")
	}

	// Window evaluation follows the campaign's zone, not the clock's zone:
	// 14:00 UTC on a Tuesday in November is 09:00 in New York (inside).
	ok, _ = IsWithinCallWindow(c, time.Date(2023, 11, 14, 14, 0, 0, 0, time.UTC))
	if !ok {
		t.Fatalf("14:00 UTC should map into the New York window")
	}

	// Unknown timezone is a validation error, not a silent pass.
	bad := Campaign{Timezone: "Not/AZone", Window: weekdayWindow()}
	if _, err := IsWithinCallWindow(bad, time.Now()); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestIsPastEndDate(t *testing.T) {
	end := time.Date(2023, 11, 30, 23, 59, 59, 0, time.UTC)
	c := Campaign{EndDate: end}

	if IsPastEndDate(c, end.Add(-time.Hour)) {
		t.Fatalf("before end date should not be past")
	}
	if !IsPastEndDate(c, end.Add(time.Second)) {
		t.Fatalf("after end date should be past")
	}
	if IsPastEndDate(Campaign{}, time.Now()) {
		t.Fatalf("zero end date never expires")
	}
}

func TestLifecycle_CreateAppliesDefaultMaxAttempts(t *testing.T) {
	l, _ := newTestLifecycle(t, 100)
	l.WithDefaultMaxAttempts(5)

	c, err := l.Create(context.Background(), CreateRequest{
		WorkspaceID:    "ws",
		OwnerAccountID: "owner",
		Name:           "defaulted",
		Window:         weekdayWindow(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.MaxAttempts != 5 {
		t.Fatalf("expected default max attempts 5, got %d", c.MaxAttempts)
	}

	// An explicit value still wins over the default.
	c, err = l.Create(context.Background(), CreateRequest{
		WorkspaceID:    "ws",
		OwnerAccountID: "owner",
		Name:           "explicit",
		Window:         weekdayWindow(),
		MaxAttempts:    2,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.MaxAttempts != 2 {
		t.Fatalf("expected max attempts 2, got %d", c.MaxAttempts)
	}

	// Without a configured default, a zero cap stays invalid.
	l2, _ := newTestLifecycle(t, 100)
	if _, err := l2.Create(context.Background(), CreateRequest{
		WorkspaceID:    "ws",
		OwnerAccountID: "owner",
		Name:           "no-cap",
		Window:         weekdayWindow(),
	}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

type balanceFunc func(ctx context.Context, accountID string) (ledger.Balance, error)

func (f balanceFunc) GetBalance(ctx context.Context, accountID string) (ledger.Balance, error) {
	return f(ctx, accountID)
}

func TestLifecycle_ActivateLosesRaceToComplete(t *testing.T) {
	store := NewMemoryStore()

	// The balance check sits inside Activate's read/write gap. Completing the
	// campaign there stands in for a concurrent operator action; the store's
	// compare-and-swap must refuse to resurrect the terminal status.
	var campID string
	bal := balanceFunc(func(ctx context.Context, accountID string) (ledger.Balance, error) {
		if _, err := store.SetStatus(ctx, campID, StatusInactive, StatusCompleted, time.Unix(1700000000, 0).UTC()); err != nil {
			return ledger.Balance{}, err
		}
		return ledger.Balance{AccountID: accountID, Currency: "USD", RealMinor: 100}, nil
	})

	l := NewLifecycle(store, bal)
	c := mustCreate(t, l)
	campID = c.ID

	if _, err := l.Activate(context.Background(), c.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	got, err := l.Get(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Fatalf("terminal campaign must stay completed, got %s", got.Status)
	}
}

func TestMemoryStore_SetStatusRejectsStaleSource(t *testing.T) {
	store := NewMemoryStore()
	now := time.Unix(1700000000, 0).UTC()
	if err := store.Create(context.Background(), Campaign{ID: "c1", WorkspaceID: "ws", Status: StatusActive}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := store.SetStatus(context.Background(), "c1", StatusInactive, StatusActive, now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on stale source, got %v", err)
	}
	if _, err := store.SetStatus(context.Background(), "missing", StatusActive, StatusPaused, now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

package payments

import (
	"context"
	"errors"
	"testing"

	"dialer-platform/internal/ledger"
)

func newTestService(t *testing.T) (*Service, *ledger.Service) {
	t.Helper()
	store := ledger.NewMemoryStore()
	ledgerSvc := ledger.NewService(store)
	if _, err := ledgerSvc.CreateAccount(context.Background(), "ws", "acct", "USD", ledger.Factor{Num: 2, Den: 1}); err != nil {
		t.Fatalf("create account: %v", err)
	}
	return NewService(ledgerSvc), ledgerSvc
}

func TestConfirm_CreditsAccount(t *testing.T) {
	svc, ledgerSvc := newTestService(t)

	entry, bal, err := svc.Confirm(context.Background(), Confirmation{
		AccountID:   "acct",
		AmountMinor: 5000,
		Currency:    "USD",
		ExternalRef: "pay_abc123",
		Gateway:     "stripe",
	})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if entry.Kind != ledger.EntryKindDeposit || entry.AmountMinor != 5000 {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.ExternalRef != "pay_abc123" {
		t.Fatalf("external ref not recorded: %+v", entry)
	}
	if bal.RealMinor != 5000 || bal.InflatedMinor != 10000 {
		t.Fatalf("unexpected balance: %+v", bal)
	}

	got, err := ledgerSvc.GetBalance(context.Background(), "acct")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if got.RealMinor != 5000 {
		t.Fatalf("balance not persisted: %+v", got)
	}
}

func TestConfirm_RedeliveryDoesNotDoubleCredit(t *testing.T) {
	svc, ledgerSvc := newTestService(t)

	ev := Confirmation{AccountID: "acct", AmountMinor: 5000, ExternalRef: "pay_abc123"}
	first, _, err := svc.Confirm(context.Background(), ev)
	if err != nil {
		t.Fatalf("first confirm: %v", err)
	}
	second, bal, err := svc.Confirm(context.Background(), ev)
	if err != nil {
		t.Fatalf("second confirm: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("redelivery posted a new entry: %s vs %s", second.ID, first.ID)
	}
	if bal.RealMinor != 5000 {
		t.Fatalf("redelivery changed the balance: %+v", bal)
	}

	cur := ledgerSvc.ListTransactions("acct")
	n := 0
	for cur.Next(context.Background()) {
		n++
	}
	if err := cur.Err(); err != nil {
		t.Fatalf("cursor: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected exactly 1 entry after redelivery, got %d", n)
	}
}

func TestConfirm_Validation(t *testing.T) {
	svc, _ := newTestService(t)

	cases := []Confirmation{
		{AmountMinor: 100, ExternalRef: "r"},            // missing account
		{AccountID: "acct", ExternalRef: "r"},           // missing amount
		{AccountID: "acct", AmountMinor: -5, ExternalRef: "r"},
		{AccountID: "acct", AmountMinor: 100},           // missing external ref
	}
	for _, ev := range cases {
		if _, _, err := svc.Confirm(context.Background(), ev); !errors.Is(err, ErrInvalidEvent) {
			t.Fatalf("expected ErrInvalidEvent for %+v, got %v", ev, err)
		}
	}
}

func TestConfirm_CurrencyMismatch(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.Confirm(context.Background(), Confirmation{
		AccountID:   "acct",
		AmountMinor: 100,
		Currency:    "EUR",
		ExternalRef: "pay_x",
	})
	if !errors.Is(err, ErrCurrencyMismatch) {
		t.Fatalf("expected ErrCurrencyMismatch, got %v", err)
	}
}

func TestConfirm_UnknownAccount(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.Confirm(context.Background(), Confirmation{
		AccountID:   "nope",
		AmountMinor: 100,
		ExternalRef: "pay_x",
	})
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func newTestService(t *testing.T) (*Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	svc := NewService(store)
	base := time.Unix(1700000000, 0).UTC()
	var n int
	svc.clock = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
	return svc, store
}

func mustAccount(t *testing.T, svc *Service, id string, factor Factor) Account {
	t.Helper()
	a, err := svc.CreateAccount(context.Background(), "ws", id, "USD", factor)
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return a
}

func TestCreateAccount_RejectsInvalidFactor(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.CreateAccount(context.Background(), "ws", "a", "USD", Factor{Num: 0, Den: 1}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := svc.CreateAccount(context.Background(), "ws", "a", "USD", Factor{Num: 2, Den: -1}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestDebit_DeductsAndDerivesInflatedBalance(t *testing.T) {
	svc, _ := newTestService(t)
	mustAccount(t, svc, "a", Factor{Num: 2, Den: 1})

	_, bal, err := svc.Credit(context.Background(), "a", CreditRequest{AmountMinor: 100, Reason: "topup"})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if bal.RealMinor != 100 || bal.InflatedMinor != 200 {
		t.Fatalf("after credit: real=%d inflated=%d", bal.RealMinor, bal.InflatedMinor)
	}

	entry, bal, err := svc.Debit(context.Background(), "a", DebitRequest{AmountMinor: 50, Reason: "call charge"})
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if bal.RealMinor != 50 || bal.InflatedMinor != 100 {
		t.Fatalf("after debit: real=%d inflated=%d", bal.RealMinor, bal.InflatedMinor)
	}
	if entry.Kind != EntryKindCharge || entry.AmountMinor != -50 {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.Factor != (Factor{Num: 2, Den: 1}) {
		t.Fatalf("entry should carry the account factor, got %+v", entry.Factor)
	}
}

func TestDebit_InsufficientFundsLeavesNoTrace(t *testing.T) {
	svc, store := newTestService(t)
	mustAccount(t, svc, "a", Factor{Num: 1, Den: 1})

	if _, _, err := svc.Credit(context.Background(), "a", CreditRequest{AmountMinor: 10, Reason: "topup"}); err != nil {
		t.Fatalf("credit: %v", err)
	}

	_, _, err := svc.Debit(context.Background(), "a", DebitRequest{AmountMinor: 30, Reason: "call charge"})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	bal, err := svc.GetBalance(context.Background(), "a")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.RealMinor != 10 {
		t.Fatalf("balance changed on failed debit: %d", bal.RealMinor)
	}
	entries, err := store.ListEntries(context.Background(), "a", 0, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the credit entry, got %d", len(entries))
	}
}

func TestCreditThenFullDebit_RoundTrips(t *testing.T) {
	svc, _ := newTestService(t)
	mustAccount(t, svc, "a", Factor{Num: 3, Den: 2})

	if _, _, err := svc.Credit(context.Background(), "a", CreditRequest{AmountMinor: 500, Reason: "topup"}); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, _, err := svc.Debit(context.Background(), "a", DebitRequest{AmountMinor: 500, Reason: "usage"}); err != nil {
		t.Fatalf("debit: %v", err)
	}

	bal, err := svc.GetBalance(context.Background(), "a")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.RealMinor != 0 || bal.InflatedMinor != 0 {
		t.Fatalf("expected zero balances, got %+v", bal)
	}

	cur := svc.ListTransactions("a")
	var count int
	for cur.Next(context.Background()) {
		count++
	}
	if err := cur.Err(); err != nil {
		t.Fatalf("cursor: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected exactly 2 entries, got %d", count)
	}
}

func TestCredit_IdempotentOnExternalRef(t *testing.T) {
	svc, _ := newTestService(t)
	mustAccount(t, svc, "a", Factor{Num: 1, Den: 1})

	first, _, err := svc.Credit(context.Background(), "a", CreditRequest{AmountMinor: 100, Reason: "gateway capture", ExternalRef: "pay_123"})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	second, bal, err := svc.Credit(context.Background(), "a", CreditRequest{AmountMinor: 100, Reason: "gateway capture", ExternalRef: "pay_123"})
	if err != nil {
		t.Fatalf("replay credit: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("replay created a new entry: %s vs %s", second.ID, first.ID)
	}
	if bal.RealMinor != 100 {
		t.Fatalf("replay double-credited: %d", bal.RealMinor)
	}
}

func TestListTransactions_NewestFirstAndRestartable(t *testing.T) {
	svc, _ := newTestService(t)
	mustAccount(t, svc, "a", Factor{Num: 1, Den: 1})

	for i := 0; i < 3; i++ {
		if _, _, err := svc.Credit(context.Background(), "a", CreditRequest{AmountMinor: int64(10 + i), Reason: "topup"}); err != nil {
			t.Fatalf("credit %d: %v", i, err)
		}
	}

	cur := svc.ListTransactions("a")
	var amounts []int64
	for cur.Next(context.Background()) {
		amounts = append(amounts, cur.Entry().AmountMinor)
	}
	if err := cur.Err(); err != nil {
		t.Fatalf("cursor: %v", err)
	}
	if len(amounts) != 3 || amounts[0] != 12 || amounts[2] != 10 {
		t.Fatalf("expected newest-first [12 11 10], got %v", amounts)
	}

	cur.Reset()
	var second []int64
	for cur.Next(context.Background()) {
		second = append(second, cur.Entry().AmountMinor)
	}
	if len(second) != 3 {
		t.Fatalf("restarted cursor returned %d entries", len(second))
	}
}

func TestCheckConsistency_FreezesOnMismatch(t *testing.T) {
	svc, store := newTestService(t)
	mustAccount(t, svc, "a", Factor{Num: 1, Den: 1})

	if _, _, err := svc.Credit(context.Background(), "a", CreditRequest{AmountMinor: 100, Reason: "topup"}); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := svc.CheckConsistency(context.Background(), "a"); err != nil {
		t.Fatalf("consistent account reported broken: %v", err)
	}

	store.CorruptBalance("a", 40)

	if err := svc.CheckConsistency(context.Background(), "a"); !errors.Is(err, ErrLedgerInconsistency) {
		t.Fatalf("expected ErrLedgerInconsistency, got %v", err)
	}

	// Frozen accounts reject all further posting.
	if _, _, err := svc.Credit(context.Background(), "a", CreditRequest{AmountMinor: 5, Reason: "topup"}); !errors.Is(err, ErrAccountFrozen) {
		t.Fatalf("expected ErrAccountFrozen, got %v", err)
	}
	if _, _, err := svc.Debit(context.Background(), "a", DebitRequest{AmountMinor: 5, Reason: "usage"}); !errors.Is(err, ErrAccountFrozen) {
		t.Fatalf("expected ErrAccountFrozen, got %v", err)
	}
}

func TestDebit_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store)
	if _, err := svc.CreateAccount(context.Background(), "ws", "a", "USD", Factor{Num: 1, Den: 1}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, _, err := svc.Credit(context.Background(), "a", CreditRequest{AmountMinor: 100, Reason: "topup"}); err != nil {
		t.Fatalf("credit: %v", err)
	}

	// 100 on the account, 40 goroutines each try to take 60: exactly one
	// debit can be covered.
	var wg sync.WaitGroup
	var okCount int64
	var mu sync.Mutex
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.Debit(context.Background(), "a", DebitRequest{AmountMinor: 60, Reason: "usage"})
			if err == nil {
				mu.Lock()
				okCount++
				mu.Unlock()
			} else if !errors.Is(err, ErrInsufficientFunds) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if okCount != 1 {
		t.Fatalf("expected exactly one successful debit, got %d", okCount)
	}
	bal, err := svc.GetBalance(context.Background(), "a")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.RealMinor != 40 {
		t.Fatalf("expected 40 remaining, got %d", bal.RealMinor)
	}
	sum, _ := store.SumEntries(context.Background(), "a")
	if sum != bal.RealMinor {
		t.Fatalf("projection %d disagrees with entry sum %d", bal.RealMinor, sum)
	}
}

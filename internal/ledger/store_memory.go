package ledger

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and early development.
// Mutations are serialized per account with a dedicated mutex, mirroring
// the row lock the Postgres store takes.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*memAccount
}

type memAccount struct {
	mu      sync.Mutex
	acct    Account
	entries []Entry // append order; reads sort newest first
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: map[string]*memAccount{}}
}

func (s *MemoryStore) CreateAccount(ctx context.Context, a Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[a.ID]; ok {
		return ErrInvalidArgument
	}
	s.accounts[a.ID] = &memAccount{acct: a}
	return nil
}

func (s *MemoryStore) get(accountID string) (*memAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ma, ok := s.accounts[accountID]
	if !ok {
		return nil, ErrNotFound
	}
	return ma, nil
}

func (s *MemoryStore) GetAccount(ctx context.Context, accountID string) (Account, error) {
	ma, err := s.get(accountID)
	if err != nil {
		return Account{}, err
	}
	ma.mu.Lock()
	defer ma.mu.Unlock()
	return ma.acct, nil
}

func (s *MemoryStore) Post(ctx context.Context, e Entry) (Account, error) {
	ma, err := s.get(e.AccountID)
	if err != nil {
		return Account{}, err
	}
	ma.mu.Lock()
	defer ma.mu.Unlock()

	if ma.acct.Status == AccountStatusFrozen {
		return Account{}, ErrAccountFrozen
	}
	next := ma.acct.RealMinor + e.AmountMinor
	if next < 0 {
		return Account{}, ErrInsufficientFunds
	}
	ma.entries = append(ma.entries, e)
	ma.acct.RealMinor = next
	ma.acct.UpdatedAt = e.CreatedAt
	return ma.acct, nil
}

func (s *MemoryStore) FindEntryByExternalRef(ctx context.Context, accountID, ref string) (Entry, bool, error) {
	ma, err := s.get(accountID)
	if err != nil {
		return Entry{}, false, err
	}
	ma.mu.Lock()
	defer ma.mu.Unlock()
	for _, e := range ma.entries {
		if e.ExternalRef != "" && e.ExternalRef == ref {
			return e, true, nil
		}
	}
	return Entry{}, false, nil
}

func (s *MemoryStore) ListEntries(ctx context.Context, accountID string, offset, limit int) ([]Entry, error) {
	ma, err := s.get(accountID)
	if err != nil {
		return nil, err
	}
	ma.mu.Lock()
	defer ma.mu.Unlock()

	out := make([]Entry, len(ma.entries))
	copy(out, ma.entries)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) SumEntries(ctx context.Context, accountID string) (int64, error) {
	ma, err := s.get(accountID)
	if err != nil {
		return 0, err
	}
	ma.mu.Lock()
	defer ma.mu.Unlock()
	var sum int64
	for _, e := range ma.entries {
		sum += e.AmountMinor
	}
	return sum, nil
}

func (s *MemoryStore) SetAccountStatus(ctx context.Context, accountID string, status AccountStatus, now time.Time) error {
	ma, err := s.get(accountID)
	if err != nil {
		return err
	}
	ma.mu.Lock()
	defer ma.mu.Unlock()
	ma.acct.Status = status
	ma.acct.UpdatedAt = now
	return nil
}

// CorruptBalance force-sets the projection without an entry. Test hook for
// exercising the inconsistency freeze path; never call outside tests.
func (s *MemoryStore) CorruptBalance(accountID string, realMinor int64) {
	if ma, err := s.get(accountID); err == nil {
		ma.mu.Lock()
		ma.acct.RealMinor = realMinor
		ma.mu.Unlock()
	}
}

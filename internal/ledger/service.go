package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service provides the account ledger operations.
//
// Money invariants:
// - No balance updates without a ledger entry
// - Entries are append-only (immutable)
// - The inflated balance is always derived: real * factor, never stored
//
// The service classifies and returns errors; it never logs or retries.
type Service struct {
	store Store
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, clock: time.Now}
}

type CreditRequest struct {
	AmountMinor int64  `json:"amount_minor"`
	Reason      string `json:"reason"`
	// ExternalRef is the payment gateway reference for deposits.
	// When set, posting is idempotent on it.
	ExternalRef string `json:"external_ref,omitempty"`
	// Kind may be EntryKindDeposit (default) or EntryKindAdjustment.
	Kind EntryKind `json:"kind,omitempty"`
}

type DebitRequest struct {
	AmountMinor int64  `json:"amount_minor"`
	Reason      string `json:"reason"`
	CampaignID  string `json:"campaign_id,omitempty"`
	CallID      string `json:"call_id,omitempty"`
}

// CreateAccount registers a new billing account with a zero balance.
// The inflation factor is fixed here and never changes afterwards.
func (s *Service) CreateAccount(ctx context.Context, workspaceID, accountID, currency string, factor Factor) (Account, error) {
	if workspaceID == "" || accountID == "" || currency == "" {
		return Account{}, ErrInvalidArgument
	}
	if !factor.Valid() {
		return Account{}, ErrInvalidArgument
	}
	now := s.clock().UTC()
	a := Account{
		ID:          accountID,
		WorkspaceID: workspaceID,
		Currency:    currency,
		RealMinor:   0,
		Factor:      factor,
		Status:      AccountStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateAccount(ctx, a); err != nil {
		return Account{}, err
	}
	return a, nil
}

// Credit posts a deposit (or adjustment) and increases the real balance.
// When req.ExternalRef is set and an entry with that reference already
// exists, the original entry is returned and no new entry is posted.
func (s *Service) Credit(ctx context.Context, accountID string, req CreditRequest) (Entry, Balance, error) {
	if accountID == "" || req.AmountMinor <= 0 || req.Reason == "" {
		return Entry{}, Balance{}, ErrInvalidArgument
	}
	kind := req.Kind
	if kind == "" {
		kind = EntryKindDeposit
	}
	if kind != EntryKindDeposit && kind != EntryKindAdjustment {
		return Entry{}, Balance{}, ErrInvalidArgument
	}

	a, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return Entry{}, Balance{}, err
	}

	if req.ExternalRef != "" {
		if existing, ok, err := s.store.FindEntryByExternalRef(ctx, accountID, req.ExternalRef); err != nil {
			return Entry{}, Balance{}, err
		} else if ok {
			cur, err := s.store.GetAccount(ctx, accountID)
			if err != nil {
				return Entry{}, Balance{}, err
			}
			return existing, balanceOf(cur), nil
		}
	}

	e := Entry{
		ID:          uuid.NewString(),
		WorkspaceID: a.WorkspaceID,
		AccountID:   accountID,
		Kind:        kind,
		AmountMinor: req.AmountMinor,
		Currency:    a.Currency,
		Factor:      a.Factor,
		ExternalRef: req.ExternalRef,
		Reason:      req.Reason,
		CreatedAt:   s.clock().UTC(),
	}
	updated, err := s.store.Post(ctx, e)
	if err != nil {
		return Entry{}, Balance{}, err
	}
	return e, balanceOf(updated), nil
}

// Debit posts a usage charge. The funds check and the balance decrement are
// one atomic step inside Store.Post; on ErrInsufficientFunds no entry exists.
func (s *Service) Debit(ctx context.Context, accountID string, req DebitRequest) (Entry, Balance, error) {
	if accountID == "" || req.AmountMinor <= 0 || req.Reason == "" {
		return Entry{}, Balance{}, ErrInvalidArgument
	}

	a, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return Entry{}, Balance{}, err
	}

	e := Entry{
		ID:          uuid.NewString(),
		WorkspaceID: a.WorkspaceID,
		AccountID:   accountID,
		Kind:        EntryKindCharge,
		AmountMinor: -req.AmountMinor,
		Currency:    a.Currency,
		Factor:      a.Factor,
		CampaignID:  req.CampaignID,
		CallID:      req.CallID,
		Reason:      req.Reason,
		CreatedAt:   s.clock().UTC(),
	}
	updated, err := s.store.Post(ctx, e)
	if err != nil {
		return Entry{}, Balance{}, err
	}
	return e, balanceOf(updated), nil
}

// Account returns the full account record, including the internal real
// balance and factor. For internal composition; handlers decide exposure.
func (s *Service) Account(ctx context.Context, accountID string) (Account, error) {
	if accountID == "" {
		return Account{}, ErrInvalidArgument
	}
	return s.store.GetAccount(ctx, accountID)
}

// GetBalance returns the real and derived inflated balance. Read-only.
func (s *Service) GetBalance(ctx context.Context, accountID string) (Balance, error) {
	if accountID == "" {
		return Balance{}, ErrInvalidArgument
	}
	a, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return Balance{}, err
	}
	return balanceOf(a), nil
}

// ListTransactions returns a restartable cursor over the account's entries,
// newest first. The cursor pulls pages lazily from the store.
func (s *Service) ListTransactions(accountID string) *TransactionCursor {
	return newTransactionCursor(s.store, accountID, defaultPageSize)
}

// SetStatus moves the account between active, frozen and archived. Admin
// surface; ordinary flows never change account status except through
// CheckConsistency.
func (s *Service) SetStatus(ctx context.Context, accountID string, status AccountStatus) error {
	if accountID == "" {
		return ErrInvalidArgument
	}
	switch status {
	case AccountStatusActive, AccountStatusFrozen, AccountStatusArchived:
	default:
		return ErrInvalidArgument
	}
	if _, err := s.store.GetAccount(ctx, accountID); err != nil {
		return err
	}
	return s.store.SetAccountStatus(ctx, accountID, status, s.clock().UTC())
}

// CheckConsistency verifies that the balance projection equals the signed
// sum of all entries. On mismatch the account is frozen and
// ErrLedgerInconsistency is returned; further posting fails until the
// account is manually reconciled.
func (s *Service) CheckConsistency(ctx context.Context, accountID string) error {
	if accountID == "" {
		return ErrInvalidArgument
	}
	a, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}
	sum, err := s.store.SumEntries(ctx, accountID)
	if err != nil {
		return err
	}
	if sum == a.RealMinor {
		return nil
	}
	if err := s.store.SetAccountStatus(ctx, accountID, AccountStatusFrozen, s.clock().UTC()); err != nil {
		return err
	}
	return ErrLedgerInconsistency
}

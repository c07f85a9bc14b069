package ledger

import "time"

// Account is a tenant-scoped prepaid billing account.
//
// Money invariants:
// - RealMinor is a projection of the append-only entry log; no code may
//   change it without posting a corresponding Entry.
// - RealMinor never goes negative.
// - Factor is fixed at account creation and never changes.
//
// Visibility: RealMinor is internal. Non-privileged callers only ever see
// the inflated balance derived from it.
type Account struct {
	ID          string `json:"id" db:"id"`
	WorkspaceID string `json:"workspace_id" db:"workspace_id"`
	Currency    string `json:"currency" db:"currency"`

	// RealMinor is the internal balance in minor units (e.g., cents).
	RealMinor int64 `json:"-" db:"real_minor"`

	// Factor scales the real balance into the customer-visible balance.
	Factor Factor `json:"factor" db:"factor"`

	Status AccountStatus `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type AccountStatus string

const (
	AccountStatusActive AccountStatus = "active"
	// AccountStatusFrozen blocks all further posting. Set when a consistency
	// check finds the balance projection out of step with the entry log;
	// cleared only by manual reconciliation.
	AccountStatusFrozen AccountStatus = "frozen"
	// AccountStatusArchived is for accounts retired by an operator.
	// Accounts are never deleted.
	AccountStatusArchived AccountStatus = "archived"
)

// Factor is a positive rational multiplier (Num/Den).
// It is stored on the account and stamped on every entry at posting time,
// so historical entries stay interpretable even across reconciliations.
type Factor struct {
	Num int64 `json:"num" db:"factor_num"`
	Den int64 `json:"den" db:"factor_den"`
}

func (f Factor) Valid() bool { return f.Num > 0 && f.Den > 0 }

// Apply scales a real minor-unit amount into its inflated representation.
// Integer floor; factors are chosen so this is exact in practice (e.g., 2/1).
func (f Factor) Apply(realMinor int64) int64 {
	if !f.Valid() {
		return realMinor
	}
	return realMinor * f.Num / f.Den
}

// Entry is an immutable append-only ledger record.
// AmountMinor is signed: deposits and adjustments are positive,
// charges are negative.
type Entry struct {
	ID          string `json:"id" db:"id"`
	WorkspaceID string `json:"workspace_id" db:"workspace_id"`
	AccountID   string `json:"account_id" db:"account_id"`

	Kind EntryKind `json:"kind" db:"kind"`

	AmountMinor int64  `json:"amount_minor" db:"amount_minor"`
	Currency    string `json:"currency" db:"currency"`

	// Factor records the account factor in effect when the entry was posted.
	Factor Factor `json:"factor" db:"factor"`

	// CampaignID/CallID link usage charges back to the call that caused them.
	CampaignID string `json:"campaign_id,omitempty" db:"campaign_id"`
	CallID     string `json:"call_id,omitempty" db:"call_id"`

	// ExternalRef carries the payment gateway reference for deposits.
	// Unique per account; it is the idempotency key for payment ingestion.
	ExternalRef string `json:"external_ref,omitempty" db:"external_ref"`

	Reason string `json:"reason,omitempty" db:"reason"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EntryKind string

const (
	EntryKindDeposit    EntryKind = "deposit"    // gateway-confirmed top-up
	EntryKindCharge     EntryKind = "charge"     // call usage debit
	EntryKindAdjustment EntryKind = "adjustment" // manual admin correction
)

// Balance is the read model returned to callers. InflatedMinor is always
// derived from RealMinor at read time, never stored.
type Balance struct {
	AccountID     string    `json:"account_id"`
	Currency      string    `json:"currency"`
	RealMinor     int64     `json:"real_minor"`
	InflatedMinor int64     `json:"inflated_minor"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func balanceOf(a Account) Balance {
	return Balance{
		AccountID:     a.ID,
		Currency:      a.Currency,
		RealMinor:     a.RealMinor,
		InflatedMinor: a.Factor.Apply(a.RealMinor),
		UpdatedAt:     a.UpdatedAt,
	}
}

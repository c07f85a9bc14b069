package ledger

import (
	"context"
	"time"
)

// Store is the persistence contract for accounts and their entry logs.
//
// Implementations must serialize mutations per account: two concurrent
// Post calls against the same account must not both pass a funds check
// only one of them can cover. The memory store uses a per-account mutex;
// the Postgres store locks the account row FOR UPDATE.
type Store interface {
	CreateAccount(ctx context.Context, a Account) error
	GetAccount(ctx context.Context, accountID string) (Account, error)

	// Post appends e and applies e.AmountMinor to the account's real balance
	// as one atomic unit. It fails with ErrInsufficientFunds when the
	// resulting balance would be negative and ErrAccountFrozen when the
	// account is frozen. On failure nothing is written.
	Post(ctx context.Context, e Entry) (Account, error)

	// FindEntryByExternalRef looks up a prior entry by its gateway reference.
	// Used for idempotent payment ingestion.
	FindEntryByExternalRef(ctx context.Context, accountID, ref string) (Entry, bool, error)

	// ListEntries returns a page of entries ordered by created_at descending.
	ListEntries(ctx context.Context, accountID string, offset, limit int) ([]Entry, error)

	// SumEntries returns the signed sum of all entry amounts for the account.
	SumEntries(ctx context.Context, accountID string) (int64, error)

	SetAccountStatus(ctx context.Context, accountID string, status AccountStatus, now time.Time) error
}

package ledger

import "errors"

var (
	ErrNotFound          = errors.New("ledger: account not found")
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
	ErrInvalidArgument   = errors.New("ledger: invalid argument")
	ErrAccountFrozen     = errors.New("ledger: account frozen")

	// ErrLedgerInconsistency means the balance projection disagrees with the
	// entry log. It is a correctness bug signal, not a validation failure:
	// the account is frozen and stays frozen until manually reconciled.
	ErrLedgerInconsistency = errors.New("ledger: balance inconsistent with entry log")
)

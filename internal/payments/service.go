package payments

import (
	"context"
	"errors"

	"dialer-platform/internal/ledger"
)

var (
	ErrInvalidEvent     = errors.New("payments: invalid event")
	ErrCurrencyMismatch = errors.New("payments: currency mismatch")
)

// Service ingests gateway payment confirmations and credits the ledger.
// The gateway has already captured the funds; no card handling or capture
// happens here. Duplicate deliveries of the same confirmation are absorbed
// by the ledger's external-reference idempotency.
type Service struct {
	ledger *ledger.Service
}

func NewService(ledgerSvc *ledger.Service) *Service {
	return &Service{ledger: ledgerSvc}
}

// Confirmation is one gateway-confirmed payment.
type Confirmation struct {
	AccountID   string `json:"account_id"`
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency,omitempty"`
	// ExternalRef is the gateway's reference for this payment. Required:
	// it is the idempotency key that makes redelivery safe.
	ExternalRef string `json:"external_ref"`
	Gateway     string `json:"gateway,omitempty"`
}

// Confirm credits the account for a confirmed payment. Calling it again
// with the same ExternalRef returns the original entry without posting a
// second credit.
func (s *Service) Confirm(ctx context.Context, ev Confirmation) (ledger.Entry, ledger.Balance, error) {
	if ev.AccountID == "" || ev.AmountMinor <= 0 || ev.ExternalRef == "" {
		return ledger.Entry{}, ledger.Balance{}, ErrInvalidEvent
	}

	if ev.Currency != "" {
		a, err := s.ledger.Account(ctx, ev.AccountID)
		if err != nil {
			return ledger.Entry{}, ledger.Balance{}, err
		}
		if a.Currency != ev.Currency {
			return ledger.Entry{}, ledger.Balance{}, ErrCurrencyMismatch
		}
	}

	reason := "payment confirmation"
	if ev.Gateway != "" {
		reason = "payment confirmation (" + ev.Gateway + ")"
	}
	return s.ledger.Credit(ctx, ev.AccountID, ledger.CreditRequest{
		AmountMinor: ev.AmountMinor,
		Reason:      reason,
		ExternalRef: ev.ExternalRef,
		Kind:        ledger.EntryKindDeposit,
	})
}

package calls

import (
	"errors"
	"time"

	"dialer-platform/internal/ledger"
)

// Call is an immutable record of one billed dial attempt.
//
// It exists if and only if the matching charge entry exists in the ledger:
// both are created inside the same atomic billing unit, and neither is ever
// mutated afterwards.
type Call struct {
	CallID      string `json:"call_id" db:"call_id"`
	WorkspaceID string `json:"workspace_id" db:"workspace_id"`
	CampaignID  string `json:"campaign_id" db:"campaign_id"`
	LeadID      string `json:"lead_id" db:"lead_id"`

	Outcome Outcome `json:"outcome" db:"outcome"`

	// DurationSeconds is the billed duration.
	DurationSeconds int `json:"duration_seconds" db:"duration_seconds"`

	// RealCostMinor is the internal charge in minor units. Privileged views
	// only; customer-facing views show the inflated figure derived from the
	// factor captured below.
	RealCostMinor int64 `json:"-" db:"real_cost_minor"`

	// Factor is the owner account's inflation factor at billing time.
	Factor ledger.Factor `json:"factor" db:"factor"`

	// LedgerEntryID links back to the charge entry created with this call.
	LedgerEntryID string `json:"ledger_entry_id" db:"ledger_entry_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// InflatedCostMinor is the customer-visible cost.
func (c Call) InflatedCostMinor() int64 {
	return c.Factor.Apply(c.RealCostMinor)
}

// Outcome is the terminal result of a dial attempt. Only terminal outcomes
// exist here: a call record is written once, after the attempt resolved.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeBusy      Outcome = "busy"
	OutcomeNoAnswer  Outcome = "no_answer"
)

func (o Outcome) Valid() bool {
	switch o {
	case OutcomeCompleted, OutcomeFailed, OutcomeBusy, OutcomeNoAnswer:
		return true
	default:
		return false
	}
}

var ErrNotFound = errors.New("calls: not found")

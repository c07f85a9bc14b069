package pricing

import "time"

// Rate models are tenant-scoped (workspace_id required everywhere).
// Amounts are expressed in minor units (e.g., cents) using int64.

// Rate defines the real per-minute charge for dialing a destination.
// Destination matching is by longest phone-number prefix (e.g., "+1",
// "+1212", "+44").
type Rate struct {
	ID          string `json:"id" db:"id"`
	WorkspaceID string `json:"workspace_id" db:"workspace_id"`

	DestinationPrefix string `json:"destination_prefix" db:"destination_prefix"`

	Currency string `json:"currency" db:"currency"`

	// RatePerMinuteMinor is the real price per started minute.
	RatePerMinuteMinor int64 `json:"rate_per_minute_minor" db:"rate_per_minute_minor"`

	// Effective window for the rate.
	EffectiveFrom time.Time  `json:"effective_from" db:"effective_from"`
	EffectiveTo   *time.Time `json:"effective_to,omitempty" db:"effective_to"`

	Status RateStatus `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type RateStatus string

const (
	RateStatusActive   RateStatus = "active"
	RateStatusInactive RateStatus = "inactive"
)

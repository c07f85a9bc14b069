package campaign

import "time"

// Campaign is a tenant-scoped outbound calling campaign.
//
// Status is only ever advanced through Lifecycle transitions.
// Counter invariant: CompletedCalls/SuccessfulCalls increment exactly once
// per terminal call outcome, inside the same atomic unit as the charge.
type Campaign struct {
	ID             string `json:"id" db:"id"`
	WorkspaceID    string `json:"workspace_id" db:"workspace_id"`
	OwnerAccountID string `json:"owner_account_id" db:"owner_account_id"`

	Name string `json:"name" db:"name"`

	Status Status `json:"status" db:"status"`

	StartDate time.Time `json:"start_date" db:"start_date"`
	EndDate   time.Time `json:"end_date" db:"end_date"`

	// Timezone is the IANA zone the call window is evaluated in.
	Timezone string `json:"timezone" db:"timezone"`

	Window CallWindow `json:"call_window" db:"call_window"`

	// MaxAttempts caps dial attempts per lead.
	MaxAttempts int `json:"max_attempts" db:"max_attempts"`

	TotalLeads      int `json:"total_leads" db:"total_leads"`
	CompletedCalls  int `json:"completed_calls" db:"completed_calls"`
	SuccessfulCalls int `json:"successful_calls" db:"successful_calls"`

	// ExternalRouteID is the upstream carrier route used for this campaign.
	// Internal-only: never serialized; privileged handlers expose it explicitly.
	ExternalRouteID string `json:"-" db:"external_route_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Status string

const (
	StatusInactive  Status = "inactive"
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed" // terminal; campaign is archived
)

// CallWindow is the per-weekday time-of-day range during which the campaign
// may place calls. Minutes are measured from midnight in the campaign's
// timezone; the range is half-open [StartMinute, EndMinute).
type CallWindow struct {
	StartMinute int `json:"start_minute"`
	EndMinute   int `json:"end_minute"`

	// Weekdays is indexed by time.Weekday (Sunday = 0).
	Weekdays [7]bool `json:"weekdays"`
}

package leads

import "time"

// Lead is a single contact belonging to a campaign.
//
// Status only advances through Workflow transitions. The core never deletes
// leads; removal is an external administrative action.
type Lead struct {
	ID          string `json:"id" db:"id"`
	WorkspaceID string `json:"workspace_id" db:"workspace_id"`
	CampaignID  string `json:"campaign_id" db:"campaign_id"`

	Name  string `json:"name,omitempty" db:"name"`
	Phone string `json:"phone" db:"phone"`

	Status Status `json:"status" db:"status"`

	CallAttempts int        `json:"call_attempts" db:"call_attempts"`
	LastCallAt   *time.Time `json:"last_call_at,omitempty" db:"last_call_at"`

	// TalkSeconds accumulates call duration across all attempts.
	TalkSeconds int `json:"talk_seconds" db:"talk_seconds"`

	// Attributes is an explicit string-to-string bag for import columns that
	// have no dedicated field (store as JSONB). No dynamic typing.
	Attributes map[string]string `json:"attributes,omitempty" db:"attributes"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Status string

const (
	StatusNew         Status = "new"
	StatusContacted   Status = "contacted"
	StatusQualified   Status = "qualified"
	StatusUnqualified Status = "unqualified" // terminal (reopening is out of scope)
	StatusConverted   Status = "converted"   // terminal
)

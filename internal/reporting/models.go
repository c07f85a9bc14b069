package reporting

import (
	"encoding/json"
	"time"
)

// ReportType selects the aggregation a Generate call runs.
type ReportType string

const (
	ReportCallsSummary ReportType = "calls_summary"
	ReportSpendSummary ReportType = "spend_summary"
	ReportLeadFunnel   ReportType = "lead_funnel"
)

func (t ReportType) Valid() bool {
	switch t {
	case ReportCallsSummary, ReportSpendSummary, ReportLeadFunnel:
		return true
	}
	return false
}

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Filters scope a report. WorkspaceID is required on every type; the rest
// narrow it. The struct has a fixed field order so its JSON form is
// canonical and safe to hash for cache keys.
type Filters struct {
	WorkspaceID string    `json:"workspace_id"`
	Range       TimeRange `json:"range"`
	CampaignID  string    `json:"campaign_id,omitempty"`
	AccountID   string    `json:"account_id,omitempty"`
	Currency    string    `json:"currency,omitempty"`
}

// Report is the cached envelope. Data holds the marshaled summary for the
// requested type; a cache hit returns the stored bytes verbatim.
type Report struct {
	RequesterAccountID string          `json:"requester_account_id"`
	Type               ReportType      `json:"type"`
	Filters            Filters         `json:"filters"`
	GeneratedAt        time.Time       `json:"generated_at"`
	Data               json.RawMessage `json:"data"`
}

type CallsSummary struct {
	WorkspaceID string `json:"workspace_id"`
	CampaignID  string `json:"campaign_id,omitempty"`

	TotalCalls     int `json:"total_calls"`
	CompletedCalls int `json:"completed_calls"`
	FailedCalls    int `json:"failed_calls"`
	BusyCalls      int `json:"busy_calls"`
	NoAnswerCalls  int `json:"no_answer_calls"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`
}

// SpendSummary aggregates immutable ledger entries. Both the real and the
// inflated figures are computed; the API layer decides which side a caller
// may see.
type SpendSummary struct {
	WorkspaceID string `json:"workspace_id"`
	AccountID   string `json:"account_id,omitempty"`
	Currency    string `json:"currency"`

	TotalCreditMinor int64 `json:"total_credit_minor"`
	TotalDebitMinor  int64 `json:"total_debit_minor"`
	NetDeltaMinor    int64 `json:"net_delta_minor"`

	InflatedCreditMinor int64 `json:"inflated_credit_minor"`
	InflatedDebitMinor  int64 `json:"inflated_debit_minor"`

	AdminAdjustMinor int64 `json:"admin_adjust_minor"`
}

type LeadFunnel struct {
	WorkspaceID string `json:"workspace_id"`
	CampaignID  string `json:"campaign_id,omitempty"`

	TotalLeads       int `json:"total_leads"`
	NewLeads         int `json:"new_leads"`
	ContactedLeads   int `json:"contacted_leads"`
	QualifiedLeads   int `json:"qualified_leads"`
	UnqualifiedLeads int `json:"unqualified_leads"`
	ConvertedLeads   int `json:"converted_leads"`

	TotalCallAttempts int `json:"total_call_attempts"`
	TotalTalkSeconds  int `json:"total_talk_seconds"`

	ConversionRate float64 `json:"conversion_rate"`
}

package reporting

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"dialer-platform/internal/calls"
	"dialer-platform/internal/leads"
	"dialer-platform/internal/ledger"
)

// PostgresRepo reads reporting sources straight from the primary tables.
// All three are append-only or counter-only, so plain reads stay consistent
// without locks.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) ListCalls(ctx context.Context, workspaceID string, from, to time.Time, campaignID string) ([]calls.Call, error) {
	const q = `
SELECT call_id, workspace_id, campaign_id, lead_id, outcome, duration_seconds,
       real_cost_minor, factor_num, factor_den, ledger_entry_id, created_at
FROM calls
WHERE workspace_id = $1 AND created_at >= $2 AND created_at < $3
  AND ($4 = '' OR campaign_id = $4)
ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, q, workspaceID, from, to, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []calls.Call
	for rows.Next() {
		var c calls.Call
		if err := rows.Scan(
			&c.CallID, &c.WorkspaceID, &c.CampaignID, &c.LeadID, &c.Outcome, &c.DurationSeconds,
			&c.RealCostMinor, &c.Factor.Num, &c.Factor.Den, &c.LedgerEntryID, &c.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ListLedgerEntries(ctx context.Context, workspaceID string, from, to time.Time, accountID string) ([]ledger.Entry, error) {
	const q = `
SELECT id, workspace_id, account_id, kind, amount_minor, currency,
       factor_num, factor_den, campaign_id, call_id, external_ref, reason, created_at
FROM ledger_entries
WHERE workspace_id = $1 AND created_at >= $2 AND created_at < $3
  AND ($4 = '' OR account_id = $4)
ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, q, workspaceID, from, to, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Entry
	for rows.Next() {
		var e ledger.Entry
		if err := rows.Scan(
			&e.ID, &e.WorkspaceID, &e.AccountID, &e.Kind, &e.AmountMinor, &e.Currency,
			&e.Factor.Num, &e.Factor.Den, &e.CampaignID, &e.CallID, &e.ExternalRef, &e.Reason, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ListLeads(ctx context.Context, workspaceID, campaignID string) ([]leads.Lead, error) {
	const q = `
SELECT id, workspace_id, campaign_id, name, phone, status, call_attempts,
       last_call_at, talk_seconds, attributes, created_at, updated_at
FROM leads
WHERE workspace_id = $1 AND ($2 = '' OR campaign_id = $2)
ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, q, workspaceID, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []leads.Lead
	for rows.Next() {
		var l leads.Lead
		var attrs []byte
		if err := rows.Scan(
			&l.ID, &l.WorkspaceID, &l.CampaignID, &l.Name, &l.Phone, &l.Status, &l.CallAttempts,
			&l.LastCallAt, &l.TalkSeconds, &attrs, &l.CreatedAt, &l.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if len(attrs) > 0 {
			if err := json.Unmarshal(attrs, &l.Attributes); err != nil {
				return nil, err
			}
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

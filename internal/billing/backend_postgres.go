package billing

import (
	"context"
	"database/sql"
	"errors"

	"dialer-platform/internal/campaign"
	"dialer-platform/internal/leads"
	"dialer-platform/internal/ledger"
	"dialer-platform/pkg/utils"
)

// PostgresBackend commits the billing unit in a single database
// transaction. The account, lead and campaign rows are locked FOR UPDATE as
// one composite acquisition; each PlaceCall touches exactly one of each, so
// no lock-ordering cycle can arise.
type PostgresBackend struct {
	db        *sql.DB
	leadStore *leads.PostgresStore
	campStore *campaign.PostgresStore
}

func NewPostgresBackend(db *sql.DB) *PostgresBackend {
	return &PostgresBackend{
		db:        db,
		leadStore: leads.NewPostgresStore(db),
		campStore: campaign.NewPostgresStore(db),
	}
}

func (b *PostgresBackend) ChargeCall(ctx context.Context, p ChargeParams) (PlaceCallResult, error) {
	if err := ctx.Err(); err != nil {
		return PlaceCallResult{}, ErrAborted
	}

	var out PlaceCallResult
	err := utils.WithTx(ctx, b.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		// Lock and re-validate the account.
		const acctQ = `
SELECT id, workspace_id, currency, real_minor, factor_num, factor_den, status
FROM accounts WHERE id = $1 FOR UPDATE
`
		var acct ledger.Account
		if err := tx.QueryRowContext(ctx, acctQ, p.Entry.AccountID).Scan(
			&acct.ID, &acct.WorkspaceID, &acct.Currency, &acct.RealMinor,
			&acct.Factor.Num, &acct.Factor.Den, &acct.Status,
		); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ledger.ErrNotFound
			}
			return err
		}
		if acct.Status == ledger.AccountStatusFrozen {
			return ledger.ErrAccountFrozen
		}
		next := acct.RealMinor + p.Entry.AmountMinor
		if next < 0 {
			return ledger.ErrInsufficientFunds
		}

		// Lock and re-validate the campaign.
		const campQ = `
SELECT status, max_attempts FROM campaigns WHERE id = $1 FOR UPDATE
`
		var campStatus campaign.Status
		var maxAttempts int
		if err := tx.QueryRowContext(ctx, campQ, p.Call.CampaignID).Scan(&campStatus, &maxAttempts); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return campaign.ErrNotFound
			}
			return err
		}
		if campStatus != campaign.StatusActive {
			return ErrCampaignNotActive
		}

		// Lock and re-validate the lead.
		const leadQ = `
SELECT status, call_attempts, talk_seconds FROM leads WHERE id = $1 FOR UPDATE
`
		var lead leads.Lead
		if err := tx.QueryRowContext(ctx, leadQ, p.Call.LeadID).Scan(&lead.Status, &lead.CallAttempts, &lead.TalkSeconds); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return leads.ErrNotFound
			}
			return err
		}
		lead.ID = p.Call.LeadID
		updatedLead, err := leads.ApplyAttempt(lead, maxAttempts, p.Call.DurationSeconds, p.Now)
		if err != nil {
			return err
		}

		// All gates passed; write the unit.
		const entryQ = `
INSERT INTO ledger_entries (
  id, workspace_id, account_id, kind, amount_minor, currency,
  factor_num, factor_den, campaign_id, call_id, external_ref, reason, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`
		if _, err := tx.ExecContext(ctx, entryQ,
			p.Entry.ID, p.Entry.WorkspaceID, p.Entry.AccountID, p.Entry.Kind, p.Entry.AmountMinor, p.Entry.Currency,
			p.Entry.Factor.Num, p.Entry.Factor.Den, p.Entry.CampaignID, p.Entry.CallID, p.Entry.ExternalRef, p.Entry.Reason, p.Entry.CreatedAt,
		); err != nil {
			return err
		}

		const balQ = `UPDATE accounts SET real_minor = $2, updated_at = $3 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, balQ, acct.ID, next, p.Now); err != nil {
			return err
		}

		const callQ = `
INSERT INTO calls (
  call_id, workspace_id, campaign_id, lead_id, outcome, duration_seconds,
  real_cost_minor, factor_num, factor_den, ledger_entry_id, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`
		if _, err := tx.ExecContext(ctx, callQ,
			p.Call.CallID, p.Call.WorkspaceID, p.Call.CampaignID, p.Call.LeadID, p.Call.Outcome, p.Call.DurationSeconds,
			p.Call.RealCostMinor, p.Call.Factor.Num, p.Call.Factor.Den, p.Call.LedgerEntryID, p.Call.CreatedAt,
		); err != nil {
			return err
		}

		const leadUpdQ = `
UPDATE leads SET status = $2, call_attempts = $3, last_call_at = $4, talk_seconds = $5, updated_at = $6
WHERE id = $1
`
		if _, err := tx.ExecContext(ctx, leadUpdQ,
			p.Call.LeadID, updatedLead.Status, updatedLead.CallAttempts, updatedLead.LastCallAt, updatedLead.TalkSeconds, p.Now,
		); err != nil {
			return err
		}

		successDelta := 0
		if p.Successful {
			successDelta = 1
		}
		const campUpdQ = `
UPDATE campaigns
SET completed_calls = completed_calls + 1,
    successful_calls = successful_calls + $2,
    updated_at = $3
WHERE id = $1
`
		if _, err := tx.ExecContext(ctx, campUpdQ, p.Call.CampaignID, successDelta, p.Now); err != nil {
			return err
		}

		out = PlaceCallResult{
			Call: p.Call,
			Balance: ledger.Balance{
				AccountID:     acct.ID,
				Currency:      acct.Currency,
				RealMinor:     next,
				InflatedMinor: acct.Factor.Apply(next),
				UpdatedAt:     p.Now,
			},
		}
		return nil
	})
	if err != nil {
		return PlaceCallResult{}, err
	}

	// Re-read the full lead and campaign outside the lock for the response.
	// Committed state; a slightly newer snapshot is acceptable for readers.
	lead, err := b.leadStore.Get(ctx, p.Call.LeadID)
	if err == nil {
		out.Lead = lead
	}
	camp, err := b.campStore.Get(ctx, p.Call.CampaignID)
	if err == nil {
		out.Campaign = camp
	}
	return out, nil
}

package calls

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresStore implements Store on database/sql (pgx stdlib driver).
// The calls table is INSERT-only.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

const callColumns = `
call_id, workspace_id, campaign_id, lead_id, outcome, duration_seconds,
real_cost_minor, factor_num, factor_den, ledger_entry_id, created_at`

func (s *PostgresStore) Insert(ctx context.Context, c Call) error {
	const q = `
INSERT INTO calls (` + callColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`
	_, err := s.db.ExecContext(ctx, q,
		c.CallID, c.WorkspaceID, c.CampaignID, c.LeadID, c.Outcome, c.DurationSeconds,
		c.RealCostMinor, c.Factor.Num, c.Factor.Den, c.LedgerEntryID, c.CreatedAt,
	)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, callID string) (Call, error) {
	const q = `SELECT ` + callColumns + ` FROM calls WHERE call_id = $1`
	var c Call
	if err := s.db.QueryRowContext(ctx, q, callID).Scan(
		&c.CallID, &c.WorkspaceID, &c.CampaignID, &c.LeadID, &c.Outcome, &c.DurationSeconds,
		&c.RealCostMinor, &c.Factor.Num, &c.Factor.Den, &c.LedgerEntryID, &c.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Call{}, ErrNotFound
		}
		return Call{}, err
	}
	return c, nil
}

func (s *PostgresStore) ListByCampaign(ctx context.Context, workspaceID, campaignID string, from, to time.Time) ([]Call, error) {
	const q = `
SELECT ` + callColumns + `
FROM calls
WHERE workspace_id = $1
  AND ($2 = '' OR campaign_id = $2)
  AND created_at >= $3 AND created_at < $4
ORDER BY created_at DESC
`
	rows, err := s.db.QueryContext(ctx, q, workspaceID, campaignID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Call
	for rows.Next() {
		var c Call
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

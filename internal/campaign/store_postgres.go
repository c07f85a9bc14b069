package campaign

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresStore implements Store on database/sql (pgx stdlib driver).
// Call-window weekday flags are stored as a 7-char bitstring ("0111110").
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

const campaignColumns = `
id, workspace_id, owner_account_id, name, status, start_date, end_date,
timezone, window_start_minute, window_end_minute, window_weekdays,
max_attempts, total_leads, completed_calls, successful_calls,
external_route_id, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, c Campaign) error {
	const q = `
INSERT INTO campaigns (` + campaignColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
`
	_, err := s.db.ExecContext(ctx, q,
		c.ID, c.WorkspaceID, c.OwnerAccountID, c.Name, c.Status, c.StartDate, c.EndDate,
		c.Timezone, c.Window.StartMinute, c.Window.EndMinute, encodeWeekdays(c.Window.Weekdays),
		c.MaxAttempts, c.TotalLeads, c.CompletedCalls, c.SuccessfulCalls,
		c.ExternalRouteID, c.CreatedAt, c.UpdatedAt,
	)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, campaignID string) (Campaign, error) {
	const q = `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`
	return scanCampaign(s.db.QueryRowContext(ctx, q, campaignID))
}

func (s *PostgresStore) ListByWorkspace(ctx context.Context, workspaceID string) ([]Campaign, error) {
	const q = `SELECT ` + campaignColumns + ` FROM campaigns WHERE workspace_id = $1 ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, q, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SetStatus(ctx context.Context, campaignID string, from, to Status, now time.Time) (Campaign, error) {
	// Guarding on the source status makes the update a compare-and-swap: a
	// transition that raced another one matches zero rows.
	const q = `
UPDATE campaigns SET status = $3, updated_at = $4
WHERE id = $1 AND status = $2
RETURNING ` + campaignColumns
	c, err := scanCampaign(s.db.QueryRowContext(ctx, q, campaignID, from, to, now))
	if errors.Is(err, ErrNotFound) {
		if _, getErr := s.Get(ctx, campaignID); getErr == nil {
			return Campaign{}, ErrInvalidTransition
		}
		return Campaign{}, ErrNotFound
	}
	return c, err
}

func (s *PostgresStore) AddCounters(ctx context.Context, campaignID string, completedDelta, successfulDelta int, now time.Time) (Campaign, error) {
	const q = `
UPDATE campaigns
SET completed_calls = completed_calls + $2,
    successful_calls = successful_calls + $3,
    updated_at = $4
WHERE id = $1
RETURNING ` + campaignColumns
	return scanCampaign(s.db.QueryRowContext(ctx, q, campaignID, completedDelta, successfulDelta, now))
}

func (s *PostgresStore) AddLeads(ctx context.Context, campaignID string, delta int, now time.Time) (Campaign, error) {
	const q = `
UPDATE campaigns SET total_leads = total_leads + $2, updated_at = $3
WHERE id = $1
RETURNING ` + campaignColumns
	return scanCampaign(s.db.QueryRowContext(ctx, q, campaignID, delta, now))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(r rowScanner) (Campaign, error) {
	var c Campaign
	var weekdays string
	if err := r.Scan(
		&c.ID, &c.WorkspaceID, &c.OwnerAccountID, &c.Name, &c.Status, &c.StartDate, &c.EndDate,
		&c.Timezone, &c.Window.StartMinute, &c.Window.EndMinute, &weekdays,
		&c.MaxAttempts, &c.TotalLeads, &c.CompletedCalls, &c.SuccessfulCalls,
		&c.ExternalRouteID, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Campaign{}, ErrNotFound
		}
		return Campaign{}, err
	}
	c.Window.Weekdays = decodeWeekdays(weekdays)
	return c, nil
}

func encodeWeekdays(w [7]bool) string {
	b := make([]byte, 7)
	for i, on := range w {
		if on {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
	}
	return string(b)
}

func decodeWeekdays(s string) [7]bool {
	var w [7]bool
	for i := 0; i < len(s) && i < 7; i++ {
		w[i] = s[i] == '1'
	}
	return w
}

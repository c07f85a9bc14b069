package leads

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"dialer-platform/pkg/utils"
)

// PostgresStore implements Store on database/sql (pgx stdlib driver).
// Attributes are stored as JSONB.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

const leadColumns = `
id, workspace_id, campaign_id, name, phone, status, call_attempts,
last_call_at, talk_seconds, attributes, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, l Lead) error {
	attrs, err := encodeAttributes(l.Attributes)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO leads (` + leadColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`
	_, err = s.db.ExecContext(ctx, q,
		l.ID, l.WorkspaceID, l.CampaignID, l.Name, l.Phone, l.Status, l.CallAttempts,
		l.LastCallAt, l.TalkSeconds, attrs, l.CreatedAt, l.UpdatedAt,
	)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, leadID string) (Lead, error) {
	const q = `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	return scanLead(s.db.QueryRowContext(ctx, q, leadID))
}

func (s *PostgresStore) ListByCampaign(ctx context.Context, campaignID string) ([]Lead, error) {
	const q = `SELECT ` + leadColumns + ` FROM leads WHERE campaign_id = $1 ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, q, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SetStatus(ctx context.Context, leadID string, from, to Status, now time.Time) (Lead, error) {
	// Guarding on the source status makes the update a compare-and-swap: a
	// transition that raced another one matches zero rows.
	const q = `
UPDATE leads SET status = $3, updated_at = $4
WHERE id = $1 AND status = $2
RETURNING ` + leadColumns
	l, err := scanLead(s.db.QueryRowContext(ctx, q, leadID, from, to, now))
	if errors.Is(err, ErrNotFound) {
		if _, getErr := s.Get(ctx, leadID); getErr == nil {
			return Lead{}, ErrInvalidTransition
		}
		return Lead{}, ErrNotFound
	}
	return l, err
}

func (s *PostgresStore) RecordAttempt(ctx context.Context, leadID string, maxAttempts, durationSeconds int, now time.Time) (Lead, error) {
	var out Lead
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		// Lock the lead row so the attempt check and increment are one step.
		const lockQ = `SELECT ` + leadColumns + ` FROM leads WHERE id = $1 FOR UPDATE`
		l, err := scanLead(tx.QueryRowContext(ctx, lockQ, leadID))
		if err != nil {
			return err
		}
		updated, err := ApplyAttempt(l, maxAttempts, durationSeconds, now)
		if err != nil {
			return err
		}
		const updQ = `
UPDATE leads SET status = $2, call_attempts = $3, last_call_at = $4, talk_seconds = $5, updated_at = $6
WHERE id = $1
RETURNING ` + leadColumns
		out, err = scanLead(tx.QueryRowContext(ctx, updQ,
			leadID, updated.Status, updated.CallAttempts, updated.LastCallAt, updated.TalkSeconds, updated.UpdatedAt,
		))
		return err
	})
	if err != nil {
		return Lead{}, err
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(r rowScanner) (Lead, error) {
	var l Lead
	var attrs []byte
	if err := r.Scan(
		&l.ID, &l.WorkspaceID, &l.CampaignID, &l.Name, &l.Phone, &l.Status, &l.CallAttempts,
		&l.LastCallAt, &l.TalkSeconds, &attrs, &l.CreatedAt, &l.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Lead{}, ErrNotFound
		}
		return Lead{}, err
	}
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &l.Attributes); err != nil {
			return Lead{}, err
		}
	}
	return l, nil
}

func encodeAttributes(m map[string]string) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}

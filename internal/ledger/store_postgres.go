package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"dialer-platform/pkg/utils"
)

// PostgresStore implements Store on database/sql (pgx stdlib driver).
//
// Assumed tables:
// - accounts (balance projection lives here)
// - ledger_entries (immutable append-only; UNIQUE (account_id, external_ref)
//   where external_ref <> '')
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

func (s *PostgresStore) CreateAccount(ctx context.Context, a Account) error {
	const q = `
INSERT INTO accounts (id, workspace_id, currency, real_minor, factor_num, factor_den, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`
	_, err := s.db.ExecContext(ctx, q,
		a.ID, a.WorkspaceID, a.Currency, a.RealMinor, a.Factor.Num, a.Factor.Den, a.Status, a.CreatedAt, a.UpdatedAt,
	)
	return err
}

func (s *PostgresStore) GetAccount(ctx context.Context, accountID string) (Account, error) {
	const q = `
SELECT id, workspace_id, currency, real_minor, factor_num, factor_den, status, created_at, updated_at
FROM accounts
WHERE id = $1
`
	return scanAccount(s.db.QueryRowContext(ctx, q, accountID))
}

func (s *PostgresStore) Post(ctx context.Context, e Entry) (Account, error) {
	var out Account
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		// Lock the account row to serialize concurrent money operations.
		const lockQ = `
SELECT id, workspace_id, currency, real_minor, factor_num, factor_den, status, created_at, updated_at
FROM accounts
WHERE id = $1
FOR UPDATE
`
		a, err := scanAccount(tx.QueryRowContext(ctx, lockQ, e.AccountID))
		if err != nil {
			return err
		}
		if a.Status == AccountStatusFrozen {
			return ErrAccountFrozen
		}
		next := a.RealMinor + e.AmountMinor
		if next < 0 {
			return ErrInsufficientFunds
		}

		const insQ = `
INSERT INTO ledger_entries (
  id, workspace_id, account_id, kind, amount_minor, currency,
  factor_num, factor_den, campaign_id, call_id, external_ref, reason, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`
		if _, err := tx.ExecContext(ctx, insQ,
			e.ID, e.WorkspaceID, e.AccountID, e.Kind, e.AmountMinor, e.Currency,
			e.Factor.Num, e.Factor.Den, e.CampaignID, e.CallID, e.ExternalRef, e.Reason, e.CreatedAt,
		); err != nil {
			return err
		}

		const updQ = `
UPDATE accounts SET real_minor = $2, updated_at = $3
WHERE id = $1
RETURNING id, workspace_id, currency, real_minor, factor_num, factor_den, status, created_at, updated_at
`
		a, err = scanAccount(tx.QueryRowContext(ctx, updQ, e.AccountID, next, e.CreatedAt))
		if err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return Account{}, err
	}
	return out, nil
}

func (s *PostgresStore) FindEntryByExternalRef(ctx context.Context, accountID, ref string) (Entry, bool, error) {
	const q = `
SELECT id, workspace_id, account_id, kind, amount_minor, currency,
       factor_num, factor_den, campaign_id, call_id, external_ref, reason, created_at
FROM ledger_entries
WHERE account_id = $1 AND external_ref = $2
LIMIT 1
`
	e, err := scanEntry(s.db.QueryRowContext(ctx, q, accountID, ref))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	return e, true, nil
}

func (s *PostgresStore) ListEntries(ctx context.Context, accountID string, offset, limit int) ([]Entry, error) {
	const q = `
SELECT id, workspace_id, account_id, kind, amount_minor, currency,
       factor_num, factor_den, campaign_id, call_id, external_ref, reason, created_at
FROM ledger_entries
WHERE account_id = $1
ORDER BY created_at DESC, id DESC
OFFSET $2 LIMIT $3
`
	rows, err := s.db.QueryContext(ctx, q, accountID, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
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

func (s *PostgresStore) SumEntries(ctx context.Context, accountID string) (int64, error) {
	const q = `SELECT COALESCE(SUM(amount_minor), 0) FROM ledger_entries WHERE account_id = $1`
	var sum int64
	if err := s.db.QueryRowContext(ctx, q, accountID).Scan(&sum); err != nil {
		return 0, err
	}
	return sum, nil
}

func (s *PostgresStore) SetAccountStatus(ctx context.Context, accountID string, status AccountStatus, now time.Time) error {
	const q = `UPDATE accounts SET status = $2, updated_at = $3 WHERE id = $1`
	res, err := s.db.ExecContext(ctx, q, accountID, status, now)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(r rowScanner) (Account, error) {
	var a Account
	if err := r.Scan(
		&a.ID, &a.WorkspaceID, &a.Currency, &a.RealMinor,
		&a.Factor.Num, &a.Factor.Den, &a.Status, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func scanEntry(r rowScanner) (Entry, error) {
	var e Entry
	if err := r.Scan(
		&e.ID, &e.WorkspaceID, &e.AccountID, &e.Kind, &e.AmountMinor, &e.Currency,
		&e.Factor.Num, &e.Factor.Den, &e.CampaignID, &e.CallID, &e.ExternalRef, &e.Reason, &e.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, err
	}
	return e, nil
}

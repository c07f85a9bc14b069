package pricing

import (
	"context"
	"database/sql"
	"time"
)

// PostgresRepo reads rates from the rates table.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) ListEffective(ctx context.Context, workspaceID string, at time.Time) ([]Rate, error) {
	const q = `
SELECT id, workspace_id, destination_prefix, currency, rate_per_minute_minor,
       effective_from, effective_to, status, created_at, updated_at
FROM rates
WHERE workspace_id = $1 AND status = 'active'
  AND effective_from <= $2
  AND (effective_to IS NULL OR effective_to > $2)
ORDER BY length(destination_prefix) DESC, effective_from DESC`
	rows, err := r.db.QueryContext(ctx, q, workspaceID, at)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Rate
	for rows.Next() {
		var p Rate
		if err := rows.Scan(
			&p.ID, &p.WorkspaceID, &p.DestinationPrefix, &p.Currency, &p.RatePerMinuteMinor,
			&p.EffectiveFrom, &p.EffectiveTo, &p.Status, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo appends events to the audit_events table. INSERT-only; the
// table should carry a trigger rejecting UPDATE and DELETE.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (
  id, workspace_id, type, actor_user_id, actor_role, ip_address,
  account_id, campaign_id, entry_id, message, metadata, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID, e.WorkspaceID, e.Type, e.ActorUserID, e.ActorRole, e.IPAddress,
		e.AccountID, e.CampaignID, e.EntryID, e.Message, e.Metadata, e.CreatedAt,
	)
	return err
}

package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
//
// IMPORTANT:
// - Audit is internal-only. Do not expose these records to tenant users by default.
// - Callers should treat audit logging as best-effort.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.WorkspaceID == "" {
		return ErrInvalidEvent
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogAdminCredit records a manual balance adjustment. The mandatory reason
// travels in Message; the posted ledger entry id in EntryID.
func (s *Service) LogAdminCredit(ctx context.Context, workspaceID, actorUserID, actorRole, ip, accountID, entryID, reason, metadata string) error {
	return s.Append(ctx, Event{
		WorkspaceID: workspaceID,
		Type:        EventTypeAdminCredit,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		AccountID:   accountID,
		EntryID:     entryID,
		Message:     reason,
		Metadata:    metadata,
	})
}

// LogAccountFreeze records an account being frozen, whether by an operator
// or by the consistency check.
func (s *Service) LogAccountFreeze(ctx context.Context, workspaceID, actorUserID, actorRole, ip, accountID, reason string) error {
	return s.Append(ctx, Event{
		WorkspaceID: workspaceID,
		Type:        EventTypeAccountFreeze,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		AccountID:   accountID,
		Message:     reason,
	})
}

// LogLifecycleOverride records an operator forcing a campaign transition.
func (s *Service) LogLifecycleOverride(ctx context.Context, workspaceID, actorUserID, actorRole, ip, campaignID, message, metadata string) error {
	return s.Append(ctx, Event{
		WorkspaceID: workspaceID,
		Type:        EventTypeLifecycleOverride,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		CampaignID:  campaignID,
		Message:     message,
		Metadata:    metadata,
	})
}

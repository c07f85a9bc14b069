package campaign

import (
	"context"
	"errors"
	"time"

	"dialer-platform/internal/ledger"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("campaign: not found")
	ErrInvalidArgument   = errors.New("campaign: invalid argument")
	ErrInvalidTransition = errors.New("campaign: invalid status transition")
)

// transitions is the only legal status table. Everything else fails
// ErrInvalidTransition.
var transitions = map[Status][]Status{
	StatusInactive:  {StatusActive, StatusCompleted},
	StatusActive:    {StatusPaused, StatusCompleted},
	StatusPaused:    {StatusActive, StatusCompleted},
	StatusCompleted: {},
}

func canTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// BalanceChecker is the minimal ledger surface the lifecycle needs.
// Satisfied by *ledger.Service.
type BalanceChecker interface {
	GetBalance(ctx context.Context, accountID string) (ledger.Balance, error)
}

// Lifecycle owns campaign status transitions.
//
// It holds no scheduling loop: end-of-campaign completion is driven by the
// caller via the IsPastEndDate predicate, not by internal polling.
type Lifecycle struct {
	store              Store
	balance            BalanceChecker
	defaultMaxAttempts int // applied when CreateRequest leaves MaxAttempts zero
	clock              func() time.Time
}

func NewLifecycle(store Store, balance BalanceChecker) *Lifecycle {
	return &Lifecycle{store: store, balance: balance, clock: time.Now}
}

// WithDefaultMaxAttempts sets the attempt cap used when a create request
// does not carry one.
func (l *Lifecycle) WithDefaultMaxAttempts(n int) *Lifecycle {
	l.defaultMaxAttempts = n
	return l
}

type CreateRequest struct {
	WorkspaceID     string     `json:"workspace_id"`
	OwnerAccountID  string     `json:"owner_account_id"`
	Name            string     `json:"name"`
	StartDate       time.Time  `json:"start_date"`
	EndDate         time.Time  `json:"end_date"`
	Timezone        string     `json:"timezone"`
	Window          CallWindow `json:"call_window"`
	MaxAttempts     int        `json:"max_attempts"`
	ExternalRouteID string     `json:"external_route_id,omitempty"`
}

func (l *Lifecycle) Create(ctx context.Context, req CreateRequest) (Campaign, error) {
	if req.WorkspaceID == "" || req.OwnerAccountID == "" || req.Name == "" {
		return Campaign{}, ErrInvalidArgument
	}
	if req.MaxAttempts == 0 && l.defaultMaxAttempts > 0 {
		req.MaxAttempts = l.defaultMaxAttempts
	}
	if req.MaxAttempts <= 0 {
		return Campaign{}, ErrInvalidArgument
	}
	if req.Window.StartMinute < 0 || req.Window.EndMinute > 24*60 || req.Window.StartMinute >= req.Window.EndMinute {
		return Campaign{}, ErrInvalidArgument
	}
	if req.Timezone != "" {
		if _, err := time.LoadLocation(req.Timezone); err != nil {
			return Campaign{}, ErrInvalidArgument
		}
	}
	now := l.clock().UTC()
	c := Campaign{
		ID:              uuid.NewString(),
		WorkspaceID:     req.WorkspaceID,
		OwnerAccountID:  req.OwnerAccountID,
		Name:            req.Name,
		Status:          StatusInactive,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		Timezone:        req.Timezone,
		Window:          req.Window,
		MaxAttempts:     req.MaxAttempts,
		ExternalRouteID: req.ExternalRouteID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := l.store.Create(ctx, c); err != nil {
		return Campaign{}, err
	}
	return c, nil
}

func (l *Lifecycle) Get(ctx context.Context, campaignID string) (Campaign, error) {
	if campaignID == "" {
		return Campaign{}, ErrInvalidArgument
	}
	return l.store.Get(ctx, campaignID)
}

// Activate moves the campaign to active. Requires inactive or paused, and a
// strictly positive real balance on the owner account.
func (l *Lifecycle) Activate(ctx context.Context, campaignID string) (Campaign, error) {
	c, err := l.Get(ctx, campaignID)
	if err != nil {
		return Campaign{}, err
	}
	if !canTransition(c.Status, StatusActive) {
		return Campaign{}, ErrInvalidTransition
	}
	bal, err := l.balance.GetBalance(ctx, c.OwnerAccountID)
	if err != nil {
		return Campaign{}, err
	}
	if bal.RealMinor <= 0 {
		return Campaign{}, ledger.ErrInsufficientFunds
	}
	return l.store.SetStatus(ctx, campaignID, c.Status, StatusActive, l.clock().UTC())
}

// Pause moves an active campaign to paused.
func (l *Lifecycle) Pause(ctx context.Context, campaignID string) (Campaign, error) {
	c, err := l.Get(ctx, campaignID)
	if err != nil {
		return Campaign{}, err
	}
	if !canTransition(c.Status, StatusPaused) {
		return Campaign{}, ErrInvalidTransition
	}
	return l.store.SetStatus(ctx, campaignID, c.Status, StatusPaused, l.clock().UTC())
}

// Complete moves any non-terminal campaign to completed. Callers trigger it
// on operator action or when IsPastEndDate reports the end date has passed.
func (l *Lifecycle) Complete(ctx context.Context, campaignID string) (Campaign, error) {
	c, err := l.Get(ctx, campaignID)
	if err != nil {
		return Campaign{}, err
	}
	if !canTransition(c.Status, StatusCompleted) {
		return Campaign{}, ErrInvalidTransition
	}
	return l.store.SetStatus(ctx, campaignID, c.Status, StatusCompleted, l.clock().UTC())
}

// IsWithinCallWindow reports whether now falls inside the campaign's call
// window: the weekday is enabled and the time-of-day is inside
// [StartMinute, EndMinute), both evaluated in the campaign's timezone.
// Pure; safe to call from gate checks and tests with any clock.
func IsWithinCallWindow(c Campaign, now time.Time) (bool, error) {
	loc := time.UTC
	if c.Timezone != "" {
		l, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return false, ErrInvalidArgument
		}
		loc = l
	}
	local := now.In(loc)
	if !c.Window.Weekdays[int(local.Weekday())] {
		return false, nil
	}
	minute := local.Hour()*60 + local.Minute()
	return minute >= c.Window.StartMinute && minute < c.Window.EndMinute, nil
}

// IsPastEndDate reports whether the campaign's end date has passed. Pure.
func IsPastEndDate(c Campaign, now time.Time) bool {
	if c.EndDate.IsZero() {
		return false
	}
	return now.After(c.EndDate)
}

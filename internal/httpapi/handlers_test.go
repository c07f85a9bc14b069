package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dialer-platform/internal/auth"
	"dialer-platform/internal/billing"
	"dialer-platform/internal/calls"
	"dialer-platform/internal/campaign"
	"dialer-platform/internal/leads"
	"dialer-platform/internal/ledger"
	"dialer-platform/internal/rbac"

	"github.com/gin-gonic/gin"
)

type placeCallFixture struct {
	ledgerSvc *ledger.Service
	callStore *calls.MemoryStore
	leadStore *leads.MemoryStore
	handlers  Handlers
}

func newPlaceCallFixture(t *testing.T) placeCallFixture {
	t.Helper()

	ledgerStore := ledger.NewMemoryStore()
	ledgerSvc := ledger.NewService(ledgerStore)
	if _, err := ledgerSvc.CreateAccount(context.Background(), "ws-victim", "owner", "USD", ledger.Factor{Num: 2, Den: 1}); err != nil {
		t.Fatalf("create account: %v", err)
	}
	if _, _, err := ledgerSvc.Credit(context.Background(), "owner", ledger.CreditRequest{AmountMinor: 1000, Reason: "topup"}); err != nil {
		t.Fatalf("credit: %v", err)
	}

	now := time.Unix(1700000000, 0).UTC()
	campStore := campaign.NewMemoryStore()
	if err := campStore.Create(context.Background(), campaign.Campaign{
		ID:             "camp",
		WorkspaceID:    "ws-victim",
		OwnerAccountID: "owner",
		Name:           "outreach",
		Status:         campaign.StatusActive,
		MaxAttempts:    3,
		Window: campaign.CallWindow{
			StartMinute: 0,
			EndMinute:   24 * 60,
			Weekdays:    [7]bool{true, true, true, true, true, true, true},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatalf("create campaign: %v", err)
	}

	leadStore := leads.NewMemoryStore()
	if err := leadStore.Create(context.Background(), leads.Lead{
		ID:          "lead",
		WorkspaceID: "ws-victim",
		CampaignID:  "camp",
		Phone:       "+15550100",
		Status:      leads.StatusNew,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		t.Fatalf("create lead: %v", err)
	}

	callStore := calls.NewMemoryStore()
	backend := billing.NewMemoryBackend(ledgerStore, campStore, leadStore, callStore)
	billingSvc := billing.NewService(ledgerSvc, campStore, leadStore, backend)

	return placeCallFixture{
		ledgerSvc: ledgerSvc,
		callStore: callStore,
		leadStore: leadStore,
		handlers: Handlers{
			Ledger:    ledgerSvc,
			CampStore: campStore,
			LeadStore: leadStore,
			Calls:     callStore,
			Billing:   billingSvc,
		},
	}
}

func placeCallVia(t *testing.T, h Handlers, workspaceID string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.POST("/calls", func(c *gin.Context) {
		ctx := auth.WithIdentity(c.Request.Context(), "caller", workspaceID, rbac.RoleOwner)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}, h.PlaceCall)

	body, err := json.Marshal(placeCallRequest{
		CampaignID:         "camp",
		LeadID:             "lead",
		Outcome:            string(calls.OutcomeCompleted),
		DurationSeconds:    60,
		RatePerMinuteMinor: 25,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/calls", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestPlaceCall_CrossWorkspaceChargesNothing(t *testing.T) {
	f := newPlaceCallFixture(t)

	w := placeCallVia(t, f.handlers, "ws-intruder")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d (%s)", w.Code, w.Body.String())
	}

	bal, err := f.ledgerSvc.GetBalance(context.Background(), "owner")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.RealMinor != 1000 {
		t.Fatalf("victim account was charged: real=%d", bal.RealMinor)
	}
	if f.callStore.Count() != 0 {
		t.Fatalf("call record written for a foreign workspace request")
	}
	l, _ := f.leadStore.Get(context.Background(), "lead")
	if l.CallAttempts != 0 {
		t.Fatalf("lead attempts moved: %d", l.CallAttempts)
	}
}

func TestPlaceCall_OwnWorkspaceCharges(t *testing.T) {
	f := newPlaceCallFixture(t)

	w := placeCallVia(t, f.handlers, "ws-victim")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", w.Code, w.Body.String())
	}

	bal, err := f.ledgerSvc.GetBalance(context.Background(), "owner")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	// 60s at 25/min bills one started minute.
	if bal.RealMinor != 975 {
		t.Fatalf("expected real balance 975 after the charge, got %d", bal.RealMinor)
	}
	if f.callStore.Count() != 1 {
		t.Fatalf("expected one call record, got %d", f.callStore.Count())
	}
}

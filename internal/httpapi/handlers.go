package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"dialer-platform/internal/audit"
	"dialer-platform/internal/auth"
	"dialer-platform/internal/billing"
	"dialer-platform/internal/calls"
	"dialer-platform/internal/campaign"
	"dialer-platform/internal/leads"
	"dialer-platform/internal/ledger"
	"dialer-platform/internal/payments"
	"dialer-platform/internal/pricing"
	"dialer-platform/internal/rbac"
	"dialer-platform/internal/reporting"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth      *auth.Manager
	Ledger    *ledger.Service
	Campaigns *campaign.Lifecycle
	CampStore campaign.Store
	Leads     *leads.Workflow
	LeadStore leads.Store
	Calls     calls.Store
	Billing   *billing.Service
	Payments  *payments.Service
	Reports   *reporting.Service
	Rates     *pricing.Service
	Audit     *audit.Service
}

// privilegedRole reports whether the caller may see real amounts and hidden
// route identifiers. Ordinary owners and agents see the inflated side only.
func privilegedRole(role string) bool {
	switch role {
	case rbac.RoleSuperAdmin, rbac.RoleFinance, rbac.RoleResellerOperator:
		return true
	}
	return false
}

func identity(c *gin.Context) (userID, workspaceID, role string, ok bool) {
	userID, _ = auth.UserID(c.Request.Context())
	workspaceID, err := auth.WorkspaceID(c.Request.Context())
	if err != nil || workspaceID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "workspace_id required"})
		return "", "", "", false
	}
	role, _ = auth.Role(c.Request.Context())
	return userID, workspaceID, role, true
}

// --- Auth ---

type loginRequest struct {
	UserID      string `json:"user_id"`
	WorkspaceID string `json:"workspace_id"`
	Role        string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.WorkspaceID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, workspace_id, role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.WorkspaceID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Accounts / ledger ---

type createAccountRequest struct {
	AccountID string `json:"account_id"`
	Currency  string `json:"currency"`
	FactorNum int64  `json:"factor_num"`
	FactorDen int64  `json:"factor_den"`
}

// CreateAccount registers a billing account. The inflation factor is fixed
// here for the life of the account. Admin-only.
func (h Handlers) CreateAccount(c *gin.Context) {
	_, workspaceID, _, ok := identity(c)
	if !ok {
		return
	}
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	a, err := h.Ledger.CreateAccount(c.Request.Context(), workspaceID, req.AccountID, req.Currency, ledger.Factor{Num: req.FactorNum, Den: req.FactorDen})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

type balanceView struct {
	AccountID    string `json:"account_id"`
	Currency     string `json:"currency"`
	BalanceMinor int64  `json:"balance_minor"`
	// RealMinor is only populated for privileged roles.
	RealMinor *int64 `json:"real_balance_minor,omitempty"`
}

func viewBalance(b ledger.Balance, privileged bool) balanceView {
	v := balanceView{AccountID: b.AccountID, Currency: b.Currency, BalanceMinor: b.InflatedMinor}
	if privileged {
		real := b.RealMinor
		v.RealMinor = &real
	}
	return v
}

func (h Handlers) GetBalance(c *gin.Context) {
	_, workspaceID, role, ok := identity(c)
	if !ok {
		return
	}
	accountID := c.Param("account_id")
	a, err := h.Ledger.Account(c.Request.Context(), accountID)
	if err != nil {
		writeError(c, err)
		return
	}
	if a.WorkspaceID != workspaceID && !privilegedRole(role) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}
	bal, err := h.Ledger.GetBalance(c.Request.Context(), accountID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewBalance(bal, privilegedRole(role)))
}

type entryView struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	AmountMinor int64     `json:"amount_minor"`
	Currency    string    `json:"currency"`
	CampaignID  string    `json:"campaign_id,omitempty"`
	CallID      string    `json:"call_id,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	// RealAmountMinor is only populated for privileged roles.
	RealAmountMinor *int64 `json:"real_amount_minor,omitempty"`
}

func viewEntry(e ledger.Entry, privileged bool) entryView {
	v := entryView{
		ID:          e.ID,
		Kind:        string(e.Kind),
		AmountMinor: e.Factor.Apply(e.AmountMinor),
		Currency:    e.Currency,
		CampaignID:  e.CampaignID,
		CallID:      e.CallID,
		Reason:      e.Reason,
		CreatedAt:   e.CreatedAt,
	}
	if privileged {
		real := e.AmountMinor
		v.RealAmountMinor = &real
	}
	return v
}

// ListTransactions streams a page of the account's entries, newest first.
func (h Handlers) ListTransactions(c *gin.Context) {
	_, workspaceID, role, ok := identity(c)
	if !ok {
		return
	}
	accountID := c.Param("account_id")
	a, err := h.Ledger.Account(c.Request.Context(), accountID)
	if err != nil {
		writeError(c, err)
		return
	}
	if a.WorkspaceID != workspaceID && !privilegedRole(role) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	priv := privilegedRole(role)
	out := make([]entryView, 0, limit)
	cur := h.Ledger.ListTransactions(accountID)
	for len(out) < limit && cur.Next(c.Request.Context()) {
		out = append(out, viewEntry(cur.Entry(), priv))
	}
	if err := cur.Err(); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}

type adminCreditRequest struct {
	AccountID   string `json:"account_id"`
	AmountMinor int64  `json:"amount_minor"`
	Reason      string `json:"reason"`
	ExternalRef string `json:"external_ref,omitempty"`
	Metadata    string `json:"metadata,omitempty"`
}

// AdminCredit posts a manual adjustment. The reason is mandatory and the
// action lands in the audit trail.
func (h Handlers) AdminCredit(c *gin.Context) {
	userID, workspaceID, role, ok := identity(c)
	if !ok {
		return
	}
	var req adminCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Reason == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "reason required"})
		return
	}
	entry, bal, err := h.Ledger.Credit(c.Request.Context(), req.AccountID, ledger.CreditRequest{
		AmountMinor: req.AmountMinor,
		Reason:      req.Reason,
		ExternalRef: req.ExternalRef,
		Kind:        ledger.EntryKindAdjustment,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	if h.Audit != nil {
		_ = h.Audit.LogAdminCredit(c.Request.Context(), workspaceID, userID, role, c.ClientIP(), req.AccountID, entry.ID, req.Reason, req.Metadata)
	}
	c.JSON(http.StatusOK, gin.H{"entry": viewEntry(entry, true), "balance": viewBalance(bal, true)})
}

type accountStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// AdminSetAccountStatus freezes, unfreezes or archives an account.
func (h Handlers) AdminSetAccountStatus(c *gin.Context) {
	userID, workspaceID, role, ok := identity(c)
	if !ok {
		return
	}
	accountID := c.Param("account_id")
	var req accountStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	status := ledger.AccountStatus(req.Status)
	if err := h.Ledger.SetStatus(c.Request.Context(), accountID, status); err != nil {
		writeError(c, err)
		return
	}
	if h.Audit != nil && status == ledger.AccountStatusFrozen {
		_ = h.Audit.LogAccountFreeze(c.Request.Context(), workspaceID, userID, role, c.ClientIP(), accountID, req.Reason)
	}
	c.JSON(http.StatusOK, gin.H{"account_id": accountID, "status": req.Status})
}

// --- Payments ---

// PaymentWebhook ingests a gateway payment confirmation. Redelivery of the
// same external reference is absorbed without double-crediting.
//
// NOTE: gateway signature validation belongs in front of this handler.
func (h Handlers) PaymentWebhook(c *gin.Context) {
	var ev payments.Confirmation
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	entry, bal, err := h.Payments.Confirm(c.Request.Context(), ev)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry_id": entry.ID, "balance_minor": bal.InflatedMinor})
}

// --- Campaigns ---

type campaignView struct {
	campaign.Campaign
	// ExternalRouteID is only populated for privileged roles.
	ExternalRouteID string `json:"external_route_id,omitempty"`
}

func viewCampaign(cm campaign.Campaign, privileged bool) campaignView {
	v := campaignView{Campaign: cm}
	if privileged {
		v.ExternalRouteID = cm.ExternalRouteID
	}
	return v
}

func (h Handlers) CreateCampaign(c *gin.Context) {
	_, workspaceID, role, ok := identity(c)
	if !ok {
		return
	}
	var req campaign.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	req.WorkspaceID = workspaceID
	cm, err := h.Campaigns.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, viewCampaign(cm, privilegedRole(role)))
}

func (h Handlers) GetCampaign(c *gin.Context) {
	_, workspaceID, role, ok := identity(c)
	if !ok {
		return
	}
	cm, err := h.Campaigns.Get(c.Request.Context(), c.Param("campaign_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if cm.WorkspaceID != workspaceID && !privilegedRole(role) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
		return
	}
	c.JSON(http.StatusOK, viewCampaign(cm, privilegedRole(role)))
}

func (h Handlers) ListCampaigns(c *gin.Context) {
	_, workspaceID, role, ok := identity(c)
	if !ok {
		return
	}
	items, err := h.CampStore.ListByWorkspace(c.Request.Context(), workspaceID)
	if err != nil {
		writeError(c, err)
		return
	}
	priv := privilegedRole(role)
	out := make([]campaignView, 0, len(items))
	for _, cm := range items {
		out = append(out, viewCampaign(cm, priv))
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}

func (h Handlers) campaignTransition(c *gin.Context, fn func(ctx *gin.Context, campaignID string) (campaign.Campaign, error)) {
	_, workspaceID, role, ok := identity(c)
	if !ok {
		return
	}
	campaignID := c.Param("campaign_id")
	cm, err := h.Campaigns.Get(c.Request.Context(), campaignID)
	if err != nil {
		writeError(c, err)
		return
	}
	if cm.WorkspaceID != workspaceID && !privilegedRole(role) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
		return
	}
	updated, err := fn(c, campaignID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewCampaign(updated, privilegedRole(role)))
}

func (h Handlers) ActivateCampaign(c *gin.Context) {
	h.campaignTransition(c, func(ctx *gin.Context, id string) (campaign.Campaign, error) {
		return h.Campaigns.Activate(ctx.Request.Context(), id)
	})
}

func (h Handlers) PauseCampaign(c *gin.Context) {
	h.campaignTransition(c, func(ctx *gin.Context, id string) (campaign.Campaign, error) {
		return h.Campaigns.Pause(ctx.Request.Context(), id)
	})
}

func (h Handlers) CompleteCampaign(c *gin.Context) {
	h.campaignTransition(c, func(ctx *gin.Context, id string) (campaign.Campaign, error) {
		return h.Campaigns.Complete(ctx.Request.Context(), id)
	})
}

// --- Leads ---

func (h Handlers) CreateLead(c *gin.Context) {
	_, workspaceID, _, ok := identity(c)
	if !ok {
		return
	}
	var req leads.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	req.WorkspaceID = workspaceID
	l, err := h.Leads.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, l)
}

func (h Handlers) GetLead(c *gin.Context) {
	_, workspaceID, role, ok := identity(c)
	if !ok {
		return
	}
	l, err := h.Leads.Get(c.Request.Context(), c.Param("lead_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if l.WorkspaceID != workspaceID && !privilegedRole(role) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "lead not found"})
		return
	}
	c.JSON(http.StatusOK, l)
}

type leadTransitionRequest struct {
	Status string `json:"status"`
}

func (h Handlers) TransitionLead(c *gin.Context) {
	_, workspaceID, role, ok := identity(c)
	if !ok {
		return
	}
	leadID := c.Param("lead_id")
	var req leadTransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	l, err := h.Leads.Get(c.Request.Context(), leadID)
	if err != nil {
		writeError(c, err)
		return
	}
	if l.WorkspaceID != workspaceID && !privilegedRole(role) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "lead not found"})
		return
	}
	updated, err := h.Leads.Transition(c.Request.Context(), leadID, leads.Status(req.Status))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h Handlers) ListLeads(c *gin.Context) {
	_, workspaceID, role, ok := identity(c)
	if !ok {
		return
	}
	campaignID := c.Param("campaign_id")
	cm, err := h.Campaigns.Get(c.Request.Context(), campaignID)
	if err != nil {
		writeError(c, err)
		return
	}
	if cm.WorkspaceID != workspaceID && !privilegedRole(role) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
		return
	}
	items, err := h.LeadStore.ListByCampaign(c.Request.Context(), campaignID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// --- Calls ---

type placeCallRequest struct {
	CampaignID         string `json:"campaign_id"`
	LeadID             string `json:"lead_id"`
	Outcome            string `json:"outcome"`
	DurationSeconds    int    `json:"duration_seconds"`
	RatePerMinuteMinor int64  `json:"rate_per_minute_minor,omitempty"`
}

type callView struct {
	calls.Call
	CostMinor int64 `json:"cost_minor"`
	// RealCostMinor is only populated for privileged roles.
	RealCostMinor *int64 `json:"real_cost_minor,omitempty"`
}

func viewCall(cl calls.Call, privileged bool) callView {
	v := callView{Call: cl, CostMinor: cl.InflatedCostMinor()}
	if privileged {
		real := cl.RealCostMinor
		v.RealCostMinor = &real
	}
	return v
}

// PlaceCall runs one billed dial attempt. When the caller does not supply a
// rate, it is resolved from the workspace rate card by the lead's phone.
func (h Handlers) PlaceCall(c *gin.Context) {
	_, workspaceID, role, ok := identity(c)
	if !ok {
		return
	}
	var req placeCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	// Ownership check runs before any money moves: a campaign in another
	// workspace must look like it does not exist, not get charged.
	camp, err := h.CampStore.Get(c.Request.Context(), req.CampaignID)
	if err != nil {
		writeError(c, err)
		return
	}
	if camp.WorkspaceID != workspaceID && !privilegedRole(role) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
		return
	}

	rate := req.RatePerMinuteMinor
	if rate == 0 && h.Rates != nil {
		l, err := h.Leads.Get(c.Request.Context(), req.LeadID)
		if err != nil {
			writeError(c, err)
			return
		}
		r, err := h.Rates.Resolve(c.Request.Context(), workspaceID, l.Phone, time.Time{})
		if err != nil {
			writeError(c, err)
			return
		}
		rate = r.RatePerMinuteMinor
	}

	res, err := h.Billing.PlaceCall(c.Request.Context(), billing.PlaceCallRequest{
		CampaignID:               req.CampaignID,
		LeadID:                   req.LeadID,
		Outcome:                  calls.Outcome(req.Outcome),
		EstimatedDurationSeconds: req.DurationSeconds,
		RatePerMinuteMinor:       rate,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	priv := privilegedRole(role)
	c.JSON(http.StatusCreated, gin.H{
		"call":     viewCall(res.Call, priv),
		"lead":     res.Lead,
		"campaign": viewCampaign(res.Campaign, priv),
		"balance":  viewBalance(res.Balance, priv),
	})
}

func (h Handlers) GetCall(c *gin.Context) {
	_, workspaceID, role, ok := identity(c)
	if !ok {
		return
	}
	cl, err := h.Calls.Get(c.Request.Context(), c.Param("call_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if cl.WorkspaceID != workspaceID && !privilegedRole(role) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "call not found"})
		return
	}
	c.JSON(http.StatusOK, viewCall(cl, privilegedRole(role)))
}

func (h Handlers) ListCalls(c *gin.Context) {
	_, workspaceID, role, ok := identity(c)
	if !ok {
		return
	}
	from, to := parseTimeRange(c)
	items, err := h.Calls.ListByCampaign(c.Request.Context(), workspaceID, c.Param("campaign_id"), from, to)
	if err != nil {
		writeError(c, err)
		return
	}
	priv := privilegedRole(role)
	out := make([]callView, 0, len(items))
	for _, cl := range items {
		out = append(out, viewCall(cl, priv))
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}

// --- Reports ---

type generateReportRequest struct {
	Type    string            `json:"type"`
	Filters reporting.Filters `json:"filters"`
}

func (h Handlers) GenerateReport(c *gin.Context) {
	userID, workspaceID, _, ok := identity(c)
	if !ok {
		return
	}
	var req generateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	// Reports never cross workspaces regardless of the submitted filters.
	req.Filters.WorkspaceID = workspaceID
	report, err := h.Reports.Generate(c.Request.Context(), userID, reporting.ReportType(req.Type), req.Filters)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func parseTimeRange(c *gin.Context) (time.Time, time.Time) {
	parse := func(key string, def time.Time) time.Time {
		v := c.Query(key)
		if v == "" {
			return def
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return def
		}
		return t
	}
	now := time.Now().UTC()
	from := parse("from", now.AddDate(0, -1, 0))
	to := parse("to", now.Add(time.Minute))
	return from, to
}

// Convenience middleware bundles.

func RequireWorkspaceAndAnyRole(roles ...string) []gin.HandlerFunc {
	return []gin.HandlerFunc{rbac.RequireWorkspace(), rbac.RequireAnyRole(roles...)}
}

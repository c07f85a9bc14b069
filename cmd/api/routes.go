package main

import (
	"dialer-platform/internal/httpapi"
	"dialer-platform/internal/ledger"
	"dialer-platform/internal/rbac"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Gateway webhooks (public).
	// NOTE: This endpoint should be protected by gateway signature validation in production.
	r.POST("/webhooks/payments", h.PaymentWebhook)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(authMW)
	{
		// AUTH routes (token issuance).
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/login", h.Login)
		}

		// ACCOUNT routes
		accounts := v1.Group("/accounts")
		accounts.Use(rbac.RequireWorkspace())
		{
			accounts.GET("/:account_id/balance",
				rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleFinance, rbac.RoleSuperAdmin),
				h.GetBalance)
			accounts.GET("/:account_id/transactions",
				rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleFinance, rbac.RoleAnalyst, rbac.RoleSuperAdmin),
				h.ListTransactions)
		}

		// CAMPAIGN routes
		campaigns := v1.Group("/campaigns")
		campaigns.Use(rbac.RequireWorkspace())
		campaigns.Use(rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleAnalyst, rbac.RoleSuperAdmin))
		{
			campaigns.POST("", h.CreateCampaign)
			campaigns.GET("", h.ListCampaigns)
			campaigns.GET("/:campaign_id", h.GetCampaign)
			campaigns.POST("/:campaign_id/activate", h.ActivateCampaign)
			campaigns.POST("/:campaign_id/pause", h.PauseCampaign)
			campaigns.POST("/:campaign_id/complete", h.CompleteCampaign)
			campaigns.GET("/:campaign_id/leads", h.ListLeads)
			campaigns.GET("/:campaign_id/calls", h.ListCalls)
		}

		// LEAD routes
		leadsGroup := v1.Group("/leads")
		leadsGroup.Use(rbac.RequireWorkspace())
		leadsGroup.Use(rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleAgent, rbac.RoleSuperAdmin))
		{
			leadsGroup.POST("", h.CreateLead)
			leadsGroup.GET("/:lead_id", h.GetLead)
			leadsGroup.POST("/:lead_id/transition", h.TransitionLead)
		}

		// CALL routes
		callsGroup := v1.Group("/calls")
		callsGroup.Use(rbac.RequireWorkspace())
		callsGroup.Use(rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleAgent, rbac.RoleSuperAdmin))
		{
			// Balance precheck rejects obviously unfunded dials before the
			// billing path runs; the debit remains the authoritative check.
			callsGroup.POST("", ledger.RequireSufficientBalance(h.Ledger), h.PlaceCall)
			callsGroup.GET("/:call_id", h.GetCall)
		}

		// REPORT routes
		reports := v1.Group("/reports")
		reports.Use(rbac.RequireWorkspace())
		reports.Use(rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleAnalyst, rbac.RoleFinance, rbac.RoleSuperAdmin))
		{
			reports.POST("/generate", h.GenerateReport)
		}

		// ADMIN routes
		// Only owner/super_admin can access admin endpoints by default.
		// Hidden reseller_operator is intentionally NOT included unless explicitly desired.
		admin := v1.Group("/admin")
		admin.Use(rbac.RequireWorkspace())
		admin.Use(rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleSuperAdmin))
		{
			admin.GET("/ping", func(c *gin.Context) {
				c.JSON(200, gin.H{"status": "ok"})
			})

			admin.POST("/accounts", h.CreateAccount)
			admin.POST("/accounts/credit", h.AdminCredit)
			admin.POST("/accounts/:account_id/status", h.AdminSetAccountStatus)
		}
	}
}

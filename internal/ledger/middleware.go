package ledger

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"dialer-platform/internal/auth"
	"dialer-platform/internal/rbac"

	"github.com/gin-gonic/gin"
)

const (
	headerAccountID          = "X-Account-Id"
	headerEstimatedCostMinor = "X-Estimated-Cost-Minor"
	headerCurrency           = "X-Currency"
)

// BalanceReader is the minimal ledger surface needed by middleware.
type BalanceReader interface {
	GetBalance(ctx context.Context, accountID string) (Balance, error)
}

// RequireSufficientBalance blocks the request if the real balance is below
// the estimated cost. A coarse precheck only: the authoritative funds check
// happens atomically inside the debit.
//
// How it works (generic / non-business-logic):
// - Reads estimated charge from header: X-Estimated-Cost-Minor (int64, real minor units)
// - Reads account_id from header: X-Account-Id
// - Reads currency from header: X-Currency (optional; checked when present)
// - Uses auth context for role
//
// Requests without an estimate header pass through untouched: the precheck
// is opt-in per request and the debit itself still enforces funds.
//
// Admin override:
// - super_admin bypasses
// - hidden reseller_operator bypasses
// - (others can be added later by RBAC policy)
func RequireSufficientBalance(svc BalanceReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := auth.Role(c.Request.Context())
		if rbac.IsSuperAdmin(role) || role == rbac.RoleResellerOperator {
			c.Next()
			return
		}

		estMinorStr := strings.TrimSpace(c.GetHeader(headerEstimatedCostMinor))
		if estMinorStr == "" {
			c.Next()
			return
		}
		estMinor, err := strconv.ParseInt(estMinorStr, 10, 64)
		if err != nil || estMinor <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "estimated cost invalid"})
			return
		}

		accountID := strings.TrimSpace(c.GetHeader(headerAccountID))
		if accountID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "account id required"})
			return
		}

		bal, err := svc.GetBalance(c.Request.Context(), accountID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "balance lookup failed"})
			return
		}
		if currency := strings.TrimSpace(c.GetHeader(headerCurrency)); currency != "" && bal.Currency != currency {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "currency mismatch"})
			return
		}
		if bal.RealMinor < estMinor {
			// 402 Payment Required is semantically appropriate.
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{"error": "insufficient balance"})
			return
		}

		c.Next()
	}
}

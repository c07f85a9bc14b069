package httpapi

import (
	"errors"
	"net/http"

	"dialer-platform/internal/billing"
	"dialer-platform/internal/calls"
	"dialer-platform/internal/campaign"
	"dialer-platform/internal/leads"
	"dialer-platform/internal/ledger"
	"dialer-platform/internal/payments"
	"dialer-platform/internal/pricing"
	"dialer-platform/internal/reporting"

	"github.com/gin-gonic/gin"
)

// writeError maps the typed service errors onto HTTP statuses. Services
// classify; this is the single place the classification turns into a
// response.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, ledger.ErrNotFound),
		errors.Is(err, campaign.ErrNotFound),
		errors.Is(err, leads.ErrNotFound),
		errors.Is(err, calls.ErrNotFound):
		status = http.StatusNotFound

	case errors.Is(err, ledger.ErrInsufficientFunds):
		status = http.StatusPaymentRequired

	case errors.Is(err, ledger.ErrInvalidArgument),
		errors.Is(err, campaign.ErrInvalidArgument),
		errors.Is(err, leads.ErrInvalidArgument),
		errors.Is(err, billing.ErrInvalidArgument),
		errors.Is(err, payments.ErrInvalidEvent),
		errors.Is(err, payments.ErrCurrencyMismatch),
		errors.Is(err, reporting.ErrInvalidRequest),
		errors.Is(err, pricing.ErrInvalidRateRequest):
		status = http.StatusBadRequest

	case errors.Is(err, campaign.ErrInvalidTransition),
		errors.Is(err, leads.ErrInvalidTransition),
		errors.Is(err, billing.ErrCampaignNotActive):
		status = http.StatusConflict

	case errors.Is(err, billing.ErrOutsideCallWindow),
		errors.Is(err, leads.ErrMaxAttemptsExceeded),
		errors.Is(err, pricing.ErrRateNotFound):
		status = http.StatusUnprocessableEntity

	case errors.Is(err, billing.ErrTooManyActiveCalls):
		status = http.StatusTooManyRequests

	case errors.Is(err, ledger.ErrAccountFrozen):
		status = http.StatusLocked

	case errors.Is(err, billing.ErrAborted):
		status = http.StatusRequestTimeout

	case errors.Is(err, ledger.ErrLedgerInconsistency):
		// Correctness bug signal; surfaced distinctly so operators notice.
		status = http.StatusInternalServerError
	}

	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

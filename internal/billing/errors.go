package billing

import "errors"

var (
	ErrInvalidArgument   = errors.New("billing: invalid argument")
	ErrCampaignNotActive = errors.New("billing: campaign not active")
	ErrOutsideCallWindow = errors.New("billing: outside call window")

	// ErrTooManyActiveCalls means the per-campaign concurrency cap is
	// exhausted. Retryable once an in-flight call finishes.
	ErrTooManyActiveCalls = errors.New("billing: campaign concurrency cap reached")

	// ErrAborted maps an externally imposed timeout/cancellation that was
	// caught before the commit. Guarantee: no partial ledger mutation.
	ErrAborted = errors.New("billing: aborted before commit")
)

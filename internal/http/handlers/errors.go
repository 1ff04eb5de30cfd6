// Package handlers defines HTTP-layer error codes used across all API
// endpoints.
//
// These symbolic constants give clients a stable, machine-readable error
// taxonomy that supplements human-readable messages. Codes are lowercase
// snake_case; generic codes mirror common HTTP status semantics, while
// domain-specific codes cover failures that status alone cannot convey.
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeNotFound     = "not_found"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeReportFailed     = "report_failed"
	ErrCodeStoreDisabled    = "store_disabled"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)

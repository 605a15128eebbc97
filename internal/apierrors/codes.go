// Package apierrors provides structured API error codes and responses.
// All codes are namespaced (e.g., "core:unauthorized", "warranty:expired").
package apierrors

import "net/http"

// Core error codes - registered automatically at init
const (
	// Authentication & Authorization
	CodeUnauthorized = "core:unauthorized"
	CodeForbidden    = "core:forbidden"
	CodeInvalidToken = "core:invalid_token"

	// Request errors
	CodeInvalidRequest   = "core:invalid_request"
	CodeValidationFailed = "core:validation_failed"

	// Resource errors
	CodeNotFound = "core:not_found"
	CodeConflict = "core:conflict"

	// Rate limiting
	CodeRateLimited = "core:rate_limited"

	// Server errors
	CodeInternalError      = "core:internal_error"
	CodeServiceUnavailable = "core:service_unavailable"
)

// Warranty error codes
const (
	CodeAuthMismatch      = "warranty:auth_mismatch"
	CodePolicyMissing     = "warranty:policy_missing"
	CodeExpired           = "warranty:expired"
	CodeNeedsBoth         = "warranty:needs_endorsement_and_review"
	CodeNeedsEndorsement  = "warranty:needs_endorsement"
	CodeNeedsReview       = "warranty:needs_review"
	CodeNotEligible       = "warranty:not_eligible"
	CodeTicketExists      = "warranty:ticket_exists"
	CodeInsufficientStock = "warranty:insufficient_stock"
	CodeUpstream          = "warranty:upstream_unavailable"
	CodeTransport         = "warranty:transport_unavailable"
)

// coreErrors defines all core error codes with their default messages and HTTP status
var coreErrors = []ErrorCode{
	// Authentication & Authorization
	{Code: CodeUnauthorized, Message: "Authentication required", HTTPStatus: http.StatusUnauthorized},
	{Code: CodeForbidden, Message: "Permission denied", HTTPStatus: http.StatusForbidden},
	{Code: CodeInvalidToken, Message: "Invalid or expired token", HTTPStatus: http.StatusUnauthorized},

	// Request errors
	{Code: CodeInvalidRequest, Message: "Invalid request body", HTTPStatus: http.StatusBadRequest},
	{Code: CodeValidationFailed, Message: "Request validation failed", HTTPStatus: http.StatusBadRequest},

	// Resource errors
	{Code: CodeNotFound, Message: "Resource not found", HTTPStatus: http.StatusNotFound},
	{Code: CodeConflict, Message: "Resource conflict", HTTPStatus: http.StatusConflict},

	// Rate limiting
	{Code: CodeRateLimited, Message: "Too many requests", HTTPStatus: http.StatusTooManyRequests},

	// Server errors
	{Code: CodeInternalError, Message: "Internal server error", HTTPStatus: http.StatusInternalServerError},
	{Code: CodeServiceUnavailable, Message: "Service temporarily unavailable", HTTPStatus: http.StatusServiceUnavailable},
}

var warrantyErrors = []ErrorCode{
	{Code: CodeAuthMismatch, Message: "The email does not match the order", HTTPStatus: http.StatusForbidden},
	{Code: CodePolicyMissing, Message: "No warranty policy exists for this product", HTTPStatus: http.StatusUnprocessableEntity},
	{Code: CodeExpired, Message: "The warranty for this order has expired", HTTPStatus: http.StatusUnprocessableEntity},
	{Code: CodeNeedsBoth, Message: "A vouch and a 5-star review are required", HTTPStatus: http.StatusUnprocessableEntity},
	{Code: CodeNeedsEndorsement, Message: "A vouch is required", HTTPStatus: http.StatusUnprocessableEntity},
	{Code: CodeNeedsReview, Message: "A 5-star review is required", HTTPStatus: http.StatusUnprocessableEntity},
	{Code: CodeNotEligible, Message: "The order is not eligible for a replacement", HTTPStatus: http.StatusUnprocessableEntity},
	{Code: CodeTicketExists, Message: "A ticket is already open for this order", HTTPStatus: http.StatusConflict},
	{Code: CodeInsufficientStock, Message: "Not enough stock for this product", HTTPStatus: http.StatusConflict},
	{Code: CodeUpstream, Message: "The storefront is unavailable", HTTPStatus: http.StatusBadGateway},
	{Code: CodeTransport, Message: "The messaging platform is unavailable", HTTPStatus: http.StatusBadGateway},
}

func init() {
	// Register all core error codes
	for _, e := range coreErrors {
		Registry.Register(e)
	}
	for _, e := range warrantyErrors {
		Registry.Register(e)
	}
}

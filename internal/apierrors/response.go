package apierrors

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/goatkit/warrantyflow/internal/models"
)

// APIError represents the JSON error response structure
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error sends an error response using a registered error code
// It looks up the code in the registry for HTTP status and default message
func Error(c *gin.Context, code string) {
	status := Registry.HTTPStatus(code)
	message := Registry.Message(code)
	c.JSON(status, gin.H{"error": APIError{Code: code, Message: message}})
}

// ErrorWithMessage sends an error response with a custom message
// Useful when the message needs dynamic content (e.g., validation details)
func ErrorWithMessage(c *gin.Context, code, message string) {
	status := Registry.HTTPStatus(code)
	c.JSON(status, gin.H{"error": APIError{Code: code, Message: message}})
}

// New creates an APIError without sending a response
func New(code string) APIError {
	return APIError{
		Code:    code,
		Message: Registry.Message(code),
	}
}

var sentinelCodes = []struct {
	err  error
	code string
}{
	{models.ErrInvalidInput, CodeValidationFailed},
	{models.ErrNotFound, CodeNotFound},
	{models.ErrAuthMismatch, CodeAuthMismatch},
	{models.ErrPolicyMissing, CodePolicyMissing},
	{models.ErrNotEligible, CodeNotEligible},
	{models.ErrConflict, CodeTicketExists},
	{models.ErrInsufficientStock, CodeInsufficientStock},
	{models.ErrUpstream, CodeUpstream},
	{models.ErrTransport, CodeTransport},
}

// CodeFor classifies err into a registered code. Unclassified errors map to
// core:internal_error.
func CodeFor(err error) string {
	for _, s := range sentinelCodes {
		if errors.Is(err, s.err) {
			return s.code
		}
	}
	return CodeInternalError
}

// FromError builds the response body for err. Validation errors carry their
// own text; everything else uses the registered message so internal details
// are not leaked.
func FromError(err error) APIError {
	code := CodeFor(err)
	if code == CodeValidationFailed {
		return APIError{Code: code, Message: err.Error()}
	}
	return New(code)
}

// RespondError sends the response for err and aborts the chain.
func RespondError(c *gin.Context, err error) {
	body := FromError(err)
	c.AbortWithStatusJSON(Registry.HTTPStatus(body.Code), gin.H{"error": body})
}

// OutcomeCode maps an evaluation outcome name to its warranty code.
func OutcomeCode(outcome string) string {
	code := "warranty:" + outcome
	if _, ok := Registry.Get(code); ok {
		return code
	}
	return CodeNotEligible
}

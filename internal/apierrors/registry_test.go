package apierrors

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goatkit/warrantyflow/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRegistry_CoreCodesRegistered(t *testing.T) {
	mustExist := []string{
		CodeUnauthorized,
		CodeForbidden,
		CodeNotFound,
		CodeInvalidRequest,
		CodeInternalError,
		CodeExpired,
		CodeInsufficientStock,
	}
	for _, code := range mustExist {
		_, ok := Registry.Get(code)
		assert.True(t, ok, "code %q not registered", code)
	}
}

func TestRegistry_Namespacing(t *testing.T) {
	for _, ns := range []string{"core", "warranty"} {
		codes := Registry.ByNamespace(ns)
		require.NotEmpty(t, codes, ns)
		for _, code := range codes {
			assert.Equal(t, ns, namespace(code.Code))
		}
	}
	assert.ElementsMatch(t, []string{"core", "warranty"}, Registry.Namespaces())
}

func TestRegistry_ReRegisterDoesNotDuplicate(t *testing.T) {
	before := len(Registry.ByNamespace("warranty"))
	Registry.Register(ErrorCode{Code: CodeExpired, Message: "The warranty for this order has expired", HTTPStatus: http.StatusUnprocessableEntity})
	assert.Len(t, Registry.ByNamespace("warranty"), before)
}

func TestRegistry_HTTPStatus(t *testing.T) {
	tests := []struct {
		code   string
		status int
	}{
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeNotFound, http.StatusNotFound},
		{CodeAuthMismatch, http.StatusForbidden},
		{CodeTicketExists, http.StatusConflict},
		{CodeUpstream, http.StatusBadGateway},
		{CodeRateLimited, http.StatusTooManyRequests},
		{"unknown:code", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.status, Registry.HTTPStatus(tt.code))
		})
	}
	assert.Equal(t, "unknown:code", Registry.Message("unknown:code"))
}

func TestCodeFor(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{fmt.Errorf("order x: %w", models.ErrNotFound), CodeNotFound},
		{fmt.Errorf("wrap: %w", models.ErrAuthMismatch), CodeAuthMismatch},
		{models.ErrConflict, CodeTicketExists},
		{models.ErrInsufficientStock, CodeInsufficientStock},
		{fmt.Errorf("%w: status 503", models.ErrUpstream), CodeUpstream},
		{models.ErrTransport, CodeTransport},
		{errors.New("boom"), CodeInternalError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, CodeFor(tt.err), tt.err.Error())
	}
}

func TestFromErrorHidesInternalDetails(t *testing.T) {
	body := FromError(errors.New("dial tcp 10.0.0.1: refused"))
	assert.Equal(t, CodeInternalError, body.Code)
	assert.Equal(t, "Internal server error", body.Message)

	body = FromError(fmt.Errorf("%w: order id is required", models.ErrInvalidInput))
	assert.Equal(t, CodeValidationFailed, body.Code)
	assert.Contains(t, body.Message, "order id is required")
}

func TestRespondError(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	RespondError(c, fmt.Errorf("%w: order 7", models.ErrNotFound))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.True(t, c.IsAborted())
	assert.JSONEq(t, `{"error":{"code":"core:not_found","message":"Resource not found"}}`, w.Body.String())
}

func TestOutcomeCode(t *testing.T) {
	assert.Equal(t, CodeExpired, OutcomeCode("expired"))
	assert.Equal(t, CodeNeedsReview, OutcomeCode("needs_review"))
	assert.Equal(t, CodeNotEligible, OutcomeCode("something_else"))
}

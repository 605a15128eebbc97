package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	"github.com/goatkit/warrantyflow/internal/auth"
)

func registered(subject string) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{Subject: subject}
}

type stubValidator map[string]*auth.Claims

func (s stubValidator) Validate(token string) (*auth.Claims, error) {
	if c, ok := s[token]; ok {
		return c, nil
	}
	return nil, errors.New("bad token")
}

func protectedRouter(v TokenValidator, roles ...string) *gin.Engine {
	router := gin.New()
	router.Use(BearerAuth(v), RequireRole(roles...))
	router.GET("/admin", func(c *gin.Context) {
		claims, _ := ClaimsFrom(c)
		c.String(http.StatusOK, claims.Subject)
	})
	return router
}

func TestBearerAuthAndRoles(t *testing.T) {
	v := stubValidator{
		"admin-token":  {Role: auth.RoleAdmin, RegisteredClaims: registered("ops")},
		"bridge-token": {Role: auth.RoleBridge, RegisteredClaims: registered("bridge")},
	}
	router := protectedRouter(v, auth.RoleAdmin)

	tests := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{name: "missing header", status: http.StatusUnauthorized, code: "core:unauthorized"},
		{name: "wrong scheme", header: "Basic abc", status: http.StatusUnauthorized, code: "core:unauthorized"},
		{name: "invalid token", header: "Bearer nope", status: http.StatusUnauthorized, code: "core:invalid_token"},
		{name: "wrong role", header: "Bearer bridge-token", status: http.StatusForbidden, code: "core:forbidden"},
		{name: "admin", header: "bearer admin-token", status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest("GET", "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.code != "" {
				assert.Contains(t, w.Body.String(), tt.code)
			} else {
				assert.Equal(t, "ops", w.Body.String())
			}
		})
	}
}

func TestBearerAuthWithoutValidatorFailsClosed(t *testing.T) {
	router := protectedRouter(nil, auth.RoleAdmin)
	req, _ := http.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer anything")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/", func(c *gin.Context) { c.String(http.StatusOK, RequestIDFrom(c)) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	router.ServeHTTP(w, req)
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

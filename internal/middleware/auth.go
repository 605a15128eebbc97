// Package middleware holds the gin middleware shared by the API routes.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/goatkit/warrantyflow/internal/apierrors"
	"github.com/goatkit/warrantyflow/internal/auth"
)

const claimsKey = "auth_claims"

// TokenValidator validates bearer tokens.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// BearerAuth requires a valid bearer token and stores its claims on the context.
func BearerAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			apierrors.Error(c, apierrors.CodeUnauthorized)
			c.Abort()
			return
		}
		if validator == nil {
			apierrors.ErrorWithMessage(c, apierrors.CodeUnauthorized, "Authentication not configured")
			c.Abort()
			return
		}
		claims, err := validator.Validate(token)
		if err != nil {
			apierrors.Error(c, apierrors.CodeInvalidToken)
			c.Abort()
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireRole rejects callers whose token role is not one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			apierrors.Error(c, apierrors.CodeUnauthorized)
			c.Abort()
			return
		}
		for _, r := range roles {
			if claims.Role == r {
				c.Next()
				return
			}
		}
		apierrors.Error(c, apierrors.CodeForbidden)
		c.Abort()
	}
}

// ClaimsFrom returns the claims stored by BearerAuth.
func ClaimsFrom(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok && claims != nil
}

func extractToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

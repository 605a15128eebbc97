package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/goatkit/warrantyflow/internal/apierrors"
	"github.com/goatkit/warrantyflow/internal/auth"
)

type tokenRequest struct {
	ClientID     string `json:"client_id" binding:"required"`
	ClientSecret string `json:"client_secret" binding:"required"`
}

// handleIssueToken exchanges client credentials for a bearer token.
// POST /api/v1/auth/token
func (h *handlers) handleIssueToken(c *gin.Context) {
	if h.tokens == nil || h.clients == nil {
		apierrors.Error(c, apierrors.CodeServiceUnavailable)
		return
	}
	var req tokenRequest
	if !bindJSON(c, &req) {
		return
	}
	client, err := h.clients.Authenticate(req.ClientID, req.ClientSecret)
	if err != nil {
		if !errors.Is(err, auth.ErrBadCredentials) {
			h.logger.Printf("api: client authentication error: %v", err)
		}
		apierrors.ErrorWithMessage(c, apierrors.CodeUnauthorized, "Invalid client credentials")
		return
	}
	token, expires, err := h.tokens.Issue(client.ID, client.Role)
	if err != nil {
		h.logger.Printf("api: failed to issue token for %s: %v", client.ID, err)
		apierrors.Error(c, apierrors.CodeInternalError)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   int(time.Until(expires).Seconds()),
		"role":         client.Role,
	})
}

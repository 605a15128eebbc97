package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/goatkit/warrantyflow/internal/apierrors"
	"github.com/goatkit/warrantyflow/internal/models"
	"github.com/goatkit/warrantyflow/internal/warranty"
)

type claimRequest struct {
	OrderID      string `json:"order_id" binding:"required"`
	Email        string `json:"email" binding:"required"`
	ClaimantID   string `json:"claimant_id" binding:"required"`
	ClaimantName string `json:"claimant_name"`
}

func (r claimRequest) claim() warranty.Claim {
	return warranty.Claim{
		OrderID:  strings.TrimSpace(r.OrderID),
		Email:    strings.TrimSpace(r.Email),
		Claimant: models.Claimant{ID: r.ClaimantID, Name: r.ClaimantName},
	}
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		apierrors.ErrorWithMessage(c, apierrors.CodeInvalidRequest, err.Error())
		c.Abort()
		return false
	}
	return true
}

// handleEvaluate handles POST /api/v1/claims/evaluate.
//
//	@Summary		Evaluate a warranty claim
//	@Tags			Claims
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	service.Evaluation
//	@Failure		403	{object}	map[string]interface{}	"Email does not match the order"
//	@Failure		404	{object}	map[string]interface{}	"Order not found"
//	@Security		BearerAuth
//	@Router			/claims/evaluate [post]
func (h *handlers) handleEvaluate(c *gin.Context) {
	var req claimRequest
	if !bindJSON(c, &req) {
		return
	}
	ev, err := h.svc.Evaluate(c.Request.Context(), req.claim())
	if err != nil {
		apierrors.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

// handleRequestReplacement handles POST /api/v1/claims/replacement. Ineligible
// claims answer 422 with the evaluation so the caller can show the guidance.
func (h *handlers) handleRequestReplacement(c *gin.Context) {
	var req claimRequest
	if !bindJSON(c, &req) {
		return
	}
	ticket, ev, err := h.svc.RequestReplacement(c.Request.Context(), req.claim())
	if err != nil {
		if ie, ok := warranty.AsIneligible(err); ok {
			code := apierrors.OutcomeCode(string(ie.Assessment.Outcome))
			c.JSON(apierrors.Registry.HTTPStatus(code), gin.H{
				"error":      apierrors.New(code),
				"evaluation": ev,
			})
			return
		}
		if errors.Is(err, models.ErrConflict) {
			h.logger.Printf("api: duplicate replacement request for order %s", req.OrderID)
		}
		apierrors.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ticket": ticket, "evaluation": ev})
}

type channelDeletedRequest struct {
	ChannelID string `json:"channel_id" binding:"required"`
}

// handleChannelDeleted handles POST /api/v1/events/channel-deleted, sent by the
// bridge when a channel disappears outside the service.
func (h *handlers) handleChannelDeleted(c *gin.Context) {
	var req channelDeletedRequest
	if !bindJSON(c, &req) {
		return
	}
	handled, err := h.svc.HandleChannelDeleted(c.Request.Context(), req.ChannelID)
	if err != nil && !handled {
		apierrors.RespondError(c, err)
		return
	}
	resp := gin.H{"handled": handled}
	if err != nil {
		// The record is gone; only the transcript delivery failed.
		h.logger.Printf("api: transcript delivery for channel %s failed: %v", req.ChannelID, err)
		resp["transcript_error"] = apierrors.FromError(err)
	}
	c.JSON(http.StatusOK, resp)
}

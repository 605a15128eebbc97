package api

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/goatkit/warrantyflow/internal/apierrors"
	"github.com/goatkit/warrantyflow/internal/models"
	"github.com/goatkit/warrantyflow/internal/service"
	"github.com/goatkit/warrantyflow/internal/services/scheduler"
)

type checkRequest struct {
	OrderID    string `json:"order_id" binding:"required"`
	ClaimantID string `json:"claimant_id"`
}

func (h *handlers) handleCheck(c *gin.Context) {
	var req checkRequest
	if !bindJSON(c, &req) {
		return
	}
	ev, err := h.svc.Check(c.Request.Context(), req.OrderID, req.ClaimantID)
	if err != nil {
		apierrors.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

func (h *handlers) handleListTickets(c *gin.Context) {
	tickets, err := h.svc.ListTickets(c.Request.Context())
	if err != nil {
		apierrors.RespondError(c, err)
		return
	}
	if tickets == nil {
		tickets = []models.Ticket{}
	}
	c.JSON(http.StatusOK, gin.H{"tickets": tickets, "count": len(tickets)})
}

func (h *handlers) handleCloseTicket(c *gin.Context) {
	t, err := h.svc.CloseTicket(c.Request.Context(), c.Param("orderID"))
	if err != nil {
		apierrors.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": t})
}

func (h *handlers) handleCloseClaimantTicket(c *gin.Context) {
	t, err := h.svc.CloseClaimantTicket(c.Request.Context(), c.Param("claimantID"))
	if err != nil {
		apierrors.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": t})
}

type policyView struct {
	ProductID string          `json:"product_id"`
	Title     string          `json:"title"`
	Duration  models.Duration `json:"warranty_duration"`
}

// handleListPolicies handles GET /api/v1/admin/policies, ordered by title.
func (h *handlers) handleListPolicies(c *gin.Context) {
	set, err := h.svc.ListPolicies(c.Request.Context())
	if err != nil {
		apierrors.RespondError(c, err)
		return
	}
	out := make([]policyView, 0, len(set))
	for id, p := range set {
		out = append(out, policyView{ProductID: id, Title: p.Title, Duration: p.Duration})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ProductID < out[j].ProductID
	})
	c.JSON(http.StatusOK, gin.H{"policies": out, "count": len(out)})
}

type setPolicyRequest struct {
	Duration string `json:"duration" binding:"required"`
}

func (h *handlers) handleSetPolicy(c *gin.Context) {
	var req setPolicyRequest
	if !bindJSON(c, &req) {
		return
	}
	id := c.Param("productID")
	p, err := h.svc.SetPolicy(c.Request.Context(), id, req.Duration)
	if err != nil {
		apierrors.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, policyView{ProductID: id, Title: p.Title, Duration: p.Duration})
}

func (h *handlers) handleExcludeProduct(c *gin.Context) {
	removed, err := h.svc.ExcludeProduct(c.Request.Context(), c.Param("productID"))
	if err != nil {
		apierrors.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"excluded": true, "policy_removed": removed})
}

type syncCatalogRequest struct {
	Products []models.Product `json:"products"`
}

// handleSyncCatalog handles POST /api/v1/admin/catalog/sync. Without a body
// the storefront catalog is fetched first.
func (h *handlers) handleSyncCatalog(c *gin.Context) {
	var req syncCatalogRequest
	if c.Request.ContentLength != 0 {
		if !bindJSON(c, &req) {
			return
		}
	}

	var (
		n   int
		err error
	)
	if len(req.Products) > 0 {
		n, err = h.svc.SyncCatalog(c.Request.Context(), req.Products)
	} else {
		n, err = h.svc.SyncCatalogFromStore(c.Request.Context())
	}
	if err != nil {
		apierrors.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inserted": n})
}

func (h *handlers) handleStockCount(c *gin.Context) {
	n, err := h.svc.StockCount(c.Request.Context(), c.Param("product"))
	if err != nil {
		apierrors.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": c.Param("product"), "count": n})
}

type addStockRequest struct {
	Lines []string `json:"lines"`
	Text  string   `json:"text"`
}

// handleAddStock accepts either a list of lines or a newline separated text blob.
func (h *handlers) handleAddStock(c *gin.Context) {
	var req addStockRequest
	if !bindJSON(c, &req) {
		return
	}
	lines := req.Lines
	if req.Text != "" {
		lines = append(lines, strings.Split(strings.ReplaceAll(req.Text, "\r\n", "\n"), "\n")...)
	}
	if len(lines) == 0 {
		apierrors.ErrorWithMessage(c, apierrors.CodeValidationFailed, "lines or text is required")
		return
	}
	n, err := h.svc.AddStock(c.Request.Context(), c.Param("product"), lines)
	if err != nil {
		apierrors.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": c.Param("product"), "count": n})
}

func (h *handlers) handleDeliverReplacement(c *gin.Context) {
	var req service.ReplacementRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.DeliverReplacement(c.Request.Context(), req)
	if err != nil {
		apierrors.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handlers) handleListJobs(c *gin.Context) {
	if h.jobs == nil {
		apierrors.Error(c, apierrors.CodeServiceUnavailable)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": h.jobs.Jobs()})
}

func (h *handlers) handleRunJob(c *gin.Context) {
	if h.jobs == nil {
		apierrors.Error(c, apierrors.CodeServiceUnavailable)
		return
	}
	err := h.jobs.RunNow(c.Request.Context(), c.Param("slug"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"slug": c.Param("slug"), "status": "completed"})
	case errors.Is(err, scheduler.ErrJobRunning):
		apierrors.ErrorWithMessage(c, apierrors.CodeConflict, "Job is already running")
	default:
		apierrors.RespondError(c, err)
	}
}

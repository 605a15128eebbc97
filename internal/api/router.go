// Package api exposes the warranty operations over HTTP.
package api

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goatkit/warrantyflow/internal/auth"
	"github.com/goatkit/warrantyflow/internal/middleware"
	"github.com/goatkit/warrantyflow/internal/models"
	"github.com/goatkit/warrantyflow/internal/service"
	"github.com/goatkit/warrantyflow/internal/warranty"
)

// WarrantyService is the set of operations served by the API.
type WarrantyService interface {
	Evaluate(ctx context.Context, claim warranty.Claim) (*service.Evaluation, error)
	Check(ctx context.Context, orderID, claimantID string) (*service.Evaluation, error)
	RequestReplacement(ctx context.Context, claim warranty.Claim) (*models.Ticket, *service.Evaluation, error)
	CloseTicket(ctx context.Context, orderID string) (*models.Ticket, error)
	CloseClaimantTicket(ctx context.Context, claimantID string) (*models.Ticket, error)
	HandleChannelDeleted(ctx context.Context, channelID string) (bool, error)
	ListTickets(ctx context.Context) ([]models.Ticket, error)
	SyncCatalog(ctx context.Context, products []models.Product) (int, error)
	SyncCatalogFromStore(ctx context.Context) (int, error)
	ExcludeProduct(ctx context.Context, productID string) (bool, error)
	SetPolicy(ctx context.Context, productID, duration string) (*models.WarrantyPolicy, error)
	ListPolicies(ctx context.Context) (models.PolicySet, error)
	AddStock(ctx context.Context, product string, lines []string) (int, error)
	StockCount(ctx context.Context, product string) (int, error)
	DeliverReplacement(ctx context.Context, req service.ReplacementRequest) (*service.ReplacementResult, error)
}

// JobRunner lists and triggers scheduled jobs.
type JobRunner interface {
	Jobs() []models.ScheduledJob
	RunNow(ctx context.Context, slug string) error
}

// Config wires the router.
type Config struct {
	Service WarrantyService
	Tokens  *auth.JWTManager
	Clients *auth.ClientDirectory
	Jobs    JobRunner
	Limiter *middleware.RateLimiter
	Logger  *log.Logger
	// Ready reports backend health for /readyz. Nil means always ready.
	Ready func(ctx context.Context) error
}

type handlers struct {
	svc     WarrantyService
	tokens  *auth.JWTManager
	clients *auth.ClientDirectory
	jobs    JobRunner
	ready   func(ctx context.Context) error
	logger  *log.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(cfg Config) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	h := &handlers{
		svc:     cfg.Service,
		tokens:  cfg.Tokens,
		clients: cfg.Clients,
		jobs:    cfg.Jobs,
		ready:   cfg.Ready,
		logger:  logger,
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID())

	r.GET("/healthz", h.handleHealth)
	r.GET("/readyz", h.handleReady)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	limited := func(g *gin.RouterGroup) {
		if cfg.Limiter != nil {
			g.Use(middleware.RateLimit(cfg.Limiter))
		}
	}

	tokenGroup := v1.Group("/auth")
	limited(tokenGroup)
	tokenGroup.POST("/token", h.handleIssueToken)

	var validator middleware.TokenValidator
	if cfg.Tokens != nil {
		validator = cfg.Tokens
	}

	claims := v1.Group("")
	claims.Use(middleware.BearerAuth(validator))
	limited(claims)
	claims.Use(middleware.RequireRole(auth.RoleBridge, auth.RoleAdmin))
	claims.POST("/claims/evaluate", h.handleEvaluate)
	claims.POST("/claims/replacement", h.handleRequestReplacement)
	claims.POST("/events/channel-deleted", h.handleChannelDeleted)

	admin := v1.Group("/admin")
	admin.Use(middleware.BearerAuth(validator))
	limited(admin)
	admin.Use(middleware.RequireRole(auth.RoleAdmin))
	admin.POST("/check", h.handleCheck)
	admin.GET("/tickets", h.handleListTickets)
	admin.DELETE("/tickets/:orderID", h.handleCloseTicket)
	admin.POST("/claimants/:claimantID/close", h.handleCloseClaimantTicket)
	admin.GET("/policies", h.handleListPolicies)
	admin.PUT("/policies/:productID", h.handleSetPolicy)
	admin.POST("/policies/:productID/exclude", h.handleExcludeProduct)
	admin.POST("/catalog/sync", h.handleSyncCatalog)
	admin.GET("/stock/:product", h.handleStockCount)
	admin.POST("/stock/:product", h.handleAddStock)
	admin.POST("/replacements", h.handleDeliverReplacement)
	admin.GET("/jobs", h.handleListJobs)
	admin.POST("/jobs/:slug/run", h.handleRunJob)

	return r
}

func (h *handlers) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) handleReady(c *gin.Context) {
	if h.ready != nil {
		if err := h.ready(c.Request.Context()); err != nil {
			h.logger.Printf("api: readiness check failed: %v", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

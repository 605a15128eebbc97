package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/goatkit/warrantyflow/internal/models"
	"github.com/goatkit/warrantyflow/internal/notifications"
	"github.com/goatkit/warrantyflow/internal/transport"
	"github.com/goatkit/warrantyflow/internal/warranty"
)

// ClaimEvaluator evaluates claims against policy and evidence.
type ClaimEvaluator interface {
	Evaluate(ctx context.Context, claim warranty.Claim) (*warranty.Assessment, error)
	Check(ctx context.Context, orderID, claimantID string) (*warranty.Assessment, error)
}

// PolicyCatalog maintains warranty policies.
type PolicyCatalog interface {
	Sync(ctx context.Context, products []models.Product) (int, error)
	Exclude(ctx context.Context, productID string) (bool, error)
	SetPolicy(ctx context.Context, productID string, duration models.Duration) (*models.WarrantyPolicy, error)
	Policies(ctx context.Context) (models.PolicySet, error)
}

// TicketLifecycle opens, closes and reconciles tickets.
type TicketLifecycle interface {
	Create(ctx context.Context, order models.Order, claimant models.Claimant) (*models.Ticket, error)
	Close(ctx context.Context, orderID string) (*models.Ticket, error)
	CloseForClaimant(ctx context.Context, claimantID string) (*models.Ticket, error)
	ReconcileExternalRemoval(ctx context.Context, channelID string) (bool, error)
	ReconcileOrphans(ctx context.Context) (int, error)
	List(ctx context.Context) ([]models.Ticket, error)
}

// ProductLister fetches the storefront catalog.
type ProductLister interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
}

// StockStore holds replacement stock per product.
type StockStore interface {
	Add(ctx context.Context, product string, lines []string) (int, error)
	Take(ctx context.Context, product string, n int) ([]string, error)
	Count(ctx context.Context, product string) (int, error)
}

// Deps are the collaborators of a WarrantyService.
type Deps struct {
	Evaluator ClaimEvaluator
	Catalog   PolicyCatalog
	Tickets   TicketLifecycle
	Products  ProductLister
	Stock     StockStore
	Notifier  transport.Notifier
	Shop      notifications.Shop
	Logger    *log.Logger
}

// WarrantyService exposes the warranty operations used by the HTTP API, the CLI
// and the scheduler.
type WarrantyService struct {
	evaluator ClaimEvaluator
	catalog   PolicyCatalog
	tickets   TicketLifecycle
	products  ProductLister
	stock     StockStore
	notifier  transport.Notifier
	shop      notifications.Shop
	logger    *log.Logger
	metrics   *warrantyMetrics
}

// NewWarrantyService wires the service.
func NewWarrantyService(d Deps) *WarrantyService {
	logger := d.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &WarrantyService{
		evaluator: d.Evaluator,
		catalog:   d.Catalog,
		tickets:   d.Tickets,
		products:  d.Products,
		stock:     d.Stock,
		notifier:  d.Notifier,
		shop:      d.Shop,
		logger:    logger,
		metrics:   globalWarrantyMetrics(),
	}
}

// Evaluation is an assessment plus the message to show the claimant.
type Evaluation struct {
	Assessment *warranty.Assessment   `json:"assessment"`
	Message    transport.Notification `json:"message"`
}

func (s *WarrantyService) evaluation(a *warranty.Assessment) *Evaluation {
	s.metrics.recordOutcome(string(a.Outcome))
	return &Evaluation{Assessment: a, Message: s.shop.Assessment(a)}
}

// Evaluate checks a claim and renders the claimant guidance.
func (s *WarrantyService) Evaluate(ctx context.Context, claim warranty.Claim) (*Evaluation, error) {
	a, err := s.evaluator.Evaluate(ctx, claim)
	if err != nil {
		return nil, err
	}
	return s.evaluation(a), nil
}

// Check evaluates an order for a claimant on an operator's behalf.
func (s *WarrantyService) Check(ctx context.Context, orderID, claimantID string) (*Evaluation, error) {
	a, err := s.evaluator.Check(ctx, orderID, claimantID)
	if err != nil {
		return nil, err
	}
	return s.evaluation(a), nil
}

// RequestReplacement evaluates the claim and opens a ticket when it is eligible.
// Ineligible claims fail with an *warranty.IneligibleError carrying the assessment.
func (s *WarrantyService) RequestReplacement(ctx context.Context, claim warranty.Claim) (*models.Ticket, *Evaluation, error) {
	ev, err := s.Evaluate(ctx, claim)
	if err != nil {
		return nil, nil, err
	}
	if !ev.Assessment.Eligible() {
		return nil, ev, &warranty.IneligibleError{Assessment: ev.Assessment}
	}
	t, err := s.tickets.Create(ctx, ev.Assessment.Order, claim.Claimant)
	if err != nil {
		return nil, ev, err
	}
	s.metrics.recordTicket("opened")
	return t, ev, nil
}

// CloseTicket closes the ticket for orderID.
func (s *WarrantyService) CloseTicket(ctx context.Context, orderID string) (*models.Ticket, error) {
	t, err := s.tickets.Close(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.metrics.recordTicket("closed")
	return t, nil
}

// CloseClaimantTicket closes the claimant's most recent ticket.
func (s *WarrantyService) CloseClaimantTicket(ctx context.Context, claimantID string) (*models.Ticket, error) {
	t, err := s.tickets.CloseForClaimant(ctx, claimantID)
	if err != nil {
		return nil, err
	}
	s.metrics.recordTicket("closed")
	return t, nil
}

// HandleChannelDeleted reconciles a channel removed outside the service.
func (s *WarrantyService) HandleChannelDeleted(ctx context.Context, channelID string) (bool, error) {
	handled, err := s.tickets.ReconcileExternalRemoval(ctx, channelID)
	if handled {
		s.metrics.recordTicket("reconciled")
	}
	return handled, err
}

// ReconcileOrphans reconciles tickets whose channel vanished unnoticed.
func (s *WarrantyService) ReconcileOrphans(ctx context.Context) (int, error) {
	n, err := s.tickets.ReconcileOrphans(ctx)
	for i := 0; i < n; i++ {
		s.metrics.recordTicket("reconciled")
	}
	return n, err
}

// ListTickets returns open tickets.
func (s *WarrantyService) ListTickets(ctx context.Context) ([]models.Ticket, error) {
	return s.tickets.List(ctx)
}

// SyncCatalog merges products into the policy store.
func (s *WarrantyService) SyncCatalog(ctx context.Context, products []models.Product) (int, error) {
	n, err := s.catalog.Sync(ctx, products)
	if err != nil {
		return 0, err
	}
	s.metrics.recordCatalog(n)
	return n, nil
}

// SyncCatalogFromStore fetches the storefront catalog and syncs it.
func (s *WarrantyService) SyncCatalogFromStore(ctx context.Context) (int, error) {
	if s.products == nil {
		return 0, fmt.Errorf("%w: no product source configured", models.ErrUpstream)
	}
	products, err := s.products.ListProducts(ctx)
	if err != nil {
		return 0, err
	}
	n, err := s.SyncCatalog(ctx, products)
	if err != nil {
		return 0, err
	}
	s.logger.Printf("catalog: fetched %d product(s), inserted %d policy(ies)", len(products), n)
	return n, nil
}

// ExcludeProduct removes a product's policy and bars it from future syncs.
func (s *WarrantyService) ExcludeProduct(ctx context.Context, productID string) (bool, error) {
	return s.catalog.Exclude(ctx, productID)
}

// SetPolicy stores an operator-chosen duration such as "12m" or "lifetime".
func (s *WarrantyService) SetPolicy(ctx context.Context, productID, duration string) (*models.WarrantyPolicy, error) {
	d, err := models.ParseDuration(duration)
	if err != nil {
		return nil, err
	}
	return s.catalog.SetPolicy(ctx, productID, d)
}

// ListPolicies returns every stored policy.
func (s *WarrantyService) ListPolicies(ctx context.Context) (models.PolicySet, error) {
	return s.catalog.Policies(ctx)
}

// AddStock appends replacement lines for product and returns the stock count.
func (s *WarrantyService) AddStock(ctx context.Context, product string, lines []string) (int, error) {
	if strings.TrimSpace(product) == "" {
		return 0, fmt.Errorf("%w: product is required", models.ErrInvalidInput)
	}
	return s.stock.Add(ctx, product, lines)
}

// StockCount returns the number of stock lines for product.
func (s *WarrantyService) StockCount(ctx context.Context, product string) (int, error) {
	return s.stock.Count(ctx, product)
}

// ReplacementRequest describes a delivery to a claimant. With Amount > 0 the
// goods are taken from stock, otherwise Content is sent as given.
type ReplacementRequest struct {
	ClaimantID string `json:"claimant_id"`
	Product    string `json:"product"`
	Amount     int    `json:"amount"`
	Content    string `json:"content"`
}

// ReplacementResult reports what was delivered and which ticket was closed.
type ReplacementResult struct {
	Lines        []string       `json:"lines,omitempty"`
	ClosedTicket *models.Ticket `json:"closed_ticket,omitempty"`
}

// DeliverReplacement sends replacement goods by direct message and then closes the
// claimant's open ticket. Stock taken for a failed delivery is put back.
func (s *WarrantyService) DeliverReplacement(ctx context.Context, req ReplacementRequest) (*ReplacementResult, error) {
	if strings.TrimSpace(req.ClaimantID) == "" || strings.TrimSpace(req.Product) == "" {
		return nil, fmt.Errorf("%w: claimant and product are required", models.ErrInvalidInput)
	}
	if req.Amount < 0 {
		return nil, fmt.Errorf("%w: amount must not be negative", models.ErrInvalidInput)
	}

	source := "content"
	var lines []string
	if req.Amount > 0 {
		source = "stock"
		taken, err := s.stock.Take(ctx, req.Product, req.Amount)
		if err != nil {
			return nil, err
		}
		lines = taken
	}

	if err := s.notifier.SendDirect(ctx, req.ClaimantID, notifications.Replacement(req.Product, lines, req.Content)); err != nil {
		s.metrics.recordDelivery(source, false)
		if len(lines) > 0 {
			if _, rerr := s.stock.Add(ctx, req.Product, lines); rerr != nil {
				s.logger.Printf("replacement: failed to return %d line(s) of %s to stock: %v", len(lines), req.Product, rerr)
			}
		}
		return nil, err
	}
	s.metrics.recordDelivery(source, true)

	result := &ReplacementResult{Lines: lines}
	closed, err := s.CloseClaimantTicket(ctx, req.ClaimantID)
	switch {
	case err == nil:
		result.ClosedTicket = closed
	case errors.Is(err, models.ErrNotFound):
		s.logger.Printf("replacement: delivered %s to %s without an open ticket", req.Product, req.ClaimantID)
	default:
		return result, fmt.Errorf("replacement delivered but ticket not closed: %w", err)
	}
	return result, nil
}

package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goatkit/warrantyflow/internal/keylock"
	"github.com/goatkit/warrantyflow/internal/models"
	"github.com/goatkit/warrantyflow/internal/notifications"
	"github.com/goatkit/warrantyflow/internal/repository"
	"github.com/goatkit/warrantyflow/internal/ticket"
	"github.com/goatkit/warrantyflow/internal/transport"
	"github.com/goatkit/warrantyflow/internal/warranty"
)

var serviceNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeStorefront struct {
	orders   map[string]models.Order
	feedback []models.Feedback
	products []models.Product
	err      error
}

func (f *fakeStorefront) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: order %s", models.ErrNotFound, id)
	}
	return &o, nil
}

func (f *fakeStorefront) ListFeedback(ctx context.Context) ([]models.Feedback, error) {
	return f.feedback, f.err
}

func (f *fakeStorefront) ListProducts(ctx context.Context) ([]models.Product, error) {
	return f.products, f.err
}

type harness struct {
	svc   *WarrantyService
	shop  *fakeStorefront
	chat  *transport.Memory
	stock *repository.StockRepository
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	docs := repository.NewMemoryDocumentStore()
	locker := keylock.NewMemoryLocker()
	policies := repository.NewPolicyRepository(docs, locker)
	stock := repository.NewStockRepository(docs, locker)

	chat := transport.NewMemory()
	chat.AddChannel("vouches", "vouches")

	shop := &fakeStorefront{orders: map[string]models.Order{
		"ord-42": {
			ID:            "ord-42",
			ProductID:     "prod-1",
			ProductTitle:  "Netflix Premium 6m",
			Quantity:      1,
			TotalPrice:    20,
			Currency:      "USD",
			CustomerEmail: "buyer@example.com",
			CreatedAt:     serviceNow.AddDate(0, -3, 0),
		},
	}}

	logger := log.New(&bytes.Buffer{}, "", 0)
	matcher := warranty.NewMatcher(chat, shop, "vouches", "<@900>")
	svc := NewWarrantyService(Deps{
		Evaluator: warranty.NewEvaluator(shop, policies, matcher, func() time.Time { return serviceNow }),
		Catalog:   warranty.NewCatalog(policies, repository.NewExclusionRepository(docs, locker), locker),
		Tickets: ticket.NewManager(repository.NewTicketRepository(docs, locker), chat, locker,
			ticket.WithLogger(logger), ticket.WithOperator("op")),
		Products: shop,
		Stock:    stock,
		Notifier: chat,
		Shop:     notifications.Shop{OwnerMention: "<@900>", Domain: "shop.example.com"},
		Logger:   logger,
	})
	return &harness{svc: svc, shop: shop, chat: chat, stock: stock}
}

var buyer = models.Claimant{ID: "u1", Name: "buyer"}

func claim() warranty.Claim {
	return warranty.Claim{OrderID: "ord-42", Email: "Buyer@Example.com", Claimant: buyer}
}

func (h *harness) satisfyEvidence() {
	h.chat.Post("vouches", "u1", "+rep <@900> Netflix Premium 6m 1x $20")
	h.shop.feedback = []models.Feedback{{InvoiceID: "ord-42", Score: 5}}
}

func TestEvaluateRendersGuidance(t *testing.T) {
	h := newHarness(t)

	ev, err := h.svc.Evaluate(context.Background(), claim())
	require.NoError(t, err)
	assert.Equal(t, warranty.OutcomeNeedsBoth, ev.Assessment.Outcome)
	assert.Equal(t, "Action Required", ev.Message.Title)
	assert.Contains(t, ev.Message.Body, "+rep <@900> Netflix Premium 6m 1x $20")
}

func TestRequestReplacementOpensTicketOnce(t *testing.T) {
	h := newHarness(t)
	h.satisfyEvidence()
	ctx := context.Background()

	tk, ev, err := h.svc.RequestReplacement(ctx, claim())
	require.NoError(t, err)
	assert.True(t, ev.Assessment.Eligible())
	assert.Equal(t, "pending-ord-42", tk.ChannelName)

	_, _, err = h.svc.RequestReplacement(ctx, claim())
	require.ErrorIs(t, err, models.ErrConflict)

	tickets, err := h.svc.ListTickets(ctx)
	require.NoError(t, err)
	assert.Len(t, tickets, 1)
}

func TestRequestReplacementRejectsIneligible(t *testing.T) {
	h := newHarness(t)

	_, ev, err := h.svc.RequestReplacement(context.Background(), claim())
	require.ErrorIs(t, err, models.ErrNotEligible)
	ie, ok := warranty.AsIneligible(err)
	require.True(t, ok)
	assert.Equal(t, warranty.OutcomeNeedsBoth, ie.Assessment.Outcome)
	assert.Equal(t, "Action Required", ev.Message.Title)
}

func TestRequestReplacementAuthMismatch(t *testing.T) {
	h := newHarness(t)
	c := claim()
	c.Email = "thief@example.com"

	_, _, err := h.svc.RequestReplacement(context.Background(), c)
	require.ErrorIs(t, err, models.ErrAuthMismatch)
}

func TestPolicyAdministration(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.shop.products = []models.Product{
		{ID: "prod-1", Title: "Netflix Premium 6m"},
		{ID: "prod-2", Title: "Spotify 1y"},
		{ID: "prod-3", Title: "Gift card"},
	}

	n, err := h.svc.SyncCatalogFromStore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	p, err := h.svc.SetPolicy(ctx, "prod-1", "1y")
	require.NoError(t, err)
	assert.Equal(t, "Netflix Premium 6m", p.Title)

	_, err = h.svc.SetPolicy(ctx, "prod-1", "forever")
	require.ErrorIs(t, err, models.ErrInvalidInput)

	removed, err := h.svc.ExcludeProduct(ctx, "prod-2")
	require.NoError(t, err)
	assert.True(t, removed)

	set, err := h.svc.ListPolicies(ctx)
	require.NoError(t, err)
	assert.Len(t, set, 1)
	assert.Equal(t, "1y", set["prod-1"].Duration.String())

	h.shop.err = fmt.Errorf("%w: 503", models.ErrUpstream)
	_, err = h.svc.SyncCatalogFromStore(ctx)
	require.ErrorIs(t, err, models.ErrUpstream)
}

func TestDeliverReplacementFromStockClosesTicket(t *testing.T) {
	h := newHarness(t)
	h.satisfyEvidence()
	ctx := context.Background()

	_, _, err := h.svc.RequestReplacement(ctx, claim())
	require.NoError(t, err)
	_, err = h.svc.AddStock(ctx, "Netflix", []string{"a:1", "b:2", "c:3"})
	require.NoError(t, err)

	res, err := h.svc.DeliverReplacement(ctx, ReplacementRequest{ClaimantID: "u1", Product: "Netflix", Amount: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"a:1", "b:2"}, res.Lines)
	require.NotNil(t, res.ClosedTicket)
	assert.Equal(t, "ord-42", res.ClosedTicket.OrderID)

	left, err := h.svc.StockCount(ctx, "Netflix")
	require.NoError(t, err)
	assert.Equal(t, 1, left)

	_, err = h.svc.DeliverReplacement(ctx, ReplacementRequest{ClaimantID: "u1", Product: "Netflix", Amount: 5})
	require.ErrorIs(t, err, models.ErrInsufficientStock)
}

type failingDM struct {
	*transport.Memory
}

func (failingDM) SendDirect(ctx context.Context, userID string, n transport.Notification) error {
	return fmt.Errorf("%w: user has direct messages disabled", models.ErrTransport)
}

func TestDeliverReplacementReturnsStockOnFailedDelivery(t *testing.T) {
	h := newHarness(t)
	h.svc.notifier = failingDM{h.chat}
	ctx := context.Background()

	_, err := h.svc.AddStock(ctx, "Netflix", []string{"a:1"})
	require.NoError(t, err)

	_, err = h.svc.DeliverReplacement(ctx, ReplacementRequest{ClaimantID: "u1", Product: "Netflix", Amount: 1})
	require.ErrorIs(t, err, models.ErrTransport)

	left, err := h.svc.StockCount(ctx, "Netflix")
	require.NoError(t, err)
	assert.Equal(t, 1, left)
}

func TestDeliverReplacementWithoutTicket(t *testing.T) {
	h := newHarness(t)

	res, err := h.svc.DeliverReplacement(context.Background(), ReplacementRequest{ClaimantID: "u9", Product: "Netflix", Content: "new login"})
	require.NoError(t, err)
	assert.Nil(t, res.ClosedTicket)

	var dm *transport.Delivery
	for _, d := range h.chat.Deliveries() {
		if d.UserID == "u9" {
			d := d
			dm = &d
		}
	}
	require.NotNil(t, dm)
	assert.Equal(t, "new login", dm.Fields[0].Value)
}

func TestHandleChannelDeleted(t *testing.T) {
	h := newHarness(t)
	h.satisfyEvidence()
	ctx := context.Background()

	tk, _, err := h.svc.RequestReplacement(ctx, claim())
	require.NoError(t, err)
	h.chat.RemoveChannel(tk.ChannelID)

	handled, err := h.svc.HandleChannelDeleted(ctx, tk.ChannelID)
	require.NoError(t, err)
	assert.True(t, handled)

	_, err = h.svc.CloseTicket(ctx, "ord-42")
	require.ErrorIs(t, err, models.ErrNotFound)

	handled, err = h.svc.HandleChannelDeleted(ctx, "random")
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestCheckReportsWarrantyEnd(t *testing.T) {
	h := newHarness(t)

	ev, err := h.svc.Check(context.Background(), "ord-42", "u1")
	require.NoError(t, err)
	require.NotNil(t, ev.Assessment.WarrantyEnd)
	assert.Equal(t, serviceNow.AddDate(0, -3, 0).AddDate(0, 0, 180), *ev.Assessment.WarrantyEnd)

	_, err = h.svc.Check(context.Background(), "missing", "u1")
	require.True(t, errors.Is(err, models.ErrNotFound))
}

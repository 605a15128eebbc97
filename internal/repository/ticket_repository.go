package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/goatkit/warrantyflow/internal/keylock"
	"github.com/goatkit/warrantyflow/internal/models"
)

// TicketRepository stores open ticket records keyed by order id.
type TicketRepository struct {
	store DocumentStore
	guard documentGuard
}

// NewTicketRepository creates a ticket repository over store. Writes hold the
// document lock of locker; nil falls back to an in-process lock.
func NewTicketRepository(store DocumentStore, locker keylock.Locker) *TicketRepository {
	return &TicketRepository{store: store, guard: newDocumentGuard(locker)}
}

func (r *TicketRepository) load(ctx context.Context) (map[string]models.Ticket, error) {
	tickets := map[string]models.Ticket{}
	if _, err := r.store.Load(ctx, DocTickets, &tickets); err != nil {
		return nil, fmt.Errorf("failed to load tickets: %w", err)
	}
	if tickets == nil {
		tickets = map[string]models.Ticket{}
	}
	for id, t := range tickets {
		if t.OrderID == "" {
			t.OrderID = id
			tickets[id] = t
		}
	}
	return tickets, nil
}

func (r *TicketRepository) save(ctx context.Context, tickets map[string]models.Ticket) error {
	if err := r.store.Save(ctx, DocTickets, tickets); err != nil {
		return fmt.Errorf("failed to save tickets: %w", err)
	}
	return nil
}

// Get returns the ticket for orderID or ErrNotFound.
func (r *TicketRepository) Get(ctx context.Context, orderID string) (*models.Ticket, error) {
	tickets, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	t, ok := tickets[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: ticket for order %s", models.ErrNotFound, orderID)
	}
	return &t, nil
}

// Create persists a new ticket. It fails with ErrConflict when the order
// already has one.
func (r *TicketRepository) Create(ctx context.Context, ticket models.Ticket) error {
	return r.guard.update(ctx, DocTickets, func() error {
		tickets, err := r.load(ctx)
		if err != nil {
			return err
		}
		if _, ok := tickets[ticket.OrderID]; ok {
			return fmt.Errorf("%w: ticket for order %s already exists", models.ErrConflict, ticket.OrderID)
		}
		tickets[ticket.OrderID] = ticket
		return r.save(ctx, tickets)
	})
}

// Delete removes the ticket for orderID and reports whether it existed.
func (r *TicketRepository) Delete(ctx context.Context, orderID string) (bool, error) {
	var removed bool
	err := r.guard.update(ctx, DocTickets, func() error {
		tickets, err := r.load(ctx)
		if err != nil {
			return err
		}
		if _, ok := tickets[orderID]; !ok {
			return nil
		}
		delete(tickets, orderID)
		if err := r.save(ctx, tickets); err != nil {
			return err
		}
		removed = true
		return nil
	})
	return removed, err
}

// FindByChannel returns the ticket bound to channelID or ErrNotFound.
func (r *TicketRepository) FindByChannel(ctx context.Context, channelID string) (*models.Ticket, error) {
	tickets, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tickets {
		if t.ChannelID == channelID {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: ticket for channel %s", models.ErrNotFound, channelID)
}

// FindByClaimant returns the claimant's tickets, most recently opened first.
func (r *TicketRepository) FindByClaimant(ctx context.Context, claimantID string) ([]models.Ticket, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.Ticket
	for _, t := range all {
		if t.ClaimantID == claimantID {
			out = append(out, t)
		}
	}
	return out, nil
}

// List returns all tickets, most recently opened first.
func (r *TicketRepository) List(ctx context.Context) ([]models.Ticket, error) {
	tickets, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Ticket, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].OrderID < out[j].OrderID
		}
		return out[i].OpenedAt.After(out[j].OpenedAt)
	})
	return out, nil
}

// Package ticket owns the lifecycle of the one-per-order replacement ticket: a
// stored record plus the chat channel it is bound to.
package ticket

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/goatkit/warrantyflow/internal/keylock"
	"github.com/goatkit/warrantyflow/internal/models"
	"github.com/goatkit/warrantyflow/internal/notifications"
	"github.com/goatkit/warrantyflow/internal/transport"
)

// Store persists ticket records keyed by order id.
type Store interface {
	Get(ctx context.Context, orderID string) (*models.Ticket, error)
	Create(ctx context.Context, ticket models.Ticket) error
	Delete(ctx context.Context, orderID string) (bool, error)
	FindByChannel(ctx context.Context, channelID string) (*models.Ticket, error)
	FindByClaimant(ctx context.Context, claimantID string) ([]models.Ticket, error)
	List(ctx context.Context) ([]models.Ticket, error)
}

// Channels is the slice of the transport the manager needs.
type Channels interface {
	transport.ChannelManager
	transport.Notifier
	transport.TranscriptExporter
}

// Manager creates, closes and reconciles tickets.
type Manager struct {
	store    Store
	channels Channels
	locker   keylock.Locker
	logger   *log.Logger

	categoryID      string
	operatorID      string
	archiveID       string
	prefix          string
	transcriptLimit int
	now             func() time.Time
}

// NewManager wires a ticket manager.
func NewManager(store Store, channels Channels, locker keylock.Locker, opts ...Option) *Manager {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Manager{
		store:           store,
		channels:        channels,
		locker:          locker,
		logger:          o.Logger,
		categoryID:      o.CategoryID,
		operatorID:      o.OperatorID,
		archiveID:       o.ArchiveChannelID,
		prefix:          o.ChannelPrefix,
		transcriptLimit: o.TranscriptLimit,
		now:             o.Now,
	}
}

// ChannelName is the canonical channel name for orderID.
func (m *Manager) ChannelName(orderID string) string {
	return m.prefix + orderID
}

func lockKey(orderID string) string {
	return "ticket:" + orderID
}

// Create opens a ticket for order. The existence checks, channel creation and
// record persist run under the order's lock, so concurrent calls for the same
// order yield one ticket and ErrConflict for the rest.
func (m *Manager) Create(ctx context.Context, order models.Order, claimant models.Claimant) (*models.Ticket, error) {
	if strings.TrimSpace(order.ID) == "" {
		return nil, fmt.Errorf("%w: order id is required", models.ErrInvalidInput)
	}
	unlock, err := m.locker.Lock(ctx, lockKey(order.ID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	if existing, err := m.store.Get(ctx, order.ID); err == nil {
		return nil, fmt.Errorf("%w: ticket for order %s already exists in channel %s", models.ErrConflict, order.ID, existing.ChannelID)
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	name := m.ChannelName(order.ID)
	if ch, err := m.channels.FindChannel(ctx, name); err == nil {
		return nil, fmt.Errorf("%w: channel %s already exists (%s)", models.ErrConflict, name, ch.ID)
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	members := []string{claimant.ID}
	if m.operatorID != "" && m.operatorID != claimant.ID {
		members = append(members, m.operatorID)
	}
	ch, err := m.channels.CreateChannel(ctx, transport.ChannelSpec{Name: name, CategoryID: m.categoryID, Members: members})
	if err != nil {
		return nil, err
	}

	t := models.Ticket{
		OrderID:      order.ID,
		ChannelID:    ch.ID,
		ChannelName:  ch.Name,
		ClaimantID:   claimant.ID,
		ClaimantName: claimant.Name,
		ProductTitle: order.ProductTitle,
		Quantity:     order.Quantity,
		TotalPrice:   order.TotalPrice,
		Currency:     order.Currency,
		OrderedAt:    order.CreatedAt.UTC(),
		OpenedAt:     m.now().UTC(),
	}
	if err := m.store.Create(ctx, t); err != nil {
		if derr := m.channels.DeleteChannel(ctx, ch.ID); derr != nil {
			m.logger.Printf("ticket: failed to roll back channel %s for order %s: %v", ch.ID, order.ID, derr)
		}
		return nil, err
	}

	if err := m.channels.Send(ctx, ch.ID, notifications.TicketSummary(t, m.operatorID)); err != nil {
		m.logger.Printf("ticket: summary for order %s not delivered: %v", order.ID, err)
	}
	m.logger.Printf("ticket: opened %s for order %s (claimant %s)", ch.ID, order.ID, claimant.ID)
	return &t, nil
}

// Close deletes the ticket channel and removes the record for orderID.
func (m *Manager) Close(ctx context.Context, orderID string) (*models.Ticket, error) {
	unlock, err := m.locker.Lock(ctx, lockKey(orderID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	t, err := m.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := m.channels.DeleteChannel(ctx, t.ChannelID); err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	if _, err := m.store.Delete(ctx, orderID); err != nil {
		return nil, err
	}
	m.logger.Printf("ticket: closed order %s", orderID)
	return t, nil
}

// CloseForClaimant closes the most recently opened ticket of claimantID.
func (m *Manager) CloseForClaimant(ctx context.Context, claimantID string) (*models.Ticket, error) {
	tickets, err := m.store.FindByClaimant(ctx, claimantID)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, fmt.Errorf("%w: no open ticket for claimant %s", models.ErrNotFound, claimantID)
	}
	if len(tickets) > 1 {
		m.logger.Printf("ticket: claimant %s has %d open tickets, closing order %s", claimantID, len(tickets), tickets[0].OrderID)
	}
	return m.Close(ctx, tickets[0].OrderID)
}

// ReconcileExternalRemoval handles a channel that disappeared without Close.
// Unknown channels are ignored. The record is always removed; a failed transcript
// delivery is returned after removal.
func (m *Manager) ReconcileExternalRemoval(ctx context.Context, channelID string) (bool, error) {
	found, err := m.store.FindByChannel(ctx, channelID)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	unlock, err := m.locker.Lock(ctx, lockKey(found.OrderID))
	if err != nil {
		return false, err
	}
	defer unlock()

	// Re-read under the lock: a concurrent Close may have won.
	t, err := m.store.Get(ctx, found.OrderID)
	if errors.Is(err, models.ErrNotFound) || (err == nil && t.ChannelID != channelID) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	deliveryErr := m.deliverTranscript(ctx, *t)
	if _, err := m.store.Delete(ctx, t.OrderID); err != nil {
		return false, err
	}
	m.logger.Printf("ticket: reconciled external removal of %s (order %s)", channelID, t.OrderID)
	return true, deliveryErr
}

func (m *Manager) deliverTranscript(ctx context.Context, t models.Ticket) error {
	data, err := m.channels.ExportTranscript(ctx, t.ChannelID, m.transcriptLimit)
	if err != nil {
		return fmt.Errorf("export transcript for order %s: %w", t.OrderID, err)
	}
	name := t.ChannelName
	if name == "" {
		name = m.ChannelName(t.OrderID)
	}
	n := notifications.Transcript(name, data)

	var errs []error
	if err := m.channels.SendDirect(ctx, t.ClaimantID, n); err != nil {
		errs = append(errs, fmt.Errorf("deliver transcript to %s: %w", t.ClaimantID, err))
	}
	if m.archiveID != "" {
		if err := m.channels.Send(ctx, m.archiveID, n); err != nil {
			errs = append(errs, fmt.Errorf("archive transcript: %w", err))
		}
	}
	return errors.Join(errs...)
}

// ReconcileOrphans reconciles every ticket whose channel no longer exists and
// returns how many were removed.
func (m *Manager) ReconcileOrphans(ctx context.Context) (int, error) {
	tickets, err := m.store.List(ctx)
	if err != nil {
		return 0, err
	}
	removed := 0
	var errs []error
	for _, t := range tickets {
		exists, err := m.channels.ChannelExists(ctx, t.ChannelID)
		if err != nil {
			errs = append(errs, fmt.Errorf("check channel %s: %w", t.ChannelID, err))
			continue
		}
		if exists {
			continue
		}
		ok, err := m.ReconcileExternalRemoval(ctx, t.ChannelID)
		if ok {
			removed++
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return removed, errors.Join(errs...)
}

// List returns all open tickets, most recent first.
func (m *Manager) List(ctx context.Context) ([]models.Ticket, error) {
	return m.store.List(ctx)
}

package repository

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/goatkit/warrantyflow/internal/keylock"
	"github.com/goatkit/warrantyflow/internal/models"
)

var nonStockChars = regexp.MustCompile(`[^a-z0-9]+`)

// StockDocumentName maps a product title to its stock document name.
func StockDocumentName(product string) (string, error) {
	slug := strings.Trim(nonStockChars.ReplaceAllString(strings.ToLower(product), "-"), "-")
	if slug == "" {
		return "", fmt.Errorf("%w: product name %q", models.ErrInvalidInput, product)
	}
	if len(slug) > 100 {
		slug = slug[:100]
	}
	return docStockPrefix + slug, nil
}

// StockRepository keeps replacement stock as ordered lines per product.
type StockRepository struct {
	store DocumentStore
	guard documentGuard
}

// NewStockRepository creates a stock repository over store. Add and Take hold
// the product's document lock of locker.
func NewStockRepository(store DocumentStore, locker keylock.Locker) *StockRepository {
	return &StockRepository{store: store, guard: newDocumentGuard(locker)}
}

func (r *StockRepository) load(ctx context.Context, doc string) ([]string, error) {
	var lines []string
	if _, err := r.store.Load(ctx, doc, &lines); err != nil {
		return nil, fmt.Errorf("failed to load stock: %w", err)
	}
	return lines, nil
}

// Add appends non-empty lines to the product's stock and returns the new count.
func (r *StockRepository) Add(ctx context.Context, product string, lines []string) (int, error) {
	doc, err := StockDocumentName(product)
	if err != nil {
		return 0, err
	}
	var count int
	err = r.guard.update(ctx, doc, func() error {
		stock, err := r.load(ctx, doc)
		if err != nil {
			return err
		}
		for _, l := range lines {
			if l = strings.TrimSpace(l); l != "" {
				stock = append(stock, l)
			}
		}
		if err := r.store.Save(ctx, doc, stock); err != nil {
			return fmt.Errorf("failed to save stock: %w", err)
		}
		count = len(stock)
		return nil
	})
	return count, err
}

// Take removes and returns the first n lines. It fails with
// ErrInsufficientStock and leaves stock untouched when fewer are available.
func (r *StockRepository) Take(ctx context.Context, product string, n int) ([]string, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", models.ErrInvalidInput)
	}
	doc, err := StockDocumentName(product)
	if err != nil {
		return nil, err
	}
	var taken []string
	err = r.guard.update(ctx, doc, func() error {
		stock, err := r.load(ctx, doc)
		if err != nil {
			return err
		}
		if len(stock) < n {
			return fmt.Errorf("%w: %d of %d available for %s", models.ErrInsufficientStock, len(stock), n, product)
		}
		if err := r.store.Save(ctx, doc, stock[n:]); err != nil {
			return fmt.Errorf("failed to save stock: %w", err)
		}
		taken = append([]string(nil), stock[:n]...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return taken, nil
}

// Count returns the number of stock lines for product.
func (r *StockRepository) Count(ctx context.Context, product string) (int, error) {
	doc, err := StockDocumentName(product)
	if err != nil {
		return 0, err
	}
	stock, err := r.load(ctx, doc)
	if err != nil {
		return 0, err
	}
	return len(stock), nil
}

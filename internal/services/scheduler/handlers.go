package scheduler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/goatkit/warrantyflow/internal/models"
)

// Built-in handler names.
const (
	HandlerCatalogSync      = "catalog.sync"
	HandlerReconcileOrphans = "ticket.reconcileOrphans"
)

func (s *Service) registerBuiltinHandlers() {
	s.RegisterHandler(HandlerCatalogSync, s.handleCatalogSync)
	s.RegisterHandler(HandlerReconcileOrphans, s.handleReconcileOrphans)
}

func (s *Service) handleCatalogSync(ctx context.Context, job *models.ScheduledJob) error {
	if s.warranty == nil {
		s.logger.Printf("scheduler: warranty service unavailable, skipping catalog sync")
		return nil
	}
	n, err := s.warranty.SyncCatalogFromStore(ctx)
	if err != nil {
		return err
	}
	s.metrics.recordItems(job.Slug, n)
	if n > 0 || boolFromConfig(job.Config, "log_empty", false) {
		s.logger.Printf("scheduler: catalog sync inserted %d policy(ies)", n)
	}
	return nil
}

func (s *Service) handleReconcileOrphans(ctx context.Context, job *models.ScheduledJob) error {
	if s.warranty == nil {
		s.logger.Printf("scheduler: warranty service unavailable, skipping orphan reconciliation")
		return nil
	}
	n, err := s.warranty.ReconcileOrphans(ctx)
	s.metrics.recordItems(job.Slug, n)
	if n > 0 {
		s.logger.Printf("scheduler: reconciled %d orphaned ticket(s)", n)
	}
	if err != nil && boolFromConfig(job.Config, "tolerate_delivery_errors", true) && n > 0 {
		// Records were removed; only transcript delivery failed.
		s.logger.Printf("scheduler: orphan reconciliation finished with errors: %v", err)
		return nil
	}
	return err
}

func defaultJobs() []*models.ScheduledJob {
	return []*models.ScheduledJob{
		{
			Name:           "Storefront Catalog Sync",
			Slug:           "catalog-sync",
			Handler:        HandlerCatalogSync,
			Schedule:       "@hourly",
			TimeoutSeconds: 120,
		},
		{
			Name:           "Orphaned Ticket Reconciliation",
			Slug:           "ticket-orphans",
			Handler:        HandlerReconcileOrphans,
			Schedule:       "*/15 * * * *",
			TimeoutSeconds: 300,
			Config: map[string]any{
				"tolerate_delivery_errors": true,
			},
		},
	}
}

// DefaultJobs returns the built-in job definitions.
func DefaultJobs() []*models.ScheduledJob {
	return defaultJobs()
}

func boolFromConfig(cfg map[string]any, key string, def bool) bool {
	if cfg == nil {
		return def
	}
	val, ok := cfg[key]
	if !ok {
		return def
	}
	switch v := val.(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err == nil {
			return b
		}
	}
	return def
}

// IsJobRunning reports whether err was caused by an overlapping run.
func IsJobRunning(err error) bool {
	return errors.Is(err, ErrJobRunning)
}

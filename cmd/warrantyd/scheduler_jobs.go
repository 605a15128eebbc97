package main

import (
	"strings"

	"github.com/goatkit/warrantyflow/internal/config"
	"github.com/goatkit/warrantyflow/internal/models"
	"github.com/goatkit/warrantyflow/internal/services/scheduler"
)

// buildSchedulerJobsFromConfig applies the configured schedules to the default
// jobs. A blank or "off" schedule disables the job.
func buildSchedulerJobsFromConfig(cfg *config.Config) []*models.ScheduledJob {
	jobs := scheduler.DefaultJobs()
	if cfg == nil {
		return jobs
	}

	schedules := map[string]string{
		"catalog-sync":   cfg.Scheduler.CatalogSync,
		"ticket-orphans": cfg.Scheduler.OrphanReconcile,
	}
	for slug, schedule := range schedules {
		schedule = strings.TrimSpace(schedule)
		if schedule == "" || strings.EqualFold(schedule, "off") {
			jobs = filterJobsBySlug(jobs, slug)
			continue
		}
		for _, job := range jobs {
			if job != nil && job.Slug == slug {
				job.Schedule = schedule
			}
		}
	}
	return jobs
}

func filterJobsBySlug(jobs []*models.ScheduledJob, slug string) []*models.ScheduledJob {
	if slug == "" || len(jobs) == 0 {
		return jobs
	}
	filtered := make([]*models.ScheduledJob, 0, len(jobs))
	for _, job := range jobs {
		if job == nil || job.Slug == slug {
			continue
		}
		filtered = append(filtered, job)
	}
	return filtered
}

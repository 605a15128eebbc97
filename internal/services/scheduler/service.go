// Package scheduler runs the recurring warranty jobs (catalog sync, orphaned
// ticket reconciliation) on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/goatkit/warrantyflow/internal/models"
	"github.com/goatkit/warrantyflow/internal/repository"
)

const statusDocument = "scheduler-status"

// JobHandler executes one run of a scheduled job.
type JobHandler func(ctx context.Context, job *models.ScheduledJob) error

// WarrantyJobs is the work the built-in handlers delegate to.
type WarrantyJobs interface {
	SyncCatalogFromStore(ctx context.Context) (int, error)
	ReconcileOrphans(ctx context.Context) (int, error)
}

// Service schedules and runs jobs.
type Service struct {
	logger   *log.Logger
	cron     *cron.Cron
	parser   cron.Parser
	location *time.Location
	status   repository.DocumentStore
	warranty WarrantyJobs
	metrics  *jobMetrics

	mu       sync.Mutex
	jobs     map[string]*models.ScheduledJob
	handlers map[string]JobHandler
	entries  map[string]cron.EntryID
	running  map[string]bool
	started  bool
}

// NewService creates a scheduler. Jobs default to the built-in set.
func NewService(work WarrantyJobs, opts ...Option) *Service {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Cron == nil {
		o.Cron = cron.New(cron.WithLocation(o.Location), cron.WithParser(o.Parser))
	}
	jobs := o.Jobs
	if len(jobs) == 0 {
		jobs = defaultJobs()
	}

	s := &Service{
		logger:   o.Logger,
		cron:     o.Cron,
		parser:   o.Parser,
		location: o.Location,
		status:   o.StatusStore,
		warranty: work,
		metrics:  globalJobMetrics(),
		jobs:     make(map[string]*models.ScheduledJob, len(jobs)),
		handlers: make(map[string]JobHandler),
		entries:  make(map[string]cron.EntryID),
		running:  make(map[string]bool),
	}
	for _, job := range jobs {
		if job == nil || job.Slug == "" {
			continue
		}
		j := *job
		s.jobs[j.Slug] = &j
	}
	s.registerBuiltinHandlers()
	return s
}

// RegisterHandler binds name to h, replacing any previous binding.
func (s *Service) RegisterHandler(name string, h JobHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[name] = h
}

func (s *Service) now() time.Time {
	return time.Now().In(s.location)
}

// Start schedules every job and starts the cron engine. Previously persisted
// run status is restored first.
func (s *Service) Start(ctx context.Context) error {
	s.restoreStatus(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	for slug, job := range s.jobs {
		if _, ok := s.handlers[job.Handler]; !ok {
			return fmt.Errorf("scheduler: job %s references unknown handler %s", slug, job.Handler)
		}
		if _, err := s.parser.Parse(job.Schedule); err != nil {
			return fmt.Errorf("scheduler: job %s has invalid schedule %q: %w", slug, job.Schedule, err)
		}
		slug := slug
		id, err := s.cron.AddFunc(job.Schedule, func() {
			if err := s.RunNow(context.Background(), slug); err != nil {
				s.logger.Printf("scheduler: job %s failed: %v", slug, err)
			}
		})
		if err != nil {
			return fmt.Errorf("scheduler: schedule %s: %w", slug, err)
		}
		s.entries[slug] = id
	}
	s.cron.Start()
	s.started = true
	s.logger.Printf("scheduler: started with %d job(s)", len(s.entries))
	return nil
}

// Stop halts the cron engine and waits for running jobs or ctx.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Printf("scheduler: stop deadline reached with jobs still running")
	}
}

// ErrJobRunning is returned when a job is triggered while its previous run is active.
var ErrJobRunning = errors.New("job already running")

// RunNow executes the job identified by slug once, bounded by its timeout.
// Overlapping runs of the same job are refused.
func (s *Service) RunNow(ctx context.Context, slug string) error {
	s.mu.Lock()
	job, ok := s.jobs[slug]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: job %s", models.ErrNotFound, slug)
	}
	handler, ok := s.handlers[job.Handler]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: handler %s", models.ErrNotFound, job.Handler)
	}
	if s.running[slug] {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", slug, ErrJobRunning)
	}
	s.running[slug] = true
	snapshot := *job
	s.mu.Unlock()

	runCtx, cancel := context.WithTimeout(ctx, snapshot.Timeout())
	defer cancel()

	done := s.metrics.recordRun(slug)
	err := handler(runCtx, &snapshot)
	done(err)

	ranAt := s.now()
	s.mu.Lock()
	s.running[slug] = false
	job.LastRunAt = &ranAt
	job.LastError = ""
	if err != nil {
		job.LastError = err.Error()
	}
	s.mu.Unlock()

	s.persistStatus(ctx)
	return err
}

// Jobs returns a snapshot of the configured jobs ordered by slug.
func (s *Service) Jobs() []models.ScheduledJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ScheduledJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, *j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Slug < out[k].Slug })
	return out
}

// NextRun reports when slug fires next, if scheduled.
func (s *Service) NextRun(slug string) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.entries[slug]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	entry := s.cron.Entry(id)
	return entry.Next, !entry.Next.IsZero()
}

type jobStatus struct {
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

func (s *Service) persistStatus(ctx context.Context) {
	if s.status == nil {
		return
	}
	s.mu.Lock()
	doc := make(map[string]jobStatus, len(s.jobs))
	for slug, j := range s.jobs {
		doc[slug] = jobStatus{LastRunAt: j.LastRunAt, LastError: j.LastError}
	}
	s.mu.Unlock()
	if err := s.status.Save(ctx, statusDocument, doc); err != nil {
		s.logger.Printf("scheduler: failed to persist job status: %v", err)
	}
}

func (s *Service) restoreStatus(ctx context.Context) {
	if s.status == nil {
		return
	}
	doc := map[string]jobStatus{}
	if _, err := s.status.Load(ctx, statusDocument, &doc); err != nil {
		s.logger.Printf("scheduler: failed to load job status: %v", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for slug, st := range doc {
		if j, ok := s.jobs[slug]; ok {
			j.LastRunAt = st.LastRunAt
			j.LastError = st.LastError
		}
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/goatkit/warrantyflow/internal/api"
	"github.com/goatkit/warrantyflow/internal/auth"
	"github.com/goatkit/warrantyflow/internal/config"
	"github.com/goatkit/warrantyflow/internal/middleware"
	"github.com/goatkit/warrantyflow/internal/repository"
	"github.com/goatkit/warrantyflow/internal/services/scheduler"
)

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run scheduled jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	logger := newLogger("warrantyd")

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	tokens, err := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}
	clients, err := auth.NewClientDirectory(cfg.Auth.Clients)
	if err != nil {
		return err
	}

	sched, err := newScheduler(cfg, a.svc, a.documents)
	if err != nil {
		return err
	}
	routerCfg := api.Config{
		Service: a.svc,
		Tokens:  tokens,
		Clients: clients,
		Limiter: middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst),
		Logger:  newLogger("api"),
		Ready:   a.Ready,
	}
	if sched != nil {
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			sched.Stop(stopCtx)
		}()
		routerCfg.Jobs = sched
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewRouter(routerCfg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("listening on %s (storage=%s, lock=%s)", cfg.Server.Addr, cfg.Storage.Backend, cfg.Lock.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// newScheduler returns nil when scheduling is disabled or every job is turned off.
func newScheduler(cfg config.Config, work scheduler.WarrantyJobs, status repository.DocumentStore) (*scheduler.Service, error) {
	if !cfg.Scheduler.Enabled {
		return nil, nil
	}
	jobs := buildSchedulerJobsFromConfig(&cfg)
	if len(jobs) == 0 {
		return nil, nil
	}
	loc := time.UTC
	if cfg.Scheduler.Timezone != "" {
		l, err := time.LoadLocation(cfg.Scheduler.Timezone)
		if err != nil {
			return nil, fmt.Errorf("scheduler timezone: %w", err)
		}
		loc = l
	}
	return scheduler.NewService(work,
		scheduler.WithLogger(newLogger("scheduler")),
		scheduler.WithJobs(jobs),
		scheduler.WithLocation(loc),
		scheduler.WithStatusStore(status),
	), nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/goatkit/warrantyflow/internal/commerce"
	"github.com/goatkit/warrantyflow/internal/config"
	"github.com/goatkit/warrantyflow/internal/database"
	"github.com/goatkit/warrantyflow/internal/keylock"
	"github.com/goatkit/warrantyflow/internal/notifications"
	"github.com/goatkit/warrantyflow/internal/repository"
	"github.com/goatkit/warrantyflow/internal/service"
	"github.com/goatkit/warrantyflow/internal/ticket"
	"github.com/goatkit/warrantyflow/internal/transport"
	"github.com/goatkit/warrantyflow/internal/warranty"
)

var logOutput io.Writer = os.Stderr

func newLogger(component string) *log.Logger {
	return log.New(logOutput, "["+component+"] ", log.LstdFlags)
}

// app holds the wired components and the resources that need closing.
type app struct {
	cfg       config.Config
	svc       *service.WarrantyService
	documents repository.DocumentStore
	messenger transport.Messenger
	db        *sqlx.DB
	redis     redis.UniversalClient
}

func buildApp(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{cfg: cfg}

	if cfg.UsesRedis() {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	docs, err := a.openDocuments(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.documents = docs

	var locker keylock.Locker = keylock.NewMemoryLocker()
	if cfg.Lock.Backend == config.BackendRedis {
		locker = keylock.NewRedisLocker(a.redis, "warrantyflow:lock:", cfg.Lock.TTL)
	}

	if cfg.Bridge.BaseURL != "" {
		a.messenger = transport.NewBridge(cfg.Bridge.BaseURL, cfg.Bridge.Token, cfg.Bridge.Timeout)
	} else {
		newLogger("transport").Printf("bridge.base_url not set, using the in-memory transport")
		a.messenger = transport.NewMemory()
	}

	storefront := commerce.NewClient(commerce.Options{
		BaseURL:           cfg.Commerce.BaseURL,
		APIKey:            cfg.Commerce.APIKey,
		Timeout:           cfg.Commerce.Timeout,
		RequestsPerSecond: cfg.Commerce.RequestsPerSecond,
		Burst:             cfg.Commerce.Burst,
	})

	policies := repository.NewPolicyRepository(docs, locker)
	matcher := warranty.NewMatcher(a.messenger, storefront, cfg.Shop.VouchChannelID, cfg.Shop.OwnerMention)
	tickets := ticket.NewManager(repository.NewTicketRepository(docs, locker), a.messenger, locker,
		ticket.WithLogger(newLogger("tickets")),
		ticket.WithCategory(cfg.Shop.CategoryID),
		ticket.WithOperator(cfg.Shop.OperatorID),
		ticket.WithArchiveChannel(cfg.Shop.ArchiveChannelID),
		ticket.WithChannelPrefix(cfg.Shop.ChannelPrefix),
		ticket.WithTranscriptLimit(cfg.Shop.TranscriptLimit),
	)

	a.svc = service.NewWarrantyService(service.Deps{
		Evaluator: warranty.NewEvaluator(storefront, policies, matcher, nil),
		Catalog:   warranty.NewCatalog(policies, repository.NewExclusionRepository(docs, locker), locker),
		Tickets:   tickets,
		Products:  storefront,
		Stock:     repository.NewStockRepository(docs, locker),
		Notifier:  a.messenger,
		Shop: notifications.Shop{
			OwnerMention: cfg.Shop.OwnerMention,
			Domain:       cfg.Shop.Domain,
			VouchChannel: cfg.Shop.VouchChannelID,
		},
		Logger: newLogger("warranty"),
	})
	return a, nil
}

func (a *app) openDocuments(ctx context.Context) (repository.DocumentStore, error) {
	st := a.cfg.Storage
	switch st.Backend {
	case config.BackendMemory:
		return repository.NewMemoryDocumentStore(), nil
	case config.BackendFile:
		return repository.NewFileDocumentStore(st.Dir)
	case config.BackendSQL:
		db, driver, err := openDatabase(ctx, st)
		if err != nil {
			return nil, err
		}
		a.db = db
		if err := database.EnsureSchema(ctx, db); err != nil {
			return nil, err
		}
		return repository.NewSQLDocumentStore(db, driver), nil
	case config.BackendRedis:
		return repository.NewRedisDocumentStore(a.redis, st.RedisPrefix), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", st.Backend)
}

func openDatabase(ctx context.Context, st config.StorageConfig) (*sqlx.DB, database.Driver, error) {
	driver, err := database.ParseDriver(st.SQLDriver)
	if err != nil {
		return nil, "", err
	}
	db, err := database.Open(ctx, driver, st.SQLDSN, database.PoolConfig{
		MaxOpenConns:    st.MaxOpenConns,
		MaxIdleConns:    st.MaxIdleConns,
		ConnMaxLifetime: st.ConnMaxLife,
	})
	if err != nil {
		return nil, "", err
	}
	return db, driver, nil
}

// Ready pings the backing services.
func (a *app) Ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	var errs []error
	if a.db != nil {
		if err := a.db.PingContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (a *app) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crm_backend/internal/auth/repository"
	"crm_backend/internal/email"
	"crm_backend/internal/events"
	"crm_backend/internal/integrations"
	"crm_backend/internal/notification"
	"crm_backend/internal/notification/outbox"
	"crm_backend/internal/scheduler"
	"crm_backend/platform/config"
	"crm_backend/platform/db"
	"crm_backend/platform/logger"
	"crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	outboxRepo := outbox.New(pool)
	users := repository.New(pool)

	integrationsModule, err := integrations.NewModule(pool, cfg, log, validator.New())
	if err != nil {
		log.Error("failed to initialize integrations module", "error", err)
		panic("failed to initialize integrations module: " + err.Error())
	}

	// Only outbox deliveries run here; live fanout happens in the API process.
	notificationModule := notification.New(email.NewSender(cfg), users, cfg, log)
	notificationModule.SetWebhooks(integrationsModule.Service())
	notificationModule.SetNotificationOutbox(outboxRepo)
	notificationModule.RegisterOutboxHandler(eventBus)

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	worker, err := scheduler.NewWorker(cfg, eventBus, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	dispatcher := scheduler.NewNotificationOutboxDispatcher(client, outboxRepo, log)
	housekeeping := scheduler.NewHousekeeping(users, outboxRepo, log, cfg.GetHousekeepingInterval(), cfg.GetOutboxRetention())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dispatcher.Run(gctx)
		return nil
	})
	g.Go(func() error {
		housekeeping.Run(gctx)
		return nil
	})
	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})
	_ = g.Wait()

	log.Info("scheduler stopped")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}

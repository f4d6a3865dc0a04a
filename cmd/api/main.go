package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crm_backend/internal/activities"
	"crm_backend/internal/auth"
	"crm_backend/internal/auth/token"
	"crm_backend/internal/dashboard"
	"crm_backend/internal/email"
	"crm_backend/internal/events"
	apphttp "crm_backend/internal/http"
	"crm_backend/internal/http/router"
	"crm_backend/internal/integrations"
	"crm_backend/internal/leads"
	"crm_backend/internal/notification"
	"crm_backend/internal/notification/outbox"
	"crm_backend/internal/notification/sse"
	"crm_backend/migrations"
	"crm_backend/platform/config"
	"crm_backend/platform/db"
	"crm_backend/platform/logger"
	"crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

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
	log.Info("database connection established")

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, pool, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	eventBus := events.NewInMemoryBus(log)
	denylist, closeRedis := initDenylist(ctx, cfg, log)
	if closeRedis != nil {
		defer closeRedis()
	}
	sender := email.NewSender(cfg)
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	authModule, err := auth.NewModule(pool, cfg, eventBus, denylist, log, val)
	if err != nil {
		log.Error("failed to initialize auth module", "error", err)
		panic("failed to initialize auth module: " + err.Error())
	}

	leadsModule, err := leads.NewModule(pool, eventBus, val, authModule.Repository(), cfg)
	if err != nil {
		log.Error("failed to initialize leads module", "error", err)
		panic("failed to initialize leads module: " + err.Error())
	}
	activitiesModule := activities.NewModule(leadsModule.Repository(), authModule.Repository(), eventBus, val)
	dashboardModule := dashboard.NewModule(pool)

	integrationsModule, err := integrations.NewModule(pool, cfg, log, val)
	if err != nil {
		log.Error("failed to initialize integrations module", "error", err)
		panic("failed to initialize integrations module: " + err.Error())
	}

	// Notification module fans domain events out to SSE, email and webhooks
	gateway := sse.New(log)
	defer gateway.Close()
	notificationModule := notification.New(sender, authModule.Repository(), cfg, log)
	notificationModule.SetSSE(gateway)
	notificationModule.SetFeed(leadsModule.Repository())
	notificationModule.SetWebhooks(integrationsModule.Service())
	if cfg.GetRedisURL() != "" {
		// The scheduler process drains the outbox.
		notificationModule.SetNotificationOutbox(outbox.New(pool))
	} else {
		log.Warn("REDIS_URL not configured; emails and webhooks are delivered inline")
	}
	notificationModule.RegisterHandlers(eventBus)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Sessions: authModule.Service(),
		Modules: []apphttp.Module{
			authModule,
			leadsModule,
			activitiesModule,
			dashboardModule,
			integrationsModule,
			notificationModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		// SSE streams only end once their clients are closed
		gateway.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initDenylist(ctx context.Context, cfg *config.Config, log *logger.Logger) (token.Denylist, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; logout does not revoke issued tokens")
		return token.NoopDenylist{}, nil
	}

	client, err := db.NewRedisClient(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to redis; logout does not revoke issued tokens", "error", err)
		return token.NoopDenylist{}, nil
	}

	return token.NewRedisDenylist(client), func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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

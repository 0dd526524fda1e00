package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadcall_backend/internal/callqueue"
	"leadcall_backend/internal/events"
	apphttp "leadcall_backend/internal/http"
	"leadcall_backend/internal/http/router"
	"leadcall_backend/internal/knowledge"
	"leadcall_backend/internal/leads"
	"leadcall_backend/internal/notification"
	"leadcall_backend/internal/scheduler"
	"leadcall_backend/migrations"
	"leadcall_backend/platform/config"
	"leadcall_backend/platform/db"
	"leadcall_backend/platform/logger"
	"leadcall_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting api server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg.GetDatabaseURL(), migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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

	eventBus := events.NewInMemoryBus(log)

	// The bus is process-local and the conversation orchestrator publishes
	// handoff events in this process, so the notifier subscribes here.
	if cfg.GetEmailEnabled() {
		notifier := notification.NewHandoffNotifier(notification.NewSMTPSender(cfg), cfg.GetHandoffInbox(), log)
		notifier.Register(eventBus)
		log.Info("handoff notifications enabled", "inbox", cfg.GetHandoffInbox())
	} else {
		log.Warn("email not configured; handoff notifications disabled")
	}

	val := validator.New()

	knowledgeModule := knowledge.NewModule(cfg, val, log)

	leadsModule, err := leads.NewModule(ctx, cfg, pool, knowledgeModule.Service, eventBus, val, log)
	if err != nil {
		log.Error("failed to initialize leads module", "error", err)
		panic("failed to initialize leads module: " + err.Error())
	}

	// Manual call-queue triggers enqueue the same task the periodic
	// dispatcher does; the worker process owns the reentrancy guard.
	passClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = passClient.Close() }()
	callQueueModule := callqueue.NewModule(passClient, log)

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			leadsModule,
			knowledgeModule,
			callQueueModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
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

// The worker binary runs the queue consumer on its own, for deployments
// that scale webhook intake and event processing separately. The api
// binary embeds the same worker for single-process setups.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crmbridge_backend/internal/crm"
	"crmbridge_backend/internal/discovery"
	"crmbridge_backend/internal/enrichment"
	"crmbridge_backend/internal/erp"
	domainevents "crmbridge_backend/internal/events"
	"crmbridge_backend/internal/scheduler"
	syncmod "crmbridge_backend/internal/sync"
	"crmbridge_backend/internal/websearch"
	"crmbridge_backend/platform/config"
	"crmbridge_backend/platform/db"
	"crmbridge_backend/platform/events"
	"crmbridge_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env)

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

	mappings, err := syncmod.LoadMappings(cfg.GetMappingsFile())
	if err != nil {
		log.Error("failed to load sync mappings", "error", err)
		panic("failed to load sync mappings: " + err.Error())
	}

	eventBus := events.NewInMemoryBus(log)
	domainevents.SubscribeLogging(eventBus, log)

	crmClient := crm.NewClient(cfg, log)
	erpClient := erp.NewClient(cfg, log)
	enrichClient := enrichment.NewClient(cfg, log)
	searchClient := websearch.NewClient(cfg, log)
	discoverySvc := discovery.NewService(net.DefaultResolver, searchClient, mappings.TLDTable(), log)

	orchestrator := enrichment.NewOrchestrator(
		crmClient, enrichClient, discoverySvc,
		enrichment.NewRequestRepo(pool), enrichment.NewClaimRepo(pool),
		mappings, eventBus, log,
	)
	reconciler := syncmod.NewReconciler(crmClient, erpClient, syncmod.NewIdentityRepo(pool), mappings, eventBus, log)
	processor := syncmod.NewProcessor(reconciler, crmClient, orchestrator, mappings, cfg, log)

	worker, err := scheduler.NewWorker(cfg, processor, log)
	if err != nil {
		log.Error("failed to initialize queue worker", "error", err)
		panic("failed to initialize queue worker: " + err.Error())
	}

	log.Info("worker listening")
	worker.Run(ctx)
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

	return lastErr
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"crmbridge_backend/internal/crm"
	"crmbridge_backend/internal/discovery"
	"crmbridge_backend/internal/enrichment"
	"crmbridge_backend/internal/erp"
	domainevents "crmbridge_backend/internal/events"
	apphttp "crmbridge_backend/internal/http"
	"crmbridge_backend/internal/http/router"
	"crmbridge_backend/internal/scheduler"
	syncmod "crmbridge_backend/internal/sync"
	"crmbridge_backend/internal/websearch"
	"crmbridge_backend/migrations"
	"crmbridge_backend/platform/config"
	"crmbridge_backend/platform/db"
	"crmbridge_backend/platform/events"
	"crmbridge_backend/platform/logger"
	"crmbridge_backend/platform/validator"

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

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
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

	ledgerRepo := syncmod.NewLedgerRepo(pool)
	claimRepo := enrichment.NewClaimRepo(pool)

	// Clear the dedup state so events dropped while the service was down
	// get a second chance on the CRM's next redelivery.
	if err := ledgerRepo.Reset(ctx); err != nil {
		log.Error("failed to reset event ledger", "error", err)
		panic("failed to reset event ledger: " + err.Error())
	}
	if err := claimRepo.Reset(ctx); err != nil {
		log.Error("failed to reset trigger claims", "error", err)
		panic("failed to reset trigger claims: " + err.Error())
	}
	log.Info("dedup state cleared")

	mappings, err := syncmod.LoadMappings(cfg.GetMappingsFile())
	if err != nil {
		log.Error("failed to load sync mappings", "error", err)
		panic("failed to load sync mappings: " + err.Error())
	}

	// Event bus for decoupled communication between modules, with the
	// structured-log observer as its audit trail.
	eventBus := events.NewInMemoryBus(log)
	domainevents.SubscribeLogging(eventBus, log)

	// ========================================================================
	// Upstream Clients
	// ========================================================================

	crmClient := crm.NewClient(cfg, log)
	erpClient := erp.NewClient(cfg, log)
	enrichClient := enrichment.NewClient(cfg, log)
	searchClient := websearch.NewClient(cfg, log)
	discoverySvc := discovery.NewService(net.DefaultResolver, searchClient, mappings.TLDTable(), log)

	if cfg.ERPURL != "" {
		if _, err := erpClient.Login(ctx); err != nil {
			log.UpstreamError("erp", "login", err)
		} else {
			log.Info("erp session established")
		}
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	orchestrator := enrichment.NewOrchestrator(
		crmClient, enrichClient, discoverySvc,
		enrichment.NewRequestRepo(pool), claimRepo,
		mappings, eventBus, log,
	)
	reconciler := syncmod.NewReconciler(crmClient, erpClient, syncmod.NewIdentityRepo(pool), mappings, eventBus, log)
	processor := syncmod.NewProcessor(reconciler, crmClient, orchestrator, mappings, cfg, log)

	queueClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize queue client", "error", err)
		panic("failed to initialize queue client: " + err.Error())
	}
	defer queueClient.Close()

	worker, err := scheduler.NewWorker(cfg, processor, log)
	if err != nil {
		log.Error("failed to initialize queue worker", "error", err)
		panic("failed to initialize queue worker: " + err.Error())
	}

	val := validator.New()
	syncModule := syncmod.NewModule(
		syncmod.NewHandler(ledgerRepo, queueClient, val, log),
		cfg.GetCRMWebhookToken(),
	)
	enrichmentModule := enrichment.NewModule(
		enrichment.NewHandler(orchestrator, log),
		cfg.GetEnrichmentWebhookToken(),
	)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:    cfg,
		Logger:    log,
		Health:    db.NewPoolAdapter(pool),
		ERPHealth: erpClient,
		EventBus:  eventBus,
		Modules: []apphttp.Module{
			syncModule,
			enrichmentModule,
		},
	}

	engine := router.New(app)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: engine}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		panic("server error: " + err.Error())
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

	return lastErr
}

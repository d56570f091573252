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

	"lead_pipeline_backend/internal/adapters/storage"
	"lead_pipeline_backend/internal/crm"
	"lead_pipeline_backend/internal/email"
	"lead_pipeline_backend/internal/events"
	apphttp "lead_pipeline_backend/internal/http"
	"lead_pipeline_backend/internal/http/router"
	"lead_pipeline_backend/internal/leads"
	"lead_pipeline_backend/internal/leads/assignment"
	"lead_pipeline_backend/internal/leads/followups"
	"lead_pipeline_backend/internal/leads/handler"
	"lead_pipeline_backend/internal/leads/repository"
	"lead_pipeline_backend/internal/leads/service"
	"lead_pipeline_backend/internal/notification"
	"lead_pipeline_backend/internal/scheduler"
	"lead_pipeline_backend/internal/webhook"
	"lead_pipeline_backend/platform/config"
	"lead_pipeline_backend/platform/db"
	"lead_pipeline_backend/platform/logger"
	"lead_pipeline_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const storageBucketEnsureErrPrefix = "failed to ensure storage bucket exists: "
const storageBucketEnsureErrMsg = "failed to ensure storage bucket exists"

const roundRobinKey = "leads:round_robin"

// ensureBucket wraps the retry logic for verifying a MinIO bucket exists.
func ensureBucket(ctx context.Context, log *logger.Logger, storageSvc storage.StorageService, name, bucket string) {
	if err := withRetry(ctx, log, "ensure "+name+" bucket", 5, 2*time.Second, func() error {
		return storageSvc.EnsureBucketExists(ctx, bucket)
	}); err != nil {
		log.Error(storageBucketEnsureErrMsg, "error", err, "bucket", bucket)
		panic(storageBucketEnsureErrPrefix + err.Error())
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
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
		return db.RunMigrations(ctx, pool)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	redisClient, closeRedis := initRedis(cfg, log)
	if closeRedis != nil {
		defer closeRedis()
	}

	sender := email.NewSender(cfg)

	// Shared validator instance for dependency injection
	val := validator.New()

	repo := repository.New(pool)

	// ========================================================================
	// CRM Delivery
	// ========================================================================

	provider, err := crm.NewProvider(cfg, log)
	if err != nil {
		log.Error("failed to initialize crm provider", "error", err)
		panic("failed to initialize crm provider: " + err.Error())
	}

	sinks := crm.MultiSink{crm.NewLogSink(log), crm.NewEventSink(eventBus)}
	var archive *storage.BucketArchiver
	if cfg.IsMinIOEnabled() {
		storageSvc, err := storage.NewMinIOService(cfg)
		if err != nil {
			log.Error("failed to initialize storage service", "error", err)
			panic("failed to initialize storage service: " + err.Error())
		}
		ensureBucket(ctx, log, storageSvc, "crm-dead-letters", cfg.GetMinioBucketDeadLetters())
		archive = storage.NewBucketArchiver(storageSvc, cfg.GetMinioBucketDeadLetters())
		sinks = append(sinks, crm.NewArchiveSink(archive, log))
		log.Info("storage service initialized", "deadLettersBucket", archive.Bucket())
	} else {
		log.Warn("MINIO_ENDPOINT not configured; dead letters are logged only")
	}

	var (
		queue    *crm.Queue
		crmQueue service.CRMQueue
	)
	if crm.Enabled(provider) {
		queue = crm.NewQueue(provider, repo, sinks, log)
		crmQueue = queue
		log.Info("crm delivery enabled", "provider", provider.Name())
	} else {
		log.Warn("CRM_PROVIDER is none; leads are not delivered to a CRM")
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Notification module subscribes to domain events (not HTTP-facing)
	notificationModule := notification.New(sender, cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	var counter assignment.Counter
	if cfg.GetRoundRobinBackend() == "redis" && redisClient != nil {
		counter = assignment.NewRedisCounter(redisClient, roundRobinKey)
	}

	dispatcher := followups.NewDispatcher(repo, sender, cfg.GetEmailTo(), log)
	var sweeper handler.FollowupSweeper = dispatcher
	if redisClient != nil {
		// Share the scheduler's lock so a cron call never races the periodic sweep
		sweeper = scheduler.NewLockedSweeper(dispatcher, redisClient, log)
	}

	handlerOpts := []handler.Option{handler.WithFollowupSweeper(sweeper)}
	if queue != nil {
		handlerOpts = append(handlerOpts, handler.WithQueueStats(queue))
	}
	if diagnoser, ok := provider.(handler.CRMDiagnoser); ok {
		handlerOpts = append(handlerOpts, handler.WithCRMDiagnoser(diagnoser))
	}
	if archive != nil {
		handlerOpts = append(handlerOpts, handler.WithDeadLetterArchive(archive))
	}

	leadsModule, err := leads.NewModule(repo, eventBus, val, cfg, counter, crmQueue, log, handlerOpts...)
	if err != nil {
		log.Error("failed to initialize leads module", "error", err)
		panic("failed to initialize leads module: " + err.Error())
	}

	modules := []apphttp.Module{leadsModule}
	if cfg.GetGoogleLeadWebhookKey() != "" {
		modules = append(modules, webhook.NewModule(leadsModule.Service(), cfg, val, log))
	} else {
		log.Warn("GOOGLE_LEAD_WEBHOOK_KEY not configured; Google lead form webhook disabled")
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules:  modules,
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
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "error", err)
	}
	if queue != nil {
		if err := queue.Close(shutdownCtx); err != nil {
			log.Error("crm queue shutdown failed", "error", err)
		}
	}
	eventBus.Wait()
	log.Info("server stopped")
}

func initRedis(cfg config.RedisConfig, log *logger.Logger) (*redis.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; round-robin and sweep locks are process-local")
		return nil, nil
	}

	client, err := scheduler.NewRedisClient(cfg)
	if err != nil {
		log.Error("failed to initialize redis client", "error", err)
		return nil, nil
	}

	return client, func() {
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

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	adminservice "votedeck/internal/admin/service"
	adminmemory "votedeck/internal/admin/store/memory"
	adminpostgres "votedeck/internal/admin/store/postgres"
	ballotservice "votedeck/internal/ballot/service"
	ballotmemory "votedeck/internal/ballot/store/memory"
	ballotpostgres "votedeck/internal/ballot/store/postgres"
	catalogservice "votedeck/internal/catalog/service"
	catalogmemory "votedeck/internal/catalog/store/memory"
	catalogpostgres "votedeck/internal/catalog/store/postgres"
	"votedeck/internal/jwttoken"
	"votedeck/internal/platform/config"
	"votedeck/internal/platform/httpserver"
	"votedeck/internal/platform/logger"
	"votedeck/internal/platform/metrics"
	"votedeck/internal/platform/middleware"
	platformpostgres "votedeck/internal/platform/postgres"
	platformredis "votedeck/internal/platform/redis"
	"votedeck/internal/settings"
	settingsmemory "votedeck/internal/settings/store/memory"
	settingspostgres "votedeck/internal/settings/store/postgres"
	"votedeck/internal/stats"
	httptransport "votedeck/internal/transport/http"
	"votedeck/internal/upload"
	audit "votedeck/pkg/platform/audit"
	auditkafka "votedeck/pkg/platform/audit/kafka"
	"votedeck/pkg/platform/audit/publisher"
	auditmemory "votedeck/pkg/platform/audit/store/memory"
	auditpostgres "votedeck/pkg/platform/audit/store/postgres"
	"votedeck/pkg/platform/rediscache"
	txcontext "votedeck/pkg/platform/tx"
)

// main wires the dependency graph and owns the process lifecycle. Business
// logic lives in the internal service packages.
func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Missing .env is fine; the environment itself may be fully configured.
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(os.Getenv("LOG_LEVEL"))
	slog.SetDefault(log)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Persistence.
	var (
		catalogStore  catalogservice.Store
		ballotStore   ballotservice.Store
		adminStore    adminservice.Store
		settingsStore settings.Store
		auditStore    audit.Store
		runner        txcontext.Runner = txcontext.NopRunner{}
		outbox        auditkafka.Outbox
	)
	switch cfg.Storage {
	case "postgres":
		db, err := platformpostgres.Open(rootCtx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := platformpostgres.CreateSchema(rootCtx, db); err != nil {
			return err
		}

		catalogStore = catalogpostgres.New(db)
		ballotStore = ballotpostgres.New(db)
		adminStore = adminpostgres.New(db)
		settingsStore = settingspostgres.New(db)
		pgAudit := auditpostgres.New(db)
		auditStore = pgAudit
		outbox = pgAudit
		runner = txcontext.SQLRunner{DB: db}
	default:
		catalogStore = catalogmemory.NewInMemoryStore()
		ballotStore = ballotmemory.NewInMemoryStore()
		adminStore = adminmemory.NewInMemoryStore()
		settingsStore = settingsmemory.NewInMemoryStore()
		auditStore = auditmemory.NewInMemoryStore()
	}

	// Redis powers the dashboard cache and the shared submit rate limiter;
	// without it both fall back to in-process equivalents.
	redisClient, err := platformredis.New(rootCtx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	auditPub := publisher.NewPublisher(auditStore,
		publisher.WithAsyncBuffer(256),
		publisher.WithLogger(log),
	)
	defer auditPub.Close()

	tokens, err := jwttoken.New(cfg.JWTSecret, jwttoken.WithTTL(cfg.JWTTTL))
	if err != nil {
		return err
	}

	// Services.
	catalogSvc, err := catalogservice.New(catalogStore, ballotStore,
		catalogservice.WithAuditPublisher(auditPub),
		catalogservice.WithLogger(log),
	)
	if err != nil {
		return err
	}

	settingsSvc, err := settings.NewService(settingsStore,
		settings.WithAuditPublisher(auditPub),
		settings.WithLogger(log),
	)
	if err != nil {
		return err
	}

	ballotSvc, err := ballotservice.New(ballotStore, catalogSvc, settingsSvc,
		ballotservice.WithTxRunner(runner),
		ballotservice.WithAuditPublisher(auditPub),
		ballotservice.WithMetrics(m),
		ballotservice.WithLogger(log),
	)
	if err != nil {
		return err
	}

	adminSvc, err := adminservice.New(adminStore, tokens,
		adminservice.WithAuditPublisher(auditPub),
		adminservice.WithLogger(log),
	)
	if err != nil {
		return err
	}
	if err := adminSvc.EnsureBootstrapAdmin(rootCtx, cfg.BootstrapAdminUser, cfg.BootstrapAdminPassword); err != nil {
		return err
	}

	statsOpts := []stats.Option{stats.WithLogger(log)}
	if redisClient != nil {
		statsOpts = append(statsOpts, stats.WithCache(rediscache.New(redisClient.Client), 15*time.Second))
	}
	statsSvc, err := stats.New(ballotStore, catalogSvc, statsOpts...)
	if err != nil {
		return err
	}

	uploadSvc, err := upload.New(cfg.UploadDir, "/uploads", upload.WithLogger(log))
	if err != nil {
		return err
	}

	var limiter middleware.Limiter
	if redisClient != nil {
		limiter = middleware.NewRedisLimiter(redisClient.Client, cfg.SubmitRateLimit, time.Minute)
	} else {
		limiter = middleware.NewMemoryLimiter(cfg.SubmitRateLimit, time.Minute)
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Catalog:        catalogSvc,
		Ballots:        ballotSvc,
		Admins:         adminSvc,
		Settings:       settingsSvc,
		Stats:          statsSvc,
		Uploads:        uploadSvc,
		AuditLog:       auditPub,
		Tokens:         tokens,
		Metrics:        m,
		MetricsHandler: m.Handler(),
		SubmitLimiter:  limiter,
		Logger:         log,
	})

	srv := httpserver.New(cfg.Addr, router)

	group, ctx := errgroup.WithContext(rootCtx)

	group.Go(func() error {
		log.Info("starting votedeck", "addr", cfg.Addr, "storage", cfg.Storage)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// The audit relay only runs with both postgres (the outbox) and Kafka
	// configured.
	if outbox != nil && len(cfg.KafkaBrokers) > 0 {
		relay, err := auditkafka.NewRelay(cfg.KafkaBrokers, cfg.KafkaTopic, outbox,
			auditkafka.WithLogger(log),
		)
		if err != nil {
			return err
		}
		defer relay.Close()

		if err := relay.EnsureTopic(rootCtx); err != nil {
			return err
		}
		group.Go(func() error {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("audit relay: %w", err)
			}
			return nil
		})
		log.Info("audit relay started", "topic", cfg.KafkaTopic)
	}

	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"atelier/internal/changelog"
	"atelier/internal/content"
	"atelier/internal/platform/config"
	"atelier/internal/platform/httpserver"
	"atelier/internal/platform/logger"
	"atelier/internal/platform/metrics"
	"atelier/internal/platform/postgres"
	platformredis "atelier/internal/platform/redis"
	"atelier/internal/revision"
	"atelier/internal/sync"
	httptransport "atelier/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores: Postgres when a DSN is configured, in-memory otherwise.
	var (
		contentStore  content.Store
		changeStore   changelog.Store
		revisionStore revision.Store
	)
	if cfg.PostgresDSN != "" {
		db, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Error("postgres connect failed", "error", err.Error())
			os.Exit(1)
		}
		defer db.Close()
		contentStore = content.NewPostgresStore(db)
		changeStore = changelog.NewPostgresStore(db)
		revisionStore = revision.NewPostgresStore(db)
		log.Info("using postgres stores")
	} else {
		contentStore = content.NewMemoryStore()
		changeStore = changelog.NewMemoryStore()
		revisionStore = revision.NewMemoryStore()
		log.Info("using in-memory stores")
	}

	// Transport: Redis pub/sub when configured, in-process fan-out otherwise.
	var transport sync.Transport
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connect failed", "error", err.Error())
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		transport = sync.NewRedisTransport(redisClient.Client, sync.WithRedisLogger(log))
		log.Info("using redis transport")
	} else {
		transport = sync.NewMemoryTransport()
		log.Info("using in-memory transport")
	}

	// Change log pipeline: outbox retries failed appends, and optionally
	// mirrors accepted records to Kafka.
	outboxOpts := []changelog.OutboxOption{
		changelog.WithOutboxLogger(log),
		changelog.WithOutboxMetrics(m),
	}
	if len(cfg.KafkaBrokers) > 0 {
		sink, err := changelog.NewKafkaSink(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Error("kafka sink init failed", "error", err.Error())
			os.Exit(1)
		}
		defer sink.Close()
		outboxOpts = append(outboxOpts, changelog.WithSink(sink))
		log.Info("kafka change sink enabled", "topic", cfg.KafkaTopic)
	}
	outbox := changelog.NewOutbox(changeStore, cfg.OutboxBuffer, cfg.OutboxBackoff, outboxOpts...)
	recorder := changelog.NewRecorder(changeStore,
		changelog.WithLogger(log),
		changelog.WithMetrics(m),
		changelog.WithOutbox(outbox),
	)

	publisher := sync.NewPublisher(transport, m)
	contentService := content.NewService(contentStore, recorder,
		content.WithLogger(log),
		content.WithMetrics(m),
		content.WithNotifier(publisher),
	)
	revisionService := revision.NewService(revisionStore, revision.WithLogger(log))

	// Live view: a manager + reconciler pair keeps a warm per-topic cache
	// that refetches whenever a change signal lands.
	manager := sync.NewManager(transport,
		sync.WithManagerLogger(log),
		sync.WithManagerMetrics(m),
	)
	defer manager.Close()
	reconciler := sync.NewReconciler(contentStore,
		sync.WithReconcilerLogger(log),
		sync.WithReconcilerMetrics(m),
	)
	if _, err := reconciler.Attach(ctx, manager, content.Topics()...); err != nil {
		log.Error("live view attach failed", "error", err.Error())
		os.Exit(1)
	}

	router := httptransport.NewRouter(log, m,
		httptransport.NewContentHandler(contentService, log),
		httptransport.NewChangesHandler(recorder, log),
		httptransport.NewRevisionsHandler(revisionService, log),
		httptransport.NewSyncHandler(contentService, log),
		httptransport.NewLiveHandler(reconciler, log),
	)
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return outbox.Run(gctx)
	})
	g.Go(func() error {
		log.Info("starting atelier", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server error", "error", err.Error())
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	connectionservice "idvault/internal/connection/service"
	consentmetrics "idvault/internal/consent/metrics"
	consentservice "idvault/internal/consent/service"
	identitymetrics "idvault/internal/identity/metrics"
	identityservice "idvault/internal/identity/service"
	userstore "idvault/internal/identity/store/user"
	"idvault/internal/platform/config"
	"idvault/internal/platform/httpserver"
	platformkafka "idvault/internal/platform/kafka"
	kafkaconsumer "idvault/internal/platform/kafka/consumer"
	"idvault/internal/platform/logger"
	platformpg "idvault/internal/platform/postgres"
	platformredis "idvault/internal/platform/redis"
	httptransport "idvault/internal/transport/http"
	audit "idvault/pkg/platform/audit"
	auditconsumer "idvault/pkg/platform/audit/consumer"
	auditpublisher "idvault/pkg/platform/audit/publisher"
	auditkafka "idvault/pkg/platform/audit/store/kafka"
	auditmemory "idvault/pkg/platform/audit/store/memory"
	auditpostgres "idvault/pkg/platform/audit/store/postgres"
)

// services is the composition root for the domain layer. Domain operations
// are consumed as a library by the surrounding platform; this binary hosts
// them alongside the audit pipeline and the operational HTTP surface.
type services struct {
	Identity    *identityservice.Service
	Consents    *consentservice.Service
	Connections *connectionservice.Service
}

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	handler := httptransport.NewHandler(log)

	store, cleanup, err := buildUserStore(ctx, cfg, handler)
	if err != nil {
		return err
	}
	defer cleanup()

	publisher, auditStore, auditCleanup, err := buildAuditPipeline(ctx, cfg, log, handler)
	if err != nil {
		return err
	}
	defer auditCleanup()

	locks := userstore.NewKeyed()
	svcs := services{
		Identity: identityservice.New(store,
			identityservice.WithLogger(log),
			identityservice.WithAuditPublisher(publisher),
			identityservice.WithMetrics(identitymetrics.New()),
			identityservice.WithUserLock(locks),
		),
		Consents: consentservice.New(store,
			consentservice.WithLogger(log),
			consentservice.WithAuditPublisher(publisher),
			consentservice.WithMetrics(consentmetrics.New()),
			consentservice.WithUserLock(locks),
		),
		Connections: connectionservice.New(store,
			connectionservice.WithLogger(log),
			connectionservice.WithAuditPublisher(publisher),
			connectionservice.WithUserLock(locks),
		),
	}
	log.Info("domain services initialized",
		"store", cfg.Store.Kind,
		"identity", svcs.Identity != nil,
		"consents", svcs.Consents != nil,
		"connections", svcs.Connections != nil,
	)

	srv := httpserver.New(cfg.Server.Addr, httptransport.NewRouter(handler))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting idvault", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if consumer := buildMaterializer(cfg, log, auditStore); consumer != nil {
		defer consumer.Close()
		g.Go(func() error {
			return consumer.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	publisher.Close()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// buildUserStore selects the aggregate backend per IDVAULT_STORE and registers
// its readiness check.
func buildUserStore(ctx context.Context, cfg config.Config, handler *httptransport.Handler) (userstore.Store, func(), error) {
	switch cfg.Store.Kind {
	case config.StoreMemory:
		return userstore.NewInMemoryStore(), func() {}, nil

	case config.StoreRedis:
		client, err := platformredis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("redis store: %w", err)
		}
		if client == nil {
			return nil, nil, errors.New("redis store selected but REDIS_URL is empty")
		}
		handler.RegisterCheck("redis", client)
		return userstore.NewRedisStore(client.Client), func() { _ = client.Close() }, nil

	case config.StorePostgres:
		pool, err := platformpg.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres store: %w", err)
		}
		if pool == nil {
			return nil, nil, errors.New("postgres store selected but DATABASE_URL is empty")
		}
		handler.RegisterCheck("postgres", httptransport.HealthFunc(pool.Ping))
		store := userstore.NewPostgresStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres schema: %w", err)
		}
		return store, pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store kind %q", cfg.Store.Kind)
	}
}

// buildAuditPipeline assembles the audit trail: a primary queryable store
// (Postgres when configured, in-memory otherwise) plus the optional Kafka
// stream, with the async publisher on top.
//
// With both Kafka and Postgres configured, writes go to the stream only and
// the materializer consumer is the single writer of the Postgres store.
// With Kafka but no Postgres, the stream is teed next to the in-memory store.
func buildAuditPipeline(ctx context.Context, cfg config.Config, log *slog.Logger, handler *httptransport.Handler) (*auditpublisher.Publisher, audit.Store, func(), error) {
	var (
		primary audit.Store
		cleanup = func() {}
	)
	if cfg.Postgres.URL != "" {
		db, err := sql.Open("postgres", cfg.Postgres.URL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("audit store: %w", err)
		}
		store := auditpostgres.New(db)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, nil, fmt.Errorf("audit schema: %w", err)
		}
		primary = store
		cleanup = func() { _ = db.Close() }
	} else {
		primary = auditmemory.NewInMemoryStore()
	}

	sinkTarget := primary
	if len(cfg.Audit.KafkaBrokers) > 0 {
		topic := cfg.Audit.KafkaTopic
		if topic == "" {
			topic = auditkafka.DefaultTopic
		}
		if err := platformkafka.EnsureTopic(ctx, cfg.Audit.KafkaBrokers, topic, 1); err != nil {
			cleanup()
			return nil, nil, nil, err
		}
		producer, err := platformkafka.NewProducer(cfg.Audit.KafkaBrokers)
		if err != nil {
			cleanup()
			return nil, nil, nil, err
		}
		handler.RegisterCheck("kafka", httptransport.HealthFunc(func(ctx context.Context) error {
			return platformkafka.EnsureTopic(ctx, cfg.Audit.KafkaBrokers, topic, 1)
		}))
		prevCleanup := cleanup
		cleanup = func() {
			producer.Close()
			prevCleanup()
		}
		sink := auditkafka.NewSink(producer, topic)
		if cfg.Postgres.URL != "" {
			sinkTarget = audit.NewStreamed(sink, primary)
		} else {
			sinkTarget = audit.NewTee(primary, log, sink)
		}
	}

	publisher := auditpublisher.NewPublisher(sinkTarget,
		auditpublisher.WithAsyncBuffer(cfg.Audit.BufferSize),
		auditpublisher.WithLogger(log),
	)
	return publisher, primary, cleanup, nil
}

// buildMaterializer starts the consumer that replays the audit topic into the
// queryable store. Active only when both Kafka and Postgres are configured;
// the consumer is then the single writer of the Postgres audit store.
func buildMaterializer(cfg config.Config, log *slog.Logger, store audit.Store) *kafkaconsumer.Consumer {
	if len(cfg.Audit.KafkaBrokers) == 0 {
		return nil
	}
	materialized, ok := store.(auditconsumer.MaterializedStore)
	if !ok {
		return nil
	}
	topic := cfg.Audit.KafkaTopic
	if topic == "" {
		topic = auditkafka.DefaultTopic
	}
	consumer, err := kafkaconsumer.New(cfg.Audit.KafkaBrokers, "idvault-audit-materializer",
		[]string{topic}, auditconsumer.NewMaterializer(materialized), log)
	if err != nil {
		log.Error("audit materializer disabled", "error", err)
		return nil
	}
	return consumer
}

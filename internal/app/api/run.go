package api

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

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/errgroup"

	bankclient "github.com/Apurer/procurement-engine/internal/clients/http/bank"
	logisticsclient "github.com/Apurer/procurement-engine/internal/clients/http/logistics"
	supplierclient "github.com/Apurer/procurement-engine/internal/clients/http/supplier"
	procurementkafka "github.com/Apurer/procurement-engine/internal/domains/procurement/adapters/events/kafka"
	"github.com/Apurer/procurement-engine/internal/domains/procurement/adapters/external/partners"
	procurementhttp "github.com/Apurer/procurement-engine/internal/domains/procurement/adapters/http"
	redislease "github.com/Apurer/procurement-engine/internal/domains/procurement/adapters/lease/redis"
	procurementmemory "github.com/Apurer/procurement-engine/internal/domains/procurement/adapters/memory"
	procurementobs "github.com/Apurer/procurement-engine/internal/domains/procurement/adapters/observability"
	procurementpostgres "github.com/Apurer/procurement-engine/internal/domains/procurement/adapters/persistence/postgres"
	procurementworkflows "github.com/Apurer/procurement-engine/internal/domains/procurement/adapters/workflows"
	"github.com/Apurer/procurement-engine/internal/domains/procurement/application"
	"github.com/Apurer/procurement-engine/internal/domains/procurement/application/commands"
	"github.com/Apurer/procurement-engine/internal/domains/procurement/ports"
	platformkafka "github.com/Apurer/procurement-engine/internal/platform/kafka"
	"github.com/Apurer/procurement-engine/internal/platform/migrations"
	platformobservability "github.com/Apurer/procurement-engine/internal/platform/observability"
	platformpostgres "github.com/Apurer/procurement-engine/internal/platform/postgres"
	platformredis "github.com/Apurer/procurement-engine/internal/platform/redis"
	"github.com/Apurer/procurement-engine/internal/platform/settings"
	platformtemporal "github.com/Apurer/procurement-engine/internal/platform/temporal"
)

const serviceName = "procurement-engine"

// Run boots the procurement API, the workflow driver and the delivery consumer, and blocks until ctx is cancelled.
func Run(ctx context.Context) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	store, err := settings.Load()
	if err != nil {
		return fmt.Errorf("load workflow settings: %w", err)
	}
	instruments, shutdown, err := platformobservability.Init(ctx, platformobservability.Options{
		ServiceName:  serviceName,
		Environment:  cfg.Environment,
		LogLevel:     cfg.LogLevel,
		LogFormat:    cfg.LogFormat,
		OTLPEndpoint: cfg.OTLPEndpoint,
		OTLPInsecure: cfg.OTLPInsecure,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	repo, idempotency, cleanupRepo := buildRepository(ctx, cfg, logger)
	defer cleanupRepo()
	publisher, closePublisher := buildPublisher(cfg, logger)
	defer closePublisher()
	lease, closeLease := buildLease(ctx, cfg, logger)
	defer closeLease()

	factory, err := buildFactory(cfg, repo, store)
	if err != nil {
		return err
	}
	coreQueue := application.NewQueue(repo, factory, store,
		application.WithQueueLogger(logger),
		application.WithDrainLease(lease, cfg.LeaseTTL),
		application.WithEventPublisher(publisher),
	)
	queue := procurementobs.NewQueue(coreQueue,
		procurementobs.WithLogger(logger),
		procurementobs.WithTracer(instruments.Tracer("internal.procurement.queue")),
		procurementobs.WithMeter(instruments.Meter("internal.procurement.queue")),
	)
	coreService := application.NewService(repo, queue,
		application.WithServiceEvents(publisher),
		application.WithServiceLogger(logger),
		application.WithIdempotencyStore(idempotency),
	)
	service := procurementobs.New(coreService,
		procurementobs.WithLogger(logger),
		procurementobs.WithTracer(instruments.Tracer("internal.procurement.application")),
		procurementobs.WithMeter(instruments.Meter("internal.procurement.application")),
	)

	driver, closeDriver := buildDriver(cfg, queue, store, instruments)
	defer closeDriver()

	router := gin.New()
	router.Use(gin.Recovery(), otelgin.Middleware(serviceName))
	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	procurementhttp.NewAPI(service, queue, store).Register(router)
	srv := &http.Server{Addr: cfg.Addr(), Handler: router, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return driver.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("procurement API listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("procurement API server exited: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(stopCtx)
	})
	g.Go(func() error {
		watchReload(gctx, store, logger)
		return nil
	})
	if len(cfg.KafkaBrokers) > 0 {
		reader := platformkafka.NewReader(cfg.KafkaBrokers, cfg.KafkaGroupID, cfg.KafkaDeliveryTopic)
		consumer := platformkafka.NewConsumer(reader, platformkafka.WithConsumerLogger(logger))
		handler := procurementkafka.NewDeliveryHandler(service, logger, procurementkafka.WithProcessedMessages(idempotency))
		g.Go(func() error {
			return consumer.Start(gctx, handler.Handle)
		})
	}
	return g.Wait()
}

// watchReload re-reads workflow settings from the environment on SIGHUP.
func watchReload(ctx context.Context, store *settings.Store, logger *slog.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := store.Reload(); err != nil {
				logger.Warn("workflow settings reload failed, keeping previous values", slog.String("error", err.Error()))
				continue
			}
			current := store.Current()
			logger.Info("workflow settings reloaded",
				slog.Bool("processingEnabled", current.ProcessingEnabled),
				slog.Int("intervalSeconds", current.IntervalSeconds),
				slog.Int("maxRetries", current.MaxRetries))
		}
	}
}

func buildRepository(ctx context.Context, cfg Config, logger *slog.Logger) (ports.Repository, ports.IdempotencyStore, func()) {
	memoryFallback := func() (ports.Repository, ports.IdempotencyStore, func()) {
		return procurementmemory.NewRepository(), procurementmemory.NewIdempotencyStore(), func() {}
	}
	if cfg.PostgresDSN == "" {
		logger.Warn("POSTGRES_DSN not set, falling back to in-memory purchase order repository")
		return memoryFallback()
	}
	db, closeDB, err := platformpostgres.Connect(ctx, cfg.PostgresDSN, platformpostgres.Pool{
		MaxOpenConns:    cfg.PostgresMaxOpenConns,
		ConnMaxLifetime: cfg.PostgresConnLifetime,
	})
	if err != nil {
		logger.Warn("failed to connect to postgres, falling back to memory", slog.String("error", err.Error()))
		return memoryFallback()
	}
	if err := migrations.Run(db); err != nil {
		logger.Warn("failed to migrate postgres, falling back to memory", slog.String("error", err.Error()))
		closeDB()
		return memoryFallback()
	}
	logger.Info("purchase order repository configured with postgres")
	return procurementpostgres.NewRepository(db), procurementpostgres.NewIdempotencyStore(db), closeDB
}

func buildPublisher(cfg Config, logger *slog.Logger) (ports.EventPublisher, func()) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Warn("KAFKA_BROKERS not set, status change events are dropped")
		return ports.NopPublisher{}, func() {}
	}
	publisher := procurementkafka.NewPublisher(platformkafka.NewWriter(cfg.KafkaBrokers, cfg.KafkaStatusTopic), serviceName)
	logger.Info("status change events published to kafka", slog.String("topic", cfg.KafkaStatusTopic))
	return publisher, func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("failed to close kafka writer", slog.String("error", err.Error()))
		}
	}
}

func buildLease(ctx context.Context, cfg Config, logger *slog.Logger) (ports.DrainLease, func()) {
	if cfg.RedisAddr == "" {
		return procurementmemory.NewLease(), func() {}
	}
	client, err := platformredis.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Warn("redis unavailable, drain lease is process-local", slog.String("error", err.Error()))
		return procurementmemory.NewLease(), func() {}
	}
	logger.Info("drain lease configured with redis", slog.String("key", redislease.DefaultKey))
	return redislease.NewLease(client, redislease.DefaultKey), func() { _ = client.Close() }
}

func buildFactory(cfg Config, repo ports.Repository, store ports.SettingsProvider) (*commands.Factory, error) {
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	bank, err := bankclient.NewBankClient(cfg.BankURL, httpClient)
	if err != nil {
		return nil, err
	}
	logistics, err := logisticsclient.NewLogisticsClient(cfg.LogisticsURL, httpClient)
	if err != nil {
		return nil, err
	}
	supplier, err := supplierclient.NewSupplierClient(cfg.SupplierURL, httpClient)
	if err != nil {
		return nil, err
	}
	return commands.NewFactory(repo,
		partners.NewBank(bank),
		partners.NewLogistics(logistics),
		partners.NewCatalog(supplier),
		store,
	), nil
}

func buildDriver(cfg Config, queue ports.WorkflowQueue, store ports.SettingsProvider, instruments *platformobservability.Instruments) (ports.Driver, func()) {
	logger := instruments.Logger
	if cfg.Driver != DriverTemporal {
		return application.NewDriver(queue, store, logger), func() {}
	}
	temporalClient, err := platformtemporal.Dial(cfg.TemporalAddress, cfg.TemporalNamespace, logger, instruments.Tracer("temporal-client"))
	if err != nil {
		logger.Warn("Temporal unavailable, draining with the inline driver", slog.String("error", err.Error()))
		return application.NewDriver(queue, store, logger), func() {}
	}
	logger.Info("Temporal queue driver enabled",
		slog.String("namespace", cfg.TemporalNamespace),
		slog.String("instance", cfg.InstanceID))
	return procurementworkflows.NewTemporalDriver(temporalClient, queue, store, cfg.InstanceID, logger), temporalClient.Close
}

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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/hostelhub-backend/api/controllers"
	"github.com/angelmondragon/hostelhub-backend/api/middleware"
	"github.com/angelmondragon/hostelhub-backend/api/routes"
	"github.com/angelmondragon/hostelhub-backend/internal/auth"
	"github.com/angelmondragon/hostelhub-backend/internal/complaints"
	"github.com/angelmondragon/hostelhub-backend/internal/cron"
	"github.com/angelmondragon/hostelhub-backend/internal/docstore"
	"github.com/angelmondragon/hostelhub-backend/internal/entities"
	"github.com/angelmondragon/hostelhub-backend/internal/notifications"
	"github.com/angelmondragon/hostelhub-backend/internal/provisioning"
	"github.com/angelmondragon/hostelhub-backend/internal/repository"
	"github.com/angelmondragon/hostelhub-backend/pkg/bigquery"
	"github.com/angelmondragon/hostelhub-backend/pkg/config"
	"github.com/angelmondragon/hostelhub-backend/pkg/db"
	"github.com/angelmondragon/hostelhub-backend/pkg/instance"
	"github.com/angelmondragon/hostelhub-backend/pkg/logger"
	"github.com/angelmondragon/hostelhub-backend/pkg/metrics"
	"github.com/angelmondragon/hostelhub-backend/pkg/migrate"
	"github.com/angelmondragon/hostelhub-backend/pkg/pubsub"
	"github.com/angelmondragon/hostelhub-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	storeMetrics := metrics.NewStoreMetrics(registry)
	pingers := map[string]controllers.Pinger{}

	var backing docstore.Store
	switch cfg.Store.Backend {
	case config.StoreBackendSQL:
		dbClient, err := db.New(ctx, cfg.DB, logg)
		requireResource(ctx, logg, "database", err)
		defer func() {
			if err := dbClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing database", err)
			}
		}()
		requireResource(ctx, logg, "dev migrations", migrate.MaybeRunDev(ctx, cfg, logg, dbClient))
		sqlStore, err := docstore.NewSQLStore(docstore.SQLStoreParams{
			DB:             dbClient,
			RepairAttempts: cfg.Store.RepairAttempts,
			Logger:         logg,
			Metrics:        storeMetrics,
		})
		requireResource(ctx, logg, "sql store", err)
		backing = sqlStore
		pingers["store"] = sqlStore
	default:
		fileStore, err := docstore.NewFileStore(docstore.FileStoreParams{
			Path:           cfg.Store.Path,
			RepairAttempts: cfg.Store.RepairAttempts,
			Logger:         logg,
			Metrics:        storeMetrics,
		})
		requireResource(ctx, logg, "file store", err)
		backing = fileStore
		pingers["store"] = fileStore
	}

	serializer, err := docstore.NewSerializer(docstore.SerializerParams{
		Store:        backing,
		Logger:       logg,
		Metrics:      storeMetrics,
		QueueSize:    cfg.Store.QueueSize,
		WriteTimeout: cfg.Store.WriteTimeout,
	})
	requireResource(ctx, logg, "write serializer", err)
	defer func() {
		if err := serializer.Close(); err != nil {
			logg.Error(context.Background(), "error draining write serializer", err)
		}
	}()

	repo, err := repository.New(ctx, repository.Params{Store: backing, Writer: serializer, Logger: logg})
	requireResource(ctx, logg, "repository", err)

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		requireResource(ctx, logg, "redis", err)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		pingers["redis"] = redisClient
	}

	notificationMetrics := metrics.NewNotificationMetrics(registry)
	hub := notifications.NewHub(notifications.HubParams{Logger: logg, Metrics: notificationMetrics})
	notificationLog := notifications.NewLog(cfg.Notifications.LogCapacity, nil)
	subscriptions := notifications.NewSubscriptionRegistry(nil)

	var pusher notifications.Pusher
	if cfg.Notifications.FCMEnabled {
		fcmPusher, err := notifications.NewFCMPusher(ctx, cfg.GCP)
		requireResource(ctx, logg, "fcm", err)
		pusher = fcmPusher
	}

	var sinks []notifications.Sink
	if cfg.PubSub.Enabled() {
		psClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		requireResource(ctx, logg, "pubsub", err)
		defer func() {
			if err := psClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		sink, err := notifications.NewPubSubSink(notifications.TopicPublisher{Publisher: psClient.EventsPublisher()})
		requireResource(ctx, logg, "pubsub sink", err)
		sinks = append(sinks, sink)
		pingers["pubsub"] = psClient
	}
	if cfg.BigQuery.Enabled() {
		bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
		requireResource(ctx, logg, "bigquery", err)
		defer func() {
			if err := bqClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing bigquery", err)
			}
		}()
		sink, err := notifications.NewBigQuerySink(bqClient, bqClient.EventsTable())
		requireResource(ctx, logg, "bigquery sink", err)
		sinks = append(sinks, sink)
		pingers["bigquery"] = bqClient
	}

	var (
		relay      notifications.Relay
		redisRelay *notifications.RedisRelay
	)
	if redisClient != nil {
		redisRelay, err = notifications.NewRedisRelay(notifications.RedisRelayParams{
			Client:  redisClient,
			Channel: cfg.Notifications.RelayChannel,
			Logger:  logg,
		})
		requireResource(ctx, logg, "notification relay", err)
		relay = redisRelay
	}

	dispatcher, err := notifications.NewDispatcher(notifications.DispatcherParams{
		Hub:             hub,
		Subscriptions:   subscriptions,
		Log:             notificationLog,
		Pusher:          pusher,
		Directory:       notifications.NewUserDirectory(repo),
		Relay:           relay,
		Sinks:           sinks,
		Logger:          logg,
		Metrics:         notificationMetrics,
		DeliveryTimeout: cfg.Notifications.DeliveryTimeout,
	})
	requireResource(ctx, logg, "notification dispatcher", err)

	if redisRelay != nil {
		go func() {
			err := redisRelay.Run(ctx, func(ctx context.Context, e notifications.Event) {
				dispatcher.Deliver(ctx, e)
			})
			if err != nil {
				logg.Error(ctx, "notification relay stopped", err)
			}
		}()
	}

	provisioner, err := provisioning.NewProvisioner(provisioning.ProvisionerParams{
		Config:   cfg.Provisioning,
		Password: cfg.Password,
		Logger:   logg,
	})
	requireResource(ctx, logg, "provisioner", err)

	complaintService, err := complaints.NewService(complaints.ServiceParams{Repo: repo, Publisher: dispatcher, Logger: logg})
	requireResource(ctx, logg, "complaint service", err)

	entityService, err := entities.NewService(entities.ServiceParams{
		Repo:        repo,
		Provisioner: provisioner,
		Complaints:  complaintService,
		Publisher:   dispatcher,
		Password:    cfg.Password,
		Logger:      logg,
	})
	requireResource(ctx, logg, "entity service", err)

	approvals, err := provisioning.NewApprovalService(provisioning.ApprovalParams{
		Repo:        repo,
		Provisioner: provisioner,
		Publisher:   dispatcher,
		Logger:      logg,
	})
	requireResource(ctx, logg, "approval service", err)

	authService, err := auth.NewService(auth.ServiceParams{
		Repo:         repo,
		JWTConfig:    cfg.JWT,
		AuthConfig:   cfg.Auth,
		Provisioning: cfg.Provisioning,
		Password:     cfg.Password,
		Logger:       logg,
	})
	requireResource(ctx, logg, "auth service", err)

	if cfg.Cron.Enabled {
		cronService, err := buildCron(cfg, logg, registry, repo, dispatcher, notificationLog, redisClient)
		requireResource(ctx, logg, "cron service", err)
		go func() {
			if err := cronService.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logg.Error(ctx, "cron stopped unexpectedly", err)
			}
		}()
	}

	var rateStore middleware.RateLimiterStore
	if redisClient != nil {
		rateStore = redisClient
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
		"store":    cfg.Store.Backend,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Dependencies{
			Entities:      entityService,
			Complaints:    complaintService,
			Approvals:     approvals,
			Auth:          authService,
			Hub:           hub,
			Log:           notificationLog,
			Subscriptions: subscriptions,
			RateStore:     rateStore,
			Pingers:       pingers,
			HTTPMetrics:   metrics.NewHTTPMetrics(registry),
			Gatherer:      registry,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logg.Error(logCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	logg.Info(logCtx, "api server shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(logCtx, "api server shutdown failed", err)
	}
	hub.Shutdown()
}

func buildCron(
	cfg *config.Config,
	logg *logger.Logger,
	reg prometheus.Registerer,
	repo *repository.Repository,
	dispatcher *notifications.Dispatcher,
	notificationLog *notifications.Log,
	redisClient *redis.Client,
) (*cron.Service, error) {
	var lock cron.Lock = cron.NewLocalLock()
	if redisClient != nil {
		redisLock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron:"+cfg.App.Env), 0)
		if err != nil {
			return nil, fmt.Errorf("cron lock: %w", err)
		}
		lock = redisLock
	}

	trialJob, err := cron.NewTrialExpiryJob(cron.TrialExpiryJobParams{Logger: logg, Repo: repo, Publisher: dispatcher})
	if err != nil {
		return nil, err
	}
	cleanupJob, err := cron.NewLogCleanupJob(cron.LogCleanupJobParams{
		Logger:    logg,
		Log:       notificationLog,
		Retention: cfg.Notifications.LogRetention,
	})
	if err != nil {
		return nil, err
	}

	return cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(trialJob, cleanupJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(reg),
		Interval: cfg.Cron.Interval,
	})
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("failed to bootstrap %s", resource), err)
	os.Exit(1)
}

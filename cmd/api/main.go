package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/consignedbydesign/delivery-platform/internal/api/router"
	"github.com/consignedbydesign/delivery-platform/internal/catalog"
	appconfig "github.com/consignedbydesign/delivery-platform/internal/config"
	"github.com/consignedbydesign/delivery-platform/internal/conversation"
	"github.com/consignedbydesign/delivery-platform/internal/http/handlers"
	"github.com/consignedbydesign/delivery-platform/internal/notify"
	observemetrics "github.com/consignedbydesign/delivery-platform/internal/observability/metrics"
	"github.com/consignedbydesign/delivery-platform/internal/pickups"
	"github.com/consignedbydesign/delivery-platform/internal/tasks"
	"github.com/consignedbydesign/delivery-platform/internal/uploads"
	"github.com/consignedbydesign/delivery-platform/pkg/logging"
)

func main() {
	// .env is optional outside local development
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting delivery-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	convMetrics := observemetrics.NewConversationMetrics(registry)

	// Per-phone turn serialization via Redis. Fall back to in-process
	// handling when Redis is not configured.
	var locker conversation.TurnLocker = conversation.NoopTurnLocker{}
	if !cfg.TurnLockDisabled && cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		locker = conversation.NewRedisTurnLocker(redis.NewClient(opts), cfg.TurnLockTTL)
	}

	catalogClient := catalog.NewClient(catalog.ClientConfig{
		ShopURL:     cfg.ShopifyShopURL,
		AccessToken: cfg.ShopifyAccessToken,
		APIVersion:  cfg.ShopifyAPIVersion,
		OrderWindow: cfg.ShopifyOrderWindow,
		Timeout:     cfg.ShopifyLookupTimeout,
	}, logger)
	if !catalogClient.Configured() {
		logger.Warn("shopify catalog not configured, item lookups will degrade to no-match")
	}

	taskRepo := tasks.NewPostgresRepository(pool)
	pickupRepo := pickups.NewPostgresRepository(pool)
	materializer := conversation.NewEntityMaterializer(taskRepo, pickupRepo)

	engine := conversation.NewEngine(catalogClient, materializer, conversation.EngineConfig{
		SchedulerPhone: cfg.SchedulerPhone,
		DefaultState:   cfg.DefaultState,
		LookupTimeout:  cfg.ShopifyLookupTimeout,
	}, convMetrics, logger)

	service := conversation.NewService(conversation.ServiceConfig{
		DB:              pool,
		Store:           conversation.NewPostgresStore(),
		Engine:          engine,
		Processed:       conversation.NewProcessedStore(),
		Locker:          locker,
		ConversationTTL: cfg.ConversationTTL,
		Metrics:         convMetrics,
		Logger:          logger,
	})

	// Scheduler notifications (either channel may be unconfigured)
	var emailSender notify.EmailSender
	if sender := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sender != nil {
		emailSender = sender
	}
	var smsSender notify.SMSSender
	if sender := notify.NewTwilioSMSSender(notify.TwilioConfig{
		AccountSID: cfg.TwilioAccountSID,
		AuthToken:  cfg.TwilioAuthToken,
		FromNumber: cfg.TwilioFromNumber,
	}, logger); sender != nil {
		smsSender = sender
	}
	notifier := notify.NewService(emailSender, smsSender, notify.ServiceConfig{
		SchedulerPhone: cfg.SchedulerPhone,
		SchedulerEmail: cfg.SchedulerEmail,
	}, logger)

	var mirror *uploads.Mirror
	if cfg.UploadsBucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.AWSEndpointOverride != "" {
				o.BaseEndpoint = &cfg.AWSEndpointOverride
				o.UsePathStyle = true
			}
		})
		mirror = uploads.NewMirror(s3Client, uploads.Config{
			Bucket:     cfg.UploadsBucket,
			AccountSID: cfg.TwilioAccountSID,
			AuthToken:  cfg.TwilioAuthToken,
		}, logger)
	}

	service.AfterTurn = func(ctx context.Context, conv *conversation.Conversation, _ string) {
		if conv.Stage != conversation.StageCompleted {
			return
		}
		if mirror != nil && mirror.Enabled() {
			if keys, err := mirror.MirrorPhotos(ctx, conv.ID, conv.PhotoURLs); err != nil {
				logger.Error("photo mirroring failed", "conversation_id", conv.ID, "error", err)
			} else if len(keys) > 0 {
				logger.Info("mirrored conversation photos", "conversation_id", conv.ID, "count", len(keys))
			}
		}
		if err := notifier.NotifyCompleted(ctx, conv); err != nil {
			logger.Error("scheduler notification failed", "conversation_id", conv.ID, "error", err)
		}
	}

	webhookHandler := handlers.NewSMSWebhookHandler(service, cfg.TwilioAuthToken, cfg.PublicBaseURL, logger)

	routerCfg := &router.Config{
		Logger:               logger,
		SMSWebhook:           webhookHandler,
		MetricsHandler:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AdminAuthSecret:      cfg.AdminJWTSecret,
		ConversationsHandler: conversation.NewHandler(pool, conversation.NewPostgresStore(), logger),
		DeliveriesHandler:    handlers.NewDeliveriesHandler(taskRepo, logger),
		PickupsHandler:       handlers.NewPickupsHandler(pickupRepo, logger),
		ItemsHandler:         handlers.NewItemsHandler(catalogClient, logger),
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"callflow/internal/api"
	"callflow/internal/api/handlers"
	"callflow/internal/api/middleware"
	"callflow/internal/engine/notify"
	"callflow/internal/engine/scoring"
	"callflow/internal/engine/subscriptions"
	"callflow/internal/engine/webhooks"
	"callflow/internal/pkg/logger"
	"callflow/internal/platform/auth"
	"callflow/internal/platform/config"
	"callflow/internal/platform/database"
	"callflow/internal/platform/repositories"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Logging)

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	// Repositories
	eventRepo := repositories.NewEventRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)
	subscriptionRepo := repositories.NewSubscriptionRepository(db)

	// Engine
	registry := subscriptions.NewRegistry(subscriptionRepo, cfg.Webhooks.SigningKey, cfg.Webhooks.SecretCacheTTL)
	engine := scoring.NewEngine(scoring.Config{
		BrandTerm:   cfg.Scoring.BrandTerm,
		Keywords:    cfg.Scoring.Keywords,
		Competitors: cfg.Scoring.Competitors,
	})

	// Notification delivery: queue plus workers, so sink I/O never delays
	// the webhook acknowledgment.
	queue := notify.NewQueue(cfg.Notifications.QueueSize)
	defer queue.Close()

	sink := notify.NewWebhookSink(subscriptionRepo, cfg.Notifications.DeliveryTimeout)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	workerCount := cfg.Notifications.WorkerCount
	if workerCount <= 0 {
		workerCount = 4
	}
	for i := 0; i < workerCount; i++ {
		worker := notify.NewDeliveryWorker(queue, sink, notificationRepo, cfg.Notifications.MaxAttempts)
		go worker.Run(workerCtx)
	}

	generator := notify.NewGenerator(notificationRepo, queue)
	pipeline := webhooks.NewPipeline(registry, eventRepo, engine, generator, cfg.Webhooks.StoreTimeout)

	// Services
	tokenSvc := auth.NewTokenService(cfg.Auth)

	// Handlers
	webhookHandler := handlers.NewWebhookHandler(pipeline, cfg.Webhooks.MaxBodyBytes)
	subscriptionHandler := handlers.NewSubscriptionHandler(registry)
	notificationHandler := handlers.NewNotificationHandler(notificationRepo)
	healthHandler := handlers.NewHealthHandler(db)
	metricsHandler := handlers.NewMetricsHandler()

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenSvc, cfg.Auth.Enabled)
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit)

	router := api.NewRouter(&api.Dependencies{
		WebhookHandler:      webhookHandler,
		SubscriptionHandler: subscriptionHandler,
		NotificationHandler: notificationHandler,
		HealthHandler:       healthHandler,
		MetricsHandler:      metricsHandler,
		AuthMiddleware:      authMiddleware,
		RateLimiter:         rateLimiter,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Printf("Server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
	stopWorkers()
	if err := server.Shutdown(context.Background()); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

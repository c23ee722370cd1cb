package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"callflow/internal/engine/notify"
	"callflow/internal/pkg/logger"
	"callflow/internal/platform/config"
	"callflow/internal/platform/database"
	"callflow/internal/platform/repositories"
	"callflow/internal/workers"
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

	notificationRepo := repositories.NewNotificationRepository(db)
	subscriptionRepo := repositories.NewSubscriptionRepository(db)
	sink := notify.NewWebhookSink(subscriptionRepo, cfg.Notifications.DeliveryTimeout)

	sweeper := workers.NewSweeper(notificationRepo, sink,
		cfg.Notifications.MaxAttempts, cfg.Notifications.SweepBatchSize)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		cancel()
	}()

	interval := cfg.Notifications.SweepInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	log.Printf("Starting notification delivery sweeper (interval %v)", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Sweeper stopped")
			return
		case <-ticker.C:
			if err := sweeper.Sweep(ctx); err != nil {
				log.Printf("Sweep error: %v", err)
			}
		}
	}
}

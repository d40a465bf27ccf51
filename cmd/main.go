package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"alerts-service/internal/api"
	"alerts-service/internal/automation"
	"alerts-service/internal/config"
	"alerts-service/internal/db"
	"alerts-service/internal/dispatcher"
	"alerts-service/internal/engine"
	"alerts-service/internal/identity"
	"alerts-service/internal/kafka"
	"alerts-service/internal/logging"
	"alerts-service/internal/pipeline"
	"alerts-service/internal/providers"
	"alerts-service/internal/registry"
	"alerts-service/internal/sweep"
	"alerts-service/internal/ws"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	// Connect to database
	dbConn, err := db.New(cfg.DB.DSN)
	if err != nil {
		logger.Errorf("Failed to connect to database: %v", err)
		log.Fatalf("Database connection failed: %v", err)
	}
	defer dbConn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// One process, one registry; gateway and dispatcher share it
	reg := registry.New(logger, cfg.WebSocket.MaxConnsPerUser)
	disp := dispatcher.New(reg, logger)

	auth := identity.NewHTTPAuthenticator(cfg.Identity.BaseURL, cfg.Identity.Timeout)
	gateway := ws.NewGateway(auth, reg, logger, cfg.WebSocket.PongTimeout)

	// Owner channel
	var notifier automation.OwnerNotifier
	switch cfg.Owner.Channel {
	case "telegram":
		notifier = providers.NewTelegramNotifier(cfg, dbConn, logger)
	default:
		notifier = providers.NewEmailNotifier(cfg, logger)
	}

	// Alert pipeline
	eng := engine.New(dbConn, logger)
	trigger := automation.NewTrigger(dbConn, disp, notifier, logger)
	pl := pipeline.New(dbConn, eng, trigger, logger)

	// Kafka consumer for domain events
	if cfg.Kafka.Broker != "" {
		consumer := kafka.NewConsumer(cfg, pl, logger)
		defer consumer.Close()
		go consumer.Start(ctx)
	} else {
		logger.Warnf("KAFKA_BROKER not set, domain events arrive via HTTP only")
	}

	// Periodic sweep
	scheduler := sweep.New(pl, logger)
	if err := scheduler.Start(ctx, cfg.Sweep.Schedule); err != nil {
		logger.Errorf("Failed to start sweep scheduler: %v", err)
		log.Fatalf("Sweep scheduler failed: %v", err)
	}
	defer scheduler.Stop()

	// API server
	handler := api.NewHandler(dbConn, logger, pl, disp)
	router := api.NewRouter(cfg, logger, handler, gateway, auth)
	go func() {
		logger.Infof("Starting API server on %s", cfg.API.Port)
		if err := router.Run(cfg.API.Port); err != nil {
			logger.Errorf("API server failed: %v", err)
		}
	}()

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	logger.Infof("Shutting down...")
	cancel()
	logger.Infof("Service stopped")
}

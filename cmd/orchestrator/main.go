package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"coursecatalog/internal/config"
	"coursecatalog/internal/logger"
	"coursecatalog/internal/orchestrator/relay"
	"coursecatalog/internal/pgmq"
	"coursecatalog/internal/pubsub"
	"coursecatalog/internal/repository"

	"github.com/joho/godotenv"
)

func main() {
	mode := flag.String("mode", "", "Orchestrator mode: relay")
	flag.Parse()

	logger := logger.New()

	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Msgf("Error loading config: %v", err)
	}

	// Set up context with graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := repository.NewPool(ctx, cfg.DBConnectionString, cfg.Environment)
	if err != nil {
		logger.Fatal().Msgf("Failed to connect to database: %v", err)
	}
	defer pool.Close()
	logger.Info().Msg("Database connection established")

	pgmqClient := pgmq.New(pool)
	for _, queue := range []string{cfg.ContentEventsQueue, cfg.ContentEventsDLQ} {
		if err := pgmqClient.CreateQueue(ctx, queue); err != nil {
			logger.Fatal().Msgf("Failed to create queue %s: %v", queue, err)
		}
	}
	logger.Info().Msg("PGMQ client initialized")

	var runErr error
	switch *mode {
	case "relay":
		if cfg.PubSubEmulatorHost != "" {
			logger.Info().Str("host", cfg.PubSubEmulatorHost).Msg("Publishing to Pub/Sub emulator")
		}
		publisher, err := pubsub.NewPublisher(ctx, cfg.GCPProjectID)
		if err != nil {
			logger.Fatal().Msgf("Failed to create Pub/Sub publisher: %v", err)
		}
		defer publisher.Close()

		runErr = relay.Run(ctx, logger, pgmqClient, publisher, relay.Options{
			Queue:           cfg.ContentEventsQueue,
			Topic:           cfg.PubSubContentTopic,
			VisibilitySec:   cfg.RelayVisibilitySec,
			PollTimeoutSec:  cfg.RelayPollTimeoutSec,
			MaxMessages:     cfg.RelayPollMaxMsg,
			DeadLetterQueue: cfg.ContentEventsDLQ,
		})
	default:
		logger.Fatal().Msgf("Invalid mode: %s", *mode)
	}

	if runErr != nil {
		logger.Fatal().Msgf("%s orchestrator failed: %v", *mode, runErr)
	}

	logger.Info().Msgf("%s orchestrator stopped gracefully", *mode)
}

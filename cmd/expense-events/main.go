package main

import (
	"context"
	"os"
	"time"

	"spesetools/internal/amqp"
	"spesetools/internal/cli"
	"spesetools/internal/log"
	"spesetools/internal/services"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.MustSetupLogger(cfg, log.ComponentEvents)

	if !cfg.EventsEnabled() {
		logger.Error("AMQP_URL is required to consume expense events",
			log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client",
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeNetwork)
		os.Exit(1)
	}
	defer client.Close()

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	processor := services.NewEventProcessor(client, logger)
	logger.Info("Consuming expense events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)

	runErr := processor.Run(ctx, shutdownTimeout)

	stats := processor.Stats()
	logger.Info("Event consumer stopped",
		log.FieldCount, stats.Total(),
		"created", stats.Created,
		"updated", stats.Updated,
		"deleted", stats.Deleted)

	if runErr != nil {
		logger.Error("Event consumption failed", log.FieldError, runErr)
		client.Close()
		os.Exit(1)
	}
}

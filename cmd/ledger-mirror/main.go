// Command ledger-mirror consumes the ledger events published by the server
// and keeps the configured export target in sync with them.
package main

import (
	"context"
	"errors"
	"os"
	"sync"

	"spendsense/internal/amqp"
	"spendsense/internal/backend"
	"spendsense/internal/cache"
	"spendsense/internal/cli"
	"spendsense/internal/log"
	"spendsense/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting ledger-mirror", log.FieldOperation, log.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the ledger mirror")
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	exporter, err := backend.NewFactory(logger, nil).CreateExporter(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize exporter", log.FieldError, err, "export", cfg.ExportBackend)
		os.Exit(1)
	}

	consumer, err := amqp.DialConsumer(ctx, amqp.Config{
		URL:        cfg.AMQPURL,
		Exchange:   cfg.AMQPExchange,
		RoutingKey: cfg.AMQPRoutingKey,
	}, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP consumer", log.FieldError, err)
		os.Exit(1)
	}
	defer consumer.Close()

	mirror := worker.NewMirror(exporter, logger)

	caches := cache.NewManager(logger)
	caches.Register(mirror.SeenEvents())
	caches.StartCleanup(cfg.MirrorFlushInterval * 10)
	defer caches.Stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		mirror.Run(ctx, cfg.MirrorFlushInterval)
	}()

	err = consumer.Consume(ctx, mirror.HandleEvent)
	stop()
	wg.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Ledger mirror stopped", log.FieldCount, mirror.Len())
}

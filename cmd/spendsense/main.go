package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"spendsense/internal/backend"
	"spendsense/internal/cache"
	"spendsense/internal/classifier"
	"spendsense/internal/cli"
	apphttp "spendsense/internal/http"
	"spendsense/internal/ledger"
	"spendsense/internal/log"
	"spendsense/internal/services"
)

const (
	shutdownTimeout = 30 * time.Second
	cacheSweepEvery = 5 * time.Minute
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	caches := cache.NewManager(logger)
	comps, err := backend.NewFactory(logger, caches).Create(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, log.FieldBackend, cfg.ModelBackend)
		os.Exit(1)
	}
	defer func() {
		if comps.Cleanup != nil {
			if err := comps.Cleanup(); err != nil {
				logger.Warn("Backend cleanup failed", log.FieldError, err)
			}
		}
	}()

	gateway, err := classifier.NewGateway(comps.Model,
		classifier.WithCurrencySymbol(cfg.CurrencySymbol),
		classifier.WithLogger(logger))
	if err != nil {
		logger.Error("Classifier unavailable", log.FieldError, err)
		os.Exit(1)
	}

	opts := []services.Option{services.WithLogger(logger), services.WithExporter(comps.Exporter)}
	if comps.Publisher != nil {
		opts = append(opts, services.WithPublisher(comps.Publisher))
	}
	svc := services.NewLedgerService(ledger.New(), gateway, opts...)

	caches.StartCleanup(cacheSweepEvery)
	defer caches.Stop()

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.WithLogger(logger))
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting spendsense server",
			"port", cfg.Port,
			log.FieldOperation, log.OpStartup,
			log.FieldBackend, cfg.ModelBackend,
			"export", cfg.ExportBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"spesetools/internal/backend"
	"spesetools/internal/cli"
	"spesetools/internal/config"
	apphttp "spesetools/internal/http"
	"spesetools/internal/log"
	"spesetools/internal/mcp"
	"spesetools/internal/tools"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.MustSetupLogger(cfg, log.ComponentApp)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Expense tools server failed", log.FieldError, err)
		stop()
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	registry := tools.NewExpenseRegistry(res.Service, logger)
	rpc := mcp.NewServer(registry, logger, mcp.WithCallTimeout(cfg.RequestTimeout))

	logger.Info("Starting expense tools server",
		"server", rpc.String(),
		"transport", cfg.Transport,
		"backend", cfg.DataBackend,
		"events_enabled", res.EventsEnabled,
		"tools", tools.ToolNames(registry))

	if cfg.Transport == config.TransportStdio {
		if err := rpc.ServeStdio(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}
	return serveHTTP(ctx, cfg, rpc, res.Service, logger)
}

func serveHTTP(ctx context.Context, cfg *config.Config, rpc *mcp.Server, ready apphttp.Pinger, logger *log.Logger) error {
	srv := apphttp.NewServer(":"+cfg.Port, rpc, ready, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

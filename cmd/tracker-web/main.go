package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"tracker/internal/cli"
	"tracker/internal/client"
	"tracker/internal/controller"
	applog "tracker/internal/log"
	"tracker/internal/webui"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWebUI)
	cfg := cli.LoadAndValidateConfig(logger.Logger)

	storeClient := client.New(cfg.StoreURL)
	ctrl := controller.New(storeClient)

	// Initial load. A failed load is not fatal: the UI renders the error
	// banner and the retry button re-issues the list request.
	loadCtx, loadCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ctrl.Load(loadCtx); err != nil {
		logger.Warn("Initial load failed", "store_url", cfg.StoreURL, "error", err)
	} else {
		logger.Info("Initial load complete", "transactions", len(ctrl.Snapshot().Transactions))
	}
	loadCancel()

	srv, err := webui.NewServer(":"+cfg.WebPort, ctrl, logger.Logger)
	if err != nil {
		logger.Error("Failed to build web server", "error", err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting web UI", "port", cfg.WebPort, "store_url", cfg.StoreURL)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.WebPort)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

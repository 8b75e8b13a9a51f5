// Command campuscore runs the university information system HTTP server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"campuscore/internal/blob"
	"campuscore/internal/config"
	"campuscore/internal/core"
	"campuscore/internal/httpapi"
	"campuscore/internal/importer"
	"campuscore/internal/notify"
	"campuscore/internal/observability"
)

func main() {
	if err := run(); err != nil {
		log.Fatal("server exited", "error", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "campuscore",
	})
	if level, err := log.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := core.OpenPersistentStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	blobs, err := blob.Open(ctx)
	if err != nil {
		return err
	}

	metrics := observability.New()
	registry := notify.NewRegistry(
		notify.WithLogger(logger),
		notify.WithGauges(metrics),
	)
	service := core.NewService(store,
		core.WithLogger(logger),
		core.WithPublisher(registry),
	)
	imports := importer.NewRunner(service, blobs,
		importer.WithLogger(logger),
		importer.WithOutcomes(metrics),
	)
	imports.Start()

	handler := httpapi.New(service, imports, registry, metrics, logger)
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", "error", err)
	}
	if err := imports.Stop(shutdownCtx); err != nil {
		logger.Warn("import runner stop incomplete", "error", err)
	}
	registry.Close()
	return nil
}

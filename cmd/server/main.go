package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dgallion1/zimshred/internal/api"
	"github.com/dgallion1/zimshred/internal/archive"
	"github.com/dgallion1/zimshred/internal/config"
	"github.com/dgallion1/zimshred/internal/pipeline"
	"github.com/dgallion1/zimshred/internal/storage"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Error("load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader, err := archive.OpenDir(cfg.ArchiveDir)
	if err != nil {
		log.Error("open archive", "error", err)
		os.Exit(1)
	}

	var store storage.Store
	switch cfg.StorageMode {
	case "remote":
		store = storage.NewRemoteStore(cfg.StorageURL, cfg.StorageAPIKey)
	default:
		store, err = storage.NewFileStore(cfg.StorageDir)
		if err != nil {
			log.Error("open file store", "error", err)
			os.Exit(1)
		}
	}

	orch := pipeline.NewOrchestrator(cfg, reader, store, log)
	orch.Start(ctx)

	srv := api.NewServer(orch, reader, log, cfg)
	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		store.Close()
		reader.Close()
	}()

	log.Info("starting zimshred", "port", cfg.Port, "archive", cfg.ArchiveDir)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

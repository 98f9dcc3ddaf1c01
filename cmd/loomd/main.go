package main

import (
	"context"
	"log"
	"os/signal"
	"path/filepath"
	"syscall"

	"loom/internal/bootstrap"
	"loom/internal/config"
	"loom/internal/daemon"
	"loom/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", filepath.Join(cfg.Paths.LogDir, "loomd.log")},
	})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	components, err := bootstrap.Build(cfg, logger)
	if err != nil {
		logger.Error("assemble pipeline", logging.Error(err))
		return
	}

	d, err := daemon.New(cfg, components.Pipeline, components.Store, components.Metrics, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Stop()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("loomd shutting down")
}

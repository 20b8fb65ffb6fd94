package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nightglow/respd/internal/config"
	"github.com/nightglow/respd/internal/logger"
	"github.com/nightglow/respd/internal/server"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		os.Stderr.WriteString("config error: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		os.Stderr.WriteString("logger error: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	log.Info("respd starting",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port),
	)

	srv := server.NewServer(cfg, log)
	if err := srv.Start(); err != nil {
		log.Error("listener error", zap.Error(err))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Info("Shutting down...")

	done := make(chan struct{})
	go func() {
		srv.Stop()
		close(done)
	}()

	select {
	case <-done:
		log.Info("All connections closed gracefully")
	case <-time.After(5 * time.Second):
		log.Warn("Shutdown timed out, forcing exit", zap.Duration("timeout", 5*time.Second))
	}

	log.Info("respd stopped")
}

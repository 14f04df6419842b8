package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kacperjurak/thermalcore/pkg/config"
	"github.com/kacperjurak/thermalcore/pkg/server"
)

func main() {
	cfg := config.Load()

	var debug, quiet bool
	flag.StringVar(&cfg.Port, "port", cfg.Port, "HTTP port")
	flag.IntVar(&cfg.WorkerCount, "workers", cfg.WorkerCount, "Number of simulation workers")
	flag.StringVar(&cfg.WebhookURL, "webhook", cfg.WebhookURL, "Webhook URL for async and batch results; empty disables delivery")
	flag.BoolVar(&cfg.EnableProfiling, "profile", cfg.EnableProfiling, "Enable pprof profiling")
	flag.BoolVar(&debug, "debug", false, "Debug logging")
	flag.BoolVar(&quiet, "quiet", false, "Log warnings and errors only")
	flag.Parse()

	logger, err := config.NewLogger(debug, quiet)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	srv := server.New(server.Options{ServerConfig: cfg, Logger: logger})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal("server failed", zap.Error(err))
		}
		return
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during shutdown", zap.Error(err))
	}
}

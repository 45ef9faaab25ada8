package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/evalmachine/internal/infrastructure/config"
	"github.com/GriffinCanCode/evalmachine/internal/infrastructure/logging"
	"github.com/GriffinCanCode/evalmachine/internal/infrastructure/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flags override the environment
	flag.StringVar(&cfg.Server.Port, "port", cfg.Server.Port, "Server port")
	flag.StringVar(&cfg.Server.Host, "host", cfg.Server.Host, "Server host")
	flag.IntVar(&cfg.Engine.PoolSize, "pool", cfg.Engine.PoolSize, "Pre-built environments kept ready (0 disables the pool)")
	flag.IntVar(&cfg.Engine.MaxCallStack, "max-call-stack", cfg.Engine.MaxCallStack, "Maximum script call stack depth (0 is unlimited)")
	flag.BoolVar(&cfg.Engine.DisplayErrors, "display-errors", cfg.Engine.DisplayErrors, "Log every syntax error with its source line")
	flag.BoolVar(&cfg.Logging.Development, "dev", cfg.Logging.Development, "Development logging")
	flag.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "Log level (debug, info, warn, error)")
	flag.BoolVar(&cfg.RateLimit.Enabled, "rate-limit", cfg.RateLimit.Enabled, "Enable per-IP rate limiting")
	flag.Parse()

	logger := logging.FromLevel(cfg.Logging.Level, cfg.Logging.Development)
	srv, err := server.NewServer(cfg, server.WithLogger(logger))
	if err != nil {
		logger.Fatal("Failed to create server", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := srv.Run(ctx)
	if runErr != nil {
		logger.Error("Server error", zap.Error(runErr))
	}
	if err := srv.Close(); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	if runErr != nil {
		os.Exit(1)
	}
}

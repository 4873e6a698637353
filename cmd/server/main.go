package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	approuters "github.com/umachittudi2004/VedazAssingment/internal/app_routers"
	"github.com/umachittudi2004/VedazAssingment/internal/configuration"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "courier: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.json", "path to the JSON configuration file")
	flag.Parse()

	config, err := configuration.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := configuration.NewLogger(config.Log)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	container, err := configuration.BuildContainer(config, logger)
	if err != nil {
		return fmt.Errorf("build container: %w", err)
	}

	// Ensure cleanup on shutdown
	defer func() {
		if err := container.Close(); err != nil {
			logger.Error("cleanup failed", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return approuters.StartServer(ctx, container)
}

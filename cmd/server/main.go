package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/garyjia/sov-billing/internal/config"
	"github.com/garyjia/sov-billing/internal/container"
	httpapi "github.com/garyjia/sov-billing/internal/interfaces/http"
	"github.com/garyjia/sov-billing/pkg/logging"
)

func main() {
	configPath := flag.String("config", os.Getenv("SOV_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("Server exited with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("Server exited successfully")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting SOV billing service",
		zap.Int("port", cfg.Server.Port),
		zap.String("database", cfg.Database.Path),
		zap.String("balance_policy", cfg.Billing.BalancePolicy))

	ccfg := cfg.ToContainerConfig()
	c, err := container.NewContainer(ccfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}
	if err := c.Start(ctx); err != nil {
		return fmt.Errorf("failed to start container: %w", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error("Failed to close container", zap.Error(err))
		}
	}()

	services := c.Services()
	srv := httpapi.NewServer(httpapi.ServerConfig{
		Host:            ccfg.Server.Host,
		Port:            ccfg.Server.Port,
		ReadTimeout:     ccfg.Server.ReadTimeout,
		WriteTimeout:    ccfg.Server.WriteTimeout,
		ShutdownTimeout: ccfg.Server.ShutdownTimeout,
		MaxUploadBytes:  ccfg.Server.MaxUploadBytes,
	}, httpapi.Services{
		SOV:     services.SOV,
		Draw:    services.Draw,
		Billing: services.Billing,
	}, func() (bool, any) {
		h := c.Health()
		return h.Overall, h.Components
	}, logging.NewKV(logger))

	return srv.Start(ctx)
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/carson-networks/up-bridge/api"
	"github.com/carson-networks/up-bridge/internal/config"
	"github.com/carson-networks/up-bridge/internal/coordinator"
	"github.com/carson-networks/up-bridge/internal/logging"
	"github.com/carson-networks/up-bridge/internal/upapi"
	"github.com/carson-networks/up-bridge/internal/webhook"
)

const defaultConfigPath = "up-bridge.yaml"

func main() {
	configPath := os.Getenv("UP_BRIDGE_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.WithError(err).Fatal("config.Load")
		return
	}

	logger := logging.SetupLogging(cfg.LogLevel)
	logger.Info("up-bridge starting")

	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("config.Validate")
		return
	}

	store := config.NewStore(configPath, cfg)
	client := upapi.NewClient(cfg.Token, &http.Client{Timeout: 30 * time.Second}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := client.Ping(ctx); err != nil {
		logger.WithError(err).Fatal("upapi.Ping.credential validation failed")
		return
	}

	coord := coordinator.NewCoordinator(client, logger, time.Duration(cfg.RefreshMinutes)*time.Minute)
	coord.Start()
	defer coord.Stop()

	// The first refresh must succeed before anything serves data.
	if err := coord.RefreshNow(ctx); err != nil {
		logger.WithError(err).Fatal("coordinator.RefreshNow.initial refresh failed")
		return
	}

	manager := webhook.NewManager(client, store, cfg.ExternalURL, logger)
	reg, err := manager.Ensure(ctx)
	if err != nil {
		// No delivery channel for push events; refuse to start.
		logger.WithError(err).Fatal("webhook.Ensure")
		return
	}

	httpRest := &api.Rest{
		Logger:      logger,
		Port:        cfg.Port,
		Coordinator: coord,
		CallbackID:  reg.CallbackID,
		Secret:      reg.Secret,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpRest.Serve()
	}()

	logger.Infof("up-bridge setup complete (interval=%v min)", cfg.RefreshMinutes)

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			logger.WithError(err).Error("HttpServer.Serve")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpRest.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("HttpServer.Shutdown")
	}

	if cfg.Webhook.DeleteOnShutdown {
		manager.Delete(shutdownCtx)
	}

	logger.Info("up-bridge stopped")
}

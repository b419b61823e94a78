package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/homedeskhq/homedesk/internal/config"
	"github.com/homedeskhq/homedesk/internal/dispatch"
	"github.com/homedeskhq/homedesk/internal/repository"
	"github.com/homedeskhq/homedesk/internal/server"
	"github.com/homedeskhq/homedesk/internal/service"
	"github.com/homedeskhq/homedesk/pkg/auth"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.IsDevelopment() {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	store, err := openStore(cfg)
	if err != nil {
		logger.Error("failed to open task store", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close task store", slog.Any("err", err))
		}
	}()

	tokens := auth.NewTokenManager(
		cfg.Auth.SessionSecret,
		cfg.Auth.ServiceKey,
		cfg.Auth.SessionTokenDuration,
		cfg.Auth.AutomationTokenDuration,
	)

	engine := service.NewScheduler(store, service.RealClock{}, logger.With("component", "scheduler"))

	srv := server.New(server.Config{
		Addr:          ":" + cfg.Server.HTTPPort,
		ServiceSecret: cfg.Auth.ServiceSecret,
	}, engine, tokens, logger.With("component", "http"))

	client := dispatch.New(
		cfg.Scheduler.EndpointURL,
		cfg.Auth.ServiceSecret,
		tokens,
		engine,
		logger.With("component", "dispatch"),
	)

	// Periodic trigger for the batch run.
	c := cron.New()
	if _, err := c.AddFunc(cfg.Scheduler.CronSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Scheduler.RequestTimeout)
		defer cancel()
		result, err := client.Process(ctx)
		if err != nil {
			logger.Error("scheduled batch run failed", slog.Any("err", err))
			return
		}
		logger.Info("scheduled batch run finished",
			slog.Int("created", result.Created), slog.Int("errors", len(result.Errors)))
	}); err != nil {
		logger.Error("invalid cron spec", slog.String("spec", cfg.Scheduler.CronSpec), slog.Any("err", err))
		os.Exit(1)
	}
	c.Start()

	go func() {
		// Shutdown surfaces as ErrServerClosed here; only real failures
		// are fatal.
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	<-c.Stop().Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		logger.Error("shutdown failed", slog.Any("err", err))
	}
	logger.Info("shutdown complete")
}

func openStore(cfg *config.Config) (repository.Store, error) {
	switch cfg.Database.Driver {
	case "sqlite":
		return repository.NewSQLiteStore(cfg.Database.Path)
	case "postgres":
		return repository.NewPostgresStore(repository.PostgresConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		})
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

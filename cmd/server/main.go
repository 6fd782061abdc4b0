package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcoot/teamdraw/internal/api"
	"github.com/mcoot/teamdraw/internal/config"
	"github.com/mcoot/teamdraw/internal/factory"
	"github.com/mcoot/teamdraw/internal/services/auth"
	"github.com/mcoot/teamdraw/internal/services/teams"
	redisstorage "github.com/mcoot/teamdraw/internal/storage/redis"
)

// sessionSweepInterval is how often expired sessions are dropped
const sessionSweepInterval = 10 * time.Minute

func main() {
	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		slog.Error("server exited", slog.String("error", err.Error()))
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	level, _ := config.ParseLogLevel(cfg.LogLevel)

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	factoryCfg := factory.Config{
		Logger:      logger,
		StorageType: cfg.StorageType,
		SQLitePath:  cfg.SQLitePath,
		AuthConfig:  auth.Config{SessionDuration: cfg.SessionDuration},
		TeamsConfig: teams.Config{
			DefaultIterations:       cfg.DrawIterations,
			DefaultBalanceThreshold: cfg.DrawBalanceThreshold,
		},
		DrawWorkers:    cfg.DrawWorkers,
		PositionWeight: cfg.PositionWeight,
	}
	if cfg.StorageType == config.StorageRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		factoryCfg.RedisConfig = &redisCfg
	}

	// Create application factory
	app, err := factory.New(factoryCfg)
	if err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("failed to close storage", slog.String("error", err.Error()))
		}
	}()

	if cfg.AdminUsername != "" && cfg.AdminPassword != "" {
		if err := app.AuthService.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
			return fmt.Errorf("seed admin account: %w", err)
		}
	}

	// Create API router
	router := api.NewRouter(api.RouterConfig{
		Logger:          logger,
		AuthService:     app.AuthService,
		RosterService:   app.RosterService,
		TeamsController: app.TeamsController,
		Metrics:         app.Metrics,
	})

	// Create server
	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.Host
	serverConfig.Port = cfg.Port
	server := api.NewServer(router, serverConfig, logger)

	go sweepSessions(ctx, app.AuthService)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.StorageType),
	)

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		if err := server.Shutdown(context.Background()); err != nil {
			return err
		}
	}

	logger.Info("server stopped")
	return nil
}

func sweepSessions(ctx context.Context, svc *auth.Service) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.CleanExpiredSessions()
		}
	}
}

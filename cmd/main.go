package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/tourney/config"
	"github.com/Dosada05/tourney/db"
	"github.com/Dosada05/tourney/handlers"
	"github.com/Dosada05/tourney/repositories"
	api "github.com/Dosada05/tourney/routes"
	"github.com/Dosada05/tourney/services"
	"github.com/go-chi/chi/v5"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	if err := run(logger); err != nil {
		logger.Error("application failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("application exited")
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	level, _ := cfg.SlogLevel()
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.String("store", cfg.StoreDriver),
	)

	repo, closer, err := openStore(context.Background(), cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := closer.Close(); err != nil {
			logger.Error("failed to close store", slog.Any("error", err))
		} else {
			logger.Info("store closed")
		}
	}()

	scheduleService := services.NewScheduleService(repo, logger)
	matchService := services.NewMatchService(repo, logger)
	standingsService := services.NewStandingsService(repo, logger)
	stageItemService := services.NewStageItemService(repo, logger)
	logger.Info("Services initialized")

	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		api.Options{JWTSecret: cfg.JWTSecretKey, AllowedOrigins: cfg.CORSAllowedOrigins},
		handlers.NewScheduleHandler(scheduleService),
		handlers.NewMatchHandler(matchService),
		handlers.NewStandingsHandler(standingsService),
		handlers.NewStageItemHandler(stageItemService),
	)
	logger.Info("Routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
		} else {
			logger.Info("server shutdown complete")
		}
	}
	return nil
}

// openStore returns the entity repository for the configured driver and the handle to close on exit.
// A configured seed file is applied to an empty bolt store.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repositories.EntityRepository, io.Closer, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverBolt:
		repo, err := repositories.NewBoltRepository(cfg.BoltPath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("bolt store opened", slog.String("path", cfg.BoltPath))
		if cfg.BoltSeedFile != "" {
			if err := seedBolt(ctx, repo, cfg.BoltSeedFile, logger); err != nil {
				repo.Close()
				return nil, nil, err
			}
		}
		return repo, repo, nil
	default:
		dbConn, err := db.Connect(cfg.DatabaseURL, cfg.DBConnectTimeout)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(dbConn); err != nil {
			dbConn.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("database connection established")
		return repositories.NewPostgresEntityRepository(dbConn), dbConn, nil
	}
}

func seedBolt(ctx context.Context, repo *repositories.BoltRepository, path string, logger *slog.Logger) error {
	seed, err := repositories.LoadBoltSeed(path)
	if err != nil {
		return err
	}
	applied, err := repo.ApplySeed(ctx, seed)
	if err != nil {
		return fmt.Errorf("apply seed %s: %w", path, err)
	}
	if applied {
		logger.Info("bolt store seeded", slog.String("file", path), slog.Int("tournaments", len(seed.Tournaments)))
	} else {
		logger.Info("bolt store already populated, seed skipped", slog.String("file", path))
	}
	return nil
}

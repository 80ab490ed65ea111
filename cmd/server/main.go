package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"vision-server/internal/ai"
	httpEngine "vision-server/internal/app/http"
	"vision-server/internal/auth"
	"vision-server/internal/config"
	"vision-server/internal/repositories"
	"vision-server/internal/storage"
	"vision-server/pkg/logger"
)

func main() {
	// Local development convenience; ignored when the file is absent.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.NewZapLogger(logger.Config{
		Level:    cfg.Log.Level,
		Format:   cfg.Log.Format,
		Output:   cfg.Log.Output,
		FilePath: cfg.Log.FilePath,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	log.Info("Configuration loaded",
		zap.String("service", cfg.Service.Name),
		zap.String("version", cfg.Service.Version),
	)

	ctx := context.Background()

	client, err := repositories.Connect(ctx, cfg.Mongo, log)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Error("MongoDB disconnect error", zap.Error(err))
		}
	}()

	repos := repositories.New(client.Database(cfg.Mongo.Database))
	if err := repos.EnsureIndexes(ctx); err != nil {
		log.Fatal("Failed to create indexes", zap.Error(err))
	}

	files, err := storage.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		log.Fatal("Failed to initialize file storage", zap.Error(err))
	}

	httpServer := httpEngine.NewServer(cfg, log, httpEngine.Dependencies{
		Repos:    repos,
		Files:    files,
		Detector: ai.NewClient(cfg.AI),
		Tokens:   auth.NewManager(cfg.JWT.Secret, cfg.JWT.ExpiresIn),
	})
	go func() {
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server shutdown gracefully")
	}

	log.Info("Server exited")
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arcade/backend/internal/config"
	"github.com/arcade/backend/internal/database"
	"github.com/arcade/backend/internal/handlers"
	"github.com/arcade/backend/internal/services"
	"github.com/arcade/backend/internal/storage"
	"github.com/arcade/backend/pkg/logger"
	"github.com/arcade/backend/pkg/utils"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.Log.Level)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	tokens, err := utils.NewTokenManager(cfg.JWT.Secret, cfg.JWT.TTL())
	if err != nil {
		log.Fatalf("jwt initialization failed: %v", err)
	}

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.Redis)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	if redisClient == nil {
		logger.Warn("rate_limit_in_process", map[string]interface{}{
			"reason": "REDIS_URL not set",
		})
	}

	storageClient, err := storage.NewS3Client(cfg.Storage)
	if err != nil {
		log.Fatalf("storage initialization failed: %v", err)
	}

	checkCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := storageClient.CheckConnection(checkCtx); err != nil {
		logger.Error("storage_connection_check_failed", err, map[string]interface{}{
			"endpoint": storageClient.Endpoint(),
			"bucket":   storageClient.Bucket(),
		})
	} else {
		logger.Info("storage_connection_ok", map[string]interface{}{
			"endpoint": storageClient.Endpoint(),
			"bucket":   storageClient.Bucket(),
		})
	}
	cancel()

	app := handlers.NewApp(cfg.Server)
	handlers.RegisterRoutes(app, handlers.Dependencies{
		Users:     services.NewUserService(db),
		Demos:     services.NewDemoService(db),
		Storage:   storageClient,
		Tokens:    tokens,
		Redis:     redisClient,
		RateLimit: cfg.RateLimit,
	})

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":          cfg.Server.Port,
		"address":       listenAddr,
		"body_limit_mb": cfg.Server.BodyLimitMB,
		"frontend_url":  cfg.Server.FrontendURL,
		"token_ttl":     tokens.TTL().String(),
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("server_shutting_down", map[string]interface{}{"signal": sig.String()})
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error("server_shutdown_failed", err, nil)
		}
		if redisClient != nil {
			_ = redisClient.Close()
		}
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"realtime-service/internal/client"
	"realtime-service/internal/config"
	"realtime-service/internal/database"
	"realtime-service/internal/handler"
	"realtime-service/internal/middleware"
	"realtime-service/internal/repository"
	"realtime-service/internal/router"
	"realtime-service/internal/service"
	"realtime-service/internal/ws"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	defer logger.Sync()

	logger.Info("starting realtime-service",
		zap.Int("port", cfg.Server.Port),
		zap.String("env", cfg.Server.Env))

	// The pod may come up before the database; retry in the background and
	// block here until the first connection lands.
	database.NewAsync(cfg, 5*time.Second)
	for database.GetDB() == nil {
		logger.Info("waiting for database connection")
		time.Sleep(2 * time.Second)
	}
	db := database.GetDB()

	redisClient := database.NewRedis(cfg)
	if redisClient == nil {
		logger.Warn("redis unavailable, running without presence mirror and event fan-out")
	}

	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	callRepo := repository.NewCallRepository(db)
	presenceRepo := repository.NewPresenceRepository(db)

	notiClient := client.NewNotificationDispatcher(cfg.Services.NotiServiceURL, 5*time.Second)

	messageService := service.NewMessageService(messageRepo, conversationRepo, notiClient, logger)
	callService := service.NewCallService(callRepo, logger)
	presenceService := service.NewPresenceService(presenceRepo, redisClient, logger)

	validator := middleware.NewAuthServiceValidator(cfg.Auth.ServiceURL, cfg.Auth.SecretKey, logger)

	hub := ws.NewHub(logger, redisClient)
	gateway := ws.NewGateway(logger, hub, validator, messageService, callService, presenceService, notiClient, cfg.WS)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go gateway.Run(ctx)

	healthHandler := handler.NewHealthHandler(redisClient)
	presenceHandler := handler.NewPresenceHandler(hub, presenceService, logger)
	callHandler := handler.NewCallHandler(callRepo, logger)

	r := router.New(cfg, logger, validator, gateway, healthHandler, presenceHandler, callHandler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}

	logger.Info("realtime-service stopped")
}

func newLogger(cfg *config.Config) *zap.Logger {
	level := zapcore.InfoLevel
	if parsed, err := zapcore.ParseLevel(cfg.Server.LogLevel); err == nil {
		level = parsed
	}

	var zapCfg zap.Config
	if cfg.Server.Env == "prod" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"review-service/internal/config"
	"review-service/internal/handler"
	"review-service/internal/heuristic"
	"review-service/internal/llm"
	"review-service/internal/middleware"
	"review-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	configPath := os.Getenv("REVIEW_CONFIG")
	if configPath == "" {
		configPath = "configs/config.yml"
	}

	cfg, cfgErr := config.LoadConfig(configPath)
	if cfgErr != nil {
		cfg = config.Default()
	}

	logger, err := newLogger(cfg.Log.Mode)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Starting Review Service...")

	if cfgErr != nil {
		if !errors.Is(cfgErr, fs.ErrNotExist) {
			logger.Fatal("Failed to load config", zap.String("path", configPath), zap.Error(cfgErr))
		}
		logger.Warn("Config file not found, using defaults", zap.String("path", configPath))
	}

	// Load moderation policy
	policy, err := heuristic.LoadPolicy(cfg.Policy.Path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Warn("Policy file not found, using built-in policy", zap.String("path", cfg.Policy.Path))
		policy = heuristic.DefaultPolicy()
	case err != nil:
		logger.Fatal("Failed to load policy", zap.String("path", cfg.Policy.Path), zap.Error(err))
	}
	logger.Info("Moderation policy loaded", zap.String("version", policy.Version))

	// Acquire the model handle; failure leaves the service in degraded mode
	var generator llm.Generator
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 30*time.Second)
	client, err := llm.Load(loadCtx, cfg.Model.Providers, cfg.Model.MaxFailuresBeforeSwitch, logger)
	cancelLoad()
	if err != nil {
		logger.Warn("No model loaded, every review will use the heuristic fallback", zap.Error(err))
	} else {
		generator = client
		defer client.Close()
		logger.Info("Model handle loaded", zap.Any("model", client.GetModelInfo()))
	}

	reviewer := service.NewReviewer(generator, heuristic.NewVerifier(policy), service.Options{
		Timeout:          cfg.Model.Timeout,
		FallbackSuffix:   cfg.Review.FallbackSuffix,
		SoftenRejections: cfg.Review.SoftenRejections,
	}, logger)

	apiHandler := handler.NewHandler(reviewer, handler.Options{
		StripHTML:      cfg.StripHTML(),
		InternalAPIKey: cfg.Server.InternalAPIKey,
	}, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(logger), middleware.CORS())

	apiHandler.RegisterRoutes(router)

	serverAddr := cfg.Addr()
	srv := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Review Service is running",
		zap.String("address", serverAddr),
		zap.Bool("degraded", reviewer.Degraded()))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newLogger(mode string) (*zap.Logger, error) {
	if mode == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

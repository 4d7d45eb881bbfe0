// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"packshop/internal/config"
	"packshop/internal/db"
	"packshop/internal/db/migrations"
	"packshop/internal/logging"
	"packshop/internal/routes"
	"packshop/internal/services"
)

// @title Packshop API
// @version 1.0
// @description Catalog and account API for the decoration pack shop.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()

	if cfg.AutoCreateDB {
		if err := db.CreateDatabaseIfNotExists(ctx, cfg.DatabaseURL, logger); err != nil {
			logger.Fatal("Failed to ensure database exists", zap.Error(err))
		}
	}

	database, err := db.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	if cfg.RunMigrations {
		if err := migrations.RunMigrations(cfg.DatabaseURL, logger); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
	}

	awsCfg, err := config.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to load AWS configuration", zap.Error(err))
	}

	var images services.ImageStore
	if cfg.S3Bucket != "" {
		images = services.NewS3ImageStore(config.NewS3Config(awsCfg, cfg))
	} else {
		logger.Warn("S3_BUCKET_NAME not set, image uploads are disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	router := routes.SetupRoutes(routes.Dependencies{
		DB:       database.DB,
		Config:   cfg,
		Logger:   logger,
		Mailer:   newMailer(cfg, awsCfg, logger),
		Images:   images,
		Registry: registry,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("Server starting", zap.String("port", cfg.Port), zap.String("environment", cfg.Environment))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}

func newMailer(cfg *config.Config, awsCfg aws.Config, logger *zap.Logger) services.EmailSender {
	switch cfg.EmailProvider {
	case config.EmailProviderSES:
		return services.NewSESSender(awsCfg, cfg.EmailFrom)
	case config.EmailProviderLog:
		if cfg.IsProduction() {
			logger.Warn("EMAIL_PROVIDER=log in production, reset emails will not be delivered")
		}
		return services.NewLogSender(logger)
	default:
		return &services.SMTPSender{
			Host:   cfg.SMTPHost,
			Port:   cfg.SMTPPort,
			User:   cfg.SMTPUser,
			Pass:   cfg.SMTPPassword,
			From:   cfg.EmailFrom,
			UseTLS: cfg.SMTPUseTLS,
		}
	}
}

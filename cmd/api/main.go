// cmd/api/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/beauty-store-backend/internal/config"
	"github.com/your-org/beauty-store-backend/internal/infrastructure/database/postgres"
	"github.com/your-org/beauty-store-backend/internal/infrastructure/database/redis"
	"github.com/your-org/beauty-store-backend/internal/interfaces/http"
	"github.com/your-org/beauty-store-backend/internal/pkg/anonymous"
	"github.com/your-org/beauty-store-backend/internal/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logr := logger.New(cfg)
	logr.WithField("env", cfg.App.Environment).Infof("🚀 Starting %s v%s", cfg.App.Name, cfg.App.Version)

	// Connect to database
	db, err := postgres.NewConnection(cfg, logr)
	if err != nil {
		logr.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	// Redis is optional; without it the catalogue is uncached and the global limiter is off
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewConnection(cfg, logr)
		if err != nil {
			logr.WithError(err).Warn("Redis unavailable, continuing without it")
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	// Run database migrations
	migration := postgres.NewMigration(db.GetDB(), logr)

	if err := migration.RunAutoMigrations(); err != nil {
		logr.WithError(err).Fatal("Database migration failed")
	}

	if _, err := migration.CreateIndexes(); err != nil {
		logr.WithError(err).Warn("Index creation failed")
	}

	// Seed initial data in development
	if cfg.IsDevelopment() {
		if err := migration.SeedInitialData(); err != nil {
			logr.WithError(err).Warn("Data seeding failed")
		}
		for table, count := range migration.GetTableInfo() {
			logr.WithFields(logrus.Fields{"table": table, "rows": count}).Debug("Table info")
		}
	}

	signer, err := anonymous.NewSigner(cfg.WelcomeGift.AnonymousSecret, cfg.WelcomeGift.AnonymousTTL)
	if err != nil {
		logr.WithError(err).Fatal("Invalid anonymous identity configuration")
	}

	server, err := http.NewServer(cfg, db.GetDB(), redisClient, signer, logr)
	if err != nil {
		logr.WithError(err).Fatal("Failed to build HTTP server")
	}

	logr.Info("✅ All systems operational!")

	go func() {
		if err := server.Start(); err != nil {
			logr.WithError(err).Fatal("HTTP server stopped unexpectedly")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	// Give server 30 seconds to shutdown gracefully
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		logr.WithError(err).Error("Failed to shutdown HTTP server gracefully")
	}

	logr.Info("👋 Server shutdown completed")
}

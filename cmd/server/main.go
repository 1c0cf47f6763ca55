package main

import (
	"fmt"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"prospector/server/config"
	"prospector/server/internal/api"
	"prospector/server/internal/auth"
	"prospector/server/internal/database"
	"prospector/server/internal/notify"
	"prospector/server/internal/processor"
	"prospector/server/internal/queue"
	"prospector/server/internal/scheduler"
	"prospector/server/internal/seed"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	logger.Infof("Using database at: %s", cfg.DatabasePath)
	db, err := database.NewDatabase(cfg.DatabasePath, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	logger.Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	if cfg.SeedDatabase {
		if err := seed.Run(db, logger); err != nil {
			logger.WithError(err).Fatal("Failed to seed database")
		}
	}

	// The batch processor writes through gorm so upserts run in a single
	// transaction per batch.
	gormDB, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to open database for batch processing")
	}

	ingestQueue := queue.NewIngestQueue(cfg.BatchProcessing.QueueSize, logger)
	batchProcessor := processor.NewBatchProcessor(gormDB, ingestQueue, cfg, logger)
	batchProcessor.Start()
	ingestQueue.Start()
	defer func() {
		if err := ingestQueue.Close(); err != nil {
			logger.WithError(err).Error("Failed to close ingest queue")
		}
		batchProcessor.Stop()
	}()

	rollupScheduler := scheduler.NewScheduler(db, logger)
	rollupScheduler.Start()
	defer rollupScheduler.Stop()

	validator, err := auth.NewJWKSValidator(auth.Config{
		Issuer:             cfg.Auth.Issuer,
		JWKSURL:            cfg.Auth.JWKSURL,
		EnableVerification: !cfg.Auth.Disabled,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize token validator")
	}
	if cfg.Auth.Disabled {
		logger.Warn("Token signature verification is disabled")
	}

	handler := api.NewHandler(db, ingestQueue, logger, cfg.WeeklyGoal)
	if cfg.Telegram.BotToken != "" {
		handler.SetNotifier(notify.NewService(notify.Config{
			BotToken:          cfg.Telegram.BotToken,
			ChatID:            cfg.Telegram.ChatID,
			PriorityThreshold: cfg.Telegram.PriorityThreshold,
		}, logger))
		logger.Info("Telegram alerts enabled")
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	api.SetupRoutes(router, handler, validator, logger)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Infof("Starting server on port %d", cfg.Port)
	if err := router.Run(addr); err != nil {
		logger.WithError(err).Fatal("Server failed to start")
	}
}
